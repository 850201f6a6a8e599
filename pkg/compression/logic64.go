package compression

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Logical values are stored as 32-bit integers holding 0 (false), 1 (true) or
// the NA sentinel (math.MinInt32). The logic64 packing keeps all three states
// in 2 bits per value, processing the input in whole words:
//
//	00 -> false
//	01 -> true
//	10 -> NA
//
// A packed column is therefore exactly ceil(n/4) bytes for n values.

const logicalNA = math.MinInt32

func logic64PackedSize(elems int) int {
	return (elems + 3) / 4
}

// logic64Pack packs little-endian int32 logicals from src into dst and
// returns the packed size. dst must be at least logic64PackedSize(len(src)/4)
// bytes.
func logic64Pack(dst, src []byte) (int, error) {
	if len(src)%4 != 0 {
		return 0, fmt.Errorf("logical data is %d bytes, not a multiple of 4", len(src))
	}

	elems := len(src) / 4
	packed := logic64PackedSize(elems)
	for i := range dst[:packed] {
		dst[i] = 0
	}

	for i := 0; i < elems; i++ {
		v := int32(binary.LittleEndian.Uint32(src[i*4:]))

		var code byte
		switch {
		case v == logicalNA:
			code = 2
		case v != 0:
			code = 1
		}

		dst[i/4] |= code << ((i % 4) * 2)
	}

	return packed, nil
}

// logic64Unpack restores packed logicals into dst, which must be sized to
// 4 bytes per value.
func logic64Unpack(dst, src []byte) (int, error) {
	elems := len(dst) / 4
	if len(src) < logic64PackedSize(elems) {
		return 0, fmt.Errorf("packed logical data is %d bytes, expected %d", len(src), logic64PackedSize(elems))
	}

	for i := 0; i < elems; i++ {
		code := (src[i/4] >> ((i % 4) * 2)) & 3

		var v int32
		switch code {
		case 1:
			v = 1
		case 2:
			v = logicalNA
		case 3:
			return 0, fmt.Errorf("invalid logic64 code at element %d", i)
		}

		binary.LittleEndian.PutUint32(dst[i*4:], uint32(v))
	}

	return elems * 4, nil
}
