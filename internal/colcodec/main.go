package colcodec

import (
	"encoding/binary"
	"math"
)

// Default block sizes, in elements per compression block. Integer, double and
// logical blocks hold 16 KiB of raw data (logicals are stored as 32-bit
// values before packing), and text blocks are capped by string count.
const (
	BLOCKSIZE_INT     = 4096
	BLOCKSIZE_DOUBLE  = 2048
	BLOCKSIZE_LOGICAL = 4096
	BLOCKSIZE_CHAR    = 2047

	// initial size of the character heap used when assembling text blocks
	CHAR_STACK_SIZE = 32768
)

func int32Bytes(values []int32) []byte {
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(v))
	}
	return data
}

func int32FromBytes(out []int32, data []byte) {
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
	}
}

func float64Bytes(values []float64) []byte {
	data := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return data
}

func float64FromBytes(out []float64, data []byte) {
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
}
