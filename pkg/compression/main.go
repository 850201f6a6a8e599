package compression

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Each block of column data is compressed with one of a closed set of
// algorithms. The algorithm id is stored in the block index of the file, so
// decompression never needs to know how the writer picked algorithms.
//
// The "Shuf" variants permute bytes before compression so that bytes of equal
// significance end up next to each other, which helps the entropy coder on
// typed numeric data. The "Logic64" variants first pack tri-state logicals
// (false / true / NA) down to 2 bits per value.
type Algo uint8

const (
	AlgoNone Algo = iota
	AlgoLZ4
	AlgoLZ4Shuf4
	AlgoZstd
	AlgoZstdShuf4
	AlgoZstdShuf8
	AlgoLogic64
	AlgoLZ4Logic64
	AlgoZstdLogic64

	algoCount
)

var ErrUnknownAlgorithm = fmt.Errorf("unknown compression algorithm")

func (a Algo) String() string {
	switch a {
	case AlgoNone:
		return "none"
	case AlgoLZ4:
		return "lz4"
	case AlgoLZ4Shuf4:
		return "lz4+shuf4"
	case AlgoZstd:
		return "zstd"
	case AlgoZstdShuf4:
		return "zstd+shuf4"
	case AlgoZstdShuf8:
		return "zstd+shuf8"
	case AlgoLogic64:
		return "logic64"
	case AlgoLZ4Logic64:
		return "lz4+logic64"
	case AlgoZstdLogic64:
		return "zstd+logic64"
	}
	return fmt.Sprintf("algo(%d)", uint8(a))
}

// Valid reports whether a is a registered algorithm id.
func (a Algo) Valid() bool {
	return a < algoCount
}

// MaxCompressedSize returns an upper bound for the compressed size of a
// srcSize bytes input. Callers size their scratch buffers with it.
func MaxCompressedSize(a Algo, srcSize int) int {
	switch a {
	case AlgoNone:
		return srcSize
	case AlgoLZ4, AlgoLZ4Shuf4:
		return lz4.CompressBlockBound(srcSize)
	case AlgoZstd, AlgoZstdShuf4, AlgoZstdShuf8:
		return zstdBound(srcSize)
	case AlgoLogic64:
		return logic64PackedSize(srcSize / 4)
	case AlgoLZ4Logic64:
		return lz4.CompressBlockBound(logic64PackedSize(srcSize / 4))
	case AlgoZstdLogic64:
		return zstdBound(logic64PackedSize(srcSize / 4))
	}
	return srcSize
}

// Compress compresses src into dst and returns the number of bytes written.
// dst must be at least MaxCompressedSize(a, len(src)) bytes. A return value
// of 0 (without error) means the block could not be shrunk and the caller
// should store it raw under AlgoNone.
//
// strength is the algorithm strength on a 0-100 scale; it is mapped to the
// native level range of the underlying library.
func Compress(a Algo, dst, src []byte, strength int) (int, error) {
	switch a {
	case AlgoNone:
		return copy(dst, src), nil

	case AlgoLZ4:
		return lz4Compress(dst, src, strength)

	case AlgoLZ4Shuf4:
		shuffled := make([]byte, len(src))
		shuffle(shuffled, src, 4)
		return lz4Compress(dst, shuffled, strength)

	case AlgoZstd:
		return zstdCompress(dst, src, strength)

	case AlgoZstdShuf4:
		shuffled := make([]byte, len(src))
		shuffle(shuffled, src, 4)
		return zstdCompress(dst, shuffled, strength)

	case AlgoZstdShuf8:
		shuffled := make([]byte, len(src))
		shuffle(shuffled, src, 8)
		return zstdCompress(dst, shuffled, strength)

	case AlgoLogic64:
		return logic64Pack(dst, src)

	case AlgoLZ4Logic64:
		packed := make([]byte, logic64PackedSize(len(src)/4))
		if _, err := logic64Pack(packed, src); err != nil {
			return 0, err
		}
		return lz4Compress(dst, packed, strength)

	case AlgoZstdLogic64:
		packed := make([]byte, logic64PackedSize(len(src)/4))
		if _, err := logic64Pack(packed, src); err != nil {
			return 0, err
		}
		return zstdCompress(dst, packed, strength)
	}

	return 0, fmt.Errorf("%w: id %d", ErrUnknownAlgorithm, uint8(a))
}

// Decompress restores a compressed block into dst, which must be sized to the
// exact uncompressed length. It returns the number of bytes written.
func Decompress(a Algo, dst, src []byte) (int, error) {
	switch a {
	case AlgoNone:
		if len(src) != len(dst) {
			return 0, fmt.Errorf("raw block is %d bytes, expected %d", len(src), len(dst))
		}
		return copy(dst, src), nil

	case AlgoLZ4:
		return lz4.UncompressBlock(src, dst)

	case AlgoLZ4Shuf4:
		shuffled := make([]byte, len(dst))
		if _, err := lz4.UncompressBlock(src, shuffled); err != nil {
			return 0, err
		}
		unshuffle(dst, shuffled, 4)
		return len(dst), nil

	case AlgoZstd:
		return zstdDecompress(dst, src)

	case AlgoZstdShuf4:
		shuffled := make([]byte, len(dst))
		if _, err := zstdDecompress(shuffled, src); err != nil {
			return 0, err
		}
		unshuffle(dst, shuffled, 4)
		return len(dst), nil

	case AlgoZstdShuf8:
		shuffled := make([]byte, len(dst))
		if _, err := zstdDecompress(shuffled, src); err != nil {
			return 0, err
		}
		unshuffle(dst, shuffled, 8)
		return len(dst), nil

	case AlgoLogic64:
		return logic64Unpack(dst, src)

	case AlgoLZ4Logic64:
		packed := make([]byte, logic64PackedSize(len(dst)/4))
		if _, err := lz4.UncompressBlock(src, packed); err != nil {
			return 0, err
		}
		return logic64Unpack(dst, packed)

	case AlgoZstdLogic64:
		packed := make([]byte, logic64PackedSize(len(dst)/4))
		if _, err := zstdDecompress(packed, src); err != nil {
			return 0, err
		}
		return logic64Unpack(dst, packed)
	}

	return 0, fmt.Errorf("%w: id %d", ErrUnknownAlgorithm, uint8(a))
}

func lz4Compress(dst, src []byte, strength int) (int, error) {
	// The high-compression matcher only pays off at the top of the strength
	// range, the fast matcher is used everywhere else.
	if strength >= 50 {
		var c lz4.CompressorHC
		c.Level = lz4.Level9
		n, err := c.CompressBlock(src, dst)
		if err != nil {
			return 0, err
		}
		return n, nil
	}

	var c lz4.Compressor
	n, err := c.CompressBlock(src, dst)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func zstdCompress(dst, src []byte, strength int) (int, error) {
	enc, err := zstdEncoder(strength)
	if err != nil {
		return 0, err
	}

	res := enc.EncodeAll(src, dst[:0])
	if len(res) > len(dst) {
		// Incompressible block, signal the caller to store it raw
		return 0, nil
	}
	if len(res) > 0 && &res[0] != &dst[0] {
		copy(dst, res)
	}
	return len(res), nil
}

func zstdDecompress(dst, src []byte) (int, error) {
	res, err := zstdReader.DecodeAll(src, dst[:0])
	if err != nil {
		return 0, err
	}
	if len(res) != len(dst) {
		return 0, fmt.Errorf("zstd block decompressed to %d bytes, expected %d", len(res), len(dst))
	}
	if len(res) > 0 && &res[0] != &dst[0] {
		copy(dst, res)
	}
	return len(res), nil
}

func zstdBound(srcSize int) int {
	return srcSize + srcSize/128 + 256
}

// zstdLevel maps a 0-100 strength to the native zstd level range (1-22).
func zstdLevel(strength int) int {
	if strength < 0 {
		strength = 0
	}
	if strength > 100 {
		strength = 100
	}

	level := strength * 22 / 100
	if level < 1 {
		level = 1
	}
	return level
}

var (
	zstdReader *zstd.Decoder

	zstdWritersMu sync.Mutex
	zstdWriters   map[zstd.EncoderLevel]*zstd.Encoder
)

func init() {
	var err error
	zstdReader, err = zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}

	zstdWriters = make(map[zstd.EncoderLevel]*zstd.Encoder)
}

// zstdEncoder returns a shared encoder for the given strength. The native
// level range collapses to a handful of encoder speeds, so only a few
// encoders are ever created.
func zstdEncoder(strength int) (*zstd.Encoder, error) {
	level := zstd.EncoderLevelFromZstd(zstdLevel(strength))

	zstdWritersMu.Lock()
	defer zstdWritersMu.Unlock()

	if enc, ok := zstdWriters[level]; ok {
		return enc, nil
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	zstdWriters[level] = enc

	return enc, nil
}
