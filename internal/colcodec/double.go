package colcodec

import (
	"github.com/ZaninAndrea/fstable/internal/blockstream"
	"github.com/ZaninAndrea/fstable/pkg/compression"
)

// WriteDoubleVec writes a 64-bit float column. Doubles respond poorly to LZ4,
// so both halves of the level range use zstd on byte-shuffled blocks, the
// upper half at growing strength.
func WriteDoubleVec(sw *blockstream.StructuredWriter, values []float64, level int) error {
	data := float64Bytes(values)

	switch {
	case level == 0:
		return blockstream.WriteUncompressed(sw, data, 8, BLOCKSIZE_DOUBLE, compression.AlgoNone)

	case level <= 50:
		c := compression.CompositeCompressor{
			A:     compression.SingleCompressor{Algo: compression.AlgoNone},
			B:     compression.SingleCompressor{Algo: compression.AlgoZstdShuf8, Strength: level / 5},
			Ratio: 2 * level,
		}
		return blockstream.WriteCompressed(sw, data, 8, BLOCKSIZE_DOUBLE, c)

	default:
		c := compression.CompositeCompressor{
			A:     compression.SingleCompressor{Algo: compression.AlgoZstdShuf8, Strength: 10},
			B:     compression.SingleCompressor{Algo: compression.AlgoZstdShuf8, Strength: 30 + 7*(level-50)/5},
			Ratio: 2 * (level - 50),
		}
		return blockstream.WriteCompressed(sw, data, 8, BLOCKSIZE_DOUBLE, c)
	}
}

// ReadDoubleVec decodes the rows [startRow, startRow+length) of a double
// column starting at blockPos. NA doubles are a reserved NaN payload and pass
// through bit-exactly.
func ReadDoubleVec(sr *blockstream.StructuredReader, out []float64, blockPos uint64, startRow, length, totalRows int) error {
	data := make([]byte, length*8)
	if err := blockstream.ReadColumn(sr, data, blockPos, startRow, length, totalRows, 8); err != nil {
		return err
	}

	float64FromBytes(out[:length], data)
	return nil
}
