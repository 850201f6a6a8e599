package colcodec

import (
	"github.com/ZaninAndrea/fstable/internal/blockstream"
	"github.com/ZaninAndrea/fstable/pkg/compression"
)

// WriteIntVec writes a 32-bit integer column. The low half of the level range
// mixes LZ4-compressed shuffled blocks into an uncompressed stream, the high
// half mixes zstd-compressed shuffled blocks, at increasing strength, into an
// LZ4-compressed stream.
func WriteIntVec(sw *blockstream.StructuredWriter, values []int32, level int) error {
	data := int32Bytes(values)

	switch {
	case level == 0:
		return blockstream.WriteUncompressed(sw, data, 4, BLOCKSIZE_INT, compression.AlgoNone)

	case level <= 50:
		c := compression.CompositeCompressor{
			A:     compression.SingleCompressor{Algo: compression.AlgoNone},
			B:     compression.SingleCompressor{Algo: compression.AlgoLZ4Shuf4, Strength: 0},
			Ratio: 2 * level,
		}
		return blockstream.WriteCompressed(sw, data, 4, BLOCKSIZE_INT, c)

	default:
		c := compression.CompositeCompressor{
			A:     compression.SingleCompressor{Algo: compression.AlgoLZ4Shuf4, Strength: 0},
			B:     compression.SingleCompressor{Algo: compression.AlgoZstdShuf4, Strength: 22 + 8*(level-50)/5},
			Ratio: 2 * (level - 50),
		}
		return blockstream.WriteCompressed(sw, data, 4, BLOCKSIZE_INT, c)
	}
}

// ReadIntVec decodes the rows [startRow, startRow+length) of an integer
// column starting at blockPos.
func ReadIntVec(sr *blockstream.StructuredReader, out []int32, blockPos uint64, startRow, length, totalRows int) error {
	data := make([]byte, length*4)
	if err := blockstream.ReadColumn(sr, data, blockPos, startRow, length, totalRows, 4); err != nil {
		return err
	}

	int32FromBytes(out[:length], data)
	return nil
}
