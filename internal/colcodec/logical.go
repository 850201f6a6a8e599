package colcodec

import (
	"github.com/ZaninAndrea/fstable/internal/blockstream"
	"github.com/ZaninAndrea/fstable/pkg/compression"
)

// WriteLogicalVec writes a tri-state logical column (0, 1 or the NA
// sentinel). Logicals are always reduced to 2 bits per value first; the
// compression level only controls how the packed bytes are compressed on top
// of that.
func WriteLogicalVec(sw *blockstream.StructuredWriter, values []int32, level int) error {
	data := int32Bytes(values)

	switch {
	case level == 0:
		return blockstream.WriteUncompressed(sw, data, 4, BLOCKSIZE_LOGICAL, compression.AlgoLogic64)

	case level <= 50:
		c := compression.CompositeCompressor{
			A:     compression.SingleCompressor{Algo: compression.AlgoLogic64},
			B:     compression.SingleCompressor{Algo: compression.AlgoLZ4Logic64, Strength: 100},
			Ratio: 2 * level,
		}
		return blockstream.WriteCompressed(sw, data, 4, BLOCKSIZE_LOGICAL, c)

	default:
		c := compression.CompositeCompressor{
			A:     compression.SingleCompressor{Algo: compression.AlgoLZ4Logic64, Strength: 100},
			B:     compression.SingleCompressor{Algo: compression.AlgoZstdLogic64, Strength: 30 + 7*(level-50)/5},
			Ratio: 2 * (level - 50),
		}
		return blockstream.WriteCompressed(sw, data, 4, BLOCKSIZE_LOGICAL, c)
	}
}

// ReadLogicalVec decodes the rows [startRow, startRow+length) of a logical
// column starting at blockPos.
func ReadLogicalVec(sr *blockstream.StructuredReader, out []int32, blockPos uint64, startRow, length, totalRows int) error {
	data := make([]byte, length*4)
	if err := blockstream.ReadColumn(sr, data, blockPos, startRow, length, totalRows, 4); err != nil {
		return err
	}

	int32FromBytes(out[:length], data)
	return nil
}
