package colcodec

import (
	"github.com/ZaninAndrea/fstable/internal/blockstream"
)

// Factor columns are stored as two columns back to back: a text column with
// the level strings and an integer column with 1-based level indices (the
// integer NA sentinel marks a missing value). An 8-byte header carries the
// level count, which the row count says nothing about.

// WriteFactorVec writes the levels and indices of a factor column.
func WriteFactorVec(sw *blockstream.StructuredWriter, levels []string, indices []int32, level int) error {
	if err := sw.WriteUInt32(uint32(len(levels))); err != nil {
		return err
	}
	if err := sw.WriteUInt32(0); err != nil {
		return err
	}

	if err := WriteCharVec(sw, levels, nil, level); err != nil {
		return err
	}

	return WriteIntVec(sw, indices, level)
}

// ReadFactorVec decodes the level strings (always in full) and the requested
// row range of the index column.
func ReadFactorVec(sr *blockstream.StructuredReader, out []int32, blockPos uint64, startRow, length, totalRows int) ([]string, error) {
	if err := sr.Seek(blockPos); err != nil {
		return nil, err
	}

	nrOfLevels, err := sr.ReadUInt32()
	if err != nil {
		return nil, err
	}
	if _, err := sr.ReadUInt32(); err != nil { // flags
		return nil, err
	}

	levels := make([]string, nrOfLevels)
	levelsSize, err := ReadCharVec(sr, levels, nil, blockPos+8, 0, int(nrOfLevels), int(nrOfLevels))
	if err != nil {
		return nil, err
	}

	indexPos := blockPos + 8 + levelsSize
	if err := ReadIntVec(sr, out, indexPos, startRow, length, totalRows); err != nil {
		return nil, err
	}

	return levels, nil
}

// FactorVecStats merges the block layouts of the two payloads of a factor
// column without decompressing any data.
func FactorVecStats(sr *blockstream.StructuredReader, blockPos uint64, totalRows int) (*blockstream.BlockStats, error) {
	if err := sr.Seek(blockPos); err != nil {
		return nil, err
	}

	nrOfLevels, err := sr.ReadUInt32()
	if err != nil {
		return nil, err
	}
	if _, err := sr.ReadUInt32(); err != nil { // flags
		return nil, err
	}

	levelStats, levelsSize, err := CharVecStats(sr, blockPos+8, int(nrOfLevels))
	if err != nil {
		return nil, err
	}

	stats, err := blockstream.ReadStats(sr, blockPos+8+levelsSize, totalRows, 4)
	if err != nil {
		return nil, err
	}
	stats.Merge(levelStats)

	return stats, nil
}
