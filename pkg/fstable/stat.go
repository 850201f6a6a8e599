package fstable

import (
	"fmt"
	"os"

	"github.com/ZaninAndrea/fstable/internal/blockstream"
	"github.com/ZaninAndrea/fstable/internal/colcodec"
	"github.com/ZaninAndrea/fstable/pkg/compression"
)

// ColumnStat reports how a stored column is laid out on disk: the number of
// compression blocks and the registry algorithm id that produced each of
// them. Factor columns count the blocks of both their payloads.
type ColumnStat struct {
	Name       string
	Type       ColumnType
	NrOfBlocks int
	AlgoBlocks map[compression.Algo]int
}

// Stat inspects the block layout of every column without decompressing any
// data: only the headers, the column-position index and the per-column block
// indices are read.
func Stat(path string) ([]ColumnStat, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening file: %w", ErrIO, err)
	}
	defer file.Close()

	sr := blockstream.NewStructuredReader(file)

	header, legacy, err := readTableHeader(sr)
	if err != nil {
		return nil, err
	}

	var (
		colNames  []string
		colTypes  []ColumnType
		positions []uint64
		nrOfRows  int
	)
	if legacy {
		lh, err := readLegacyHeader(sr)
		if err != nil {
			return nil, err
		}
		colNames = lh.colNames
		colTypes = make([]ColumnType, lh.nrOfCols)
		for i, legacyType := range lh.colTypes {
			colTypes[i] = legacyColumnType(legacyType)
		}
		positions = lh.blockPos[1:]
		nrOfRows = lh.nrOfRows
	} else {
		if header.nrOfChunks > 1 {
			return nil, ErrMultiChunk
		}
		colNames = header.colNames
		colTypes = header.colTypes
		nrOfRows = header.nrOfRows

		positions, err = readColumnPositions(sr, header.chunkPos, header.nrOfCols)
		if err != nil {
			return nil, err
		}
	}

	stats := make([]ColumnStat, len(colNames))
	for i, name := range colNames {
		var blockStats *blockstream.BlockStats
		var err error

		switch colTypes[i] {
		case TypeCharacter:
			blockStats, _, err = colcodec.CharVecStats(sr, positions[i], nrOfRows)
		case TypeFactor:
			blockStats, err = colcodec.FactorVecStats(sr, positions[i], nrOfRows)
		case TypeInteger, TypeLogical:
			blockStats, err = blockstream.ReadStats(sr, positions[i], nrOfRows, 4)
		case TypeDouble:
			blockStats, err = blockstream.ReadStats(sr, positions[i], nrOfRows, 8)
		default:
			return nil, fmt.Errorf("%w: unknown type in column %q", ErrBadFormat, name)
		}
		if err != nil {
			return nil, fmt.Errorf("inspecting column %q: %w", name, badFormat(err))
		}

		stats[i] = ColumnStat{
			Name:       name,
			Type:       colTypes[i],
			NrOfBlocks: blockStats.NrOfBlocks,
			AlgoBlocks: blockStats.AlgoBlocks,
		}
	}

	return stats, nil
}
