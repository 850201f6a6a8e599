package blockstream

import (
	"fmt"

	"github.com/ZaninAndrea/fstable/pkg/compression"
)

// BlockStats summarizes the physical layout of a column payload: how many
// compression blocks it holds and which algorithm produced each of them.
type BlockStats struct {
	NrOfBlocks int
	BlockSize  int
	AlgoBlocks map[compression.Algo]int
}

// Merge folds another payload's counts into s; used by codecs stored as
// multiple payloads back to back.
func (s *BlockStats) Merge(other *BlockStats) {
	s.NrOfBlocks += other.NrOfBlocks
	for algo, count := range other.AlgoBlocks {
		s.AlgoBlocks[algo] += count
	}
}

// ReadStats inspects a column payload's vertical header and block-position
// index without decompressing any data.
func ReadStats(sr *StructuredReader, blockPos uint64, totalRows, elemSize int) (*BlockStats, error) {
	if err := sr.Seek(blockPos); err != nil {
		return nil, err
	}

	n, blockElems, algo, flags, err := readVerticalHeader(sr)
	if err != nil {
		return nil, err
	}
	if n != totalRows {
		return nil, fmt.Errorf("%w: column holds %d elements, table has %d rows", ErrCorrupt, n, totalRows)
	}
	if blockElems <= 0 {
		return nil, fmt.Errorf("%w: invalid block size %d", ErrCorrupt, blockElems)
	}

	nrOfBlocks := (totalRows + blockElems - 1) / blockElems
	stats := &BlockStats{
		NrOfBlocks: nrOfBlocks,
		BlockSize:  blockElems,
		AlgoBlocks: make(map[compression.Algo]int),
	}

	if flags&flagIndexed == 0 {
		if !algo.Valid() {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, compression.ErrUnknownAlgorithm)
		}
		stats.AlgoBlocks[algo] = nrOfBlocks
		return stats, nil
	}

	index, err := readBlockIndex(sr, nrOfBlocks)
	if err != nil {
		return nil, err
	}
	for k := 0; k < nrOfBlocks; k++ {
		blockAlgo := compression.Algo(index[k+1] >> 56)
		if !blockAlgo.Valid() {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, compression.ErrUnknownAlgorithm)
		}
		stats.AlgoBlocks[blockAlgo]++
	}

	return stats, nil
}
