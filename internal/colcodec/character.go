package colcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/ZaninAndrea/fstable/internal/blockstream"
	"github.com/ZaninAndrea/fstable/pkg/compression"
)

// Text columns own their layout because strings are variable length:
//
//	- 8-byte column header: strings per block (uint32), algorithm hint
//	  (uint16) and flags (uint16)
//	- one 16-byte index entry per block: a uint64 whose high 8 bits hold the
//	  block's algorithm and whose low 56 bits hold the cumulative end offset
//	  of the block's data (measured from the end of the index), a uint32
//	  compressed length-index size and a uint32 compressed character size
//	- per block: the compressed length index, then the compressed characters
//
// The uncompressed length index holds one uint32 per string with the
// cumulative end offset of that string inside the block; the high bit marks
// NA, which keeps a missing string distinct from an empty one. Both parts of
// a block are compressed independently with the same algorithm.

const (
	charHeaderSize     = 8
	charIndexEntrySize = 16

	naFlag     = 1 << 31
	offsetMask = 1<<56 - 1
)

func charAlgo(level int) (compression.Algo, int) {
	switch {
	case level == 0:
		return compression.AlgoNone, 0
	case level <= 50:
		return compression.AlgoLZ4, 0
	default:
		return compression.AlgoZstd, level
	}
}

// WriteCharVec writes a text column. na marks missing strings and may be nil
// when the column cannot contain missing values (column names, factor
// levels).
func WriteCharVec(sw *blockstream.StructuredWriter, values []string, na []bool, level int) error {
	algo, strength := charAlgo(level)
	nrOfBlocks := (len(values) + BLOCKSIZE_CHAR - 1) / BLOCKSIZE_CHAR

	if err := sw.WriteUInt32(BLOCKSIZE_CHAR); err != nil {
		return err
	}
	if err := sw.WriteUInt16(uint16(algo)); err != nil {
		return err
	}
	if err := sw.WriteUInt16(0); err != nil {
		return err
	}

	indexPos := sw.Offset()
	if _, err := sw.Write(make([]byte, nrOfBlocks*charIndexEntrySize)); err != nil {
		return err
	}

	index := make([]byte, nrOfBlocks*charIndexEntrySize)
	chars := make([]byte, 0, CHAR_STACK_SIZE)

	var cumulative uint64
	for b := 0; b < nrOfBlocks; b++ {
		from := b * BLOCKSIZE_CHAR
		to := from + BLOCKSIZE_CHAR
		if to > len(values) {
			to = len(values)
		}
		count := to - from

		meta := make([]byte, count*4)
		chars = chars[:0]
		for i := from; i < to; i++ {
			end := uint32(len(chars))
			if na != nil && na[i] {
				end |= naFlag
			} else {
				chars = append(chars, values[i]...)
				end = uint32(len(chars))
			}
			binary.LittleEndian.PutUint32(meta[(i-from)*4:], end)
		}

		blockAlgo, metaOut, charsOut, err := compressCharBlock(algo, strength, meta, chars)
		if err != nil {
			return err
		}

		if _, err := sw.Write(metaOut); err != nil {
			return err
		}
		if _, err := sw.Write(charsOut); err != nil {
			return err
		}

		cumulative += uint64(len(metaOut) + len(charsOut))
		entry := index[b*charIndexEntrySize:]
		binary.LittleEndian.PutUint64(entry, uint64(blockAlgo)<<56|cumulative)
		binary.LittleEndian.PutUint32(entry[8:], uint32(len(metaOut)))
		binary.LittleEndian.PutUint32(entry[12:], uint32(len(charsOut)))
	}

	endPos := sw.Offset()
	if err := sw.Seek(indexPos); err != nil {
		return err
	}
	if _, err := sw.Write(index); err != nil {
		return err
	}

	return sw.Seek(endPos)
}

// compressCharBlock compresses both parts of a text block, falling back to
// raw storage when compression does not shrink the block.
func compressCharBlock(algo compression.Algo, strength int, meta, chars []byte) (compression.Algo, []byte, []byte, error) {
	if algo == compression.AlgoNone {
		return compression.AlgoNone, meta, chars, nil
	}

	metaDst := make([]byte, compression.MaxCompressedSize(algo, len(meta)))
	mn, err := compression.Compress(algo, metaDst, meta, strength)
	if err != nil {
		return 0, nil, nil, err
	}

	cn := 0
	charsDst := []byte{}
	if len(chars) > 0 {
		charsDst = make([]byte, compression.MaxCompressedSize(algo, len(chars)))
		cn, err = compression.Compress(algo, charsDst, chars, strength)
		if err != nil {
			return 0, nil, nil, err
		}
		if cn == 0 {
			// incompressible character data, store the whole block raw
			return compression.AlgoNone, meta, chars, nil
		}
	}

	if mn == 0 || mn+cn >= len(meta)+len(chars) {
		return compression.AlgoNone, meta, chars, nil
	}

	return algo, metaDst[:mn], charsDst[:cn], nil
}

// ReadCharVec decodes the rows [startRow, startRow+length) of a text column
// starting at blockPos. It returns the total byte size of the column payload
// so composite codecs can locate data written after it. naOut may be nil when
// the caller does not track missing values.
func ReadCharVec(sr *blockstream.StructuredReader, out []string, naOut []bool, blockPos uint64, startRow, length, totalRows int) (uint64, error) {
	bs, index, err := readCharHeader(sr, blockPos, totalRows)
	if err != nil {
		return 0, err
	}
	nrOfBlocks := (totalRows + bs - 1) / bs

	cumEnd := func(b int) uint64 {
		if b < 0 {
			return 0
		}
		return binary.LittleEndian.Uint64(index[b*charIndexEntrySize:]) & offsetMask
	}

	var size uint64 = charHeaderSize + uint64(nrOfBlocks*charIndexEntrySize)
	if nrOfBlocks > 0 {
		size += cumEnd(nrOfBlocks - 1)
	}

	if length == 0 {
		return size, nil
	}

	dataStart := blockPos + charHeaderSize + uint64(nrOfBlocks*charIndexEntrySize)

	firstBlock := startRow / bs
	lastBlock := (startRow + length - 1) / bs

	for b := firstBlock; b <= lastBlock; b++ {
		entry := index[b*charIndexEntrySize:]
		algo := compression.Algo(binary.LittleEndian.Uint64(entry) >> 56)
		metaSize := int(binary.LittleEndian.Uint32(entry[8:]))
		charSize := int(binary.LittleEndian.Uint32(entry[12:]))

		if cumEnd(b) < cumEnd(b-1) {
			return 0, fmt.Errorf("%w: text block positions are not monotonic", blockstream.ErrCorrupt)
		}
		if !algo.Valid() {
			return 0, fmt.Errorf("%w: %v", blockstream.ErrCorrupt, compression.ErrUnknownAlgorithm)
		}

		from := b * bs
		to := from + bs
		if to > totalRows {
			to = totalRows
		}
		count := to - from

		if err := sr.Seek(dataStart + cumEnd(b-1)); err != nil {
			return 0, err
		}

		compressed := make([]byte, metaSize+charSize)
		if _, err := sr.Read(compressed); err != nil {
			return 0, err
		}

		meta := make([]byte, count*4)
		if _, err := compression.Decompress(algo, meta, compressed[:metaSize]); err != nil {
			return 0, err
		}

		charBytes := int(binary.LittleEndian.Uint32(meta[(count-1)*4:]) &^ uint32(naFlag))
		chars := make([]byte, charBytes)
		if charBytes > 0 || charSize > 0 {
			if _, err := compression.Decompress(algo, chars, compressed[metaSize:]); err != nil {
				return 0, err
			}
		}

		// copy the rows of this block that intersect the requested range
		skip := startRow - from
		if skip < 0 {
			skip = 0
		}
		upto := startRow + length - from
		if upto > count {
			upto = count
		}

		prevEnd := 0
		if skip > 0 {
			prevEnd = int(binary.LittleEndian.Uint32(meta[(skip-1)*4:]) &^ uint32(naFlag))
		}
		for i := skip; i < upto; i++ {
			raw := binary.LittleEndian.Uint32(meta[i*4:])
			end := int(raw &^ uint32(naFlag))
			if end < prevEnd || end > charBytes {
				return 0, fmt.Errorf("%w: text offsets are not monotonic", blockstream.ErrCorrupt)
			}

			outPos := from + i - startRow
			out[outPos] = string(chars[prevEnd:end])
			if naOut != nil {
				naOut[outPos] = raw&naFlag != 0
			}
			prevEnd = end
		}
	}

	return size, nil
}

// readCharHeader reads the column header and block index of a text column
// starting at blockPos, returning the strings-per-block count and the raw
// index entries.
func readCharHeader(sr *blockstream.StructuredReader, blockPos uint64, totalRows int) (int, []byte, error) {
	if err := sr.Seek(blockPos); err != nil {
		return 0, nil, err
	}

	blockSize, err := sr.ReadUInt32()
	if err != nil {
		return 0, nil, err
	}
	if _, err := sr.ReadUInt16(); err != nil { // algorithm hint
		return 0, nil, err
	}
	if _, err := sr.ReadUInt16(); err != nil { // flags
		return 0, nil, err
	}
	if blockSize == 0 {
		return 0, nil, fmt.Errorf("%w: text block size is zero", blockstream.ErrCorrupt)
	}

	bs := int(blockSize)
	nrOfBlocks := (totalRows + bs - 1) / bs

	index := make([]byte, nrOfBlocks*charIndexEntrySize)
	if nrOfBlocks > 0 {
		if _, err := sr.Read(index); err != nil {
			return 0, nil, err
		}
	}

	return bs, index, nil
}

// CharVecStats inspects the block layout of a text column without
// decompressing any data. It also returns the total payload size so
// composite codecs can locate data written after it.
func CharVecStats(sr *blockstream.StructuredReader, blockPos uint64, totalRows int) (*blockstream.BlockStats, uint64, error) {
	bs, index, err := readCharHeader(sr, blockPos, totalRows)
	if err != nil {
		return nil, 0, err
	}
	nrOfBlocks := (totalRows + bs - 1) / bs

	stats := &blockstream.BlockStats{
		NrOfBlocks: nrOfBlocks,
		BlockSize:  bs,
		AlgoBlocks: make(map[compression.Algo]int),
	}

	var prevEnd uint64
	for b := 0; b < nrOfBlocks; b++ {
		entry := binary.LittleEndian.Uint64(index[b*charIndexEntrySize:])
		algo := compression.Algo(entry >> 56)
		if !algo.Valid() {
			return nil, 0, fmt.Errorf("%w: %v", blockstream.ErrCorrupt, compression.ErrUnknownAlgorithm)
		}
		if entry&offsetMask < prevEnd {
			return nil, 0, fmt.Errorf("%w: text block positions are not monotonic", blockstream.ErrCorrupt)
		}
		prevEnd = entry & offsetMask
		stats.AlgoBlocks[algo]++
	}

	size := uint64(charHeaderSize + nrOfBlocks*charIndexEntrySize)
	size += prevEnd
	return stats, size, nil
}
