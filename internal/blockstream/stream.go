package blockstream

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ZaninAndrea/fstable/pkg/compression"
)

// A column payload starts with an 8-byte vertical header:
//
//	- element count (uint32)
//	- block size in elements (uint16)
//	- algorithm id (uint8), only meaningful for index-free layouts
//	- flags (uint8), bit 0 set when a block-position index follows
//
// Index-free layouts (raw bytes or a fixed-ratio algorithm such as logic64)
// are followed directly by the blocks: every block's size is derivable from
// the block size, so random access needs no bookkeeping.
//
// Indexed layouts store nrOfBlocks+1 index entries of 8 bytes before the
// blocks. The low 56 bits of an entry hold a cumulative byte offset measured
// from the start of the index; the high 8 bits hold an algorithm id. Entry 0
// is a header entry (algorithm none, offset = size of the index, which is
// where block 0 begins) and entry k+1 holds block k's algorithm and end
// offset. Block k therefore occupies [entry[k].offset, entry[k+1].offset).

const (
	VERTICAL_HEADER_SIZE = 8
	flagIndexed          = 1

	offsetMask = (1 << 56) - 1
)

var ErrCorrupt = errors.New("corrupt column data")

// WriteUncompressed emits an index-free column: the vertical header followed
// by raw blocks, or by fixed-ratio compressed blocks when algo has a size
// that is a pure function of the input size (logic64).
func WriteUncompressed(sw *StructuredWriter, data []byte, elemSize, blockElems int, algo compression.Algo) error {
	n := len(data) / elemSize
	if err := writeVerticalHeader(sw, n, blockElems, algo, 0); err != nil {
		return err
	}

	if algo == compression.AlgoNone {
		_, err := sw.Write(data)
		return err
	}

	blockBytes := blockElems * elemSize
	scratch := make([]byte, compression.MaxCompressedSize(algo, blockBytes))

	for start := 0; start < len(data); start += blockBytes {
		end := start + blockBytes
		if end > len(data) {
			end = len(data)
		}

		m, err := compression.Compress(algo, scratch, data[start:end], 0)
		if err != nil {
			return err
		}
		if _, err := sw.Write(scratch[:m]); err != nil {
			return err
		}
	}

	return nil
}

// WriteCompressed emits an indexed column: the vertical header, a
// block-position index (written first as placeholder zeros and backfilled
// once all compressed sizes are known) and the compressed blocks.
func WriteCompressed(sw *StructuredWriter, data []byte, elemSize, blockElems int, c compression.BlockCompressor) error {
	n := len(data) / elemSize
	nrOfBlocks := (n + blockElems - 1) / blockElems

	if err := writeVerticalHeader(sw, n, blockElems, compression.AlgoNone, flagIndexed); err != nil {
		return err
	}

	indexPos := sw.Offset()
	index := make([]uint64, nrOfBlocks+1)
	indexBytes := uint64(8 * (nrOfBlocks + 1))
	index[0] = indexBytes // header entry, algorithm none

	if _, err := sw.Write(make([]byte, indexBytes)); err != nil {
		return err
	}

	blockBytes := blockElems * elemSize
	scratch := make([]byte, c.MaxSize(blockBytes))

	cumulative := indexBytes
	for k := 0; k < nrOfBlocks; k++ {
		start := k * blockBytes
		end := start + blockBytes
		if end > len(data) {
			end = len(data)
		}

		m, algo, err := c.CompressBlock(k, scratch, data[start:end])
		if err != nil {
			return err
		}
		if _, err := sw.Write(scratch[:m]); err != nil {
			return err
		}

		cumulative += uint64(m)
		index[k+1] = uint64(algo)<<56 | cumulative
	}

	endPos := sw.Offset()
	if err := sw.Seek(indexPos); err != nil {
		return err
	}
	for _, entry := range index {
		if err := sw.WriteUInt64(entry); err != nil {
			return err
		}
	}

	return sw.Seek(endPos)
}

func writeVerticalHeader(sw *StructuredWriter, n, blockElems int, algo compression.Algo, flags uint8) error {
	if err := sw.WriteUInt32(uint32(n)); err != nil {
		return err
	}
	if err := sw.WriteUInt16(uint16(blockElems)); err != nil {
		return err
	}
	_, err := sw.Write([]byte{uint8(algo), flags})
	return err
}

// ReadColumn decodes the rows [startRow, startRow+length) of a column whose
// payload starts at blockPos, writing elemSize bytes per row into out. Only
// the blocks intersecting the requested range are read and decompressed.
func ReadColumn(sr *StructuredReader, out []byte, blockPos uint64, startRow, length, totalRows, elemSize int) error {
	if err := sr.Seek(blockPos); err != nil {
		return err
	}

	n, blockElems, algo, flags, err := readVerticalHeader(sr)
	if err != nil {
		return err
	}
	if n != totalRows {
		return fmt.Errorf("%w: column holds %d elements, table has %d rows", ErrCorrupt, n, totalRows)
	}
	if blockElems <= 0 {
		return fmt.Errorf("%w: invalid block size %d", ErrCorrupt, blockElems)
	}
	if length == 0 {
		return nil
	}

	if flags&flagIndexed == 0 {
		if algo == compression.AlgoNone {
			return readRaw(sr, out, blockPos, startRow, length, elemSize)
		}
		return readFixedRatio(sr, out, blockPos, startRow, length, totalRows, blockElems, elemSize, algo)
	}

	return readIndexed(sr, out, blockPos, startRow, length, totalRows, blockElems, elemSize)
}

func readVerticalHeader(sr *StructuredReader) (n, blockElems int, algo compression.Algo, flags uint8, err error) {
	var buf [VERTICAL_HEADER_SIZE]byte
	if _, err = sr.Read(buf[:]); err != nil {
		return
	}

	n = int(uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24)
	blockElems = int(uint16(buf[4]) | uint16(buf[5])<<8)
	algo = compression.Algo(buf[6])
	flags = buf[7]
	return
}

// readRaw copies the requested byte range out of an uncompressed column.
func readRaw(sr *StructuredReader, out []byte, blockPos uint64, startRow, length, elemSize int) error {
	start := blockPos + VERTICAL_HEADER_SIZE + uint64(startRow*elemSize)
	if err := sr.Seek(start); err != nil {
		return err
	}
	_, err := sr.Read(out[:length*elemSize])
	return err
}

// readFixedRatio decodes blocks compressed with a fixed-ratio algorithm.
// Every full block compresses to the same size, so block offsets are
// computed arithmetically.
func readFixedRatio(sr *StructuredReader, out []byte, blockPos uint64, startRow, length, totalRows, blockElems, elemSize int, algo compression.Algo) error {
	blockBytes := blockElems * elemSize
	packedBytes := compression.MaxCompressedSize(algo, blockBytes)

	firstBlock := startRow / blockElems
	lastBlock := (startRow + length - 1) / blockElems

	packed := make([]byte, packedBytes)
	blockOut := make([]byte, blockBytes)

	dataStart := blockPos + VERTICAL_HEADER_SIZE
	for k := firstBlock; k <= lastBlock; k++ {
		blockStart := k * blockElems
		blockEnd := blockStart + blockElems
		if blockEnd > totalRows {
			blockEnd = totalRows
		}

		srcBytes := compression.MaxCompressedSize(algo, (blockEnd-blockStart)*elemSize)
		if err := sr.Seek(dataStart + uint64(k*packedBytes)); err != nil {
			return err
		}
		if _, err := sr.Read(packed[:srcBytes]); err != nil {
			return err
		}

		dst := blockOut[:(blockEnd-blockStart)*elemSize]
		if _, err := compression.Decompress(algo, dst, packed[:srcBytes]); err != nil {
			return err
		}

		copyBlockRange(out, dst, blockStart, startRow, length, elemSize)
	}

	return nil
}

// readBlockIndex reads and validates the block-position index of an indexed
// column. The stream must be positioned right after the vertical header.
func readBlockIndex(sr *StructuredReader, nrOfBlocks int) ([]uint64, error) {
	index := make([]uint64, nrOfBlocks+1)
	indexBuf := make([]byte, 8*(nrOfBlocks+1))
	if _, err := sr.Read(indexBuf); err != nil {
		return nil, err
	}
	for i := range index {
		index[i] = binary.LittleEndian.Uint64(indexBuf[i*8:])
	}

	for i := 1; i <= nrOfBlocks; i++ {
		if index[i]&offsetMask < index[i-1]&offsetMask {
			return nil, fmt.Errorf("%w: block positions are not monotonic", ErrCorrupt)
		}
	}

	return index, nil
}

func readIndexed(sr *StructuredReader, out []byte, blockPos uint64, startRow, length, totalRows, blockElems, elemSize int) error {
	nrOfBlocks := (totalRows + blockElems - 1) / blockElems

	index, err := readBlockIndex(sr, nrOfBlocks)
	if err != nil {
		return err
	}

	firstBlock := startRow / blockElems
	lastBlock := (startRow + length - 1) / blockElems

	blockBytes := blockElems * elemSize
	blockOut := make([]byte, blockBytes)

	var src []byte
	for k := firstBlock; k <= lastBlock; k++ {
		blockStart := k * blockElems
		blockEnd := blockStart + blockElems
		if blockEnd > totalRows {
			blockEnd = totalRows
		}

		offset := index[k] & offsetMask
		end := index[k+1] & offsetMask
		algo := compression.Algo(index[k+1] >> 56)
		if !algo.Valid() {
			return fmt.Errorf("%w: %v", ErrCorrupt, compression.ErrUnknownAlgorithm)
		}

		compressedSize := int(end - offset)
		if cap(src) < compressedSize {
			src = make([]byte, compressedSize)
		}
		src = src[:compressedSize]

		if err := sr.Seek(blockPos + VERTICAL_HEADER_SIZE + offset); err != nil {
			return err
		}
		if _, err := sr.Read(src); err != nil {
			return err
		}

		dst := blockOut[:(blockEnd-blockStart)*elemSize]
		if _, err := compression.Decompress(algo, dst, src); err != nil {
			return err
		}

		copyBlockRange(out, dst, blockStart, startRow, length, elemSize)
	}

	return nil
}

// copyBlockRange copies the rows of a decoded block that intersect the
// requested range [startRow, startRow+length) into the output buffer.
func copyBlockRange(out, block []byte, blockStart, startRow, length, elemSize int) {
	blockRows := len(block) / elemSize

	from := startRow - blockStart
	if from < 0 {
		from = 0
	}
	to := startRow + length - blockStart
	if to > blockRows {
		to = blockRows
	}

	outPos := (blockStart + from - startRow) * elemSize
	copy(out[outPos:], block[from*elemSize:to*elemSize])
}
