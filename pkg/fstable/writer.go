package fstable

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/ZaninAndrea/fstable/internal/blockstream"
	"github.com/ZaninAndrea/fstable/internal/colcodec"
)

// Write stores a table at path. compression is a 0-100 level that every
// column codec maps onto its own mix of block compression algorithms; 0
// stores numeric data uncompressed.
//
// A failed write leaves the file in an unspecified state and the caller
// should delete it.
func Write(path string, t *Table, compression int) (err error) {
	if compression < 0 || compression > 100 {
		return fmt.Errorf("%w: compression should be a value between 0 and 100", ErrBadArgument)
	}
	if len(t.Columns) == 0 {
		return ErrNoColumns
	}

	nrOfRows := t.NrOfRows()
	if nrOfRows == 0 {
		return ErrNoRows
	}
	for _, col := range t.Columns {
		if col.Data.Len() != nrOfRows {
			return fmt.Errorf("%w: column %q has %d rows, expected %d", ErrBadArgument, col.Name, col.Data.Len(), nrOfRows)
		}
	}

	keyColPos, err := resolveKeys(t)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating file: %w", ErrIO, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrIO, closeErr)
		}
	}()

	nrOfCols := len(t.Columns)
	keyLength := len(keyColPos)

	// Fixed header with explicitly positioned fields; the column types and
	// chunk position are filled in during the column loop and the header is
	// rewritten at the end.
	meta := make([]byte, 156+4*keyLength+2*nrOfCols)
	binary.LittleEndian.PutUint32(meta[0:], uint32(nrOfCols))
	binary.LittleEndian.PutUint32(meta[4:], uint32(keyLength))
	binary.LittleEndian.PutUint32(meta[8:], FST_VERSION)
	binary.LittleEndian.PutUint32(meta[12:], 1) // chunks per index row
	binary.LittleEndian.PutUint64(meta[16:], FST_FILE_ID)
	binary.LittleEndian.PutUint64(meta[88:], uint64(nrOfRows)) // chunkRows[0]
	binary.LittleEndian.PutUint32(meta[152:], 1)               // nrOfChunks
	for i, pos := range keyColPos {
		binary.LittleEndian.PutUint32(meta[156+4*i:], uint32(pos))
	}
	colTypes := meta[156+4*keyLength:]

	sw := blockstream.NewStructuredWriter(file)
	if _, err := sw.Write(meta); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	names := make([]string, nrOfCols)
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	if err := colcodec.WriteCharVec(sw, names, nil, 0); err != nil {
		return fmt.Errorf("%w: writing column names: %w", ErrIO, err)
	}

	// reserve the column-position index
	chunkPos := sw.Offset()
	positions := make([]uint64, nrOfCols)
	if _, err := sw.Write(make([]byte, 8*nrOfCols)); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	for i, col := range t.Columns {
		positions[i] = sw.Offset()
		binary.LittleEndian.PutUint16(colTypes[2*i:], uint16(col.Data.Type()))

		var colErr error
		switch data := col.Data.(type) {
		case CharacterData:
			colErr = colcodec.WriteCharVec(sw, data.Values, data.NA, compression)
		case FactorData:
			colErr = colcodec.WriteFactorVec(sw, data.Levels, data.Indices, compression)
		case IntegerData:
			colErr = colcodec.WriteIntVec(sw, data, compression)
		case DoubleData:
			colErr = colcodec.WriteDoubleVec(sw, data, compression)
		case LogicalData:
			colErr = colcodec.WriteLogicalVec(sw, data, compression)
		default:
			return fmt.Errorf("%w: unknown type in column %q", ErrBadArgument, col.Name)
		}
		if colErr != nil {
			return fmt.Errorf("%w: writing column %q: %w", ErrIO, col.Name, colErr)
		}
	}

	// backfill the header and the column-position index
	binary.LittleEndian.PutUint64(meta[24:], chunkPos) // chunkPos[0]

	if err := sw.Seek(0); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if _, err := sw.Write(meta); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	if err := sw.Seek(chunkPos); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	for _, pos := range positions {
		if err := sw.WriteUInt64(pos); err != nil {
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
	}

	return nil
}

func resolveKeys(t *Table) ([]int, error) {
	keyColPos := make([]int, 0, len(t.Keys))

	for _, key := range t.Keys {
		index := -1
		for i, col := range t.Columns {
			if col.Name == key {
				index = i
				break
			}
		}
		if index == -1 {
			return nil, fmt.Errorf("%w: key column %q does not exist", ErrBadArgument, key)
		}

		for _, seen := range keyColPos {
			if seen == index {
				return nil, fmt.Errorf("%w: duplicate key column %q", ErrBadArgument, key)
			}
		}
		keyColPos = append(keyColPos, index)
	}

	return keyColPos, nil
}
