package fstable

import (
	"fmt"

	"github.com/ZaninAndrea/fstable/internal/blockstream"
	"github.com/ZaninAndrea/fstable/internal/colcodec"
)

// Files written before the file id was introduced use a smaller header:
//
//	- nrOfCols (int16)
//	- keyLength (int16, low 15 bits)
//	- keyLength key column indices (int16 each)
//	- nrOfCols type codes (int16 each, values 1-5)
//	- nrOfCols+1 block positions (uint64 each); position 0 holds the row
//	  count, the rest are absolute column payload offsets
//	- the column names, then the column payloads
//
// These files are read-only: the current writer never produces them and
// support will be dropped in a future release.

const (
	legacyTypeCharacter = 1
	legacyTypeInteger   = 2
	legacyTypeDouble    = 3
	legacyTypeLogical   = 4
	legacyTypeFactor    = 5
)

type legacyHeader struct {
	nrOfCols  int
	keyLength int
	nrOfRows  int
	keyColPos []int
	colTypes  []int
	blockPos  []uint64
	colNames  []string
}

func readLegacyHeader(sr *blockstream.StructuredReader) (*legacyHeader, error) {
	nrOfCols, err := sr.ReadInt16()
	if err != nil {
		return nil, badFormat(err)
	}
	rawKeyLength, err := sr.ReadInt16()
	if err != nil {
		return nil, badFormat(err)
	}
	if nrOfCols < 1 {
		return nil, fmt.Errorf("%w: unrecognised file type", ErrBadFormat)
	}

	header := &legacyHeader{
		nrOfCols:  int(nrOfCols),
		keyLength: int(rawKeyLength & 0x7fff),
	}

	header.keyColPos = make([]int, header.keyLength)
	for i := range header.keyColPos {
		pos, err := sr.ReadInt16()
		if err != nil {
			return nil, badFormat(err)
		}
		if pos < 0 || int(pos) >= header.nrOfCols {
			return nil, fmt.Errorf("%w: key column index out of range", ErrBadFormat)
		}
		header.keyColPos[i] = int(pos)
	}

	header.colTypes = make([]int, header.nrOfCols)
	for i := range header.colTypes {
		colType, err := sr.ReadInt16()
		if err != nil {
			return nil, badFormat(err)
		}
		if colType < legacyTypeCharacter || colType > legacyTypeFactor {
			return nil, fmt.Errorf("%w: unknown column type code %d", ErrBadFormat, colType)
		}
		header.colTypes[i] = int(colType)
	}

	header.blockPos = make([]uint64, header.nrOfCols+1)
	for i := range header.blockPos {
		pos, err := sr.ReadUInt64()
		if err != nil {
			return nil, badFormat(err)
		}
		if i >= 2 && pos < header.blockPos[i-1] {
			return nil, fmt.Errorf("%w: column positions are not monotonic", ErrBadFormat)
		}
		header.blockPos[i] = pos
	}

	header.nrOfRows = int(header.blockPos[0])
	if header.nrOfRows <= 0 {
		return nil, fmt.Errorf("%w: invalid row count", ErrBadFormat)
	}

	namesOffset := uint64(header.nrOfCols+1)*8 + uint64(header.nrOfCols+header.keyLength+2)*2
	header.colNames = make([]string, header.nrOfCols)
	if _, err := colcodec.ReadCharVec(sr, header.colNames, nil, namesOffset, 0, header.nrOfCols, header.nrOfCols); err != nil {
		return nil, badFormat(err)
	}

	return header, nil
}

func (h *legacyHeader) meta() *Meta {
	keyNames := make([]string, len(h.keyColPos))
	for i, pos := range h.keyColPos {
		keyNames[i] = h.colNames[pos]
	}

	colTypes := make([]ColumnType, h.nrOfCols)
	for i, legacyType := range h.colTypes {
		colTypes[i] = legacyColumnType(legacyType)
	}

	return &Meta{
		NrOfCols:    h.nrOfCols,
		NrOfRows:    h.nrOfRows,
		Version:     0,
		NrOfChunks:  1,
		ColumnNames: h.colNames,
		ColumnTypes: colTypes,
		KeyNames:    keyNames,
		KeyColIndex: h.keyColPos,
		Legacy:      true,
	}
}

func legacyColumnType(legacyType int) ColumnType {
	switch legacyType {
	case legacyTypeCharacter:
		return TypeCharacter
	case legacyTypeInteger:
		return TypeInteger
	case legacyTypeDouble:
		return TypeDouble
	case legacyTypeLogical:
		return TypeLogical
	case legacyTypeFactor:
		return TypeFactor
	}
	return 0
}

func readLegacy(sr *blockstream.StructuredReader, columns []string, fromRow, toRow int) (*Result, error) {
	header, err := readLegacyHeader(sr)
	if err != nil {
		return nil, err
	}

	colIndex, err := resolveSelection(header.colNames, columns)
	if err != nil {
		return nil, err
	}

	firstRow, length, err := resolveRowRange(header.nrOfRows, fromRow, toRow)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Columns: make([]Column, len(colIndex)),
		Legacy:  true,
	}
	for i, colNr := range colIndex {
		col, err := readLegacyColumn(sr, header, colNr, firstRow, length)
		if err != nil {
			return nil, err
		}
		result.Columns[i] = col
	}

	countKeys(result, header.keyColPos, header.colNames, colIndex)
	return result, nil
}

func readLegacyColumn(sr *blockstream.StructuredReader, header *legacyHeader, colNr, firstRow, length int) (Column, error) {
	name := header.colNames[colNr]
	pos := header.blockPos[colNr+1]
	totalRows := header.nrOfRows

	var data ColumnData
	var err error

	switch header.colTypes[colNr] {
	case legacyTypeCharacter:
		values := make([]string, length)
		na := make([]bool, length)
		_, err = colcodec.ReadCharVec(sr, values, na, pos, firstRow, length, totalRows)
		data = CharacterData{Values: values, NA: na}

	case legacyTypeInteger:
		values := make([]int32, length)
		err = colcodec.ReadIntVec(sr, values, pos, firstRow, length, totalRows)
		data = IntegerData(values)

	case legacyTypeDouble:
		values := make([]float64, length)
		err = colcodec.ReadDoubleVec(sr, values, pos, firstRow, length, totalRows)
		data = DoubleData(values)

	case legacyTypeLogical:
		values := make([]int32, length)
		err = colcodec.ReadLogicalVec(sr, values, pos, firstRow, length, totalRows)
		data = LogicalData(values)

	case legacyTypeFactor:
		indices := make([]int32, length)
		var factorLevels []string
		factorLevels, err = colcodec.ReadFactorVec(sr, indices, pos, firstRow, length, totalRows)
		data = FactorData{Levels: factorLevels, Indices: indices}
	}

	if err != nil {
		return Column{}, fmt.Errorf("reading column %q: %w", name, badFormat(err))
	}

	return Column{Name: name, Data: data}, nil
}
