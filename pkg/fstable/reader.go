package fstable

import (
	"errors"
	"fmt"
	"os"

	"github.com/ZaninAndrea/fstable/internal/blockstream"
	"github.com/ZaninAndrea/fstable/internal/colcodec"
)

type tableHeader struct {
	nrOfCols    int
	keyLength   int
	version     uint32
	chunksPerIx uint32

	nrOfRows   int
	nrOfChunks uint32
	chunkPos   uint64
	keyColPos  []int
	colTypes   []ColumnType
	colNames   []string
}

// ReadMeta returns the schema of a stored table without reading any column
// data.
func ReadMeta(path string) (*Meta, error) {
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
	if legacy {
		lh, err := readLegacyHeader(sr)
		if err != nil {
			return nil, err
		}
		return lh.meta(), nil
	}

	return header.meta(), nil
}

// Read restores a stored table, optionally projected onto a column selection
// and a row range. columns nil selects every column. fromRow is 1-based;
// toRow is inclusive, with any value < 1 meaning the end of the table.
func Read(path string, columns []string, fromRow, toRow int) (*Result, error) {
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
	if legacy {
		return readLegacy(sr, columns, fromRow, toRow)
	}

	if header.nrOfChunks > 1 {
		return nil, ErrMultiChunk
	}

	positions, err := readColumnPositions(sr, header.chunkPos, header.nrOfCols)
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

	result := &Result{Columns: make([]Column, len(colIndex))}
	for i, colNr := range colIndex {
		col, err := readColumn(sr, header, positions[colNr], colNr, firstRow, length)
		if err != nil {
			return nil, err
		}
		result.Columns[i] = col
	}

	countKeys(result, header.keyColPos, header.colNames, colIndex)
	return result, nil
}

func readColumn(sr *blockstream.StructuredReader, header *tableHeader, pos uint64, colNr, firstRow, length int) (Column, error) {
	name := header.colNames[colNr]
	totalRows := header.nrOfRows

	var data ColumnData
	var err error

	switch header.colTypes[colNr] {
	case TypeCharacter:
		values := make([]string, length)
		na := make([]bool, length)
		_, err = colcodec.ReadCharVec(sr, values, na, pos, firstRow, length, totalRows)
		data = CharacterData{Values: values, NA: na}

	case TypeFactor:
		indices := make([]int32, length)
		var levels []string
		levels, err = colcodec.ReadFactorVec(sr, indices, pos, firstRow, length, totalRows)
		data = FactorData{Levels: levels, Indices: indices}

	case TypeInteger:
		values := make([]int32, length)
		err = colcodec.ReadIntVec(sr, values, pos, firstRow, length, totalRows)
		data = IntegerData(values)

	case TypeDouble:
		values := make([]float64, length)
		err = colcodec.ReadDoubleVec(sr, values, pos, firstRow, length, totalRows)
		data = DoubleData(values)

	case TypeLogical:
		values := make([]int32, length)
		err = colcodec.ReadLogicalVec(sr, values, pos, firstRow, length, totalRows)
		data = LogicalData(values)

	default:
		return Column{}, fmt.Errorf("%w: unknown type in column %q", ErrBadFormat, name)
	}

	if err != nil {
		return Column{}, fmt.Errorf("reading column %q: %w", name, badFormat(err))
	}

	return Column{Name: name, Data: data}, nil
}

// readTableHeader reads the fixed header regions. When the file id does not
// match the current format the file predates it and the caller must fall
// back to the legacy reader; the read position is then rewound to the start.
func readTableHeader(sr *blockstream.StructuredReader) (*tableHeader, bool, error) {
	fixed := make([]byte, TABLE_META_SIZE)
	if _, err := sr.Read(fixed); err != nil {
		return nil, false, badFormat(err)
	}

	header := &tableHeader{
		nrOfCols:    int(int32(le32(fixed[0:]))),
		keyLength:   int(int32(le32(fixed[4:]))),
		version:     le32(fixed[8:]),
		chunksPerIx: le32(fixed[12:]),
	}

	if le64(fixed[16:]) != FST_FILE_ID {
		if err := sr.Seek(0); err != nil {
			return nil, false, fmt.Errorf("%w: %w", ErrIO, err)
		}
		return nil, true, nil
	}

	if header.version > FST_VERSION {
		return nil, false, ErrNewerVersion
	}
	if header.nrOfCols < 1 || header.keyLength < 0 || header.keyLength > header.nrOfCols {
		return nil, false, fmt.Errorf("%w: invalid column or key count", ErrBadFormat)
	}

	dataMeta := make([]byte, 132+4*header.keyLength+2*header.nrOfCols)
	if _, err := sr.Read(dataMeta); err != nil {
		return nil, false, badFormat(err)
	}

	header.chunkPos = le64(dataMeta[0:])       // chunkPos[0]
	header.nrOfRows = int(le64(dataMeta[64:])) // chunkRows[0]
	header.nrOfChunks = le32(dataMeta[128:])

	header.keyColPos = make([]int, header.keyLength)
	for i := range header.keyColPos {
		pos := int(int32(le32(dataMeta[132+4*i:])))
		if pos < 0 || pos >= header.nrOfCols {
			return nil, false, fmt.Errorf("%w: key column index out of range", ErrBadFormat)
		}
		header.keyColPos[i] = pos
	}

	header.colTypes = make([]ColumnType, header.nrOfCols)
	typeData := dataMeta[132+4*header.keyLength:]
	for i := range header.colTypes {
		colType := ColumnType(le16(typeData[2*i:]))
		if colType < TypeCharacter || colType > TypeLogical {
			return nil, false, fmt.Errorf("%w: unknown column type code %d", ErrBadFormat, colType)
		}
		header.colTypes[i] = colType
	}

	namesOffset := uint64(TABLE_META_SIZE + len(dataMeta))
	header.colNames = make([]string, header.nrOfCols)
	if _, err := colcodec.ReadCharVec(sr, header.colNames, nil, namesOffset, 0, header.nrOfCols, header.nrOfCols); err != nil {
		return nil, false, badFormat(err)
	}

	return header, false, nil
}

func (h *tableHeader) meta() *Meta {
	keyNames := make([]string, len(h.keyColPos))
	for i, pos := range h.keyColPos {
		keyNames[i] = h.colNames[pos]
	}

	return &Meta{
		NrOfCols:    h.nrOfCols,
		NrOfRows:    h.nrOfRows,
		Version:     h.version,
		NrOfChunks:  h.nrOfChunks,
		ColumnNames: h.colNames,
		ColumnTypes: h.colTypes,
		KeyNames:    keyNames,
		KeyColIndex: h.keyColPos,
	}
}

// readColumnPositions reads the column-position index, which must be
// strictly monotonic.
func readColumnPositions(sr *blockstream.StructuredReader, chunkPos uint64, nrOfCols int) ([]uint64, error) {
	if err := sr.Seek(chunkPos); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	positions := make([]uint64, nrOfCols)
	for i := range positions {
		pos, err := sr.ReadUInt64()
		if err != nil {
			return nil, badFormat(err)
		}
		if i > 0 && pos <= positions[i-1] {
			return nil, fmt.Errorf("%w: column positions are not monotonic", ErrBadFormat)
		}
		positions[i] = pos
	}

	return positions, nil
}

// resolveSelection maps requested column names to column indices; a nil
// request selects every column.
func resolveSelection(colNames []string, columns []string) ([]int, error) {
	if columns == nil {
		colIndex := make([]int, len(colNames))
		for i := range colIndex {
			colIndex[i] = i
		}
		return colIndex, nil
	}

	colIndex := make([]int, len(columns))
	for i, requested := range columns {
		found := -1
		for colNr, name := range colNames {
			if name == requested {
				found = colNr
				break
			}
		}
		if found == -1 {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, requested)
		}
		colIndex[i] = found
	}

	return colIndex, nil
}

// resolveRowRange converts the 1-based inclusive row selection into a
// 0-based offset and length, clamped to the table size.
func resolveRowRange(nrOfRows, fromRow, toRow int) (int, int, error) {
	firstRow := fromRow - 1
	if firstRow < 0 {
		return 0, 0, fmt.Errorf("%w: fromRow should have a positive value", ErrBadArgument)
	}
	if firstRow >= nrOfRows {
		return 0, 0, fmt.Errorf("%w: row selection is out of range", ErrBadArgument)
	}

	length := nrOfRows - firstRow
	if toRow >= 1 {
		if toRow <= firstRow {
			return 0, 0, fmt.Errorf("%w: toRow should be equal to or larger than fromRow", ErrBadArgument)
		}
		if span := toRow - firstRow; span < length {
			length = span
		}
	}

	return firstRow, length, nil
}

// countKeys reports which key columns survived the projection.
func countKeys(result *Result, keyColPos []int, colNames []string, colIndex []int) {
	for _, keyPos := range keyColPos {
		for _, colNr := range colIndex {
			if keyPos == colNr {
				result.Found++
				result.KeyNames = append(result.KeyNames, colNames[keyPos])
				break
			}
		}
	}
}

// badFormat wraps decoding failures: corrupt structure, short reads and
// decompression errors all mean the file cannot be trusted.
func badFormat(err error) error {
	if errors.Is(err, ErrBadFormat) || errors.Is(err, ErrIO) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrBadFormat, err)
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le64(b []byte) uint64 {
	return uint64(le32(b)) | uint64(le32(b[4:]))<<32
}
