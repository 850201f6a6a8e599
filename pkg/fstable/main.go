package fstable

import (
	"errors"
	"fmt"
	"math"
)

// A table is stored in a single seekable binary file laid out as:
//
//	- A fixed header: column count, key count, format version, the number of
//	  chunks per index row, the file id, 8 reserved chunk position and chunk
//	  row-count slots, the chunk count, the key column indices and one
//	  16-bit type code per column.
//	- The column names, stored as a regular (uncompressed) text column.
//	- The column-position index: one absolute file offset per column,
//	  written as placeholder zeros on the first pass and backfilled once all
//	  column payloads have been written.
//	- The column payloads, in declaration order.
//
// Reading a column subset over a row range only touches the header regions
// and the payload blocks that intersect the range. All integers are
// little-endian.
const (
	FST_VERSION            = 1
	FST_FILE_ID     uint64 = 0xa91c12f8b245a71d
	TABLE_META_SIZE        = 24
)

// ColumnType identifies the data type of a stored column. The values are the
// on-disk type codes of the current format.
type ColumnType uint16

const (
	TypeCharacter ColumnType = 6
	TypeFactor    ColumnType = 7
	TypeInteger   ColumnType = 8
	TypeDouble    ColumnType = 9
	TypeLogical   ColumnType = 10
)

func (t ColumnType) String() string {
	switch t {
	case TypeCharacter:
		return "character"
	case TypeFactor:
		return "factor"
	case TypeInteger:
		return "integer"
	case TypeDouble:
		return "double"
	case TypeLogical:
		return "logical"
	}
	return fmt.Sprintf("type(%d)", uint16(t))
}

// Missing values are stored as in-band sentinels so files interoperate with
// other readers of the format.
const (
	// IntNA marks a missing integer value.
	IntNA int32 = math.MinInt32

	// LogicalNA marks a missing logical value; 0 and 1 are false and true.
	LogicalNA int32 = math.MinInt32

	doubleNABits uint64 = 0x7FF00000000007A2
)

// DoubleNA returns the missing-value sentinel for double columns, a reserved
// NaN payload that is preserved bit-exactly by the codec.
func DoubleNA() float64 {
	return math.Float64frombits(doubleNABits)
}

// IsDoubleNA distinguishes the missing-value sentinel from ordinary NaNs.
func IsDoubleNA(v float64) bool {
	return math.Float64bits(v) == doubleNABits
}

// ColumnData is the typed payload of a column, one variant per column type.
type ColumnData interface {
	Type() ColumnType
	Len() int
}

// IntegerData holds 32-bit integers; IntNA marks missing values.
type IntegerData []int32

func (d IntegerData) Type() ColumnType { return TypeInteger }
func (d IntegerData) Len() int         { return len(d) }

// DoubleData holds 64-bit floats; the DoubleNA sentinel marks missing values.
type DoubleData []float64

func (d DoubleData) Type() ColumnType { return TypeDouble }
func (d DoubleData) Len() int         { return len(d) }

// LogicalData holds tri-state logicals: 0, 1 or LogicalNA.
type LogicalData []int32

func (d LogicalData) Type() ColumnType { return TypeLogical }
func (d LogicalData) Len() int         { return len(d) }

// CharacterData holds strings plus an optional missing-value mask, which
// keeps a missing string distinct from an empty one. A nil mask means no
// value is missing.
type CharacterData struct {
	Values []string
	NA     []bool
}

func (d CharacterData) Type() ColumnType { return TypeCharacter }
func (d CharacterData) Len() int         { return len(d.Values) }

// FactorData holds categorical values as 1-based indices into an ordered
// list of level strings. IntNA marks a missing value.
type FactorData struct {
	Levels  []string
	Indices []int32
}

func (d FactorData) Type() ColumnType { return TypeFactor }
func (d FactorData) Len() int         { return len(d.Indices) }

// Column is a named, typed vector of values.
type Column struct {
	Name string
	Data ColumnData
}

// Table is a rectangular set of equal-length columns. Keys optionally names
// columns that order the table; the key list is metadata only, no sort is
// performed or verified.
type Table struct {
	Columns []Column
	Keys    []string
}

// NrOfRows returns the table's row count.
func (t *Table) NrOfRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Data.Len()
}

// Meta describes a stored table without its data.
type Meta struct {
	NrOfCols    int
	NrOfRows    int
	Version     uint32
	NrOfChunks  uint32
	ColumnNames []string
	ColumnTypes []ColumnType
	KeyNames    []string
	KeyColIndex []int

	// Legacy is set when the file predates the current format. Such files
	// should be rewritten, support for them will be dropped.
	Legacy bool
}

// Result is the outcome of a read: the selected columns plus the key columns
// that survived the projection.
type Result struct {
	Columns  []Column
	KeyNames []string
	Found    int
	Legacy   bool
}

// Error kinds. Every error returned by this package wraps exactly one of
// these, so callers can dispatch with errors.Is.
var (
	ErrBadArgument    = errors.New("fstable: bad argument")
	ErrBadFormat      = errors.New("fstable: damaged or invalid file")
	ErrNotImplemented = errors.New("fstable: not implemented")
	ErrIO             = errors.New("fstable: io error")
)

var (
	ErrNoColumns      = fmt.Errorf("%w: the table needs at least one column", ErrBadArgument)
	ErrNoRows         = fmt.Errorf("%w: the table contains no data", ErrBadArgument)
	ErrColumnNotFound = fmt.Errorf("%w: selected column not found", ErrBadArgument)
	ErrNewerVersion   = fmt.Errorf("%w: file was created by a newer version of this package", ErrBadFormat)
	ErrMultiChunk     = fmt.Errorf("%w: multi-chunk read", ErrNotImplemented)
)
