package kx

import (
	"fmt"
	"math"
)

// Type is the signed kdb+ type tag. Negative values are atoms, 0 is a mixed
// list, 1..19 are homogeneous vectors.
type Type int8

const (
	Mixed     Type = 0
	Boolean   Type = 1
	GUID      Type = 2
	Byte      Type = 4
	Short     Type = 5
	Int       Type = 6
	Long      Type = 7
	Real      Type = 8
	Float     Type = 9
	Char      Type = 10
	Symbol    Type = 11
	Timestamp Type = 12
	Month     Type = 13
	Date      Type = 14
	Datetime  Type = 15
	Timespan  Type = 16
	Minute    Type = 17
	Second    Type = 18
	Time      Type = 19

	Table      Type = 98
	Dict       Type = 99
	UnaryPrim  Type = 101
	SortedDict Type = 127
	Error      Type = -128
)

// Sentinel bit patterns kdb+ reserves for null and infinity.
const (
	NullShort int16 = math.MinInt16
	InfShort  int16 = math.MaxInt16
	NullInt   int32 = math.MinInt32
	InfInt    int32 = math.MaxInt32
	NullLong  int64 = math.MinInt64
	InfLong   int64 = math.MaxInt64
)

var typeNames = map[Type]string{
	Mixed:      "mixed",
	Boolean:    "boolean",
	GUID:       "guid",
	Byte:       "byte",
	Short:      "short",
	Int:        "int",
	Long:       "long",
	Real:       "real",
	Float:      "float",
	Char:       "char",
	Symbol:     "symbol",
	Timestamp:  "timestamp",
	Month:      "month",
	Date:       "date",
	Datetime:   "datetime",
	Timespan:   "timespan",
	Minute:     "minute",
	Second:     "second",
	Time:       "time",
	Table:      "table",
	Dict:       "dict",
	UnaryPrim:  "unary",
	SortedDict: "sorted_dict",
	Error:      "error",
}

// elemWidths is the wire width in bytes of one element of each primitive
// vector type. Symbols are variable width and report 0.
var elemWidths = map[Type]int{
	Boolean:   1,
	GUID:      16,
	Byte:      1,
	Short:     2,
	Int:       4,
	Long:      8,
	Real:      4,
	Float:     8,
	Char:      1,
	Symbol:    0,
	Timestamp: 8,
	Month:     4,
	Date:      4,
	Datetime:  8,
	Timespan:  8,
	Minute:    4,
	Second:    4,
	Time:      4,
}

// String returns the kdb+ name of the type, prefixed with '-' for atoms.
func (t Type) String() string {
	if t == Error {
		return "error"
	}
	base := t
	prefix := ""
	if t < 0 {
		base = -t
		prefix = "-"
	}
	if name, ok := typeNames[base]; ok {
		return prefix + name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// IsAtom reports whether t tags a scalar.
func (t Type) IsAtom() bool { return t < 0 && t != Error }

// IsVector reports whether t tags a homogeneous vector or a mixed list.
func (t Type) IsVector() bool { return t >= Mixed && t <= Time }

// Base returns the primitive type of t regardless of atom/vector form.
func (t Type) Base() Type {
	if t < 0 && t != Error {
		return -t
	}
	return t
}

// ElemWidth returns the wire width of one element of the primitive type t
// (atom or vector form). ok is false for non-primitive types.
func ElemWidth(t Type) (width int, ok bool) {
	width, ok = elemWidths[t.Base()]
	return width, ok
}

// Attr is the vector attribute byte (sorted, unique, parted, grouped).
type Attr byte

const (
	AttrNone Attr = iota
	AttrSorted
	AttrUnique
	AttrParted
	AttrGrouped
)

// MsgType is the IPC message type carried in the header.
type MsgType byte

const (
	Async    MsgType = 0
	Sync     MsgType = 1
	Response MsgType = 2
)
