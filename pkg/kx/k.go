package kx

import (
	"fmt"
	"sync/atomic"
)

// K is a kdb+ value: an atom, a vector, a mixed list, a table, a dictionary,
// a unary primitive or an error.
//
// Data holds the payload in its natural Go form:
//
//	atoms       bool, [16]byte, byte, int16, int32, int64, float32, float64, string
//	vectors     []bool, [][16]byte, []byte, []int16, []int32, []int64,
//	            []float32, []float64, []string
//	mixed list  []*K
//	table       *K (a dictionary of symbol names to a mixed list of columns)
//	dictionary  Dictionary
//	error       string
//	unary       byte
//
// Temporal types use the integer or float width of their wire form (timestamp
// and timespan int64 nanoseconds, month/date/minute/second/time int32,
// datetime float64 days).
//
// K values are reference counted. Constructors return a value with one
// reference; composite constructors take ownership of their children.
type K struct {
	Type Type
	Attr Attr
	Data interface{}

	refs int64
}

// Dictionary is the payload of a dictionary value.
type Dictionary struct {
	Key   *K
	Value *K
}

func newK(t Type, data interface{}) *K {
	return &K{Type: t, Data: data, refs: 1}
}

// Retain adds a reference to x.
func (x *K) Retain() *K {
	if x != nil {
		atomic.AddInt64(&x.refs, 1)
	}
	return x
}

// Release drops a reference to x. When the last reference is dropped the
// references x holds on its children are dropped too.
func (x *K) Release() {
	if x == nil {
		return
	}
	if atomic.AddInt64(&x.refs, -1) != 0 {
		return
	}
	switch d := x.Data.(type) {
	case []*K:
		for _, item := range d {
			item.Release()
		}
	case *K:
		d.Release()
	case Dictionary:
		d.Key.Release()
		d.Value.Release()
	}
}

// Refs returns the current reference count of x.
func (x *K) Refs() int64 {
	return atomic.LoadInt64(&x.refs)
}

// Len returns the element count of x: 1 for atoms, the row count for tables
// and the key count for dictionaries.
func (x *K) Len() int {
	switch d := x.Data.(type) {
	case []bool:
		return len(d)
	case [][16]byte:
		return len(d)
	case []byte:
		return len(d)
	case []int16:
		return len(d)
	case []int32:
		return len(d)
	case []int64:
		return len(d)
	case []float32:
		return len(d)
	case []float64:
		return len(d)
	case []string:
		return len(d)
	case []*K:
		return len(d)
	case Dictionary:
		return d.Key.Len()
	case *K:
		_, cols := x.Columns()
		if len(cols) == 0 {
			return 0
		}
		return cols[0].Len()
	}
	return 1
}

// Atom constructors.

func NewBool(v bool) *K           { return newK(-Boolean, v) }
func NewGUID(v [16]byte) *K       { return newK(-GUID, v) }
func NewByte(v byte) *K           { return newK(-Byte, v) }
func NewShort(v int16) *K         { return newK(-Short, v) }
func NewInt(v int32) *K           { return newK(-Int, v) }
func NewLong(v int64) *K          { return newK(-Long, v) }
func NewReal(v float32) *K        { return newK(-Real, v) }
func NewFloat(v float64) *K       { return newK(-Float, v) }
func NewChar(v byte) *K           { return newK(-Char, v) }
func NewSymbol(v string) *K       { return newK(-Symbol, v) }
func NewTimestamp(ns int64) *K    { return newK(-Timestamp, ns) }
func NewMonth(months int32) *K    { return newK(-Month, months) }
func NewDate(days int32) *K       { return newK(-Date, days) }
func NewDatetime(days float64) *K { return newK(-Datetime, days) }
func NewTimespan(ns int64) *K     { return newK(-Timespan, ns) }
func NewMinute(v int32) *K        { return newK(-Minute, v) }
func NewSecond(v int32) *K        { return newK(-Second, v) }
func NewTime(ms int32) *K         { return newK(-Time, ms) }

// NewError returns an error value carrying msg.
func NewError(msg string) *K { return newK(Error, msg) }

// Identity returns the generic null (::), the result of a void query.
func Identity() *K { return newK(UnaryPrim, byte(0)) }

// NewAtom builds an atom of primitive type t (either sign) from v.
// It panics if v does not have the Go type t requires.
func NewAtom(t Type, v interface{}) *K {
	t = -t.Base()
	if err := checkAtom(t, v); err != nil {
		panic(err)
	}
	return newK(t, v)
}

// NewVector builds a vector of primitive type t from data, a slice of the Go
// type t requires. It panics on mismatch.
func NewVector(t Type, data interface{}) *K {
	t = t.Base()
	if err := checkVector(t, data); err != nil {
		panic(err)
	}
	return newK(t, data)
}

// Vector constructors for the common types.

func NewBools(v ...bool) *K       { return newK(Boolean, v) }
func NewBytes(v ...byte) *K       { return newK(Byte, v) }
func NewShorts(v ...int16) *K     { return newK(Short, v) }
func NewInts(v ...int32) *K       { return newK(Int, v) }
func NewLongs(v ...int64) *K      { return newK(Long, v) }
func NewReals(v ...float32) *K    { return newK(Real, v) }
func NewFloats(v ...float64) *K   { return newK(Float, v) }
func NewString(s string) *K       { return newK(Char, []byte(s)) }
func NewSymbols(v ...string) *K   { return newK(Symbol, v) }
func NewList(items ...*K) *K      { return newK(Mixed, items) }
func NewDict(key, value *K) *K    { return newK(Dict, Dictionary{Key: key, Value: value}) }
func newTableFromDict(dict *K) *K { return newK(Table, dict) }

// NewTable builds a table from column names and equal-length column vectors.
func NewTable(names []string, columns ...*K) (*K, error) {
	if len(names) != len(columns) {
		return nil, fmt.Errorf("table has %d names but %d columns", len(names), len(columns))
	}
	for i, col := range columns {
		if !col.Type.IsVector() {
			return nil, fmt.Errorf("column %q is %s, not a vector", names[i], col.Type)
		}
		if col.Len() != columns[0].Len() {
			return nil, fmt.Errorf("column %q has %d rows, want %d", names[i], col.Len(), columns[0].Len())
		}
	}
	return newTableFromDict(NewDict(NewSymbols(names...), NewList(columns...))), nil
}

// NewKeyedTable builds a keyed table, a dictionary from a key table to a value
// table with the same row count.
func NewKeyedTable(key, value *K) (*K, error) {
	if key.Type != Table || value.Type != Table {
		return nil, fmt.Errorf("keyed table needs two tables, got %s and %s", key.Type, value.Type)
	}
	if key.Len() != value.Len() {
		return nil, fmt.Errorf("key table has %d rows, value table %d", key.Len(), value.Len())
	}
	return NewDict(key, value), nil
}

// Columns returns the column names and column vectors of a table. Both are
// borrowed from x. It returns nils when x is not a table.
func (x *K) Columns() ([]string, []*K) {
	if x.Type != Table {
		return nil, nil
	}
	dict, ok := x.Data.(*K)
	if !ok {
		return nil, nil
	}
	d := dict.Data.(Dictionary)
	names, _ := d.Key.Data.([]string)
	cols, _ := d.Value.Data.([]*K)
	return names, cols
}

// DictParts returns the key and value parts of a dictionary, borrowed from x.
func (x *K) DictParts() (key, value *K, ok bool) {
	d, ok := x.Data.(Dictionary)
	if !ok {
		return nil, nil, false
	}
	return d.Key, d.Value, true
}

// IsKeyedTable reports whether x is a dictionary whose value part is a table.
func (x *K) IsKeyedTable() bool {
	_, value, ok := x.DictParts()
	return ok && value.Type == Table
}

// ErrorMessage returns the message carried by an error value.
func (x *K) ErrorMessage() string {
	s, _ := x.Data.(string)
	return s
}

func (x *K) String() string {
	switch x.Type {
	case Error:
		return "'" + x.ErrorMessage()
	case Table, Dict, SortedDict, Mixed:
		return fmt.Sprintf("%s[%d]", x.Type, x.Len())
	}
	if x.Type.IsAtom() {
		return fmt.Sprintf("%s(%v)", x.Type, x.Data)
	}
	return fmt.Sprintf("%s%v", x.Type, x.Data)
}

func checkAtom(t Type, v interface{}) error {
	var ok bool
	switch t.Base() {
	case Boolean:
		_, ok = v.(bool)
	case GUID:
		_, ok = v.([16]byte)
	case Byte, Char:
		_, ok = v.(byte)
	case Short:
		_, ok = v.(int16)
	case Int, Month, Date, Minute, Second, Time:
		_, ok = v.(int32)
	case Long, Timestamp, Timespan:
		_, ok = v.(int64)
	case Real:
		_, ok = v.(float32)
	case Float, Datetime:
		_, ok = v.(float64)
	case Symbol:
		_, ok = v.(string)
	default:
		return fmt.Errorf("kx: %s is not a primitive type", t)
	}
	if !ok {
		return fmt.Errorf("kx: %T is not a valid %s payload", v, t)
	}
	return nil
}

func checkVector(t Type, data interface{}) error {
	var ok bool
	switch t {
	case Boolean:
		_, ok = data.([]bool)
	case GUID:
		_, ok = data.([][16]byte)
	case Byte, Char:
		_, ok = data.([]byte)
	case Short:
		_, ok = data.([]int16)
	case Int, Month, Date, Minute, Second, Time:
		_, ok = data.([]int32)
	case Long, Timestamp, Timespan:
		_, ok = data.([]int64)
	case Real:
		_, ok = data.([]float32)
	case Float, Datetime:
		_, ok = data.([]float64)
	case Symbol:
		_, ok = data.([]string)
	case Mixed:
		_, ok = data.([]*K)
	default:
		return fmt.Errorf("kx: %s is not a vector type", t)
	}
	if !ok {
		return fmt.Errorf("kx: %T is not a valid %s payload", data, t)
	}
	return nil
}
