// Package mx is the host-side value model: logical, double, char, cell and
// struct arrays laid out the way a MATLAB-style numerical environment expects
// them.
package mx

import (
	"fmt"
	"math"
)

// Class is the class of a host array.
type Class int

const (
	ClassLogical Class = iota
	ClassDouble
	ClassChar
	ClassCell
	ClassStruct
)

func (c Class) String() string {
	switch c {
	case ClassLogical:
		return "logical"
	case ClassDouble:
		return "double"
	case ClassChar:
		return "char"
	case ClassCell:
		return "cell"
	case ClassStruct:
		return "struct"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Array is implemented by every host value.
type Array interface {
	Class() Class
	// Dims returns rows and columns.
	Dims() (rows, cols int)
	// Len returns the number of elements, rows*cols.
	Len() int
}

type dims struct {
	rows, cols int
}

func (d dims) Dims() (int, int) { return d.rows, d.cols }
func (d dims) Len() int         { return d.rows * d.cols }

func checkDims(rows, cols int) {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("mx: negative dimensions %dx%d", rows, cols))
	}
}

// LogicalArray holds booleans.
type LogicalArray struct {
	dims
	Data []bool
}

// NewLogicalScalar returns a 1x1 logical.
func NewLogicalScalar(v bool) *LogicalArray {
	return &LogicalArray{dims: dims{1, 1}, Data: []bool{v}}
}

// NewLogicalArray returns a zeroed rows x cols logical array.
func NewLogicalArray(rows, cols int) *LogicalArray {
	checkDims(rows, cols)
	return &LogicalArray{dims: dims{rows, cols}, Data: make([]bool, rows*cols)}
}

func (a *LogicalArray) Class() Class { return ClassLogical }

// DoubleArray holds float64 values. Nulls are NaN, infinities ±Inf.
type DoubleArray struct {
	dims
	Data []float64
}

// NewDoubleScalar returns a 1x1 double.
func NewDoubleScalar(v float64) *DoubleArray {
	return &DoubleArray{dims: dims{1, 1}, Data: []float64{v}}
}

// NewDoubleMatrix returns a zeroed rows x cols double array.
func NewDoubleMatrix(rows, cols int) *DoubleArray {
	checkDims(rows, cols)
	return &DoubleArray{dims: dims{rows, cols}, Data: make([]float64, rows*cols)}
}

// NewRow returns a 1xn double array holding a copy of v.
func NewRow(v ...float64) *DoubleArray {
	a := NewDoubleMatrix(1, len(v))
	copy(a.Data, v)
	return a
}

func (a *DoubleArray) Class() Class { return ClassDouble }

// Scalar returns the single element of a 1x1 array.
func (a *DoubleArray) Scalar() (float64, bool) {
	if len(a.Data) != 1 {
		return math.NaN(), false
	}
	return a.Data[0], true
}

// CharArray holds single-byte characters.
type CharArray struct {
	dims
	Data []byte
}

// NewString returns a 1xn char array holding s.
func NewString(s string) *CharArray {
	return &CharArray{dims: dims{1, len(s)}, Data: []byte(s)}
}

// NewCharArray returns a rows x cols char array of zero bytes.
func NewCharArray(rows, cols int) *CharArray {
	checkDims(rows, cols)
	return &CharArray{dims: dims{rows, cols}, Data: make([]byte, rows*cols)}
}

func (a *CharArray) Class() Class { return ClassChar }

// String returns the characters as a Go string.
func (a *CharArray) String() string { return string(a.Data) }

// CellArray is a heterogeneous collection. Empty cells are nil.
type CellArray struct {
	dims
	Cells []Array
}

// NewCellArray returns a rows x cols cell array of empty cells.
func NewCellArray(rows, cols int) *CellArray {
	checkDims(rows, cols)
	return &CellArray{dims: dims{rows, cols}, Cells: make([]Array, rows*cols)}
}

func (a *CellArray) Class() Class { return ClassCell }

// Get returns cell i in column-major order.
func (a *CellArray) Get(i int) Array { return a.Cells[i] }

// Set stores v in cell i.
func (a *CellArray) Set(i int, v Array) { a.Cells[i] = v }

// StructArray is a 1x1 record with ordered, named fields. Unset fields are
// nil.
type StructArray struct {
	names  []string
	index  map[string]int
	fields []Array
}

// NewStruct creates a record with the given field names, in order. Names
// must be unique and non-empty.
func NewStruct(names ...string) (*StructArray, error) {
	s := &StructArray{
		names:  make([]string, len(names)),
		index:  make(map[string]int, len(names)),
		fields: make([]Array, len(names)),
	}
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("field %d has an empty name", i)
		}
		if _, dup := s.index[name]; dup {
			return nil, fmt.Errorf("duplicate field name %q", name)
		}
		s.index[name] = i
		s.names[i] = name
	}
	return s, nil
}

func (s *StructArray) Class() Class     { return ClassStruct }
func (s *StructArray) Dims() (int, int) { return 1, 1 }
func (s *StructArray) Len() int         { return 1 }

// Names returns the field names in order.
func (s *StructArray) Names() []string { return s.names }

// NumFields returns the number of fields.
func (s *StructArray) NumFields() int { return len(s.names) }

// Field returns the value of the named field.
func (s *StructArray) Field(name string) (Array, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.fields[i], true
}

// FieldAt returns the value of field i.
func (s *StructArray) FieldAt(i int) Array { return s.fields[i] }

// SetField stores v under name, which must be one of the record's fields.
func (s *StructArray) SetField(name string, v Array) error {
	i, ok := s.index[name]
	if !ok {
		return fmt.Errorf("no field %q", name)
	}
	s.fields[i] = v
	return nil
}

// SetFieldAt stores v in field i.
func (s *StructArray) SetFieldAt(i int, v Array) { s.fields[i] = v }

// Describe returns a short MATLAB-style summary such as "1x3 double".
func Describe(a Array) string {
	if a == nil {
		return "[]"
	}
	rows, cols := a.Dims()
	return fmt.Sprintf("%dx%d %s", rows, cols, a.Class())
}
