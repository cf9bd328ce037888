// Package export writes converted host values as JSON, CSV or Arrow IPC.
//
// JSON accepts any value. CSV and Arrow need a table: a struct whose fields
// are columns of equal length, which is what table queries convert to.
package export

import (
	"io"
	"math"
	"strconv"

	"github.com/dmarienko/kdbml/pkg/kdbmlerrors"
	"github.com/dmarienko/kdbml/pkg/mx"
)

// Formats.
const (
	JSON  = "json"
	CSV   = "csv"
	Arrow = "arrow"
)

// WriteFunc writes v to w in one format.
type WriteFunc func(w io.Writer, v mx.Array) error

var writers = map[string]WriteFunc{
	JSON:  WriteJSON,
	CSV:   WriteCSV,
	Arrow: WriteArrow,
}

// ForFormat returns the writer for format.
func ForFormat(format string) (WriteFunc, error) {
	fn, ok := writers[format]
	if !ok {
		return nil, kdbmlerrors.Newf(kdbmlerrors.ErrorTypeConfig, "unknown export format %q", format)
	}
	return fn, nil
}

// column is one named table column.
type column struct {
	name  string
	value mx.Array
}

// tableColumns checks that v is a struct of equal-length columns and
// returns them with the row count. Unset fields are rejected.
func tableColumns(v mx.Array) ([]column, int, error) {
	s, ok := v.(*mx.StructArray)
	if !ok || s == nil {
		return nil, 0, kdbmlerrors.Newf(kdbmlerrors.ErrorTypeData,
			"value %s is not a table", mx.Describe(v)).WithDetail("value", mx.Describe(v))
	}
	cols := make([]column, s.NumFields())
	rows := -1
	for i, name := range s.Names() {
		f := s.FieldAt(i)
		if f == nil {
			return nil, 0, kdbmlerrors.Newf(kdbmlerrors.ErrorTypeData, "column %q has no value", name)
		}
		n := columnLen(f)
		if rows == -1 {
			rows = n
		} else if n != rows {
			return nil, 0, kdbmlerrors.Newf(kdbmlerrors.ErrorTypeData,
				"column %q has %d rows, want %d", name, n, rows)
		}
		cols[i] = column{name: name, value: f}
	}
	if rows == -1 {
		rows = 0
	}
	return cols, rows, nil
}

// columnLen is the number of rows a field contributes. A struct field (a
// nested record) counts as a single row.
func columnLen(a mx.Array) int {
	if _, ok := a.(*mx.StructArray); ok {
		return 1
	}
	return a.Len()
}

// formatFloat renders a double the way CSV cells show it: NaN is empty.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ""
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
