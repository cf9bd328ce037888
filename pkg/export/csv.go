package export

import (
	"io"
	"strconv"
	"strings"

	"github.com/dmarienko/kdbml/pkg/kdbmlerrors"
	"github.com/dmarienko/kdbml/pkg/mx"
	stringpool "github.com/dmarienko/kdbml/pkg/strings"
)

// WriteCSV writes a table as CSV with a header line. Numeric nulls are empty
// cells. Multi-element cells, such as month pairs, are space separated.
func WriteCSV(w io.Writer, v mx.Array) error {
	cols, rows, err := tableColumns(v)
	if err != nil {
		return err
	}

	cb := stringpool.NewCSVBuilder(rows, len(cols))
	defer cb.Close()

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.name
	}
	cb.WriteHeader(header)

	record := make([]string, len(cols))
	for r := 0; r < rows; r++ {
		for i, c := range cols {
			record[i] = cellAt(c.value, r)
		}
		cb.WriteRow(record)
	}

	if _, err := io.WriteString(w, cb.String()); err != nil {
		return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeFile, "write csv")
	}
	return nil
}

// cellAt renders row r of a column.
func cellAt(col mx.Array, r int) string {
	switch a := col.(type) {
	case *mx.DoubleArray:
		return formatFloat(a.Data[r])
	case *mx.LogicalArray:
		return strconv.FormatBool(a.Data[r])
	case *mx.CharArray:
		return string(a.Data[r : r+1])
	case *mx.CellArray:
		return cellText(a.Cells[r])
	}
	return cellText(col)
}

// cellText renders a whole value as one CSV field.
func cellText(v mx.Array) string {
	switch a := v.(type) {
	case nil:
		return ""
	case *mx.CharArray:
		return a.String()
	case *mx.DoubleArray:
		parts := make([]string, len(a.Data))
		for i, f := range a.Data {
			parts[i] = formatFloat(f)
		}
		return strings.Join(parts, " ")
	case *mx.LogicalArray:
		parts := make([]string, len(a.Data))
		for i, b := range a.Data {
			parts[i] = strconv.FormatBool(b)
		}
		return strings.Join(parts, " ")
	}
	return string(MarshalJSON(v))
}
