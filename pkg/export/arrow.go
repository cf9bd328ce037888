package export

import (
	"io"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/dmarienko/kdbml/pkg/kdbmlerrors"
	"github.com/dmarienko/kdbml/pkg/mx"
)

// WriteArrow writes a table as an Arrow IPC stream holding one record batch.
//
// Column types follow the host classes: double is Float64 with NaN as null,
// logical is Boolean, char columns and cells of strings are String, cells of
// month pairs are List<Float64>. Anything else is written as JSON text.
func WriteArrow(w io.Writer, v mx.Array) error {
	cols, rows, err := tableColumns(v)
	if err != nil {
		return err
	}

	fields := make([]arrow.Field, len(cols))
	kinds := make([]arrowKind, len(cols))
	for i, c := range cols {
		kinds[i] = kindOf(c.value)
		fields[i] = arrow.Field{Name: c.name, Type: kinds[i].dataType(), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	mem := memory.NewGoAllocator()
	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	for i, c := range cols {
		appendColumn(rb.Field(i), kinds[i], c.value, rows)
	}
	rec := rb.NewRecord()
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := iw.Write(rec); err != nil {
		_ = iw.Close()
		return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeFile, "write arrow record")
	}
	if err := iw.Close(); err != nil {
		return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeFile, "close arrow stream")
	}
	return nil
}

type arrowKind int

const (
	kindFloat arrowKind = iota
	kindBool
	kindString
	kindFloatList
	// kindText renders each row with cellText
	kindText
)

func (k arrowKind) dataType() arrow.DataType {
	switch k {
	case kindFloat:
		return arrow.PrimitiveTypes.Float64
	case kindBool:
		return arrow.FixedWidthTypes.Boolean
	case kindFloatList:
		return arrow.ListOf(arrow.PrimitiveTypes.Float64)
	}
	return arrow.BinaryTypes.String
}

func kindOf(col mx.Array) arrowKind {
	switch a := col.(type) {
	case *mx.DoubleArray:
		return kindFloat
	case *mx.LogicalArray:
		return kindBool
	case *mx.CharArray:
		return kindString
	case *mx.CellArray:
		return cellKind(a)
	}
	return kindText
}

// cellKind picks one type for all cells; nil cells do not vote.
func cellKind(c *mx.CellArray) arrowKind {
	kind := arrowKind(-1)
	for _, v := range c.Cells {
		var k arrowKind
		switch a := v.(type) {
		case nil:
			continue
		case *mx.CharArray:
			k = kindString
		case *mx.DoubleArray:
			k = kindFloatList
			if a.Len() == 1 {
				k = kindFloat
			}
		case *mx.LogicalArray:
			if a.Len() != 1 {
				return kindText
			}
			k = kindBool
		default:
			return kindText
		}
		if kind != -1 && kind != k {
			return kindText
		}
		kind = k
	}
	if kind == -1 {
		return kindString
	}
	return kind
}

func appendColumn(b array.Builder, kind arrowKind, col mx.Array, rows int) {
	switch a := col.(type) {
	case *mx.DoubleArray:
		fb := b.(*array.Float64Builder)
		for _, f := range a.Data {
			appendFloat(fb, f)
		}
		return
	case *mx.LogicalArray:
		b.(*array.BooleanBuilder).AppendValues(a.Data, nil)
		return
	case *mx.CharArray:
		sb := b.(*array.StringBuilder)
		for i := range a.Data {
			sb.Append(string(a.Data[i : i+1]))
		}
		return
	case *mx.CellArray:
		for _, v := range a.Cells {
			appendCell(b, kind, v)
		}
		return
	}
	// a nested record is a single row
	for r := 0; r < rows; r++ {
		b.(*array.StringBuilder).Append(cellText(col))
	}
}

func appendCell(b array.Builder, kind arrowKind, v mx.Array) {
	if v == nil {
		b.AppendNull()
		return
	}
	switch kind {
	case kindFloat:
		appendFloat(b.(*array.Float64Builder), v.(*mx.DoubleArray).Data[0])
	case kindBool:
		b.(*array.BooleanBuilder).Append(v.(*mx.LogicalArray).Data[0])
	case kindFloatList:
		lb := b.(*array.ListBuilder)
		lb.Append(true)
		vb := lb.ValueBuilder().(*array.Float64Builder)
		for _, f := range v.(*mx.DoubleArray).Data {
			appendFloat(vb, f)
		}
	default:
		b.(*array.StringBuilder).Append(cellText(v))
	}
}

func appendFloat(b *array.Float64Builder, f float64) {
	if math.IsNaN(f) {
		b.AppendNull()
		return
	}
	b.Append(f)
}
