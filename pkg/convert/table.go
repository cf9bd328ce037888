package convert

import (
	"github.com/dmarienko/kdbml/pkg/kx"
	"github.com/dmarienko/kdbml/pkg/metrics"
	"github.com/dmarienko/kdbml/pkg/mx"
)

// table converts a table, or a dictionary whose value part is a table, into
// a struct with one field per column in column order. Keyed tables list the
// key columns first.
func (r *run) table(x *kx.K) mx.Array {
	view, err := x.Unkey()
	if err != nil {
		r.unsupported(x, "table: ")
		return nil
	}
	defer view.Release()

	names, cols := view.Columns()
	out, err := mx.NewStruct(names...)
	if err != nil {
		r.diag(metrics.ReasonInvalidFields, x.Type, "table: "+err.Error())
		return nil
	}
	for i, col := range cols {
		if v := r.vector(col); v != nil {
			out.SetFieldAt(i, v)
		}
	}
	return out
}
