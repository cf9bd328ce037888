package convert

import (
	"fmt"

	"github.com/dmarienko/kdbml/pkg/kx"
	"github.com/dmarienko/kdbml/pkg/metrics"
	"github.com/dmarienko/kdbml/pkg/mx"
)

// dict converts a dictionary into a struct with one field per key.
//
// A value part that is a table is a keyed table and converts as a table. A
// homogeneous value vector holds one element per key and every field is an
// atom. A mixed value list holds one value per key: multi-element vectors
// and nested lists convert as vectors, everything else as an atom.
func (r *run) dict(x *kx.K) mx.Array {
	if x.IsKeyedTable() {
		return r.table(x)
	}
	key, value, ok := x.DictParts()
	if !ok {
		r.unsupported(x, "dict: ")
		return nil
	}

	names, ok := key.Data.([]string)
	if !ok || key.Type != kx.Symbol {
		r.diag(metrics.ReasonInvalidFields, key.Type,
			fmt.Sprintf("dict: keys must be symbols, got %s", key.Type))
		return nil
	}
	if !value.Type.IsVector() || value.Len() != len(names) {
		r.diag(metrics.ReasonInvalidFields, value.Type,
			fmt.Sprintf("dict: %d keys but value part is %s[%d]", len(names), value.Type, value.Len()))
		return nil
	}
	out, err := mx.NewStruct(names...)
	if err != nil {
		r.diag(metrics.ReasonInvalidFields, key.Type, "dict: "+err.Error())
		return nil
	}

	if value.Type != kx.Mixed {
		for i := range names {
			elem := value.Index(i)
			if v := r.atom(elem); v != nil {
				out.SetFieldAt(i, v)
			}
			elem.Release()
		}
		return out
	}

	for i, item := range value.Data.([]*kx.K) {
		if v := r.dictValue(item); v != nil {
			out.SetFieldAt(i, v)
		}
	}
	return out
}

func (r *run) dictValue(item *kx.K) mx.Array {
	switch {
	case item.Type == kx.Mixed:
		return r.vector(item)
	case item.Type > kx.Mixed && item.Type <= kx.Time:
		switch item.Len() {
		case 0:
			return r.vector(item)
		case 1:
			elem := item.Index(0)
			defer elem.Release()
			return r.atom(elem)
		}
		return r.vector(item)
	}
	return r.atom(item)
}
