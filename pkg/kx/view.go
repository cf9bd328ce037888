package kx

import "fmt"

// Index returns element i of x. For a primitive vector it synthesizes a new
// atom of the vector's type; for a mixed list it returns the element itself,
// borrowed from x. Index panics when i is out of range.
func (x *K) Index(i int) *K {
	if x.Type == Mixed {
		return x.Data.([]*K)[i]
	}
	if x.Type < Boolean || x.Type > Time {
		panic(fmt.Sprintf("kx: cannot index %s", x.Type))
	}
	var v interface{}
	switch d := x.Data.(type) {
	case []bool:
		v = d[i]
	case [][16]byte:
		v = d[i]
	case []byte:
		v = d[i]
	case []int16:
		v = d[i]
	case []int32:
		v = d[i]
	case []int64:
		v = d[i]
	case []float32:
		v = d[i]
	case []float64:
		v = d[i]
	case []string:
		v = d[i]
	default:
		panic(fmt.Sprintf("kx: %s vector has payload %T", x.Type, x.Data))
	}
	return newK(-x.Type, v)
}

// Unkey returns the plain table view of x and must be paired with a Release
// of the result.
//
// A table is its own view and is returned retained. For a keyed table the
// view is a new table holding the key columns followed by the value columns;
// for any other dictionary whose value part is a table the view is that
// value table. Columns are shared with x: releasing the view never drops the
// caller's references.
func (x *K) Unkey() (*K, error) {
	if x.Type == Table {
		return x.Retain(), nil
	}
	key, value, ok := x.DictParts()
	if !ok || value.Type != Table {
		return nil, fmt.Errorf("kx: %s is not a table or keyed table", x.Type)
	}
	if key.Type != Table {
		return value.Retain(), nil
	}

	keyNames, keyCols := key.Columns()
	valNames, valCols := value.Columns()
	names := make([]string, 0, len(keyNames)+len(valNames))
	names = append(names, keyNames...)
	names = append(names, valNames...)
	cols := make([]*K, 0, len(keyCols)+len(valCols))
	for _, c := range keyCols {
		cols = append(cols, c.Retain())
	}
	for _, c := range valCols {
		cols = append(cols, c.Retain())
	}
	return newTableFromDict(NewDict(NewSymbols(names...), NewList(cols...))), nil
}
