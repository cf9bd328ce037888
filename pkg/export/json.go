package export

import (
	"io"

	"github.com/dmarienko/kdbml/pkg/json"
	"github.com/dmarienko/kdbml/pkg/mx"
)

// WriteJSON writes v followed by a newline.
//
// Scalars become JSON scalars, vectors become arrays, char arrays become
// strings and structs become objects with fields in order. NaN is written as
// null and infinities as "Inf" and "-Inf". A nil value is null. A 1x1
// numeric or logical array is written as a scalar.
func WriteJSON(w io.Writer, v mx.Array) error {
	jw := json.NewWriter(4096)
	appendJSON(jw, v)
	if _, err := jw.WriteTo(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// MarshalJSON returns the JSON document for v without a trailing newline.
func MarshalJSON(v mx.Array) []byte {
	jw := json.NewWriter(256)
	appendJSON(jw, v)
	return jw.Bytes()
}

func appendJSON(jw *json.Writer, v mx.Array) {
	switch a := v.(type) {
	case nil:
		jw.Null()
	case *mx.DoubleArray:
		if a.Len() == 1 {
			jw.Float(a.Data[0])
			return
		}
		jw.BeginArray()
		for _, f := range a.Data {
			jw.Float(f)
		}
		jw.EndArray()
	case *mx.LogicalArray:
		if a.Len() == 1 {
			jw.Bool(a.Data[0])
			return
		}
		jw.BeginArray()
		for _, b := range a.Data {
			jw.Bool(b)
		}
		jw.EndArray()
	case *mx.CharArray:
		jw.String(a.String())
	case *mx.CellArray:
		jw.BeginArray()
		for _, c := range a.Cells {
			appendJSON(jw, c)
		}
		jw.EndArray()
	case *mx.StructArray:
		jw.BeginObject()
		for i, name := range a.Names() {
			jw.Key(name)
			appendJSON(jw, a.FieldAt(i))
		}
		jw.EndObject()
	default:
		jw.String(mx.Describe(v))
	}
}
