package convert

import (
	"github.com/dmarienko/kdbml/pkg/kx"
	"github.com/dmarienko/kdbml/pkg/mx"
)

// rule converts one primitive type in both contexts. Keeping the atom and
// vector forms in one entry means a type cannot be supported in one context
// and missing from the other.
type rule struct {
	atom   func(r *run, x *kx.K) mx.Array
	vector func(r *run, x *kx.K) mx.Array
}

// rules is keyed by the positive type tag. GUID has no host equivalent and
// is deliberately absent.
var rules = map[kx.Type]rule{
	kx.Boolean:   {atom: boolAtom, vector: boolVector},
	kx.Byte:      numeric(byteValue),
	kx.Short:     numeric(shortValue),
	kx.Int:       numeric(intValue),
	kx.Long:      numeric(longValue),
	kx.Real:      numeric(realValue),
	kx.Float:     numeric(floatValue),
	kx.Char:      {atom: charAtom, vector: charVector},
	kx.Symbol:    {atom: symbolAtom, vector: symbolVector},
	kx.Timestamp: numeric(timestampValue),
	kx.Month:     {atom: monthAtom, vector: monthVector},
	kx.Date:      numeric(dateValue),
	kx.Datetime:  numeric(datetimeValue),
	kx.Timespan:  numeric(timespanValue),
	kx.Minute:    numeric(minuteValue),
	kx.Second:    numeric(secondValue),
	kx.Time:      numeric(timeValue),
}

type number interface {
	byte | int16 | int32 | int64 | float32 | float64
}

// numeric builds the rule for a type that becomes a double scalar or a 1xn
// double row, with f applied to every element.
func numeric[T number](f func(T) float64) rule {
	return rule{
		atom: func(_ *run, x *kx.K) mx.Array {
			return mx.NewDoubleScalar(f(x.Data.(T)))
		},
		vector: func(_ *run, x *kx.K) mx.Array {
			src := x.Data.([]T)
			out := mx.NewDoubleMatrix(1, len(src))
			for i, v := range src {
				out.Data[i] = f(v)
			}
			return out
		},
	}
}

func boolAtom(_ *run, x *kx.K) mx.Array {
	return mx.NewLogicalScalar(x.Data.(bool))
}

func boolVector(_ *run, x *kx.K) mx.Array {
	src := x.Data.([]bool)
	out := mx.NewLogicalArray(len(src), 1)
	copy(out.Data, src)
	return out
}

func charAtom(_ *run, x *kx.K) mx.Array {
	return mx.NewString(string([]byte{x.Data.(byte)}))
}

func charVector(_ *run, x *kx.K) mx.Array {
	src := x.Data.([]byte)
	out := mx.NewCharArray(len(src), 1)
	copy(out.Data, src)
	return out
}

func symbolAtom(_ *run, x *kx.K) mx.Array {
	return mx.NewString(x.Data.(string))
}

func symbolVector(_ *run, x *kx.K) mx.Array {
	src := x.Data.([]string)
	out := mx.NewCellArray(len(src), 1)
	for i, s := range src {
		out.Set(i, mx.NewString(s))
	}
	return out
}

func monthAtom(_ *run, x *kx.K) mx.Array {
	ym := monthValue(x.Data.(int32))
	return mx.NewRow(ym[0], ym[1])
}

// monthVector yields one [year month] pair per element, each built through
// the atom rule from a synthesized month atom.
func monthVector(r *run, x *kx.K) mx.Array {
	n := x.Len()
	out := mx.NewCellArray(n, 1)
	for i := 0; i < n; i++ {
		elem := x.Index(i)
		out.Set(i, monthAtom(r, elem))
		elem.Release()
	}
	return out
}
