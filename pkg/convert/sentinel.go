package convert

import (
	"math"

	"github.com/dmarienko/kdbml/pkg/kx"
)

// Class is the classification of a raw numeric field.
type Class int

const (
	Ordinary Class = iota
	Null
	PosInf
	NegInf
)

func (c Class) String() string {
	switch c {
	case Null:
		return "null"
	case PosInf:
		return "+inf"
	case NegInf:
		return "-inf"
	}
	return "ordinary"
}

// Classify reports whether raw, a field of primitive type t, is ordinary
// data, the type's null or one of its infinities. Comparison is exact
// against the reserved bit patterns. Temporal types classify by their
// storage width; booleans, bytes, chars and symbols are always ordinary.
func Classify(raw interface{}, t kx.Type) Class {
	switch t.Base() {
	case kx.Short:
		v, _ := raw.(int16)
		return classifyShort(v)
	case kx.Int, kx.Month, kx.Date, kx.Minute, kx.Second, kx.Time:
		v, _ := raw.(int32)
		return classifyInt(v)
	case kx.Long, kx.Timestamp, kx.Timespan:
		v, _ := raw.(int64)
		return classifyLong(v)
	case kx.Real:
		v, _ := raw.(float32)
		return classifyFloat(float64(v))
	case kx.Float, kx.Datetime:
		v, _ := raw.(float64)
		return classifyFloat(v)
	}
	return Ordinary
}

func classifyShort(v int16) Class {
	switch v {
	case kx.NullShort:
		return Null
	case kx.InfShort:
		return PosInf
	case -kx.InfShort:
		return NegInf
	}
	return Ordinary
}

func classifyInt(v int32) Class {
	switch v {
	case kx.NullInt:
		return Null
	case kx.InfInt:
		return PosInf
	case -kx.InfInt:
		return NegInf
	}
	return Ordinary
}

func classifyLong(v int64) Class {
	switch v {
	case kx.NullLong:
		return Null
	case kx.InfLong:
		return PosInf
	case -kx.InfLong:
		return NegInf
	}
	return Ordinary
}

func classifyFloat(v float64) Class {
	switch {
	case math.IsNaN(v):
		return Null
	case math.IsInf(v, 1):
		return PosInf
	case math.IsInf(v, -1):
		return NegInf
	}
	return Ordinary
}

// special maps a non-ordinary class to its host double.
func special(c Class) float64 {
	switch c {
	case Null:
		return math.NaN()
	case PosInf:
		return math.Inf(1)
	case NegInf:
		return math.Inf(-1)
	}
	panic("convert: ordinary value has no special form")
}

func shortValue(v int16) float64 {
	if c := classifyShort(v); c != Ordinary {
		return special(c)
	}
	return float64(v)
}

func intValue(v int32) float64 {
	if c := classifyInt(v); c != Ordinary {
		return special(c)
	}
	return float64(v)
}

func longValue(v int64) float64 {
	if c := classifyLong(v); c != Ordinary {
		return special(c)
	}
	return float64(v)
}

func realValue(v float32) float64 { return float64(v) }

func floatValue(v float64) float64 { return v }

func byteValue(v byte) float64 { return float64(v) }
