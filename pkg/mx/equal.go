package mx

import "math"

// Equal reports whether a and b have the same class, shape, field names and
// contents. NaN equals NaN, so converted nulls compare equal.
func Equal(a, b Array) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Class() != b.Class() {
		return false
	}
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return false
	}

	switch x := a.(type) {
	case *LogicalArray:
		y := b.(*LogicalArray)
		for i := range x.Data {
			if x.Data[i] != y.Data[i] {
				return false
			}
		}
	case *DoubleArray:
		y := b.(*DoubleArray)
		for i := range x.Data {
			if !sameFloat(x.Data[i], y.Data[i]) {
				return false
			}
		}
	case *CharArray:
		return string(x.Data) == string(b.(*CharArray).Data)
	case *CellArray:
		y := b.(*CellArray)
		for i := range x.Cells {
			if !Equal(x.Cells[i], y.Cells[i]) {
				return false
			}
		}
	case *StructArray:
		y := b.(*StructArray)
		if x.NumFields() != y.NumFields() {
			return false
		}
		for i, name := range x.names {
			if y.names[i] != name || !Equal(x.fields[i], y.fields[i]) {
				return false
			}
		}
	default:
		return false
	}
	return true
}

func sameFloat(x, y float64) bool {
	if math.IsNaN(x) {
		return math.IsNaN(y)
	}
	return x == y
}
