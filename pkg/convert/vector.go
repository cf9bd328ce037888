package convert

import (
	"github.com/dmarienko/kdbml/pkg/kx"
	"github.com/dmarienko/kdbml/pkg/mx"
)

func (r *run) vector(x *kx.K) mx.Array {
	if x.Type == kx.Mixed {
		return r.mixed(x)
	}
	if rl, ok := rules[x.Type]; ok && x.Type.IsVector() {
		return rl.vector(r, x)
	}
	r.unsupported(x, "list: ")
	return nil
}

// mixed converts a mixed list into an nx1 cell array, one level of cells per
// level of nesting.
func (r *run) mixed(x *kx.K) mx.Array {
	items := x.Data.([]*kx.K)
	out := mx.NewCellArray(len(items), 1)
	for i, item := range items {
		if item.Type.IsAtom() {
			out.Set(i, r.atom(item))
		} else {
			out.Set(i, r.vector(item))
		}
	}
	return out
}
