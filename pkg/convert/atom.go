package convert

import (
	"github.com/dmarienko/kdbml/pkg/kx"
	"github.com/dmarienko/kdbml/pkg/mx"
)

func (r *run) atom(x *kx.K) mx.Array {
	if x.Type.IsAtom() {
		if rl, ok := rules[-x.Type]; ok {
			return rl.atom(r, x)
		}
	}
	r.unsupported(x, "")
	return nil
}
