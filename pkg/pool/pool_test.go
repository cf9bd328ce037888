package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolResetAndStats(t *testing.T) {
	type box struct{ n int }
	p := New(func() *box { return &box{} }, func(b *box) { b.n = 0 })

	b := p.Get()
	b.n = 42
	p.Put(b)

	again := p.Get()
	assert.Equal(t, 0, again.n)
	p.Put(again)

	allocated, inUse, gets := p.Stats()
	assert.GreaterOrEqual(t, allocated, int64(1))
	assert.Equal(t, int64(0), inUse)
	assert.Equal(t, int64(2), gets)
}

func TestBufferPoolBuckets(t *testing.T) {
	bp := NewBufferPool(16, 64)

	small := bp.Get(10)
	assert.Len(t, small, 10)
	assert.Equal(t, 16, cap(small))
	bp.Put(small)

	mid := bp.Get(17)
	assert.Equal(t, 64, cap(mid))
	bp.Put(mid)

	big := bp.Get(100)
	assert.Len(t, big, 100)
	bp.Put(big) // not pooled, must not panic
}
