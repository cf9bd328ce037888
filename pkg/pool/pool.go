package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// Pool is a generic object pool. It is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		gets      int64
	}
}

// New creates a pool. newFn builds an object when the pool is empty; reset,
// if not nil, cleans an object before it goes back into the pool.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFn()
	}
	return p
}

// Get takes an object from the pool.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	atomic.AddInt64(&p.stats.gets, 1)
	return p.pool.Get().(T)
}

// Put returns an object to the pool.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns the number of objects created, currently checked out, and
// the total number of Get calls. gets - allocated is the reuse count.
func (p *Pool[T]) Stats() (allocated, inUse, gets int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.gets)
}

// BufferPool serves byte slices from size buckets. Requests larger than the
// biggest bucket are allocated directly and not pooled.
type BufferPool struct {
	pools []*Pool[*[]byte]
	sizes []int
}

// NewBufferPool creates a buffer pool with the given ascending bucket sizes.
func NewBufferPool(sizes ...int) *BufferPool {
	pools := make([]*Pool[*[]byte], len(sizes))
	for i, size := range sizes {
		size := size
		pools[i] = New(func() *[]byte {
			b := make([]byte, size)
			return &b
		}, nil)
	}
	return &BufferPool{pools: pools, sizes: sizes}
}

// Get returns a slice of length size whose capacity is the bucket size.
func (p *BufferPool) Get(size int) []byte {
	for i, s := range p.sizes {
		if s >= size {
			b := *p.pools[i].Get()
			return b[:size]
		}
	}
	return make([]byte, size)
}

// Put returns a slice obtained from Get. Slices whose capacity matches no
// bucket are left to the garbage collector.
func (p *BufferPool) Put(buf []byte) {
	size := cap(buf)
	for i, s := range p.sizes {
		if s == size {
			b := buf[:size]
			p.pools[i].Put(&b)
			return
		}
	}
}

// Messages is the buffer pool for IPC messages: 4KB to 16MB.
var Messages = NewBufferPool(
	4096,
	65536,
	1048576,
	16777216,
)

// Buffers pools growable buffers for encoders and compressors.
var Buffers = New(func() *bytes.Buffer { return new(bytes.Buffer) }, func(b *bytes.Buffer) { b.Reset() })
