// Package pool provides typed object pooling for kdbml.
//
// Pool[T] wraps sync.Pool with type safety, an optional reset hook and
// usage statistics. BufferPool serves byte slices from power-of-two size
// buckets; the kx connection reads every IPC message into one of these and
// hands it back once the message is decoded.
//
// Example:
//
//	buf := pool.Messages.Get(size)
//	defer pool.Messages.Put(buf)
package pool
