// Package kx models kdb+ values and speaks the kdb+ IPC protocol.
//
// A K is a tagged value: atoms carry negative type tags, vectors 1..19,
// mixed lists 0, tables 98 and dictionaries 99. Payloads are stored as typed
// Go slices so element access is by index rather than by byte offset:
//
//	v := kx.NewLongs(1, 2, kx.NullLong)
//	a := v.Index(2) // -7h atom holding the long null
//
// Values are reference counted. Composite constructors take ownership of
// their children, and views such as Unkey hand out extra references that the
// caller releases:
//
//	view, err := keyed.Unkey()
//	if err != nil {
//	    return err
//	}
//	defer view.Release()
//
// Conn is a synchronous client: Dial performs the capability handshake,
// Query sends a char vector and decodes the response, Flush performs the
// empty round trip that precedes Close.
package kx
