package testutil

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarienko/kdbml/pkg/kx"
)

// KdbServer is a loopback stand-in for a kdb+ process. It accepts one
// connection, completes the handshake with capability 3 and answers every
// request with the result of its answer function.
type KdbServer struct {
	Port int

	mu      sync.Mutex
	queries []string
	users   []string
}

// ServeKdb starts a KdbServer that is closed when the test completes. The
// answer function must not call t.FailNow since it runs on the server
// goroutine.
func ServeKdb(t *testing.T, answer func(q string) *kx.K) *KdbServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	s := &KdbServer{Port: ln.Addr().(*net.TCPAddr).Port}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		s.serve(t, conn, answer)
	}()
	return s
}

func (s *KdbServer) serve(t *testing.T, conn net.Conn, answer func(string) *kx.K) {
	var cred []byte
	b := make([]byte, 1)
	for {
		if _, err := io.ReadFull(conn, b); err != nil {
			return
		}
		if b[0] == 0 {
			break
		}
		cred = append(cred, b[0])
	}
	if n := len(cred); n > 0 && cred[n-1] < ' ' {
		cred = cred[:n-1]
	}
	s.mu.Lock()
	s.users = append(s.users, string(cred))
	s.mu.Unlock()
	if _, err := conn.Write([]byte{3}); err != nil {
		return
	}

	for {
		header := make([]byte, kx.HeaderSize)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		msg := make([]byte, binary.LittleEndian.Uint32(header[4:8]))
		copy(msg, header)
		if _, err := io.ReadFull(conn, msg[kx.HeaderSize:]); err != nil {
			return
		}
		q, mt, err := kx.Decode(msg)
		if !assert.NoError(t, err) {
			return
		}
		text, _ := q.Data.([]byte)
		q.Release()

		s.mu.Lock()
		s.queries = append(s.queries, string(text))
		s.mu.Unlock()
		if mt != kx.Sync {
			continue
		}

		out, err := kx.Encode(kx.Response, answer(string(text)))
		if !assert.NoError(t, err) {
			return
		}
		if _, err := conn.Write(out); err != nil {
			return
		}
	}
}

// Queries returns the query texts received so far, including the empty
// synchronous query sent by a flush.
func (s *KdbServer) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// Credentials returns the handshake credentials of each accepted connection.
func (s *KdbServer) Credentials() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.users...)
}
