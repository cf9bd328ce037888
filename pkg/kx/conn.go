package kx

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dmarienko/kdbml/pkg/kdbmlerrors"
	"github.com/dmarienko/kdbml/pkg/pool"
	stringpool "github.com/dmarienko/kdbml/pkg/strings"
)

// capability is the protocol version offered in the handshake: 3 allows
// compressed responses and timestamp/timespan types.
const capability = 3

// DialFunc opens the underlying network connection.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

type dialOptions struct {
	credentials string
	timeout     time.Duration
	logger      *zap.Logger
	symbols     *stringpool.SymbolTable
	dial        DialFunc
	maxSize     int
}

// DialOption configures Dial.
type DialOption func(*dialOptions)

// WithCredentials sets the opaque "user[:password]" string sent in the
// handshake.
func WithCredentials(credentials string) DialOption {
	return func(o *dialOptions) { o.credentials = credentials }
}

// WithTimeout bounds each request when the context carries no deadline.
func WithTimeout(d time.Duration) DialOption {
	return func(o *dialOptions) { o.timeout = d }
}

// WithLogger sets the connection logger.
func WithLogger(logger *zap.Logger) DialOption {
	return func(o *dialOptions) { o.logger = logger }
}

// WithSymbolTable shares a symbol table between connections.
func WithSymbolTable(st *stringpool.SymbolTable) DialOption {
	return func(o *dialOptions) { o.symbols = st }
}

// WithMaxMessageSize bounds incoming messages, before and after
// decompression. Larger responses fail with a data error and close the
// connection. Non-positive values keep DefaultMaxMessageSize.
func WithMaxMessageSize(n int) DialOption {
	return func(o *dialOptions) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

// WithDialFunc replaces the network dialer.
func WithDialFunc(fn DialFunc) DialOption {
	return func(o *dialOptions) { o.dial = fn }
}

// Conn is a synchronous connection to a kdb+ process. One request is in
// flight at a time; concurrent calls are serialized.
type Conn struct {
	mu      sync.Mutex
	nc      net.Conn
	dec     *Decoder
	timeout time.Duration
	logger  *zap.Logger
	remote  string
}

// Dial connects to host:port and performs the handshake.
func Dial(ctx context.Context, host string, port int, opts ...DialOption) (*Conn, error) {
	o := dialOptions{logger: zap.NewNop(), maxSize: DefaultMaxMessageSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dial == nil {
		var d net.Dialer
		o.dial = d.DialContext
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	nc, err := o.dial(ctx, "tcp", address)
	if err != nil {
		return nil, kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeConnection, "dial failed").
			WithDetail("address", address)
	}

	dec := NewDecoder(o.symbols)
	dec.MaxSize = o.maxSize
	c := &Conn{
		nc:      nc,
		dec:     dec,
		timeout: o.timeout,
		logger:  o.logger.With(zap.String("remote", address)),
		remote:  address,
	}
	if err := c.handshake(ctx, o.credentials); err != nil {
		_ = nc.Close()
		return nil, err
	}
	c.logger.Debug("connected")
	return c, nil
}

func (c *Conn) handshake(ctx context.Context, credentials string) error {
	stop := c.arm(ctx)
	defer stop()

	hello := make([]byte, 0, len(credentials)+2)
	hello = append(hello, credentials...)
	hello = append(hello, capability, 0)
	if _, err := c.nc.Write(hello); err != nil {
		return c.wrap(err, "handshake write failed")
	}
	var reply [1]byte
	if _, err := io.ReadFull(c.nc, reply[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return kdbmlerrors.New(kdbmlerrors.ErrorTypeConnection, "handshake rejected").
				WithDetail("address", c.remote)
		}
		return c.wrap(err, "handshake read failed")
	}
	c.logger.Debug("handshake complete", zap.Uint8("capability", reply[0]))
	return nil
}

// Query sends q as a synchronous request and returns the decoded response.
// A server-side error is returned as an Error-typed value, not as err.
func (c *Conn) Query(ctx context.Context, q string) (*K, error) {
	msg := NewString(q)
	defer msg.Release()
	return c.Call(ctx, msg)
}

// Call sends x as a synchronous request and returns the decoded response.
func (c *Conn) Call(ctx context.Context, x *K) (*K, error) {
	out, err := Encode(Sync, x)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	stop := c.arm(ctx)
	defer stop()

	if _, err := c.nc.Write(out); err != nil {
		return nil, c.wrap(err, "write request failed")
	}
	for {
		res, mt, err := c.read()
		if err != nil {
			return nil, err
		}
		if mt == Response {
			return res, nil
		}
		// the server may push async messages ahead of the response
		c.logger.Debug("skipping non-response message", zap.Uint8("msg_type", uint8(mt)))
		res.Release()
	}
}

// Flush performs the empty synchronous round trip that drains any pending
// output on the server before the connection is closed.
func (c *Conn) Flush(ctx context.Context) error {
	res, err := c.Query(ctx, "")
	res.Release()
	return err
}

// Close closes the connection.
func (c *Conn) Close() error {
	c.logger.Debug("closing")
	return c.nc.Close()
}

func (c *Conn) read() (*K, MsgType, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(c.nc, header[:]); err != nil {
		return nil, 0, c.wrap(err, "read header failed")
	}
	h, err := ParseHeader(header[:])
	if err != nil {
		return nil, 0, err
	}
	if err := c.dec.checkSize(h.Size); err != nil {
		// the body is never read, so the stream cannot be resynchronised
		_ = c.nc.Close()
		c.logger.Error("response too large", zap.Int("bytes", h.Size))
		return nil, h.MsgType, err.WithDetail("address", c.remote)
	}

	buf := pool.Messages.Get(h.Size)
	defer pool.Messages.Put(buf)
	copy(buf, header[:])
	if _, err := io.ReadFull(c.nc, buf[HeaderSize:]); err != nil {
		return nil, h.MsgType, c.wrap(err, "read body failed")
	}
	c.logger.Debug("message received",
		zap.Int("bytes", h.Size),
		zap.Bool("compressed", h.Compressed))
	return c.dec.Decode(buf)
}

// arm applies the context deadline (or the configured timeout) to the
// connection and interrupts blocked I/O when ctx is cancelled.
func (c *Conn) arm(ctx context.Context) (stop func()) {
	deadline, ok := ctx.Deadline()
	if !ok && c.timeout > 0 {
		deadline, ok = time.Now().Add(c.timeout), true
	}
	if ok {
		_ = c.nc.SetDeadline(deadline)
	} else {
		_ = c.nc.SetDeadline(time.Time{})
	}
	cancel := context.AfterFunc(ctx, func() {
		_ = c.nc.SetDeadline(time.Unix(1, 0))
	})
	return func() { cancel() }
}

func (c *Conn) wrap(err error, msg string) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeTimeout, msg).WithDetail("address", c.remote)
	}
	return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeConnection, msg).WithDetail("address", c.remote)
}
