// Package bridge runs one host call end to end: validate the arguments, open
// a connection, send the query, convert the answer, then flush and close.
package bridge

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmarienko/kdbml/pkg/convert"
	"github.com/dmarienko/kdbml/pkg/kdbmlerrors"
	"github.com/dmarienko/kdbml/pkg/kx"
	"github.com/dmarienko/kdbml/pkg/logger"
	"github.com/dmarienko/kdbml/pkg/metrics"
	"github.com/dmarienko/kdbml/pkg/mx"
	"github.com/dmarienko/kdbml/pkg/observability"
)

// Querier is an open connection to a kdb+ process.
type Querier interface {
	Query(ctx context.Context, q string) (*kx.K, error)
	Flush(ctx context.Context) error
	Close() error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, host string, port int) (Querier, error)
}

// KxDialer dials real kdb+ processes with kx.Dial.
type KxDialer struct {
	Options []kx.DialOption
}

// Dial implements Dialer.
func (d KxDialer) Dial(ctx context.Context, host string, port int) (Querier, error) {
	return kx.Dial(ctx, host, port, d.Options...)
}

// Bridge executes calls against kdb+.
type Bridge struct {
	dialer    Dialer
	conv      *convert.Converter
	logger    *zap.Logger
	collector *metrics.Collector
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithConverter sets the converter used for query results.
func WithConverter(c *convert.Converter) Option {
	return func(b *Bridge) { b.conv = c }
}

// WithCollector sets the metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(b *Bridge) { b.collector = c }
}

// New creates a bridge over dialer.
func New(dialer Dialer, log *zap.Logger, opts ...Option) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Bridge{
		dialer:    dialer,
		logger:    log.With(zap.String("component", "bridge")),
		collector: metrics.NewCollector("bridge"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.conv == nil {
		b.conv = convert.New(log, convert.WithCollector(b.collector))
	}
	return b
}

// Call validates args and runs the query they describe. The returned error is
// non-nil only for invalid arguments; connection and query failures are
// reported in the Result.
func (b *Bridge) Call(ctx context.Context, args ...mx.Array) (convert.Result, error) {
	a, err := ParseArgs(args...)
	if err != nil {
		b.logger.Debug("invalid arguments", zap.Error(err))
		return convert.Result{State: convert.StateStart, Kind: metrics.KindNone}, err
	}
	return b.Run(ctx, a), nil
}

// Run executes a validated call. A request ID is generated unless ctx
// already carries one.
func (b *Bridge) Run(ctx context.Context, a Args) convert.Result {
	id, ok := logger.RequestID(ctx)
	if !ok {
		id = uuid.NewString()
		ctx = logger.WithRequestID(ctx, id)
	}
	ctx = logger.WithQuery(logger.WithHost(ctx, a.Host), a.Query)
	log := logger.FromContext(ctx, b.logger).With(zap.Int("port", a.Port))

	ctx, span := observability.StartSpan(ctx, "call")
	defer span.End()
	span.SetAttribute("kdb.host", a.Host)
	span.SetAttribute("kdb.port", a.Port)
	span.SetAttribute("kdbml.request_id", id)

	var conn Querier
	err := observability.Trace(ctx, "dial", func(ctx context.Context) error {
		var err error
		conn, err = b.dialer.Dial(ctx, a.Host, a.Port)
		return err
	})
	if err != nil {
		log.Error("connection failed", zap.Error(err))
		span.Fail(err)
		return convert.Result{State: convert.StateErrored, Kind: metrics.KindNone, Err: err}
	}
	b.collector.ConnectionOpened()
	defer func() {
		if err := conn.Flush(ctx); err != nil {
			log.Warn("flush failed", zap.Error(err))
		}
		if err := conn.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
		b.collector.ConnectionClosed()
	}()

	var x *kx.K
	start := time.Now()
	err = observability.Trace(ctx, "query", func(ctx context.Context) error {
		var err error
		x, err = conn.Query(ctx, a.Query)
		return err
	})
	if err != nil {
		b.collector.RecordQuery(metrics.StatusFailed, time.Since(start))
		log.Error("query failed", zap.Error(err))
		span.Fail(err)
		return convert.Result{State: convert.StateErrored, Kind: metrics.KindNone, Err: err}
	}
	b.collector.RecordQuery(metrics.StatusOK, time.Since(start))
	defer x.Release()

	var res convert.Result
	_ = observability.Trace(ctx, "convert", func(ctx context.Context) error {
		res = b.conv.DispatchContext(ctx, x)
		return res.Err
	})
	span.SetAttribute("kdbml.kind", res.Kind)
	span.SetAttribute("kdbml.diagnostics", len(res.Diagnostics))
	if res.Err != nil && !kdbmlerrors.IsType(res.Err, kdbmlerrors.ErrorTypeQuery) {
		span.Fail(res.Err)
	}
	log.Debug("call finished",
		zap.Stringer("state", res.State),
		zap.String("kind", res.Kind),
		zap.String("value", mx.Describe(res.Value)))
	return res
}
