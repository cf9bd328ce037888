package convert

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dmarienko/kdbml/pkg/kdbmlerrors"
	"github.com/dmarienko/kdbml/pkg/kx"
	"github.com/dmarienko/kdbml/pkg/logger"
	"github.com/dmarienko/kdbml/pkg/metrics"
	"github.com/dmarienko/kdbml/pkg/mx"
)

// State is the dispatcher state.
type State int

const (
	StateStart State = iota
	StateDispatched
	StateDone
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateDispatched:
		return "dispatched"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Diagnostic is a non-fatal conversion problem. The slot it concerns is left
// empty.
type Diagnostic struct {
	Reason  string
	Type    kx.Type
	Message string
}

// Result is the outcome of one dispatch.
type Result struct {
	Value mx.Array
	State State
	// Kind is the dispatcher branch taken, one of the metrics.Kind* values.
	Kind        string
	Err         error
	Diagnostics []Diagnostic
}

// Degraded reports whether the conversion finished with empty slots.
func (r Result) Degraded() bool { return len(r.Diagnostics) > 0 }

// Converter turns kx values into host values. It holds no per-call state and
// is safe for concurrent use.
type Converter struct {
	logger    *zap.Logger
	collector *metrics.Collector
}

// Option configures a Converter.
type Option func(*Converter)

// WithCollector sets the metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(conv *Converter) { conv.collector = c }
}

// New creates a converter. A nil logger discards diagnostics.
func New(logger *zap.Logger, opts ...Option) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Converter{
		logger:    logger.With(zap.String("component", "converter")),
		collector: metrics.NewCollector("converter"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert dispatches x and returns the host value, or the error that stopped
// the dispatch. Diagnostics are logged but not returned.
func (c *Converter) Convert(x *kx.K) (mx.Array, error) {
	res := c.Dispatch(x)
	return res.Value, res.Err
}

// Dispatch converts a complete query result of unknown type.
func (c *Converter) Dispatch(x *kx.K) Result {
	return c.DispatchContext(context.Background(), x)
}

// DispatchContext is Dispatch with log lines carrying the request ID, host
// and query stored in ctx.
func (c *Converter) DispatchContext(ctx context.Context, x *kx.K) (res Result) {
	timer := metrics.NewTimer()
	r := &run{conv: c, logger: logger.FromContext(ctx, c.logger)}
	res.State = StateStart
	res.Kind = metrics.KindNone

	defer func() {
		if p := recover(); p != nil {
			res.Value = nil
			res.State = StateErrored
			res.Err = kdbmlerrors.Newf(kdbmlerrors.ErrorTypeInternal, "conversion panicked: %v", p)
			r.logger.Error("conversion panicked", zap.Any("panic", p))
		}
		res.Diagnostics = r.diags
		status := metrics.StatusOK
		switch {
		case res.State == StateErrored:
			status = metrics.StatusFailed
		case res.Degraded():
			status = metrics.StatusDegraded
		}
		c.collector.RecordConversion(res.Kind, status, timer.Stop())
	}()

	if x == nil {
		r.diag(metrics.ReasonNoResult, 0, "cannot retrieve result")
		res.State = StateErrored
		res.Err = kdbmlerrors.New(kdbmlerrors.ErrorTypeQuery, "cannot retrieve result")
		return res
	}
	r.logger.Debug("received value", zap.Int("type", int(x.Type)), zap.Stringer("type_name", x.Type))

	if x.Type == kx.Error {
		msg := x.ErrorMessage()
		r.logger.Error("kdb+ error", zap.String("message", msg))
		c.collector.RecordDiagnostic(metrics.ReasonQueryError)
		res.Kind = metrics.KindError
		res.State = StateErrored
		res.Err = kdbmlerrors.New(kdbmlerrors.ErrorTypeQuery, msg)
		return res
	}

	res.State = StateDispatched
	switch {
	case x.Type < 0:
		res.Kind = metrics.KindAtom
		res.Value = r.atom(x)
	case x.Type <= kx.Time:
		res.Kind = metrics.KindVector
		res.Value = r.vector(x)
	case x.Type == kx.Table:
		res.Kind = metrics.KindTable
		res.Value = r.table(x)
	case x.Type == kx.Dict:
		res.Kind = metrics.KindDict
		res.Value = r.dict(x)
	case x.Type == kx.UnaryPrim:
		res.Kind = metrics.KindVoid
		res.Value = mx.NewLogicalScalar(true)
	default:
		msg := fmt.Sprintf("type %d is not supported", int(x.Type))
		r.diag(metrics.ReasonUnsupportedType, x.Type, msg)
		res.Kind = metrics.KindOther
		res.State = StateErrored
		res.Err = kdbmlerrors.New(kdbmlerrors.ErrorTypeCapability, msg).
			WithDetail("type", int(x.Type))
		return res
	}
	res.State = StateDone
	return res
}

// Atom converts one atom. Unsupported types yield nil and one logged
// diagnostic.
func (c *Converter) Atom(x *kx.K) mx.Array { return c.newRun().atom(x) }

// Vector converts a homogeneous vector or a mixed list.
func (c *Converter) Vector(x *kx.K) mx.Array { return c.newRun().vector(x) }

// Table converts a table or keyed table into a struct of columns.
func (c *Converter) Table(x *kx.K) mx.Array { return c.newRun().table(x) }

// Dict converts a dictionary into a struct with one field per key.
func (c *Converter) Dict(x *kx.K) mx.Array { return c.newRun().dict(x) }

// run carries the diagnostics of one conversion.
type run struct {
	conv   *Converter
	logger *zap.Logger
	diags  []Diagnostic
}

func (c *Converter) newRun() *run { return &run{conv: c, logger: c.logger} }

func (r *run) diag(reason string, t kx.Type, msg string) {
	r.diags = append(r.diags, Diagnostic{Reason: reason, Type: t, Message: msg})
	r.conv.collector.RecordDiagnostic(reason)
	r.logger.Warn(msg, zap.String("reason", reason), zap.Int("type", int(t)))
}

func (r *run) unsupported(x *kx.K, context string) {
	r.diag(metrics.ReasonUnsupportedType, x.Type,
		fmt.Sprintf("%scannot support %d type", context, int(x.Type)))
}
