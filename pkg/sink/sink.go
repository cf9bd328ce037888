// Package sink delivers exported bytes to stdout, a file, S3, GCS or Kafka.
//
// A sink buffers everything written to it. Close compresses the buffer, if
// compression is configured, and delivers it in one piece: one file, one
// object or one Kafka message.
package sink

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dmarienko/kdbml/pkg/compression"
	"github.com/dmarienko/kdbml/pkg/kdbmlerrors"
)

// Schemes.
const (
	SchemeStdout = "stdout"
	SchemeFile   = "file"
	SchemeS3     = "s3"
	SchemeGCS    = "gs"
	SchemeKafka  = "kafka"
)

// Target is a parsed output location.
type Target struct {
	Scheme string
	// Bucket is the S3 or GCS bucket; for Kafka the comma separated brokers
	Bucket string
	// Path is the file path, object key or Kafka topic
	Path string
}

// ParseTarget parses "-", a file path, file://path, s3://bucket/key,
// gs://bucket/object or kafka://broker[,broker]/topic.
func ParseTarget(target string) (Target, error) {
	if target == "" {
		return Target{}, kdbmlerrors.New(kdbmlerrors.ErrorTypeConfig, "empty output target")
	}
	if target == "-" {
		return Target{Scheme: SchemeStdout}, nil
	}
	scheme, rest, ok := strings.Cut(target, "://")
	if !ok {
		return Target{Scheme: SchemeFile, Path: target}, nil
	}
	switch scheme {
	case SchemeFile:
		if rest == "" {
			break
		}
		return Target{Scheme: SchemeFile, Path: rest}, nil
	case SchemeS3, SchemeGCS, SchemeKafka:
		bucket, path, _ := strings.Cut(rest, "/")
		if bucket == "" || path == "" {
			break
		}
		return Target{Scheme: scheme, Bucket: bucket, Path: path}, nil
	default:
		return Target{}, kdbmlerrors.Newf(kdbmlerrors.ErrorTypeConfig, "unsupported output scheme %q", scheme)
	}
	return Target{}, kdbmlerrors.Newf(kdbmlerrors.ErrorTypeConfig, "malformed output target %q", target)
}

// Options configure a sink.
type Options struct {
	Compression compression.Algorithm
	Level       compression.Level
	// Region for S3 when the AWS environment does not provide one
	Region string
	// CredentialsFile for GCS; application default credentials otherwise
	CredentialsFile string
	// Key is the Kafka message key
	Key    string
	Logger *zap.Logger
	// Stdout replaces os.Stdout for the "-" target
	Stdout io.Writer
}

// deliverFunc ships the final payload.
type deliverFunc func(ctx context.Context, t Target, data []byte, o *Options) error

var deliverers = map[string]deliverFunc{
	SchemeStdout: deliverStdout,
	SchemeFile:   deliverFile,
	SchemeS3:     deliverS3,
	SchemeGCS:    deliverGCS,
	SchemeKafka:  deliverKafka,
}

// Sink is an io.WriteCloser that delivers on Close.
type Sink struct {
	ctx     context.Context
	target  Target
	opts    Options
	deliver deliverFunc
	logger  *zap.Logger

	mu      sync.Mutex
	buf     bytes.Buffer
	closed  bool
	written int64
}

// Open returns a sink for target. Nothing is contacted until Close.
func Open(ctx context.Context, target string, opts Options) (*Sink, error) {
	t, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Compression == "" {
		opts.Compression = compression.None
	}
	if opts.Level == 0 {
		opts.Level = compression.Default
	}
	return &Sink{
		ctx:     ctx,
		target:  t,
		opts:    opts,
		deliver: deliverers[t.Scheme],
		logger: opts.Logger.With(
			zap.String("component", "sink"),
			zap.String("scheme", t.Scheme)),
	}, nil
}

// Target returns the parsed target.
func (s *Sink) Target() Target { return s.target }

// Write buffers p.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, kdbmlerrors.New(kdbmlerrors.ErrorTypeFile, "write to closed sink")
	}
	return s.buf.Write(p)
}

// Close compresses and delivers the buffered output. Calling Close twice is
// a no-op.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	data := s.buf.Bytes()
	if s.opts.Compression != compression.None {
		compressed, err := compression.Compress(data, s.opts.Compression, s.opts.Level)
		if err != nil {
			return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeFile, "compress output").
				WithDetail("algorithm", string(s.opts.Compression))
		}
		data = compressed
	}

	if err := s.deliver(s.ctx, s.target, data, &s.opts); err != nil {
		return err
	}
	s.written = int64(len(data))
	s.logger.Debug("output delivered",
		zap.String("bucket", s.target.Bucket),
		zap.String("path", s.target.Path),
		zap.Int("raw_bytes", s.buf.Len()),
		zap.Int64("bytes", s.written))
	return nil
}

// Written returns the number of bytes delivered, after compression.
func (s *Sink) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

func deliverStdout(_ context.Context, _ Target, data []byte, o *Options) error {
	w := o.Stdout
	if w == nil {
		w = os.Stdout
	}
	if _, err := w.Write(data); err != nil {
		return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeFile, "write stdout")
	}
	return nil
}

func deliverFile(_ context.Context, t Target, data []byte, _ *Options) error {
	if err := os.WriteFile(t.Path, data, 0644); err != nil { //nolint:gosec // exported data is not secret
		return kdbmlerrors.Wrap(err, kdbmlerrors.ErrorTypeFile, "write file").WithDetail("path", t.Path)
	}
	return nil
}
