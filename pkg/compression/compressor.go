// Package compression wraps exported output in a compressed stream. The
// algorithms are the ones kdbml offers for --compression: gzip, snappy, s2,
// zstd, lz4 and deflate.
package compression

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/dmarienko/kdbml/pkg/pool"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents framed snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents framed lz4 compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents raw deflate compression
	Deflate Algorithm = "deflate"
)

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

type codec struct {
	ext       string
	newWriter func(w io.Writer, level Level) (io.WriteCloser, error)
	newReader func(r io.Reader) (io.ReadCloser, error)
}

var codecs = map[Algorithm]codec{
	Gzip: {".gz",
		func(w io.Writer, l Level) (io.WriteCloser, error) { return gzip.NewWriterLevel(w, flateLevel(l)) },
		func(r io.Reader) (io.ReadCloser, error) { return gzip.NewReader(r) },
	},
	Deflate: {".deflate",
		func(w io.Writer, l Level) (io.WriteCloser, error) { return flate.NewWriter(w, flateLevel(l)) },
		func(r io.Reader) (io.ReadCloser, error) { return flate.NewReader(r), nil },
	},
	Snappy: {".sz",
		func(w io.Writer, _ Level) (io.WriteCloser, error) { return snappy.NewBufferedWriter(w), nil },
		func(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(snappy.NewReader(r)), nil },
	},
	S2: {".s2",
		func(w io.Writer, l Level) (io.WriteCloser, error) { return s2.NewWriter(w, s2Options(l)...), nil },
		func(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(s2.NewReader(r)), nil },
	},
	Zstd: {".zst",
		func(w io.Writer, l Level) (io.WriteCloser, error) {
			return zstd.NewWriter(w, zstd.WithEncoderLevel(zstdLevel(l)))
		},
		func(r io.Reader) (io.ReadCloser, error) {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return dec.IOReadCloser(), nil
		},
	},
	LZ4: {".lz4",
		func(w io.Writer, l Level) (io.WriteCloser, error) {
			zw := lz4.NewWriter(w)
			if err := zw.Apply(lz4.CompressionLevelOption(lz4Level(l))); err != nil {
				return nil, err
			}
			return zw, nil
		},
		func(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(lz4.NewReader(r)), nil },
	},
}

// Parse returns the algorithm named s. The empty string means None.
func Parse(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if a == "" || a == None {
		return None, nil
	}
	if _, ok := codecs[a]; !ok {
		return "", fmt.Errorf("unsupported compression algorithm: %s", s)
	}
	return a, nil
}

// Extension returns the conventional file suffix, "" for None.
func (a Algorithm) Extension() string {
	return codecs[a].ext
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter returns a writer compressing into w. Close flushes the stream
// but does not close w.
func NewWriter(w io.Writer, a Algorithm, level Level) (io.WriteCloser, error) {
	if a == "" || a == None {
		return nopWriteCloser{w}, nil
	}
	c, ok := codecs[a]
	if !ok {
		return nil, fmt.Errorf("unsupported compression algorithm: %s", a)
	}
	return c.newWriter(w, level)
}

// NewReader returns a reader decompressing r.
func NewReader(r io.Reader, a Algorithm) (io.ReadCloser, error) {
	if a == "" || a == None {
		return io.NopCloser(r), nil
	}
	c, ok := codecs[a]
	if !ok {
		return nil, fmt.Errorf("unsupported compression algorithm: %s", a)
	}
	return c.newReader(r)
}

// Compress compresses data in one call.
func Compress(data []byte, a Algorithm, level Level) ([]byte, error) {
	buf := pool.Buffers.Get()
	defer pool.Buffers.Put(buf)

	w, err := NewWriter(buf, a, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// Decompress reverses Compress.
func Decompress(data []byte, a Algorithm) ([]byte, error) {
	r, err := NewReader(bytes.NewReader(data), a)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf := pool.Buffers.Get()
	defer pool.Buffers.Put(buf)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

func flateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}

func s2Options(level Level) []s2.WriterOption {
	switch level {
	case Better:
		return []s2.WriterOption{s2.WriterBetterCompression()}
	case Best:
		return []s2.WriterOption{s2.WriterBestCompression()}
	}
	return nil
}

func lz4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func zstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
