// Package json wraps goccy/go-json and provides Writer, an append-only JSON
// builder for values whose shape is only known at run time.
package json

import (
	"bytes"
	"io"
	"math"
	"strconv"

	gojson "github.com/goccy/go-json"
)

// NewEncoder returns an encoder that does not escape HTML.
func NewEncoder(w io.Writer) *gojson.Encoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// Writer builds a JSON document by appending tokens. Commas are inserted
// automatically between values of the same container.
type Writer struct {
	buf []byte
	// first[i] is true until the container at depth i receives a value
	first []bool
	// afterKey is set between Key and the value it names
	afterKey bool

	scratch bytes.Buffer
	enc     *gojson.Encoder
}

// NewWriter creates a writer with the given initial capacity.
func NewWriter(initialSize int) *Writer {
	return &Writer{buf: make([]byte, 0, initialSize)}
}

func (w *Writer) sep() {
	if w.afterKey {
		w.afterKey = false
		return
	}
	if n := len(w.first); n > 0 {
		if !w.first[n-1] {
			w.buf = append(w.buf, ',')
		}
		w.first[n-1] = false
	}
}

// BeginObject opens an object.
func (w *Writer) BeginObject() {
	w.sep()
	w.buf = append(w.buf, '{')
	w.first = append(w.first, true)
}

// EndObject closes the innermost object.
func (w *Writer) EndObject() {
	w.first = w.first[:len(w.first)-1]
	w.buf = append(w.buf, '}')
}

// BeginArray opens an array.
func (w *Writer) BeginArray() {
	w.sep()
	w.buf = append(w.buf, '[')
	w.first = append(w.first, true)
}

// EndArray closes the innermost array.
func (w *Writer) EndArray() {
	w.first = w.first[:len(w.first)-1]
	w.buf = append(w.buf, ']')
}

// Key writes an object key. The next value belongs to it.
func (w *Writer) Key(k string) {
	w.sep()
	w.appendString(k)
	w.buf = append(w.buf, ':')
	w.afterKey = true
}

// String writes an escaped string.
func (w *Writer) String(s string) {
	w.sep()
	w.appendString(s)
}

// Float writes f. NaN becomes null and infinities become the strings "Inf"
// and "-Inf", which JSON cannot express as numbers.
func (w *Writer) Float(f float64) {
	switch {
	case math.IsNaN(f):
		w.Null()
	case math.IsInf(f, 1):
		w.String("Inf")
	case math.IsInf(f, -1):
		w.String("-Inf")
	default:
		w.sep()
		format := byte('f')
		if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
			format = 'e'
		}
		w.buf = strconv.AppendFloat(w.buf, f, format, -1, 64)
	}
}

// Bool writes a boolean.
func (w *Writer) Bool(b bool) {
	w.sep()
	w.buf = strconv.AppendBool(w.buf, b)
}

// Null writes null.
func (w *Writer) Null() {
	w.sep()
	w.buf = append(w.buf, "null"...)
}

func (w *Writer) appendString(s string) {
	if w.enc == nil {
		w.enc = NewEncoder(&w.scratch)
	}
	w.scratch.Reset()
	// encoding a string cannot fail
	_ = w.enc.Encode(s)
	w.buf = append(w.buf, bytes.TrimSuffix(w.scratch.Bytes(), []byte{'\n'})...)
}

// Bytes returns the accumulated JSON bytes
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteTo writes the document to dst.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write(w.buf)
	return int64(n), err
}

// Reset resets the writer for reuse
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.first = w.first[:0]
	w.afterKey = false
}
