// Package strings provides pooled string building, zero-copy conversions and
// symbol interning for kdbml.
//
// kdb+ symbols are interned on the server; decoding a large symbol column
// produces the same few strings many times over. SymbolTable keeps one copy
// of each so a decoded table shares its symbol storage.
package strings

import (
	"fmt"
	"sync"
	"unsafe"
)

// BytesToString converts a byte slice to a string without copying.
// The byte slice must not be modified afterwards.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// Clone returns a copy of s that owns its memory.
func Clone(s string) string {
	if len(s) == 0 {
		return ""
	}
	b := make([]byte, len(s))
	copy(b, s)
	return BytesToString(b)
}

// Builder is an append-only byte buffer that implements io.Writer.
type Builder struct {
	buf []byte
}

// NewBuilder creates a builder with the given initial capacity.
func NewBuilder(capacity int) *Builder {
	return &Builder{buf: make([]byte, 0, capacity)}
}

func (b *Builder) WriteString(s string) { b.buf = append(b.buf, s...) }

func (b *Builder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

func (b *Builder) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// String returns the accumulated content. The result aliases the builder's
// buffer and is only valid until the next write or Reset.
func (b *Builder) String() string { return BytesToString(b.buf) }

func (b *Builder) Bytes() []byte { return b.buf }
func (b *Builder) Len() int      { return len(b.buf) }
func (b *Builder) Reset()        { b.buf = b.buf[:0] }

// BuilderSize selects one of the builder pools.
type BuilderSize int

const (
	Small  BuilderSize = iota // < 1KB
	Medium                    // 1KB - 16KB
	Large                     // 16KB+
)

var builderPools = [...]*sync.Pool{
	Small:  {New: func() interface{} { return NewBuilder(1024) }},
	Medium: {New: func() interface{} { return NewBuilder(16 * 1024) }},
	Large:  {New: func() interface{} { return NewBuilder(64 * 1024) }},
}

func sizeFor(n int) BuilderSize {
	switch {
	case n > 16*1024:
		return Large
	case n > 1024:
		return Medium
	}
	return Small
}

// GetBuilder takes an empty builder from the pool of the given size.
func GetBuilder(size BuilderSize) *Builder {
	if size < Small || size > Large {
		size = Small
	}
	b := builderPools[size].Get().(*Builder)
	b.Reset()
	return b
}

// PutBuilder returns a builder to its pool.
func PutBuilder(b *Builder, size BuilderSize) {
	if b == nil {
		return
	}
	if size < Small || size > Large {
		size = Small
	}
	b.Reset()
	builderPools[size].Put(b)
}

// Sprintf formats into a pooled builder and returns an owned string.
func Sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	size := sizeFor(len(format) + len(args)*16)
	b := GetBuilder(size)
	defer PutBuilder(b, size)
	fmt.Fprintf(b, format, args...)
	return Clone(b.String())
}

// SymbolTable interns strings. It is safe for concurrent use.
type SymbolTable struct {
	mu      sync.RWMutex
	symbols map[string]string
}

// NewSymbolTable creates an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]string)}
}

// Intern returns the canonical copy of the symbol held in b. b may be reused
// by the caller afterwards.
func (st *SymbolTable) Intern(b []byte) string {
	st.mu.RLock()
	// the map lookup with a converted key does not allocate
	s, ok := st.symbols[string(b)]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.symbols[string(b)]; ok {
		return s
	}
	s = string(b)
	st.symbols[s] = s
	return s
}

// Len returns the number of distinct symbols.
func (st *SymbolTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.symbols)
}

// Reset drops all interned symbols.
func (st *SymbolTable) Reset() {
	st.mu.Lock()
	st.symbols = make(map[string]string)
	st.mu.Unlock()
}

// CSVBuilder builds RFC 4180 CSV text in a pooled builder.
type CSVBuilder struct {
	builder  *Builder
	size     BuilderSize
	rowCount int
}

// NewCSVBuilder creates a CSV builder sized for the expected shape.
func NewCSVBuilder(estimatedRows, estimatedCols int) *CSVBuilder {
	size := sizeFor(estimatedRows * estimatedCols * 20)
	return &CSVBuilder{builder: GetBuilder(size), size: size}
}

// WriteHeader writes the header line.
func (cb *CSVBuilder) WriteHeader(headers []string) {
	cb.writeLine(headers)
}

// WriteRow writes one record.
func (cb *CSVBuilder) WriteRow(fields []string) {
	cb.writeLine(fields)
	cb.rowCount++
}

// Rows returns the number of records written.
func (cb *CSVBuilder) Rows() int { return cb.rowCount }

func (cb *CSVBuilder) writeLine(fields []string) {
	for i, f := range fields {
		if i > 0 {
			_ = cb.builder.WriteByte(',')
		}
		cb.writeField(f)
	}
	_ = cb.builder.WriteByte('\n')
}

func (cb *CSVBuilder) writeField(field string) {
	quote := false
	for i := 0; i < len(field); i++ {
		switch field[i] {
		case ',', '"', '\n', '\r':
			quote = true
		}
	}
	if !quote {
		cb.builder.WriteString(field)
		return
	}
	_ = cb.builder.WriteByte('"')
	for i := 0; i < len(field); i++ {
		if field[i] == '"' {
			cb.builder.WriteString(`""`)
			continue
		}
		_ = cb.builder.WriteByte(field[i])
	}
	_ = cb.builder.WriteByte('"')
}

// String returns an owned copy of the CSV text.
func (cb *CSVBuilder) String() string {
	return Clone(cb.builder.String())
}

// Close returns the builder to its pool.
func (cb *CSVBuilder) Close() {
	if cb.builder != nil {
		PutBuilder(cb.builder, cb.size)
		cb.builder = nil
	}
}
