package kx

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/dmarienko/kdbml/pkg/kdbmlerrors"
	stringpool "github.com/dmarienko/kdbml/pkg/strings"
)

// HeaderSize is the length of the IPC message header.
const HeaderSize = 8

// maxMessageSize bounds the size field of incoming headers.
const maxMessageSize = math.MaxInt32

// DefaultMaxMessageSize is the largest message, compressed or expanded, a
// connection accepts unless WithMaxMessageSize says otherwise.
const DefaultMaxMessageSize = 256 << 20

// Header is the fixed 8-byte IPC message header.
type Header struct {
	Order      binary.ByteOrder
	MsgType    MsgType
	Compressed bool
	// Size is the total message length including the header.
	Size int
}

// ParseHeader reads a message header from the first 8 bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, kdbmlerrors.Newf(kdbmlerrors.ErrorTypeData, "short header: %d bytes", len(b))
	}
	var order binary.ByteOrder = binary.BigEndian
	if b[0] == 1 {
		order = binary.LittleEndian
	}
	h := Header{
		Order:      order,
		MsgType:    MsgType(b[1]),
		Compressed: b[2] == 1,
		Size:       int(order.Uint32(b[4:8])),
	}
	if h.Size < HeaderSize || h.Size > maxMessageSize {
		return Header{}, kdbmlerrors.Newf(kdbmlerrors.ErrorTypeData, "invalid message size %d", h.Size)
	}
	return h, nil
}

// Decoder turns IPC messages into K values. Symbols are interned in the
// decoder's symbol table, which may be shared between decoders.
type Decoder struct {
	symbols *stringpool.SymbolTable
	// MaxSize rejects messages whose declared or uncompressed size exceeds
	// it. Zero applies only the protocol limit.
	MaxSize int
}

// NewDecoder creates a decoder. A nil table gets a private one.
func NewDecoder(symbols *stringpool.SymbolTable) *Decoder {
	if symbols == nil {
		symbols = stringpool.NewSymbolTable()
	}
	return &Decoder{symbols: symbols}
}

// Decode decodes a complete IPC message, header included, with a private
// symbol table.
func Decode(msg []byte) (*K, MsgType, error) {
	return NewDecoder(nil).Decode(msg)
}

// Decode decodes a complete IPC message, header included. The returned value
// does not alias msg.
func (dec *Decoder) Decode(msg []byte) (*K, MsgType, error) {
	h, err := ParseHeader(msg)
	if err != nil {
		return nil, 0, err
	}
	if len(msg) < h.Size {
		return nil, h.MsgType, kdbmlerrors.Newf(kdbmlerrors.ErrorTypeData,
			"truncated message: have %d of %d bytes", len(msg), h.Size)
	}
	if err := dec.checkSize(h.Size); err != nil {
		return nil, h.MsgType, err
	}
	msg = msg[:h.Size]
	if h.Compressed {
		if msg, err = uncompress(msg, h.Order, dec.limit()); err != nil {
			return nil, h.MsgType, err
		}
	}
	x, err := dec.DecodeValue(msg[HeaderSize:], h.Order)
	return x, h.MsgType, err
}

func (dec *Decoder) limit() int {
	if dec.MaxSize > 0 && dec.MaxSize < maxMessageSize {
		return dec.MaxSize
	}
	return maxMessageSize
}

func (dec *Decoder) checkSize(size int) *kdbmlerrors.Error {
	if limit := dec.limit(); size > limit {
		return kdbmlerrors.Newf(kdbmlerrors.ErrorTypeData,
			"message of %d bytes exceeds the %d byte limit", size, limit).
			WithDetail("size", size).
			WithDetail("limit", limit)
	}
	return nil
}

// DecodeValue decodes one value from a message body.
func (dec *Decoder) DecodeValue(body []byte, order binary.ByteOrder) (*K, error) {
	r := &reader{buf: body, order: order, symbols: dec.symbols}
	x := r.value()
	if r.err != nil {
		x.Release()
		return nil, r.err
	}
	if r.pos != len(body) {
		x.Release()
		return nil, kdbmlerrors.Newf(kdbmlerrors.ErrorTypeData,
			"%d trailing bytes after value", len(body)-r.pos)
	}
	return x, nil
}

// reader is a cursor over a message body with a sticky error: once a read
// fails every later read returns zero values.
type reader struct {
	buf     []byte
	pos     int
	order   binary.ByteOrder
	symbols *stringpool.SymbolTable
	err     error
}

func (r *reader) fail(err *kdbmlerrors.Error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.pos < n {
		r.fail(kdbmlerrors.Newf(kdbmlerrors.ErrorTypeData,
			"unexpected end of message at offset %d (need %d bytes)", r.pos, n))
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) byte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) int16() int16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return int16(r.order.Uint16(b))
}

func (r *reader) int32() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(r.order.Uint32(b))
}

func (r *reader) int64() int64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return int64(r.order.Uint64(b))
}

func (r *reader) float32() float32 { return math.Float32frombits(uint32(r.int32())) }
func (r *reader) float64() float64 { return math.Float64frombits(uint64(r.int64())) }

func (r *reader) guid() (g [16]byte) {
	copy(g[:], r.take(16))
	return g
}

// cstring reads a NUL-terminated string and interns it.
func (r *reader) cstring() string {
	if r.err != nil {
		return ""
	}
	end := bytes.IndexByte(r.buf[r.pos:], 0)
	if end < 0 {
		r.fail(kdbmlerrors.Newf(kdbmlerrors.ErrorTypeData, "unterminated symbol at offset %d", r.pos))
		return ""
	}
	s := r.symbols.Intern(r.buf[r.pos : r.pos+end])
	r.pos += end + 1
	return s
}

// count reads a vector length and checks it against the remaining bytes.
func (r *reader) count(width int) int {
	n := int(r.int32())
	if r.err != nil {
		return 0
	}
	if n < 0 || n*width > len(r.buf)-r.pos {
		r.fail(kdbmlerrors.Newf(kdbmlerrors.ErrorTypeData, "invalid vector length %d at offset %d", n, r.pos))
		return 0
	}
	return n
}

func (r *reader) value() *K {
	t := Type(int8(r.byte()))
	if r.err != nil {
		return nil
	}
	switch {
	case t == Error:
		return NewError(r.cstring())
	case t < 0:
		return r.atom(t)
	case t >= Mixed && t <= Time:
		return r.vector(t)
	case t == Table:
		r.byte() // attributes
		dict := r.value()
		if r.err != nil {
			dict.Release()
			return nil
		}
		if dict == nil || dict.Type != Dict {
			dict.Release()
			r.fail(kdbmlerrors.New(kdbmlerrors.ErrorTypeData, "table is not a flipped dictionary"))
			return nil
		}
		return newTableFromDict(dict)
	case t == Dict || t == SortedDict:
		key := r.value()
		val := r.value()
		if r.err != nil {
			key.Release()
			val.Release()
			return nil
		}
		x := NewDict(key, val)
		x.Type = t
		return x
	case t == UnaryPrim:
		return newK(UnaryPrim, r.byte())
	}
	r.fail(kdbmlerrors.Newf(kdbmlerrors.ErrorTypeCapability, "cannot decode type %d", int(t)))
	return nil
}

func (r *reader) atom(t Type) *K {
	var v interface{}
	switch -t {
	case Boolean:
		v = r.byte() != 0
	case GUID:
		v = r.guid()
	case Byte, Char:
		v = r.byte()
	case Short:
		v = r.int16()
	case Int, Month, Date, Minute, Second, Time:
		v = r.int32()
	case Long, Timestamp, Timespan:
		v = r.int64()
	case Real:
		v = r.float32()
	case Float, Datetime:
		v = r.float64()
	case Symbol:
		v = r.cstring()
	default:
		r.fail(kdbmlerrors.Newf(kdbmlerrors.ErrorTypeCapability, "cannot decode type %d", int(t)))
		return nil
	}
	if r.err != nil {
		return nil
	}
	return newK(t, v)
}

func (r *reader) vector(t Type) *K {
	attr := Attr(r.byte())
	width := 1
	if w, ok := elemWidths[t]; ok && w > 0 {
		width = w
	}
	n := r.count(width)
	if r.err != nil {
		return nil
	}

	var data interface{}
	switch t {
	case Mixed:
		items := make([]*K, 0, n)
		for i := 0; i < n; i++ {
			item := r.value()
			if r.err != nil {
				NewList(items...).Release()
				return nil
			}
			items = append(items, item)
		}
		data = items
	case Boolean:
		v := make([]bool, n)
		for i, b := range r.take(n) {
			v[i] = b != 0
		}
		data = v
	case GUID:
		v := make([][16]byte, n)
		for i := range v {
			v[i] = r.guid()
		}
		data = v
	case Byte, Char:
		v := make([]byte, n)
		copy(v, r.take(n))
		data = v
	case Short:
		v := make([]int16, n)
		for i := range v {
			v[i] = r.int16()
		}
		data = v
	case Int, Month, Date, Minute, Second, Time:
		v := make([]int32, n)
		for i := range v {
			v[i] = r.int32()
		}
		data = v
	case Long, Timestamp, Timespan:
		v := make([]int64, n)
		for i := range v {
			v[i] = r.int64()
		}
		data = v
	case Real:
		v := make([]float32, n)
		for i := range v {
			v[i] = r.float32()
		}
		data = v
	case Float, Datetime:
		v := make([]float64, n)
		for i := range v {
			v[i] = r.float64()
		}
		data = v
	case Symbol:
		v := make([]string, n)
		for i := range v {
			v[i] = r.cstring()
		}
		data = v
	default:
		r.fail(kdbmlerrors.Newf(kdbmlerrors.ErrorTypeCapability, "cannot decode vector type %d", int(t)))
		return nil
	}
	if r.err != nil {
		return nil
	}
	x := newK(t, data)
	x.Attr = attr
	return x
}

// Uncompress expands a compressed IPC message (header included) into an
// uncompressed one with the compressed flag cleared.
func Uncompress(msg []byte, order binary.ByteOrder) ([]byte, error) {
	return uncompress(msg, order, maxMessageSize)
}

func uncompress(msg []byte, order binary.ByteOrder, limit int) ([]byte, error) {
	if len(msg) < HeaderSize+4 {
		return nil, kdbmlerrors.New(kdbmlerrors.ErrorTypeData, "compressed message too short")
	}
	size := int(order.Uint32(msg[HeaderSize : HeaderSize+4]))
	if size < HeaderSize || size > limit {
		return nil, kdbmlerrors.Newf(kdbmlerrors.ErrorTypeData, "invalid uncompressed size %d", size).
			WithDetail("limit", limit)
	}
	dst := make([]byte, size)
	copy(dst, msg[:HeaderSize])
	dst[2] = 0
	order.PutUint32(dst[4:8], uint32(size))

	corrupt := kdbmlerrors.New(kdbmlerrors.ErrorTypeData, "corrupt compressed message")
	var table [256]int
	s, p, d := HeaderSize, HeaderSize, HeaderSize+4
	var flags, n int
	bit := 0
	for s < size {
		if bit == 0 {
			if d >= len(msg) {
				return nil, corrupt
			}
			flags = int(msg[d])
			d++
			bit = 1
		}
		backref := flags&bit != 0
		if backref {
			if d+1 >= len(msg) {
				return nil, corrupt
			}
			r := table[msg[d]]
			n = int(msg[d+1])
			d += 2
			if s+2+n > size || r+2+n > size {
				return nil, corrupt
			}
			dst[s], dst[s+1] = dst[r], dst[r+1]
			s += 2
			r += 2
			for m := 0; m < n; m++ {
				dst[s+m] = dst[r+m]
			}
		} else {
			if d >= len(msg) {
				return nil, corrupt
			}
			dst[s] = msg[d]
			s++
			d++
		}
		for p < s-1 {
			table[dst[p]^dst[p+1]] = p
			p++
		}
		if backref {
			s += n
			p = s
		}
		bit <<= 1
		if bit == 256 {
			bit = 0
		}
	}
	return dst, nil
}

// Encode serializes x as a little-endian, uncompressed IPC message.
func Encode(mt MsgType, x *K) ([]byte, error) {
	w := &writer{buf: make([]byte, HeaderSize, HeaderSize+64)}
	w.buf[0] = 1
	w.buf[1] = byte(mt)
	if err := w.value(x); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint32(w.buf[4:8], uint32(len(w.buf)))
	return w.buf, nil
}

type writer struct {
	buf []byte
}

func (w *writer) byte(b byte)    { w.buf = append(w.buf, b) }
func (w *writer) int16(v int16)  { w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(v)) }
func (w *writer) int32(v int32)  { w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v)) }
func (w *writer) int64(v int64)  { w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v)) }
func (w *writer) cstring(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

func (w *writer) value(x *K) error {
	if x == nil {
		return kdbmlerrors.New(kdbmlerrors.ErrorTypeData, "cannot encode nil value")
	}
	w.byte(byte(x.Type))
	switch {
	case x.Type == Error:
		w.cstring(x.ErrorMessage())
		return nil
	case x.Type < 0:
		return w.atom(x)
	case x.Type.IsVector():
		return w.vector(x)
	case x.Type == Table:
		w.byte(byte(x.Attr))
		return w.value(x.Data.(*K))
	case x.Type == Dict || x.Type == SortedDict:
		key, val, _ := x.DictParts()
		if err := w.value(key); err != nil {
			return err
		}
		return w.value(val)
	case x.Type == UnaryPrim:
		b, _ := x.Data.(byte)
		w.byte(b)
		return nil
	}
	return kdbmlerrors.Newf(kdbmlerrors.ErrorTypeCapability, "cannot encode type %d", int(x.Type))
}

func (w *writer) atom(x *K) error {
	switch v := x.Data.(type) {
	case bool:
		if v {
			w.byte(1)
		} else {
			w.byte(0)
		}
	case [16]byte:
		w.buf = append(w.buf, v[:]...)
	case byte:
		w.byte(v)
	case int16:
		w.int16(v)
	case int32:
		w.int32(v)
	case int64:
		w.int64(v)
	case float32:
		w.int32(int32(math.Float32bits(v)))
	case float64:
		w.int64(int64(math.Float64bits(v)))
	case string:
		w.cstring(v)
	default:
		return kdbmlerrors.Newf(kdbmlerrors.ErrorTypeData, "%s atom has payload %T", x.Type, x.Data)
	}
	return nil
}

func (w *writer) vector(x *K) error {
	w.byte(byte(x.Attr))
	w.int32(int32(x.Len()))
	switch v := x.Data.(type) {
	case []*K:
		for _, item := range v {
			if err := w.value(item); err != nil {
				return err
			}
		}
	case []bool:
		for _, b := range v {
			if b {
				w.byte(1)
			} else {
				w.byte(0)
			}
		}
	case [][16]byte:
		for _, g := range v {
			w.buf = append(w.buf, g[:]...)
		}
	case []byte:
		w.buf = append(w.buf, v...)
	case []int16:
		for _, e := range v {
			w.int16(e)
		}
	case []int32:
		for _, e := range v {
			w.int32(e)
		}
	case []int64:
		for _, e := range v {
			w.int64(e)
		}
	case []float32:
		for _, e := range v {
			w.int32(int32(math.Float32bits(e)))
		}
	case []float64:
		for _, e := range v {
			w.int64(int64(math.Float64bits(e)))
		}
	case []string:
		for _, s := range v {
			w.cstring(s)
		}
	default:
		return kdbmlerrors.Newf(kdbmlerrors.ErrorTypeData, "%s vector has payload %T", x.Type, x.Data)
	}
	return nil
}
