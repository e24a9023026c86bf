// Package savegame encodes an ordered sequence of typed fields for the
// save/restore of game objects.
//
// Each value is written as a protobuf wire-format field whose number is its
// position in the sequence. A Reader checks that fields arrive in exactly the
// order and wire type the writer used, so a save whose layout drifted from
// the code fails loudly instead of restoring garbage.
package savegame

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"google.golang.org/protobuf/encoding/protowire"
)

var (
	// ErrFieldOrder is returned when a field arrives out of sequence.
	ErrFieldOrder = errors.New("savegame: field out of order")
	// ErrWireType is returned when a field has an unexpected wire type.
	ErrWireType = errors.New("savegame: unexpected wire type")
	// ErrTruncated is returned when the data ends before a field is complete.
	ErrTruncated = errors.New("savegame: truncated data")
	// ErrBadRef is returned when an object reference is outside the id range.
	ErrBadRef = errors.New("savegame: object reference out of range")
)

// Writer appends fields in sequence. The zero value is ready to use.
type Writer struct {
	buf  []byte
	next protowire.Number
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) tag(t protowire.Type) {
	w.next++
	w.buf = protowire.AppendTag(w.buf, w.next, t)
}

// WriteInt appends a signed integer.
func (w *Writer) WriteInt(v int) {
	w.WriteInt64(int64(v))
}

// WriteInt64 appends a signed 64-bit integer.
func (w *Writer) WriteInt64(v int64) {
	w.tag(protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, protowire.EncodeZigZag(v))
}

// WriteBool appends a boolean.
func (w *Writer) WriteBool(v bool) {
	w.tag(protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, protowire.EncodeBool(v))
}

// WriteFloat appends a float64 bit-exactly.
func (w *Writer) WriteFloat(v float64) {
	w.tag(protowire.Fixed64Type)
	w.buf = protowire.AppendFixed64(w.buf, math.Float64bits(v))
}

// WriteDuration appends a duration with nanosecond precision.
func (w *Writer) WriteDuration(d time.Duration) {
	w.WriteInt64(int64(d))
}

// WriteString appends a string.
func (w *Writer) WriteString(s string) {
	w.tag(protowire.BytesType)
	w.buf = protowire.AppendString(w.buf, s)
}

// WriteVec3 appends a vector as three packed float64s.
func (w *Writer) WriteVec3(v mgl64.Vec3) {
	w.writeFloats(v[:])
}

// WriteMat3 appends a matrix as nine packed float64s in column order.
func (w *Writer) WriteMat3(m mgl64.Mat3) {
	w.writeFloats(m[:])
}

func (w *Writer) writeFloats(vs []float64) {
	w.tag(protowire.BytesType)
	packed := make([]byte, 0, 8*len(vs))
	for _, v := range vs {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	w.buf = protowire.AppendBytes(w.buf, packed)
}

// WriteObjectRef appends a reference to another saved object by spawn id.
// ok false records an absent reference.
//
// Present ids are stored as their unsigned 32-bit pattern, so every int32
// survives the round trip and -1 stays free to mean absent.
func (w *Writer) WriteObjectRef(id int32, ok bool) {
	if !ok {
		w.WriteInt64(-1)
		return
	}
	w.WriteInt64(int64(uint32(id)))
}

// Len returns the number of fields written.
func (w *Writer) Len() int {
	return int(w.next)
}

// Bytes returns the encoded sequence.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reader consumes fields in the order a Writer produced them.
//
// Reader errors are sticky: after the first failure every read returns the
// zero value and Err reports the failure.
type Reader struct {
	buf  []byte
	next protowire.Number
	err  error
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Err returns the first error encountered.
func (r *Reader) Err() error {
	return r.err
}

// Remaining reports whether unread fields remain.
func (r *Reader) Remaining() bool {
	return r.err == nil && len(r.buf) > 0
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) tag(want protowire.Type) bool {
	if r.err != nil {
		return false
	}
	num, typ, n := protowire.ConsumeTag(r.buf)
	if n < 0 {
		r.fail(fmt.Errorf("%w: field %d: %v", ErrTruncated, r.next+1, protowire.ParseError(n)))
		return false
	}
	if num != r.next+1 {
		r.fail(fmt.Errorf("%w: expected field %d, found %d", ErrFieldOrder, r.next+1, num))
		return false
	}
	if typ != want {
		r.fail(fmt.Errorf("%w: field %d: expected %v, found %v", ErrWireType, num, want, typ))
		return false
	}
	r.next = num
	r.buf = r.buf[n:]
	return true
}

func (r *Reader) consumed(n int) bool {
	if n < 0 {
		r.fail(fmt.Errorf("%w: field %d: %v", ErrTruncated, r.next, protowire.ParseError(n)))
		return false
	}
	r.buf = r.buf[n:]
	return true
}

// ReadInt reads a signed integer.
func (r *Reader) ReadInt() int {
	return int(r.ReadInt64())
}

// ReadInt64 reads a signed 64-bit integer.
func (r *Reader) ReadInt64() int64 {
	if !r.tag(protowire.VarintType) {
		return 0
	}
	v, n := protowire.ConsumeVarint(r.buf)
	if !r.consumed(n) {
		return 0
	}
	return protowire.DecodeZigZag(v)
}

// ReadBool reads a boolean.
func (r *Reader) ReadBool() bool {
	if !r.tag(protowire.VarintType) {
		return false
	}
	v, n := protowire.ConsumeVarint(r.buf)
	if !r.consumed(n) {
		return false
	}
	return protowire.DecodeBool(v)
}

// ReadFloat reads a float64.
func (r *Reader) ReadFloat() float64 {
	if !r.tag(protowire.Fixed64Type) {
		return 0
	}
	v, n := protowire.ConsumeFixed64(r.buf)
	if !r.consumed(n) {
		return 0
	}
	return math.Float64frombits(v)
}

// ReadDuration reads a duration.
func (r *Reader) ReadDuration() time.Duration {
	return time.Duration(r.ReadInt64())
}

// ReadString reads a string.
func (r *Reader) ReadString() string {
	if !r.tag(protowire.BytesType) {
		return ""
	}
	s, n := protowire.ConsumeString(r.buf)
	if !r.consumed(n) {
		return ""
	}
	return s
}

// ReadVec3 reads a vector.
func (r *Reader) ReadVec3() mgl64.Vec3 {
	var v mgl64.Vec3
	r.readFloats(v[:])
	return v
}

// ReadMat3 reads a matrix.
func (r *Reader) ReadMat3() mgl64.Mat3 {
	var m mgl64.Mat3
	r.readFloats(m[:])
	return m
}

func (r *Reader) readFloats(dst []float64) {
	if !r.tag(protowire.BytesType) {
		return
	}
	packed, n := protowire.ConsumeBytes(r.buf)
	if !r.consumed(n) {
		return
	}
	if len(packed) != 8*len(dst) {
		r.fail(fmt.Errorf("%w: field %d: expected %d floats, found %d bytes", ErrTruncated, r.next, len(dst), len(packed)))
		return
	}
	for i := range dst {
		v, m := protowire.ConsumeFixed64(packed)
		dst[i] = math.Float64frombits(v)
		packed = packed[m:]
	}
}

// ReadObjectRef reads a reference written by WriteObjectRef.
func (r *Reader) ReadObjectRef() (int32, bool) {
	v := r.ReadInt64()
	if r.err != nil || v == -1 {
		return 0, false
	}
	if v < 0 || v > math.MaxUint32 {
		r.fail(fmt.Errorf("%w: field %d: %d", ErrBadRef, r.next, v))
		return 0, false
	}
	return int32(uint32(v)), true
}
