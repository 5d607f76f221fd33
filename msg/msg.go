// Package msg implements the bounded message buffers and readers
// used for both sequenced and out-of-band datagrams.
//
// All multi-byte values are little-endian.
package msg

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// MaxStringLen is the longest string ReadString and ReadStringLine return.
const MaxStringLen = 2047

// ErrOverflow is returned when a write does not fit into a Buffer.
var ErrOverflow = errors.New("message overflow")

// ErrShortRead is returned when a Reader runs out of data.
var ErrShortRead = errors.New("short read")

var le = binary.LittleEndian

// A Buffer is an append-only message buffer with a hard size limit.
// A write that does not fit fails as a whole with ErrOverflow,
// leaves the contents untouched and marks the Buffer as overflowed.
type Buffer struct {
	data       []byte
	max        int
	overflowed bool
}

// NewBuffer returns an empty Buffer that holds at most max bytes.
func NewBuffer(max int) *Buffer {
	return &Buffer{data: make([]byte, 0, max), max: max}
}

// Write appends p. It implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	if len(b.data)+len(p) > b.max {
		b.overflowed = true
		return 0, ErrOverflow
	}

	b.data = append(b.data, p...)
	return len(p), nil
}

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(c byte) error {
	_, err := b.Write([]byte{c})
	return err
}

// WriteShort appends a 16-bit value.
func (b *Buffer) WriteShort(v uint16) error {
	p := make([]byte, 2)
	le.PutUint16(p, v)
	_, err := b.Write(p)
	return err
}

// WriteLong appends a 32-bit value.
func (b *Buffer) WriteLong(v uint32) error {
	p := make([]byte, 4)
	le.PutUint32(p, v)
	_, err := b.Write(p)
	return err
}

// WriteString appends s followed by a NUL terminator.
func (b *Buffer) WriteString(s string) error {
	p := make([]byte, len(s)+1)
	copy(p, s)
	_, err := b.Write(p)
	return err
}

// Print appends s as a NUL-terminated string. If the buffer already ends
// in a NUL, that terminator is overwritten so consecutive Prints build
// a single string.
func (b *Buffer) Print(s string) error {
	if n := len(b.data); n > 0 && b.data[n-1] == 0 {
		if n-1+len(s)+1 > b.max {
			b.overflowed = true
			return ErrOverflow
		}

		b.data = append(b.data[:n-1], s...)
		b.data = append(b.data, 0)
		return nil
	}

	return b.WriteString(s)
}

// Bytes returns the buffered data. The slice is only valid
// until the next write or Clear.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Max returns the size limit of the Buffer.
func (b *Buffer) Max() int { return b.max }

// Overflowed reports whether a write has been rejected since the last Clear.
func (b *Buffer) Overflowed() bool { return b.overflowed }

// Clear empties the Buffer and resets the overflow flag.
func (b *Buffer) Clear() {
	b.data = b.data[:0]
	b.overflowed = false
}

// A Reader reads values from a received datagram.
type Reader struct {
	data []byte
	pos  int
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrShortRead
	}

	c := r.data[r.pos]
	r.pos++
	return c, nil
}

// ReadShort reads a 16-bit value.
func (r *Reader) ReadShort() (uint16, error) {
	if r.Remaining() < 2 {
		r.pos = len(r.data)
		return 0, ErrShortRead
	}

	v := le.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadLong reads a 32-bit value.
func (r *Reader) ReadLong() (uint32, error) {
	if r.Remaining() < 4 {
		r.pos = len(r.data)
		return 0, ErrShortRead
	}

	v := le.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadString reads up to a NUL terminator or the end of the data.
func (r *Reader) ReadString() string {
	return r.readUntil(func(c byte) bool { return c == 0 })
}

// ReadStringLine reads up to a NUL, a newline or the end of the data.
func (r *Reader) ReadStringLine() string {
	return r.readUntil(func(c byte) bool { return c == 0 || c == '\n' })
}

func (r *Reader) readUntil(stop func(byte) bool) string {
	s := make([]byte, 0, 64)
	for r.pos < len(r.data) {
		c := r.data[r.pos]
		r.pos++
		if stop(c) {
			break
		}

		if len(s) < MaxStringLen {
			s = append(s, c)
		}
	}

	return string(s)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Rest returns the unread bytes without consuming them.
func (r *Reader) Rest() []byte { return r.data[r.pos:] }
