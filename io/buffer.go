package io

import (
	"iter"
	"slices"
)

// Buffer is an append-only byte buffer, used as the machine's standard
// output. A zero Capacity means the buffer is unbounded.
type Buffer struct {
	Capacity int
	Data     []byte
}

var _ Channel = (*Buffer)(nil)

// Rewind empties the buffer.
func (buf *Buffer) Rewind() {
	buf.Data = buf.Data[:0]
}

// Send appends a byte, or returns ErrChannelFull when at capacity.
func (buf *Buffer) Send(value byte) (err error) {
	if buf.Capacity > 0 && len(buf.Data) >= buf.Capacity {
		err = ErrChannelFull
		return
	}

	buf.Data = append(buf.Data, value)

	return
}

// Receive returns an iterator over the buffered bytes, in send order.
func (buf *Buffer) Receive() iter.Seq[byte] {
	return slices.Values(buf.Data)
}

// Len returns the number of buffered bytes.
func (buf *Buffer) Len() int {
	return len(buf.Data)
}

// String returns the buffered bytes as text.
func (buf *Buffer) String() string {
	return string(buf.Data)
}
