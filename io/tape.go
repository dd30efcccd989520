package io

import (
	"io"
)

// Tape streams bytes to an io.Writer as they are sent.
// A Tape without an Output drops everything sent to it.
type Tape struct {
	Output io.Writer

	Written int // Count of bytes written since creation.
}

var _ Channel = (*Tape)(nil)

// Rewind is not possible on a tape.
func (tc *Tape) Rewind() {
}

// Send writes a byte to the output stream.
func (tc *Tape) Send(value byte) (err error) {
	if tc.Output == nil {
		return
	}

	_, err = tc.Output.Write([]byte{value})
	if err != nil {
		return
	}

	tc.Written++

	return
}
