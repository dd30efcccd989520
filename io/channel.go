// Package io provides the peripheral channels of the byte machine.
// It includes the standard output buffer (Buffer), a write-only tape that
// streams output to a host writer (Tape), and raw memory image
// persistence over a file system (LoadImage, SaveImage).
package io

// Channel defines the interface for byte oriented output channels.
type Channel interface {
	// Rewind resets the channel to its initial state.
	Rewind()
	// Send writes a single byte to the channel.
	Send(value byte) error
}
