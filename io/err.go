package io

import (
	"errors"

	"github.com/ezrec/bytecpu/translate"
)

var f = translate.From

var (
	// Channel errors
	ErrChannelFull = errors.New(f("channel full"))
)

// ErrImageSize indicates an image that does not fit in machine memory.
type ErrImageSize struct {
	Size     int
	Capacity int
}

func (err ErrImageSize) Error() string {
	return f("image of %d bytes exceeds memory of %d bytes", err.Size, err.Capacity)
}
