package io

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer_Send(t *testing.T) {
	assert := assert.New(t)

	buf := &Buffer{}
	for _, c := range []byte("hello") {
		assert.NoError(buf.Send(c))
	}

	assert.Equal(5, buf.Len())
	assert.Equal("hello", buf.String())
	assert.Equal([]byte("hello"), slices.Collect(buf.Receive()))
}

func TestBuffer_Capacity(t *testing.T) {
	assert := assert.New(t)

	buf := &Buffer{Capacity: 2}
	assert.NoError(buf.Send('a'))
	assert.NoError(buf.Send('b'))
	assert.ErrorIs(buf.Send('c'), ErrChannelFull)
	assert.Equal("ab", buf.String())
}

func TestBuffer_Rewind(t *testing.T) {
	assert := assert.New(t)

	buf := &Buffer{}
	buf.Send('x')
	buf.Rewind()
	assert.Equal(0, buf.Len())
	assert.Equal("", buf.String())

	buf.Send('y')
	assert.Equal("y", buf.String())
}

func TestTape_Send(t *testing.T) {
	assert := assert.New(t)

	out := &bytes.Buffer{}
	tape := &Tape{Output: out}

	for _, c := range []byte("XY") {
		assert.NoError(tape.Send(c))
	}
	tape.Rewind()
	assert.NoError(tape.Send('Z'))

	assert.Equal("XYZ", out.String())
	assert.Equal(3, tape.Written)
}

func TestTape_NoOutput(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{}
	assert.NoError(tape.Send('a'))
	assert.Equal(0, tape.Written)
}

type failWriter struct{}

var errWrite = errors.New("write failed")

func (failWriter) Write(p []byte) (int, error) {
	return 0, errWrite
}

func TestTape_WriteError(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{Output: failWriter{}}
	assert.ErrorIs(tape.Send('a'), errWrite)
	assert.Equal(0, tape.Written)
}
