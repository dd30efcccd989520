package cpu

import (
	"iter"
)

// Link is an operand byte to patch with a label address.
type Link struct {
	Index int    // Index into Line.Bytes.
	Label string // Label to resolve.
}

// Line represents a line of assembled source with its location and generated bytes.
type Line struct {
	LineNo int
	Addr   int
	Words  []string
	Bytes  []byte
	Links  []Link
}

type Program struct {
	Lines []Line
}

type Debug struct {
	*Line
	Index int
}

// Debug finds the source line that generated the byte at addr.
func (prog *Program) Debug(addr uint32) (dbg Debug) {
	for n, line := range prog.Lines {
		if int(addr) >= line.Addr && int(addr) < line.Addr+len(line.Bytes) {
			dbg = Debug{
				Line:  &prog.Lines[n],
				Index: int(addr) - line.Addr,
			}
			break
		}
	}

	return
}

// Size returns the size of the binary image.
func (prog *Program) Size() (size int) {
	for _, line := range prog.Lines {
		size = max(size, line.Addr+len(line.Bytes))
	}
	return
}

// Binary returns the program image, ready to load at address 0.
func (prog *Program) Binary() (bins []byte) {
	bins = make([]byte, prog.Size())
	for _, line := range prog.Lines {
		copy(bins[line.Addr:], line.Bytes)
	}

	return
}

// Bytes iterates over every generated byte and its address.
func (prog *Program) Bytes() iter.Seq2[uint32, byte] {
	return func(yield func(addr uint32, value byte) bool) {
		for _, line := range prog.Lines {
			for n, value := range line.Bytes {
				if !yield(uint32(line.Addr+n), value) {
					return
				}
			}
		}
	}
}
