package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// PROMPT is shown when the console waits for a command.
const PROMPT = ". "

// Simple is a line based console on a plain writer.
type Simple struct {
	Output io.Writer
	last   string // Last machine output shown.
}

var _ Display = (*Simple)(nil)

// NewSimple returns a line console writing to output.
func NewSimple(output io.Writer) *Simple {
	return &Simple{Output: output}
}

// Update shows new machine output, and the next instruction.
func (c *Simple) Update(snap Snapshot) {
	fresh := snap.Output
	if strings.HasPrefix(fresh, c.last) {
		fresh = fresh[len(c.last):]
	}
	c.last = snap.Output

	if fresh != "" {
		fmt.Fprintln(c.Output, strings.TrimSuffix(fresh, "\n"))
	}

	fmt.Fprintln(c.Output, snap.Current)
}

// Status writes a message.
func (c *Simple) Status(text string) {
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			fmt.Fprintln(c.Output, line)
		}
	}
}

// Prompt writes the prompt.
func (c *Simple) Prompt() {
	fmt.Fprint(c.Output, PROMPT)
}

// Lines reads command lines from input until it is exhausted or the
// context is done. The channel is closed when reading stops.
func Lines(ctx context.Context, input io.Reader) <-chan string {
	lines := make(chan string)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	return lines
}
