package console

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ezrec/bytecpu/cpu"
	"github.com/ezrec/bytecpu/emulator"
)

// Snapshot is a rendering of the machine state, taken by the session.
// Displays only ever see snapshots, never the machine itself.
type Snapshot struct {
	Ip        uint32
	LineNo    int
	Current   string // Next instruction, as "ip: disassembly".
	Code      string // Listing, with the next instruction marked.
	Registers string
	Output    string
	Halted    bool
}

// Display presents a session to the user.
type Display interface {
	Update(snap Snapshot) // Machine state changed.
	Status(text string)   // Message for the user.
	Prompt()              // Ready for the next command.
}

// Session drives an emulator one command at a time.
// The goroutine calling Run is the only one touching the emulator.
type Session struct {
	Verbose  bool
	Emulator *emulator.Emulator
	Display  Display
}

// NewSession creates a new console session.
func NewSession(emu *emulator.Emulator, display Display) *Session {
	return &Session{
		Emulator: emu,
		Display:  display,
	}
}

// Run executes commands until a quit command, the commands channel is
// closed, or the context is done.
func (s *Session) Run(ctx context.Context, commands <-chan string) (err error) {
	s.Display.Update(s.Snapshot())
	s.Display.Prompt()

	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case line, ok := <-commands:
			if !ok {
				return
			}
			quit, cmd_err := s.Execute(ctx, line)
			if cmd_err != nil {
				s.Display.Status(cmd_err.Error())
			}
			if quit {
				return
			}
			s.Display.Prompt()
		}
	}
}

// Execute a single command line.
func (s *Session) Execute(ctx context.Context, line string) (quit bool, err error) {
	cmd, err := Parse(line)
	if err != nil {
		return
	}

	if s.Verbose {
		log.Printf("console: %q", line)
	}

	emu := s.Emulator

	switch cmd.Op {
	case CMD_QUIT:
		quit = true
	case CMD_HELP:
		s.Display.Status(HELP)
	case CMD_REGS:
		s.Display.Status(emu.Cpu.String())
	case CMD_READ:
		if cmd.Addr >= uint32(len(emu.Cpu.Memory)) {
			err = errors.Join(ErrCommandArgument, cpu.ErrAddress(cmd.Addr))
			return
		}
		value := emu.Cpu.Memory[cmd.Addr]
		s.Display.Status(f("0x%03x: 0x%02x (%d)", cmd.Addr, value, value))
	case CMD_STEP:
		var done bool
		done, err = emu.Tick()
		s.Display.Update(s.Snapshot())
		if err != nil {
			return
		}
		if emu.Last.Executed() {
			s.Display.Status(f("%03x: %v (%d ticks)", emu.Last.Ip, emu.Last.Text, emu.Last.Ticks))
		}
		if done {
			s.Display.Status(s.finished())
		}
	case CMD_RESUME:
		var elapsed time.Duration
		elapsed, err = emu.Run(ctx)
		s.Display.Update(s.Snapshot())
		if err != nil {
			return
		}
		s.Display.Status(f("execution finished after: %v", elapsed))
		s.Display.Status(s.finished())
	}

	return
}

func (s *Session) finished() string {
	cp := s.Emulator.Cpu
	if cp.Halted() {
		return f("halted at 0x%03x after %d steps, %d ticks", cp.Ip, cp.Steps, cp.Ticks)
	}
	return f("stopped at 0x%03x after %d steps, %d ticks", cp.Ip, cp.Steps, cp.Ticks)
}

// Snapshot renders the current machine state.
func (s *Session) Snapshot() (snap Snapshot) {
	emu := s.Emulator
	cp := emu.Cpu

	snap.Ip = cp.Ip
	snap.LineNo = emu.LineNo()
	snap.Registers = cp.String()
	snap.Output = cp.Output.String()
	snap.Halted = cp.Halted()

	inst, err := cp.Fetch()
	switch {
	case !cp.Running():
		snap.Current = f("%03x: %v", cp.Ip, cpu.NO_INSTRUCTION)
	case err != nil:
		snap.Current = f("%03x: %v", cp.Ip, err)
	default:
		snap.Current = fmt.Sprintf("%03x: %v", cp.Ip, inst)
	}

	snap.Code = s.listing()

	return
}

func marker(here bool) string {
	if here {
		return "> "
	}
	return "  "
}

// listing renders the program source, or a disassembly of the
// guarded region when no source is known.
func (s *Session) listing() string {
	emu := s.Emulator
	cp := emu.Cpu

	var text strings.Builder

	if len(emu.Program.Lines) > 0 {
		for _, line := range emu.Program.Lines {
			here := len(line.Bytes) > 0 && line.Addr == int(cp.Ip)
			fmt.Fprintf(&text, "%s%4d %03x: %s\n", marker(here), line.LineNo, line.Addr, strings.Join(line.Words, " "))
		}
		return text.String()
	}

	region := cp.Memory[:min(int(cp.Guard), len(cp.Memory))]
	for addr, inst := range cpu.Disassemble(region) {
		fmt.Fprintf(&text, "%s%03x: %v\n", marker(addr == cp.Ip), addr, inst)
	}

	return text.String()
}
