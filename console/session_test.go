package console

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/bytecpu/cpu"
	"github.com/ezrec/bytecpu/emulator"
)

type fakeDisplay struct {
	snaps   []Snapshot
	status  []string
	prompts int
}

func (fd *fakeDisplay) Update(snap Snapshot) {
	fd.snaps = append(fd.snaps, snap)
}

func (fd *fakeDisplay) Status(text string) {
	fd.status = append(fd.status, text)
}

func (fd *fakeDisplay) Prompt() {
	fd.prompts++
}

func (fd *fakeDisplay) last() Snapshot {
	return fd.snaps[len(fd.snaps)-1]
}

func newSession(t *testing.T, program ...string) (session *Session, display *fakeDisplay) {
	emu := emulator.NewEmulator(cpu.MEMORY_SIZE)

	asm := &cpu.Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}
	emu.Program = prog

	err = emu.Reset()
	if err != nil {
		t.Fatal(err)
	}

	display = &fakeDisplay{}
	session = NewSession(emu, display)

	return
}

func feed(lines ...string) <-chan string {
	commands := make(chan string, len(lines))
	for _, line := range lines {
		commands <- line
	}
	close(commands)
	return commands
}

func TestSessionStep(t *testing.T) {
	assert := assert.New(t)

	session, display := newSession(t,
		"mov r0 'A'",
		"sow r0",
		"halt",
	)

	err := session.Run(context.Background(), feed("s", "step"))
	assert.NoError(err)

	// Initial snapshot plus one per step.
	assert.Equal(3, len(display.snaps))
	assert.Equal(3, display.prompts)

	first := display.snaps[0]
	assert.Equal(uint32(0), first.Ip)
	assert.Equal(1, first.LineNo)
	assert.Equal("000: mov R00 N65", first.Current)
	assert.Contains(first.Code, ">    1 000: mov r0 65")

	snap := display.last()
	assert.Equal(uint32(5), snap.Ip)
	assert.Equal(3, snap.LineNo)
	assert.Equal("A", snap.Output)
	assert.Equal("005: halt", snap.Current)
	assert.False(snap.Halted)

	assert.Equal([]string{
		"000: mov R00 N65 (3 ticks)",
		"003: sow R00 (2 ticks)",
	}, display.status)
}

func TestSessionResume(t *testing.T) {
	assert := assert.New(t)

	session, display := newSession(t,
		"mov r0 3",
		"loop: sub r0 1",
		"jmpz r0 done",
		"jmp loop",
		"done: halt",
	)

	err := session.Run(context.Background(), feed("r", "s"))
	assert.NoError(err)

	cp := session.Emulator.Cpu
	assert.True(cp.Halted())
	assert.Equal(int32(0), cp.Register[0])

	snap := display.last()
	assert.True(snap.Halted)
	assert.Contains(snap.Current, cpu.NO_INSTRUCTION)

	// A step after halting changes nothing.
	steps := cp.Steps
	assert.Contains(display.status[len(display.status)-1], "halted")
	assert.Equal(steps, cp.Steps)
}

func TestSessionRead(t *testing.T) {
	assert := assert.New(t)

	session, display := newSession(t,
		"mov r1 42",
		"stb r1 100",
		"halt",
	)

	ctx := context.Background()

	quit, err := session.Execute(ctx, "r")
	assert.NoError(err)
	assert.False(quit)

	display.status = nil
	_, err = session.Execute(ctx, "read 100")
	assert.NoError(err)
	assert.Equal(1, len(display.status))
	assert.Contains(display.status[0], "42")

	// Reading never changes state.
	assert.Equal(byte(42), session.Emulator.Cpu.Memory[100])

	_, err = session.Execute(ctx, "m 256")
	assert.True(errors.Is(err, ErrCommandArgument))
	var err_address cpu.ErrAddress
	assert.True(errors.As(err, &err_address))

	display.status = nil
	_, err = session.Execute(ctx, "regs")
	assert.NoError(err)
	assert.Contains(display.status[0], "r1: 42")
}

func TestSessionErrors(t *testing.T) {
	assert := assert.New(t)

	session, display := newSession(t,
		"mov r0 1",
		"div r0 0",
	)

	err := session.Run(context.Background(), feed("bogus", "s", "s", "quit", "s"))
	assert.NoError(err)

	assert.Equal(3, len(display.status))
	assert.Equal("000: mov R00 N01 (3 ticks)", display.status[1])

	// The fault did not advance the machine, and quit stopped the session.
	cp := session.Emulator.Cpu
	assert.Equal(uint32(3), cp.Ip)
	assert.Equal(1, cp.Steps)

	_, err = session.Execute(context.Background(), "s")
	assert.True(errors.Is(err, cpu.ErrDivideByZero))
	var err_runtime *emulator.ErrRuntime
	assert.True(errors.As(err, &err_runtime))
	assert.Equal(2, err_runtime.LineNo)
}

func TestSessionCancel(t *testing.T) {
	assert := assert.New(t)

	session, _ := newSession(t, "halt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := session.Run(ctx, make(chan string))
	assert.True(errors.Is(err, context.Canceled))
}

func TestSessionListing(t *testing.T) {
	assert := assert.New(t)

	session, _ := newSession(t, "halt")

	err := session.Emulator.Load([]byte{byte(cpu.OP_MOV), cpu.Register(2), 7, byte(cpu.OP_HALT)})
	assert.NoError(err)
	session.Emulator.Cpu.Guard = 4

	snap := session.Snapshot()
	assert.Equal(0, snap.LineNo)
	assert.Equal("> 000: mov R02 N07\n  003: halt\n", snap.Code)
}
