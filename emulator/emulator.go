// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"fmt"
	"iter"
	"log"
	"maps"
	"time"

	"github.com/ezrec/bytecpu/cpu"
	"github.com/ezrec/bytecpu/internal"
	"github.com/ezrec/bytecpu/io"
)

const (
	STEP_OVERHEAD = 50 * time.Microsecond // Host time a step is assumed to take.
)

// Emulator state. CPU + program listing + output echo + pacing.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Hz   uint    // Target tick rate. Zero runs at full speed.
	Tape io.Tape // Echo of the standard output.

	// Sleep waits between steps; it must return early with the
	// context's error once the context is done.
	Sleep func(ctx context.Context, delay time.Duration) error

	Last cpu.Step // Most recent step.
}

// NewEmulator creates a new emulator with a memory of the given size.
func NewEmulator(size uint) (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(size),
		Program: &cpu.Program{},
		Sleep:   sleep,
	}

	emu.Cpu.Echo = &emu.Tape

	return
}

// sleep waits for delay, or until the context is done.
func sleep(ctx context.Context, delay time.Duration) (err error) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-timer.C:
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	emulator_defines := map[string]string{
		"HZ": fmt.Sprintf("%d", emu.Hz),
	}

	return internal.Concat2(maps.All(emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Close the emulator
func (emu *Emulator) Close() (err error) {
	emu.Cpu.Echo = nil
	emu.Tape.Output = nil

	return
}

// Reset the machine, and load the program image at address 0.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = false

	emu.Cpu.Reset()
	emu.Last = cpu.Step{Text: cpu.NO_INSTRUCTION}

	err = emu.Cpu.Load(0, emu.Program.Binary())
	if err != nil {
		return
	}

	emu.Cpu.Verbose = emu.Verbose

	return
}

// Load a raw memory image, with no program listing.
func (emu *Emulator) Load(image []byte) (err error) {
	emu.Program = &cpu.Program{}

	err = emu.Reset()
	if err != nil {
		return
	}

	err = emu.Cpu.Load(0, image)

	return
}

// Image returns a copy of the memory.
func (emu *Emulator) Image() []byte {
	return append([]byte(nil), emu.Cpu.Memory...)
}

// LineNo returns the source line number of the instruction at Ip,
// or 0 if it is not part of the program listing.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Ip)
	if dbg.Line == nil {
		return 0
	}

	return dbg.LineNo
}

// Delay returns the host time to wait after a step costing ticks.
func (emu *Emulator) Delay(ticks int) (delay time.Duration) {
	if emu.Hz == 0 || ticks <= 0 {
		return
	}

	delay = time.Duration(ticks) * time.Second / time.Duration(emu.Hz)
	delay = max(delay-STEP_OVERHEAD, 0)

	return
}

// Tick performs a single step of the machine.
// done is set once the machine can no longer run.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	emu.Last, err = emu.Cpu.Tick()
	if err != nil {
		return
	}

	done = !emu.Cpu.Running()

	return
}

// Run steps the machine until it halts, leaves the guarded region,
// faults or the context is done. Each step is followed by its
// throttling delay.
func (emu *Emulator) Run(ctx context.Context) (elapsed time.Duration, err error) {
	start := time.Now()
	defer func() {
		elapsed = time.Since(start)
		if emu.Verbose {
			log.Printf("emulator: execution finished after: %v, %d steps, %d ticks", elapsed, emu.Cpu.Steps, emu.Cpu.Ticks)
		}
	}()

	for {
		err = ctx.Err()
		if err != nil {
			return
		}

		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}

		delay := emu.Delay(emu.Last.Ticks)
		if delay > 0 {
			err = emu.Sleep(ctx, delay)
			if err != nil {
				return
			}
		}
	}
}
