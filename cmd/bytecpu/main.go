// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/jroimartin/gocui"

	"github.com/ezrec/bytecpu/console"
	"github.com/ezrec/bytecpu/cpu"
	"github.com/ezrec/bytecpu/emulator"
	"github.com/ezrec/bytecpu/internal"
	"github.com/ezrec/bytecpu/io"
	"github.com/ezrec/bytecpu/translate"
)

func main() {
	var image string
	var compile string
	var save bool
	var hz uint
	var output string
	var memory uint
	var guard uint
	var interactive bool
	var tty bool
	var listing bool
	var verbose bool

	flag.StringVar(&image, "f", "", "program image to execute")
	flag.StringVar(&compile, "c", "", "assembly source to compile")
	flag.BoolVar(&save, "s", false, "save the compiled image to -o, do not execute")
	flag.UintVar(&hz, "hz", 0, "target ticks per second (0 is full speed)")
	flag.StringVar(&output, "o", "", "memory image output")
	flag.UintVar(&memory, "m", cpu.MEMORY_SIZE, "memory size, in bytes")
	flag.UintVar(&guard, "g", cpu.GUARD_DEFAULT, "maximum addressable program region")
	flag.BoolVar(&interactive, "i", false, "interactive console")
	flag.BoolVar(&tty, "t", false, "use a line console with -i")
	flag.BoolVar(&listing, "l", false, "print a disassembly listing")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if (len(image) == 0) == (len(compile) == 0) {
		log.Fatalf("%v: exactly one of -f or -c is required", os.Args[0])
	}

	emu := emulator.NewEmulator(memory)
	emu.Verbose = verbose
	emu.Hz = hz
	emu.Cpu.Guard = uint32(guard)
	defer emu.Close()

	var binary []byte

	// Compile a new instruction stream.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for k, v := range internal.Sorted(emu.Defines()) {
			asm.Predefine(k, v)
		}
		emu.Program, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}

		binary = emu.Program.Binary()
	} else {
		var err error
		binary, err = io.LoadImage(io.DirFS(filepath.Dir(image)), filepath.Base(image), len(emu.Cpu.Memory))
		if err != nil {
			log.Fatalf("%v: %v", image, err)
		}
	}

	if listing {
		p := translate.Printer()
		for addr, inst := range cpu.Disassemble(binary) {
			p.Printf("%03x: %v\n", addr, inst)
		}
	}

	if save {
		if len(output) == 0 {
			log.Fatalf("%v: -s requires -o", os.Args[0])
		}
		err := saveImage(output, binary)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	var err error
	if len(compile) != 0 {
		err = emu.Reset()
	} else {
		err = emu.Load(binary)
	}
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case interactive && tty:
		session := console.NewSession(emu, console.NewSimple(os.Stdout))
		session.Verbose = verbose
		err = session.Run(ctx, console.Lines(ctx, os.Stdin))
	case interactive:
		err = runGui(ctx, emu, verbose)
	default:
		emu.Tape.Output = os.Stdout
		elapsed, run_err := emu.Run(ctx)
		err = run_err
		fmt.Println()
		log.Printf("execution finished after: %v", elapsed)
		if verbose {
			log.Printf("%v", emu.Cpu.String())
		}
	}
	status := exitStatus(err)
	if status != 0 {
		log.Printf("%v", err)
	}

	if len(output) != 0 {
		err := saveImage(output, emu.Image())
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
	}

	if status != 0 {
		os.Exit(status)
	}
}

// exitStatus maps the result of a run to a process exit status.
// An interrupted run is not a failure.
func exitStatus(err error) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return 0
	}
	return 1
}

// saveImage writes a raw image to a host path.
func saveImage(path string, data []byte) error {
	return io.SaveImage(io.DirFS(filepath.Dir(path)), filepath.Base(path), data)
}

// runGui runs a console session under a gocui main loop.
func runGui(ctx context.Context, emu *emulator.Emulator, verbose bool) (err error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return
	}
	defer g.Close()

	display, err := console.NewGui(g)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session := console.NewSession(emu, display)
	session.Verbose = verbose

	done := make(chan error, 1)
	go func() {
		done <- session.Run(ctx, display.Commands())
		display.Quit()
	}()

	err = g.MainLoop()
	if errors.Is(err, gocui.ErrQuit) {
		err = nil
	}

	// Stop the session before anyone else looks at the machine.
	cancel()
	session_err := <-done
	if err == nil {
		err = session_err
	}

	return
}
