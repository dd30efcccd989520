package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"strings"

	"github.com/ezrec/bytecpu/io"
)

const (
	MEMORY_SIZE       = 256                 // Default memory capacity, in bytes.
	REGISTER_COUNT    = 128                 // Registers reachable by operand bytes.
	GUARD_DEFAULT     = 128                 // Default maximum addressable program region.
	HALT_FLAG         = uint32(0x4000_0000) // Flags bit that stops execution.
	FLAGS_REGISTER    = 12                  // Register reserved to mirror the flags.
	EXEC_PTR_REGISTER = 15                  // Register reserved to mirror the ip.
	NO_INSTRUCTION    = "nothing"           // Step text when no instruction ran.
)

// Step is the diagnostic result of a single step.
type Step struct {
	Ip          uint32      // Address the instruction was fetched from.
	Instruction Instruction // Decoded instruction.
	Text        string      // Disassembly, or NO_INSTRUCTION.
	Ticks       int         // Tick cost of the instruction.
}

// Executed returns true if the step ran an instruction.
func (step Step) Executed() bool {
	return step.Text != NO_INSTRUCTION
}

// Cpu is the simulation state of the byte machine.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Memory   []byte                 // Memory image; the stack lives at the top.
	Register [REGISTER_COUNT]int32 // Register bank.
	Ip       uint32                 // Execution pointer.
	Sp       uint32                 // Stack pointer, next free stack byte.
	Flags    uint32                 // Status flags.
	Guard    uint32                 // Execution stops once Ip reaches this.

	Output io.Buffer  // Standard output.
	Echo   io.Channel // Optional mirror of standard output.

	Ticks int // Tick counter.
	Steps int // Executed instruction counter.
}

// NewCpu creates a new CPU with a specifically sized memory.
func NewCpu(size uint) (cpu *Cpu) {
	if size < INSTRUCTION_SIZE {
		size = INSTRUCTION_SIZE
	}

	cpu = &Cpu{
		Memory: make([]byte, size),
		Guard:  GUARD_DEFAULT,
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	defines := map[string]string{
		"MEMORY_SIZE": fmt.Sprintf("%d", len(cpu.Memory)),
		"STACK_TOP":   fmt.Sprintf("%d", cpu.StackTop()),
		"GUARD":       fmt.Sprintf("%d", cpu.Guard),
		"HALT_FLAG":   fmt.Sprintf("0x%x", HALT_FLAG),
	}
	for op := range Opcodes() {
		defines["OP_"+strings.ToUpper(op.String())] = fmt.Sprintf("0x%02x", byte(op))
	}

	return maps.All(defines)
}

// Reset the CPU state.
// - Clears memory, registers and flags.
// - Empties the standard output.
// - Zeros statistics counters.
// - Points Ip at address 0 and Sp at the top of memory.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Memory)
	clear(cpu.Register[:])
	cpu.Ip = 0
	cpu.Sp = cpu.StackTop()
	cpu.Flags = 0
	cpu.Ticks = 0
	cpu.Steps = 0

	cpu.Output.Rewind()
	if cpu.Echo != nil {
		cpu.Echo.Rewind()
	}
}

// Load copies data into memory starting at offset.
func (cpu *Cpu) Load(offset uint32, data []byte) (err error) {
	end := uint64(offset) + uint64(len(data))
	if end > uint64(len(cpu.Memory)) {
		err = ErrAddress(end - 1)
		return
	}

	copy(cpu.Memory[offset:], data)

	if cpu.Verbose {
		log.Printf("cpu: loaded %d bytes at 0x%03x", len(data), offset)
	}

	return
}

// Halted returns true once the halt flag is set.
func (cpu *Cpu) Halted() bool {
	return cpu.Flags&HALT_FLAG != 0
}

// Running returns true while the machine may fetch another instruction.
func (cpu *Cpu) Running() bool {
	return !cpu.Halted() && cpu.Ip < cpu.Guard
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("% 5s: %03x\n", "ip", cpu.Ip)
	text += fmt.Sprintf("% 5s: %03x\n", "sp", cpu.Sp)
	text += fmt.Sprintf("% 5s: %04X_%04X\n", "flags", cpu.Flags>>16, cpu.Flags&0xffff)
	for n, val := range cpu.Register {
		if val == 0 {
			continue
		}
		text += fmt.Sprintf("% 5s: %d\n", fmt.Sprintf("r%d", n), val)
	}
	text += fmt.Sprintf("% 5s: %q\n", "out", cpu.Output.String())

	return
}

// Fetch reads the three instruction bytes at Ip.
func (cpu *Cpu) Fetch() (inst Instruction, err error) {
	if uint64(cpu.Ip)+2 >= uint64(len(cpu.Memory)) {
		err = ErrFetch
		return
	}

	inst = Instruction{
		Opcode: Opcode(cpu.Memory[cpu.Ip]),
		A:      cpu.Memory[cpu.Ip+1],
		B:      cpu.Memory[cpu.Ip+2],
	}

	return
}

// Tick executes a single instruction cycle.
// When the machine is not running, nothing happens and the returned
// step reports NO_INSTRUCTION.
func (cpu *Cpu) Tick() (step Step, err error) {
	step = Step{Ip: cpu.Ip, Text: NO_INSTRUCTION}

	if !cpu.Running() {
		return
	}

	inst, err := cpu.Fetch()
	if err != nil {
		err = &ErrFault{Ip: cpu.Ip, Err: err}
		return
	}

	ticks, err := cpu.Execute(inst)
	if err != nil {
		return
	}

	step.Instruction = inst
	step.Text = inst.String()
	step.Ticks = ticks

	return
}

// value resolves an operand byte to a literal or a register's contents.
func (cpu *Cpu) value(operand byte) int32 {
	if IsRegister(operand) {
		return cpu.Register[operand-OPERAND_REGISTER]
	}
	return int32(operand)
}

// address checks that a resolved value is a valid memory address.
func (cpu *Cpu) address(value int32) (addr uint32, err error) {
	if value < 0 || int64(value) >= int64(len(cpu.Memory)) {
		err = ErrAddress(value)
		return
	}

	addr = uint32(value)
	return
}

// Execute executes a single decoded instruction at Ip, and returns its tick cost.
// A faulting instruction leaves the machine state unchanged.
func (cpu *Cpu) Execute(inst Instruction) (ticks int, err error) {
	defer func() {
		if err != nil {
			err = &ErrFault{Ip: cpu.Ip, Instruction: inst, Err: err}
		}
	}()

	a := cpu.value(inst.A)
	b := cpu.value(inst.B)

	next_ip := cpu.Ip + inst.Opcode.Width()

	var result int32
	var has_result bool

	switch inst.Opcode {
	case OP_ADD:
		result, has_result, ticks = a+b, true, 5
	case OP_SUB:
		result, has_result, ticks = a-b, true, 6
	case OP_MUL:
		result, has_result, ticks = a*b, true, 50
	case OP_DIV:
		if b == 0 {
			err = ErrDivideByZero
			return
		}
		result, has_result, ticks = a/b, true, 50
	case OP_MOD:
		if b == 0 {
			err = ErrDivideByZero
			return
		}
		result, has_result, ticks = a%b, true, 51
	case OP_MOV:
		result, has_result, ticks = b, true, 3
	case OP_HALT:
		cpu.Flags |= HALT_FLAG
		next_ip = cpu.Ip
		ticks = 4
	case OP_JMP:
		next_ip = uint32(a)
		ticks = 4
	case OP_JMPZ:
		if a == 0 {
			next_ip = uint32(b)
		}
		ticks = 5
	case OP_PUSHB:
		err = cpu.PushByte(byte(b))
		if err != nil {
			return
		}
		ticks = 9
	case OP_POPB:
		var value byte
		value, err = cpu.PopByte()
		if err != nil {
			return
		}
		result, has_result, ticks = int32(value), true, 9
	case OP_LDB:
		var addr uint32
		addr, err = cpu.address(b)
		if err != nil {
			return
		}
		result, has_result, ticks = int32(cpu.Memory[addr]), true, 5
	case OP_STB:
		var addr uint32
		addr, err = cpu.address(b)
		if err != nil {
			return
		}
		cpu.Memory[addr] = byte(a)
		ticks = 5
	case OP_SOW:
		err = cpu.writeOutput(byte(a))
		if err != nil {
			return
		}
		ticks = 2
	case OP_SOC:
		cpu.Output.Rewind()
		if cpu.Echo != nil {
			cpu.Echo.Rewind()
		}
		ticks = 1
	default:
		// Unassigned opcodes execute as no-ops.
		if cpu.Verbose {
			log.Printf("%03x: unknown opcode 0x%02x", cpu.Ip, byte(inst.Opcode))
		}
	}

	if cpu.Verbose {
		log.Printf("%03x: %v (%d ticks)", cpu.Ip, inst, ticks)
	}

	if has_result && IsRegister(inst.A) {
		cpu.Register[inst.A-OPERAND_REGISTER] = result
	}

	cpu.Ip = next_ip
	cpu.Ticks += ticks
	cpu.Steps++

	return
}

// writeOutput appends a byte to standard output and its echo.
func (cpu *Cpu) writeOutput(value byte) (err error) {
	mark := cpu.Output.Len()

	err = cpu.Output.Send(value)
	if err != nil {
		return
	}

	if cpu.Echo != nil {
		err = cpu.Echo.Send(value)
		if err != nil {
			cpu.Output.Data = cpu.Output.Data[:mark]
			return
		}
	}

	return
}
