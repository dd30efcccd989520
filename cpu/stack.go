package cpu

// The byte stack lives at the top of memory and grows downward.
// Sp addresses the next free byte; the stack is empty when Sp is StackTop().

// StackTop returns the initial stack pointer, the last byte of memory.
func (cpu *Cpu) StackTop() uint32 {
	return uint32(len(cpu.Memory) - 1)
}

// PushByte writes a byte at Sp, then moves Sp down.
func (cpu *Cpu) PushByte(value byte) (err error) {
	if cpu.Sp > cpu.StackTop() {
		err = ErrAddress(cpu.Sp)
		return
	}
	if cpu.Sp == 0 {
		err = ErrStackFull
		return
	}

	cpu.Memory[cpu.Sp] = value
	cpu.Sp--

	return
}

// PopByte moves Sp up to the most recently pushed byte, and returns it.
func (cpu *Cpu) PopByte() (value byte, err error) {
	if cpu.Sp >= cpu.StackTop() {
		err = ErrStackEmpty
		return
	}

	cpu.Sp++
	value = cpu.Memory[cpu.Sp]

	return
}

// Peek returns the most recently pushed byte without popping it.
func (cpu *Cpu) Peek() (value byte, ok bool) {
	if cpu.Sp >= cpu.StackTop() {
		return
	}

	return cpu.Memory[cpu.Sp+1], true
}

// StackDepth returns the number of bytes on the stack.
func (cpu *Cpu) StackDepth() int {
	if cpu.Sp >= cpu.StackTop() {
		return 0
	}
	return int(cpu.StackTop() - cpu.Sp)
}
