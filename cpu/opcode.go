package cpu

import (
	"fmt"
	"iter"
)

// Opcode is the first byte of an instruction.
//
// By convention bit 7 is the extension flag (unused), bit 6 marks
// CPU-internal operations (ALU, control, move) against external ones
// (memory and I/O), bits 5-3 are the family and bits 2-0 the operation.
// The layout is documentary only; dispatch matches exact values.
type Opcode byte

const (
	OP_SOW   = Opcode(0x01) // sow
	OP_SOC   = Opcode(0x02) // soc
	OP_ADD   = Opcode(0x40) // add
	OP_SUB   = Opcode(0x41) // sub
	OP_MUL   = Opcode(0x42) // mul
	OP_DIV   = Opcode(0x43) // div
	OP_MOD   = Opcode(0x44) // mod
	OP_HALT  = Opcode(0x60) // halt
	OP_MOV   = Opcode(0x61) // mov
	OP_JMP   = Opcode(0x62) // jmp
	OP_JMPZ  = Opcode(0x63) // jmpz
	OP_LDB   = Opcode(0x64) // ldb
	OP_PUSHB = Opcode(0x65) // pushb
	OP_POPB  = Opcode(0x6c) // popb
	OP_STB   = Opcode(0x74) // stb
)

const (
	OPERAND_REGISTER = 0x80 // Operand bytes at or above this select a register.
	OPERAND_LIMIT    = 0x7f // Largest literal operand.
	INSTRUCTION_SIZE = 3    // Bytes read by every fetch.
)

// catalogEntry describes one assigned opcode.
type catalogEntry struct {
	mnemonic string
	arity    int    // Operands shown in the disassembly.
	width    uint32 // Encoded size in bytes, and the execution advance.
}

var catalog = map[Opcode]catalogEntry{
	OP_ADD:   {"add", 2, 3},
	OP_SUB:   {"sub", 2, 3},
	OP_MUL:   {"mul", 2, 3},
	OP_DIV:   {"div", 2, 3},
	OP_MOD:   {"mod", 2, 3},
	OP_MOV:   {"mov", 2, 3},
	OP_HALT:  {"halt", 0, 1},
	OP_JMP:   {"jmp", 1, 3},
	OP_JMPZ:  {"jmpz", 2, 3},
	OP_PUSHB: {"pushb", 2, 3},
	OP_POPB:  {"popb", 1, 2},
	OP_LDB:   {"ldb", 2, 3},
	OP_STB:   {"stb", 2, 3},
	OP_SOW:   {"sow", 1, 2},
	OP_SOC:   {"soc", 0, 1},
}

// mnemonics is the reverse of the catalog, for the assembler.
var mnemonics = func() map[string]Opcode {
	m := make(map[string]Opcode, len(catalog))
	for op, entry := range catalog {
		m[entry.mnemonic] = op
	}
	return m
}()

// OpcodeOf returns the opcode for a mnemonic.
func OpcodeOf(mnemonic string) (op Opcode, ok bool) {
	op, ok = mnemonics[mnemonic]
	return
}

// Valid returns true if the opcode is assigned.
func (op Opcode) Valid() (ok bool) {
	_, ok = catalog[op]
	return
}

// String returns the mnemonic, or "unknown" for an unassigned opcode.
func (op Opcode) String() string {
	entry, ok := catalog[op]
	if !ok {
		return "unknown"
	}
	return entry.mnemonic
}

// Arity returns the number of operands the opcode uses.
func (op Opcode) Arity() int {
	return catalog[op].arity
}

// Width returns the encoded size of the instruction.
// Unassigned opcodes are treated as full size.
func (op Opcode) Width() uint32 {
	entry, ok := catalog[op]
	if !ok {
		return INSTRUCTION_SIZE
	}
	return entry.width
}

// Opcodes iterates over every assigned opcode.
func Opcodes() iter.Seq[Opcode] {
	return func(yield func(op Opcode) bool) {
		for op := range 0x80 {
			if !Opcode(op).Valid() {
				continue
			}
			if !yield(Opcode(op)) {
				return
			}
		}
	}
}

// IsRegister returns true if the operand byte selects a register.
func IsRegister(operand byte) bool {
	return operand >= OPERAND_REGISTER
}

// Register returns the operand byte that selects register index.
func Register(index int) byte {
	return byte(OPERAND_REGISTER + (index & OPERAND_LIMIT))
}

// OperandString renders an operand as Rnn (register) or Nnn (literal).
func OperandString(operand byte) string {
	if IsRegister(operand) {
		return fmt.Sprintf("R%02d", operand-OPERAND_REGISTER)
	}
	return fmt.Sprintf("N%02d", operand)
}

// Instruction is the decoded view of three fetched bytes.
type Instruction struct {
	Opcode Opcode
	A      byte
	B      byte
}

// MakeInstruction builds an instruction from its parts.
func MakeInstruction(op Opcode, operands ...byte) (inst Instruction) {
	inst.Opcode = op
	if len(operands) > 0 {
		inst.A = operands[0]
	}
	if len(operands) > 1 {
		inst.B = operands[1]
	}
	return
}

// Bytes returns the encoding, truncated to the opcode's width.
func (inst Instruction) Bytes() []byte {
	full := []byte{byte(inst.Opcode), inst.A, inst.B}
	return full[:inst.Opcode.Width()]
}

// NameOfInstruction renders the disassembly of an encoded instruction.
// Returns false for an opcode that is not in the catalog.
func NameOfInstruction(op, a, b byte) (name string, ok bool) {
	entry, ok := catalog[Opcode(op)]
	if !ok {
		return
	}

	switch entry.arity {
	case 0:
		name = entry.mnemonic
	case 1:
		name = fmt.Sprintf("%v %v", entry.mnemonic, OperandString(a))
	default:
		name = fmt.Sprintf("%v %v %v", entry.mnemonic, OperandString(a), OperandString(b))
	}

	return
}

// String returns the disassembly, with a placeholder for unknown opcodes.
func (inst Instruction) String() string {
	name, ok := NameOfInstruction(byte(inst.Opcode), inst.A, inst.B)
	if !ok {
		name = fmt.Sprintf("unknown 0x%02x", byte(inst.Opcode))
	}
	return name
}

// Disassemble iterates over the instructions of an image, stepping by
// each opcode's width. Bytes past the end of the image decode as zero.
func Disassemble(image []byte) iter.Seq2[uint32, Instruction] {
	return func(yield func(addr uint32, inst Instruction) bool) {
		at := func(n uint32) byte {
			if n < uint32(len(image)) {
				return image[n]
			}
			return 0
		}
		for addr := uint32(0); addr < uint32(len(image)); {
			inst := Instruction{Opcode: Opcode(image[addr]), A: at(addr + 1), B: at(addr + 2)}
			if !yield(addr, inst) {
				return
			}
			addr += inst.Opcode.Width()
		}
	}
}
