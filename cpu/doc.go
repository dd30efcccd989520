// Package cpu implements the byte machine and its assembler.
//
// Instructions are three bytes: an opcode and two operands. An operand
// byte of 0x80 or above selects register (byte - 0x80), anything lower
// is a literal. Some opcodes use fewer bytes, see Opcode.Width.
//
// The machine has a flat byte memory whose top doubles as a downward
// growing byte stack, 128 int32 registers, an execution pointer, a
// flags word and a text output buffer. Execution stops when the halt
// flag is set, or once Ip reaches the guard address.
//
// The assembler accepts one instruction per line, with labels, equates,
// macros, raw data and compile-time expressions.
package cpu
