package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assemble(t *testing.T, program ...string) *Program {
	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Lines))

	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal("128", asm.Equate["REGISTER_COUNT"])
	assert.Equal("12", asm.Equate["FLAGS_REGISTER"])
	assert.Equal("15", asm.Equate["EXEC_PTR_REGISTER"])
}

func TestAssemblerBasic(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"; add two numbers",
		"mov r0 5",
		"mov r1 3   ; second",
		"add r0, r1",
		"",
		"halt",
	)

	expected := []Line{
		{2, 0, []string{"mov", "r0", "5"}, []byte{0x61, 0x80, 0x05}, nil},
		{3, 3, []string{"mov", "r1", "3"}, []byte{0x61, 0x81, 0x03}, nil},
		{4, 6, []string{"add", "r0", "r1"}, []byte{0x40, 0x80, 0x81}, nil},
		{6, 9, []string{"halt"}, []byte{0x60}, nil},
	}
	assert.Equal(expected, prog.Lines)

	assert.Equal([]byte{0x61, 0x80, 0x05, 0x61, 0x81, 0x03, 0x40, 0x80, 0x81, 0x60}, prog.Binary())
}

func TestAssemblerLabels(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"start:  mov r0 3",
		"loop:   sow 'A'",
		"        sub r0 1",
		"        jmpz r0 done",
		"        jmp loop",
		"done:   halt",
	)

	assert.Equal([]byte{
		0x61, 0x80, 0x03,
		0x01, 0x41,
		0x41, 0x80, 0x01,
		0x63, 0x80, 0x0e,
		0x62, 0x03, 0x00,
		0x60,
	}, prog.Binary())

	cpu := NewCpu(MEMORY_SIZE)
	assert.NoError(cpu.Load(0, prog.Binary()))
	for cpu.Running() {
		_, err := cpu.Tick()
		if !assert.NoError(err) {
			break
		}
	}
	assert.True(cpu.Halted())
	assert.Equal("AAA", cpu.Output.String())
}

func TestAssemblerEquates(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("ANSWER", "42")

	program := []string{
		".equ COUNT 4",
		"mov r0 COUNT",
		"mov r1 $(COUNT * 2 + 1)",
		"mov r2 ANSWER",
		"top:",
		"mov r3 $(top + LINENO)",
	}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)

	assert.Equal([]byte{
		0x61, 0x80, 0x04,
		0x61, 0x81, 0x09,
		0x61, 0x82, 42,
		0x61, 0x83, 9 + 6,
	}, prog.Binary())
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		".macro print C",
		"sow C",
		".endm",
		".macro skip",
		"jmp @end",
		"sow 'X'",
		"@end:",
		".endm",
		"print 'h'",
		"print 'i'",
		"skip",
		"skip",
		"halt",
	)

	assert.Equal([]byte{
		0x01, 'h',
		0x01, 'i',
		0x62, 9, 0x00, 0x01, 'X',
		0x62, 14, 0x00, 0x01, 'X',
		0x60,
	}, prog.Binary())
}

func TestAssemblerData(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"jmp start",
		".org 8",
		"msg: .byte 'h' 'i' 0 msg",
		"start: ldb r0 msg",
		"pushb r0",
		"pushb 0 r0",
		"popb r1",
		"mov flags 1",
		"mov r0 ep",
		"soc",
		"halt",
	)

	assert.Equal([]byte{
		0x62, 12, 0x00,
		0, 0, 0, 0, 0,
		'h', 'i', 0, 8,
		0x64, 0x80, 8,
		0x65, 0x00, 0x80,
		0x65, 0x00, 0x80,
		0x6c, 0x81,
		0x61, 0x8c, 0x01,
		0x61, 0x80, 0x8f,
		0x02,
		0x60,
	}, prog.Binary())

	dbg := prog.Debug(10)
	assert.Equal(3, dbg.LineNo)
	assert.Equal(2, dbg.Index)
}

func TestAssemblerErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []string
		err     error
		lineno  int
	}){
		{"invalid", []string{"frob r0"}, ErrInstructionInvalid, 1},
		{"count", []string{"halt", "add r0"}, ErrOperandCount, 2},
		{"extra", []string{"soc 1"}, ErrOperandCount, 1},
		{"range_high", []string{"mov r0 128"}, ErrOperandRange, 1},
		{"range_neg", []string{"mov r0 -1"}, ErrOperandRange, 1},
		{"register", []string{"mov r200 1"}, ErrRegisterInvalid, 1},
		{"label_dup", []string{"a: halt", "a: halt"}, ErrLabelDuplicate, 2},
		{"label_range", []string{"jmp far", ".org 130", "far: halt"}, ErrLabelRange, 1},
		{"equ_syntax", []string{".equ X"}, ErrEquateSyntax, 1},
		{"equ_dup", []string{".equ X 1", ".equ X 2"}, ErrEquateDuplicate, 2},
		{"macro_lonely", []string{".macro m", "halt"}, ErrMacroLonely, 2},
		{"macro_endm", []string{".endm"}, ErrMacroLonelyEndm, 1},
		{"macro_nest", []string{".macro m", ".macro n"}, ErrMacroNesting, 2},
		{"macro_args", []string{".macro m A", "sow A", ".endm", "m"}, ErrMacroSyntax, 4},
		{"org_back", []string{".org 4", "halt", ".org 2"}, ErrOrgBackward, 3},
		{"org_syntax", []string{".org"}, ErrOrgSyntax, 1},
		{"byte_syntax", []string{".byte"}, ErrByteSyntax, 1},
		{"byte_range", []string{".byte 256"}, ErrOperandRange, 1},
		{"byte_register", []string{".byte r1"}, ErrOperandRange, 1},
		{"macro_inner", []string{".macro m", "frob", ".endm", "m"}, ErrInstructionInvalid, 4},
	}

	for _, entry := range table {
		asm := &Assembler{}
		_, err := asm.Parse(strings.NewReader(strings.Join(entry.program, "\n")))
		assert.ErrorIs(err, entry.err, entry.name)

		var syntax *ErrSyntax
		if assert.True(errors.As(err, &syntax), entry.name) {
			assert.Equal(entry.lineno, syntax.LineNo, entry.name)
		}
	}
}

func TestAssemblerCharacter(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"sow ';' ; semicolon",
		"sow '\\n'",
		".byte 'a' ';'",
	)
	assert.Equal([]byte{0x01, 0x3b, 0x01, '\n', 'a', ';'}, prog.Binary())

	table := []string{
		"sow '",
		".byte '",
		"sow 'ab'",
		"mov r0 'x",
	}

	for _, text := range table {
		asm := &Assembler{}
		_, err := asm.Parse(strings.NewReader(text))
		var err_char ErrParseCharacter
		assert.True(errors.As(err, &err_char), text)

		var syntax *ErrSyntax
		if assert.True(errors.As(err, &syntax), text) {
			assert.Equal(1, syntax.LineNo, text)
		}
	}
}

func TestAssemblerLabelMissing(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := asm.Parse(strings.NewReader("halt\njmp nowhere"))

	var missing ErrLabelMissing
	assert.ErrorAs(err, &missing)
	assert.Equal(ErrLabelMissing("nowhere"), missing)

	var syntax *ErrSyntax
	assert.ErrorAs(err, &syntax)
	assert.Equal(2, syntax.LineNo)
}

func TestAssemblerExpression(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := asm.Parse(strings.NewReader("mov r0 $(1 +)"))
	assert.Error(err)

	_, err = asm.Parse(strings.NewReader(`mov r0 $("text")`))
	assert.ErrorIs(err, ErrParseExpression(`"text"`))

	_, err = asm.Parse(strings.NewReader("mov r0 $(100 + 28)"))
	assert.ErrorIs(err, ErrOperandRange)
}
