package cpu

import (
	"errors"

	"github.com/ezrec/bytecpu/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrDivideByZero = errors.New(f("divide by zero"))
	ErrStackFull    = errors.New(f("stack full"))
	ErrStackEmpty   = errors.New(f("stack empty"))
	ErrFetch        = errors.New(f("fetch past end of memory"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrOrgSyntax          = errors.New(f(".org syntax"))
	ErrOrgBackward        = errors.New(f(".org moves backward"))
	ErrByteSyntax         = errors.New(f(".byte syntax"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrLabelRange         = errors.New(f("label address exceeds literal range"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOperandCount       = errors.New(f("wrong number of operands"))
	ErrOperandRange       = errors.New(f("literal out of range"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrAddress reports a memory access outside of machine memory.
type ErrAddress int64

func (ea ErrAddress) Error() string {
	return f("address 0x%x out of bounds", int64(ea))
}

// ErrFault is an execution fault, located at the faulting instruction.
type ErrFault struct {
	Ip          uint32
	Instruction Instruction
	Err         error
}

func (err *ErrFault) Error() string {
	if errors.Is(err.Err, ErrFetch) {
		// Nothing was decoded.
		return f("fault at 0x%03x: %v", err.Ip, err.Err)
	}
	return f("fault at 0x%03x '%v': %v", err.Ip, err.Instruction.String(), err.Err)
}

func (err *ErrFault) Unwrap() error {
	return err.Err
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
