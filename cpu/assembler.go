// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":            "0",
	"REGISTER_COUNT":    fmt.Sprintf("%d", REGISTER_COUNT),
	"FLAGS_REGISTER":    fmt.Sprintf("%d", FLAGS_REGISTER),
	"EXEC_PTR_REGISTER": fmt.Sprintf("%d", EXEC_PTR_REGISTER),
}

// Assembler is a single pass macro assembler for the byte machine.
type Assembler struct {
	Verbose bool   // If set, verbosely logs the assembler actions.
	Line    []Line // List of generated lines.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	org int // Location counter.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regMap is a map of reserved register names to register indexes.
var regMap = map[string]int{
	"flags": FLAGS_REGISTER,
	"ep":    EXEC_PTR_REGISTER,
}

var reLabel = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)

// valueOf returns the value of a simple number.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		if len(word) < 2 || word[len(word)-1] != '\'' {
			err = ErrParseCharacter(word)
			return
		}
		err = ErrParseCharacter(word[1 : len(word)-1])
		return
	}
	value, err = strconv.ParseInt(word, 0, 64)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	return
}

// register decodes a register name, rN or a reserved name.
func (asm *Assembler) register(word string) (operand byte, ok bool, err error) {
	index, ok := regMap[word]
	if ok {
		operand = Register(index)
		return
	}

	if len(word) < 2 || word[0] != 'r' || word[1] < '0' || word[1] > '9' {
		return
	}

	ok = true
	n, err := strconv.ParseUint(word[1:], 10, 8)
	if err != nil || n >= REGISTER_COUNT {
		err = ErrRegisterInvalid
		return
	}

	operand = Register(int(n))
	return
}

// operand determines if a word is a register, a literal, or a label
// to be linked later. Literals must fit in limit.
func (asm *Assembler) operand(word string, limit int64) (value byte, label string, err error) {
	value, ok, err := asm.register(word)
	if ok || err != nil {
		if ok && limit > OPERAND_LIMIT {
			// Raw data bytes may not name registers.
			err = ErrOperandRange
		}
		return
	}

	if reLabel.MatchString(word) {
		label = word
		return
	}

	v64, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if v64 < 0 || v64 > limit {
		err = ErrOperandRange
		return
	}

	value = byte(v64)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v64 int64
		v64, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(addr)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// parseLine parses a single line into words.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	re := regexp.MustCompile(`'\\?[^']'`)
	line = re.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "e":
				str = "\033"
			case "0":
				str = "\000"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	re = regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(strings.ReplaceAll(line, ",", " "))

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.org
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		// Local labels are unique per expansion.
		local := fmt.Sprintf("%v_%v_", name, lineno)
		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// stripComment removes a ';' comment, ignoring ';' inside a '...' literal.
func stripComment(text string) string {
	quoted := false
	for n := 0; n < len(text); n++ {
		switch text[n] {
		case '\\':
			if quoted {
				n++
			}
		case '\'':
			quoted = !quoted
		case ';':
			if !quoted {
				return text[:n]
			}
		}
	}

	return text
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Line = asm.Line[:0]
	asm.org = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.TrimSpace(stripComment(text))
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Line {
		op := &asm.Line[n]

		for _, link := range op.Links {
			addr, ok := asm.Label[link.Label]
			if !ok {
				lineno = op.LineNo
				line = strings.Join(op.Words, " ")
				err = ErrLabelMissing(link.Label)
				return
			}
			limit := OPERAND_LIMIT
			if op.Words[0] == ".byte" {
				limit = 0xff
			}
			if addr > limit {
				lineno = op.LineNo
				line = strings.Join(op.Words, " ")
				err = ErrLabelRange
				return
			}
			op.Bytes[link.Index] = byte(addr)
		}
	}

	prog = &Program{
		Lines: slices.Clone(asm.Line),
	}

	return
}

// emit appends a generated line at the location counter.
func (asm *Assembler) emit(lineno int, words []string, bytes []byte, links []Link) {
	line := Line{LineNo: lineno, Addr: asm.org, Words: words, Bytes: bytes, Links: links}
	asm.Line = append(asm.Line, line)
	asm.org += len(bytes)
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	switch words[0] {
	case ".org":
		if len(words) != 2 {
			err = ErrOrgSyntax
			return
		}
		var addr int64
		addr, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		if addr < int64(asm.org) {
			err = ErrOrgBackward
			return
		}
		asm.org = int(addr)
		return
	case ".byte":
		if len(words) < 2 {
			err = ErrByteSyntax
			return
		}
		bytes := make([]byte, 0, len(words)-1)
		var links []Link
		for _, word := range words[1:] {
			var value byte
			var label string
			value, label, err = asm.operand(word, 0xff)
			if err != nil {
				return
			}
			if len(label) != 0 {
				links = append(links, Link{Index: len(bytes), Label: label})
			}
			bytes = append(bytes, value)
		}
		asm.emit(lineno, slices.Clone(words), bytes, links)
		return
	}

	op, ok := OpcodeOf(words[0])
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	args := words[1:]

	// pushb VALUE => pushb 0 VALUE
	if op == OP_PUSHB && len(args) == 1 {
		args = []string{"0", args[0]}
	}

	if len(args) != op.Arity() {
		err = ErrOperandCount
		return
	}

	operands := make([]byte, len(args))
	var links []Link
	for n, word := range args {
		var label string
		operands[n], label, err = asm.operand(word, OPERAND_LIMIT)
		if err != nil {
			return
		}
		if len(label) != 0 {
			links = append(links, Link{Index: 1 + n, Label: label})
		}
	}

	inst := MakeInstruction(op, operands...)
	asm.emit(lineno, slices.Clone(words), inst.Bytes(), links)

	return
}
