package console

import (
	"errors"
	"strconv"
	"strings"
)

// Op is a console command operation.
type Op int

const (
	CMD_STEP   = Op(iota) // Execute a single instruction.
	CMD_RESUME            // Run to completion.
	CMD_QUIT              // Leave the console.
	CMD_READ              // Read a memory byte.
	CMD_REGS              // Show the register dump.
	CMD_HELP              // List the commands.
)

// Command is a parsed console command.
type Command struct {
	Op   Op
	Addr uint32 // Address for CMD_READ.
}

var _command_words = map[string]Op{
	"step":   CMD_STEP,
	"s":      CMD_STEP,
	"resume": CMD_RESUME,
	"r":      CMD_RESUME,
	"quit":   CMD_QUIT,
	"q":      CMD_QUIT,
	"read":   CMD_READ,
	"m":      CMD_READ,
	"regs":   CMD_REGS,
	"help":   CMD_HELP,
	"?":      CMD_HELP,
}

// HELP is the command summary shown by CMD_HELP.
const HELP = `step, s, <enter>  execute one instruction
resume, r         run until halted
read N, m N       show the memory byte at address N
regs              show the registers
quit, q           leave the console`

// Parse a console command line.
// An empty line is a step.
func Parse(line string) (cmd Command, err error) {
	words := strings.Fields(line)
	if len(words) == 0 {
		cmd.Op = CMD_STEP
		return
	}

	op, ok := _command_words[strings.ToLower(words[0])]
	if !ok {
		err = errors.Join(ErrCommandUnknown, errors.New(words[0]))
		return
	}

	cmd.Op = op
	args := words[1:]

	switch op {
	case CMD_READ:
		if len(args) != 1 {
			err = errors.Join(ErrCommandArgument, errors.New(line))
			return
		}
		var addr uint64
		addr, err = strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			err = errors.Join(ErrCommandArgument, err)
			return
		}
		cmd.Addr = uint32(addr)
	default:
		if len(args) != 0 {
			err = errors.Join(ErrCommandArgument, errors.New(line))
			return
		}
	}

	return
}
