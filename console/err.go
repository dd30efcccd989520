package console

import (
	"errors"

	"github.com/ezrec/bytecpu/translate"
)

var f = translate.From

var (
	ErrCommandUnknown  = errors.New(f("unknown command"))
	ErrCommandArgument = errors.New(f("invalid command argument"))
)
