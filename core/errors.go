package core

import (
	"errors"
	"fmt"

	"github.com/samghub/binnavi/ir"
)

// Causes of interpreter errors, matched with errors.Is.
var (
	ErrUndefinedRegister = errors.New("read of an undefined register")
	ErrUnknownRegister   = errors.New("register is not part of the architecture")
	ErrAbsentMemory      = errors.New("read of memory that was never written")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrBadJumpTarget     = errors.New("jump to a missing IR position")
	ErrUnknownOpcode     = errors.New("unknown opcode")
	ErrMalformed         = errors.New("malformed instruction")
	ErrNoEntry           = errors.New("entry address is not in the program")
)

// InterpreterError is a failure while executing one IR instruction.
type InterpreterError struct {
	Address  uint64
	Position uint16
	Opcode   ir.Opcode
	Err      error
}

func (e *InterpreterError) Error() string {
	return fmt.Sprintf("interpreter error at %08X.%d (%s): %v", e.Address, e.Position, e.Opcode, e.Err)
}

func (e *InterpreterError) Unwrap() error {
	return e.Err
}

func fault(inst ir.Instruction, err error) error {
	return &InterpreterError{
		Address:  inst.Address,
		Position: inst.Position,
		Opcode:   inst.Opcode,
		Err:      err,
	}
}
