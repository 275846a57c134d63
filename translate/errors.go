package translate

import (
	"fmt"

	goerrors "github.com/go-errors/errors"

	"github.com/samghub/binnavi/instr"
)

// UnsupportedInstructionError reports a native instruction the lifter cannot
// translate: an unknown mnemonic or an operand tree of an unexpected shape.
type UnsupportedInstructionError struct {
	Address  uint64
	Mnemonic string
	Reason   string
}

func (e *UnsupportedInstructionError) Error() string {
	return fmt.Sprintf("unsupported instruction %q at %08X: %s", e.Mnemonic, e.Address, e.Reason)
}

// Unsupported creates an UnsupportedInstructionError for inst.
func Unsupported(inst *instr.Instruction, format string, args ...interface{}) error {
	return &UnsupportedInstructionError{
		Address:  inst.Address,
		Mnemonic: inst.Mnemonic,
		Reason:   fmt.Sprintf(format, args...),
	}
}

// InternalTranslationError reports a translator that produced, or was about
// to produce, malformed IR.
type InternalTranslationError struct {
	Address  uint64
	Mnemonic string
	Reason   string

	cause *goerrors.Error
}

func (e *InternalTranslationError) Error() string {
	return fmt.Sprintf("internal translation error for %q at %08X: %s", e.Mnemonic, e.Address, e.Reason)
}

// ErrorStack returns the stack captured where the error was raised.
func (e *InternalTranslationError) ErrorStack() string {
	if e.cause == nil {
		return e.Error()
	}

	return e.cause.ErrorStack()
}

// Internal creates an InternalTranslationError for inst, capturing the
// caller's stack.
func Internal(inst *instr.Instruction, format string, args ...interface{}) error {
	reason := fmt.Sprintf(format, args...)

	return &InternalTranslationError{
		Address:  inst.Address,
		Mnemonic: inst.Mnemonic,
		Reason:   reason,
		cause:    goerrors.Wrap(reason, 1),
	}
}
