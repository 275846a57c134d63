package core

import "github.com/samghub/binnavi/ir"

// Policy decides what happens when the interpreter reaches an unkn
// instruction, such as a system call or a privileged operation. It may change
// the state and tells whether execution continues.
type Policy interface {
	HandleUnknown(state *State, inst ir.Instruction) (bool, error)
}

// EmptyPolicy leaves the state untouched and continues.
type EmptyPolicy struct{}

// HandleUnknown continues execution.
func (EmptyPolicy) HandleUnknown(*State, ir.Instruction) (bool, error) {
	return true, nil
}

// HaltPolicy stops at the first unkn instruction.
type HaltPolicy struct{}

// HandleUnknown stops execution.
func (HaltPolicy) HandleUnknown(*State, ir.Instruction) (bool, error) {
	return false, nil
}

// PolicyFunc adapts a function to a Policy.
type PolicyFunc func(state *State, inst ir.Instruction) (bool, error)

// HandleUnknown calls f.
func (f PolicyFunc) HandleUnknown(state *State, inst ir.Instruction) (bool, error) {
	return f(state, inst)
}
