package core

import (
	"fmt"
	"math/big"

	log "github.com/sirupsen/logrus"

	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/ir"
)

// HaltReason tells why the interpreter stopped.
type HaltReason int

// Halt reasons.
const (
	Running HaltReason = iota
	EndOfProgram
	LeftProgram
	PolicyHalt
	StepLimit
	StopAddress
	Faulted
)

func (h HaltReason) String() string {
	switch h {
	case Running:
		return "running"
	case EndOfProgram:
		return "end of program"
	case LeftProgram:
		return "left program"
	case PolicyHalt:
		return "stopped by policy"
	case StepLimit:
		return "step limit"
	case StopAddress:
		return "stop address"
	case Faulted:
		return "faulted"
	}

	return "unknown"
}

// Interpreter executes IR programs against a CPU state.
type Interpreter struct {
	arch        *arch.Policy
	emu         *irEmulator
	state       *State
	maxSteps    int
	stopAddress uint64
	hasStop     bool

	index    *programIndex
	halt     HaltReason
	steps    int
	entering bool
}

// Architecture returns the policy the interpreter was built for.
func (i *Interpreter) Architecture() *arch.Policy {
	return i.arch
}

// State returns the CPU state.
func (i *Interpreter) State() *State {
	return i.state
}

// Memory returns the memory of the CPU state.
func (i *Interpreter) Memory() *Memory {
	return i.state.Memory
}

// Steps is the number of IR instructions executed by the current run.
func (i *Interpreter) Steps() int {
	return i.steps
}

// Halted returns why the last run stopped, or Running.
func (i *Interpreter) Halted() HaltReason {
	return i.halt
}

// SetRegister sets an architecture register before or between runs.
func (i *Interpreter) SetRegister(name string, value *big.Int, size ir.OperandSize, status RegisterStatus) error {
	if !i.arch.IsNative(name) {
		return fmt.Errorf("%w: %q", ErrUnknownRegister, name)
	}

	i.state.SetRegister(name, value, size, status)

	return nil
}

// SetRegisterUint64 is SetRegister with a defined uint64 value.
func (i *Interpreter) SetRegisterUint64(name string, value uint64, size ir.OperandSize) error {
	return i.SetRegister(name, new(big.Int).SetUint64(value), size, Defined)
}

// Reset discards the CPU state.
func (i *Interpreter) Reset() {
	i.state = NewState(i.state.Memory.Endianness())
	i.index = nil
	i.halt = Running
	i.steps = 0
}

// Load prepares a run of program from the native address start.
func (i *Interpreter) Load(program Program, start uint64) error {
	i.index = newProgramIndex(program)
	i.steps = 0

	if !i.index.has(start) {
		i.halt = Faulted
		return fmt.Errorf("%w: %X", ErrNoEntry, start)
	}

	i.halt = Running

	at, ok := i.index.entry(start)
	if !ok {
		i.state.Cursor = ir.SubAddress{Address: start}
		i.stop(EndOfProgram)

		return nil
	}

	i.state.Cursor = at
	i.entering = true

	return nil
}

// Interpret runs program from start until it halts and returns the state.
func (i *Interpreter) Interpret(program Program, start uint64) (*State, error) {
	if err := i.Load(program, start); err != nil {
		return i.state, err
	}

	_, err := i.Run()

	return i.state, err
}

// Run steps until the program halts.
func (i *Interpreter) Run() (HaltReason, error) {
	for {
		running, err := i.Step()
		if err != nil {
			return i.halt, err
		}

		if !running {
			return i.halt, nil
		}
	}
}

func (i *Interpreter) stop(reason HaltReason) {
	i.halt = reason

	log.WithFields(log.Fields{
		"reason": reason,
		"steps":  i.steps,
		"cursor": i.state.Cursor,
	}).Debug("interpreter halted")
}

func (i *Interpreter) setProgramCounter(addr uint64) {
	pc := i.arch.ProgramCounter
	i.state.SetRegister(pc, new(big.Int).SetUint64(addr), i.arch.ProgramCounterSize(), Defined)
}

// Step executes one IR instruction. It returns false once the program has
// halted.
func (i *Interpreter) Step() (bool, error) {
	if i.index == nil || i.halt != Running {
		return false, nil
	}

	if i.maxSteps > 0 && i.steps >= i.maxSteps {
		i.stop(StepLimit)
		return false, nil
	}

	at := i.state.Cursor
	if i.entering {
		if i.hasStop && at.Address == i.stopAddress {
			i.setProgramCounter(at.Address)
			i.stop(StopAddress)

			return false, nil
		}

		i.state.clearTemporaries()
		i.setProgramCounter(at.Address)
		i.entering = false
	}

	inst, ok := i.index.fetch(at)
	if !ok {
		i.halt = Faulted
		return false, &InterpreterError{
			Address: at.Address, Position: at.Position, Err: ErrBadJumpTarget,
		}
	}

	log.WithFields(log.Fields{
		"address":  inst.Address,
		"position": inst.Position,
		"opcode":   inst.Opcode,
	}).Trace("step")

	eff, err := i.emu.RunInst(inst, i.state)
	i.steps++

	if err != nil {
		i.halt = Faulted
		return false, err
	}

	if eff.halt {
		i.stop(PolicyHalt)
		return false, nil
	}

	if eff.jump {
		return i.jump(inst, eff)
	}

	return i.advance(at), nil
}

func (i *Interpreter) jump(inst ir.Instruction, eff effect) (bool, error) {
	if eff.native {
		if !i.index.has(eff.target.Address) {
			i.setProgramCounter(eff.target.Address)
			i.state.Cursor = ir.SubAddress{Address: eff.target.Address}
			i.stop(LeftProgram)

			return false, nil
		}

		at, ok := i.index.entry(eff.target.Address)
		if !ok {
			i.setProgramCounter(eff.target.Address)
			i.stop(EndOfProgram)

			return false, nil
		}

		i.state.Cursor = at
		i.entering = true

		return true, nil
	}

	if _, ok := i.index.fetch(eff.target); !ok {
		i.halt = Faulted
		return false, fault(inst, fmt.Errorf("%w %s", ErrBadJumpTarget, eff.target))
	}

	if eff.target.Address != inst.Address {
		i.entering = true
	}

	i.state.Cursor = eff.target

	return true, nil
}

func (i *Interpreter) advance(at ir.SubAddress) bool {
	next := ir.SubAddress{Address: at.Address, Position: at.Position + 1}
	if _, ok := i.index.fetch(next); ok {
		i.state.Cursor = next
		return true
	}

	addr, ok := i.index.nextAddress(at.Address)
	if !ok {
		i.stop(EndOfProgram)
		return false
	}

	entry, ok := i.index.entry(addr)
	if !ok {
		i.stop(EndOfProgram)
		return false
	}

	i.state.Cursor = entry
	i.entering = true

	return true
}
