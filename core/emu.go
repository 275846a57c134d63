package core

import (
	"fmt"
	"math/big"

	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/ir"
)

// effect is what an instruction asks the interpreter to do next.
type effect struct {
	jump   bool
	native bool
	target ir.SubAddress
	halt   bool
}

type opFunc func(inst ir.Instruction, state *State) (effect, error)

type irEmulator struct {
	arch   *arch.Policy
	policy Policy
	ops    map[ir.Opcode]opFunc
}

func newIREmulator(a *arch.Policy, policy Policy) *irEmulator {
	e := &irEmulator{arch: a, policy: policy}

	e.ops = map[ir.Opcode]opFunc{
		ir.Add:   e.arith(func(z, x, y *big.Int) error { z.Add(x, y); return nil }),
		ir.Sub:   e.arith(func(z, x, y *big.Int) error { z.Sub(x, y); return nil }),
		ir.Mul:   e.arith(func(z, x, y *big.Int) error { z.Mul(x, y); return nil }),
		ir.Div:   e.arith(divide),
		ir.Mod:   e.arith(modulo),
		ir.And:   e.arith(func(z, x, y *big.Int) error { z.And(x, y); return nil }),
		ir.Or:    e.arith(func(z, x, y *big.Int) error { z.Or(x, y); return nil }),
		ir.Xor:   e.arith(func(z, x, y *big.Int) error { z.Xor(x, y); return nil }),
		ir.Bsh:   e.runBsh,
		ir.Not:   e.runNot,
		ir.Bisz:  e.runBisz,
		ir.Str:   e.runStr,
		ir.Ldm:   e.runLdm,
		ir.Stm:   e.runStm,
		ir.Jcc:   e.runJcc,
		ir.Nop:   func(ir.Instruction, *State) (effect, error) { return effect{}, nil },
		ir.Undef: e.runUndef,
		ir.Unkn:  e.runUnkn,
	}

	return e
}

// RunInst executes one IR instruction against the state.
func (e *irEmulator) RunInst(inst ir.Instruction, state *State) (effect, error) {
	op, ok := e.ops[inst.Opcode]
	if !ok {
		return effect{}, fault(inst, fmt.Errorf("%w %q", ErrUnknownOpcode, inst.Opcode))
	}

	eff, err := op(inst, state)
	if err != nil {
		return effect{}, fault(inst, err)
	}

	return eff, nil
}

func (e *irEmulator) readOperand(o ir.Operand, state *State) (*big.Int, error) {
	switch o.Kind {
	case ir.KindImmediate:
		return o.Value(), nil
	case ir.KindRegister:
		if !e.arch.IsNative(o.Name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRegister, o.Name)
		}

		r, ok := state.registers[o.Name]
		if !ok || r.Status != Defined {
			return nil, fmt.Errorf("%w %q", ErrUndefinedRegister, o.Name)
		}

		return o.Size.Truncate(r.Value), nil
	case ir.KindTemporary:
		r, ok := state.temporary(o.Name)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUndefinedRegister, o.Name)
		}

		return o.Size.Truncate(r.Value), nil
	}

	return nil, fmt.Errorf("%w: %s operand is not a value", ErrMalformed, o.Kind)
}

func (e *irEmulator) writeOperand(o ir.Operand, v *big.Int, state *State) error {
	switch o.Kind {
	case ir.KindRegister:
		if !e.arch.IsNative(o.Name) {
			return fmt.Errorf("%w: %q", ErrUnknownRegister, o.Name)
		}

		state.SetRegister(o.Name, v, o.Size, Defined)

		return nil
	case ir.KindTemporary:
		state.setTemporary(o.Name, o.Size.Truncate(v), o.Size)
		return nil
	}

	return fmt.Errorf("%w: cannot write to a %s operand", ErrMalformed, o.Kind)
}

func (e *irEmulator) arith(f func(z, x, y *big.Int) error) opFunc {
	return func(inst ir.Instruction, state *State) (effect, error) {
		x, err := e.readOperand(inst.Operands[0], state)
		if err != nil {
			return effect{}, err
		}

		y, err := e.readOperand(inst.Operands[1], state)
		if err != nil {
			return effect{}, err
		}

		z := new(big.Int)
		if err := f(z, x, y); err != nil {
			return effect{}, err
		}

		return effect{}, e.writeOperand(inst.Operands[2], z, state)
	}
}

func divide(z, x, y *big.Int) error {
	if y.Sign() == 0 {
		return ErrDivisionByZero
	}

	z.Quo(x, y)

	return nil
}

func modulo(z, x, y *big.Int) error {
	if y.Sign() == 0 {
		return ErrDivisionByZero
	}

	z.Rem(x, y)

	return nil
}

func (e *irEmulator) runBsh(inst ir.Instruction, state *State) (effect, error) {
	x, err := e.readOperand(inst.Operands[0], state)
	if err != nil {
		return effect{}, err
	}

	raw, err := e.readOperand(inst.Operands[1], state)
	if err != nil {
		return effect{}, err
	}

	amount := inst.Operands[1].Size.Signed(raw)
	z := new(big.Int)

	// Shifting past the output (left) or the input (right) leaves zero.
	if amount.Sign() >= 0 {
		if amount.Cmp(new(big.Int).SetUint64(uint64(inst.Operands[2].Size.Bits()))) < 0 {
			z.Lsh(x, uint(amount.Uint64()))
		}
	} else {
		n := new(big.Int).Neg(amount)
		if n.Cmp(new(big.Int).SetUint64(uint64(inst.Operands[0].Size.Bits()))) < 0 {
			z.Rsh(x, uint(n.Uint64()))
		}
	}

	return effect{}, e.writeOperand(inst.Operands[2], z, state)
}

func (e *irEmulator) runNot(inst ir.Instruction, state *State) (effect, error) {
	x, err := e.readOperand(inst.Operands[0], state)
	if err != nil {
		return effect{}, err
	}

	return effect{}, e.writeOperand(inst.Operands[2], new(big.Int).Not(x), state)
}

func (e *irEmulator) runBisz(inst ir.Instruction, state *State) (effect, error) {
	x, err := e.readOperand(inst.Operands[0], state)
	if err != nil {
		return effect{}, err
	}

	z := big.NewInt(0)
	if x.Sign() == 0 {
		z.SetInt64(1)
	}

	return effect{}, e.writeOperand(inst.Operands[2], z, state)
}

func (e *irEmulator) runStr(inst ir.Instruction, state *State) (effect, error) {
	x, err := e.readOperand(inst.Operands[0], state)
	if err != nil {
		return effect{}, err
	}

	return effect{}, e.writeOperand(inst.Operands[2], x, state)
}

func address(v *big.Int) uint64 {
	return ir.Qword.Truncate(v).Uint64()
}

func (e *irEmulator) runLdm(inst ir.Instruction, state *State) (effect, error) {
	a, err := e.readOperand(inst.Operands[0], state)
	if err != nil {
		return effect{}, err
	}

	out := inst.Operands[2]

	v, err := state.Memory.Load(address(a), out.Size)
	if err != nil {
		return effect{}, err
	}

	return effect{}, e.writeOperand(out, v, state)
}

func (e *irEmulator) runStm(inst ir.Instruction, state *State) (effect, error) {
	v, err := e.readOperand(inst.Operands[0], state)
	if err != nil {
		return effect{}, err
	}

	a, err := e.readOperand(inst.Operands[2], state)
	if err != nil {
		return effect{}, err
	}

	state.Memory.Store(address(a), v, inst.Operands[0].Size)

	return effect{}, nil
}

func (e *irEmulator) runJcc(inst ir.Instruction, state *State) (effect, error) {
	cond, err := e.readOperand(inst.Operands[0], state)
	if err != nil {
		return effect{}, err
	}

	if cond.Sign() == 0 {
		return effect{}, nil
	}

	target := inst.Operands[2]
	if target.Kind == ir.KindSubAddress {
		return effect{jump: true, target: target.Target}, nil
	}

	a, err := e.readOperand(target, state)
	if err != nil {
		return effect{}, err
	}

	return effect{
		jump:   true,
		native: true,
		target: ir.SubAddress{Address: address(a)},
	}, nil
}

func (e *irEmulator) runUndef(inst ir.Instruction, state *State) (effect, error) {
	o := inst.Operands[2]

	switch o.Kind {
	case ir.KindRegister:
		if !e.arch.IsNative(o.Name) {
			return effect{}, fmt.Errorf("%w: %q", ErrUnknownRegister, o.Name)
		}

		state.SetRegister(o.Name, new(big.Int), o.Size, Undefined)
	case ir.KindTemporary:
		delete(state.temporaries, o.Name)
	default:
		return effect{}, fmt.Errorf("%w: cannot undefine a %s operand", ErrMalformed, o.Kind)
	}

	return effect{}, nil
}

func (e *irEmulator) runUnkn(inst ir.Instruction, state *State) (effect, error) {
	cont, err := e.policy.HandleUnknown(state, inst)
	if err != nil {
		return effect{}, err
	}

	return effect{halt: !cont}, nil
}
