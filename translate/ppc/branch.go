package ppc

import (
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

func registerBranches(r *translate.Registry) {
	r.RegisterFunc(emitBranch(false), "b")
	r.RegisterFunc(emitBranch(true), "bl")
	r.RegisterFunc(emitBranchTo("lr", false), "blr")
	r.RegisterFunc(emitBranchTo("ctr", false), "bctr")
	r.RegisterFunc(emitBranchTo("ctr", true), "bctrl")
	r.RegisterFunc(emitDecrementAndBranch, "bdnz")

	bits := map[string]struct {
		bit string
		set bool
	}{
		"beq": {"eq", true},
		"bne": {"eq", false},
		"blt": {"lt", true},
		"bge": {"lt", false},
		"bgt": {"gt", true},
		"ble": {"gt", false},
	}
	for m, c := range bits {
		r.RegisterFunc(emitConditional(c.bit, c.set), m)
	}
}

func link(b *translate.Builder) {
	b.Move(translate.Const(b.Address()+4, w), ir.Register("lr", w))
}

func target(b *translate.Builder, i int) ir.Operand {
	n := node(b, i)
	if n.Type != instr.ImmediateInteger {
		b.Unsupported("branch target must be an immediate")
		return translate.Const(0, w)
	}

	return read(b, i)
}

func emitBranch(withLink bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(1) {
			return
		}

		dest := target(b, 0)
		if withLink {
			link(b)
		}

		b.Goto(dest)
	}
}

func emitBranchTo(reg string, withLink bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(0) {
			return
		}

		dest := b.Str(ir.Register(reg, w), w)
		if withLink {
			link(b)
		}

		b.Goto(dest)
	}
}

func emitDecrementAndBranch(b *translate.Builder) {
	if !b.Expect(1) {
		return
	}

	ctr := ir.Register("ctr", w)
	n := b.Sub(ctr, translate.Const(1, w), w)
	b.Move(n, ctr)
	b.Jump(b.NotZero(n), target(b, 0))
}

func emitConditional(bit string, set bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(1, 2) {
			return
		}

		cr, first := field(b)
		if len(b.Inst.Operands)-first != 1 {
			b.Unsupported("conditional branch takes a target after the field")
			return
		}

		cond := flag(cr + bit)
		if !set {
			cond = b.LogicalNot(cond)
		}

		b.Jump(cond, target(b, first))
	}
}
