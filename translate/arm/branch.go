package arm

import (
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

func registerBranches(r *translate.Registry) {
	conditional(r, "b", emitBranch(false))
	conditional(r, "bl", emitBranch(true))
	conditional(r, "bx", emitExchange(false))
	conditional(r, "blx", emitExchange(true))
}

func link(b *translate.Builder) {
	b.WriteRegister("lr", translate.Const(b.Address()+4, w))
}

func emitBranch(withLink bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(1) {
			return
		}

		n := node(b, 0)
		if n.Type != instr.ImmediateInteger {
			b.Unsupported("branch target must be an immediate")
			return
		}

		if withLink {
			link(b)
		}

		b.Goto(immediate(b, n))
	}
}

// emitExchange branches to a register. Thumb state is not modelled: the low
// bit of the target is cleared.
func emitExchange(withLink bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(1) {
			return
		}

		n := node(b, 0)

		var dest ir.Operand
		switch n.Type {
		case instr.Register:
			dest = b.And(readRegister(b, n.Value), translate.Const(0xFFFFFFFE, w), w)
		case instr.ImmediateInteger:
			if !withLink {
				b.Unsupported("bx needs a register")
				return
			}
			dest = immediate(b, n)
		default:
			b.Unsupported("unexpected %s operand", n.Type)
			return
		}

		if withLink {
			link(b)
		}

		b.Goto(dest)
	}
}
