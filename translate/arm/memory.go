package arm

import (
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

func registerMemory(r *translate.Registry) {
	conditional(r, "ldr", emitLoad(ir.Dword))
	conditional(r, "ldrh", emitLoad(ir.Word))
	conditional(r, "ldrb", emitLoad(ir.Byte))
	conditional(r, "str", emitStore(ir.Dword))
	conditional(r, "strh", emitStore(ir.Word))
	conditional(r, "strb", emitStore(ir.Byte))
}

// address computes the address of an offset-addressed memory operand such
// as [r1, #4] or [r1, r2, lsl #2].
func address(b *translate.Builder, i int) ir.Operand {
	n := node(b, i)
	if n.Type != instr.MemoryDereference {
		b.Unsupported("operand %d is not a memory reference", i)
		return translate.Const(0, w)
	}

	return translate.EffectiveAddress(b, n.Child(0), readRegister)
}

func emitLoad(size ir.OperandSize) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(2) {
			return
		}

		v := b.Ldm(address(b, 1), size)
		writeRegister(b, 0, v)
	}
}

func emitStore(size ir.OperandSize) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(2) {
			return
		}

		n := node(b, 0)
		if n.Type != instr.Register {
			b.Unsupported("store source must be a register")
			return
		}

		v := readRegister(b, n.Value)
		if size != w {
			v = b.Str(v, size)
		}

		b.Stm(v, address(b, 1))
	}
}
