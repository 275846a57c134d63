package mips

import (
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

func registerMemory(r *translate.Registry) {
	r.RegisterFunc(emitLoad(ir.Dword, false), "lw")
	r.RegisterFunc(emitLoad(ir.Word, true), "lh")
	r.RegisterFunc(emitLoad(ir.Word, false), "lhu")
	r.RegisterFunc(emitLoad(ir.Byte, true), "lb")
	r.RegisterFunc(emitLoad(ir.Byte, false), "lbu")
	r.RegisterFunc(emitStore(ir.Dword), "sw")
	r.RegisterFunc(emitStore(ir.Word), "sh")
	r.RegisterFunc(emitStore(ir.Byte), "sb")
}

// address computes the address of a memory operand such as [$sp + 16].
func address(b *translate.Builder, i int) ir.Operand {
	n := node(b, i)
	if n.Type != instr.MemoryDereference {
		b.Unsupported("operand %d is not a memory reference", i)
		return translate.Const(0, w)
	}

	return translate.EffectiveAddress(b, n.Child(0), readRegister)
}

func emitLoad(size ir.OperandSize, signed bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(2) {
			return
		}

		v := b.Ldm(address(b, 1), size)
		if signed && size != w {
			v = b.SignExtend(v, size, w)
		}

		write(b, 0, v)
	}
}

func emitStore(size ir.OperandSize) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(2) {
			return
		}

		v := read(b, 0)
		if size != w {
			v = b.Str(v, size)
		}

		b.Stm(v, address(b, 1))
	}
}
