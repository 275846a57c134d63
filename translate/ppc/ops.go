package ppc

import (
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

// binary computes the result of a three-operand instruction.
type binary func(b *translate.Builder) ir.Operand

func registerArithmetic(r *translate.Registry) {
	withRecord := func(name string, f binary) {
		r.RegisterFunc(emitBinary(f, false), name)
		r.RegisterFunc(emitBinary(f, true), name+".")
	}

	withRecord("add", func(b *translate.Builder) ir.Operand {
		return b.Add(read(b, 1), read(b, 2), w)
	})
	withRecord("subf", func(b *translate.Builder) ir.Operand {
		return b.Sub(read(b, 2), read(b, 1), w)
	})
	withRecord("and", func(b *translate.Builder) ir.Operand {
		return b.And(read(b, 1), read(b, 2), w)
	})
	withRecord("or", func(b *translate.Builder) ir.Operand {
		return b.Or(read(b, 1), read(b, 2), w)
	})
	withRecord("xor", func(b *translate.Builder) ir.Operand {
		return b.Xor(read(b, 1), read(b, 2), w)
	})
	withRecord("neg", func(b *translate.Builder) ir.Operand {
		return b.Negate(read(b, 1), w)
	})

	r.RegisterFunc(emitBinary(func(b *translate.Builder) ir.Operand {
		return b.Add(readBase(b, node(b, 1).Value), read(b, 2), w)
	}, false), "addi")
	r.RegisterFunc(emitBinary(func(b *translate.Builder) ir.Operand {
		return b.Add(readBase(b, node(b, 1).Value), b.Shl(read(b, 2), 16, w), w)
	}, false), "addis")
	r.RegisterFunc(emitBinary(func(b *translate.Builder) ir.Operand {
		return b.And(read(b, 1), unsigned16(b, 2), w)
	}, true), "andi.")
	r.RegisterFunc(emitBinary(func(b *translate.Builder) ir.Operand {
		return b.Or(read(b, 1), unsigned16(b, 2), w)
	}, false), "ori")
	r.RegisterFunc(emitBinary(func(b *translate.Builder) ir.Operand {
		return b.Or(read(b, 1), b.Shl(unsigned16(b, 2), 16, w), w)
	}, false), "oris")
	r.RegisterFunc(emitBinary(func(b *translate.Builder) ir.Operand {
		return b.Xor(read(b, 1), unsigned16(b, 2), w)
	}, false), "xori")
	r.RegisterFunc(emitBinary(func(b *translate.Builder) ir.Operand {
		return b.Mul(read(b, 1), read(b, 2), w)
	}, false), "mullw")
	r.RegisterFunc(emitBinary(func(b *translate.Builder) ir.Operand {
		n := b.And(read(b, 2), translate.Const(0x3F, w), ir.Byte)
		return b.Bsh(read(b, 1), n, w)
	}, false), "slw")
	r.RegisterFunc(emitBinary(func(b *translate.Builder) ir.Operand {
		n := b.And(read(b, 2), translate.Const(0x3F, w), ir.Byte)
		return b.Bsh(read(b, 1), b.Negate(n, ir.Byte), w)
	}, false), "srw")

	r.RegisterFunc(emitLoadImmediate(false), "li")
	r.RegisterFunc(emitLoadImmediate(true), "lis")
	r.RegisterFunc(emitMove, "mr")
	r.RegisterFunc(emitDivwu, "divwu")
	r.RegisterFunc(emitCompare(true, false), "cmpw")
	r.RegisterFunc(emitCompare(true, true), "cmpwi")
	r.RegisterFunc(emitCompare(false, false), "cmplw")
	r.RegisterFunc(emitCompare(false, true), "cmplwi")
	r.RegisterFunc(emitMoveFrom("lr"), "mflr")
	r.RegisterFunc(emitMoveFrom("ctr"), "mfctr")
	r.RegisterFunc(emitMoveTo("lr"), "mtlr")
	r.RegisterFunc(emitMoveTo("ctr"), "mtctr")
	r.RegisterFunc(func(b *translate.Builder) { b.Nop() }, "nop")
	r.RegisterFunc(func(b *translate.Builder) { b.Unkn() }, "sc")
}

func unsigned16(b *translate.Builder, i int) ir.Operand {
	return b.And(read(b, i), translate.Const(0xFFFF, w), w)
}

func emitBinary(f binary, rc bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(2, 3) {
			return
		}

		res := f(b)
		if rc {
			record(b, res)
		}

		write(b, 0, res)
	}
}

func emitLoadImmediate(shifted bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(2) {
			return
		}

		v := read(b, 1)
		if shifted {
			v = b.Shl(v, 16, w)
		}

		write(b, 0, v)
	}
}

func emitMove(b *translate.Builder) {
	if !b.Expect(2) {
		return
	}

	write(b, 0, read(b, 1))
}

// emitDivwu leaves the result undefined for a zero divisor.
func emitDivwu(b *translate.Builder) {
	if !b.Expect(3) {
		return
	}

	n := node(b, 0)
	if n.Type != instr.Register {
		b.Unsupported("divwu needs a register destination")
		return
	}

	x, y := read(b, 1), read(b, 2)
	divide := b.NewLabel()
	end := b.NewLabel()

	b.Branch(b.NotZero(y), divide)
	b.Undef(ir.Register(n.Value, w))
	b.BranchAlways(end)

	b.Mark(divide)
	write(b, 0, b.Div(x, y, w))
	b.Mark(end)
}

func emitCompare(signed, immediate bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(2, 3) {
			return
		}

		cr, first := field(b)
		if len(b.Inst.Operands)-first != 2 {
			b.Unsupported("compare takes two operands after the field")
			return
		}

		x := read(b, first)
		y := read(b, first+1)
		if immediate && !signed {
			y = unsigned16(b, first+1)
		}

		setField(b, cr, x, y, signed)
	}
}

func emitMoveFrom(reg string) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(1) {
			return
		}

		write(b, 0, ir.Register(reg, w))
	}
}

func emitMoveTo(reg string) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(1) {
			return
		}

		b.Move(read(b, 0), ir.Register(reg, w))
	}
}

func registerMemory(r *translate.Registry) {
	r.RegisterFunc(emitLoad(ir.Dword), "lwz")
	r.RegisterFunc(emitLoad(ir.Word), "lhz")
	r.RegisterFunc(emitLoad(ir.Byte), "lbz")
	r.RegisterFunc(emitStore(ir.Dword), "stw")
	r.RegisterFunc(emitStore(ir.Word), "sth")
	r.RegisterFunc(emitStore(ir.Byte), "stb")
}

func address(b *translate.Builder, i int) ir.Operand {
	n := node(b, i)
	if n.Type != instr.MemoryDereference {
		b.Unsupported("operand %d is not a memory reference", i)
		return translate.Const(0, w)
	}

	return translate.EffectiveAddress(b, n.Child(0), readBase)
}

func emitLoad(size ir.OperandSize) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(2) {
			return
		}

		write(b, 0, b.Ldm(address(b, 1), size))
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
