package x86

import (
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

func registerData(r *translate.Registry, long bool) {
	r.RegisterFunc(emitMov, "mov")
	r.RegisterFunc(emitExtend(false), "movzx")
	r.RegisterFunc(emitExtend(true), "movsx")
	r.RegisterFunc(emitLea, "lea")
	r.RegisterFunc(emitXchg, "xchg")
	r.RegisterFunc(emitPush, "push")
	r.RegisterFunc(emitPop, "pop")
	r.RegisterFunc(emitLeave, "leave")
	r.RegisterFunc(emitWiden("al", "ax"), "cbw")
	r.RegisterFunc(emitWiden("ax", "eax"), "cwde")
	r.RegisterFunc(emitSplit("ax", "dx"), "cwd")
	r.RegisterFunc(emitSplit("eax", "edx"), "cdq")
	r.RegisterFunc(emitSetFlag(CF, 0), "clc")
	r.RegisterFunc(emitSetFlag(CF, 1), "stc")
	r.RegisterFunc(emitCmc, "cmc")
	r.RegisterFunc(emitSetFlag(DF, 0), "cld")
	r.RegisterFunc(emitSetFlag(DF, 1), "std")
	r.RegisterFunc(emitNop, "nop")

	if long {
		r.RegisterFunc(emitExtend(true), "movsxd")
		r.RegisterFunc(emitWiden("eax", "rax"), "cdqe")
		r.RegisterFunc(emitSplit("rax", "rdx"), "cqo")
	}

	for _, cc := range conditionCodes {
		r.RegisterFunc(emitSet(cc), "set"+cc)
		r.RegisterFunc(emitCmov(cc), "cmov"+cc)
	}
}

func emitMov(b *translate.Builder) {
	if !b.Expect(2) {
		return
	}

	dst, src := decode(b, 0), decode(b, 1)
	size := dst.sizeOr(src.size)
	if size == ir.Empty {
		b.Unsupported("cannot infer operand size")
		return
	}

	dst.size = size
	dst.store(b, src.loadAs(b, size))
}

func emitExtend(signed bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(2) {
			return
		}

		dst, src := decode(b, 0), decode(b, 1)
		v := src.load(b)

		if signed {
			v = b.SignExtend(v, src.size, dst.size)
		} else {
			v = b.Str(v, dst.size)
		}

		dst.store(b, v)
	}
}

func emitLea(b *translate.Builder) {
	if !b.Expect(2) {
		return
	}

	dst, src := decode(b, 0), decode(b, 1)
	if !src.isMemory() {
		b.Unsupported("lea needs a memory operand")
		return
	}

	addr := src.address(b)
	if addr.Size != dst.size {
		addr = b.Str(addr, dst.size)
	}

	dst.store(b, addr)
}

func emitXchg(b *translate.Builder) {
	if !b.Expect(2) {
		return
	}

	a, c := decode(b, 0), decode(b, 1)
	size := a.sizeOr(c.size)

	x := b.Str(a.loadAs(b, size), size)
	y := b.Str(c.loadAs(b, size), size)

	a.store(b, y)
	c.store(b, x)
}

func stackPointer(b *translate.Builder) ir.Operand {
	return ir.Register(b.Policy.StackPointer, b.Policy.AddressSize)
}

// push stores v below the stack pointer.
func push(b *translate.Builder, v ir.Operand) {
	sp := stackPointer(b)
	top := b.Sub(sp, translate.Const(uint64(v.Size), sp.Size), sp.Size)

	b.Stm(v, top)
	b.Move(top, sp)
}

// pop loads size bytes from the top of the stack.
func pop(b *translate.Builder, size ir.OperandSize) ir.Operand {
	sp := stackPointer(b)
	v := b.Ldm(sp, size)

	b.Move(b.Add(sp, translate.Const(uint64(size), sp.Size), sp.Size), sp)

	return v
}

func emitPush(b *translate.Builder) {
	if !b.Expect(1) {
		return
	}

	src := decode(b, 0)
	size := src.sizeOr(b.Policy.AddressSize)
	if src.isImmediate() {
		size = b.Policy.AddressSize
	}

	push(b, b.Str(src.loadAs(b, size), size))
}

func emitPop(b *translate.Builder) {
	if !b.Expect(1) {
		return
	}

	dst := decode(b, 0)
	size := dst.sizeOr(b.Policy.AddressSize)

	dst.store(b, pop(b, size))
}

func emitLeave(b *translate.Builder) {
	if !b.Expect(0) {
		return
	}

	bp := ir.Register(full(b, "bp"), b.Policy.AddressSize)
	b.Move(bp, stackPointer(b))
	b.Move(pop(b, b.Policy.AddressSize), bp)
}

// emitWiden sign-extends a register into the register twice its size.
func emitWiden(from, to string) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(0) {
			return
		}

		v := b.ReadRegister(from)
		b.WriteRegister(to, b.SignExtend(v, v.Size, b.RegisterSize(to)))
	}
}

// emitSplit fills the data register with the sign of the accumulator.
func emitSplit(acc, data string) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(0) {
			return
		}

		v := b.ReadRegister(acc)
		size := v.Size
		fill := b.Negate(b.MSB(v, size), size)

		b.WriteRegister(data, fill)
	}
}

func emitSetFlag(name string, v uint64) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(0) {
			return
		}

		setFlag(b, name, translate.Const(v, ir.Byte))
	}
}

func emitCmc(b *translate.Builder) {
	if !b.Expect(0) {
		return
	}

	setFlag(b, CF, b.LogicalNot(flag(CF)))
}

func emitNop(b *translate.Builder) {
	b.Nop()
}

func emitSet(cc string) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(1) {
			return
		}

		dst := decode(b, 0)
		dst.size = ir.Byte
		dst.store(b, condition(b, cc))
	}
}

// emitCmov always writes the destination, so a 32-bit register destination
// in 64-bit mode is zero-extended even when the condition is false.
func emitCmov(cc string) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(2) {
			return
		}

		dst, src := decode(b, 0), decode(b, 1)
		size := dst.size
		cond := condition(b, cc)

		dst.store(b, b.Select(cond, src.loadAs(b, size), dst.load(b), size))
	}
}
