package x86

import (
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

func registerControl(r *translate.Registry, long bool) {
	r.RegisterFunc(emitJmp, "jmp")
	r.RegisterFunc(emitCall, "call")
	r.RegisterFunc(emitRet, "ret", "retn")
	r.RegisterFunc(emitJumpIfCounterZero("cx"), "jcxz")
	r.RegisterFunc(emitJumpIfCounterZero("ecx"), "jecxz")
	r.RegisterFunc(emitLoop(""), "loop")
	r.RegisterFunc(emitLoop("e"), "loope", "loopz")
	r.RegisterFunc(emitLoop("ne"), "loopne", "loopnz")
	r.RegisterFunc(emitUnknown, "hlt", "int3", "int", "into", "syscall", "sysenter", "cpuid", "rdtsc")

	if long {
		r.RegisterFunc(emitJumpIfCounterZero("rcx"), "jrcxz")
	}

	for _, cc := range conditionCodes {
		r.RegisterFunc(emitJcc(cc), "j"+cc)
	}
}

// target reads a branch destination as an address-sized operand.
func target(b *translate.Builder, i int) ir.Operand {
	o := decode(b, i)
	as := b.Policy.AddressSize

	if o.isImmediate() {
		v, err := o.inner.Integer()
		if err != nil {
			b.Unsupported("%v", err)
			return translate.Const(0, as)
		}

		return ir.Immediate(v, as)
	}

	v := o.loadAs(b, as)
	if v.Size != as {
		v = b.Str(v, as)
	}

	return v
}

// returnAddress is the address after the instruction. It requires the
// instruction length.
func returnAddress(b *translate.Builder) ir.Operand {
	if b.Inst.Length <= 0 {
		b.Unsupported("instruction length is needed for the return address")
	}

	return translate.Const(b.Inst.Next(), b.Policy.AddressSize)
}

func emitJmp(b *translate.Builder) {
	if !b.Expect(1) {
		return
	}

	b.Goto(target(b, 0))
}

func emitCall(b *translate.Builder) {
	if !b.Expect(1) {
		return
	}

	dest := target(b, 0)
	if dest.Kind != ir.KindImmediate {
		dest = b.Str(dest, dest.Size)
	}

	push(b, returnAddress(b))
	b.Goto(dest)
}

func emitRet(b *translate.Builder) {
	if !b.Expect(0, 1) {
		return
	}

	as := b.Policy.AddressSize
	dest := pop(b, as)

	if len(b.Inst.Operands) == 1 {
		n := decode(b, 0).loadAs(b, as)
		sp := stackPointer(b)
		b.Move(b.Add(sp, n, as), sp)
	}

	b.Goto(dest)
}

func emitJcc(cc string) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(1) {
			return
		}

		dest := target(b, 0)
		b.Jump(condition(b, cc), dest)
	}
}

func emitJumpIfCounterZero(counter string) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(1) {
			return
		}

		dest := target(b, 0)
		b.Jump(b.IsZero(b.ReadRegister(counter)), dest)
	}
}

// emitLoop decrements the counter and jumps while it is non-zero and, for
// the e and ne forms, while ZF holds or does not hold.
func emitLoop(cc string) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(1) {
			return
		}

		dest := target(b, 0)
		counter := full(b, "cx")
		size := b.RegisterSize(counter)

		n := b.Sub(b.ReadRegister(counter), translate.Const(1, size), size)
		b.WriteRegister(counter, n)

		cond := b.NotZero(n)
		switch cc {
		case "e":
			cond = b.And(cond, flag(ZF), ir.Byte)
		case "ne":
			cond = b.And(cond, b.LogicalNot(flag(ZF)), ir.Byte)
		}

		b.Jump(cond, dest)
	}
}

// emitUnknown marks instructions whose effect is outside the machine model.
func emitUnknown(b *translate.Builder) {
	b.Unkn()
}
