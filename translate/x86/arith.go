package x86

import (
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

func registerArithmetic(r *translate.Registry) {
	r.RegisterFunc(emitAdd(false), "add")
	r.RegisterFunc(emitAdd(true), "adc")
	r.RegisterFunc(emitSub(false, true), "sub")
	r.RegisterFunc(emitSub(true, true), "sbb")
	r.RegisterFunc(emitSub(false, false), "cmp")
	r.RegisterFunc(emitIncDec(true), "inc")
	r.RegisterFunc(emitIncDec(false), "dec")
	r.RegisterFunc(emitNeg, "neg")
	r.RegisterFunc(emitNot, "not")
	r.RegisterFunc(emitLogic(ir.And, true), "and")
	r.RegisterFunc(emitLogic(ir.Or, true), "or")
	r.RegisterFunc(emitLogic(ir.Xor, true), "xor")
	r.RegisterFunc(emitLogic(ir.And, false), "test")
	r.RegisterFunc(emitMul, "mul")
	r.RegisterFunc(emitImul, "imul")
	r.RegisterFunc(emitDiv, "div")
}

func emitAdd(withCarry bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(2) {
			return
		}

		dst, src := decode(b, 0), decode(b, 1)
		size := dst.size
		x := dst.load(b)
		y := src.loadAs(b, size)

		wide := b.Add(x, y, b.Double(size))
		if withCarry {
			wide = b.Add(wide, flag(CF), b.Double(size))
		}

		res := b.Str(wide, size)
		setAddFlags(b, x, y, wide, res, size)
		dst.store(b, res)
	}
}

func emitSub(withBorrow, write bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(2) {
			return
		}

		dst, src := decode(b, 0), decode(b, 1)
		size := dst.size
		x := dst.load(b)
		y := src.loadAs(b, size)

		wide := b.Sub(x, y, b.Double(size))
		if withBorrow {
			wide = b.Sub(wide, flag(CF), b.Double(size))
		}

		res := b.Str(wide, size)
		setSubFlags(b, x, y, wide, res, size)

		if write {
			dst.store(b, res)
		}
	}
}

func emitIncDec(inc bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(1) {
			return
		}

		dst := decode(b, 0)
		size := dst.size
		x := dst.load(b)
		y := translate.Const(1, size)

		var res, overflow ir.Operand
		if inc {
			res = b.Add(x, y, size)
			overflow = b.And(b.Xor(x, res, size), b.Xor(y, res, size), size)
		} else {
			res = b.Sub(x, y, size)
			overflow = b.And(b.Xor(x, y, size), b.Xor(x, res, size), size)
		}

		setFlag(b, OF, b.MSB(overflow, size))
		setFlag(b, AF, b.Bit(b.Xor(b.Xor(x, y, size), res, size), 4))
		setResultFlags(b, res, size)
		dst.store(b, res)
	}
}

func emitNeg(b *translate.Builder) {
	if !b.Expect(1) {
		return
	}

	dst := decode(b, 0)
	size := dst.size
	x := dst.load(b)
	res := b.Negate(x, size)

	setFlag(b, CF, b.NotZero(x))
	setFlag(b, OF, b.MSB(b.And(x, res, size), size))
	setFlag(b, AF, b.Bit(b.Xor(x, res, size), 4))
	setResultFlags(b, res, size)
	dst.store(b, res)
}

func emitNot(b *translate.Builder) {
	if !b.Expect(1) {
		return
	}

	dst := decode(b, 0)
	dst.store(b, b.Not(dst.load(b), dst.size))
}

func emitLogic(op ir.Opcode, write bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(2) {
			return
		}

		dst, src := decode(b, 0), decode(b, 1)
		size := dst.size
		x := dst.load(b)
		y := src.loadAs(b, size)

		res := b.Temp(size)
		b.Emit(op, x, y, res)
		setLogicFlags(b, res, size)

		if write {
			dst.store(b, res)
		}
	}
}

// storeProduct writes a double-width value to the accumulator pair of size.
func storeProduct(b *translate.Builder, wide ir.Operand, size ir.OperandSize) {
	if size == ir.Byte {
		b.WriteRegister("ax", wide)
		return
	}

	lo := b.Str(wide, size)
	hi := b.Shr(wide, size.Bits(), size)
	b.WriteRegister(accumulator(size), lo)
	b.WriteRegister(dataRegister(size), hi)
}

func emitMul(b *translate.Builder) {
	if !b.Expect(1) {
		return
	}

	src := decode(b, 0)
	size := src.size
	double := b.Double(size)

	x := b.ReadRegister(accumulator(size))
	y := src.load(b)
	wide := b.Mul(x, y, double)

	overflow := b.NotZero(b.Shr(wide, size.Bits(), size))
	setFlag(b, CF, overflow)
	setFlag(b, OF, overflow)
	undefine(b, SF, ZF, AF, PF)
	storeProduct(b, wide, size)
}

// signedProduct multiplies two values as signed numbers. It returns the
// double-width product and whether it does not fit the operand size.
func signedProduct(b *translate.Builder, x, y ir.Operand, size ir.OperandSize) (ir.Operand, ir.Operand) {
	double := b.Double(size)
	wide := b.Mul(b.SignExtend(x, size, double), b.SignExtend(y, size, double), double)
	fits := b.Equal(b.SignExtend(b.Str(wide, size), size, double), wide, double)

	return wide, b.LogicalNot(fits)
}

func emitImul(b *translate.Builder) {
	if !b.Expect(1, 2, 3) {
		return
	}

	var (
		wide, overflow ir.Operand
		size           ir.OperandSize
	)

	switch len(b.Inst.Operands) {
	case 1:
		src := decode(b, 0)
		size = src.size
		wide, overflow = signedProduct(b, b.ReadRegister(accumulator(size)), src.load(b), size)
		storeProduct(b, wide, size)
	case 2:
		dst, src := decode(b, 0), decode(b, 1)
		size = dst.size
		wide, overflow = signedProduct(b, dst.load(b), src.loadAs(b, size), size)
		dst.store(b, b.Str(wide, size))
	case 3:
		dst, src, factor := decode(b, 0), decode(b, 1), decode(b, 2)
		size = dst.size
		wide, overflow = signedProduct(b, src.loadAs(b, size), factor.loadAs(b, size), size)
		dst.store(b, b.Str(wide, size))
	}

	setFlag(b, CF, overflow)
	setFlag(b, OF, overflow)
	undefine(b, SF, ZF, AF, PF)
}

func emitDiv(b *translate.Builder) {
	if !b.Expect(1) {
		return
	}

	src := decode(b, 0)
	size := src.size
	double := b.Double(size)
	divisor := src.load(b)

	var dividend ir.Operand
	if size == ir.Byte {
		dividend = b.ReadRegister("ax")
	} else {
		hi := b.Str(b.ReadRegister(dataRegister(size)), double)
		dividend = b.Or(b.Shl(hi, size.Bits(), double), b.ReadRegister(accumulator(size)), double)
	}

	quotient := b.Div(dividend, divisor, double)
	remainder := b.Mod(dividend, divisor, double)

	fits := b.NewLabel()
	end := b.NewLabel()
	b.Branch(b.IsZero(b.Shr(quotient, size.Bits(), double)), fits)
	b.Unkn()
	b.BranchAlways(end)

	b.Mark(fits)
	if size == ir.Byte {
		b.WriteRegister("al", quotient)
		b.WriteRegister("ah", remainder)
	} else {
		b.WriteRegister(accumulator(size), quotient)
		b.WriteRegister(dataRegister(size), remainder)
	}
	undefine(b, CF, OF, SF, ZF, AF, PF)
	b.Mark(end)
}
