package x86

import (
	"math/big"

	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

func registerShifts(r *translate.Registry) {
	r.RegisterFunc(emitShl, "shl", "sal")
	r.RegisterFunc(emitShr, "shr")
	r.RegisterFunc(emitSar, "sar")
	r.RegisterFunc(emitRol, "rol")
	r.RegisterFunc(emitRor, "ror")
	r.RegisterFunc(emitRcl, "rcl")
	r.RegisterFunc(emitRcr, "rcr")
}

// shift holds what every shift and rotate needs: the destination, its value,
// the masked count and a label after the instruction, taken for a zero count.
type shift struct {
	dst   *operand
	size  ir.OperandSize
	bits  uint
	x     ir.Operand
	count ir.Operand
	end   translate.Label
}

func beginShift(b *translate.Builder) (*shift, bool) {
	if !b.Expect(1, 2) {
		return nil, false
	}

	s := &shift{dst: decode(b, 0)}
	s.size = s.dst.size
	s.bits = s.size.Bits()
	s.x = s.dst.load(b)

	var raw ir.Operand
	if len(b.Inst.Operands) == 1 {
		raw = translate.Const(1, ir.Byte)
	} else {
		raw = decode(b, 1).loadAs(b, ir.Byte)
	}

	mask := uint64(0x1F)
	if s.size == ir.Qword {
		mask = 0x3F
	}

	s.count = b.And(raw, translate.Const(mask, ir.Byte), ir.Byte)
	s.end = b.NewLabel()

	return s, true
}

// skipIfZero jumps over the instruction when count is zero, leaving the
// destination and every flag untouched.
func (s *shift) skipIfZero(b *translate.Builder, count ir.Operand) {
	b.Branch(b.IsZero(count), s.end)
}

// overflowForOne sets OF to the computed value for a masked count of one and
// leaves it undefined otherwise.
func (s *shift) overflowForOne(b *translate.Builder, compute func() ir.Operand) {
	defined := b.NewLabel()
	done := b.NewLabel()

	b.Branch(b.Equal(s.count, one, ir.Byte), defined)
	undefine(b, OF)
	b.BranchAlways(done)

	b.Mark(defined)
	setFlag(b, OF, compute())
	b.Mark(done)
}

func (s *shift) finish(b *translate.Builder, res ir.Operand) {
	s.dst.store(b, res)
	b.Mark(s.end)
}

// amount converts a count into a signed shift amount: base + sign*count.
func amount(b *translate.Builder, base int64, count ir.Operand, negate bool) ir.Operand {
	if negate {
		return b.Sub(translate.Const(uint64(base), ir.Byte), count, ir.Byte)
	}

	return b.Add(count, ir.ImmSigned(base, ir.Byte), ir.Byte)
}

func emitShl(b *translate.Builder) {
	s, ok := beginShift(b)
	if !ok {
		return
	}

	s.skipIfZero(b, s.count)

	wide := b.Bsh(s.x, s.count, ir.Oword)
	res := b.Str(wide, s.size)
	carry := b.Bit(wide, s.bits)

	setFlag(b, CF, carry)
	setResultFlags(b, res, s.size)
	undefine(b, AF)
	s.overflowForOne(b, func() ir.Operand {
		return b.Xor(b.MSB(res, s.size), carry, ir.Byte)
	})
	s.finish(b, res)
}

func emitShr(b *translate.Builder) {
	s, ok := beginShift(b)
	if !ok {
		return
	}

	s.skipIfZero(b, s.count)

	res := b.Bsh(s.x, amount(b, 0, s.count, true), s.size)
	last := b.Bsh(s.x, amount(b, 1, s.count, true), s.size)

	setFlag(b, CF, b.Bit(last, 0))
	setResultFlags(b, res, s.size)
	undefine(b, AF)
	s.overflowForOne(b, func() ir.Operand {
		return b.MSB(s.x, s.size)
	})
	s.finish(b, res)
}

func emitSar(b *translate.Builder) {
	s, ok := beginShift(b)
	if !ok {
		return
	}

	s.skipIfZero(b, s.count)

	fill := b.Negate(b.MSB(s.x, s.size), ir.Oword)
	extended := b.Or(s.x, b.Shl(fill, s.bits, ir.Oword), ir.Oword)

	res := b.Str(b.Bsh(extended, amount(b, 0, s.count, true), ir.Oword), s.size)
	last := b.Bsh(extended, amount(b, 1, s.count, true), ir.Oword)

	setFlag(b, CF, b.Bit(last, 0))
	setResultFlags(b, res, s.size)
	undefine(b, AF)
	s.overflowForOne(b, func() ir.Operand {
		return translate.Const(0, ir.Byte)
	})
	s.finish(b, res)
}

func emitRol(b *translate.Builder) {
	s, ok := beginShift(b)
	if !ok {
		return
	}

	s.skipIfZero(b, s.count)

	r := b.Mod(s.count, translate.Const(uint64(s.bits), ir.Byte), ir.Byte)
	left := b.Bsh(s.x, r, ir.Oword)
	right := b.Bsh(s.x, amount(b, -int64(s.bits), r, false), ir.Oword)
	res := b.Str(b.Or(left, right, ir.Oword), s.size)
	carry := b.Bit(res, 0)

	setFlag(b, CF, carry)
	s.overflowForOne(b, func() ir.Operand {
		return b.Xor(b.MSB(res, s.size), carry, ir.Byte)
	})
	s.finish(b, res)
}

func emitRor(b *translate.Builder) {
	s, ok := beginShift(b)
	if !ok {
		return
	}

	s.skipIfZero(b, s.count)

	r := b.Mod(s.count, translate.Const(uint64(s.bits), ir.Byte), ir.Byte)
	right := b.Bsh(s.x, amount(b, 0, r, true), ir.Oword)
	left := b.Bsh(s.x, amount(b, int64(s.bits), r, true), ir.Oword)
	res := b.Str(b.Or(left, right, ir.Oword), s.size)

	setFlag(b, CF, b.MSB(res, s.size))
	s.overflowForOne(b, func() ir.Operand {
		return b.Xor(b.MSB(res, s.size), b.Bit(res, s.bits-2), ir.Byte)
	})
	s.finish(b, res)
}

// rotateCount reduces the masked count of rcl and rcr modulo size+1 for the
// narrow operand sizes, where the count mask allows more than one turn.
func rotateCount(b *translate.Builder, s *shift) ir.Operand {
	if s.size == ir.Byte || s.size == ir.Word {
		return b.Mod(s.count, translate.Const(uint64(s.bits+1), ir.Byte), ir.Byte)
	}

	return s.count
}

// withCarry places CF above the most significant bit of x.
func withCarry(b *translate.Builder, s *shift) ir.Operand {
	return b.Or(b.Shl(flag(CF), s.bits, ir.Oword), s.x, ir.Oword)
}

func carryMask(s *shift) ir.Operand {
	m := new(big.Int).Lsh(big.NewInt(1), s.bits+1)
	m.Sub(m, big.NewInt(1))

	return translate.BigConst(m, ir.Oword)
}

func emitRcl(b *translate.Builder) {
	s, ok := beginShift(b)
	if !ok {
		return
	}

	r := rotateCount(b, s)
	s.skipIfZero(b, r)

	wide := withCarry(b, s)
	left := b.Bsh(wide, r, ir.Oword)
	right := b.Bsh(wide, amount(b, -int64(s.bits+1), r, false), ir.Oword)
	rotated := b.And(b.Or(left, right, ir.Oword), carryMask(s), ir.Oword)

	res := b.Str(rotated, s.size)
	carry := b.Bit(rotated, s.bits)

	setFlag(b, CF, carry)
	s.overflowForOne(b, func() ir.Operand {
		return b.Xor(b.MSB(res, s.size), carry, ir.Byte)
	})
	s.finish(b, res)
}

func emitRcr(b *translate.Builder) {
	s, ok := beginShift(b)
	if !ok {
		return
	}

	r := rotateCount(b, s)
	s.skipIfZero(b, r)

	before := b.Xor(b.MSB(s.x, s.size), flag(CF), ir.Byte)

	wide := withCarry(b, s)
	right := b.Bsh(wide, amount(b, 0, r, true), ir.Oword)
	left := b.Bsh(wide, amount(b, int64(s.bits+1), r, true), ir.Oword)
	rotated := b.And(b.Or(left, right, ir.Oword), carryMask(s), ir.Oword)

	res := b.Str(rotated, s.size)

	setFlag(b, CF, b.Bit(rotated, s.bits))
	s.overflowForOne(b, func() ir.Operand {
		return before
	})
	s.finish(b, res)
}
