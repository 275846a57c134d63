package x86

import (
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

// Flag names.
const (
	CF = "CF"
	PF = "PF"
	AF = "AF"
	ZF = "ZF"
	SF = "SF"
	OF = "OF"
	DF = "DF"
)

func flag(name string) ir.Operand {
	return ir.Register(name, ir.Byte)
}

var one = translate.Const(1, ir.Byte)

func setFlag(b *translate.Builder, name string, v ir.Operand) {
	b.Move(v, flag(name))
}

func undefine(b *translate.Builder, names ...string) {
	for _, n := range names {
		b.Undef(flag(n))
	}
}

// parity is 1 when the low byte of v has an even number of set bits.
func parity(b *translate.Builder, v ir.Operand) ir.Operand {
	t := b.Str(v, ir.Byte)
	t = b.Xor(t, b.Shr(t, 4, ir.Byte), ir.Byte)
	t = b.Xor(t, b.Shr(t, 2, ir.Byte), ir.Byte)
	t = b.Xor(t, b.Shr(t, 1, ir.Byte), ir.Byte)
	t = b.And(t, one, ir.Byte)

	return b.Xor(t, one, ir.Byte)
}

// setResultFlags writes SF, ZF and PF for a result.
func setResultFlags(b *translate.Builder, res ir.Operand, size ir.OperandSize) {
	setFlag(b, SF, b.MSB(res, size))
	setFlag(b, ZF, b.IsZero(res))
	setFlag(b, PF, parity(b, res))
}

// setAddFlags writes all six status flags of x + y (+ carry). wide holds the
// sum at twice the operand size.
func setAddFlags(b *translate.Builder, x, y, wide, res ir.Operand, size ir.OperandSize) {
	setFlag(b, CF, b.Bit(wide, size.Bits()))

	overflow := b.And(b.Xor(x, res, size), b.Xor(y, res, size), size)
	setFlag(b, OF, b.MSB(overflow, size))

	setFlag(b, AF, b.Bit(b.Xor(b.Xor(x, y, size), res, size), 4))
	setResultFlags(b, res, size)
}

// setSubFlags writes all six status flags of x - y (- borrow).
func setSubFlags(b *translate.Builder, x, y, wide, res ir.Operand, size ir.OperandSize) {
	setFlag(b, CF, b.Bit(wide, size.Bits()))

	overflow := b.And(b.Xor(x, y, size), b.Xor(x, res, size), size)
	setFlag(b, OF, b.MSB(overflow, size))

	setFlag(b, AF, b.Bit(b.Xor(b.Xor(x, y, size), res, size), 4))
	setResultFlags(b, res, size)
}

// subtract computes x - y with all flags and returns the truncated result.
func subtract(b *translate.Builder, x, y ir.Operand, size ir.OperandSize) ir.Operand {
	wide := b.Sub(x, y, b.Double(size))
	res := b.Str(wide, size)
	setSubFlags(b, x, y, wide, res, size)

	return res
}

// setLogicFlags writes the flags of and, or, xor and test.
func setLogicFlags(b *translate.Builder, res ir.Operand, size ir.OperandSize) {
	setFlag(b, CF, translate.Const(0, ir.Byte))
	setFlag(b, OF, translate.Const(0, ir.Byte))
	undefine(b, AF)
	setResultFlags(b, res, size)
}

// condition evaluates a condition code suffix to a 0/1 byte.
func condition(b *translate.Builder, cc string) ir.Operand {
	signedLess := func() ir.Operand {
		return b.Xor(flag(SF), flag(OF), ir.Byte)
	}

	switch cc {
	case "o":
		return flag(OF)
	case "no":
		return b.LogicalNot(flag(OF))
	case "b", "c", "nae":
		return flag(CF)
	case "ae", "nb", "nc":
		return b.LogicalNot(flag(CF))
	case "e", "z":
		return flag(ZF)
	case "ne", "nz":
		return b.LogicalNot(flag(ZF))
	case "be", "na":
		return b.Or(flag(CF), flag(ZF), ir.Byte)
	case "a", "nbe":
		return b.LogicalNot(b.Or(flag(CF), flag(ZF), ir.Byte))
	case "s":
		return flag(SF)
	case "ns":
		return b.LogicalNot(flag(SF))
	case "p", "pe":
		return flag(PF)
	case "np", "po":
		return b.LogicalNot(flag(PF))
	case "l", "nge":
		return signedLess()
	case "ge", "nl":
		return b.LogicalNot(signedLess())
	case "le", "ng":
		return b.Or(flag(ZF), signedLess(), ir.Byte)
	case "g", "nle":
		return b.LogicalNot(b.Or(flag(ZF), signedLess(), ir.Byte))
	}

	b.Internal("unknown condition code %q", cc)

	return translate.Const(0, ir.Byte)
}

var conditionCodes = []string{
	"o", "no", "b", "c", "nae", "ae", "nb", "nc", "e", "z", "ne", "nz",
	"be", "na", "a", "nbe", "s", "ns", "p", "pe", "np", "po",
	"l", "nge", "ge", "nl", "le", "ng", "g", "nle",
}
