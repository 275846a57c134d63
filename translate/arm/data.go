package arm

import (
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

type arith struct {
	carry   bool // adc, sbc
	sub     bool
	reverse bool // rsb
	compare bool // cmp, cmn
}

type logic struct {
	op      ir.Opcode
	invert  bool // bic, mvn
	unary   bool // mov, mvn
	compare bool // tst, teq
}

func registerData(r *translate.Registry) {
	ariths := map[string]arith{
		"add": {},
		"adc": {carry: true},
		"sub": {sub: true},
		"sbc": {sub: true, carry: true},
		"rsb": {sub: true, reverse: true},
	}
	for name, a := range ariths {
		conditional(r, name, emitArith(a, false))
		conditional(r, name+"s", emitArith(a, true))
	}

	conditional(r, "cmp", emitArith(arith{sub: true, compare: true}, true))
	conditional(r, "cmn", emitArith(arith{compare: true}, true))

	logics := map[string]logic{
		"and": {op: ir.And},
		"orr": {op: ir.Or},
		"eor": {op: ir.Xor},
		"bic": {op: ir.And, invert: true},
		"mov": {unary: true},
		"mvn": {unary: true, invert: true},
	}
	for name, l := range logics {
		conditional(r, name, emitLogic(l, false))
		conditional(r, name+"s", emitLogic(l, true))
	}

	conditional(r, "tst", emitLogic(logic{op: ir.And, compare: true}, true))
	conditional(r, "teq", emitLogic(logic{op: ir.Xor, compare: true}, true))

	conditional(r, "mul", emitMul(false))
	conditional(r, "muls", emitMul(true))
	conditional(r, "nop", func(b *translate.Builder) { b.Nop() })
}

// shifted is the value of a flexible second operand and the carry out of
// its shifter. carry is empty when the shifter leaves C alone.
type shifted struct {
	value ir.Operand
	carry ir.Operand
}

func operand2(b *translate.Builder, i int) shifted {
	n := node(b, i)

	switch n.Type {
	case instr.Register:
		return shifted{value: readRegister(b, n.Value)}
	case instr.ImmediateInteger:
		return shifted{value: immediate(b, n)}
	case instr.Operator:
		return shift(b, n)
	}

	b.Unsupported("unexpected %s operand", n.Type)

	return shifted{value: translate.Const(0, w)}
}

// shift applies an immediate shift such as "r2, lsl #3".
func shift(b *translate.Builder, n *instr.Node) shifted {
	src, amount := translate.Unwrap(n.Child(0)), translate.Unwrap(n.Child(1))
	if src == nil || src.Type != instr.Register || amount == nil || amount.Type != instr.ImmediateInteger {
		b.Unsupported("shifts take a register and an immediate amount")
		return shifted{value: translate.Const(0, w)}
	}

	x := readRegister(b, src.Value)

	v, err := amount.Integer()
	if err != nil || v.Sign() < 0 || v.Int64() > 32 {
		b.Unsupported("bad shift amount %q", amount.Value)
		return shifted{value: x}
	}

	k := uint(v.Int64())
	if k == 0 {
		return shifted{value: x}
	}

	switch n.Value {
	case "lsl":
		if k == 32 {
			return shifted{value: translate.Const(0, w), carry: b.Bit(x, 0)}
		}
		return shifted{value: b.Shl(x, k, w), carry: b.Bit(x, 32-k)}
	case "lsr":
		return shifted{value: b.Shr(x, k, w), carry: b.Bit(x, k-1)}
	case "asr":
		ext := b.SignExtend(x, w, ir.Qword)
		return shifted{value: b.Str(b.Shr(ext, k, ir.Qword), w), carry: b.Bit(ext, k-1)}
	case "ror":
		k %= 32
		if k == 0 {
			return shifted{value: x, carry: b.MSB(x, w)}
		}
		rot := b.Or(b.Shr(x, k, w), b.Shl(x, 32-k, w), w)
		return shifted{value: rot, carry: b.Bit(x, k-1)}
	}

	b.Unsupported("unknown shift %q", n.Value)

	return shifted{value: x}
}

func setNZ(b *translate.Builder, res ir.Operand) {
	setFlag(b, N, b.MSB(res, w))
	setFlag(b, Z, b.IsZero(res))
}

func emitArith(a arith, setFlags bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		count := 3
		if a.compare {
			count = 2
		}
		if !b.Expect(count) {
			return
		}

		first := count - 2
		if node(b, first).Type != instr.Register {
			b.Unsupported("first source must be a register")
			return
		}

		x := readRegister(b, node(b, first).Value)
		y := operand2(b, first+1).value

		if a.reverse {
			x, y = y, x
		}

		carryIn := translate.Const(0, ir.Byte)
		if a.sub {
			y = b.Not(y, w)
			carryIn = translate.Const(1, ir.Byte)
		}
		if a.carry {
			carryIn = flag(C)
		}

		wide := b.Add(b.Add(x, y, ir.Qword), carryIn, ir.Qword)
		res := b.Str(wide, w)

		if setFlags {
			if !a.compare && writesPC(b, 0) {
				b.Unsupported("flag-setting write to pc")
				return
			}

			setNZ(b, res)
			setFlag(b, C, b.Bit(wide, 32))
			setFlag(b, V, b.MSB(b.And(b.Xor(x, res, w), b.Xor(y, res, w), w), w))
		}

		if !a.compare {
			writeRegister(b, 0, res)
		}
	}
}

func emitLogic(l logic, setFlags bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		count := 3
		if l.unary || l.compare {
			count = 2
		}
		if !b.Expect(count) {
			return
		}

		op2 := operand2(b, count-1)
		y := op2.value
		if l.invert {
			y = b.Not(y, w)
		}

		res := y
		if !l.unary {
			first := count - 2
			if node(b, first).Type != instr.Register {
				b.Unsupported("first source must be a register")
				return
			}

			res = b.Temp(w)
			b.Emit(l.op, readRegister(b, node(b, first).Value), y, res)
		}

		if setFlags {
			if !l.compare && writesPC(b, 0) {
				b.Unsupported("flag-setting write to pc")
				return
			}

			setNZ(b, res)
			if !op2.carry.IsEmpty() {
				setFlag(b, C, op2.carry)
			}
		}

		if !l.compare {
			writeRegister(b, 0, res)
		}
	}
}

func emitMul(setFlags bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(3) {
			return
		}

		x := operand2(b, 1).value
		y := operand2(b, 2).value
		res := b.Mul(x, y, w)

		if setFlags {
			setNZ(b, res)
		}

		writeRegister(b, 0, res)
	}
}
