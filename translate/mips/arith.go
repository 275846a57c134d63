package mips

import (
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

const w = ir.Dword

func registerArithmetic(r *translate.Registry) {
	r.RegisterFunc(emitTrappingAdd, "add", "addi")
	r.RegisterFunc(emitTrappingSub, "sub")
	r.RegisterFunc(emitBinary(ir.Add, false), "addu", "addiu")
	r.RegisterFunc(emitBinary(ir.Sub, false), "subu")
	r.RegisterFunc(emitBinary(ir.And, false), "and")
	r.RegisterFunc(emitBinary(ir.And, true), "andi")
	r.RegisterFunc(emitBinary(ir.Or, false), "or")
	r.RegisterFunc(emitBinary(ir.Or, true), "ori")
	r.RegisterFunc(emitBinary(ir.Xor, false), "xor")
	r.RegisterFunc(emitBinary(ir.Xor, true), "xori")
	r.RegisterFunc(emitNor, "nor")
	r.RegisterFunc(emitLui, "lui")
	r.RegisterFunc(emitShift(left, false), "sll")
	r.RegisterFunc(emitShift(right, false), "srl")
	r.RegisterFunc(emitShift(arithmetic, false), "sra")
	r.RegisterFunc(emitShift(left, true), "sllv")
	r.RegisterFunc(emitShift(right, true), "srlv")
	r.RegisterFunc(emitShift(arithmetic, true), "srav")
	r.RegisterFunc(emitSetLess(true), "slt", "slti")
	r.RegisterFunc(emitSetLess(false), "sltu", "sltiu")
	r.RegisterFunc(emitMult(false), "mult")
	r.RegisterFunc(emitMult(true), "multu")
	r.RegisterFunc(emitDiv(false), "div")
	r.RegisterFunc(emitDiv(true), "divu")
	r.RegisterFunc(emitMoveFrom("$hi"), "mfhi")
	r.RegisterFunc(emitMoveFrom("$lo"), "mflo")
	r.RegisterFunc(emitMoveTo("$hi"), "mthi")
	r.RegisterFunc(emitMoveTo("$lo"), "mtlo")
	r.RegisterFunc(emitMove, "move", "li")
	r.RegisterFunc(emitNegu, "negu")
	r.RegisterFunc(emitNot, "not")
	r.RegisterFunc(emitNop, "nop")
	r.RegisterFunc(emitUnknown, "syscall", "break")
}

func emitBinary(op ir.Opcode, zeroExtend bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(3) {
			return
		}

		x := read(b, 1)

		var y ir.Operand
		if zeroExtend {
			y = readUnsigned(b, 2)
		} else {
			y = read(b, 2)
		}

		res := b.Temp(w)
		b.Emit(op, x, y, res)
		write(b, 0, res)
	}
}

// trapOnOverflow writes res unless overflow is set, in which case the
// integer overflow exception is left to the interpreter policy.
func trapOnOverflow(b *translate.Builder, overflow, res ir.Operand) {
	ok := b.NewLabel()
	end := b.NewLabel()

	b.Branch(b.LogicalNot(overflow), ok)
	b.Unkn()
	b.BranchAlways(end)

	b.Mark(ok)
	write(b, 0, res)
	b.Mark(end)
}

func emitTrappingAdd(b *translate.Builder) {
	if !b.Expect(3) {
		return
	}

	x, y := read(b, 1), read(b, 2)
	res := b.Add(x, y, w)
	overflow := b.MSB(b.And(b.Xor(x, res, w), b.Xor(y, res, w), w), w)

	trapOnOverflow(b, overflow, res)
}

func emitTrappingSub(b *translate.Builder) {
	if !b.Expect(3) {
		return
	}

	x, y := read(b, 1), read(b, 2)
	res := b.Sub(x, y, w)
	overflow := b.MSB(b.And(b.Xor(x, y, w), b.Xor(x, res, w), w), w)

	trapOnOverflow(b, overflow, res)
}

func emitNor(b *translate.Builder) {
	if !b.Expect(3) {
		return
	}

	write(b, 0, b.Not(b.Or(read(b, 1), read(b, 2), w), w))
}

func emitLui(b *translate.Builder) {
	if !b.Expect(2) {
		return
	}

	write(b, 0, b.Shl(readUnsigned(b, 1), 16, w))
}

type shiftKind int

const (
	left shiftKind = iota
	right
	arithmetic
)

func emitShift(kind shiftKind, variable bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(3) {
			return
		}

		if !variable && node(b, 2).Type != instr.ImmediateInteger {
			b.Unsupported("shift amount must be an immediate")
			return
		}

		x := read(b, 1)
		n := b.And(read(b, 2), translate.Const(0x1F, w), ir.Byte)

		var res ir.Operand
		switch kind {
		case left:
			res = b.Bsh(x, n, w)
		case right:
			res = b.Bsh(x, b.Negate(n, ir.Byte), w)
		case arithmetic:
			wide := b.SignExtend(x, w, ir.Qword)
			res = b.Str(b.Bsh(wide, b.Negate(n, ir.Byte), ir.Qword), w)
		}

		write(b, 0, res)
	}
}

func emitSetLess(signed bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(3) {
			return
		}

		x, y := read(b, 1), read(b, 2)
		if signed {
			write(b, 0, b.LessSigned(x, y, w))
		} else {
			write(b, 0, b.LessUnsigned(x, y, w))
		}
	}
}

func emitMult(unsigned bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(2) {
			return
		}

		x, y := read(b, 0), read(b, 1)
		if !unsigned {
			x = b.SignExtend(x, w, ir.Qword)
			y = b.SignExtend(y, w, ir.Qword)
		}

		product := b.Mul(x, y, ir.Qword)
		b.Move(b.Str(product, w), special("$lo"))
		b.Move(b.Shr(product, 32, w), special("$hi"))
	}
}

// abs returns the magnitude of a signed word and its sign bit.
func abs(b *translate.Builder, x ir.Operand) (ir.Operand, ir.Operand) {
	sign := b.MSB(x, w)
	return b.Select(sign, b.Negate(x, w), x, w), sign
}

// emitDiv leaves $hi and $lo undefined for a zero divisor, which the
// architecture does not trap.
func emitDiv(unsigned bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(2) {
			return
		}

		x, y := read(b, 0), read(b, 1)
		divide := b.NewLabel()
		end := b.NewLabel()

		b.Branch(b.NotZero(y), divide)
		b.Undef(special("$hi"))
		b.Undef(special("$lo"))
		b.BranchAlways(end)

		b.Mark(divide)
		if unsigned {
			b.Move(b.Div(x, y, w), special("$lo"))
			b.Move(b.Mod(x, y, w), special("$hi"))
		} else {
			ax, sx := abs(b, x)
			ay, sy := abs(b, y)
			q := b.Div(ax, ay, w)
			r := b.Mod(ax, ay, w)

			b.Move(b.Select(b.Xor(sx, sy, ir.Byte), b.Negate(q, w), q, w), special("$lo"))
			b.Move(b.Select(sx, b.Negate(r, w), r, w), special("$hi"))
		}
		b.Mark(end)
	}
}

func emitMoveFrom(reg string) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(1) {
			return
		}

		write(b, 0, special(reg))
	}
}

func emitMoveTo(reg string) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(1) {
			return
		}

		b.Move(read(b, 0), special(reg))
	}
}

func emitMove(b *translate.Builder) {
	if !b.Expect(2) {
		return
	}

	write(b, 0, read(b, 1))
}

func emitNegu(b *translate.Builder) {
	if !b.Expect(2) {
		return
	}

	write(b, 0, b.Negate(read(b, 1), w))
}

func emitNot(b *translate.Builder) {
	if !b.Expect(2) {
		return
	}

	write(b, 0, b.Not(read(b, 1), w))
}

func emitNop(b *translate.Builder) {
	b.Nop()
}

func emitUnknown(b *translate.Builder) {
	b.Unkn()
}
