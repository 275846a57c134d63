// Package ppc lifts a core subset of 32-bit PowerPC: integer arithmetic and
// logic, word loads and stores, compares into condition register fields and
// branches on them.
package ppc

import (
	"strings"

	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

// Translators holds the PowerPC translators.
var Translators = translate.NewRegistry(arch.PowerPC)

const w = ir.Dword

func init() {
	registerArithmetic(Translators)
	registerMemory(Translators)
	registerBranches(Translators)
}

func node(b *translate.Builder, i int) *instr.Node {
	n := translate.Unwrap(b.Inst.Operand(i))
	if n == nil {
		b.Unsupported("missing operand %d", i)
		return instr.Imm(0)
	}

	return n
}

func read(b *translate.Builder, i int) ir.Operand {
	n := node(b, i)

	switch n.Type {
	case instr.Register:
		return b.ReadRegister(n.Value)
	case instr.ImmediateInteger:
		v, err := n.Integer()
		if err != nil {
			b.Unsupported("%v", err)
			return translate.Const(0, w)
		}
		return ir.Immediate(v, w)
	}

	b.Unsupported("unexpected %s operand", n.Type)

	return translate.Const(0, w)
}

// readBase reads the rA operand of addressing and add-immediate forms, where
// r0 stands for the value zero.
func readBase(b *translate.Builder, name string) ir.Operand {
	if name == "r0" {
		return translate.Const(0, w)
	}

	return b.ReadRegister(name)
}

func write(b *translate.Builder, i int, v ir.Operand) {
	n := node(b, i)
	if n.Type != instr.Register {
		b.Unsupported("cannot write to a %s operand", n.Type)
		return
	}

	if v.Size != w {
		v = b.Str(v, w)
	}

	b.WriteRegister(n.Value, v)
}

func flag(name string) ir.Operand {
	return ir.Register(name, ir.Byte)
}

// field returns the condition register field named by an optional leading
// crN operand, and the index of the first operand after it.
func field(b *translate.Builder) (string, int) {
	n := node(b, 0)
	if n.Type == instr.Register && strings.HasPrefix(n.Value, "cr") {
		return n.Value, 1
	}

	return "cr0", 0
}

// setField writes lt, gt and eq of a field from a signed or unsigned
// comparison of x with y, and copies the summary overflow bit.
func setField(b *translate.Builder, cr string, x, y ir.Operand, signed bool) {
	var less, greater ir.Operand
	if signed {
		less = b.LessSigned(x, y, w)
		greater = b.LessSigned(y, x, w)
	} else {
		less = b.LessUnsigned(x, y, w)
		greater = b.LessUnsigned(y, x, w)
	}

	b.Move(less, flag(cr+"lt"))
	b.Move(greater, flag(cr+"gt"))
	b.Move(b.Equal(x, y, w), flag(cr+"eq"))
	b.Move(flag("xerso"), flag(cr+"so"))
}

// record sets cr0 from a result, as the "." forms do.
func record(b *translate.Builder, res ir.Operand) {
	setField(b, "cr0", res, translate.Const(0, w), true)
}
