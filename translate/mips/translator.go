// Package mips lifts 32-bit MIPS instructions. Branches and jumps carry
// their delay slot and translate it inline.
package mips

import (
	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

// Translators holds the MIPS translators.
var Translators = translate.NewRegistry(arch.MIPS)

func init() {
	registerArithmetic(Translators)
	registerMemory(Translators)
	registerBranches(Translators)
}

func isZero(b *translate.Builder, name string) bool {
	_, base, err := b.Policy.Resolve(name)
	return err == nil && base.Name == arch.MIPSZero
}

func node(b *translate.Builder, i int) *instr.Node {
	n := translate.Unwrap(b.Inst.Operand(i))
	if n == nil {
		b.Unsupported("missing operand %d", i)
		return instr.Imm(0)
	}

	return n
}

func readRegister(b *translate.Builder, name string) ir.Operand {
	if isZero(b, name) {
		return translate.Const(0, ir.Dword)
	}

	return b.ReadRegister(name)
}

// read returns the value of a register or immediate operand. Immediates are
// taken as written and truncated to 32 bits.
func read(b *translate.Builder, i int) ir.Operand {
	n := node(b, i)

	switch n.Type {
	case instr.Register:
		return readRegister(b, n.Value)
	case instr.ImmediateInteger:
		v, err := n.Integer()
		if err != nil {
			b.Unsupported("%v", err)
			return translate.Const(0, ir.Dword)
		}
		return ir.Immediate(v, ir.Dword)
	}

	b.Unsupported("unexpected %s operand", n.Type)

	return translate.Const(0, ir.Dword)
}

// readUnsigned reads a 16-bit immediate without sign extension.
func readUnsigned(b *translate.Builder, i int) ir.Operand {
	v := read(b, i)
	if v.Kind != ir.KindImmediate {
		return v
	}

	return b.And(v, translate.Const(0xFFFF, ir.Dword), ir.Dword)
}

// write stores v into a register operand. Writes to $zero are dropped.
func write(b *translate.Builder, i int, v ir.Operand) {
	n := node(b, i)
	if n.Type != instr.Register {
		b.Unsupported("cannot write to a %s operand", n.Type)
		return
	}

	if isZero(b, n.Value) {
		b.Nop()
		return
	}

	if v.Size != ir.Dword {
		v = b.Str(v, ir.Dword)
	}

	b.WriteRegister(n.Value, v)
}

func special(name string) ir.Operand {
	return ir.Register(name, ir.Dword)
}
