// Package arm lifts 32-bit ARM instructions in the unified syntax:
// mnemonic, optional "s" and optional condition suffix ("addseq").
package arm

import (
	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

// Translators holds the ARM translators.
var Translators = translate.NewRegistry(arch.ARM)

const w = ir.Dword

// Flag names.
const (
	N = "N"
	Z = "Z"
	C = "C"
	V = "V"
)

var conditions = []string{
	"", "eq", "ne", "cs", "hs", "cc", "lo", "mi", "pl",
	"vs", "vc", "hi", "ls", "ge", "lt", "gt", "le", "al",
}

func init() {
	registerData(Translators)
	registerMemory(Translators)
	registerBranches(Translators)
}

// conditional registers emit under base+cc for every condition suffix. The
// body runs only when the condition holds.
func conditional(r *translate.Registry, base string, emit translate.EmitFunc) {
	for _, cc := range conditions {
		r.RegisterFunc(func(b *translate.Builder) {
			guarded(b, cc, emit)
		}, base+cc)
	}
}

func guarded(b *translate.Builder, cc string, emit translate.EmitFunc) {
	if cc == "" || cc == "al" {
		emit(b)
		return
	}

	skip := b.NewLabel()
	b.Branch(b.LogicalNot(condition(b, cc)), skip)
	emit(b)
	b.Mark(skip)
}

func flag(name string) ir.Operand {
	return ir.Register(name, ir.Byte)
}

func setFlag(b *translate.Builder, name string, v ir.Operand) {
	b.Move(v, flag(name))
}

// condition evaluates a condition suffix to a 0/1 byte.
func condition(b *translate.Builder, cc string) ir.Operand {
	switch cc {
	case "eq":
		return flag(Z)
	case "ne":
		return b.LogicalNot(flag(Z))
	case "cs", "hs":
		return flag(C)
	case "cc", "lo":
		return b.LogicalNot(flag(C))
	case "mi":
		return flag(N)
	case "pl":
		return b.LogicalNot(flag(N))
	case "vs":
		return flag(V)
	case "vc":
		return b.LogicalNot(flag(V))
	case "hi":
		return b.And(flag(C), b.LogicalNot(flag(Z)), ir.Byte)
	case "ls":
		return b.Or(b.LogicalNot(flag(C)), flag(Z), ir.Byte)
	case "ge":
		return b.Equal(flag(N), flag(V), ir.Byte)
	case "lt":
		return b.Xor(flag(N), flag(V), ir.Byte)
	case "gt":
		return b.And(b.LogicalNot(flag(Z)), b.Equal(flag(N), flag(V), ir.Byte), ir.Byte)
	case "le":
		return b.Or(flag(Z), b.Xor(flag(N), flag(V), ir.Byte), ir.Byte)
	}

	b.Internal("unknown condition %q", cc)

	return translate.Const(0, ir.Byte)
}

func node(b *translate.Builder, i int) *instr.Node {
	n := translate.Unwrap(b.Inst.Operand(i))
	if n == nil {
		b.Unsupported("missing operand %d", i)
		return instr.Imm(0)
	}

	return n
}

func isPC(b *translate.Builder, name string) bool {
	_, base, err := b.Policy.Resolve(name)
	return err == nil && base.Name == b.Policy.ProgramCounter
}

// readRegister reads a register. The program counter reads as the address
// of the instruction plus 8.
func readRegister(b *translate.Builder, name string) ir.Operand {
	if isPC(b, name) {
		return translate.Const(b.Address()+8, w)
	}

	return b.ReadRegister(name)
}

// writeRegister writes a register operand. A write to the program counter
// is a jump.
func writeRegister(b *translate.Builder, i int, v ir.Operand) {
	n := node(b, i)
	if n.Type != instr.Register {
		b.Unsupported("cannot write to a %s operand", n.Type)
		return
	}

	if v.Size != w {
		v = b.Str(v, w)
	}

	if isPC(b, n.Value) {
		b.Goto(v)
		return
	}

	b.WriteRegister(n.Value, v)
}

func writesPC(b *translate.Builder, i int) bool {
	n := node(b, i)
	return n.Type == instr.Register && isPC(b, n.Value)
}

func immediate(b *translate.Builder, n *instr.Node) ir.Operand {
	v, err := n.Integer()
	if err != nil {
		b.Unsupported("%v", err)
		return translate.Const(0, w)
	}

	return ir.Immediate(v, w)
}
