package mips

import (
	"strings"

	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

const returnAddress = "$ra"

// compare evaluates a branch condition from the register operands.
type compare func(b *translate.Builder) ir.Operand

type branch struct {
	cond   compare
	likely bool
	link   bool
}

func registerBranches(r *translate.Registry) {
	always := func(*translate.Builder) ir.Operand { return translate.Const(1, ir.Byte) }

	equal := func(b *translate.Builder) ir.Operand {
		return b.Equal(read(b, 0), read(b, 1), w)
	}
	notEqual := func(b *translate.Builder) ir.Operand {
		return b.LogicalNot(b.Equal(read(b, 0), read(b, 1), w))
	}
	zero := func(b *translate.Builder) ir.Operand {
		return b.IsZero(read(b, 0))
	}
	nonZero := func(b *translate.Builder) ir.Operand {
		return b.NotZero(read(b, 0))
	}
	negative := func(b *translate.Builder) ir.Operand {
		return b.MSB(read(b, 0), w)
	}
	nonNegative := func(b *translate.Builder) ir.Operand {
		return b.LogicalNot(b.MSB(read(b, 0), w))
	}
	positive := func(b *translate.Builder) ir.Operand {
		x := read(b, 0)
		return b.And(b.LogicalNot(b.MSB(x, w)), b.NotZero(x), ir.Byte)
	}
	nonPositive := func(b *translate.Builder) ir.Operand {
		x := read(b, 0)
		return b.Or(b.MSB(x, w), b.IsZero(x), ir.Byte)
	}

	registerBranch(r, emitBranch(branch{cond: always}), "b")
	registerBranch(r, emitBranch(branch{cond: always, link: true}), "bal")
	registerBranch(r, emitBranch(branch{cond: equal}), "beq")
	registerBranch(r, emitBranch(branch{cond: notEqual}), "bne")
	registerBranch(r, emitBranch(branch{cond: equal, likely: true}), "beql")
	registerBranch(r, emitBranch(branch{cond: notEqual, likely: true}), "bnel")
	registerBranch(r, emitBranch(branch{cond: zero}), "beqz")
	registerBranch(r, emitBranch(branch{cond: nonZero}), "bnez")
	registerBranch(r, emitBranch(branch{cond: nonNegative}), "bgez")
	registerBranch(r, emitBranch(branch{cond: positive}), "bgtz")
	registerBranch(r, emitBranch(branch{cond: nonPositive}), "blez")
	registerBranch(r, emitBranch(branch{cond: negative}), "bltz")
	registerBranch(r, emitBranch(branch{cond: nonNegative, likely: true}), "bgezl")
	registerBranch(r, emitBranch(branch{cond: positive, likely: true}), "bgtzl")
	registerBranch(r, emitBranch(branch{cond: nonPositive, likely: true}), "blezl")
	registerBranch(r, emitBranch(branch{cond: negative, likely: true}), "bltzl")
	registerBranch(r, emitBranch(branch{cond: nonNegative, link: true}), "bgezal")
	registerBranch(r, emitBranch(branch{cond: negative, link: true}), "bltzal")
	registerBranch(r, emitJump(false), "j")
	registerBranch(r, emitJump(true), "jal")
	registerBranch(r, emitJumpRegister, "jr")
	registerBranch(r, emitJumpAndLinkRegister, "jalr")
}

var delayed = map[string]bool{}

func registerBranch(r *translate.Registry, emit translate.EmitFunc, mnemonic string) {
	delayed[mnemonic] = true
	r.RegisterFunc(emit, mnemonic)
}

// HasDelaySlot reports whether the instruction after mnemonic executes in its
// delay slot.
func HasDelaySlot(mnemonic string) bool {
	return delayed[strings.ToLower(mnemonic)]
}

// delaySlot translates the instruction in the delay slot with the branch's
// environment and appends it to the branch.
func delaySlot(b *translate.Builder) {
	slot := b.Inst.DelaySlot
	if slot == nil {
		return
	}

	if slot.DelaySlot != nil {
		b.Unsupported("branch in a delay slot")
		return
	}

	seq, err := Translators.Translate(b.Env(), slot)
	if err != nil {
		b.Fail(err)
		return
	}

	b.Splice(seq)
}

// link writes the address after the delay slot to the link register.
func link(b *translate.Builder, reg string) {
	b.WriteRegister(reg, translate.Const(b.Address()+8, w))
}

// target reads the branch target, the last operand.
func target(b *translate.Builder) ir.Operand {
	n := node(b, len(b.Inst.Operands)-1)
	if n.Type != instr.ImmediateInteger {
		b.Unsupported("branch target must be an immediate")
		return translate.Const(0, w)
	}

	return read(b, len(b.Inst.Operands)-1)
}

func operandCount(b *translate.Builder) int {
	switch b.Inst.Mnemonic {
	case "b", "bal":
		return 1
	case "beq", "bne", "beql", "bnel":
		return 3
	}

	return 2
}

func emitBranch(br branch) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(operandCount(b)) {
			return
		}

		cond := br.cond(b)
		if cond.Kind == ir.KindRegister {
			cond = b.Str(cond, ir.Byte)
		}
		dest := target(b)

		if br.link {
			link(b, returnAddress)
		}

		if !br.likely {
			delaySlot(b)
			b.Jump(cond, dest)

			return
		}

		end := b.NewLabel()
		b.Branch(b.LogicalNot(cond), end)
		delaySlot(b)
		b.Goto(dest)
		b.Mark(end)
	}
}

func emitJump(withLink bool) translate.EmitFunc {
	return func(b *translate.Builder) {
		if !b.Expect(1) {
			return
		}

		dest := target(b)
		if withLink {
			link(b, returnAddress)
		}

		delaySlot(b)
		b.Goto(dest)
	}
}

func emitJumpRegister(b *translate.Builder) {
	if !b.Expect(1) {
		return
	}

	dest := b.Str(read(b, 0), w)
	delaySlot(b)
	b.Goto(dest)
}

func emitJumpAndLinkRegister(b *translate.Builder) {
	if !b.Expect(1, 2) {
		return
	}

	rd, rs := returnAddress, 0
	if len(b.Inst.Operands) == 2 {
		n := node(b, 0)
		if n.Type != instr.Register {
			b.Unsupported("jalr destination must be a register")
			return
		}
		rd, rs = n.Value, 1
	}

	dest := b.Str(read(b, rs), w)
	if !isZero(b, rd) {
		link(b, rd)
	}

	delaySlot(b)
	b.Goto(dest)
}
