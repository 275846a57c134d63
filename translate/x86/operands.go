package x86

import (
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

// operand is a decoded native operand. Memory operands compute their address
// once so a read-modify-write sequence loads and stores the same location.
type operand struct {
	node  *instr.Node
	inner *instr.Node
	size  ir.OperandSize
	addr  ir.Operand
	ready bool
}

func decode(b *translate.Builder, i int) *operand {
	root := b.Inst.Operand(i)
	if root == nil {
		b.Unsupported("missing operand %d", i)
		return &operand{size: ir.Dword, inner: instr.Imm(0)}
	}

	o := &operand{node: root, inner: translate.Unwrap(root)}

	if root.Type == instr.SizePrefix {
		size, err := b.Env().OperandSize(root)
		if err != nil {
			b.Unsupported("%v", err)
			size = ir.Dword
		}
		o.size = size
	} else if root.Type == instr.Register {
		o.size = b.RegisterSize(root.Value)
	}

	if o.inner == nil {
		b.Unsupported("empty operand %d", i)
		o.inner = instr.Imm(0)
	}

	return o
}

func (o *operand) isRegister() bool {
	return o.inner.Type == instr.Register
}

func (o *operand) isMemory() bool {
	return o.inner.Type == instr.MemoryDereference
}

func (o *operand) isImmediate() bool {
	return o.inner.Type == instr.ImmediateInteger
}

// address computes the effective address of a memory operand.
func (o *operand) address(b *translate.Builder) ir.Operand {
	if !o.ready {
		o.addr = effectiveAddress(b, o.inner.Child(0))
		o.ready = true
	}

	return o.addr
}

// effectiveAddress strips the flat segments and computes the address
// expression.
func effectiveAddress(b *translate.Builder, n *instr.Node) ir.Operand {
	n = translate.Unwrap(n)

	if n != nil && n.Type == instr.Operator && n.Value == ":" {
		switch n.Child(0).Value {
		case "ds", "es", "ss", "cs":
			return effectiveAddress(b, n.Child(1))
		}

		b.Unsupported("segment %q", n.Child(0).Value)

		return translate.Const(0, b.Policy.AddressSize)
	}

	return translate.EffectiveAddress(b, n, nil)
}

// load reads the operand at its own size.
func (o *operand) load(b *translate.Builder) ir.Operand {
	return o.loadAs(b, o.size)
}

// loadAs reads the operand for an instruction of the given size. Immediates
// narrower than size are sign-extended, the way the encoding extends them.
func (o *operand) loadAs(b *translate.Builder, size ir.OperandSize) ir.Operand {
	switch o.inner.Type {
	case instr.Register:
		return b.ReadRegister(o.inner.Value)
	case instr.ImmediateInteger:
		v, err := o.inner.Integer()
		if err != nil {
			b.Unsupported("%v", err)
			return translate.Const(0, size)
		}

		if o.size != ir.Empty && o.size < size {
			v = o.size.Signed(v)
		}

		return ir.Immediate(v, size)
	case instr.MemoryDereference:
		if o.size == ir.Empty {
			b.Unsupported("memory operand without size")
			return translate.Const(0, size)
		}

		return b.Ldm(o.address(b), o.size)
	}

	b.Unsupported("unexpected %s operand", o.inner.Type)

	return translate.Const(0, size)
}

// store writes v into the operand.
func (o *operand) store(b *translate.Builder, v ir.Operand) {
	switch o.inner.Type {
	case instr.Register:
		b.WriteRegister(o.inner.Value, v)
	case instr.MemoryDereference:
		if v.Size != o.size {
			v = b.Str(v, o.size)
		}

		b.Stm(v, o.address(b))
	default:
		b.Unsupported("cannot write to a %s operand", o.inner.Type)
	}
}

// sizeOr returns the operand size, or fallback for unsized immediates.
func (o *operand) sizeOr(fallback ir.OperandSize) ir.OperandSize {
	if o.size == ir.Empty {
		return fallback
	}

	return o.size
}
