package translate

import (
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
)

// RegisterReader reads a register by name while computing an address.
type RegisterReader func(b *Builder, name string) ir.Operand

// EffectiveAddress computes an address expression made of registers,
// immediates and the operators + - * and <<. A nil read uses ReadRegister.
func EffectiveAddress(b *Builder, n *instr.Node, read RegisterReader) ir.Operand {
	as := b.Policy.AddressSize
	n = Unwrap(n)

	if read == nil {
		read = func(b *Builder, name string) ir.Operand {
			return b.ReadRegister(name)
		}
	}

	if n == nil {
		b.Unsupported("empty address expression")
		return Const(0, as)
	}

	switch n.Type {
	case instr.Register:
		v := read(b, n.Value)
		if v.Size != as {
			return b.Str(v, as)
		}
		return v
	case instr.ImmediateInteger:
		v, err := n.Integer()
		if err != nil {
			b.Unsupported("%v", err)
			return Const(0, as)
		}
		return ir.Immediate(v, as)
	case instr.MemoryDereference:
		return b.Ldm(EffectiveAddress(b, n.Child(0), read), as)
	case instr.Operator:
		if len(n.Children) == 0 {
			b.Unsupported("operator %q without operands", n.Value)
			return Const(0, as)
		}

		acc := EffectiveAddress(b, n.Child(0), read)
		for _, c := range n.Children[1:] {
			v := EffectiveAddress(b, c, read)

			switch n.Value {
			case "+":
				acc = b.Add(acc, v, as)
			case "-":
				acc = b.Sub(acc, v, as)
			case "*":
				acc = b.Mul(acc, v, as)
			case "<<", "lsl":
				acc = b.Bsh(acc, b.Str(v, ir.Byte), as)
			default:
				b.Unsupported("operator %q in address", n.Value)
				return acc
			}
		}

		return acc
	}

	b.Unsupported("unexpected %s node in address", n.Type)

	return Const(0, as)
}
