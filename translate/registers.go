package translate

import (
	"math/big"

	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/ir"
)

// RegisterSize returns the size of a register or register view.
func (b *Builder) RegisterSize(name string) ir.OperandSize {
	r, err := b.Policy.Register(name)
	if err != nil {
		b.Fail(Unsupported(b.Inst, "%v", err))
		return ir.Dword
	}

	return r.Size
}

func (b *Builder) resolve(name string) (arch.Register, arch.Register, bool) {
	r, base, err := b.Policy.Resolve(name)
	if err != nil {
		b.Fail(Unsupported(b.Inst, "%v", err))
		return arch.Register{}, arch.Register{}, false
	}

	return r, base, true
}

// ReadRegister returns an operand holding the value of a register or view.
// Views are extracted from their architecture register into a temporary.
func (b *Builder) ReadRegister(name string) ir.Operand {
	r, base, ok := b.resolve(name)
	if !ok {
		return Const(0, ir.Dword)
	}

	full := ir.Register(base.Name, base.Size)
	if !r.IsView() || (r.Offset == 0 && r.Size == base.Size) {
		return full
	}

	if r.Offset == 0 {
		return b.Str(full, r.Size)
	}

	return b.Shr(full, r.Offset, r.Size)
}

// WriteRegister stores value into a register or view. Writes to views merge
// into the architecture register unless the view zero-extends.
func (b *Builder) WriteRegister(name string, value ir.Operand) {
	r, base, ok := b.resolve(name)
	if !ok {
		return
	}

	full := ir.Register(base.Name, base.Size)
	if !r.IsView() || (r.Offset == 0 && r.Size == base.Size) {
		b.Move(value, full)
		return
	}

	if value.Size > r.Size {
		value = b.Str(value, r.Size)
	}

	if r.ZeroExtend {
		b.Move(value, full)
		return
	}

	hole := new(big.Int).Lsh(r.Size.Mask(), r.Offset)
	hole.Xor(hole, base.Size.Mask())
	kept := b.And(full, ir.Immediate(hole, base.Size), base.Size)

	part := value
	if r.Offset > 0 {
		part = b.Shl(value, r.Offset, base.Size)
	}

	b.Emit(ir.Or, kept, part, full)
}
