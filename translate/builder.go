package translate

import (
	"fmt"
	"math/big"

	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
)

// Label marks a position inside the sequence being built. Labels may be used
// by jumps before they are marked.
type Label int

type fixup struct {
	index int
	label Label
}

// Builder collects the IR for one native instruction. The first failure is
// kept and returned by Build; later calls keep producing placeholder operands
// so translators can be written without checking every step.
type Builder struct {
	Policy *arch.Policy
	Inst   *instr.Instruction

	env     *Environment
	address uint64
	insts   []ir.Instruction
	labels  []int
	fixups  []fixup
	err     error
}

// NewBuilder starts a sequence for inst.
func NewBuilder(env *Environment, policy *arch.Policy, inst *instr.Instruction) *Builder {
	return &Builder{
		Policy:  policy,
		Inst:    inst,
		env:     env,
		address: inst.Address,
	}
}

// Env returns the environment the builder draws names and positions from.
func (b *Builder) Env() *Environment {
	return b.env
}

// Address is the native address every emitted instruction carries.
func (b *Builder) Address() uint64 {
	return b.address
}

// Err returns the first failure recorded so far.
func (b *Builder) Err() error {
	return b.err
}

// Fail records err unless an earlier failure exists.
func (b *Builder) Fail(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

// Unsupported records an UnsupportedInstructionError.
func (b *Builder) Unsupported(format string, args ...interface{}) {
	b.Fail(Unsupported(b.Inst, format, args...))
}

// Internal records an InternalTranslationError.
func (b *Builder) Internal(format string, args ...interface{}) {
	b.Fail(Internal(b.Inst, format, args...))
}

// Expect checks the operand count of the native instruction.
func (b *Builder) Expect(counts ...int) bool {
	for _, n := range counts {
		if len(b.Inst.Operands) == n {
			return true
		}
	}

	b.Unsupported("expected %v operands, got %d", counts, len(b.Inst.Operands))

	return false
}

// Emit appends one IR instruction.
func (b *Builder) Emit(op ir.Opcode, x, y, z ir.Operand) {
	b.insts = append(b.insts, ir.New(b.address, b.env.NextPosition(), op, x, y, z))
}

// Temp allocates a temporary register.
func (b *Builder) Temp(size ir.OperandSize) ir.Operand {
	return ir.Temporary(b.env.NextTemporary(), size)
}

func (b *Builder) binary(op ir.Opcode, x, y ir.Operand, size ir.OperandSize) ir.Operand {
	t := b.Temp(size)
	b.Emit(op, x, y, t)

	return t
}

// Add emits x + y into a new temporary of the given size.
func (b *Builder) Add(x, y ir.Operand, size ir.OperandSize) ir.Operand {
	return b.binary(ir.Add, x, y, size)
}

// Sub emits x - y.
func (b *Builder) Sub(x, y ir.Operand, size ir.OperandSize) ir.Operand {
	return b.binary(ir.Sub, x, y, size)
}

// Mul emits x * y.
func (b *Builder) Mul(x, y ir.Operand, size ir.OperandSize) ir.Operand {
	return b.binary(ir.Mul, x, y, size)
}

// Div emits the unsigned quotient x / y.
func (b *Builder) Div(x, y ir.Operand, size ir.OperandSize) ir.Operand {
	return b.binary(ir.Div, x, y, size)
}

// Mod emits the unsigned remainder x % y.
func (b *Builder) Mod(x, y ir.Operand, size ir.OperandSize) ir.Operand {
	return b.binary(ir.Mod, x, y, size)
}

// And emits x & y.
func (b *Builder) And(x, y ir.Operand, size ir.OperandSize) ir.Operand {
	return b.binary(ir.And, x, y, size)
}

// Or emits x | y.
func (b *Builder) Or(x, y ir.Operand, size ir.OperandSize) ir.Operand {
	return b.binary(ir.Or, x, y, size)
}

// Xor emits x ^ y.
func (b *Builder) Xor(x, y ir.Operand, size ir.OperandSize) ir.Operand {
	return b.binary(ir.Xor, x, y, size)
}

// Bsh emits a shift of x by a signed amount; positive shifts left.
func (b *Builder) Bsh(x, amount ir.Operand, size ir.OperandSize) ir.Operand {
	return b.binary(ir.Bsh, x, amount, size)
}

// Shl shifts x left by a constant.
func (b *Builder) Shl(x ir.Operand, n uint, size ir.OperandSize) ir.Operand {
	return b.Bsh(x, ir.ImmSigned(int64(n), ir.Byte), size)
}

// Shr shifts x right by a constant.
func (b *Builder) Shr(x ir.Operand, n uint, size ir.OperandSize) ir.Operand {
	return b.Bsh(x, ir.ImmSigned(-int64(n), ir.Byte), size)
}

// Not emits the bitwise complement.
func (b *Builder) Not(x ir.Operand, size ir.OperandSize) ir.Operand {
	t := b.Temp(size)
	b.Emit(ir.Not, x, ir.None, t)

	return t
}

// Bisz emits 1 if x is zero, else 0.
func (b *Builder) Bisz(x ir.Operand) ir.Operand {
	t := b.Temp(ir.Byte)
	b.Emit(ir.Bisz, x, ir.None, t)

	return t
}

// Str copies x into a new temporary, truncating or zero-extending.
func (b *Builder) Str(x ir.Operand, size ir.OperandSize) ir.Operand {
	t := b.Temp(size)
	b.Emit(ir.Str, x, ir.None, t)

	return t
}

// Move copies x into dst.
func (b *Builder) Move(x, dst ir.Operand) {
	b.Emit(ir.Str, x, ir.None, dst)
}

// Ldm loads size bytes from addr.
func (b *Builder) Ldm(addr ir.Operand, size ir.OperandSize) ir.Operand {
	t := b.Temp(size)
	b.Emit(ir.Ldm, addr, ir.None, t)

	return t
}

// Stm stores value, using its size, at addr.
func (b *Builder) Stm(value, addr ir.Operand) {
	b.Emit(ir.Stm, value, ir.None, addr)
}

// Undef marks a register as holding no defined value.
func (b *Builder) Undef(reg ir.Operand) {
	b.Emit(ir.Undef, ir.None, ir.None, reg)
}

// Nop emits a nop.
func (b *Builder) Nop() {
	b.Emit(ir.Nop, ir.None, ir.None, ir.None)
}

// Unkn emits an unknown-semantics marker handled by the interpreter policy.
func (b *Builder) Unkn() {
	b.Emit(ir.Unkn, ir.None, ir.None, ir.None)
}

// Jump emits a conditional jump to a native target.
func (b *Builder) Jump(cond, target ir.Operand) {
	b.Emit(ir.Jcc, cond, ir.None, target)
}

// Goto emits an unconditional jump to a native target.
func (b *Builder) Goto(target ir.Operand) {
	b.Jump(ir.Imm(1, ir.Byte), target)
}

// NewLabel creates an unmarked label.
func (b *Builder) NewLabel() Label {
	b.labels = append(b.labels, -1)
	return Label(len(b.labels) - 1)
}

// Mark binds l to the next instruction emitted.
func (b *Builder) Mark(l Label) {
	b.labels[l] = len(b.insts)
}

// Branch jumps to l if cond is non-zero.
func (b *Builder) Branch(cond ir.Operand, l Label) {
	b.fixups = append(b.fixups, fixup{index: len(b.insts), label: l})
	b.Jump(cond, ir.At(b.address, 0))
}

// BranchAlways jumps to l.
func (b *Builder) BranchAlways(l Label) {
	b.Branch(ir.Imm(1, ir.Byte), l)
}

// Splice appends IR translated for another native instruction, such as a
// delay slot, rebasing it onto this builder's address. The spliced sequence
// must have been produced with this builder's environment.
func (b *Builder) Splice(seq []ir.Instruction) {
	for _, inst := range seq {
		target := inst.Operands[2]
		if inst.Opcode == ir.Jcc && target.Kind == ir.KindSubAddress &&
			target.Target.Address == inst.Address {
			inst.Operands[2] = ir.At(b.address, target.Target.Position)
		}

		inst.Address = b.address
		b.insts = append(b.insts, inst)
	}
}

// Build resolves labels and returns the sequence.
func (b *Builder) Build() ([]ir.Instruction, error) {
	if b.err != nil {
		return nil, b.err
	}

	for _, idx := range b.labels {
		if idx == len(b.insts) {
			b.Nop()
			break
		}
	}

	for _, f := range b.fixups {
		idx := b.labels[f.label]
		if idx < 0 || idx >= len(b.insts) {
			return nil, Internal(b.Inst, "jump to unmarked label %d", f.label)
		}

		b.insts[f.index].Operands[2] = ir.At(b.address, b.insts[idx].Position)
	}

	return b.insts, nil
}

// Const makes an immediate.
func Const(v uint64, size ir.OperandSize) ir.Operand {
	return ir.Imm(v, size)
}

// Mask makes the immediate 2^bits(size)-1 at a given operand size.
func Mask(of, size ir.OperandSize) ir.Operand {
	return ir.Immediate(of.Mask(), size)
}

// Bit extracts bit n of x as a byte.
func (b *Builder) Bit(x ir.Operand, n uint) ir.Operand {
	if n == 0 {
		return b.And(x, Const(1, ir.Byte), ir.Byte)
	}

	shifted := b.Shr(x, n, x.Size)

	return b.And(shifted, Const(1, ir.Byte), ir.Byte)
}

// MSB extracts the most significant bit of x at the given size.
func (b *Builder) MSB(x ir.Operand, size ir.OperandSize) ir.Operand {
	return b.Bit(x, size.Bits()-1)
}

// IsZero is 1 if x is zero.
func (b *Builder) IsZero(x ir.Operand) ir.Operand {
	return b.Bisz(x)
}

// NotZero is 1 if x is non-zero.
func (b *Builder) NotZero(x ir.Operand) ir.Operand {
	return b.Bisz(b.Bisz(x))
}

// Equal is 1 if x and y are equal at the given size.
func (b *Builder) Equal(x, y ir.Operand, size ir.OperandSize) ir.Operand {
	return b.Bisz(b.Xor(x, y, size))
}

// LogicalNot inverts a 0/1 value.
func (b *Builder) LogicalNot(x ir.Operand) ir.Operand {
	return b.Bisz(x)
}

// Double returns the size twice as wide as s, recording a failure for sizes
// that cannot be doubled.
func (b *Builder) Double(s ir.OperandSize) ir.OperandSize {
	d, err := s.Double()
	if err != nil {
		b.Internal("%v", err)
		return ir.Oword
	}

	return d
}

// LessUnsigned is 1 if x < y as unsigned numbers of the given size.
func (b *Builder) LessUnsigned(x, y ir.Operand, size ir.OperandSize) ir.Operand {
	wide := b.Sub(x, y, b.Double(size))
	return b.Bit(wide, size.Bits())
}

// LessSigned is 1 if x < y as two's complement numbers of the given size.
func (b *Builder) LessSigned(x, y ir.Operand, size ir.OperandSize) ir.Operand {
	sign := ir.Immediate(size.SignBit(), size)
	return b.LessUnsigned(b.Xor(x, sign, size), b.Xor(y, sign, size), size)
}

// SignExtend widens x from one size to another, replicating the sign bit.
func (b *Builder) SignExtend(x ir.Operand, from, to ir.OperandSize) ir.Operand {
	sign := ir.Immediate(from.SignBit(), to)
	if x.Size > from {
		x = b.Str(x, from)
	}

	flipped := b.Xor(x, sign, to)

	return b.Sub(flipped, sign, to)
}

// Negate computes the two's complement negation of x.
func (b *Builder) Negate(x ir.Operand, size ir.OperandSize) ir.Operand {
	return b.Sub(Const(0, size), x, size)
}

// Select computes cond ? x : y where cond is 0 or 1.
func (b *Builder) Select(cond, x, y ir.Operand, size ir.OperandSize) ir.Operand {
	mask := b.Negate(b.Str(cond, size), size)
	keep := b.And(x, mask, size)
	other := b.And(y, b.Not(mask, size), size)

	return b.Or(keep, other, size)
}

func (b *Builder) String() string {
	return fmt.Sprintf("builder for %s with %d instructions", b.Inst, len(b.insts))
}

// BigConst makes an immediate from a big value.
func BigConst(v *big.Int, size ir.OperandSize) ir.Operand {
	return ir.Immediate(v, size)
}
