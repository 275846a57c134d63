package ir

import (
	"fmt"
	"math/big"
	"strings"
)

// OperandKind tags the variant held by an Operand.
type OperandKind int

// Operand kinds.
const (
	KindEmpty OperandKind = iota
	KindRegister
	KindTemporary
	KindImmediate
	KindSubAddress
)

func (k OperandKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindRegister:
		return "register"
	case KindTemporary:
		return "temporary"
	case KindImmediate:
		return "immediate"
	case KindSubAddress:
		return "subaddress"
	}

	return "unknown"
}

// SubAddress is the IR program counter: a native address plus the index of an
// IR instruction inside that native instruction's sequence.
type SubAddress struct {
	Address  uint64
	Position uint16
}

// Less orders sub-addresses by address, then position.
func (s SubAddress) Less(o SubAddress) bool {
	if s.Address != o.Address {
		return s.Address < o.Address
	}

	return s.Position < o.Position
}

func (s SubAddress) String() string {
	return fmt.Sprintf("%X.%d", s.Address, s.Position)
}

// Operand is one slot of an IR instruction. Operands are values; the immediate
// payload is never mutated after construction.
type Operand struct {
	Kind   OperandKind
	Size   OperandSize
	Name   string
	value  *big.Int
	Target SubAddress
}

// None is the empty operand.
var None = Operand{}

// Register makes an architecture register operand.
func Register(name string, size OperandSize) Operand {
	return Operand{Kind: KindRegister, Size: size, Name: name}
}

// Temporary makes a temporary register operand.
func Temporary(name string, size OperandSize) Operand {
	return Operand{Kind: KindTemporary, Size: size, Name: name}
}

// Immediate makes an immediate operand. The value is reduced modulo the size,
// so negative inputs become their two's complement encoding.
func Immediate(v *big.Int, size OperandSize) Operand {
	return Operand{Kind: KindImmediate, Size: size, value: size.Truncate(v)}
}

// Imm is Immediate for a uint64 value.
func Imm(v uint64, size OperandSize) Operand {
	return Immediate(new(big.Int).SetUint64(v), size)
}

// ImmSigned is Immediate for an int64 value.
func ImmSigned(v int64, size OperandSize) Operand {
	return Immediate(big.NewInt(v), size)
}

// At makes a jcc target that points inside a native instruction's sequence.
func At(address uint64, position uint16) Operand {
	return Operand{
		Kind:   KindSubAddress,
		Size:   Qword,
		Target: SubAddress{Address: address, Position: position},
	}
}

// Value returns a copy of the immediate value.
func (o Operand) Value() *big.Int {
	if o.value == nil {
		return new(big.Int)
	}

	return new(big.Int).Set(o.value)
}

// IsEmpty reports whether the slot is unused.
func (o Operand) IsEmpty() bool {
	return o.Kind == KindEmpty
}

// IsStorage reports whether the operand names a register or temporary.
func (o Operand) IsStorage() bool {
	return o.Kind == KindRegister || o.Kind == KindTemporary
}

// Resize returns the operand with a different size. Immediates are truncated.
func (o Operand) Resize(size OperandSize) Operand {
	if o.Kind == KindImmediate {
		return Immediate(o.value, size)
	}

	o.Size = size

	return o
}

// Equal compares two operands by kind, size and payload.
func (o Operand) Equal(other Operand) bool {
	if o.Kind != other.Kind || o.Size != other.Size {
		return false
	}

	switch o.Kind {
	case KindRegister, KindTemporary:
		return o.Name == other.Name
	case KindImmediate:
		return o.Value().Cmp(other.Value()) == 0
	case KindSubAddress:
		return o.Target == other.Target
	}

	return true
}

func (o Operand) String() string {
	switch o.Kind {
	case KindEmpty:
		return ""
	case KindRegister, KindTemporary:
		return fmt.Sprintf("%s %s", o.Size, o.Name)
	case KindImmediate:
		return fmt.Sprintf("%s %s", o.Size, strings.ToUpper(o.value.Text(16)))
	case KindSubAddress:
		return fmt.Sprintf("%s %s", o.Size, o.Target)
	}

	return "?"
}
