package ir

import (
	"fmt"
	"math/big"
)

// OperandSize is the width of an operand in bytes. The zero value is the size
// of an empty operand slot.
type OperandSize int

// The closed set of operand sizes.
const (
	Empty OperandSize = 0
	Byte  OperandSize = 1
	Word  OperandSize = 2
	Dword OperandSize = 4
	Qword OperandSize = 8
	Oword OperandSize = 16
)

var sizeNames = map[OperandSize]string{
	Empty: "",
	Byte:  "b1",
	Word:  "b2",
	Dword: "b4",
	Qword: "b8",
	Oword: "b16",
}

// Valid reports whether s is one of the non-empty operand sizes.
func (s OperandSize) Valid() bool {
	switch s {
	case Byte, Word, Dword, Qword, Oword:
		return true
	}

	return false
}

// Bits returns the width in bits.
func (s OperandSize) Bits() uint {
	return uint(s) * 8
}

// Mask returns 2^bits - 1.
func (s OperandSize) Mask() *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), s.Bits())
	return m.Sub(m, big.NewInt(1))
}

// SignBit returns 2^(bits-1).
func (s OperandSize) SignBit() *big.Int {
	if s == Empty {
		return new(big.Int)
	}

	return new(big.Int).Lsh(big.NewInt(1), s.Bits()-1)
}

// Double returns the next size that holds twice as many bits.
func (s OperandSize) Double() (OperandSize, error) {
	switch s {
	case Byte:
		return Word, nil
	case Word:
		return Dword, nil
	case Dword:
		return Qword, nil
	case Qword:
		return Oword, nil
	}

	return Empty, fmt.Errorf("no operand size is twice as wide as %s", s)
}

// Truncate reduces v modulo 2^bits. The result is a new value.
func (s OperandSize) Truncate(v *big.Int) *big.Int {
	return new(big.Int).And(v, s.Mask())
}

// Signed interprets the truncated value of v as a two's complement number.
func (s OperandSize) Signed(v *big.Int) *big.Int {
	t := s.Truncate(v)
	if t.Cmp(s.SignBit()) >= 0 {
		t.Sub(t, new(big.Int).Lsh(big.NewInt(1), s.Bits()))
	}

	return t
}

func (s OperandSize) String() string {
	if name, ok := sizeNames[s]; ok {
		return name
	}

	return fmt.Sprintf("b?%d", int(s))
}

// SizeFromBytes converts a byte count into an operand size.
func SizeFromBytes(n int) (OperandSize, error) {
	s := OperandSize(n)
	if !s.Valid() {
		return Empty, fmt.Errorf("invalid operand size of %d bytes", n)
	}

	return s, nil
}
