package ir

import (
	"fmt"
	"strings"
)

// Instruction is one IR instruction. The first two operand slots are inputs,
// the third is the output, store address or jump target depending on the
// opcode contract.
type Instruction struct {
	Address  uint64
	Position uint16
	Opcode   Opcode
	Operands [3]Operand
}

// New builds an instruction.
func New(address uint64, position uint16, op Opcode, a, b, c Operand) Instruction {
	return Instruction{
		Address:  address,
		Position: position,
		Opcode:   op,
		Operands: [3]Operand{a, b, c},
	}
}

// Key returns the IR program counter of the instruction.
func (i Instruction) Key() SubAddress {
	return SubAddress{Address: i.Address, Position: i.Position}
}

// Equal compares two instructions field by field.
func (i Instruction) Equal(o Instruction) bool {
	if i.Address != o.Address || i.Position != o.Position || i.Opcode != o.Opcode {
		return false
	}

	for k := range i.Operands {
		if !i.Operands[k].Equal(o.Operands[k]) {
			return false
		}
	}

	return true
}

// String renders the instruction as "ADDR.POS: op [a, b, c]".
func (i Instruction) String() string {
	parts := make([]string, 3)
	for k, o := range i.Operands {
		parts[k] = o.String()
	}

	return fmt.Sprintf("%08X.%02d: %s [%s]",
		i.Address, i.Position, i.Opcode, strings.Join(parts, ", "))
}

// Listing renders a sequence one instruction per line.
func Listing(seq []Instruction) string {
	var sb strings.Builder
	for _, inst := range seq {
		sb.WriteString(inst.String())
		sb.WriteByte('\n')
	}

	return sb.String()
}
