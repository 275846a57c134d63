// Package instr describes native instructions as a disassembler front end
// hands them to the lifter: a mnemonic, an address and operand trees.
package instr

import (
	"fmt"
	"strings"
)

// Instruction is a decoded native instruction.
type Instruction struct {
	Address  uint64
	Length   int
	Mnemonic string
	Operands []*Node

	// DelaySlot is the instruction executed in the delay slot of a branch on
	// architectures that have one.
	DelaySlot *Instruction
}

// New creates an instruction. The mnemonic is normalized to lower case.
func New(address uint64, mnemonic string, operands ...*Node) *Instruction {
	return &Instruction{
		Address:  address,
		Mnemonic: strings.ToLower(strings.TrimSpace(mnemonic)),
		Operands: operands,
	}
}

// WithLength returns a copy carrying the byte length of the encoding.
func (i Instruction) WithLength(n int) *Instruction {
	i.Length = n
	return &i
}

// WithDelaySlot returns a copy with the given delay-slot instruction.
func (i Instruction) WithDelaySlot(slot *Instruction) *Instruction {
	i.DelaySlot = slot
	return &i
}

// Operand returns the i-th operand tree or nil.
func (i *Instruction) Operand(n int) *Node {
	if n < 0 || n >= len(i.Operands) {
		return nil
	}

	return i.Operands[n]
}

// Next is the address of the following instruction, if the length is known.
func (i *Instruction) Next() uint64 {
	return i.Address + uint64(i.Length)
}

func (i Instruction) String() string {
	ops := make([]string, len(i.Operands))
	for k, o := range i.Operands {
		ops[k] = o.String()
	}

	s := fmt.Sprintf("%08X %s", i.Address, i.Mnemonic)
	if len(ops) > 0 {
		s += " " + strings.Join(ops, ", ")
	}

	if i.DelaySlot != nil {
		s += " ; " + i.DelaySlot.String()
	}

	return s
}
