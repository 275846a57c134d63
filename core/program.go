package core

import (
	"sort"

	"github.com/samghub/binnavi/ir"
)

// Program maps native addresses to the IR of the instruction at that address.
type Program map[uint64][]ir.Instruction

// ProgramFromSequence groups a flat IR sequence by native address.
func ProgramFromSequence(seq []ir.Instruction) Program {
	p := make(Program)
	for _, inst := range seq {
		p[inst.Address] = append(p[inst.Address], inst)
	}

	return p
}

// Addresses lists the native addresses in order.
func (p Program) Addresses() []uint64 {
	out := make([]uint64, 0, len(p))
	for a := range p {
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// Len is the number of IR instructions, not of native addresses.
func (p Program) Len() int {
	n := 0
	for _, seq := range p {
		n += len(seq)
	}

	return n
}

type programIndex struct {
	program   Program
	addresses []uint64
	positions map[uint64]map[uint16]int
}

func newProgramIndex(p Program) *programIndex {
	idx := &programIndex{
		program:   p,
		addresses: p.Addresses(),
		positions: make(map[uint64]map[uint16]int, len(p)),
	}

	for addr, seq := range p {
		m := make(map[uint16]int, len(seq))
		for i, inst := range seq {
			m[inst.Position] = i
		}
		idx.positions[addr] = m
	}

	return idx
}

func (idx *programIndex) has(addr uint64) bool {
	_, ok := idx.positions[addr]
	return ok
}

func (idx *programIndex) fetch(at ir.SubAddress) (ir.Instruction, bool) {
	m, ok := idx.positions[at.Address]
	if !ok {
		return ir.Instruction{}, false
	}

	i, ok := m[at.Position]
	if !ok {
		return ir.Instruction{}, false
	}

	return idx.program[at.Address][i], true
}

// first returns the lowest position of the instruction at addr.
func (idx *programIndex) first(addr uint64) (ir.SubAddress, bool) {
	m, ok := idx.positions[addr]
	if !ok || len(m) == 0 {
		return ir.SubAddress{}, false
	}

	lowest := -1
	for p := range m {
		if lowest < 0 || int(p) < lowest {
			lowest = int(p)
		}
	}

	return ir.SubAddress{Address: addr, Position: uint16(lowest)}, true
}

// entry returns the first IR position run when control reaches addr. An
// address with an empty sequence falls through to the next address.
func (idx *programIndex) entry(addr uint64) (ir.SubAddress, bool) {
	for {
		if at, ok := idx.first(addr); ok {
			return at, true
		}

		next, ok := idx.nextAddress(addr)
		if !ok {
			return ir.SubAddress{}, false
		}

		addr = next
	}
}

// nextAddress returns the first native address above addr.
func (idx *programIndex) nextAddress(addr uint64) (uint64, bool) {
	i := sort.Search(len(idx.addresses), func(i int) bool { return idx.addresses[i] > addr })
	if i == len(idx.addresses) {
		return 0, false
	}

	return idx.addresses[i], true
}
