package core

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/ir"
)

// Memory is a sparse byte-addressed memory. Bytes that were never stored are
// absent and reading them fails.
type Memory struct {
	endianness arch.Endianness
	cells      map[uint64]byte
}

// NewMemory creates an empty memory.
func NewMemory(endianness arch.Endianness) *Memory {
	return &Memory{endianness: endianness, cells: make(map[uint64]byte)}
}

// Endianness returns the byte order of multi-byte accesses.
func (m *Memory) Endianness() arch.Endianness {
	return m.endianness
}

func (m *Memory) offset(i, size int) uint64 {
	if m.endianness == arch.BigEndian {
		return uint64(size - 1 - i)
	}

	return uint64(i)
}

// Store writes the low size bytes of value at addr.
func (m *Memory) Store(addr uint64, value *big.Int, size ir.OperandSize) {
	v := size.Truncate(value)
	lowByte := big.NewInt(0xFF)
	n := int(size)

	for i := 0; i < n; i++ {
		b := new(big.Int).Rsh(v, uint(8*i))
		b.And(b, lowByte)
		m.cells[addr+m.offset(i, n)] = byte(b.Uint64())
	}
}

// StoreUint64 is Store for a uint64 value.
func (m *Memory) StoreUint64(addr, value uint64, size ir.OperandSize) {
	m.Store(addr, new(big.Int).SetUint64(value), size)
}

// Load reads size bytes at addr.
func (m *Memory) Load(addr uint64, size ir.OperandSize) (*big.Int, error) {
	v := new(big.Int)
	n := int(size)

	for i := n - 1; i >= 0; i-- {
		a := addr + m.offset(i, n)
		b, ok := m.cells[a]
		if !ok {
			return nil, fmt.Errorf("%w at %X", ErrAbsentMemory, a)
		}

		v.Lsh(v, 8)
		v.Or(v, big.NewInt(int64(b)))
	}

	return v, nil
}

// Has reports whether the byte at addr was written.
func (m *Memory) Has(addr uint64) bool {
	_, ok := m.cells[addr]
	return ok
}

// Size is the number of bytes held.
func (m *Memory) Size() int {
	return len(m.cells)
}

// Addresses lists the written byte addresses in order.
func (m *Memory) Addresses() []uint64 {
	out := make([]uint64, 0, len(m.cells))
	for a := range m.cells {
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// Byte returns one byte and whether it is present.
func (m *Memory) Byte(addr uint64) (byte, bool) {
	b, ok := m.cells[addr]
	return b, ok
}
