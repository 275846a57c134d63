package core

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"

	"github.com/OneOfOne/xxhash"

	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/ir"
)

// RegisterStatus tells whether a register holds a value.
type RegisterStatus int

// Register statuses.
const (
	Undefined RegisterStatus = iota
	Defined
)

func (s RegisterStatus) String() string {
	if s == Defined {
		return "defined"
	}

	return "undefined"
}

// Register is the content of one register.
type Register struct {
	Name   string
	Value  *big.Int
	Size   ir.OperandSize
	Status RegisterStatus
}

// State is the CPU state the interpreter works on: architecture registers,
// the temporaries of the native instruction being executed, and memory.
type State struct {
	Memory *Memory
	Cursor ir.SubAddress

	registers   map[string]*Register
	temporaries map[string]*Register
}

// NewState creates a state with no defined registers and empty memory.
func NewState(endianness arch.Endianness) *State {
	return &State{
		Memory:      NewMemory(endianness),
		registers:   make(map[string]*Register),
		temporaries: make(map[string]*Register),
	}
}

// SetRegister writes a register. The value is truncated to size.
func (s *State) SetRegister(name string, value *big.Int, size ir.OperandSize, status RegisterStatus) {
	s.registers[name] = &Register{
		Name:   name,
		Value:  size.Truncate(value),
		Size:   size,
		Status: status,
	}
}

// Register returns a copy of a register.
func (s *State) Register(name string) (Register, bool) {
	r, ok := s.registers[name]
	if !ok {
		return Register{Name: name, Value: new(big.Int)}, false
	}

	c := *r
	c.Value = new(big.Int).Set(r.Value)

	return c, true
}

// Value returns the value of a defined register.
func (s *State) Value(name string) (*big.Int, error) {
	r, ok := s.registers[name]
	if !ok || r.Status != Defined {
		return nil, fmt.Errorf("%w %q", ErrUndefinedRegister, name)
	}

	return new(big.Int).Set(r.Value), nil
}

// Uint64 returns the low 64 bits of a defined register, or 0.
func (s *State) Uint64(name string) uint64 {
	v, err := s.Value(name)
	if err != nil {
		return 0
	}

	return v.Uint64()
}

// IsDefined reports whether a register holds a value.
func (s *State) IsDefined(name string) bool {
	r, ok := s.registers[name]
	return ok && r.Status == Defined
}

// DefinedRegisters lists the defined architecture registers in name order.
func (s *State) DefinedRegisters() []string {
	var names []string
	for name, r := range s.registers {
		if r.Status == Defined {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names
}

func (s *State) temporary(name string) (*Register, bool) {
	r, ok := s.temporaries[name]
	return r, ok
}

func (s *State) setTemporary(name string, value *big.Int, size ir.OperandSize) {
	s.temporaries[name] = &Register{Name: name, Value: value, Size: size, Status: Defined}
}

func (s *State) clearTemporaries() {
	if len(s.temporaries) > 0 {
		s.temporaries = make(map[string]*Register)
	}
}

// Temporaries returns the number of live temporaries.
func (s *State) Temporaries() int {
	return len(s.temporaries)
}

// Fingerprint hashes the defined registers and the memory content. Two states
// with the same observable content have the same fingerprint.
func (s *State) Fingerprint() uint64 {
	h := xxhash.New64()
	var word [8]byte

	for _, name := range s.DefinedRegisters() {
		r := s.registers[name]
		h.Write([]byte(name))
		h.Write([]byte{byte(r.Size)})
		h.Write(r.Value.Bytes())
		h.Write([]byte{0})
	}

	for _, a := range s.Memory.Addresses() {
		b, _ := s.Memory.Byte(a)
		binary.LittleEndian.PutUint64(word[:], a)
		h.Write(word[:])
		h.Write([]byte{b})
	}

	return h.Sum64()
}
