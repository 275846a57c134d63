// Package arch describes the architectures the lifter and the interpreter
// support: register files, flags, the program counter and the address width.
package arch

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samghub/binnavi/ir"
)

var (
	// ErrUnknownArchitecture is returned for an unrecognized architecture tag.
	ErrUnknownArchitecture = errors.New("unknown architecture")

	// ErrUnknownRegister is returned for a register name the policy does not know.
	ErrUnknownRegister = errors.New("unknown register")
)

// Endianness is the byte order of memory accesses.
type Endianness int

// Byte orders.
const (
	LittleEndian Endianness = iota
	BigEndian
)

func (e Endianness) String() string {
	if e == BigEndian {
		return "big"
	}

	return "little"
}

// ParseEndianness accepts "little" and "big".
func ParseEndianness(s string) (Endianness, error) {
	switch s {
	case "little", "le", "":
		return LittleEndian, nil
	case "big", "be":
		return BigEndian, nil
	}

	return LittleEndian, fmt.Errorf("unknown endianness %q", s)
}

// Register describes one register name. Names with a parent are views on
// part of another register, used only while translating.
type Register struct {
	Name   string
	Size   ir.OperandSize
	Parent string
	Offset uint

	// ZeroExtend is set when a write to this view clears the rest of the
	// parent, as 32-bit writes do on x64.
	ZeroExtend bool
}

// IsView reports whether the register is a view on another register.
func (r Register) IsView() bool {
	return r.Parent != ""
}

// Policy is the static description of one architecture.
type Policy struct {
	Name           string
	ProgramCounter string
	StackPointer   string
	AddressSize    ir.OperandSize
	Endianness     Endianness

	// Flags are the single-bit condition registers.
	Flags []string

	// Special are architecture registers with a fixed meaning that are
	// neither flags nor general purpose, such as the x86 direction flag.
	Special []string

	registers map[string]Register
}

func newPolicy(name string) *Policy {
	return &Policy{Name: name, registers: make(map[string]Register)}
}

func (p *Policy) add(name string, size ir.OperandSize) {
	p.registers[name] = Register{Name: name, Size: size}
}

func (p *Policy) view(name, parent string, size ir.OperandSize, offset uint) {
	p.registers[name] = Register{Name: name, Size: size, Parent: parent, Offset: offset}
}

func (p *Policy) alias(name, parent string) {
	r := p.registers[parent]
	p.view(name, parent, r.Size, 0)
}

func (p *Policy) flag(names ...string) {
	for _, n := range names {
		p.add(n, ir.Byte)
		p.Flags = append(p.Flags, n)
	}
}

// Register looks up a register or register view by name.
func (p *Policy) Register(name string) (Register, error) {
	r, ok := p.registers[name]
	if !ok {
		return Register{}, fmt.Errorf("%w %q on %s", ErrUnknownRegister, name, p.Name)
	}

	return r, nil
}

// Resolve follows views down to the architecture register that holds them.
// It returns the register, its parent and the bit offset inside the parent.
func (p *Policy) Resolve(name string) (Register, Register, error) {
	r, err := p.Register(name)
	if err != nil {
		return Register{}, Register{}, err
	}

	base := r
	offset := uint(0)
	for base.IsView() {
		offset += base.Offset
		base, err = p.Register(base.Parent)
		if err != nil {
			return Register{}, Register{}, err
		}
	}

	r.Offset = offset

	return r, base, nil
}

// IsNative reports whether name is an architecture register that the
// interpreter tracks, as opposed to a view.
func (p *Policy) IsNative(name string) bool {
	r, ok := p.registers[name]
	return ok && !r.IsView()
}

// IsFlag reports whether name is a flag register.
func (p *Policy) IsFlag(name string) bool {
	for _, f := range p.Flags {
		if f == name {
			return true
		}
	}

	return false
}

// NativeRegisters lists the architecture registers in name order.
func (p *Policy) NativeRegisters() []string {
	var names []string
	for name, r := range p.registers {
		if !r.IsView() {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names
}

// ProgramCounterSize is the size of the program counter register.
func (p *Policy) ProgramCounterSize() ir.OperandSize {
	return p.registers[p.ProgramCounter].Size
}

var policies = map[string]*Policy{}

func register(p *Policy) *Policy {
	policies[p.Name] = p
	return p
}

// Lookup returns the policy for an architecture tag.
func Lookup(tag string) (*Policy, error) {
	p, ok := policies[tag]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownArchitecture, tag)
	}

	return p, nil
}

// Tags lists the known architecture tags.
func Tags() []string {
	tags := make([]string, 0, len(policies))
	for t := range policies {
		tags = append(tags, t)
	}

	sort.Strings(tags)

	return tags
}
