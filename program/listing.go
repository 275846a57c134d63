// Package program loads native instruction listings from YAML, runs them
// through the lifter and the interpreter, and compares the final state with
// the expectations written next to the code.
//
// A listing looks like this:
//
//	arch: x86
//	entry: 0x1000
//	registers:
//	  ebx: 0x8000
//	  ZF: {value: 0, size: 1}
//	memory:
//	  - {address: 0x8004, value: 0x2A, size: 4}
//	instructions:
//	  - address: 0x1000
//	    length: 3
//	    mnemonic: mov
//	    operands:
//	      - eax
//	      - {size: dword, mem: {op: "+", args: [ebx, 4]}}
//	expect:
//	  halt: end of program
//	  registers:
//	    eax: 0x2A
//
// Scalar operands are immediates when they parse as integers and registers
// otherwise. Mapping operands use the keys size, reg, imm, mem, op and args.
package program

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/samghub/binnavi/instr"
)

// Listing is a native program with its initial state and expectations.
type Listing struct {
	Arch         string           `yaml:"arch"`
	Endianness   string           `yaml:"endianness"`
	Entry        uint64           `yaml:"entry"`
	MaxSteps     int              `yaml:"max_steps"`
	Policy       string           `yaml:"policy"`
	Registers    map[string]Value `yaml:"registers"`
	Memory       []Cell           `yaml:"memory"`
	Instructions []Instruction    `yaml:"instructions"`
	Expect       Expectation      `yaml:"expect"`
}

// Value is a register value with an optional size in bytes. A zero size
// means the size of the register.
type Value struct {
	Value uint64 `yaml:"value"`
	Size  int    `yaml:"size"`
}

// UnmarshalYAML accepts a bare integer or a {value, size} mapping.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&v.Value)
	}

	type plain Value

	return node.Decode((*plain)(v))
}

// Cell is a memory value of Size bytes at Address.
type Cell struct {
	Address uint64 `yaml:"address"`
	Value   uint64 `yaml:"value"`
	Size    int    `yaml:"size"`
}

// Instruction is one native instruction of a listing.
type Instruction struct {
	Address   uint64       `yaml:"address"`
	Length    int          `yaml:"length"`
	Mnemonic  string       `yaml:"mnemonic"`
	Operands  []Operand    `yaml:"operands"`
	DelaySlot *Instruction `yaml:"delay_slot"`
}

// Expectation lists the state a run must end in. Registers and memory not
// named are not checked.
type Expectation struct {
	Halt      string           `yaml:"halt"`
	Registers map[string]Value `yaml:"registers"`
	Undefined []string         `yaml:"undefined"`
	Memory    []Cell           `yaml:"memory"`
}

// Operand wraps a native operand tree.
type Operand struct {
	*instr.Node
}

type operandSpec struct {
	Size string    `yaml:"size"`
	Reg  string    `yaml:"reg"`
	Imm  string    `yaml:"imm"`
	Mem  *Operand  `yaml:"mem"`
	Op   string    `yaml:"op"`
	Args []Operand `yaml:"args"`
}

var integer = regexp.MustCompile(`^#?-?(0[xX][0-9a-fA-F]+|[0-9]+)$`)

// UnmarshalYAML decodes a scalar or mapping operand.
func (o *Operand) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		o.Node = scalar(node.Value)
		return nil
	}

	var spec operandSpec
	if err := node.Decode(&spec); err != nil {
		return err
	}

	var n *instr.Node

	switch {
	case spec.Reg != "":
		n = instr.Reg(spec.Reg)
	case spec.Imm != "":
		if !integer.MatchString(spec.Imm) {
			return fmt.Errorf("line %d: %q is not an integer", node.Line, spec.Imm)
		}
		n = &instr.Node{Type: instr.ImmediateInteger, Value: spec.Imm}
	case spec.Mem != nil:
		n = instr.Mem(spec.Mem.Node)
	case spec.Op != "":
		args := make([]*instr.Node, len(spec.Args))
		for i, a := range spec.Args {
			args[i] = a.Node
		}
		n = instr.Op(spec.Op, args...)
	case spec.Size == "":
		return fmt.Errorf("line %d: empty operand", node.Line)
	}

	if spec.Size != "" {
		if n == nil {
			return fmt.Errorf("line %d: size %q without an operand", node.Line, spec.Size)
		}
		n = instr.Sized(spec.Size, n)
	}

	o.Node = n

	return nil
}

func scalar(s string) *instr.Node {
	if integer.MatchString(s) {
		return &instr.Node{Type: instr.ImmediateInteger, Value: s}
	}

	return instr.Reg(s)
}

// Native converts the listing to instructions for the lifter.
func (l *Listing) Native() []*instr.Instruction {
	out := make([]*instr.Instruction, len(l.Instructions))
	for i := range l.Instructions {
		out[i] = l.Instructions[i].native()
	}

	return out
}

func (i *Instruction) native() *instr.Instruction {
	ops := make([]*instr.Node, len(i.Operands))
	for j, o := range i.Operands {
		ops[j] = o.Node
	}

	inst := instr.New(i.Address, i.Mnemonic, ops...)
	if i.Length > 0 {
		inst = inst.WithLength(i.Length)
	}

	if i.DelaySlot != nil {
		inst = inst.WithDelaySlot(i.DelaySlot.native())
	}

	return inst
}

// Parse decodes a listing.
func Parse(data []byte) (*Listing, error) {
	var l Listing
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, err
	}

	if l.Arch == "" {
		return nil, fmt.Errorf("listing has no arch")
	}

	if len(l.Instructions) == 0 {
		return nil, fmt.Errorf("listing has no instructions")
	}

	if l.Entry == 0 {
		l.Entry = l.Instructions[0].Address
	}

	return &l, nil
}

// LoadFile reads and decodes a listing file.
func LoadFile(path string) (*Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return l, nil
}
