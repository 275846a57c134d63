package instr

import (
	"fmt"
	"math/big"
	"strings"
)

// ExprType tags a node of a native operand tree.
type ExprType int

// Operand tree node kinds.
const (
	Register ExprType = iota
	ImmediateInteger
	SizePrefix
	MemoryDereference
	Operator
)

func (t ExprType) String() string {
	switch t {
	case Register:
		return "register"
	case ImmediateInteger:
		return "immediate"
	case SizePrefix:
		return "size"
	case MemoryDereference:
		return "memory"
	case Operator:
		return "operator"
	}

	return "unknown"
}

// Node is one node of a native operand tree. Trees are built once by a
// disassembler front end and only read afterwards.
type Node struct {
	Type     ExprType
	Value    string
	Children []*Node
}

// Reg makes a register leaf.
func Reg(name string) *Node {
	return &Node{Type: Register, Value: name}
}

// Imm makes an immediate leaf from a signed value.
func Imm(v int64) *Node {
	return &Node{Type: ImmediateInteger, Value: fmt.Sprintf("%d", v)}
}

// Hex makes an immediate leaf from an unsigned value.
func Hex(v uint64) *Node {
	return &Node{Type: ImmediateInteger, Value: fmt.Sprintf("0x%x", v)}
}

// Sized wraps a node into a size prefix such as "dword" or "b4".
func Sized(size string, child *Node) *Node {
	return &Node{Type: SizePrefix, Value: size, Children: []*Node{child}}
}

// Mem wraps an address expression into a memory dereference.
func Mem(addr *Node) *Node {
	return &Node{Type: MemoryDereference, Value: "[", Children: []*Node{addr}}
}

// Op makes an operator node ("+", "*", "-", "lsl", ...).
func Op(op string, children ...*Node) *Node {
	return &Node{Type: Operator, Value: op, Children: children}
}

// Child returns the i-th child or nil.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}

	return n.Children[i]
}

// Integer parses an immediate leaf. Decimal, 0x-prefixed hex and negative
// values are accepted, with an optional leading '#'.
func (n *Node) Integer() (*big.Int, error) {
	if n == nil || n.Type != ImmediateInteger {
		return nil, fmt.Errorf("node is not an immediate")
	}

	text := strings.TrimPrefix(strings.TrimSpace(n.Value), "#")
	neg := false
	if strings.HasPrefix(text, "-") {
		neg = true
		text = text[1:]
	}

	base := 10
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "0x") {
		base = 16
		text = text[2:]
	}

	v, ok := new(big.Int).SetString(text, base)
	if !ok {
		return nil, fmt.Errorf("malformed immediate %q", n.Value)
	}

	if neg {
		v.Neg(v)
	}

	return v, nil
}

// String renders the tree in assembler-like syntax.
func (n *Node) String() string {
	if n == nil {
		return ""
	}

	switch n.Type {
	case SizePrefix:
		return n.Value + " " + n.Child(0).String()
	case MemoryDereference:
		return "[" + n.Child(0).String() + "]"
	case Operator:
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = c.String()
		}

		if len(parts) == 1 {
			return n.Value + parts[0]
		}

		return strings.Join(parts, " "+n.Value+" ")
	}

	return n.Value
}
