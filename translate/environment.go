package translate

import (
	"fmt"
	"strings"

	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
)

// Environment hands out temporary register names and IR positions for the
// translation of one native instruction. Use a fresh or reset environment for
// every instruction; an environment must not be shared between goroutines.
type Environment struct {
	nextTemporary int
	nextPosition  uint16
}

// NewEnvironment creates an empty environment.
func NewEnvironment() *Environment {
	return &Environment{}
}

// NextTemporary returns a temporary name unused so far in this translation.
func (e *Environment) NextTemporary() string {
	name := fmt.Sprintf("t%d", e.nextTemporary)
	e.nextTemporary++

	return name
}

// NextPosition returns the next IR position.
func (e *Environment) NextPosition() uint16 {
	p := e.nextPosition
	e.nextPosition++

	return p
}

// Reset prepares the environment for another native instruction.
func (e *Environment) Reset() {
	e.nextTemporary = 0
	e.nextPosition = 0
}

var prefixSizes = map[string]ir.OperandSize{
	"byte":    ir.Byte,
	"word":    ir.Word,
	"dword":   ir.Dword,
	"qword":   ir.Qword,
	"oword":   ir.Oword,
	"xmmword": ir.Oword,
	"b1":      ir.Byte,
	"b2":      ir.Word,
	"b4":      ir.Dword,
	"b8":      ir.Qword,
	"b16":     ir.Oword,
}

// SizeFromPrefix maps a size prefix such as "qword" or "b4" to an IR size.
func SizeFromPrefix(prefix string) (ir.OperandSize, error) {
	s, ok := prefixSizes[strings.ToLower(prefix)]
	if !ok {
		return ir.Empty, fmt.Errorf("unknown size prefix %q", prefix)
	}

	return s, nil
}

// OperandSize returns the size of an operand tree, taken from the nearest
// size prefix at or above the root.
func (e *Environment) OperandSize(node *instr.Node) (ir.OperandSize, error) {
	if node == nil {
		return ir.Empty, fmt.Errorf("missing operand")
	}

	if node.Type != instr.SizePrefix {
		return ir.Empty, fmt.Errorf("operand %q has no size prefix", node.String())
	}

	return SizeFromPrefix(node.Value)
}

// Flatten lists the nodes of a tree in pre-order.
func Flatten(node *instr.Node) []*instr.Node {
	if node == nil {
		return nil
	}

	out := []*instr.Node{node}
	for _, c := range node.Children {
		out = append(out, Flatten(c)...)
	}

	return out
}

// Unwrap strips size prefixes from the top of a tree.
func Unwrap(node *instr.Node) *instr.Node {
	for node != nil && node.Type == instr.SizePrefix {
		node = node.Child(0)
	}

	return node
}
