// Package verify provides debugging tools for lifted IR.
//
// Lint runs static checks over the IR sequence produced for one or more
// native instructions:
//
//   - STRUCT checks: every opcode is in the catalogue, every slot holds an
//     operand of the kind its role allows, sizes are in the closed set
//   - NAME checks: registers exist on the architecture with their native
//     size, temporaries do not shadow register names
//   - FLOW checks: positions are unique and increasing per native address,
//     intra-address jump targets exist, temporaries are written before they
//     are read inside one native address
//
// The lifting driver turns lint issues into internal translation errors, so a
// translator producing malformed IR is caught at the instruction that exposed
// it rather than when the interpreter trips over it.
//
// # Usage Example
//
//	issues := verify.Lint(arch.X86, seq)
//	for _, issue := range issues {
//	    log.Printf("[%s] %s: %s", issue.Type, issue.Where(), issue.Message)
//	}
//
// Report collects the outcome of a batch lift and renders it as tables.
package verify

import (
	"fmt"

	"github.com/samghub/binnavi/ir"
)

// IssueType categorizes lint issues
type IssueType string

const (
	IssueStruct IssueType = "STRUCT" // Opcode or slot contract violated
	IssueName   IssueType = "NAME"   // Unknown or mis-sized register, shadowing temporary
	IssueFlow   IssueType = "FLOW"   // Positions, jump targets, temporary lifetimes
)

// Issue represents a single lint issue
type Issue struct {
	Type     IssueType
	Address  uint64
	Position uint16
	Slot     int // Operand slot or -1
	Message  string
	Details  map[string]interface{}
}

// Where formats the IR program counter and slot of the issue.
func (i Issue) Where() string {
	at := ir.SubAddress{Address: i.Address, Position: i.Position}.String()
	if i.Slot < 0 {
		return at
	}

	return fmt.Sprintf("%s slot %d", at, i.Slot)
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Type, i.Where(), i.Message)
}
