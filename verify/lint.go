package verify

import (
	"fmt"

	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/ir"
)

// Lint performs static checks on an IR sequence lifted for policy. The
// sequence may span several native addresses. Returns the issues found, or an
// empty list.
func Lint(policy *arch.Policy, seq []ir.Instruction) []Issue {
	var issues []Issue

	for _, inst := range seq {
		issues = append(issues, checkContract(policy, inst)...)
	}

	issues = append(issues, checkFlow(seq)...)

	return issues
}

func issueAt(t IssueType, inst ir.Instruction, slot int, format string, args ...interface{}) Issue {
	return Issue{
		Type:     t,
		Address:  inst.Address,
		Position: inst.Position,
		Slot:     slot,
		Message:  fmt.Sprintf(format, args...),
		Details:  map[string]interface{}{"opcode": string(inst.Opcode)},
	}
}

// checkContract validates one instruction against its catalogue entry.
func checkContract(policy *arch.Policy, inst ir.Instruction) []Issue {
	var issues []Issue

	c, ok := ir.Lookup(inst.Opcode)
	if !ok {
		return []Issue{issueAt(IssueStruct, inst, -1, "unknown opcode %q", inst.Opcode)}
	}

	for slot, role := range c.Roles {
		o := inst.Operands[slot]

		if msg := checkRole(role, o); msg != "" {
			issues = append(issues, issueAt(IssueStruct, inst, slot, "%s", msg))
			continue
		}

		if o.IsEmpty() || o.Kind == ir.KindSubAddress {
			continue
		}

		if !o.Size.Valid() {
			issues = append(issues, issueAt(IssueStruct, inst, slot, "invalid size %d", int(o.Size)))
			continue
		}

		issues = append(issues, checkName(policy, inst, slot, o)...)
	}

	return issues
}

func checkRole(role ir.Role, o ir.Operand) string {
	switch role {
	case ir.RoleNone:
		if !o.IsEmpty() {
			return fmt.Sprintf("slot must be empty, holds %s", o)
		}
	case ir.RoleInput:
		if o.IsEmpty() || o.Kind == ir.KindSubAddress {
			return fmt.Sprintf("slot needs a value, holds %s", o.Kind)
		}
	case ir.RoleOutput:
		if !o.IsStorage() {
			return fmt.Sprintf("output must be a register or temporary, got %s", o.Kind)
		}
	case ir.RoleTarget:
		if o.IsEmpty() {
			return "jump without a target"
		}
	}

	return ""
}

func checkName(policy *arch.Policy, inst ir.Instruction, slot int, o ir.Operand) []Issue {
	switch o.Kind {
	case ir.KindRegister:
		if !policy.IsNative(o.Name) {
			return []Issue{issueAt(IssueName, inst, slot,
				"%q is not a register of %s", o.Name, policy.Name)}
		}

		r, _ := policy.Register(o.Name)
		if r.Size != o.Size {
			return []Issue{issueAt(IssueName, inst, slot,
				"register %q used as %s, is %s", o.Name, o.Size, r.Size)}
		}
	case ir.KindTemporary:
		if _, err := policy.Register(o.Name); err == nil {
			return []Issue{issueAt(IssueName, inst, slot,
				"temporary %q shadows a register", o.Name)}
		}
	}

	return nil
}

// checkFlow validates positions, intra-address targets and temporary
// lifetimes. Temporaries are dropped between native addresses, so a read must
// follow a write at the same address.
func checkFlow(seq []ir.Instruction) []Issue {
	var issues []Issue

	positions := make(map[uint64]map[uint16]bool)
	last := make(map[uint64]int)

	for _, inst := range seq {
		seen, ok := positions[inst.Address]
		if !ok {
			seen = make(map[uint16]bool)
			positions[inst.Address] = seen
			last[inst.Address] = -1
		}

		if seen[inst.Position] {
			issues = append(issues, issueAt(IssueFlow, inst, -1, "duplicate position"))
		} else if int(inst.Position) < last[inst.Address] {
			issues = append(issues, issueAt(IssueFlow, inst, -1,
				"position follows %d", last[inst.Address]))
		}

		seen[inst.Position] = true
		if int(inst.Position) > last[inst.Address] {
			last[inst.Address] = int(inst.Position)
		}
	}

	written := make(map[uint64]map[string]bool)

	for _, inst := range seq {
		if inst.Opcode == ir.Jcc {
			t := inst.Operands[2]
			if t.Kind == ir.KindSubAddress && t.Target.Address == inst.Address &&
				!positions[inst.Address][t.Target.Position] {
				issue := issueAt(IssueFlow, inst, 2, "jump to missing %s", t.Target)
				issue.Details["target"] = t.Target.String()
				issues = append(issues, issue)
			}
		}

		temps, ok := written[inst.Address]
		if !ok {
			temps = make(map[string]bool)
			written[inst.Address] = temps
		}

		c, ok := ir.Lookup(inst.Opcode)
		if !ok {
			continue
		}

		for slot, role := range c.Roles {
			o := inst.Operands[slot]
			if o.Kind != ir.KindTemporary {
				continue
			}

			if role == ir.RoleOutput {
				continue
			}

			if !temps[o.Name] {
				issues = append(issues, issueAt(IssueFlow, inst, slot,
					"temporary %q read before it is written", o.Name))
			}
		}

		if c.Roles[2] == ir.RoleOutput && inst.Operands[2].Kind == ir.KindTemporary {
			temps[inst.Operands[2].Name] = true
		}
	}

	return issues
}
