package ir

// Opcode represents the operation code for an IR instruction.
type Opcode string

// The closed opcode catalogue.
const (
	Add   Opcode = "add"
	Sub   Opcode = "sub"
	Mul   Opcode = "mul"
	Div   Opcode = "div"
	Mod   Opcode = "mod"
	And   Opcode = "and"
	Or    Opcode = "or"
	Xor   Opcode = "xor"
	Not   Opcode = "not"
	Bsh   Opcode = "bsh"
	Bisz  Opcode = "bisz"
	Str   Opcode = "str"
	Ldm   Opcode = "ldm"
	Stm   Opcode = "stm"
	Jcc   Opcode = "jcc"
	Nop   Opcode = "nop"
	Undef Opcode = "undef"
	Unkn  Opcode = "unkn"
)

// Role describes how an opcode uses one operand slot.
type Role int

// Slot roles.
const (
	RoleNone   Role = iota // slot must be empty
	RoleInput              // any non-empty value operand
	RoleOutput             // register or temporary written by the instruction
	RoleTarget             // jcc target
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleInput:
		return "input"
	case RoleOutput:
		return "output"
	case RoleTarget:
		return "target"
	}

	return "unknown"
}

// Contract is the arity and slot-role contract of one opcode.
type Contract struct {
	Opcode Opcode
	Roles  [3]Role
}

// Arity returns the number of non-empty slots.
func (c Contract) Arity() int {
	n := 0
	for _, r := range c.Roles {
		if r != RoleNone {
			n++
		}
	}

	return n
}

var (
	binary = [3]Role{RoleInput, RoleInput, RoleOutput}
	unary  = [3]Role{RoleInput, RoleNone, RoleOutput}
)

var catalogue = map[Opcode]Contract{
	Add:   {Add, binary},
	Sub:   {Sub, binary},
	Mul:   {Mul, binary},
	Div:   {Div, binary},
	Mod:   {Mod, binary},
	And:   {And, binary},
	Or:    {Or, binary},
	Xor:   {Xor, binary},
	Bsh:   {Bsh, binary},
	Not:   {Not, unary},
	Bisz:  {Bisz, unary},
	Str:   {Str, unary},
	Ldm:   {Ldm, unary},
	Stm:   {Stm, [3]Role{RoleInput, RoleNone, RoleInput}},
	Jcc:   {Jcc, [3]Role{RoleInput, RoleNone, RoleTarget}},
	Nop:   {Nop, [3]Role{}},
	Undef: {Undef, [3]Role{RoleNone, RoleNone, RoleOutput}},
	Unkn:  {Unkn, [3]Role{}},
}

// Lookup returns the contract of an opcode.
func Lookup(op Opcode) (Contract, bool) {
	c, ok := catalogue[op]
	return c, ok
}

// Opcodes lists the whole catalogue in a fixed order.
func Opcodes() []Opcode {
	return []Opcode{
		Add, Sub, Mul, Div, Mod,
		And, Or, Xor, Not, Bsh, Bisz,
		Str, Ldm, Stm, Jcc,
		Nop, Undef, Unkn,
	}
}
