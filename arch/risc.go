package arch

import "github.com/samghub/binnavi/ir"

// RISC architectures handled by the lifter.
var (
	MIPS    = register(newMIPS())
	ARM     = register(newARM())
	PowerPC = register(newPowerPC())
)

var mipsNames = []string{
	"$zero", "$at", "$v0", "$v1", "$a0", "$a1", "$a2", "$a3",
	"$t0", "$t1", "$t2", "$t3", "$t4", "$t5", "$t6", "$t7",
	"$s0", "$s1", "$s2", "$s3", "$s4", "$s5", "$s6", "$s7",
	"$t8", "$t9", "$k0", "$k1", "$gp", "$sp", "$fp", "$ra",
}

// MIPSZero is the hard-wired zero register.
const MIPSZero = "$zero"

func newMIPS() *Policy {
	p := newPolicy("mips")
	p.ProgramCounter = "$pc"
	p.StackPointer = "$sp"
	p.AddressSize = ir.Dword
	p.Endianness = BigEndian

	for _, r := range mipsNames {
		p.add(r, ir.Dword)
	}

	for i, r := range mipsNames {
		p.alias("$"+itoa(i), r)
	}
	p.alias("$s8", "$fp")

	p.add("$pc", ir.Dword)
	p.add("$hi", ir.Dword)
	p.add("$lo", ir.Dword)
	p.Special = []string{"$hi", "$lo"}

	return p
}

func newARM() *Policy {
	p := newPolicy("arm")
	p.ProgramCounter = "pc"
	p.StackPointer = "sp"
	p.AddressSize = ir.Dword
	p.Endianness = LittleEndian

	for i := 0; i <= 12; i++ {
		p.add("r"+itoa(i), ir.Dword)
	}
	p.add("sp", ir.Dword)
	p.add("lr", ir.Dword)
	p.add("pc", ir.Dword)

	p.alias("r13", "sp")
	p.alias("r14", "lr")
	p.alias("r15", "pc")
	p.alias("fp", "r11")
	p.alias("ip", "r12")

	p.flag("N", "Z", "C", "V")

	return p
}

func newPowerPC() *Policy {
	p := newPolicy("ppc")
	p.ProgramCounter = "pc"
	p.StackPointer = "r1"
	p.AddressSize = ir.Dword
	p.Endianness = BigEndian

	for i := 0; i <= 31; i++ {
		p.add("r"+itoa(i), ir.Dword)
	}
	p.alias("sp", "r1")

	p.add("pc", ir.Dword)
	p.add("lr", ir.Dword)
	p.add("ctr", ir.Dword)
	p.Special = []string{"lr", "ctr"}

	for i := 0; i <= 7; i++ {
		cr := "cr" + itoa(i)
		p.flag(cr+"lt", cr+"gt", cr+"eq", cr+"so")
	}
	p.flag("xerso", "xerov", "xerca")

	return p
}
