package arch

import "github.com/samghub/binnavi/ir"

// X86 and X64 name the general purpose registers after their widest view.
var (
	X86 = register(newX86())
	X64 = register(newX64())
)

var x86Flags = []string{"CF", "PF", "AF", "ZF", "SF", "OF"}

var legacyRegisters = []string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di"}

func addLegacyViews(p *Policy, parent func(string) string) {
	for _, r := range legacyRegisters {
		full := parent(r)
		p.view(r, full, ir.Word, 0)
	}

	for _, r := range []string{"ax", "cx", "dx", "bx"} {
		full := parent(r)
		p.view(r[:1]+"l", full, ir.Byte, 0)
		p.view(r[:1]+"h", full, ir.Byte, 8)
	}
}

func newX86() *Policy {
	p := newPolicy("x86")
	p.ProgramCounter = "eip"
	p.StackPointer = "esp"
	p.AddressSize = ir.Dword
	p.Endianness = LittleEndian

	for _, r := range legacyRegisters {
		p.add("e"+r, ir.Dword)
	}
	p.add("eip", ir.Dword)

	addLegacyViews(p, func(r string) string { return "e" + r })

	p.flag(x86Flags...)
	p.add("DF", ir.Byte)
	p.Special = []string{"DF"}

	return p
}

func newX64() *Policy {
	p := newPolicy("x64")
	p.ProgramCounter = "rip"
	p.StackPointer = "rsp"
	p.AddressSize = ir.Qword
	p.Endianness = LittleEndian

	for _, r := range legacyRegisters {
		full := "r" + r
		p.add(full, ir.Qword)
		p.registers["e"+r] = Register{
			Name: "e" + r, Size: ir.Dword, Parent: full, ZeroExtend: true,
		}
	}

	for _, r := range []string{"sp", "bp", "si", "di"} {
		p.view(r+"l", "r"+r, ir.Byte, 0)
	}

	for i := 8; i <= 15; i++ {
		full := "r" + itoa(i)
		p.add(full, ir.Qword)
		p.registers[full+"d"] = Register{
			Name: full + "d", Size: ir.Dword, Parent: full, ZeroExtend: true,
		}
		p.view(full+"w", full, ir.Word, 0)
		p.view(full+"b", full, ir.Byte, 0)
	}

	p.add("rip", ir.Qword)

	addLegacyViews(p, func(r string) string { return "r" + r })

	p.flag(x86Flags...)
	p.add("DF", ir.Byte)
	p.Special = []string{"DF"}

	return p
}

func itoa(i int) string {
	if i < 10 {
		return string(rune('0' + i))
	}

	return itoa(i/10) + string(rune('0'+i%10))
}
