// Package x86 lifts 32-bit and 64-bit x86 instructions.
package x86

import (
	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

// Registries of the two operating modes.
var (
	X86 = translate.NewRegistry(arch.X86)
	X64 = translate.NewRegistry(arch.X64)
)

func init() {
	registerAll(X86, false)
	registerAll(X64, true)
}

func registerAll(r *translate.Registry, long bool) {
	registerData(r, long)
	registerArithmetic(r)
	registerShifts(r)
	registerControl(r, long)
	registerStrings(r, long)
}

func is64(b *translate.Builder) bool {
	return b.Policy.AddressSize == ir.Qword
}

// full returns the name of a general purpose register at the mode's width,
// given its 16-bit name ("ax", "sp", ...).
func full(b *translate.Builder, name16 string) string {
	if is64(b) {
		return "r" + name16
	}

	return "e" + name16
}

// accumulator returns the name of the accumulator view of a size.
func accumulator(size ir.OperandSize) string {
	switch size {
	case ir.Byte:
		return "al"
	case ir.Word:
		return "ax"
	case ir.Dword:
		return "eax"
	}

	return "rax"
}

// dataRegister returns the name of the high half register of mul and div.
func dataRegister(size ir.OperandSize) string {
	switch size {
	case ir.Word:
		return "dx"
	case ir.Dword:
		return "edx"
	}

	return "rdx"
}
