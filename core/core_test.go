package core_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/core"
	"github.com/samghub/binnavi/ir"
)

var _ = Describe("Core", func() {
	var (
		engine sim.Engine
		c      *core.Core
	)

	program := core.ProgramFromSequence([]ir.Instruction{
		at(0x100, 0, ir.Str, imm(3, ir.Qword), ir.None, reg("rcx", ir.Qword)),
		at(0x104, 0, ir.Add, reg("rax", ir.Qword), reg("rcx", ir.Qword), reg("rax", ir.Qword)),
		at(0x104, 1, ir.Sub, reg("rcx", ir.Qword), imm(1, ir.Qword), reg("rcx", ir.Qword)),
		at(0x104, 2, ir.Jcc, reg("rcx", ir.Qword), ir.None, ir.At(0x104, 0)),
		at(0x108, 0, ir.Stm, reg("rax", ir.Qword), ir.None, imm(0x2000, ir.Qword)),
	})

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		c = core.MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithArchitecture(arch.X64).
			BuildCore("Core")
		Expect(c.Interpreter().SetRegisterUint64("rax", 0, ir.Qword)).To(Succeed())
	})

	It("should execute one IR instruction per cycle", func() {
		Expect(c.MapProgram(program, 0x100)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		Expect(c.Err()).NotTo(HaveOccurred())
		Expect(c.Interpreter().Halted()).To(Equal(core.EndOfProgram))
		Expect(c.Interpreter().Steps()).To(Equal(11))

		v, err := c.Interpreter().Memory().Load(0x2000, ir.Qword)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Uint64()).To(Equal(uint64(6)))
	})

	It("should match a direct run", func() {
		Expect(c.MapProgram(program, 0x100)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		direct := core.MakeBuilder().WithArchitecture(arch.X64).Build()
		Expect(direct.SetRegisterUint64("rax", 0, ir.Qword)).To(Succeed())
		s, err := direct.Interpret(program, 0x100)
		Expect(err).NotTo(HaveOccurred())

		Expect(c.Interpreter().State().Fingerprint()).To(Equal(s.Fingerprint()))
	})

	It("should stop ticking on a fault", func() {
		faulty := core.ProgramFromSequence([]ir.Instruction{
			at(0x100, 0, ir.Div, imm(1, ir.Qword), imm(0, ir.Qword), reg("rax", ir.Qword)),
			at(0x104, 0, ir.Nop, ir.None, ir.None, ir.None),
		})

		Expect(c.MapProgram(faulty, 0x100)).To(Succeed())
		Expect(engine.Run()).To(Succeed())
		Expect(c.Err()).To(MatchError(core.ErrDivisionByZero))
		Expect(c.Interpreter().Halted()).To(Equal(core.Faulted))
	})

	It("should print the state", func() {
		Expect(c.MapProgram(program, 0x100)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		var buf bytes.Buffer
		core.PrintState(&buf, c.Interpreter().State())
		Expect(buf.String()).To(ContainSubstring("rax"))
		Expect(buf.String()).To(ContainSubstring("0x6"))
		Expect(buf.String()).To(ContainSubstring("0000000000002000"))
	})
})
