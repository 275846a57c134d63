package ppc_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/core"
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
	"github.com/samghub/binnavi/translate/ppc"
)

func r(name string) *instr.Node {
	return instr.Sized("dword", instr.Reg(name))
}

func imm(v int64) *instr.Node {
	return instr.Sized("dword", instr.Imm(v))
}

func disp(offset int64, base string) *instr.Node {
	return instr.Sized("dword", instr.Mem(instr.Op("+", instr.Reg(base), instr.Imm(offset))))
}

func lift(insts ...*instr.Instruction) core.Program {
	env := translate.NewEnvironment()
	program := core.Program{}

	for _, inst := range insts {
		env.Reset()
		seq, err := ppc.Translators.Translate(env, inst)
		Expect(err).NotTo(HaveOccurred(), inst.String())
		program[inst.Address] = seq
	}

	return program
}

var _ = Describe("PowerPC", func() {
	var interp *core.Interpreter

	set := func(name string, v uint64) {
		size := ir.Dword
		if arch.PowerPC.IsFlag(name) {
			size = ir.Byte
		}
		Expect(interp.SetRegisterUint64(name, v, size)).To(Succeed())
	}

	run := func(insts ...*instr.Instruction) *core.State {
		s, err := interp.Interpret(lift(insts...), insts[0].Address)
		Expect(err).NotTo(HaveOccurred())

		return s
	}

	BeforeEach(func() {
		interp = core.MakeBuilder().WithArchitecture(arch.PowerPC).WithMaxSteps(1000).Build()
		set("xerso", 0)
	})

	It("should build a constant with lis and ori", func() {
		s := run(
			instr.New(0x1000, "lis", r("r3"), imm(0x1234)),
			instr.New(0x1004, "ori", r("r3"), r("r3"), imm(0x5678)),
		)

		Expect(s.Uint64("r3")).To(Equal(uint64(0x12345678)))
	})

	It("should read r0 as zero in addi", func() {
		set("r0", 99)

		s := run(
			instr.New(0x1000, "addi", r("r3"), r("r0"), imm(5)),
			instr.New(0x1004, "li", r("r4"), imm(-1)),
		)

		Expect(s.Uint64("r3")).To(Equal(uint64(5)))
		Expect(s.Uint64("r4")).To(Equal(uint64(0xFFFFFFFF)))
	})

	It("should subtract from the second source", func() {
		set("r4", 3)
		set("r5", 10)

		s := run(instr.New(0x1000, "subf", r("r3"), r("r4"), r("r5")))

		Expect(s.Uint64("r3")).To(Equal(uint64(7)))
	})

	It("should record a zero result in cr0", func() {
		set("r4", 0xFFFFFFFF)
		set("r5", 1)

		s := run(instr.New(0x1000, "add.", r("r3"), r("r4"), r("r5")))

		Expect(s.Uint64("r3")).To(BeZero())
		Expect(s.Uint64("cr0eq")).To(Equal(uint64(1)))
		Expect(s.Uint64("cr0lt")).To(BeZero())
		Expect(s.Uint64("cr0gt")).To(BeZero())
		Expect(s.Uint64("cr0so")).To(BeZero())
	})

	It("should leave cr0 alone without the record form", func() {
		set("r4", 1)
		set("r5", 1)

		s := run(instr.New(0x1000, "add", r("r3"), r("r4"), r("r5")))

		Expect(s.Uint64("r3")).To(Equal(uint64(2)))
		Expect(s.IsDefined("cr0eq")).To(BeFalse())
	})

	It("should record a negative result", func() {
		set("r4", 5)
		set("xerso", 1)

		s := run(instr.New(0x1000, "neg.", r("r3"), r("r4")))

		Expect(s.Uint64("r3")).To(Equal(uint64(0xFFFFFFFB)))
		Expect(s.Uint64("cr0lt")).To(Equal(uint64(1)))
		Expect(s.Uint64("cr0so")).To(Equal(uint64(1)))
	})

	It("should compare signed and unsigned into different fields", func() {
		set("r3", 0xFFFFFFFF)
		set("r4", 1)

		s := run(
			instr.New(0x1000, "cmpw", r("cr7"), r("r3"), r("r4")),
			instr.New(0x1004, "cmplw", r("r3"), r("r4")),
		)

		Expect(s.Uint64("cr7lt")).To(Equal(uint64(1)))
		Expect(s.Uint64("cr7gt")).To(BeZero())
		Expect(s.Uint64("cr0lt")).To(BeZero())
		Expect(s.Uint64("cr0gt")).To(Equal(uint64(1)))
	})

	DescribeTable("conditional branches after cmpwi",
		func(mnemonic string, value uint64, taken bool) {
			set("r3", value)

			s := run(
				instr.New(0x1000, "cmpwi", r("r3"), imm(5)),
				instr.New(0x1004, mnemonic, imm(0x2000)),
			)

			if taken {
				Expect(interp.Halted()).To(Equal(core.LeftProgram))
				Expect(s.Uint64("pc")).To(Equal(uint64(0x2000)))
			} else {
				Expect(interp.Halted()).To(Equal(core.EndOfProgram))
				Expect(s.Uint64("pc")).To(Equal(uint64(0x1004)))
			}
		},
		Entry("beq taken", "beq", uint64(5), true),
		Entry("beq not taken", "beq", uint64(4), false),
		Entry("bne taken", "bne", uint64(4), true),
		Entry("blt taken", "blt", uint64(0xFFFFFFFF), true),
		Entry("bgt not taken", "bgt", uint64(5), false),
		Entry("ble taken", "ble", uint64(5), true),
		Entry("bge not taken", "bge", uint64(4), false),
	)

	It("should branch on a named field", func() {
		set("r3", 1)
		set("r4", 1)

		s := run(
			instr.New(0x1000, "cmpw", r("cr2"), r("r3"), r("r4")),
			instr.New(0x1004, "beq", r("cr2"), imm(0x3000)),
		)

		Expect(s.Uint64("pc")).To(Equal(uint64(0x3000)))
	})

	It("should loop with bdnz", func() {
		set("ctr", 3)
		set("r3", 0)

		s := run(
			instr.New(0x1000, "addi", r("r3"), r("r3"), imm(2)),
			instr.New(0x1004, "bdnz", imm(0x1000)),
		)

		Expect(s.Uint64("r3")).To(Equal(uint64(6)))
		Expect(s.Uint64("ctr")).To(BeZero())
		Expect(interp.Halted()).To(Equal(core.EndOfProgram))
	})

	It("should link on bl", func() {
		s := run(instr.New(0x1000, "bl", imm(0x2000)))

		Expect(s.Uint64("lr")).To(Equal(uint64(0x1004)))
		Expect(s.Uint64("pc")).To(Equal(uint64(0x2000)))
	})

	It("should return through lr", func() {
		set("lr", 0x3000)

		s := run(instr.New(0x1000, "blr"))

		Expect(s.Uint64("pc")).To(Equal(uint64(0x3000)))
	})

	It("should call through ctr", func() {
		set("ctr", 0x5000)

		s := run(instr.New(0x1000, "bctrl"))

		Expect(s.Uint64("lr")).To(Equal(uint64(0x1004)))
		Expect(s.Uint64("pc")).To(Equal(uint64(0x5000)))
	})

	It("should move through the special registers", func() {
		set("r3", 0x4242)

		s := run(
			instr.New(0x1000, "mtctr", r("r3")),
			instr.New(0x1004, "mfctr", r("r4")),
		)

		Expect(s.Uint64("ctr")).To(Equal(uint64(0x4242)))
		Expect(s.Uint64("r4")).To(Equal(uint64(0x4242)))
	})

	It("should store big-endian", func() {
		set("r1", 0x8000)
		set("r3", 0x11223344)

		s := run(
			instr.New(0x1000, "stw", r("r3"), disp(8, "r1")),
			instr.New(0x1004, "lbz", r("r4"), disp(8, "r1")),
			instr.New(0x1008, "lhz", r("r5"), disp(10, "r1")),
		)

		Expect(s.Uint64("r4")).To(Equal(uint64(0x11)))
		Expect(s.Uint64("r5")).To(Equal(uint64(0x3344)))
		Expect(s.Memory.Size()).To(Equal(4))
	})

	It("should address from zero when the base is r0", func() {
		interp.Memory().StoreUint64(0x100, 0xDEADBEEF, ir.Dword)

		s := run(instr.New(0x1000, "lwz", r("r3"), disp(0x100, "r0")))

		Expect(s.Uint64("r3")).To(Equal(uint64(0xDEADBEEF)))
	})

	DescribeTable("word shifts",
		func(mnemonic string, x, n, expected uint64) {
			set("r4", x)
			set("r5", n)

			s := run(instr.New(0x1000, mnemonic, r("r3"), r("r4"), r("r5")))

			Expect(s.Uint64("r3")).To(Equal(expected))
		},
		Entry("slw by 31", "slw", uint64(1), uint64(31), uint64(0x80000000)),
		Entry("slw by 32", "slw", uint64(1), uint64(32), uint64(0)),
		Entry("srw by 31", "srw", uint64(0x80000000), uint64(31), uint64(1)),
		Entry("srw by 40", "srw", uint64(0x80000000), uint64(40), uint64(0)),
	)

	It("should keep the low word of a product", func() {
		set("r4", 0x10000)
		set("r5", 0x10001)

		s := run(instr.New(0x1000, "mullw", r("r3"), r("r4"), r("r5")))

		Expect(s.Uint64("r3")).To(Equal(uint64(0x10000)))
	})

	It("should divide unsigned", func() {
		set("r4", 10)
		set("r5", 3)

		s := run(instr.New(0x1000, "divwu", r("r3"), r("r4"), r("r5")))

		Expect(s.Uint64("r3")).To(Equal(uint64(3)))
	})

	It("should leave the quotient undefined for a zero divisor", func() {
		set("r3", 1)
		set("r4", 10)
		set("r5", 0)

		s := run(instr.New(0x1000, "divwu", r("r3"), r("r4"), r("r5")))

		Expect(s.IsDefined("r3")).To(BeFalse())
	})

	It("should hand system calls to the interpreter policy", func() {
		interp = core.MakeBuilder().WithArchitecture(arch.PowerPC).WithPolicy(core.HaltPolicy{}).Build()

		_, err := interp.Interpret(lift(instr.New(0x1000, "sc")), 0x1000)

		Expect(err).NotTo(HaveOccurred())
		Expect(interp.Halted()).To(Equal(core.PolicyHalt))
	})

	It("should refuse a register branch target", func() {
		_, err := ppc.Translators.Translate(translate.NewEnvironment(), instr.New(0x1000, "b", r("r3")))

		var unsupported *translate.UnsupportedInstructionError
		Expect(errors.As(err, &unsupported)).To(BeTrue())
	})
})
