package mips_test

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/core"
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
	"github.com/samghub/binnavi/translate/mips"
)

func reg(name string) *instr.Node {
	return instr.Sized("b4", instr.Reg(name))
}

func imm(v int64) *instr.Node {
	return instr.Sized("b4", instr.Imm(v))
}

func mem(base string, offset int64) *instr.Node {
	return instr.Sized("b4", instr.Mem(instr.Op("+", instr.Reg(base), instr.Imm(offset))))
}

func lift(insts ...*instr.Instruction) core.Program {
	env := translate.NewEnvironment()
	program := core.Program{}

	for _, inst := range insts {
		env.Reset()
		seq, err := mips.Translators.Translate(env, inst)
		Expect(err).NotTo(HaveOccurred(), inst.String())
		program[inst.Address] = seq
	}

	return program
}

var _ = Describe("MIPS", func() {
	var interp *core.Interpreter

	set := func(name string, v uint64) {
		Expect(interp.SetRegisterUint64(name, v, ir.Dword)).To(Succeed())
	}

	run := func(insts ...*instr.Instruction) *core.State {
		s, err := interp.Interpret(lift(insts...), insts[0].Address)
		Expect(err).NotTo(HaveOccurred())

		return s
	}

	BeforeEach(func() {
		interp = core.MakeBuilder().WithArchitecture(arch.MIPS).WithMaxSteps(10000).Build()
	})

	Context("beql", func() {
		beql := func() *instr.Instruction {
			target := instr.Sized("b4", &instr.Node{Type: instr.ImmediateInteger, Value: fmt.Sprint(0xCAFEBABE)})
			return instr.New(0x40002C, "beql", reg("$t0"), reg("$t1"), target)
		}

		BeforeEach(func() {
			set("$ra", 0x00400018)
			set("$t0", 0)
		})

		It("should fall through when the registers differ", func() {
			set("$t1", 1)

			s := run(beql())

			Expect(s.DefinedRegisters()).To(HaveLen(4))
			Expect(s.Uint64("$ra")).To(Equal(uint64(0x00400018)))
			Expect(s.Uint64("$pc")).To(Equal(uint64(0x40002C)))
			Expect(s.Memory.Size()).To(BeZero())
		})

		It("should branch when the registers are equal", func() {
			set("$t1", 0)

			s := run(beql())

			Expect(s.DefinedRegisters()).To(HaveLen(4))
			Expect(s.Uint64("$ra")).To(Equal(uint64(0x00400018)))
			Expect(s.Uint64("$pc")).To(Equal(uint64(0xCAFEBABE)))
			Expect(s.Memory.Size()).To(BeZero())
		})

		It("should skip the delay slot when not taken", func() {
			set("$t1", 1)
			set("$t2", 5)

			slot := instr.New(0x400030, "addiu", reg("$t2"), reg("$t2"), imm(1))
			s := run(beql().WithDelaySlot(slot))

			Expect(s.Uint64("$t2")).To(Equal(uint64(5)))
		})
	})

	It("should run the delay slot before a taken branch", func() {
		set("$t0", 7)
		set("$t1", 7)
		set("$t2", 5)

		slot := instr.New(0x1004, "addiu", reg("$t2"), reg("$t2"), imm(1))
		s := run(instr.New(0x1000, "beq", reg("$t0"), reg("$t1"), imm(0x2000)).WithDelaySlot(slot))

		Expect(s.Uint64("$t2")).To(Equal(uint64(6)))
		Expect(s.Uint64("$pc")).To(Equal(uint64(0x2000)))
		Expect(interp.Halted()).To(Equal(core.LeftProgram))
	})

	It("should compare before the delay slot changes the operands", func() {
		set("$t0", 7)
		set("$t1", 7)

		slot := instr.New(0x1004, "addiu", reg("$t0"), reg("$t0"), imm(1))
		s := run(instr.New(0x1000, "beq", reg("$t0"), reg("$t1"), imm(0x2000)).WithDelaySlot(slot))

		Expect(s.Uint64("$t0")).To(Equal(uint64(8)))
		Expect(s.Uint64("$pc")).To(Equal(uint64(0x2000)))
	})

	It("should link past the delay slot", func() {
		s := run(instr.New(0x1000, "jal", imm(0x3000)).WithDelaySlot(instr.New(0x1004, "nop")))

		Expect(s.Uint64("$ra")).To(Equal(uint64(0x1008)))
		Expect(s.Uint64("$pc")).To(Equal(uint64(0x3000)))
	})

	It("should jump through a register", func() {
		set("$ra", 0x1234)

		s := run(instr.New(0x1000, "jr", reg("$ra")))

		Expect(s.Uint64("$pc")).To(Equal(uint64(0x1234)))
	})

	It("should read $zero as zero and drop writes to it", func() {
		s := run(
			instr.New(0x1000, "addiu", reg("$t0"), reg("$zero"), imm(42)),
			instr.New(0x1004, "addu", reg("$zero"), reg("$t0"), reg("$t0")))

		Expect(s.Uint64("$t0")).To(Equal(uint64(42)))
		Expect(s.IsDefined("$zero")).To(BeFalse())
	})

	It("should accept numbered register names", func() {
		s := run(instr.New(0x1000, "ori", reg("$8"), reg("$0"), imm(0xFFFF)))

		Expect(s.Uint64("$t0")).To(Equal(uint64(0xFFFF)))
	})

	It("should sign-extend addiu immediates", func() {
		set("$t0", 0)

		s := run(instr.New(0x1000, "addiu", reg("$t0"), reg("$t0"), imm(-1)))

		Expect(s.Uint64("$t0")).To(Equal(uint64(0xFFFFFFFF)))
	})

	It("should zero-extend andi immediates", func() {
		set("$t1", 0xFFFFFFFF)

		s := run(instr.New(0x1000, "andi", reg("$t0"), reg("$t1"), imm(-1)))

		Expect(s.Uint64("$t0")).To(Equal(uint64(0xFFFF)))
	})

	It("should load upper immediates", func() {
		s := run(
			instr.New(0x1000, "lui", reg("$t0"), imm(0x1234)),
			instr.New(0x1004, "ori", reg("$t0"), reg("$t0"), imm(0x5678)))

		Expect(s.Uint64("$t0")).To(Equal(uint64(0x12345678)))
	})

	It("should leave add overflow to the policy", func() {
		interp = core.MakeBuilder().WithArchitecture(arch.MIPS).WithPolicy(core.HaltPolicy{}).Build()
		set("$t1", 0x7FFFFFFF)
		set("$t2", 1)

		_, err := interp.Interpret(lift(instr.New(0x1000, "add", reg("$t0"), reg("$t1"), reg("$t2"))), 0x1000)

		Expect(err).NotTo(HaveOccurred())
		Expect(interp.Halted()).To(Equal(core.PolicyHalt))
		Expect(interp.State().IsDefined("$t0")).To(BeFalse())
	})

	DescribeTable("shifts",
		func(mnemonic string, amount int64, want uint64) {
			set("$t1", 0x80000010)

			s := run(instr.New(0x1000, mnemonic, reg("$t0"), reg("$t1"), imm(amount)))

			Expect(s.Uint64("$t0")).To(Equal(want))
		},
		Entry("sll", "sll", int64(4), uint64(0x00000100)),
		Entry("srl", "srl", int64(4), uint64(0x08000001)),
		Entry("sra", "sra", int64(4), uint64(0xF8000001)),
	)

	It("should compare signed and unsigned", func() {
		set("$t1", 0xFFFFFFFF)
		set("$t2", 1)

		s := run(
			instr.New(0x1000, "slt", reg("$t3"), reg("$t1"), reg("$t2")),
			instr.New(0x1004, "sltu", reg("$t4"), reg("$t1"), reg("$t2")))

		Expect(s.Uint64("$t3")).To(Equal(uint64(1)))
		Expect(s.Uint64("$t4")).To(BeZero())
	})

	It("should multiply into hi and lo", func() {
		set("$t0", 0xFFFFFFFF)
		set("$t1", 2)

		s := run(instr.New(0x1000, "mult", reg("$t0"), reg("$t1")))

		Expect(s.Uint64("$lo")).To(Equal(uint64(0xFFFFFFFE)))
		Expect(s.Uint64("$hi")).To(Equal(uint64(0xFFFFFFFF)))
	})

	It("should divide signed values", func() {
		set("$t0", uint64(0xFFFFFFF9))
		set("$t1", 2)

		s := run(instr.New(0x1000, "div", reg("$t0"), reg("$t1")))

		Expect(s.Uint64("$lo")).To(Equal(uint64(0xFFFFFFFD)))
		Expect(s.Uint64("$hi")).To(Equal(uint64(0xFFFFFFFF)))
	})

	It("should leave hi and lo undefined on division by zero", func() {
		set("$t0", 9)
		set("$t1", 0)

		s := run(instr.New(0x1000, "divu", reg("$t0"), reg("$t1")))

		Expect(s.IsDefined("$hi")).To(BeFalse())
		Expect(s.IsDefined("$lo")).To(BeFalse())
	})

	It("should store and load big-endian words", func() {
		set("$sp", 0x8000)
		set("$t0", 0x11223344)

		s := run(
			instr.New(0x1000, "sw", reg("$t0"), mem("$sp", 4)),
			instr.New(0x1004, "lb", reg("$t1"), mem("$sp", 4)),
			instr.New(0x1008, "lhu", reg("$t2"), mem("$sp", 6)))

		first, _ := s.Memory.Byte(0x8004)
		Expect(first).To(Equal(byte(0x11)))
		Expect(s.Uint64("$t1")).To(Equal(uint64(0x11)))
		Expect(s.Uint64("$t2")).To(Equal(uint64(0x3344)))
	})

	It("should sign-extend byte loads", func() {
		interp.Memory().StoreUint64(0x100, 0x80, ir.Byte)

		s := run(instr.New(0x1000, "lb", reg("$t0"), mem("$zero", 0x100)))

		Expect(s.Uint64("$t0")).To(Equal(uint64(0xFFFFFF80)))
	})

	It("should fail on a branch in a delay slot", func() {
		slot := instr.New(0x1004, "b", imm(0x10))
		_, err := mips.Translators.Translate(translate.NewEnvironment(),
			instr.New(0x1000, "b", imm(0x20)).WithDelaySlot(slot.WithDelaySlot(instr.New(0x1008, "nop"))))

		Expect(err).To(HaveOccurred())
	})

	It("should translate a branch and its delay slot the same way twice", func() {
		branch := instr.New(0x1000, "bnel", reg("$t0"), reg("$t1"), imm(0x2000)).
			WithDelaySlot(instr.New(0x1004, "addiu", reg("$t2"), reg("$t2"), imm(1)))

		first, err := mips.Translators.Translate(translate.NewEnvironment(), branch)
		Expect(err).NotTo(HaveOccurred())
		second, err := mips.Translators.Translate(translate.NewEnvironment(), branch)
		Expect(err).NotTo(HaveOccurred())

		Expect(first).NotTo(BeEmpty())
		Expect(cmp.Diff(first, second, cmp.Comparer(func(a, b ir.Operand) bool {
			return a.Equal(b)
		}))).To(BeEmpty())
	})

	It("should know which instructions have a delay slot", func() {
		Expect(mips.HasDelaySlot("beq")).To(BeTrue())
		Expect(mips.HasDelaySlot("JALR")).To(BeTrue())
		Expect(mips.HasDelaySlot("addu")).To(BeFalse())
		Expect(mips.HasDelaySlot("syscall")).To(BeFalse())
	})
})
