package translate_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/core"
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

var _ = Describe("Builder", func() {
	var (
		env *translate.Environment
		b   *translate.Builder
	)

	BeforeEach(func() {
		env = translate.NewEnvironment()
		b = translate.NewBuilder(env, arch.X86, instr.New(0x1000, "test"))
	})

	It("should number positions and temporaries in order", func() {
		t := b.Add(ir.Register("eax", ir.Dword), translate.Const(1, ir.Dword), ir.Dword)
		b.Move(t, ir.Register("eax", ir.Dword))

		seq, err := b.Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(seq).To(HaveLen(2))
		Expect(seq[0].Position).To(Equal(uint16(0)))
		Expect(seq[1].Position).To(Equal(uint16(1)))
		Expect(seq[0].Operands[2].Name).To(Equal("t0"))
		Expect(seq[1].Address).To(Equal(uint64(0x1000)))
	})

	It("should resolve forward branches", func() {
		skip := b.NewLabel()
		b.Branch(ir.Register("ZF", ir.Byte), skip)
		b.Nop()
		b.Mark(skip)
		b.Move(translate.Const(1, ir.Dword), ir.Register("eax", ir.Dword))

		seq, err := b.Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(seq[0].Opcode).To(Equal(ir.Jcc))
		Expect(seq[0].Operands[2].Kind).To(Equal(ir.KindSubAddress))
		Expect(seq[0].Operands[2].Target).To(Equal(ir.SubAddress{Address: 0x1000, Position: 2}))
	})

	It("should end with a nop when a label marks the end", func() {
		end := b.NewLabel()
		b.BranchAlways(end)
		b.Mark(end)

		seq, err := b.Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(seq).To(HaveLen(2))
		Expect(seq[1].Opcode).To(Equal(ir.Nop))
		Expect(seq[0].Operands[2].Target.Position).To(Equal(uint16(1)))
	})

	It("should refuse a jump to an unmarked label", func() {
		b.BranchAlways(b.NewLabel())
		b.Nop()

		_, err := b.Build()

		var internal *translate.InternalTranslationError
		Expect(errors.As(err, &internal)).To(BeTrue())
		Expect(internal.ErrorStack()).NotTo(BeEmpty())
	})

	It("should keep the first failure", func() {
		b.Unsupported("first")
		b.Internal("second")
		b.Nop()

		seq, err := b.Build()

		Expect(seq).To(BeNil())
		var unsupported *translate.UnsupportedInstructionError
		Expect(errors.As(err, &unsupported)).To(BeTrue())
		Expect(unsupported.Reason).To(Equal("first"))
		Expect(unsupported.Address).To(Equal(uint64(0x1000)))
	})

	It("should check operand counts", func() {
		Expect(b.Expect(0)).To(BeTrue())
		Expect(b.Err()).NotTo(HaveOccurred())

		Expect(b.Expect(1, 2)).To(BeFalse())
		Expect(b.Err()).To(MatchError(ContainSubstring("expected [1 2] operands, got 0")))
	})

	It("should rebase spliced sequences", func() {
		b.Nop()

		other := translate.NewBuilder(env, arch.X86, instr.New(0x1004, "slot"))
		end := other.NewLabel()
		other.BranchAlways(end)
		other.Mark(end)
		slot, err := other.Build()
		Expect(err).NotTo(HaveOccurred())

		b.Splice(slot)

		seq, err := b.Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(seq).To(HaveLen(3))
		for _, inst := range seq {
			Expect(inst.Address).To(Equal(uint64(0x1000)))
		}
		Expect(seq[1].Operands[2].Target).To(Equal(ir.SubAddress{Address: 0x1000, Position: 2}))
	})

	It("should extract high byte views", func() {
		v := b.ReadRegister("ah")

		seq, err := b.Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(v.Size).To(Equal(ir.Byte))
		Expect(seq).To(HaveLen(1))
		Expect(seq[0].Opcode).To(Equal(ir.Bsh))
		Expect(seq[0].Operands[0]).To(Equal(ir.Register("eax", ir.Dword)))
		Expect(seq[0].Operands[1].Value().Int64()).To(Equal(int64(0xF8)))
	})

	It("should zero-extend 32-bit writes on x64", func() {
		b = translate.NewBuilder(env, arch.X64, instr.New(0x1000, "test"))
		b.WriteRegister("eax", translate.Const(7, ir.Dword))

		seq, err := b.Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(seq).To(HaveLen(1))
		Expect(seq[0].Opcode).To(Equal(ir.Str))
		Expect(seq[0].Operands[2]).To(Equal(ir.Register("rax", ir.Qword)))
	})

	It("should refuse unknown registers", func() {
		b.ReadRegister("xyz")

		_, err := b.Build()

		var unsupported *translate.UnsupportedInstructionError
		Expect(errors.As(err, &unsupported)).To(BeTrue())
	})

	DescribeTable("composite helpers",
		func(emit func(b *translate.Builder) ir.Operand, expected uint64) {
			b.Move(emit(b), ir.Register("eax", ir.Dword))
			seq, err := b.Build()
			Expect(err).NotTo(HaveOccurred())

			interp := core.MakeBuilder().WithArchitecture(arch.X86).Build()
			s, err := interp.Interpret(core.ProgramFromSequence(seq), 0x1000)

			Expect(err).NotTo(HaveOccurred())
			Expect(s.Uint64("eax")).To(Equal(expected))
		},
		Entry("sign extension", func(b *translate.Builder) ir.Operand {
			return b.SignExtend(translate.Const(0x80, ir.Byte), ir.Byte, ir.Dword)
		}, uint64(0xFFFFFF80)),
		Entry("signed less", func(b *translate.Builder) ir.Operand {
			return b.LessSigned(translate.Const(0xFFFFFFFF, ir.Dword), translate.Const(1, ir.Dword), ir.Dword)
		}, uint64(1)),
		Entry("unsigned less", func(b *translate.Builder) ir.Operand {
			return b.LessUnsigned(translate.Const(0xFFFFFFFF, ir.Dword), translate.Const(1, ir.Dword), ir.Dword)
		}, uint64(0)),
		Entry("select true", func(b *translate.Builder) ir.Operand {
			return b.Select(translate.Const(1, ir.Byte), translate.Const(5, ir.Dword), translate.Const(9, ir.Dword), ir.Dword)
		}, uint64(5)),
		Entry("select false", func(b *translate.Builder) ir.Operand {
			return b.Select(translate.Const(0, ir.Byte), translate.Const(5, ir.Dword), translate.Const(9, ir.Dword), ir.Dword)
		}, uint64(9)),
		Entry("bit", func(b *translate.Builder) ir.Operand {
			return b.Bit(translate.Const(0x10, ir.Dword), 4)
		}, uint64(1)),
		Entry("msb", func(b *translate.Builder) ir.Operand {
			return b.MSB(translate.Const(0x7FFFFFFF, ir.Dword), ir.Dword)
		}, uint64(0)),
		Entry("negate", func(b *translate.Builder) ir.Operand {
			return b.Negate(translate.Const(1, ir.Dword), ir.Dword)
		}, uint64(0xFFFFFFFF)),
	)
})

var _ = Describe("EffectiveAddress", func() {
	It("should compute scaled index addressing", func() {
		env := translate.NewEnvironment()
		b := translate.NewBuilder(env, arch.X86, instr.New(0x1000, "test"))

		// [ebx + ecx*4 + 8]
		expr := instr.Op("+",
			instr.Op("+", instr.Reg("ebx"), instr.Op("*", instr.Reg("ecx"), instr.Imm(4))),
			instr.Imm(8))
		b.Move(translate.EffectiveAddress(b, expr, nil), ir.Register("eax", ir.Dword))

		seq, err := b.Build()
		Expect(err).NotTo(HaveOccurred())

		interp := core.MakeBuilder().WithArchitecture(arch.X86).Build()
		Expect(interp.SetRegisterUint64("ebx", 0x1000, ir.Dword)).To(Succeed())
		Expect(interp.SetRegisterUint64("ecx", 3, ir.Dword)).To(Succeed())

		s, err := interp.Interpret(core.ProgramFromSequence(seq), 0x1000)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Uint64("eax")).To(Equal(uint64(0x1014)))
	})

	It("should use the given register reader", func() {
		b := translate.NewBuilder(translate.NewEnvironment(), arch.MIPS, instr.New(0, "test"))
		zero := func(b *translate.Builder, name string) ir.Operand {
			return translate.Const(0, ir.Dword)
		}

		v := translate.EffectiveAddress(b, instr.Reg("$t0"), zero)

		Expect(v.Kind).To(Equal(ir.KindImmediate))
		Expect(b.Err()).NotTo(HaveOccurred())
	})

	It("should refuse unknown operators", func() {
		b := translate.NewBuilder(translate.NewEnvironment(), arch.X86, instr.New(0, "test"))

		translate.EffectiveAddress(b, instr.Op("/", instr.Imm(8), instr.Imm(2)), nil)

		Expect(b.Err()).To(HaveOccurred())
	})
})
