package api_test

import (
	"errors"
	"fmt"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samghub/binnavi/api"
	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/core"
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

func dword(n *instr.Node) *instr.Node {
	return instr.Sized("dword", n)
}

func mipsReg(name string) *instr.Node {
	return instr.Sized("b4", instr.Reg(name))
}

func mipsImm(v int64) *instr.Node {
	return instr.Sized("b4", instr.Imm(v))
}

var _ = Describe("Lifter", func() {
	var (
		mockCtrl       *gomock.Controller
		mockTranslator *MockTranslator
		registry       *translate.Registry
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockTranslator = NewMockTranslator(mockCtrl)

		registry = translate.NewRegistry(arch.X86)
		registry.Register("probe", mockTranslator)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should lift one instruction", func() {
		l := api.LifterBuilder{}.WithArchitecture("x86").WithLint(true).Build()

		res := l.Lift(instr.New(0x1000, "mov", instr.Reg("eax"), instr.Reg("ebx")))

		Expect(res.Ok()).To(BeTrue())
		Expect(res.Instructions).To(HaveLen(1))
		Expect(res.Issues).To(BeEmpty())
		Expect(res.Mnemonic).To(Equal("mov"))
	})

	It("should know the architecture of its translators", func() {
		l := api.LifterBuilder{}.WithArchitecture("x64").Build()

		Expect(l.Architecture()).To(BeIdenticalTo(arch.X64))
	})

	It("should refuse unknown architectures", func() {
		_, err := api.Registry("sparc")
		Expect(err).To(HaveOccurred())

		Expect(func() {
			api.LifterBuilder{}.WithArchitecture("sparc")
		}).To(Panic())
		Expect(func() {
			api.LifterBuilder{}.Build()
		}).To(Panic())
	})

	It("should keep the order of a parallel lift", func() {
		var insts []*instr.Instruction
		for i := 0; i < 40; i++ {
			addr := uint64(0x1000 + 2*i)
			if i%3 == 0 {
				insts = append(insts, instr.New(addr, "vfmadd231ps"))
			} else {
				insts = append(insts, instr.New(addr, "mov", instr.Reg("eax"), instr.Reg("ebx")))
			}
		}

		results := api.LifterBuilder{}.WithArchitecture("x86").WithWorkers(4).Build().LiftAll(insts)

		Expect(results).To(HaveLen(40))
		for i, r := range results {
			Expect(r.Address).To(Equal(insts[i].Address))
			Expect(r.Ok()).To(Equal(i%3 != 0), fmt.Sprint(i))
		}

		var unsupported *translate.UnsupportedInstructionError
		Expect(errors.As(results[0].Err, &unsupported)).To(BeTrue())
	})

	It("should give every instruction a fresh environment", func() {
		var envs []*translate.Environment
		mockTranslator.EXPECT().
			Translate(gomock.Any(), gomock.Any()).
			DoAndReturn(func(env *translate.Environment, inst *instr.Instruction) ([]ir.Instruction, error) {
				envs = append(envs, env)
				return []ir.Instruction{ir.New(inst.Address, env.NextPosition(), ir.Nop, ir.None, ir.None, ir.None)}, nil
			}).
			Times(3)

		l := api.LifterBuilder{}.WithRegistry(registry).WithWorkers(1).Build()
		results := l.LiftAll([]*instr.Instruction{
			instr.New(0x10, "probe"), instr.New(0x11, "probe"), instr.New(0x12, "probe"),
		})

		Expect(envs).To(HaveLen(3))
		Expect(envs[0]).NotTo(BeIdenticalTo(envs[1]))
		Expect(envs[1]).NotTo(BeIdenticalTo(envs[2]))
		for _, r := range results {
			Expect(r.Instructions[0].Position).To(Equal(uint16(0)))
		}
	})

	It("should turn lint issues into internal errors", func() {
		mockTranslator.EXPECT().
			Translate(gomock.Any(), gomock.Any()).
			Return([]ir.Instruction{
				ir.New(0x10, 0, ir.Str, ir.Imm(1, ir.Dword), ir.None, ir.Imm(2, ir.Dword)),
			}, nil)

		res := api.LifterBuilder{}.WithRegistry(registry).WithLint(true).Build().Lift(instr.New(0x10, "probe"))

		Expect(res.Ok()).To(BeFalse())
		Expect(res.Instructions).To(BeNil())
		Expect(res.Issues).NotTo(BeEmpty())

		var internal *translate.InternalTranslationError
		Expect(errors.As(res.Err, &internal)).To(BeTrue())
	})

	It("should pass translator errors through", func() {
		mockTranslator.EXPECT().
			Translate(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("broken"))

		res := api.LifterBuilder{}.WithRegistry(registry).Build().Lift(instr.New(0x10, "probe"))

		Expect(res.Err).To(MatchError("broken"))
	})

	It("should build a program the interpreter runs", func() {
		insts := []*instr.Instruction{
			instr.New(0x1000, "mov", instr.Reg("eax"), dword(instr.Imm(1))),
			instr.New(0x1005, "add", instr.Reg("eax"), dword(instr.Imm(2))),
			instr.New(0x1008, "vfmadd231ps"),
		}

		results := api.LifterBuilder{}.WithArchitecture("x86").Build().LiftAll(insts)
		program := api.Program(results)

		Expect(program.Addresses()).To(Equal([]uint64{0x1000, 0x1005}))
		Expect(program.Len()).To(BeNumerically(">", 2))

		interp := core.MakeBuilder().WithArchitecture(arch.X86).Build()
		s, err := interp.Interpret(program, 0x1000)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Uint64("eax")).To(Equal(uint64(3)))
		Expect(interp.Halted()).To(Equal(core.EndOfProgram))

		report := api.Report("x86", results)
		Expect(report.OK()).To(BeFalse())
		Expect(report.Counts()["UNSUPPORTED"]).To(Equal(1))
	})

	Context("delay slots", func() {
		listing := func() []*instr.Instruction {
			return []*instr.Instruction{
				instr.New(0x1000, "beq", mipsReg("$t0"), mipsReg("$t1"), mipsImm(0x2000)),
				instr.New(0x1004, "addiu", mipsReg("$t2"), mipsReg("$t2"), mipsImm(1)),
				instr.New(0x1008, "addiu", mipsReg("$t3"), mipsReg("$t3"), mipsImm(1)),
			}
		}

		It("should attach the slot to the branch", func() {
			paired := api.PairDelaySlots(arch.MIPS, listing())

			Expect(paired).To(HaveLen(2))
			Expect(paired[0].DelaySlot).NotTo(BeNil())
			Expect(paired[0].DelaySlot.Address).To(Equal(uint64(0x1004)))
			Expect(paired[1].Address).To(Equal(uint64(0x1008)))
		})

		It("should leave other architectures alone", func() {
			Expect(api.PairDelaySlots(arch.ARM, listing())).To(HaveLen(3))
		})

		It("should run the paired listing", func() {
			l := api.LifterBuilder{}.WithArchitecture("mips").WithLint(true).Build()
			results := l.LiftAll(api.PairDelaySlots(arch.MIPS, listing()))
			for _, r := range results {
				Expect(r.Err).NotTo(HaveOccurred())
			}

			interp := core.MakeBuilder().WithArchitecture(arch.MIPS).Build()
			Expect(interp.SetRegisterUint64("$t0", 7, ir.Dword)).To(Succeed())
			Expect(interp.SetRegisterUint64("$t1", 7, ir.Dword)).To(Succeed())
			Expect(interp.SetRegisterUint64("$t2", 5, ir.Dword)).To(Succeed())

			s, err := interp.Interpret(api.Program(results), 0x1000)

			Expect(err).NotTo(HaveOccurred())
			Expect(s.Uint64("$t2")).To(Equal(uint64(6)))
			Expect(s.Uint64("$pc")).To(Equal(uint64(0x2000)))
			Expect(interp.Halted()).To(Equal(core.LeftProgram))
		})
	})
})
