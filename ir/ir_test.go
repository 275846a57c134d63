package ir_test

import (
	"math/big"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samghub/binnavi/ir"
)

var _ = Describe("OperandSize", func() {
	It("should report bits and masks", func() {
		Expect(ir.Dword.Bits()).To(Equal(uint(32)))
		Expect(ir.Byte.Mask().Uint64()).To(Equal(uint64(0xFF)))
		Expect(ir.Oword.Mask().BitLen()).To(Equal(128))
	})

	It("should double up to oword", func() {
		s, err := ir.Qword.Double()
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(ir.Oword))

		_, err = ir.Oword.Double()
		Expect(err).To(HaveOccurred())
	})

	It("should interpret values as two's complement", func() {
		v := ir.Byte.Signed(big.NewInt(0xFE))
		Expect(v.Int64()).To(Equal(int64(-2)))
		Expect(ir.Byte.Signed(big.NewInt(0x7F)).Int64()).To(Equal(int64(0x7F)))
	})

	It("should reject sizes outside the closed set", func() {
		_, err := ir.SizeFromBytes(3)
		Expect(err).To(HaveOccurred())
		s, err := ir.SizeFromBytes(8)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(ir.Qword))
	})
})

var _ = Describe("Operand", func() {
	It("should truncate immediates to their size", func() {
		o := ir.ImmSigned(-1, ir.Word)
		Expect(o.Value().Uint64()).To(Equal(uint64(0xFFFF)))
		Expect(o.String()).To(Equal("b2 FFFF"))
	})

	It("should compare by payload", func() {
		Expect(ir.Imm(5, ir.Dword).Equal(ir.Imm(5, ir.Dword))).To(BeTrue())
		Expect(ir.Imm(5, ir.Dword).Equal(ir.Imm(5, ir.Qword))).To(BeFalse())
		Expect(ir.Register("eax", ir.Dword).Equal(ir.Temporary("eax", ir.Dword))).To(BeFalse())
		Expect(ir.At(0x100, 2).Equal(ir.At(0x100, 2))).To(BeTrue())
	})

	It("should resize immediates by truncation", func() {
		o := ir.Imm(0x1234, ir.Word).Resize(ir.Byte)
		Expect(o.Value().Uint64()).To(Equal(uint64(0x34)))
		Expect(o.Size).To(Equal(ir.Byte))
	})

	It("should not leak the immediate payload", func() {
		o := ir.Imm(7, ir.Byte)
		o.Value().SetInt64(9)
		Expect(o.Value().Int64()).To(Equal(int64(7)))
	})
})

var _ = Describe("Catalogue", func() {
	It("should know every opcode", func() {
		for _, op := range ir.Opcodes() {
			_, ok := ir.Lookup(op)
			Expect(ok).To(BeTrue(), string(op))
		}
		Expect(ir.Opcodes()).To(HaveLen(18))
	})

	It("should describe arities", func() {
		c, _ := ir.Lookup(ir.Add)
		Expect(c.Arity()).To(Equal(3))
		c, _ = ir.Lookup(ir.Str)
		Expect(c.Arity()).To(Equal(2))
		c, _ = ir.Lookup(ir.Undef)
		Expect(c.Arity()).To(Equal(1))
		c, _ = ir.Lookup(ir.Nop)
		Expect(c.Arity()).To(Equal(0))
	})
})

var _ = Describe("Instruction", func() {
	It("should render and order", func() {
		inst := ir.New(0x401000, 3, ir.Str,
			ir.Register("eax", ir.Dword), ir.None, ir.Temporary("t0", ir.Dword))
		Expect(inst.String()).To(Equal("00401000.03: str [b4 eax, , b4 t0]"))
		Expect(inst.Key().Less(ir.SubAddress{Address: 0x401000, Position: 4})).To(BeTrue())
		Expect(inst.Key().Less(ir.SubAddress{Address: 0x400FFF, Position: 9})).To(BeFalse())
	})
})
