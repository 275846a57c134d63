package x86

import (
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
)

// stringOp emits one iteration of a string instruction for an element size.
type stringOp func(b *translate.Builder, size ir.OperandSize)

type repeat int

const (
	once repeat = iota
	rep
	repe
	repne
)

func registerStrings(r *translate.Registry, long bool) {
	suffixes := map[string]ir.OperandSize{"b": ir.Byte, "w": ir.Word, "d": ir.Dword}
	if long {
		suffixes["q"] = ir.Qword
	}

	ops := map[string]stringOp{
		"lods": lods,
		"stos": stos,
		"movs": movs,
		"cmps": cmps,
		"scas": scas,
	}

	for name, op := range ops {
		compares := name == "cmps" || name == "scas"

		for suffix, size := range suffixes {
			m := name + suffix
			r.RegisterFunc(emitString(op, size, once), m)
			r.RegisterFunc(emitString(op, size, rep), "rep "+m)

			if compares {
				r.RegisterFunc(emitString(op, size, repe), "repe "+m, "repz "+m)
				r.RegisterFunc(emitString(op, size, repne), "repne "+m, "repnz "+m)
			}
		}
	}
}

func log2(size ir.OperandSize) uint {
	n := uint(0)
	for s := int(size); s > 1; s >>= 1 {
		n++
	}

	return n
}

// step is +size when DF is clear and -size when it is set.
func step(b *translate.Builder, size ir.OperandSize) ir.Operand {
	as := b.Policy.AddressSize
	df := b.Shl(b.Str(flag(DF), as), log2(size)+1, as)

	return b.Sub(translate.Const(uint64(size), as), df, as)
}

// advance moves a pointer register by one element.
func advance(b *translate.Builder, name string, delta ir.Operand) {
	as := b.Policy.AddressSize
	b.Move(b.Add(ir.Register(name, as), delta, as), ir.Register(name, as))
}

func source(b *translate.Builder) string {
	return full(b, "si")
}

func destination(b *translate.Builder) string {
	return full(b, "di")
}

func lods(b *translate.Builder, size ir.OperandSize) {
	as := b.Policy.AddressSize
	v := b.Ldm(ir.Register(source(b), as), size)

	b.WriteRegister(accumulator(size), v)
	advance(b, source(b), step(b, size))
}

func stos(b *translate.Builder, size ir.OperandSize) {
	as := b.Policy.AddressSize
	v := b.ReadRegister(accumulator(size))

	b.Stm(v, ir.Register(destination(b), as))
	advance(b, destination(b), step(b, size))
}

func movs(b *translate.Builder, size ir.OperandSize) {
	as := b.Policy.AddressSize
	v := b.Ldm(ir.Register(source(b), as), size)
	b.Stm(v, ir.Register(destination(b), as))

	delta := step(b, size)
	advance(b, source(b), delta)
	advance(b, destination(b), delta)
}

func cmps(b *translate.Builder, size ir.OperandSize) {
	as := b.Policy.AddressSize
	x := b.Ldm(ir.Register(source(b), as), size)
	y := b.Ldm(ir.Register(destination(b), as), size)
	subtract(b, x, y, size)

	delta := step(b, size)
	advance(b, source(b), delta)
	advance(b, destination(b), delta)
}

func scas(b *translate.Builder, size ir.OperandSize) {
	as := b.Policy.AddressSize
	x := b.ReadRegister(accumulator(size))
	y := b.Ldm(ir.Register(destination(b), as), size)
	subtract(b, x, y, size)

	advance(b, destination(b), step(b, size))
}

// emitString wraps op in the loop of a repeat prefix. The counter is
// checked before the first iteration, so a zero count does nothing.
func emitString(op stringOp, size ir.OperandSize, mode repeat) translate.EmitFunc {
	return func(b *translate.Builder) {
		if mode == once {
			op(b, size)
			return
		}

		as := b.Policy.AddressSize
		counter := ir.Register(full(b, "cx"), as)

		loop := b.NewLabel()
		end := b.NewLabel()

		b.Branch(b.IsZero(counter), end)
		b.Mark(loop)
		op(b, size)

		b.Move(b.Sub(counter, translate.Const(1, as), as), counter)
		b.Branch(b.IsZero(counter), end)

		switch mode {
		case repe:
			b.Branch(b.LogicalNot(flag(ZF)), end)
		case repne:
			b.Branch(flag(ZF), end)
		}

		b.BranchAlways(loop)
		b.Mark(end)
	}
}
