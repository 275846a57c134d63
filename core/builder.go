package core

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/samghub/binnavi/arch"
)

// Builder can create interpreters and cores that run them.
type Builder struct {
	engine        sim.Engine
	freq          sim.Freq
	arch          *arch.Policy
	endianness    arch.Endianness
	hasEndianness bool
	policy        Policy
	maxSteps      int
	stopAddress   uint64
	hasStop       bool
}

// MakeBuilder creates a builder with the empty interpreter policy.
func MakeBuilder() Builder {
	return Builder{
		policy: EmptyPolicy{},
		freq:   1 * sim.GHz,
	}
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the core.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithArchitecture sets the architecture policy.
func (b Builder) WithArchitecture(a *arch.Policy) Builder {
	b.arch = a
	return b
}

// WithEndianness overrides the byte order of the architecture.
func (b Builder) WithEndianness(e arch.Endianness) Builder {
	b.endianness = e
	b.hasEndianness = true

	return b
}

// WithPolicy sets the policy for unkn instructions.
func (b Builder) WithPolicy(p Policy) Builder {
	b.policy = p
	return b
}

// WithMaxSteps bounds the number of IR instructions per run. Zero means no
// bound.
func (b Builder) WithMaxSteps(n int) Builder {
	b.maxSteps = n
	return b
}

// WithStopAddress halts a run when execution reaches a native address.
func (b Builder) WithStopAddress(addr uint64) Builder {
	b.stopAddress = addr
	b.hasStop = true

	return b
}

// Build creates an interpreter.
func (b Builder) Build() *Interpreter {
	if b.arch == nil {
		panic("interpreter needs an architecture")
	}

	endianness := b.arch.Endianness
	if b.hasEndianness {
		endianness = b.endianness
	}

	policy := b.policy
	if policy == nil {
		policy = EmptyPolicy{}
	}

	return &Interpreter{
		arch:        b.arch,
		emu:         newIREmulator(b.arch, policy),
		state:       NewState(endianness),
		maxSteps:    b.maxSteps,
		stopAddress: b.stopAddress,
		hasStop:     b.hasStop,
	}
}

// BuildCore creates a core that executes one IR instruction per cycle.
func (b Builder) BuildCore(name string) *Core {
	if b.engine == nil {
		panic("core needs an engine")
	}

	c := &Core{interp: b.Build()}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	return c
}
