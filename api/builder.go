package api

import (
	"fmt"
	"runtime"

	"github.com/samghub/binnavi/translate"
	"github.com/samghub/binnavi/translate/arm"
	"github.com/samghub/binnavi/translate/mips"
	"github.com/samghub/binnavi/translate/ppc"
	"github.com/samghub/binnavi/translate/x86"
)

var registries = map[string]*translate.Registry{
	"x86":  x86.X86,
	"x64":  x86.X64,
	"mips": mips.Translators,
	"arm":  arm.Translators,
	"ppc":  ppc.Translators,
}

// Registry returns the translators of an architecture tag.
func Registry(tag string) (*translate.Registry, error) {
	r, ok := registries[tag]
	if !ok {
		return nil, fmt.Errorf("unknown architecture %q", tag)
	}

	return r, nil
}

// LifterBuilder creates a new instance of Lifter.
type LifterBuilder struct {
	registry *translate.Registry
	workers  int
	lint     bool
}

// WithArchitecture selects the translators of an architecture tag: x86, x64,
// mips, arm or ppc. It panics on an unknown tag.
func (b LifterBuilder) WithArchitecture(tag string) LifterBuilder {
	r, err := Registry(tag)
	if err != nil {
		panic(err)
	}

	b.registry = r

	return b
}

// WithRegistry lifts with a custom set of translators.
func (b LifterBuilder) WithRegistry(r *translate.Registry) LifterBuilder {
	b.registry = r
	return b
}

// WithWorkers sets the number of goroutines LiftAll uses.
func (b LifterBuilder) WithWorkers(n int) LifterBuilder {
	b.workers = n
	return b
}

// WithLint turns on IR checks after every translation.
func (b LifterBuilder) WithLint(lint bool) LifterBuilder {
	b.lint = lint
	return b
}

// Build creates a lifter.
func (b LifterBuilder) Build() Lifter {
	if b.registry == nil {
		panic("lifter needs an architecture")
	}

	workers := b.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &lifterImpl{
		registry: b.registry,
		workers:  workers,
		lint:     b.lint,
	}
}
