package translate

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
)

// A Translator turns one native instruction into an IR sequence. Translators
// are stateless: everything that changes during a translation lives in the
// environment and the returned slice.
type Translator interface {
	Translate(env *Environment, inst *instr.Instruction) ([]ir.Instruction, error)
}

// EmitFunc writes the IR of the builder's instruction.
type EmitFunc func(b *Builder)

// Emitter adapts an EmitFunc to a Translator for one architecture.
type Emitter struct {
	Policy *arch.Policy
	Emit   EmitFunc
}

// Translate runs the emit function on a new builder.
func (e Emitter) Translate(env *Environment, inst *instr.Instruction) ([]ir.Instruction, error) {
	b := NewBuilder(env, e.Policy, inst)
	e.Emit(b)

	return b.Build()
}

// Registry maps mnemonics to translators.
type Registry struct {
	Policy      *arch.Policy
	translators map[string]Translator
}

// NewRegistry creates an empty registry for an architecture.
func NewRegistry(policy *arch.Policy) *Registry {
	return &Registry{Policy: policy, translators: make(map[string]Translator)}
}

// Register adds a translator. Registering a mnemonic twice panics.
func (r *Registry) Register(mnemonic string, t Translator) {
	if _, dup := r.translators[mnemonic]; dup {
		panic("translator for " + mnemonic + " registered twice")
	}

	r.translators[mnemonic] = t
}

// RegisterFunc adds an EmitFunc under one or more mnemonics.
func (r *Registry) RegisterFunc(emit EmitFunc, mnemonics ...string) {
	for _, m := range mnemonics {
		r.Register(m, Emitter{Policy: r.Policy, Emit: emit})
	}
}

// Lookup returns the translator of a mnemonic.
func (r *Registry) Lookup(mnemonic string) (Translator, bool) {
	t, ok := r.translators[mnemonic]
	return t, ok
}

// Mnemonics lists the registered mnemonics in order.
func (r *Registry) Mnemonics() []string {
	out := make([]string, 0, len(r.translators))
	for m := range r.translators {
		out = append(out, m)
	}

	sort.Strings(out)

	return out
}

// Translate dispatches inst to its translator.
func (r *Registry) Translate(env *Environment, inst *instr.Instruction) ([]ir.Instruction, error) {
	t, ok := r.translators[inst.Mnemonic]
	if !ok {
		log.WithFields(log.Fields{
			"arch":     r.Policy.Name,
			"address":  inst.Address,
			"mnemonic": inst.Mnemonic,
		}).Debug("no translator")

		return nil, Unsupported(inst, "unknown mnemonic")
	}

	return t.Translate(env, inst)
}
