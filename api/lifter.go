// Package api defines the lifting API: translating native instructions of one
// architecture into IR, one instruction or a whole listing at a time.
package api

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/core"
	"github.com/samghub/binnavi/instr"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/translate"
	"github.com/samghub/binnavi/translate/mips"
	"github.com/samghub/binnavi/verify"
)

// Lifter translates native instructions into IR.
type Lifter interface {
	// Architecture returns the policy of the translated architecture.
	Architecture() *arch.Policy

	// Lift translates one instruction with a fresh environment.
	Lift(inst *instr.Instruction) Result

	// LiftAll translates a listing in parallel. The results keep the order
	// of the input; a failed instruction does not stop the others.
	LiftAll(insts []*instr.Instruction) []Result
}

// Result is the outcome of lifting one native instruction: either the IR
// sequence or the error that prevented it.
type Result struct {
	Address      uint64
	Mnemonic     string
	Instructions []ir.Instruction
	Err          error
	Issues       []verify.Issue
}

// Ok reports whether the instruction was lifted.
func (r Result) Ok() bool {
	return r.Err == nil
}

type lifterImpl struct {
	registry *translate.Registry
	workers  int
	lint     bool
}

func (l *lifterImpl) Architecture() *arch.Policy {
	return l.registry.Policy
}

func (l *lifterImpl) Lift(inst *instr.Instruction) Result {
	res := Result{Address: inst.Address, Mnemonic: inst.Mnemonic}

	seq, err := l.registry.Translate(translate.NewEnvironment(), inst)
	if err != nil {
		log.WithFields(log.Fields{
			"arch":     l.registry.Policy.Name,
			"address":  inst.Address,
			"mnemonic": inst.Mnemonic,
		}).WithError(err).Debug("lift failed")

		res.Err = err

		return res
	}

	if l.lint {
		res.Issues = verify.Lint(l.registry.Policy, seq)
		if len(res.Issues) > 0 {
			res.Err = translate.Internal(inst, "malformed IR: %s", res.Issues[0])
			return res
		}
	}

	res.Instructions = seq

	return res
}

func (l *lifterImpl) LiftAll(insts []*instr.Instruction) []Result {
	results := make([]Result, len(insts))

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < l.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = l.Lift(insts[i])
			}
		}()
	}

	for i := range insts {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	return results
}

// Program groups the successful results by native address, ready for the
// interpreter. Failed results are skipped.
func Program(results []Result) core.Program {
	p := core.Program{}
	for _, r := range results {
		if r.Ok() {
			p[r.Address] = r.Instructions
		}
	}

	return p
}

// Report collects results into a lifting report.
func Report(tag string, results []Result) *verify.Report {
	report := verify.NewReport(tag)
	for _, r := range results {
		report.Add(verify.Outcome{
			Address:  r.Address,
			Mnemonic: r.Mnemonic,
			Count:    len(r.Instructions),
			Err:      r.Err,
			Issues:   r.Issues,
		})
	}

	return report
}

// PairDelaySlots attaches every MIPS branch's following instruction as its
// delay slot and removes it from the listing. Listings of other
// architectures are returned unchanged.
func PairDelaySlots(policy *arch.Policy, insts []*instr.Instruction) []*instr.Instruction {
	if policy != arch.MIPS {
		return insts
	}

	out := make([]*instr.Instruction, 0, len(insts))
	for i := 0; i < len(insts); i++ {
		inst := insts[i]
		if mips.HasDelaySlot(inst.Mnemonic) && inst.DelaySlot == nil && i+1 < len(insts) {
			inst = inst.WithDelaySlot(insts[i+1])
			i++
		}

		out = append(out, inst)
	}

	return out
}
