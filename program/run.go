package program

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/sarchlab/akita/v4/sim"
	log "github.com/sirupsen/logrus"

	"github.com/samghub/binnavi/api"
	"github.com/samghub/binnavi/arch"
	"github.com/samghub/binnavi/core"
	"github.com/samghub/binnavi/ir"
)

// Mismatch is one difference between the expected and the final state.
type Mismatch struct {
	Location string
	Expected string
	Actual   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", m.Location, m.Expected, m.Actual)
}

// Architecture returns the policy named by the listing.
func (l *Listing) Architecture() (*arch.Policy, error) {
	return arch.Lookup(l.Arch)
}

func size(bytes int, fallback ir.OperandSize) (ir.OperandSize, error) {
	if bytes == 0 {
		return fallback, nil
	}

	return ir.SizeFromBytes(bytes)
}

// Builder returns a core builder configured by the listing.
func (l *Listing) Builder() (core.Builder, error) {
	p, err := l.Architecture()
	if err != nil {
		return core.Builder{}, err
	}

	b := core.MakeBuilder().WithArchitecture(p)

	if l.Endianness != "" {
		e, err := arch.ParseEndianness(l.Endianness)
		if err != nil {
			return core.Builder{}, err
		}
		b = b.WithEndianness(e)
	}

	if l.MaxSteps > 0 {
		b = b.WithMaxSteps(l.MaxSteps)
	}

	switch l.Policy {
	case "", "continue":
		b = b.WithPolicy(core.PolicyFunc(func(_ *core.State, inst ir.Instruction) (bool, error) {
			log.WithFields(log.Fields{
				"arch":    l.Arch,
				"address": inst.Address,
			}).Debug("skipping unknown instruction")

			return true, nil
		}))
	case "halt":
		b = b.WithPolicy(core.HaltPolicy{})
	default:
		return core.Builder{}, fmt.Errorf("unknown policy %q", l.Policy)
	}

	return b, nil
}

// Interpreter builds an interpreter configured by the listing.
func (l *Listing) Interpreter() (*core.Interpreter, error) {
	b, err := l.Builder()
	if err != nil {
		return nil, err
	}

	return b.Build(), nil
}

// Setup writes the initial registers and memory of the listing.
func (l *Listing) Setup(interp *core.Interpreter) error {
	p := interp.Architecture()

	for name, v := range l.Registers {
		r, err := p.Register(name)
		if err != nil {
			return err
		}

		s, err := size(v.Size, r.Size)
		if err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}

		if err := interp.SetRegisterUint64(name, v.Value, s); err != nil {
			return err
		}
	}

	for _, c := range l.Memory {
		s, err := size(c.Size, ir.Dword)
		if err != nil {
			return fmt.Errorf("memory at %X: %w", c.Address, err)
		}

		interp.Memory().StoreUint64(c.Address, c.Value, s)
	}

	return nil
}

func hex(v *big.Int) string {
	return "0x" + v.Text(16)
}

func sortedNames(m map[string]Value) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// Check compares a final state with the expected registers and memory.
func (l *Listing) Check(state *core.State) []Mismatch {
	var out []Mismatch

	for _, name := range sortedNames(l.Expect.Registers) {
		want := new(big.Int).SetUint64(l.Expect.Registers[name].Value)

		got, err := state.Value(name)
		if err != nil {
			out = append(out, Mismatch{Location: name, Expected: hex(want), Actual: "undefined"})
			continue
		}

		if got.Cmp(want) != 0 {
			out = append(out, Mismatch{Location: name, Expected: hex(want), Actual: hex(got)})
		}
	}

	for _, name := range l.Expect.Undefined {
		if state.IsDefined(name) {
			v, _ := state.Value(name)
			out = append(out, Mismatch{Location: name, Expected: "undefined", Actual: hex(v)})
		}
	}

	for _, c := range l.Expect.Memory {
		loc := fmt.Sprintf("[%X]", c.Address)
		want := new(big.Int).SetUint64(c.Value)

		s, err := size(c.Size, ir.Dword)
		if err != nil {
			out = append(out, Mismatch{Location: loc, Expected: hex(want), Actual: err.Error()})
			continue
		}

		got, err := state.Memory.Load(c.Address, s)
		if err != nil {
			out = append(out, Mismatch{Location: loc, Expected: hex(want), Actual: "absent"})
			continue
		}

		if got.Cmp(want) != 0 {
			out = append(out, Mismatch{Location: loc, Expected: hex(want), Actual: hex(got)})
		}
	}

	return out
}

// CheckHalt compares the halt reason with the expected one, if any.
func (l *Listing) CheckHalt(reason core.HaltReason) []Mismatch {
	if l.Expect.Halt == "" || l.Expect.Halt == reason.String() {
		return nil
	}

	return []Mismatch{{Location: "halt", Expected: l.Expect.Halt, Actual: reason.String()}}
}

// Run is the outcome of lifting and interpreting a listing.
type Run struct {
	Results    []api.Result
	State      *core.State
	Halt       core.HaltReason
	Err        error
	Mismatches []Mismatch
}

// Passed reports whether everything lifted and the final state matched.
func (r *Run) Passed() bool {
	if r.Err != nil || len(r.Mismatches) > 0 {
		return false
	}

	for _, res := range r.Results {
		if !res.Ok() {
			return false
		}
	}

	return true
}

// Execute lifts the listing with lifter, runs it and checks the result.
// Lifting failures are reported in the results; the program still runs
// without the failed instructions. Only configuration errors are returned.
func (l *Listing) Execute(lifter api.Lifter) (*Run, error) {
	interp, err := l.Interpreter()
	if err != nil {
		return nil, err
	}

	if err := l.Setup(interp); err != nil {
		return nil, err
	}

	run := l.lift(lifter)

	_, err = interp.Interpret(api.Program(run.Results), l.Entry)
	l.finish(run, interp, err)

	return run, nil
}

// ExecuteOnEngine is Execute with the program driven by a core that ticks
// under engine, one IR instruction per cycle.
func (l *Listing) ExecuteOnEngine(lifter api.Lifter, engine sim.Engine) (*Run, error) {
	b, err := l.Builder()
	if err != nil {
		return nil, err
	}

	c := b.WithEngine(engine).BuildCore("Core")
	if err := l.Setup(c.Interpreter()); err != nil {
		return nil, err
	}

	run := l.lift(lifter)

	err = c.MapProgram(api.Program(run.Results), l.Entry)
	if err == nil {
		if err := engine.Run(); err != nil {
			return nil, err
		}
		err = c.Err()
	}

	l.finish(run, c.Interpreter(), err)

	return run, nil
}

func (l *Listing) lift(lifter api.Lifter) *Run {
	native := api.PairDelaySlots(lifter.Architecture(), l.Native())

	return &Run{Results: lifter.LiftAll(native)}
}

func (l *Listing) finish(run *Run, interp *core.Interpreter, err error) {
	run.State = interp.State()
	run.Halt = interp.Halted()
	run.Err = err

	if err != nil {
		log.WithFields(log.Fields{
			"arch":  l.Arch,
			"entry": l.Entry,
		}).WithError(err).Debug("listing faulted")
	}

	core.LogState(run.State)

	run.Mismatches = append(l.Check(run.State), l.CheckHalt(run.Halt)...)
}
