// Command reil lifts YAML instruction listings to IR, interprets them and
// checks the final state against the expectations in each listing.
//
//	reil [-ir] [-state] [-dump] [-lint] [-akita] [-report file] listing.yaml...
//
// The exit status is 1 if any listing fails to lift, faults or ends in an
// unexpected state.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/sarchlab/akita/v4/sim"
	log "github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	"github.com/samghub/binnavi/api"
	"github.com/samghub/binnavi/core"
	"github.com/samghub/binnavi/ir"
	"github.com/samghub/binnavi/program"
)

var (
	printIR    = flag.Bool("ir", false, "print the IR of every instruction")
	printState = flag.Bool("state", false, "print the final registers and memory")
	dump       = flag.Bool("dump", false, "dump the lifting results")
	lint       = flag.Bool("lint", true, "check the generated IR")
	workers    = flag.Int("workers", 0, "lifting goroutines, 0 for one per CPU")
	report     = flag.String("report", "", "write a lifting report to this file")
	level      = flag.String("log", "warning", "log level")
	ticked     = flag.Bool("akita", false, "run each listing on a core under an akita engine")
)

func main() {
	flag.Parse()

	lvl, err := log.ParseLevel(*level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(2)
	}
	log.SetLevel(lvl)

	if flag.NArg() == 0 {
		flag.Usage()
		atexit.Exit(2)
	}

	failed := 0
	for _, path := range flag.Args() {
		if !runListing(path) {
			failed++
		}
	}

	fmt.Printf("%d of %d listings passed\n", flag.NArg()-failed, flag.NArg())

	if failed > 0 {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func runListing(path string) bool {
	l, err := program.LoadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return false
	}

	lifter := api.LifterBuilder{}.
		WithArchitecture(l.Arch).
		WithWorkers(*workers).
		WithLint(*lint).
		Build()

	var run *program.Run
	if *ticked {
		run, err = l.ExecuteOnEngine(lifter, sim.NewSerialEngine())
	} else {
		run, err = l.Execute(lifter)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return false
	}

	fmt.Printf("== %s (%s): %s\n", path, l.Arch, run.Halt)

	if *dump {
		spew.Dump(run.Results)
	}

	for _, r := range run.Results {
		if !r.Ok() {
			fmt.Printf("  lift %08X %s: %v\n", r.Address, r.Mnemonic, r.Err)
			continue
		}

		if *printIR {
			fmt.Print(ir.Listing(r.Instructions))
		}
	}

	if *report != "" {
		if err := api.Report(l.Arch, run.Results).SaveReportToFile(*report); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	if run.Err != nil {
		fmt.Printf("  fault: %v\n", run.Err)
	}

	if *printState && run.State != nil {
		core.PrintState(os.Stdout, run.State)
	}

	for _, m := range run.Mismatches {
		fmt.Printf("  mismatch %s\n", m)
	}

	return run.Passed()
}
