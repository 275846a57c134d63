package core

import (
	log "github.com/sirupsen/logrus"

	"github.com/sarchlab/akita/v4/sim"
)

// Core runs an interpreter under an akita engine, one IR instruction per
// tick.
type Core struct {
	*sim.TickingComponent

	interp *Interpreter
	err    error
}

// Interpreter returns the interpreter driven by the core.
func (c *Core) Interpreter() *Interpreter {
	return c.interp
}

// Err returns the error that stopped the core, if any.
func (c *Core) Err() error {
	return c.err
}

// MapProgram loads the program the core needs to run and schedules the first
// tick.
func (c *Core) MapProgram(program Program, start uint64) error {
	c.err = nil

	if err := c.interp.Load(program, start); err != nil {
		return err
	}

	c.TickNow()

	return nil
}

// Tick runs the program for one cycle.
func (c *Core) Tick() (madeProgress bool) {
	if c.interp.Halted() != Running {
		return false
	}

	_, err := c.interp.Step()
	if err != nil {
		c.err = err

		log.WithFields(log.Fields{
			"core":  c.Name(),
			"time":  c.Engine.CurrentTime(),
			"error": err,
		}).Debug("core faulted")
	}

	return true
}
