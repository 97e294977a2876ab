// Package simtest provides a scripted in-memory oracle for exercising the
// optimizer without a real simulator session.  Tests control how many polls
// a solve takes, whether it converges, and how physical quantities respond
// to applied parameters.
package simtest

import (
	"fmt"

	"github.com/fluxsim/flowopt/sim"
)

// Var is a writable simulator variable handle.
type Var struct {
	name string
}

func NewVar(name string) *Var { return &Var{name: name} }
func (v *Var) Name() string   { return v.name }

// Entity is a fake costed unit operation.  SolveTicks is the number of
// Solving polls reported before the solve finishes; Converge is the result
// reported once it does.
type Entity struct {
	name       string
	class      string
	Quantities map[sim.Quantity]float64
	SolveTicks int
	// SolveForever makes Solving report true on every poll, so waits on
	// this entity always hit the deadline.
	SolveForever bool
	Converge     bool

	Resets int
	Runs   int

	ticksLeft int
	solved    bool
}

func NewEntity(name, class string) *Entity {
	return &Entity{
		name:       name,
		class:      class,
		Quantities: map[sim.Quantity]float64{},
		Converge:   true,
	}
}

func (e *Entity) Name() string  { return e.name }
func (e *Entity) Class() string { return e.class }

// Oracle implements sim.Oracle over scripted entities.
type Oracle struct {
	// Applied holds the last value pushed to each handle by name.
	Applied map[string]float64
	// Units holds the unit each handle was last applied with.
	Units map[string]string
	// OnRun, if set, is invoked when an entity run is triggered, before any
	// status polling.  It lets tests derive entity quantities from the
	// currently applied parameters.
	OnRun func(o *Oracle, e *Entity)
}

func NewOracle() *Oracle {
	return &Oracle{
		Applied: map[string]float64{},
		Units:   map[string]string{},
	}
}

func (o *Oracle) entity(e sim.Entity) (*Entity, error) {
	fe, ok := e.(*Entity)
	if !ok {
		return nil, fmt.Errorf("simtest: foreign entity %q", e.Name())
	}
	return fe, nil
}

func (o *Oracle) Apply(h sim.Handle, value float64, unit string) error {
	o.Applied[h.Name()] = value
	o.Units[h.Name()] = unit
	return nil
}

func (o *Oracle) Reset(e sim.Entity) error {
	fe, err := o.entity(e)
	if err != nil {
		return err
	}
	fe.Resets++
	fe.solved = false
	return nil
}

func (o *Oracle) Run(e sim.Entity) error {
	fe, err := o.entity(e)
	if err != nil {
		return err
	}
	fe.Runs++
	fe.ticksLeft = fe.SolveTicks
	fe.solved = true
	if o.OnRun != nil {
		o.OnRun(o, fe)
	}
	return nil
}

func (o *Oracle) Solving(e sim.Entity) (bool, error) {
	fe, err := o.entity(e)
	if err != nil {
		return false, err
	}
	if fe.SolveForever {
		return fe.solved, nil
	}
	if fe.ticksLeft > 0 {
		fe.ticksLeft--
		return true, nil
	}
	return false, nil
}

func (o *Oracle) Converged(e sim.Entity) (bool, error) {
	fe, err := o.entity(e)
	if err != nil {
		return false, err
	}
	return fe.solved && fe.ticksLeft == 0 && fe.Converge, nil
}

func (o *Oracle) Read(e sim.Entity, q sim.Quantity, unit string) (float64, error) {
	fe, err := o.entity(e)
	if err != nil {
		return 0, err
	}
	v, ok := fe.Quantities[q]
	if !ok {
		return 0, fmt.Errorf("simtest: entity %q has no quantity %q", fe.name, q)
	}
	return v, nil
}
