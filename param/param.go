// Package param declares the decision variables of an optimization run and
// maps candidate vectors onto the external simulator.
package param

import (
	"fmt"

	"github.com/fluxsim/flowopt/sim"
)

// Kind discriminates the parameter variants.  Every parameter has exactly
// one kind, fixed at registration; kind-specific fields on Parameter are
// meaningless for other kinds.
type Kind int

const (
	// Scalar parameters push their value straight to the external setter.
	Scalar Kind = iota
	// FeedFraction parameters hold a fraction in [0,1] that is resolved to
	// an integer stage index at apply time from the current stage count.
	FeedFraction
	// LinkedPressure parameters are a column top pressure whose dependent
	// bottom pressure is derived and pushed alongside every apply.
	LinkedPressure
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case FeedFraction:
		return "feed-fraction"
	case LinkedPressure:
		return "linked-pressure"
	}
	return "unknown"
}

// StageCountFunc reports the current stage (tray) count of a column.  It is
// re-invoked on every apply because the stage count may itself be one of
// the optimized parameters.
type StageCountFunc func() (int, error)

// ReadFunc reads one live physical value from the simulation.
type ReadFunc func() (float64, error)

// DropFunc derives a column bottom pressure from the top pressure, stage
// count, and condenser/reboiler pressure drops.
type DropFunc func(top float64, stages int, condDP, rebDP float64) float64

// PerTrayDropKPa is the stock per-tray pressure drop (0.1 psi in kPa).
const PerTrayDropKPa = 0.689476

// DefaultPressureDrop derives the bottom pressure using a fixed per-tray
// drop plus the condenser and reboiler vessel drops.
func DefaultPressureDrop(top float64, stages int, condDP, rebDP float64) float64 {
	return top + condDP + rebDP + float64(stages)*PerTrayDropKPa
}

// Parameter is one decision variable.  Parameters are created through the
// Registry registration calls and never mutated afterwards.
type Parameter struct {
	Name   string
	Lower  float64
	Upper  float64
	Kind   Kind
	Unit   string
	Handle sim.Handle

	// feed-fraction only
	Stream sim.Handle
	Stages StageCountFunc

	// linked-pressure only
	Bottom      sim.Handle
	CondenserDP ReadFunc
	ReboilerDP  ReadFunc
	Drop        DropFunc

	value float64
}

// Value returns the parameter's last-known value: the initial value until
// the first successful apply, the last applied component afterwards.  For
// feed-fraction parameters this is the fraction, never the stage index.
func (p *Parameter) Value() float64 { return p.value }

// ConfigError reports invalid or missing parameter declarations.  It is
// raised during setup and is never recoverable mid-run.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "invalid configuration: " + e.Reason }

func configf(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}
