// Package cost sums weighted unit costs over the costed entities of a
// simulation.  Cost functions are pluggable and registered per entity
// class; the aggregator walks every entity in a bound class and totals the
// outputs into one scalar in common currency/time units.
package cost

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fluxsim/flowopt/sim"
)

// Func computes the cost of a single entity.  Implementations must be pure
// with respect to simulation state: they read physical quantities through
// the oracle and never mutate the entity.
type Func func(o sim.Oracle, e sim.Entity) (float64, error)

// ConfigError reports a cost binding for an unknown entity class.
type ConfigError struct {
	Class string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: unknown cost-function class %q", e.Class)
}

// AggregationError reports an entity whose convergence precondition was not
// met when its cost was requested.  The evaluator surfaces it as an
// infeasible score; it is never silently skipped.
type AggregationError struct {
	Entity string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("cost requested for unconverged entity %q", e.Entity)
}

// Source supplies the current entity collection for a class tag.  It is
// consulted on every Total call because the simulation's entity set is not
// assumed static.
type Source interface {
	Entities(class string) []sim.Entity
}

// List is a fixed entity collection implementing Source.
type List []sim.Entity

func (l List) Entities(class string) []sim.Entity {
	var out []sim.Entity
	for _, e := range l {
		if e.Class() == class {
			out = append(out, e)
		}
	}
	return out
}

type binding struct {
	class          string
	fn             Func
	needsConverged bool
}

// Aggregator holds the registered cost bindings for one optimizer session.
type Aggregator struct {
	oracle   sim.Oracle
	source   Source
	log      *zap.Logger
	bindings []binding
}

func NewAggregator(o sim.Oracle, src Source, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{oracle: o, source: src, log: log}
}

// Bind registers fn for every entity in class.  Column costs require the
// column to have converged before they can be computed; exchanger costs
// read steady quantities and carry no such precondition.
func (a *Aggregator) Bind(class string, fn Func) error {
	switch class {
	case sim.ClassColumns, sim.ClassExchangers:
	default:
		return &ConfigError{Class: class}
	}
	a.bindings = append(a.bindings, binding{
		class:          class,
		fn:             fn,
		needsConverged: class == sim.ClassColumns,
	})
	return nil
}

// Total computes the grand total across all bindings and entities.  An
// unmet convergence precondition fails the whole aggregation immediately.
func (a *Aggregator) Total() (float64, error) {
	if len(a.bindings) == 0 {
		return 0, fmt.Errorf("no cost functions bound")
	}

	total := 0.0
	for _, b := range a.bindings {
		for _, e := range a.source.Entities(b.class) {
			c, err := a.entityCost(b, e)
			if err != nil {
				return 0, err
			}
			total += c
		}
	}
	return total, nil
}

// Itemize computes the per-entity cost breakdown alongside the total,
// logging each contribution.  Used for reporting the final design, not by
// the evaluation loop.
func (a *Aggregator) Itemize() (map[string]float64, float64, error) {
	items := map[string]float64{}
	total := 0.0
	for _, b := range a.bindings {
		for _, e := range a.source.Entities(b.class) {
			c, err := a.entityCost(b, e)
			if err != nil {
				return nil, 0, err
			}
			items[e.Name()] += c
			total += c
			a.log.Info("unit cost",
				zap.String("entity", e.Name()),
				zap.String("class", e.Class()),
				zap.Float64("cost", c),
			)
		}
	}
	return items, total, nil
}

func (a *Aggregator) entityCost(b binding, e sim.Entity) (float64, error) {
	if b.needsConverged {
		conv, err := a.oracle.Converged(e)
		if err != nil {
			return 0, fmt.Errorf("checking convergence of %q: %w", e.Name(), err)
		}
		if !conv {
			return 0, &AggregationError{Entity: e.Name()}
		}
	}
	c, err := b.fn(a.oracle, e)
	if err != nil {
		return 0, fmt.Errorf("costing %q: %w", e.Name(), err)
	}
	return c, nil
}
