// Package objective turns candidate parameter vectors into scalar scores
// by driving the external simulation: reset, apply, run, wait, cost.
package objective

import (
	"math"

	"go.uber.org/zap"

	"github.com/fluxsim/flowopt"
	"github.com/fluxsim/flowopt/cost"
	"github.com/fluxsim/flowopt/param"
	"github.com/fluxsim/flowopt/sim"
)

// Evaluator scores one candidate vector per call against a single stateful
// simulation.  Calls are strictly sequential: each one mutates simulator
// state the next depends on, so the evaluator is not safe for concurrent
// use and the optimizer never invokes it concurrently.
//
// Every recoverable failure - solver timeout, non-convergence, a cost
// aggregation failure, a non-finite total - yields flowopt.Infeasible with
// a nil error.  The search treats that as a legitimately terrible score and
// moves on; nothing short of a programming error aborts the run.
type Evaluator struct {
	oracle sim.Oracle
	params *param.Registry
	costs  *cost.Aggregator
	runs   []sim.Entity
	poller sim.Poller
	log    *zap.Logger
}

// New builds an evaluator.  runs lists the entities that must be reset,
// solved, and converged for a candidate to be feasible (typically the
// distillation columns).
func New(o sim.Oracle, params *param.Registry, costs *cost.Aggregator, runs []sim.Entity, poller sim.Poller, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{
		oracle: o,
		params: params,
		costs:  costs,
		runs:   runs,
		poller: poller,
		log:    log,
	}
}

// Objective implements flowopt.Objectiver.
func (ev *Evaluator) Objective(x []float64) (float64, error) {
	// Clear leftovers from the previous candidate first so a failed run
	// cannot contaminate this one's results.
	for _, e := range ev.runs {
		if err := ev.oracle.Reset(e); err != nil {
			return ev.infeasible("reset failed", e, err), nil
		}
	}

	if err := ev.params.ApplyVector(x); err != nil {
		return ev.infeasible("apply failed", nil, err), nil
	}

	for _, e := range ev.runs {
		if err := ev.oracle.Run(e); err != nil {
			return ev.infeasible("run failed", e, err), nil
		}
	}

	for _, e := range ev.runs {
		status, err := ev.poller.Wait(ev.oracle, e)
		if err != nil {
			return ev.infeasible("status poll failed", e, err), nil
		}
		if status != sim.Converged {
			ev.log.Debug("candidate rejected",
				zap.String("entity", e.Name()),
				zap.Stringer("status", status),
				zap.Float64s("x", x),
			)
			return flowopt.Infeasible, nil
		}
	}

	total, err := ev.costs.Total()
	if err != nil {
		return ev.infeasible("cost aggregation failed", nil, err), nil
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		ev.log.Debug("candidate rejected: non-finite cost", zap.Float64s("x", x))
		return flowopt.Infeasible, nil
	}

	ev.log.Debug("candidate converged",
		zap.Float64s("x", x),
		zap.Float64("cost", total),
	)
	return total, nil
}

func (ev *Evaluator) infeasible(msg string, e sim.Entity, err error) float64 {
	fields := []zap.Field{zap.Error(err)}
	if e != nil {
		fields = append(fields, zap.String("entity", e.Name()))
	}
	ev.log.Warn(msg, fields...)
	return flowopt.Infeasible
}
