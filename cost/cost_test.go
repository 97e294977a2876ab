package cost_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxsim/flowopt/cost"
	"github.com/fluxsim/flowopt/sim"
	"github.com/fluxsim/flowopt/sim/simtest"
)

func converged(t *testing.T, o *simtest.Oracle, e *simtest.Entity) {
	t.Helper()
	require.NoError(t, o.Run(e))
}

func TestBindUnknownClass(t *testing.T) {
	a := cost.NewAggregator(simtest.NewOracle(), cost.List{}, nil)
	err := a.Bind("compressors", func(o sim.Oracle, e sim.Entity) (float64, error) { return 0, nil })
	var cerr *cost.ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestTotalSumsAcrossBindingsAndEntities(t *testing.T) {
	o := simtest.NewOracle()
	c1 := simtest.NewEntity("C-3501", sim.ClassColumns)
	c2 := simtest.NewEntity("C-3502", sim.ClassColumns)
	hx := simtest.NewEntity("E-100", sim.ClassExchangers)
	converged(t, o, c1)
	converged(t, o, c2)

	a := cost.NewAggregator(o, cost.List{c1, c2, hx}, nil)
	require.NoError(t, a.Bind(sim.ClassColumns, func(o sim.Oracle, e sim.Entity) (float64, error) {
		return 10, nil
	}))
	require.NoError(t, a.Bind(sim.ClassExchangers, func(o sim.Oracle, e sim.Entity) (float64, error) {
		return 5, nil
	}))

	total, err := a.Total()
	require.NoError(t, err)
	require.Equal(t, 25.0, total)
}

func TestTotalFailsOnUnconvergedColumn(t *testing.T) {
	o := simtest.NewOracle()
	c1 := simtest.NewEntity("C-3501", sim.ClassColumns)
	c2 := simtest.NewEntity("C-3502", sim.ClassColumns)
	converged(t, o, c1)
	c2.Converge = false
	require.NoError(t, o.Run(c2))

	calls := 0
	a := cost.NewAggregator(o, cost.List{c1, c2}, nil)
	require.NoError(t, a.Bind(sim.ClassColumns, func(o sim.Oracle, e sim.Entity) (float64, error) {
		calls++
		return 10, nil
	}))

	_, err := a.Total()
	var aerr *cost.AggregationError
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, "C-3502", aerr.Entity)
}

func TestTotalNoBindings(t *testing.T) {
	a := cost.NewAggregator(simtest.NewOracle(), cost.List{}, nil)
	_, err := a.Total()
	require.Error(t, err)
}

func TestItemize(t *testing.T) {
	o := simtest.NewOracle()
	c1 := simtest.NewEntity("C-3501", sim.ClassColumns)
	hx := simtest.NewEntity("E-100", sim.ClassExchangers)
	converged(t, o, c1)

	a := cost.NewAggregator(o, cost.List{c1, hx}, nil)
	require.NoError(t, a.Bind(sim.ClassColumns, func(o sim.Oracle, e sim.Entity) (float64, error) {
		return 7, nil
	}))
	require.NoError(t, a.Bind(sim.ClassExchangers, func(o sim.Oracle, e sim.Entity) (float64, error) {
		return 3, nil
	}))

	items, total, err := a.Itemize()
	require.NoError(t, err)
	require.Equal(t, 10.0, total)
	require.Equal(t, 7.0, items["C-3501"])
	require.Equal(t, 3.0, items["E-100"])
}
