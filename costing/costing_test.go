package costing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxsim/flowopt/sim"
	"github.com/fluxsim/flowopt/sim/simtest"
)

func TestLMTD(t *testing.T) {
	// countercurrent: (60-30)/ln(60/30)
	require.InDelta(t, 30/math.Log(2), LMTD(100, 60, 30, 40), 1e-9)

	// isothermal utility side falls back to the arithmetic mean
	require.InDelta(t, 110, LMTD(40, 60, 160, 160), 1e-9)
}

func TestDiscountFactor(t *testing.T) {
	require.InDelta(t, 0.381052, DiscountFactor(3, 0.07), 1e-5)
}

func TestExchangerCostZeroDuty(t *testing.T) {
	o := simtest.NewOracle()
	hx := simtest.NewEntity("E-100", sim.ClassExchangers)
	hx.Quantities[sim.QtyDutyKW] = 0

	c, err := ExchangerCost()(o, hx)
	require.NoError(t, err)
	require.Zero(t, c)
}

func TestExchangerCostHeater(t *testing.T) {
	o := simtest.NewOracle()
	hx := simtest.NewEntity("E-100", sim.ClassExchangers)
	hx.Quantities[sim.QtyDutyKW] = 500
	hx.Quantities[sim.QtyInletTempC] = 40
	hx.Quantities[sim.QtyOutletTempC] = 90

	c, err := ExchangerCost()(o, hx)
	require.NoError(t, err)
	require.Greater(t, c, 0.0)
	require.True(t, !math.IsNaN(c) && !math.IsInf(c, 0))
}

func TestExchangerCostNoFeasibleUtility(t *testing.T) {
	o := simtest.NewOracle()
	hx := simtest.NewEntity("E-100", sim.ClassExchangers)
	hx.Quantities[sim.QtyDutyKW] = 500
	hx.Quantities[sim.QtyInletTempC] = 40
	// hotter than HP steam can reach with the minimum approach
	hx.Quantities[sim.QtyOutletTempC] = 300

	_, err := ExchangerCost()(o, hx)
	require.Error(t, err)
}

func TestColumnCost(t *testing.T) {
	o := simtest.NewOracle()
	col := simtest.NewEntity("C-3501", sim.ClassColumns)
	col.Quantities[sim.QtyStageCount] = 40
	col.Quantities[sim.QtyCondenserInletC] = 95
	col.Quantities[sim.QtyCondenserOutletC] = 90
	col.Quantities[sim.QtyReboilerInletC] = 115
	col.Quantities[sim.QtyReboilerOutletC] = 120
	col.Quantities[sim.QtyCondenserDutyKW] = 1200
	col.Quantities[sim.QtyReboilerDutyKW] = 1500
	col.Quantities[sim.QtyColumnDiameterM] = 1.4

	c, err := ColumnCost()(o, col)
	require.NoError(t, err)
	require.Greater(t, c, 0.0)
	require.True(t, !math.IsNaN(c) && !math.IsInf(c, 0))

	// a taller column with more duty must cost more
	col.Quantities[sim.QtyStageCount] = 80
	col.Quantities[sim.QtyReboilerDutyKW] = 3000
	c2, err := ColumnCost()(o, col)
	require.NoError(t, err)
	require.Greater(t, c2, c)
}

func TestColumnCostNoCoolingUtility(t *testing.T) {
	o := simtest.NewOracle()
	col := simtest.NewEntity("C-3501", sim.ClassColumns)
	col.Quantities[sim.QtyStageCount] = 40
	// condenser far below every utility's reach
	col.Quantities[sim.QtyCondenserInletC] = -40
	col.Quantities[sim.QtyCondenserOutletC] = -45
	col.Quantities[sim.QtyReboilerInletC] = 115
	col.Quantities[sim.QtyReboilerOutletC] = 120
	col.Quantities[sim.QtyCondenserDutyKW] = 1200
	col.Quantities[sim.QtyReboilerDutyKW] = 1500
	col.Quantities[sim.QtyColumnDiameterM] = 1.4

	_, err := ColumnCost()(o, col)
	require.Error(t, err)
}
