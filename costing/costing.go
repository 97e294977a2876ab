// Package costing provides the stock total-annualized-cost functions for
// distillation columns and heat exchangers.  Correlations follow Turton,
// Analysis, Synthesis and Design of Chemical Processes (type-K purchase
// cost equations, bare-module factors, Table 8.3 utility prices), escalated
// by CEPCI.  Costing is deliberately separate from the optimizer core: the
// cost package accepts any Func, and these are merely the defaults a
// distillation study would reach for.
package costing

import (
	"fmt"
	"math"

	"github.com/fluxsim/flowopt/cost"
	"github.com/fluxsim/flowopt/sim"
)

// typeK builds a purchase-cost correlation of the form
// log10(y) = k1 + k2*log10(x) + k3*log10(x)^2.
func typeK(k1, k2, k3 float64) func(float64) float64 {
	return func(x float64) float64 {
		l := math.Log10(x)
		return math.Pow(10, k1+k2*l+k3*l*l)
	}
}

// Chemical Engineering Plant Cost Index escalation from the 2001 base year
// of the correlations.
const (
	cepciActual = 567.5
	cepci2001   = 397
	costFactor  = cepciActual / cepci2001
)

// Annualization: discounted payback over nYears at interestRate.
const (
	interestRate = 0.07
	nYears       = 3
)

// Utility prices in $/kWh (converted from Turton Table 8.3 $/GJ) and the
// operating hours per year they are billed over.
const (
	utilWaterCost   = 0.378 / 1e9 * 3600 * 1e3
	utilRefrigCost  = 4.77 / 1e9 * 3600 * 1e3
	utilCryoCost    = 8.49 / 1e9 * 3600 * 1e3
	utilSteamCost   = 4.54 / 1e9 * 3600 * 1e3
	utilHPSteamCost = 5.66 / 1e9 * 3600 * 1e3
	hoursPerYear    = 8000
)

// Bare-module factors (Turton Tables A.4/A.6, Figures A.8/A.9).
const (
	fbmTray  = 1.0
	fbmTower = 2.25 + 1.82*1.0
	fbmHX    = 1.63 + 1.66*1.3
)

// Utility temperature levels (degC) and exchanger coefficients (W/m2K).
const (
	dtMin       = 10
	uCooler     = 800
	tWaterIn    = 30
	tWaterOut   = 40
	tRefrigIn   = 5
	tRefrigOut  = 15
	tCryoIn     = -20
	tCryoOut    = -19
	uHeater     = 820
	tSteam      = 160
	tHPSteam    = 254
	traySpacing = 0.6096 // m
)

var (
	purchaseCostTray  = typeK(2.9949, 0.4465, 0.3961)  // sieve area m2
	purchaseCostTower = typeK(3.4974, 0.4485, 0.1074)  // volume m3
	purchaseCostHX    = typeK(4.3247, -0.3030, 0.1634) // area m2, fixed tube
	trayQuantityFct   = typeK(0.4771, 0.0816, -0.3473)
)

// DiscountFactor annualizes a capital cost over n years at interest rate i.
func DiscountFactor(n int, i float64) float64 {
	return i * math.Pow(1+i, float64(n)) / (math.Pow(1+i, float64(n)) - 1)
}

// LMTD is the log-mean temperature difference for countercurrent exchange.
// When either side is isothermal the arithmetic mean is used instead.
func LMTD(t1In, t1Out, t2In, t2Out float64) float64 {
	dA := t1In - t2Out
	dB := t1Out - t2In
	if t1In == t1Out || t2In == t2Out {
		return math.Abs((dA + dB) / 2)
	}
	return (dA - dB) / math.Log(dA/dB)
}

func trayCostBM(columnArea float64, nTrays float64) float64 {
	fq := 1.0
	if nTrays < 20 {
		fq = trayQuantityFct(nTrays)
	}
	return purchaseCostTray(columnArea) * fbmTray * fq * nTrays * costFactor
}

// heatExchangerCostBM sizes an exchanger for duty q (kW) at the given LMTD
// and overall coefficient U (W/m2K) and prices it bare-module.
func heatExchangerCostBM(q, lmtd, u float64) float64 {
	area := q / (u * lmtd) * 1000
	return purchaseCostHX(area) * fbmHX * costFactor
}

// coolingUtility picks the cheapest utility able to cool a stream from tIn
// to tOut with at least dtMin approach and returns the LMTD against it and
// the annual operating cost for duty q (kW).
func coolingUtility(q, tIn, tOut float64) (lmtd, opCost float64, err error) {
	switch {
	case tOut >= tWaterIn+dtMin && tIn >= tWaterOut+dtMin:
		return LMTD(tIn, tOut, tWaterIn, tWaterOut), q * utilWaterCost * hoursPerYear, nil
	case tOut >= tRefrigIn+dtMin && tIn >= tRefrigOut+dtMin:
		return LMTD(tIn, tOut, tRefrigIn, tRefrigOut), q * utilRefrigCost * hoursPerYear, nil
	case tOut >= tCryoIn+dtMin && tIn >= tCryoOut+dtMin:
		return LMTD(tIn, tOut, tCryoIn, tCryoOut), q * utilCryoCost * hoursPerYear, nil
	}
	return 0, 0, fmt.Errorf("no utility can cool stream from %g degC to %g degC", tIn, tOut)
}

// heatingUtility picks LP or HP steam for heating a stream to tOut.
func heatingUtility(q, tIn, tOut float64) (lmtd, opCost float64, err error) {
	switch {
	case tOut <= tSteam-dtMin:
		return LMTD(tIn, tOut, tSteam, tSteam), q * utilSteamCost * hoursPerYear, nil
	case tOut <= tHPSteam-dtMin:
		return LMTD(tIn, tOut, tHPSteam, tHPSteam), q * utilHPSteamCost * hoursPerYear, nil
	}
	return 0, 0, fmt.Errorf("no utility can heat stream from %g degC to %g degC", tIn, tOut)
}

// DefaultTrayEfficiency corrects the theoretical stage count to real trays.
const DefaultTrayEfficiency = 0.7

// ColumnCost returns the total annualized cost function for distillation
// columns, in MM$/yr: tower shell + trays + condenser + reboiler capital
// (annualized) plus condenser cooling and reboiler heating utilities.
func ColumnCost() cost.Func { return ColumnCostWithEfficiency(DefaultTrayEfficiency) }

func ColumnCostWithEfficiency(trayEff float64) cost.Func {
	return func(o sim.Oracle, e sim.Entity) (float64, error) {
		read := func(q sim.Quantity, unit string) (float64, error) { return o.Read(e, q, unit) }

		stages, err := read(sim.QtyStageCount, "")
		if err != nil {
			return 0, err
		}
		nTrays := math.Ceil(stages / trayEff)

		tCondIn, err := read(sim.QtyCondenserInletC, "C")
		if err != nil {
			return 0, err
		}
		tCondOut, err := read(sim.QtyCondenserOutletC, "C")
		if err != nil {
			return 0, err
		}
		tRebIn, err := read(sim.QtyReboilerInletC, "C")
		if err != nil {
			return 0, err
		}
		tRebOut, err := read(sim.QtyReboilerOutletC, "C")
		if err != nil {
			return 0, err
		}
		qCond, err := read(sim.QtyCondenserDutyKW, "kW")
		if err != nil {
			return 0, err
		}
		qReb, err := read(sim.QtyReboilerDutyKW, "kW")
		if err != nil {
			return 0, err
		}
		diameter, err := read(sim.QtyColumnDiameterM, "m")
		if err != nil {
			return 0, err
		}

		columnArea := math.Pi * diameter * diameter / 4
		columnHeight := nTrays*traySpacing + 3
		columnVolume := columnArea * columnHeight

		towerCBM := purchaseCostTower(columnVolume) * fbmTower * costFactor
		trayCBM := trayCostBM(columnArea, nTrays)

		lmtdCond, condCooling, err := coolingUtility(qCond, tCondIn, tCondOut)
		if err != nil {
			return 0, err
		}
		condenserCBM := heatExchangerCostBM(qCond, lmtdCond, uCooler)

		lmtdReb, rebHeating, err := heatingUtility(qReb, tRebIn, tRebOut)
		if err != nil {
			return 0, err
		}
		reboilerCBM := heatExchangerCostBM(qReb, lmtdReb, uHeater)

		opCost := condCooling + rebHeating
		capCost := towerCBM + trayCBM + condenserCBM + reboilerCBM
		return (opCost + capCost*DiscountFactor(nYears, interestRate)) * 1e-6, nil
	}
}

// ExchangerCost returns the total annualized cost function for standalone
// heaters and coolers, in MM$/yr.  The utility is picked automatically from
// the stream direction; a zero-duty exchanger costs nothing.
func ExchangerCost() cost.Func {
	return func(o sim.Oracle, e sim.Entity) (float64, error) {
		q, err := o.Read(e, sim.QtyDutyKW, "kW")
		if err != nil {
			return 0, err
		}
		q = math.Abs(q)
		if q == 0 {
			return 0, nil
		}

		tIn, err := o.Read(e, sim.QtyInletTempC, "C")
		if err != nil {
			return 0, err
		}
		tOut, err := o.Read(e, sim.QtyOutletTempC, "C")
		if err != nil {
			return 0, err
		}

		var lmtd, opCost float64
		var u float64
		if tIn < tOut {
			u = uHeater
			lmtd, opCost, err = heatingUtility(q, tIn, tOut)
		} else {
			u = uCooler
			lmtd, opCost, err = coolingUtility(q, tIn, tOut)
		}
		if err != nil {
			return 0, err
		}

		capCost := heatExchangerCostBM(q, lmtd, u)
		return (opCost + capCost*DiscountFactor(nYears, interestRate)) * 1e-6, nil
	}
}
