// Package bench provides benchmark optimization functions from
// http://en.wikipedia.org/wiki/Test_functions_for_optimization for
// exercising the swarm without a live simulation behind the objective.
package bench

import (
	"fmt"
	"math"

	"github.com/fluxsim/flowopt"
	"github.com/fluxsim/flowopt/swarm"
)

var (
	sin  = math.Sin
	cos  = math.Cos
	abs  = math.Abs
	exp  = math.Exp
	sqrt = math.Sqrt
)

var AllFuncs = []Func{
	Ackley{},
	Eggholder{},
	HolderTable{},
	Styblinski{NDim: 1},
	Styblinski{NDim: 10},
	Rosenbrock{NDim: 2},
	Rosenbrock{NDim: 10},
}

type Func interface {
	Eval(v []float64) float64
	Bounds() (low, up []float64)
	Optima() []flowopt.Point
	Name() string
}

type Ackley struct{}

func (fn Ackley) Name() string { return "Ackley" }

func (fn Ackley) Eval(v []float64) float64 {
	if !InsideBounds(v, fn) {
		return math.Inf(1)
	}

	x := v[0]
	y := v[1]
	return -20*exp(-0.2*sqrt(0.5*(x*x+y*y))) -
		exp(0.5*(cos(2*math.Pi*x)+cos(2*math.Pi*y))) +
		20 + math.E
}

func (fn Ackley) Bounds() (low, up []float64) {
	return []float64{-5, -5}, []float64{5, 5}
}

func (fn Ackley) Optima() []flowopt.Point {
	return []flowopt.Point{
		flowopt.NewPoint([]float64{0, 0}, 0),
	}
}

type Eggholder struct{}

func (fn Eggholder) Name() string { return "Eggholder" }

func (fn Eggholder) Eval(v []float64) float64 {
	if !InsideBounds(v, fn) {
		return math.Inf(1)
	}

	x := v[0]
	y := v[1]
	return -(y+47)*sin(sqrt(abs(y+x/2+47))) - x*sin(sqrt(abs(x-(y+47))))
}

func (fn Eggholder) Bounds() (low, up []float64) {
	return []float64{-512, -512}, []float64{512, 512}
}

func (fn Eggholder) Optima() []flowopt.Point {
	return []flowopt.Point{
		flowopt.NewPoint([]float64{512, 404.2319}, -959.6407),
	}
}

type HolderTable struct{}

func (fn HolderTable) Name() string { return "HolderTable" }

func (fn HolderTable) Eval(v []float64) float64 {
	if !InsideBounds(v, fn) {
		return math.Inf(1)
	}

	x := v[0]
	y := v[1]
	return -abs(sin(x) * cos(y) * exp(abs(1-sqrt(x*x+y*y)/math.Pi)))
}

func (fn HolderTable) Bounds() (low, up []float64) {
	return []float64{-10, -10}, []float64{10, 10}
}

func (fn HolderTable) Optima() []flowopt.Point {
	return []flowopt.Point{
		flowopt.NewPoint([]float64{8.05502, 9.66459}, -19.2085),
		flowopt.NewPoint([]float64{-8.05502, 9.66459}, -19.2085),
		flowopt.NewPoint([]float64{8.05502, -9.66459}, -19.2085),
		flowopt.NewPoint([]float64{-8.05502, -9.66459}, -19.2085),
	}
}

type Styblinski struct {
	NDim int
}

func (fn Styblinski) Name() string { return fmt.Sprintf("Styblinski_%vD", fn.NDim) }

func (fn Styblinski) Eval(x []float64) float64 {
	if !InsideBounds(x, fn) {
		return math.Inf(1)
	}

	tot := 0.0
	for _, v := range x {
		tot += math.Pow(v, 4) - 16*math.Pow(v, 2) + 5*v
	}
	return tot / 2
}

func (fn Styblinski) Bounds() (low, up []float64) {
	low = make([]float64, fn.NDim)
	up = make([]float64, fn.NDim)
	for i := range low {
		low[i] = -5
		up[i] = 5
	}
	return low, up
}

func (fn Styblinski) Optima() []flowopt.Point {
	pos := make([]float64, fn.NDim)
	for i := range pos {
		pos[i] = -2.903534
	}
	return []flowopt.Point{
		flowopt.NewPoint(pos, -39.16599*float64(fn.NDim)),
	}
}

type Rosenbrock struct {
	NDim int
}

func (fn Rosenbrock) Name() string { return fmt.Sprintf("Rosenbrock_%vD", fn.NDim) }

func (fn Rosenbrock) Eval(x []float64) float64 {
	if !InsideBounds(x, fn) {
		return math.Inf(1)
	}

	tot := 0.0
	for i := 0; i < fn.NDim-1; i++ {
		tot += 100*math.Pow(x[i+1]-x[i]*x[i], 2) + math.Pow(x[i]-1, 2)
	}
	return tot
}

func (fn Rosenbrock) Bounds() (low, up []float64) {
	low = make([]float64, fn.NDim)
	up = make([]float64, fn.NDim)
	for i := range low {
		low[i] = -30
		up[i] = 30
	}
	return low, up
}

func (fn Rosenbrock) Optima() []flowopt.Point {
	pos := make([]float64, fn.NDim)
	for i := range pos {
		pos[i] = 1
	}
	return []flowopt.Point{
		flowopt.NewPoint(pos, 0),
	}
}

// Benchmark runs a fresh swarm of n particles against fn for niter
// iterations and reports whether the best score landed within tol of the
// known optimum (relative, with a 0.01 absolute floor).
func Benchmark(fn Func, n, niter int, tol float64, opts ...swarm.Option) (best flowopt.Point, neval int, ok bool, err error) {
	low, up := fn.Bounds()
	o, err := swarm.New(low, up, n, opts...)
	if err != nil {
		return flowopt.Point{}, 0, false, err
	}

	best, neval, err = o.Run(flowopt.SimpleObjectiver(fn.Eval), niter)
	if err != nil {
		return best, neval, false, err
	}

	optimum := fn.Optima()[0].Val
	thresh := tol * abs(optimum)
	if thresh < 0.01 {
		thresh = 0.01
	}
	return best, neval, abs(optimum-best.Val) < thresh, nil
}

func InsideBounds(p []float64, fn Func) bool {
	low, up := fn.Bounds()
	for i := range p {
		if p[i] < low[i] || p[i] > up[i] {
			return false
		}
	}
	return true
}
