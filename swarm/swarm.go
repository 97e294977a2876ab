// Package swarm implements a bound-constrained particle swarm optimizer
// driven by a single expensive objective.  Particles move under the
// standard inertia/cognition/social velocity rule, positions are clamped to
// the box bounds, and a movement tolerance skips re-evaluating particles
// that barely moved - each evaluation is a full simulation run, so
// near-duplicate calls are worth avoiding.
package swarm

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/fluxsim/flowopt"
)

const (
	DefaultInertia   = 0.5
	DefaultCognition = 0.5
	DefaultSocial    = 0.5

	// DefaultPtol is the per-dimension movement tolerance for the
	// evaluation-skip heuristic: a particle is re-evaluated only when every
	// dimension moved by more than this amount.
	DefaultPtol = 1e-4
)

type Particle struct {
	Id int
	flowopt.Point
	Vel  []float64
	Best flowopt.Point
}

// Move updates the particle's velocity and position toward its personal
// best and gbest, clamping the new position into [low, up] per dimension.
// It reports whether the particle moved more than ptol in every dimension,
// i.e. whether the new position is worth a fresh evaluation.  The previous
// score is carried on the new position either way; evaluation overwrites
// it.
func (p *Particle) Move(gbest flowopt.Point, low, up []float64, inertia, cognition, social, ptol float64) bool {
	pos := p.Pos()
	for i, currv := range p.Vel {
		// r1 and r2 must be drawn fresh for every dimension.
		r1 := flowopt.RandFloat()
		r2 := flowopt.RandFloat()
		p.Vel[i] = inertia*currv +
			cognition*r1*(p.Best.At(i)-pos[i]) +
			social*r2*(gbest.At(i)-pos[i])
	}

	moved := true
	for i := range pos {
		next := pos[i] + p.Vel[i]
		if next < low[i] {
			next = low[i]
		} else if next > up[i] {
			next = up[i]
		}
		if math.Abs(next-pos[i]) <= ptol {
			moved = false
		}
		pos[i] = next
	}

	p.Point = flowopt.NewPoint(pos, p.Val)
	return moved
}

// Update records a fresh score, advancing the personal best when improved.
func (p *Particle) Update(newp flowopt.Point) {
	p.Val = newp.Val
	if p.Val < p.Best.Val {
		p.Best = newp
	}
}

type Population []*Particle

// NewPopulation creates n particles with positions uniform inside the box
// bounds and velocities uniform in ±(up-low) per dimension.
// flowopt.Rand is used for random numbers.
func NewPopulation(n int, low, up []float64) Population {
	span := make([]float64, len(low))
	floats.SubTo(span, up, low)

	pop := make(Population, n)
	for i := 0; i < n; i++ {
		pos := make([]float64, len(low))
		vel := make([]float64, len(low))
		for j := range pos {
			pos[j] = low[j] + flowopt.RandFloat()*span[j]
			vel[j] = span[j] * (1 - 2*flowopt.RandFloat())
		}
		p := flowopt.NewPoint(pos, math.Inf(1))
		pop[i] = &Particle{Id: i, Point: p, Best: p, Vel: vel}
	}
	return pop
}

func (pop Population) Points() []flowopt.Point {
	points := make([]flowopt.Point, 0, len(pop))
	for _, p := range pop {
		points = append(points, p.Point)
	}
	return points
}

// Positions returns a copy of every particle's current position.
func (pop Population) Positions() [][]float64 {
	out := make([][]float64, len(pop))
	for i, p := range pop {
		out[i] = p.Pos()
	}
	return out
}

// Scores returns every particle's current score.
func (pop Population) Scores() []float64 {
	out := make([]float64, len(pop))
	for i, p := range pop {
		out[i] = p.Val
	}
	return out
}

// Best returns the particle with the lowest personal-best score.
func (pop Population) Best() *Particle {
	if len(pop) == 0 {
		return nil
	}
	best := pop[0]
	for _, p := range pop[1:] {
		if p.Best.Val < best.Best.Val {
			best = p
		}
	}
	return best
}

// Callback observes one completed iteration.  Positions and scores are
// copies in registry order; mutating them has no effect on the swarm.
type Callback func(iter int, positions [][]float64, scores []float64)

type Option func(*Optimizer)

// Evaler replaces the default serial evaluator, e.g. with a
// flowopt.CacheEvaler to memoize repeated positions.
func Evaler(ev flowopt.Evaler) Option {
	return func(o *Optimizer) { o.Ev = ev }
}

// Coeffs sets the inertia, cognition, and social velocity coefficients.
func Coeffs(inertia, cognition, social float64) Option {
	return func(o *Optimizer) {
		o.Inertia = inertia
		o.Cognition = cognition
		o.Social = social
	}
}

// Ptol sets the evaluation-skip movement tolerance.
func Ptol(tol float64) Option {
	return func(o *Optimizer) { o.Ptol = tol }
}

// DB enables per-iteration logging of particle state to db.
func DB(db *sql.DB) Option {
	return func(o *Optimizer) { o.Db = db }
}

// OnIteration registers an observer invoked after each full iteration.
// Observer panics are logged and never abort the search.
func OnIteration(cb Callback) Option {
	return func(o *Optimizer) { o.callbacks = append(o.callbacks, cb) }
}

func Logger(l *zap.Logger) Option {
	return func(o *Optimizer) { o.Log = l }
}

// Optimizer owns the swarm state for one search.
type Optimizer struct {
	Pop     Population
	Low, Up []float64
	Ev      flowopt.Evaler

	Inertia   float64
	Cognition float64
	Social    float64
	Ptol      float64
	Db        *sql.DB
	Log       *zap.Logger

	callbacks []Callback
	runid     string
	best      flowopt.Point
	count     int
	neval     int
	seeded    bool
}

// New builds an optimizer over a fresh n-particle population inside the
// given bounds.  Bounds must satisfy low[i] < up[i] in every dimension.
func New(low, up []float64, n int, opts ...Option) (*Optimizer, error) {
	if len(low) != len(up) || len(low) == 0 {
		return nil, fmt.Errorf("swarm: bound vectors must be same nonzero length (got %d and %d)", len(low), len(up))
	}
	for i := range low {
		if low[i] >= up[i] {
			return nil, fmt.Errorf("swarm: dimension %d: lower bound %v must be below upper bound %v", i, low[i], up[i])
		}
	}
	if n < 1 {
		return nil, fmt.Errorf("swarm: population size %d must be positive", n)
	}

	o := &Optimizer{
		Pop:       NewPopulation(n, low, up),
		Low:       append([]float64{}, low...),
		Up:        append([]float64{}, up...),
		Ev:        flowopt.SerialEvaler{ContinueOnErr: true},
		Inertia:   DefaultInertia,
		Cognition: DefaultCognition,
		Social:    DefaultSocial,
		Ptol:      DefaultPtol,
		Log:       zap.NewNop(),
		runid:     uuid.NewString(),
		best:      flowopt.NewPoint(make([]float64, len(low)), math.Inf(1)),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}

	if err := o.initdb(); err != nil {
		return nil, err
	}
	return o, nil
}

// Best returns the global-best point found so far.
func (o *Optimizer) Best() flowopt.Point { return o.best }

// RunID identifies this search in the iteration database.
func (o *Optimizer) RunID() string { return o.runid }

// Run executes exactly niter iterations and returns the global best, along
// with the total number of objective evaluations.  The initial population
// is evaluated unconditionally, once, before the first iteration;
// iteration count is the only termination condition.
func (o *Optimizer) Run(obj flowopt.Objectiver, niter int) (best flowopt.Point, neval int, err error) {
	if !o.seeded {
		if err := o.seed(obj); err != nil {
			return o.best, o.neval, err
		}
	}
	for i := 0; i < niter; i++ {
		if err := o.step(obj); err != nil {
			return o.best, o.neval, err
		}
	}
	return o.best, o.neval, nil
}

// seed scores every particle's initial position to establish personal
// bests and the starting global best.
func (o *Optimizer) seed(obj flowopt.Objectiver) error {
	results, n, err := o.Ev.Eval(obj, o.Pop.Points()...)
	o.neval += n
	if err != nil {
		o.Log.Warn("evaluation error during seeding", zap.Error(err))
	}
	for i, res := range results {
		o.Pop[i].Val = res.Val
		o.Pop[i].Best = res
	}

	o.best = o.Pop[floats.MinIdx(o.Pop.Scores())].Best
	o.seeded = true

	o.Log.Info("swarm seeded",
		zap.String("run", o.runid),
		zap.Int("particles", len(o.Pop)),
		zap.Float64("best", o.best.Val),
	)
	return nil
}

// step runs one full iteration: move every particle, evaluate the ones
// that moved beyond tolerance, and fold results into the bests.
//
// Particles whose movement stayed within tolerance in any dimension keep
// their previous score at the new position.  That reused score can be
// stale if the objective still changes under sub-tolerance motion; this is
// an intentional trade against redundant simulation runs, inherited
// behavior rather than a guarantee.
func (o *Optimizer) step(obj flowopt.Objectiver) error {
	o.count++

	evalIdx := make([]int, 0, len(o.Pop))
	for i, p := range o.Pop {
		if p.Move(o.best, o.Low, o.Up, o.Inertia, o.Cognition, o.Social, o.Ptol) {
			evalIdx = append(evalIdx, i)
		}
	}

	points := make([]flowopt.Point, len(evalIdx))
	for i, idx := range evalIdx {
		points[i] = o.Pop[idx].Point
	}
	results, n, err := o.Ev.Eval(obj, points...)
	o.neval += n
	if err != nil {
		o.Log.Warn("evaluation error", zap.Int("iter", o.count), zap.Error(err))
	}

	// Bests update sequentially: an improvement becomes the global best
	// immediately, not batched to the end of the iteration.
	for i, res := range results {
		p := o.Pop[evalIdx[i]]
		p.Update(res)
		if p.Best.Val < o.best.Val {
			o.best = p.Best
		}
	}

	if err := o.updatedb(); err != nil {
		return err
	}
	o.notify()

	o.Log.Info("iteration complete",
		zap.String("run", o.runid),
		zap.Int("iter", o.count),
		zap.Int("evaluated", len(results)),
		zap.Int("skipped", len(o.Pop)-len(evalIdx)),
		zap.Float64("best", o.best.Val),
		zap.Float64s("bestpos", o.best.Pos()),
	)
	return nil
}

func (o *Optimizer) notify() {
	for _, cb := range o.callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					o.Log.Error("iteration callback panicked",
						zap.Int("iter", o.count),
						zap.Any("panic", r),
					)
				}
			}()
			cb(o.count, o.Pop.Positions(), o.Pop.Scores())
		}()
	}
}
