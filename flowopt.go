// Package flowopt provides the optimization kernel used to minimize the
// total annualized cost of an external process simulation.  The root
// package holds the algorithm-agnostic pieces: candidate points, objective
// and evaluator interfaces, and the infeasible-score sentinel.  The swarm
// package implements the search itself.
package flowopt

import (
	"crypto/sha1"
	"encoding/binary"
	"math"

	"go.uber.org/zap"
)

// Infeasible is the score reported for candidate vectors the simulation
// could not evaluate: the solver timed out, failed to converge, or produced
// a non-finite cost.  It is a large finite value rather than +Inf so that
// swarm arithmetic on scores stays well behaved, and it is deliberately not
// an error - the search must keep moving through infeasible regions.
const Infeasible = 1e9

type Point struct {
	pos []float64
	Val float64
}

func NewPoint(pos []float64, val float64) Point {
	cpos := make([]float64, len(pos))
	copy(cpos, pos)
	return Point{pos: cpos, Val: val}
}

func (p Point) At(i int) float64 { return p.pos[i] }

func (p Point) Len() int { return len(p.pos) }

func (p Point) Pos() []float64 {
	pos := make([]float64, len(p.pos))
	copy(pos, p.pos)
	return pos
}

func hashPoint(p Point) [sha1.Size]byte {
	data := make([]byte, p.Len()*8)
	for i := 0; i < p.Len(); i++ {
		binary.BigEndian.PutUint64(data[i*8:], math.Float64bits(p.At(i)))
	}
	return sha1.Sum(data)
}

type Objectiver interface {
	// Objective evaluates the variables in v and returns the objective
	// function value.  The objective function must be framed so that lower
	// values are better.  Evaluations that fail in a recoverable way (e.g.
	// the simulation did not converge) should return Infeasible with a nil
	// error; a non-nil error marks the evaluation itself as broken.
	Objective(v []float64) (float64, error)
}

type Evaler interface {
	// Eval evaluates each point using obj and returns the values and number
	// of function evaluations n.  Unevaluated points should not be returned
	// in the results slice.
	Eval(obj Objectiver, points ...Point) (results []Point, n int, err error)
}

type SimpleObjectiver func([]float64) float64

func (so SimpleObjectiver) Objective(v []float64) (float64, error) { return so(v), nil }

// SerialEvaler evaluates points one at a time, in order.  The oracle behind
// the objective is a single stateful simulation instance, so evaluations
// must never overlap; this is the only evaler safe to use against it.
type SerialEvaler struct {
	ContinueOnErr bool
}

func (ev SerialEvaler) Eval(obj Objectiver, points ...Point) (results []Point, n int, err error) {
	results = make([]Point, 0, len(points))
	for _, p := range points {
		p.Val, err = obj.Objective(p.Pos())
		results = append(results, p)
		if err != nil && !ev.ContinueOnErr {
			return results, len(results), err
		}
	}
	return results, len(results), nil
}

// CacheEvaler wraps another evaler and memoizes scores by exact position so
// that re-visited points never cost a second simulation run.
type CacheEvaler struct {
	ev    Evaler
	cache map[[sha1.Size]byte]float64
	// UseCount reports how many evaluations were served from the cache.
	UseCount int
}

func NewCacheEvaler(ev Evaler) *CacheEvaler {
	return &CacheEvaler{
		ev:    ev,
		cache: map[[sha1.Size]byte]float64{},
	}
}

func (ev *CacheEvaler) Eval(obj Objectiver, points ...Point) (results []Point, n int, err error) {
	fromnew := make([]int, 0, len(points))
	newp := make([]Point, 0, len(points))
	for i, p := range points {
		if val, ok := ev.cache[hashPoint(p)]; ok {
			points[i].Val = val
			ev.UseCount++
		} else {
			fromnew = append(fromnew, i)
			newp = append(newp, p)
		}
	}

	newresults, n, err := ev.ev.Eval(obj, newp...)
	for _, p := range newresults {
		ev.cache[hashPoint(p)] = p.Val
	}

	for i, p := range newresults {
		points[fromnew[i]].Val = p.Val
	}

	// shrink if an error resulted in fewer new results being returned
	if len(newresults) < len(newp) {
		points = points[:fromnew[len(newresults)-1]+1]
	}

	return points, n, err
}

// ObjectiveLogger wraps an objective and logs every evaluation.
type ObjectiveLogger struct {
	Objectiver
	Log   *zap.Logger
	Count int
}

func NewObjectiveLogger(obj Objectiver, log *zap.Logger) *ObjectiveLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ObjectiveLogger{Objectiver: obj, Log: log}
}

func (ol *ObjectiveLogger) Objective(v []float64) (float64, error) {
	val, err := ol.Objectiver.Objective(v)
	ol.Count++
	ol.Log.Info("objective evaluated",
		zap.Int("neval", ol.Count),
		zap.Float64s("x", v),
		zap.Float64("val", val),
		zap.Error(err),
	)
	return val, err
}
