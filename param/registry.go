package param

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/fluxsim/flowopt/sim"
)

// Registry owns the ordered list of decision variables for one optimizer
// session.  Vector order is registration order everywhere: bounds, current
// values, and applies all use the same indexing.
type Registry struct {
	oracle sim.Oracle
	log    *zap.Logger

	params []*Parameter
	byName map[string]*Parameter
	last   []float64
}

func NewRegistry(o sim.Oracle, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		oracle: o,
		log:    log,
		byName: map[string]*Parameter{},
	}
}

// Register validates p and appends it to the registry.  Names compare
// case-insensitively; bounds must satisfy lower < upper.
func (r *Registry) Register(p *Parameter) error {
	if p.Name == "" {
		return configf("parameter has no name")
	}
	if p.Lower >= p.Upper {
		return configf("parameter %q: lower bound %v must be below upper bound %v", p.Name, p.Lower, p.Upper)
	}
	key := strings.ToLower(p.Name)
	if _, ok := r.byName[key]; ok {
		return configf("parameter %q already registered", p.Name)
	}
	if p.Handle == nil {
		return configf("parameter %q has no external setter", p.Name)
	}

	switch p.Kind {
	case Scalar:
	case FeedFraction:
		if p.Lower < 0 || p.Upper > 1 {
			return configf("feed fraction %q: bounds [%v, %v] must lie in [0, 1]", p.Name, p.Lower, p.Upper)
		}
		if p.Stages == nil {
			return configf("feed fraction %q has no stage-count resolver", p.Name)
		}
	case LinkedPressure:
		if p.Bottom == nil {
			return configf("linked pressure %q has no bottom-pressure setter", p.Name)
		}
		if p.Stages == nil {
			return configf("linked pressure %q has no stage-count resolver", p.Name)
		}
		if p.Drop == nil {
			p.Drop = DefaultPressureDrop
		}
	default:
		return configf("parameter %q has unknown kind %d", p.Name, p.Kind)
	}

	r.params = append(r.params, p)
	r.byName[key] = p
	r.log.Info("registered parameter",
		zap.String("name", p.Name),
		zap.Stringer("kind", p.Kind),
		zap.Float64("lower", p.Lower),
		zap.Float64("upper", p.Upper),
		zap.String("unit", p.Unit),
	)
	return nil
}

// Scalar registers a plain bounded variable pushed directly to h.
func (r *Registry) Scalar(name string, lower, upper float64, unit string, h sim.Handle) error {
	return r.Register(&Parameter{
		Name: name, Lower: lower, Upper: upper,
		Kind: Scalar, Unit: unit, Handle: h,
	})
}

// FeedFraction registers a feed-stage location as a fraction of the
// column's current stage count.  stream identifies which feed the stage
// spec applies to; stages is re-resolved on every apply.
func (r *Registry) FeedFraction(name string, lower, upper float64, h, stream sim.Handle, stages StageCountFunc) error {
	return r.Register(&Parameter{
		Name: name, Lower: lower, Upper: upper,
		Kind: FeedFraction, Handle: h, Stream: stream, Stages: stages,
	})
}

// LinkedPressure registers a column top pressure whose bottom pressure is
// derived via drop and pushed to bottom on every apply.  A nil drop uses
// DefaultPressureDrop.
func (r *Registry) LinkedPressure(name string, lower, upper float64, unit string, top, bottom sim.Handle, stages StageCountFunc, condDP, rebDP ReadFunc, drop DropFunc) error {
	return r.Register(&Parameter{
		Name: name, Lower: lower, Upper: upper,
		Kind: LinkedPressure, Unit: unit, Handle: top,
		Bottom: bottom, Stages: stages,
		CondenserDP: condDP, ReboilerDP: rebDP, Drop: drop,
	})
}

func (r *Registry) Len() int { return len(r.params) }

// Params returns the registered parameters in vector order.
func (r *Registry) Params() []*Parameter {
	return append([]*Parameter{}, r.params...)
}

// Names returns the parameter names in vector order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.params))
	for i, p := range r.params {
		names[i] = p.Name
	}
	return names
}

// Bounds returns the per-dimension lower and upper bounds in vector order.
func (r *Registry) Bounds() (low, up []float64) {
	low = make([]float64, len(r.params))
	up = make([]float64, len(r.params))
	for i, p := range r.params {
		low[i] = p.Lower
		up[i] = p.Upper
	}
	return low, up
}

// CurrentVector returns the last-known value of every parameter in vector
// order.  Feed-fraction components are fractions, not stage indices.
func (r *Registry) CurrentVector() []float64 {
	x := make([]float64, len(r.params))
	for i, p := range r.params {
		x[i] = p.value
	}
	return x
}

// ApplyVector pushes each component of x to its parameter's external
// setter.  Feed-fraction stage counts and linked-pressure drops are
// resolved fresh on every call: both may depend on other components of the
// same vector (e.g. an optimized tray count), so nothing here is cached.
// On success the vector is retained for CurrentVector and RestoreLast.
func (r *Registry) ApplyVector(x []float64) error {
	if len(x) != len(r.params) {
		return fmt.Errorf("apply: vector has %d components, registry has %d parameters", len(x), len(r.params))
	}

	for i, p := range r.params {
		switch p.Kind {
		case Scalar:
			if err := r.oracle.Apply(p.Handle, x[i], p.Unit); err != nil {
				return fmt.Errorf("apply %q: %w", p.Name, err)
			}

		case FeedFraction:
			n, err := p.Stages()
			if err != nil {
				return fmt.Errorf("apply %q: resolving stage count: %w", p.Name, err)
			}
			stage := math.Round(x[i] * float64(n))
			if err := r.oracle.Apply(p.Handle, stage, "stage"); err != nil {
				return fmt.Errorf("apply %q: %w", p.Name, err)
			}

		case LinkedPressure:
			if err := r.oracle.Apply(p.Handle, x[i], p.Unit); err != nil {
				return fmt.Errorf("apply %q: %w", p.Name, err)
			}
			n, err := p.Stages()
			if err != nil {
				return fmt.Errorf("apply %q: resolving stage count: %w", p.Name, err)
			}
			condDP, rebDP, err := p.readDrops()
			if err != nil {
				return fmt.Errorf("apply %q: %w", p.Name, err)
			}
			bottom := p.Drop(x[i], n, condDP, rebDP)
			if err := r.oracle.Apply(p.Bottom, bottom, p.Unit); err != nil {
				return fmt.Errorf("apply %q: bottom pressure: %w", p.Name, err)
			}
		}
	}

	for i, p := range r.params {
		p.value = x[i]
	}
	r.last = append(r.last[:0], x...)
	return nil
}

// RestoreLast re-applies the last successfully applied vector.  The
// orchestration layer calls this to put the simulation back into a known
// state after an interrupted run.
func (r *Registry) RestoreLast() error {
	if r.last == nil {
		return fmt.Errorf("restore: no vector has been applied yet")
	}
	return r.ApplyVector(append([]float64{}, r.last...))
}

func (p *Parameter) readDrops() (condDP, rebDP float64, err error) {
	if p.CondenserDP != nil {
		if condDP, err = p.CondenserDP(); err != nil {
			return 0, 0, fmt.Errorf("reading condenser pressure drop: %w", err)
		}
	}
	if p.ReboilerDP != nil {
		if rebDP, err = p.ReboilerDP(); err != nil {
			return 0, 0, fmt.Errorf("reading reboiler pressure drop: %w", err)
		}
	}
	return condDP, rebDP, nil
}
