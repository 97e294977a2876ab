package sim

import (
	"time"

	"k8s.io/utils/clock"
)

// Status is the outcome of waiting on a solve.
type Status int

const (
	// Converged means the solver finished and reports convergence.
	Converged Status = iota
	// NotConverged means the solver finished without convergence.
	NotConverged
	// TimedOut means the solver was still running when the deadline passed.
	TimedOut
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case NotConverged:
		return "not-converged"
	case TimedOut:
		return "timed-out"
	}
	return "unknown"
}

// Poller waits for an entity's solve to finish by checking Solving at a
// fixed interval up to a wall-clock deadline.  The clock is injectable so
// tests can drive the loop with a fake instead of sleeping.
type Poller struct {
	Interval time.Duration
	Timeout  time.Duration
	Clock    clock.Clock
}

// NewPoller returns a poller with the given interval and timeout using the
// real clock.
func NewPoller(interval, timeout time.Duration) Poller {
	return Poller{Interval: interval, Timeout: timeout, Clock: clock.RealClock{}}
}

// Wait blocks until e's solver finishes or the timeout elapses.  A TimedOut
// status is a normal outcome, not an error; the error return is reserved
// for oracle call failures.
func (p Poller) Wait(o Oracle, e Entity) (Status, error) {
	c := p.Clock
	if c == nil {
		c = clock.RealClock{}
	}
	deadline := c.Now().Add(p.Timeout)

	for {
		solving, err := o.Solving(e)
		if err != nil {
			return NotConverged, err
		}
		if !solving {
			conv, err := o.Converged(e)
			if err != nil {
				return NotConverged, err
			}
			if conv {
				return Converged, nil
			}
			return NotConverged, nil
		}
		if !c.Now().Before(deadline) {
			return TimedOut, nil
		}
		c.Sleep(p.Interval)
	}
}
