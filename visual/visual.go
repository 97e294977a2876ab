// Package visual renders swarm run history to image files.
package visual

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/fluxsim/flowopt/swarm"
)

// Convergence plots the running best score against iteration number and
// saves the plot to path (format chosen by extension, e.g. .png or .svg).
func Convergence(hist *swarm.History, path string) error {
	if len(hist.Iters) == 0 {
		return fmt.Errorf("visual: history is empty")
	}

	xys := make(plotter.XYs, len(hist.Iters))
	for i, iter := range hist.Iters {
		xys[i].X = float64(iter)
		xys[i].Y = hist.BestVals[i]
	}

	p := plot.New()
	p.Title.Text = "Convergence"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "best score"

	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("visual: building convergence line: %w", err)
	}
	p.Add(plotter.NewGrid(), line)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("visual: saving %v: %w", path, err)
	}
	return nil
}

// ParticleScatter plots every particle position recorded at iteration index
// idx in history, projected onto dimensions dx and dy, and saves the plot
// to path.  For a one-dimensional search pass dx == dy.
func ParticleScatter(hist *swarm.History, idx, dx, dy int, path string) error {
	if idx < 0 || idx >= len(hist.Positions) {
		return fmt.Errorf("visual: iteration index %v outside recorded history (%v iterations)", idx, len(hist.Positions))
	}

	positions := hist.Positions[idx]
	xys := make(plotter.XYs, len(positions))
	for i, pos := range positions {
		if dx >= len(pos) || dy >= len(pos) {
			return fmt.Errorf("visual: dimension out of range for %v-dimensional positions", len(pos))
		}
		xys[i].X = pos[dx]
		xys[i].Y = pos[dy]
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Swarm at iteration %v", hist.Iters[idx])
	p.X.Label.Text = fmt.Sprintf("x%v", dx)
	p.Y.Label.Text = fmt.Sprintf("x%v", dy)

	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("visual: building scatter: %w", err)
	}
	p.Add(plotter.NewGrid(), sc)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("visual: saving %v: %w", path, err)
	}
	return nil
}
