package visual_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxsim/flowopt"
	"github.com/fluxsim/flowopt/swarm"
	"github.com/fluxsim/flowopt/visual"
)

func runHistory(t *testing.T) *swarm.History {
	t.Helper()
	flowopt.SetSeed(5)

	hist := &swarm.History{}
	o, err := swarm.New([]float64{0, 0}, []float64{10, 10}, 8, swarm.OnIteration(hist.Record))
	require.NoError(t, err)

	_, _, err = o.Run(flowopt.SimpleObjectiver(func(x []float64) float64 {
		return (x[0]-5)*(x[0]-5) + (x[1]-5)*(x[1]-5)
	}), 10)
	require.NoError(t, err)
	return hist
}

func TestConvergence(t *testing.T) {
	hist := runHistory(t)
	path := filepath.Join(t.TempDir(), "conv.png")

	require.NoError(t, visual.Convergence(hist, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestConvergenceEmptyHistory(t *testing.T) {
	err := visual.Convergence(&swarm.History{}, filepath.Join(t.TempDir(), "conv.png"))
	require.Error(t, err)
}

func TestParticleScatter(t *testing.T) {
	hist := runHistory(t)
	path := filepath.Join(t.TempDir(), "scatter.png")

	require.NoError(t, visual.ParticleScatter(hist, len(hist.Iters)-1, 0, 1, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestParticleScatterBadIndex(t *testing.T) {
	hist := runHistory(t)
	err := visual.ParticleScatter(hist, len(hist.Iters), 0, 1, filepath.Join(t.TempDir(), "scatter.png"))
	require.Error(t, err)
}
