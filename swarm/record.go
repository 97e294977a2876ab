package swarm

import (
	"encoding/csv"
	"io"
	"strconv"
)

// CSVRecorder returns a callback that appends one csv row per iteration:
// each particle's parameter vector followed by its score, flattened
// left to right.  With parameters (a, b) and two particles a row reads
// a1,b1,score1,a2,b2,score2.
func CSVRecorder(w io.Writer) Callback {
	cw := csv.NewWriter(w)
	return func(iter int, positions [][]float64, scores []float64) {
		row := make([]string, 0, len(positions)*(len(scores)+1))
		for i, pos := range positions {
			for _, v := range pos {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			}
			row = append(row, strconv.FormatFloat(scores[i], 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			// surfaced on Flush; the search must not stop for a log row
			return
		}
		cw.Flush()
	}
}

// History accumulates every iteration's particle state in memory, plus the
// running best score series, for plotting after the run.
type History struct {
	Iters     []int
	Positions [][][]float64
	Scores    [][]float64
	BestVals  []float64
}

// Record is a Callback.
func (h *History) Record(iter int, positions [][]float64, scores []float64) {
	h.Iters = append(h.Iters, iter)
	h.Positions = append(h.Positions, positions)
	h.Scores = append(h.Scores, scores)

	best := scores[0]
	for _, s := range scores[1:] {
		if s < best {
			best = s
		}
	}
	if n := len(h.BestVals); n > 0 && h.BestVals[n-1] < best {
		best = h.BestVals[n-1]
	}
	h.BestVals = append(h.BestVals, best)
}
