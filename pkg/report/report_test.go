package report

import (
	"os"
	"path/filepath"
	"testing"

	"gossip-sim/pkg/logic"
	"gossip-sim/pkg/stats"
	"gossip-sim/pkg/sweep"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records() []*sweep.Record {
	var out []*sweep.Record
	run := 0
	for _, ps := range []float64{1.0, 0.5} {
		for _, pb := range []float64{0.5, 1.0} {
			out = append(out, &sweep.Record{
				Run:     run,
				Point:   logic.Point{Ps: ps, Pb: pb},
				Summary: stats.Summary{Mean: ps * pb, Conf95: 0.1},
				Count:   4,
				Extra:   &stats.Summary{Mean: 10 * ps, Conf95: 1},
			})
			run++
		}
	}
	return out
}

func TestCurves(t *testing.T) {
	xys, errs := Curves(records(), false)
	require.Len(t, xys, 2)
	line := xys[0.5]
	require.Len(t, line, 2)
	assert.Equal(t, 0.5, line[0].X)
	assert.Equal(t, 0.25, line[0].Y)
	assert.Equal(t, 1.0, line[1].X)
	assert.Equal(t, 0.1, errs[0.5][0].Low)

	xys, _ = Curves(records(), true)
	assert.Equal(t, 10.0, xys[1.0][1].Y)
}

func TestPlot(t *testing.T) {
	out := filepath.Join(t.TempDir(), "results.png")
	require.NoError(t, Plot(records(), out, Options{Title: "percolation"}))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	err = Plot(records(), out, Options{Pb: []float64{0.3}})
	assert.ErrorIs(t, err, ErrNoRecords)

	err = Plot(nil, out, Options{})
	assert.ErrorIs(t, err, ErrNoRecords)
}
