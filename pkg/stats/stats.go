// Package stats reduces the observations of one grid point to the summary that
// ends up in a result line.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// z value of the two sided 95% interval
const z95 = 1.96

type Summary struct {
	Mean   float64
	Std    float64
	Conf95 float64
	N      int
}

// Reduce computes mean, population standard deviation and the 95% confidence
// half-width of obs.
//
// With a single observation Std is 0 and Conf95 is `single`.
func Reduce(obs []float64, single float64) Summary {
	n := len(obs)
	switch n {
	case 0:
		return Summary{}
	case 1:
		return Summary{Mean: obs[0], Conf95: single, N: 1}
	}

	mean, std := stat.PopMeanStdDev(obs, nil)
	return Summary{
		Mean:   mean,
		Std:    std,
		Conf95: z95 * std / math.Sqrt(float64(n)),
		N:      n,
	}
}
