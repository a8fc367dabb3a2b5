// Package sweep runs a process over the probability grid: it builds the grid
// and the task list, fans the tasks out to a fixed pool of workers and appends
// the reduced results to the result files.
package sweep

import (
	"errors"
	"fmt"
	"math"

	"gossip-sim/pkg/logic"
)

var ErrInvalidStep = errors.New("invalid probability step")

// which probabilities of the grid are free
type GridMode int

const (
	// ps and pb both vary
	Full GridMode = iota
	// pb is fixed at 1.0
	FixedPb
)

// measured topologies sweep the forwarding probability only
func ModeFor(linkMode string) GridMode {
	switch linkMode {
	case "uu", "du", "dw":
		return FixedPb
	}
	return Full
}

func (m GridMode) String() string {
	if m == FixedPb {
		return "fixed-pb"
	}
	return "full"
}

// Values returns s, 2s, ... up to and including 1.0.  A last value that would
// overshoot 1.0 is clipped to exactly 1.0.
func Values(step float64) ([]float64, error) {
	if math.IsNaN(step) || step <= 0 || step > 1 {
		return nil, fmt.Errorf("%w: %v not in (0,1]", ErrInvalidStep, step)
	}
	const eps = 1e-9

	values := make([]float64, 0, int(math.Ceil(1/step)))
	for k := 1; ; k++ {
		v := float64(k) * step
		if v > 1+eps {
			break
		}
		// k*step accumulates representation error (3*0.1 != 0.3)
		values = append(values, math.Min(math.Round(v*1e12)/1e12, 1.0))
	}
	if values[len(values)-1] < 1.0 {
		values = append(values, 1.0)
	}
	return values, nil
}

// Points returns the grid of a run; for Full, ps is the outer coordinate
func Points(step float64, mode GridMode) ([]logic.Point, error) {
	values, err := Values(step)
	if err != nil {
		return nil, err
	}

	if mode == FixedPb {
		points := make([]logic.Point, len(values))
		for i, v := range values {
			points[i] = logic.Point{Ps: v, Pb: 1.0}
		}
		return points, nil
	}

	points := make([]logic.Point, 0, len(values)*len(values))
	for _, ps := range values {
		for _, pb := range values {
			points = append(points, logic.Point{Ps: ps, Pb: pb})
		}
	}
	return points, nil
}
