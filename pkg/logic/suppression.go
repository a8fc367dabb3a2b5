package logic

import (
	"fmt"
	"strconv"
	"strings"

	"gossip-sim/pkg/topology"
)

// Suppressor scales the bond probability of an edge by how many sites of its
// vicinity cluster are still open.  The vicinity cluster of u -- v is the union
// of the neighbors of u and v in the original graph.
type Suppressor interface {
	Factor(orig, work *topology.Graph, u, v int64) float64
	Mode() string
	Params() []float64
}

// ParseSuppression returns the suppressor for `none`, `linear [max]` or
// `triangular best [max]`
func ParseSuppression(mode string, params []float64) (Suppressor, error) {
	switch mode {
	case "", "none":
		return NoSuppression{}, nil
	case "linear":
		s := &LinearSuppression{}
		if len(params) > 0 {
			s.Max = params[0]
			s.HasMax = true
		}
		return s, nil
	case "triangular":
		if len(params) < 1 {
			return nil, fmt.Errorf("%w: triangular needs the best number of open sites", ErrUnknownSuppression)
		}
		s := &TriangularSuppression{Best: params[0]}
		if len(params) > 1 {
			s.Max = params[1]
			s.HasMax = true
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownSuppression, mode)
}

// formats params the way the result headers show them
func FormatParams(params []float64) string {
	s := make([]string, len(params))
	for i, p := range params {
		s[i] = strconv.FormatFloat(p, 'f', -1, 64)
	}
	return strings.Join(s, ",")
}

type NoSuppression struct{}

func (NoSuppression) Factor(orig, work *topology.Graph, u, v int64) float64 { return 1.0 }
func (NoSuppression) Mode() string                                         { return "none" }
func (NoSuppression) Params() []float64                                    { return nil }

// 1 - open/max, so crowded neighborhoods lose more bonds
type LinearSuppression struct {
	Max    float64
	HasMax bool
}

func (s *LinearSuppression) Factor(orig, work *topology.Graph, u, v int64) float64 {
	open, total := vicinity(orig, work, u, v)
	limit := float64(total)
	if s.HasMax {
		limit = s.Max
	}
	if limit <= 0 {
		return 1.0
	}
	return 1.0 - min(float64(open)/limit, 1.0)
}

func (s *LinearSuppression) Mode() string { return "linear" }

func (s *LinearSuppression) Params() []float64 {
	if s.HasMax {
		return []float64{s.Max}
	}
	return nil
}

// rises to 1 at `Best` open sites and falls to 0 at `Max`
type TriangularSuppression struct {
	Best   float64
	Max    float64
	HasMax bool
}

func (s *TriangularSuppression) Factor(orig, work *topology.Graph, u, v int64) float64 {
	open, total := vicinity(orig, work, u, v)
	n := float64(open)
	limit := float64(total)
	if s.HasMax {
		limit = s.Max
	}

	switch {
	case n < s.Best:
		return n / s.Best
	case n > s.Best:
		if limit <= s.Best {
			return 0.0
		}
		return 1.0 - min((n-s.Best)/(limit-s.Best), 1.0)
	}
	return 1.0
}

func (s *TriangularSuppression) Mode() string { return "triangular" }

func (s *TriangularSuppression) Params() []float64 {
	if s.HasMax {
		return []float64{s.Best, s.Max}
	}
	return []float64{s.Best}
}

// number of open sites and size of the vicinity cluster of u -- v
func vicinity(orig, work *topology.Graph, u, v int64) (int, int) {
	cluster := make(map[int64]struct{})
	for _, end := range []int64{u, v} {
		for _, n := range orig.Adjacent(end) {
			cluster[n] = struct{}{}
		}
	}
	open := 0
	for n := range cluster {
		if work.HasNode(n) {
			open++
		}
	}
	return open, len(cluster)
}
