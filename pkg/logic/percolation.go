package logic

import (
	"math"

	model "gossip-sim/pkg/datamodel"
	"gossip-sim/pkg/stats"
	"gossip-sim/pkg/topology"

	logger "github.com/sirupsen/logrus"
)

// Percolation is the combined bond-site percolation process.  Every replication
// removes sites with probability 1-ps, then bonds with probability
// 1-pb*suppression, and measures the boundary corrected cluster sizes.
type Percolation struct {
	log *logger.Logger
}

func (p *Percolation) Init(log *logger.Logger) {
	p.log = log
}

func (p *Percolation) Name() string { return "percolation" }

func (p *Percolation) Outputs() []Output {
	return []Output{
		{File: "results-max", Description: "maximum cluster size"},
		{File: "results-mean", Description: "mean cluster size"},
	}
}

func (p *Percolation) Header() HeaderInfo {
	return HeaderInfo{
		Title: "Combined bond-site percolation process",
		Columns: []string{
			"Site occupation probability",
			"Bond occupation probability",
			"Mean cluster size calculated over all replications",
			"Calculated standard deviation of the cluster sizes",
			"Calculated 95% confidence interval (0.0 if missing)",
			"Number of data points/replications",
		},
	}
}

func (p *Percolation) Evaluate(g *topology.Graph, pt Point, params *Params, rng *model.Rand) []Outcome {
	maxSizes := make([]float64, 0, params.Replications)
	meanSizes := make([]float64, 0, params.Replications)

	for i := 0; i < params.Replications; i++ {
		maxFrac, meanFrac := Replicate(g, pt, params.Suppression, rng)
		maxSizes = append(maxSizes, maxFrac)
		meanSizes = append(meanSizes, meanFrac)
	}

	return []Outcome{
		{File: "results-max", Summary: stats.Reduce(maxSizes, 0), Count: params.Replications},
		{File: "results-mean", Summary: stats.Reduce(meanSizes, 0), Count: params.Replications},
	}
}

// Replicate runs one percolation trial on a copy of orig and returns the
// maximum and mean corrected cluster size as fractions of |orig|
func Replicate(orig *topology.Graph, pt Point, suppressor Suppressor, rng *model.Rand) (float64, float64) {
	if suppressor == nil {
		suppressor = NoSuppression{}
	}
	work := orig.Copy()
	RemoveSites(work, pt.Ps, rng)
	RemoveBonds(orig, work, pt.Pb, suppressor, rng)

	sizes := ClusterSizes(orig, work, pt.Pb)
	if len(sizes) == 0 || orig.Len() == 0 {
		return 0, 0
	}

	largest, total := 0, 0
	for _, s := range sizes {
		largest = max(largest, s)
		total += s
	}
	n := float64(orig.Len())
	mean := float64(total) / float64(len(sizes))
	return float64(largest) / n, mean / n
}

// removes every site whose draw exceeds ps
func RemoveSites(work *topology.Graph, ps float64, rng *model.Rand) {
	for _, id := range work.Nodes() {
		if rng.Float64() > ps {
			work.RemoveNode(id)
		}
	}
}

// removes every bond whose draw exceeds pb times its suppression factor.  The
// factor sees the sites removed so far.
func RemoveBonds(orig, work *topology.Graph, pb float64, suppressor Suppressor, rng *model.Rand) {
	for _, e := range work.Edges() {
		factor := suppressor.Factor(orig, work, e.From, e.To)
		if rng.Float64() > pb*factor {
			work.RemoveEdge(e.From, e.To)
		}
	}
}

// ClusterSizes returns the corrected size of every component of work: the
// component plus floor(|perimeter|*pb), where the perimeter are the neighbors in
// orig that are not part of the component.  Every size is at least the
// component size and at most |orig|.
func ClusterSizes(orig, work *topology.Graph, pb float64) []int {
	comps := work.Components()
	sizes := make([]int, 0, len(comps))
	for _, comp := range comps {
		inComp := make(map[int64]bool, len(comp))
		for _, id := range comp {
			inComp[id] = true
		}
		perimeter := make(map[int64]struct{})
		for _, id := range comp {
			for _, n := range orig.Adjacent(id) {
				if !inComp[n] {
					perimeter[n] = struct{}{}
				}
			}
		}
		sizes = append(sizes, len(comp)+int(math.Floor(float64(len(perimeter))*pb)))
	}
	return sizes
}
