package topology

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	model "gossip-sim/pkg/datamodel"

	logger "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph/graphs/gen"
	"gonum.org/v1/gonum/graph/simple"
)

// GridProvider builds a single d-dimensional lattice with n^(1/d) nodes per side
type GridProvider struct {
	log *logger.Logger
}

func (gp *GridProvider) Init(log *logger.Logger) {
	gp.log = log
}

func (gp *GridProvider) Build(config *model.Config, rng *model.Rand) (*Topology, error) {
	d := config.Topology.Dimensions
	nodes := config.Topology.Nodes
	if d < 1 || nodes < 1 {
		return nil, fmt.Errorf("%w: grid needs positive dimensions and nodes", model.ErrInvalidConfig)
	}
	side := int(math.Round(math.Pow(float64(nodes), 1.0/float64(d))))
	if int(math.Pow(float64(side), float64(d))) != nodes {
		gp.log.Warnf("%d^%d != %d", side, d, nodes)
	}

	diameter := d * (side - 1)
	return &Topology{
		Type:       "grid",
		Graphs:     []*Graph{Lattice(side, d)},
		Nodes:      nodes,
		Dimensions: d,
		Diameter:   &diameter,
	}, nil
}

// Lattice returns the grid graph with `side` nodes in each of `d` dimensions.
// Nodes are named by their coordinates, e.g. "(0, 2)".
func Lattice(side, d int) *Graph {
	dims := make([]int, d)
	for i := range dims {
		dims[i] = side
	}
	total := 1
	for i := 0; i < d; i++ {
		total *= side
	}

	coords := func(idx int) []int {
		c := make([]int, d)
		for i := d - 1; i >= 0; i-- {
			c[i] = idx % side
			idx /= side
		}
		return c
	}
	names := make([]string, total)
	for idx := range names {
		parts := make([]string, d)
		for i, v := range coords(idx) {
			parts[i] = strconv.Itoa(v)
		}
		names[idx] = "(" + strings.Join(parts, ", ") + ")"
	}

	// links nodes at lattice distance 1 and adds no long range links
	lattice := simple.NewUndirectedGraph()
	if total > 1 {
		if err := gen.NavigableSmallWorld(lattice, dims, 1, 0, 0, nil); err != nil {
			panic(err)
		}
	}
	return fromGenerated(lattice, names)
}

// RandomProvider builds Erdős–Rényi graphs with the requested mean degree
type RandomProvider struct {
	log *logger.Logger
}

func (rp *RandomProvider) Init(log *logger.Logger) {
	rp.log = log
}

func (rp *RandomProvider) Build(config *model.Config, rng *model.Rand) (*Topology, error) {
	nodes := config.Topology.Nodes
	degree := config.Topology.Degree
	if nodes < 2 {
		return nil, fmt.Errorf("%w: random graph needs at least two nodes", model.ErrInvalidConfig)
	}
	// the expected number of edges is p*n*(n-1)/2 and should be degree*n/2
	p := degree * float64(nodes) / float64(nodes*(nodes-1))

	graphs := make([]*Graph, 0, config.Topology.Graphs)
	for i := 0; i < config.Topology.Graphs; i++ {
		g, err := connected(func() *Graph { return ErdosRenyi(nodes, p, rng) })
		if err != nil {
			return nil, err
		}
		rp.log.Debugf("random graph %d: %d nodes, mean degree %f", i, g.Len(), g.MeanDegree())
		graphs = append(graphs, g)
	}
	return &Topology{
		Type:   "random",
		Graphs: graphs,
		Nodes:  nodes,
		Degree: &degree,
	}, nil
}

// G(n, p), drawn from rng
func ErdosRenyi(n int, p float64, rng *model.Rand) *Graph {
	names := make([]string, n)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	g := simple.NewUndirectedGraph()
	if n > 1 && p > 0 {
		if err := gen.Gnp(g, n, math.Min(p, 1), rng); err != nil {
			panic(err)
		}
	}
	return fromGenerated(g, names)
}

// copies a generated graph with node ids 0..len(names)-1 into a Graph
func fromGenerated(src *simple.UndirectedGraph, names []string) *Graph {
	g := NewGraph(false, false)
	for _, name := range names {
		g.AddNode(name)
	}
	edges := src.Edges()
	for edges.Next() {
		e := edges.Edge()
		g.AddEdge(names[e.From().ID()], names[e.To().ID()], 1.0)
	}
	return g
}

// GeometricProvider places nodes uniformly in the unit hypercube and links
// those closer than range/size
type GeometricProvider struct {
	log *logger.Logger
}

func (gp *GeometricProvider) Init(log *logger.Logger) {
	gp.log = log
}

func (gp *GeometricProvider) Build(config *model.Config, rng *model.Rand) (*Topology, error) {
	topo := config.Topology
	if topo.Size <= 0 || topo.Dim < 1 || topo.Nodes < 1 {
		return nil, fmt.Errorf("%w: geometric graph needs positive size, dim and nodes", model.ErrInvalidConfig)
	}
	radius := topo.Range / topo.Size

	graphs := make([]*Graph, 0, topo.Graphs)
	for i := 0; i < topo.Graphs; i++ {
		g, err := connected(func() *Graph { return RandomGeometric(topo.Nodes, topo.Dim, radius, rng) })
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	return &Topology{
		Type:   "random geometric",
		Graphs: graphs,
		Fields: []Field{
			{Key: "range", Value: fmt.Sprintf("%f", topo.Range)},
			{Key: "size", Value: fmt.Sprintf("%f", topo.Size)},
		},
		Nodes: topo.Nodes,
	}, nil
}

func RandomGeometric(n, dim int, radius float64, rng *model.Rand) *Graph {
	g := NewGraph(false, false)
	pos := make([][]float64, n)
	for i := range pos {
		pos[i] = make([]float64, dim)
		for j := range pos[i] {
			pos[i][j] = rng.Float64()
		}
		g.AddNode(strconv.Itoa(i))
	}
	r2 := radius * radius
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dist := 0.0
			for k := 0; k < dim; k++ {
				delta := pos[i][k] - pos[j][k]
				dist += delta * delta
			}
			if dist <= r2 {
				g.AddEdge(strconv.Itoa(i), strconv.Itoa(j), 1.0)
			}
		}
	}
	return g
}
