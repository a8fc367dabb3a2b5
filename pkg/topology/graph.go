package topology

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// the operations both gonum weighted graph flavours have in common
type backend interface {
	graph.Weighted
	graph.WeightedBuilder
	graph.NodeRemover
	graph.EdgeRemover
}

// An Edge of a graph.  For undirected graphs From < To.
type Edge struct {
	From   int64
	To     int64
	Weight float64
}

// Graph is a network topology.  Node ids are dense int64 values handed out by
// AddNode; the names are the opaque identifiers of the provider (host names,
// grid coordinates, ...).  Every edge carries a weight, which is the packet
// delivery ratio for measured topologies and 1 otherwise.
//
// A Graph handed to a replication is never modified; replications call Copy
// and mutate the copy.
type Graph struct {
	g        backend
	directed bool
	weighted bool

	// shared between copies; only written while the base graph is built
	names map[int64]string
	ids   map[string]int64
}

func newBackend(directed bool) backend {
	if directed {
		return simple.NewWeightedDirectedGraph(0, 0)
	}
	return simple.NewWeightedUndirectedGraph(0, 0)
}

func NewGraph(directed, weighted bool) *Graph {
	return &Graph{
		g:        newBackend(directed),
		directed: directed,
		weighted: weighted,
		names:    make(map[int64]string),
		ids:      make(map[string]int64),
	}
}

// adds a node (if it is not there yet) and returns its id
func (g *Graph) AddNode(name string) int64 {
	if id, ok := g.ids[name]; ok {
		return id
	}
	id := int64(len(g.names))
	g.names[id] = name
	g.ids[name] = id
	g.g.AddNode(simple.Node(id))
	return id
}

// adds the edge u -> v (u -- v if undirected), adding missing nodes.  Self
// loops are ignored.
func (g *Graph) AddEdge(u, v string, weight float64) {
	uid := g.AddNode(u)
	vid := g.AddNode(v)
	if uid == vid {
		return
	}
	g.g.SetWeightedEdge(g.g.NewWeightedEdge(simple.Node(uid), simple.Node(vid), weight))
}

func (g *Graph) Directed() bool { return g.directed }
func (g *Graph) Weighted() bool { return g.weighted }

func (g *Graph) Name(id int64) string { return g.names[id] }

func (g *Graph) ID(name string) (int64, bool) {
	id, ok := g.ids[name]
	return id, ok
}

// number of nodes
func (g *Graph) Len() int {
	return g.g.Nodes().Len()
}

func (g *Graph) HasNode(id int64) bool {
	return g.g.Node(id) != nil
}

func (g *Graph) HasEdge(u, v int64) bool {
	if g.directed {
		return g.g.(graph.Directed).HasEdgeFromTo(u, v)
	}
	return g.g.HasEdgeBetween(u, v)
}

// weight of the edge u -> v
func (g *Graph) Weight(u, v int64) (float64, bool) {
	if u == v || !g.HasEdge(u, v) {
		return 0, false
	}
	return g.g.Weight(u, v)
}

// all node ids in ascending order
func (g *Graph) Nodes() []int64 {
	return sortedIDs(g.g.Nodes())
}

// the nodes that u can transmit to, in ascending order
func (g *Graph) Neighbors(u int64) []int64 {
	return sortedIDs(g.g.From(u))
}

// the nodes connected to u in either direction, in ascending order
func (g *Graph) Adjacent(u int64) []int64 {
	if !g.directed {
		return g.Neighbors(u)
	}
	seen := make(map[int64]struct{})
	for _, it := range []graph.Nodes{g.g.From(u), g.g.(graph.Directed).To(u)} {
		for it.Next() {
			seen[it.Node().ID()] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// all edges in a deterministic order
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0)
	for _, u := range g.Nodes() {
		for _, v := range g.Neighbors(u) {
			if !g.directed && v < u {
				continue
			}
			w, _ := g.g.Weight(u, v)
			edges = append(edges, Edge{From: u, To: v, Weight: w})
		}
	}
	return edges
}

func (g *Graph) RemoveNode(id int64) {
	g.g.RemoveNode(id)
}

func (g *Graph) RemoveEdge(u, v int64) {
	g.g.RemoveEdge(u, v)
}

// returns an independently mutable copy; node names are shared
func (g *Graph) Copy() *Graph {
	dst := newBackend(g.directed)
	graph.CopyWeighted(dst, g.g)
	return &Graph{
		g:        dst,
		directed: g.directed,
		weighted: g.weighted,
		names:    g.names,
		ids:      g.ids,
	}
}

// mean node degree; in and out edges both count for directed graphs
func (g *Graph) MeanDegree() float64 {
	n := g.Len()
	if n == 0 {
		return 0
	}
	total := 0
	for _, u := range g.Nodes() {
		total += g.g.From(u).Len()
		if g.directed {
			total += g.g.(graph.Directed).To(u).Len()
		}
	}
	return float64(total) / float64(n)
}

// the (weakly) connected components, each sorted, ordered by their smallest id
func (g *Graph) Components() [][]int64 {
	var comps [][]graph.Node
	if g.directed {
		comps = topo.ConnectedComponents(graph.Undirect{G: g.g.(graph.Directed)})
	} else {
		comps = topo.ConnectedComponents(g.g.(graph.Undirected))
	}
	return sortComponents(comps)
}

func (g *Graph) IsConnected() bool {
	return g.Len() > 0 && len(g.Components()) == 1
}

// Diameter of the largest (strongly, for directed graphs) connected component.
// The second value reports whether the graph has more than one component.
func (g *Graph) Diameter() (int, bool) {
	var comps [][]int64
	if g.directed {
		comps = sortComponents(topo.TarjanSCC(g.g.(graph.Directed)))
	} else {
		comps = g.Components()
	}
	if len(comps) == 0 {
		return 0, false
	}
	largest := comps[0]
	for _, c := range comps[1:] {
		if len(c) > len(largest) {
			largest = c
		}
	}

	inComp := make(map[int64]bool, len(largest))
	for _, id := range largest {
		inComp[id] = true
	}

	diameter := 0
	for _, id := range largest {
		bf := traverse.BreadthFirst{
			Traverse: func(e graph.Edge) bool { return inComp[e.To().ID()] },
		}
		bf.Walk(g.g, g.g.Node(id), func(n graph.Node, d int) bool {
			if d > diameter {
				diameter = d
			}
			return false
		})
	}
	return diameter, len(comps) > 1
}

func sortedIDs(it graph.Nodes) []int64 {
	ids := make([]int64, 0, max(it.Len(), 0))
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortComponents(comps [][]graph.Node) [][]int64 {
	out := make([][]int64, 0, len(comps))
	for _, c := range comps {
		ids := make([]int64, len(c))
		for i, n := range c {
			ids[i] = n.ID()
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out = append(out, ids)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
