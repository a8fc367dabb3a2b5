package logic

import (
	"fmt"
	"sort"

	model "gossip-sim/pkg/datamodel"
	"gossip-sim/pkg/stats"
	"gossip-sim/pkg/topology"

	logger "github.com/sirupsen/logrus"
)

// Strategy decides what happens to holders that decline to forward.  The plain
// probabilistic strategy forgets them; the counter strategy gives them up to m
// more chances once the current wave has settled.
type Strategy interface {
	Name() string
	// a holder with receivers left declined to forward
	Declined(stored map[int64]int, node int64)
	// the wave has settled; returns the holders to try again
	Settle(stored map[int64]int) []int64
}

type Probabilistic struct{}

func (Probabilistic) Name() string                              { return "probabilistic" }
func (Probabilistic) Declined(stored map[int64]int, node int64) {}
func (Probabilistic) Settle(stored map[int64]int) []int64       { return nil }

// Counter re-queues a declined holder until it has been retried M times
type Counter struct {
	M int
}

func (c Counter) Name() string { return "counter" }

func (c Counter) Declined(stored map[int64]int, node int64) {
	if _, ok := stored[node]; !ok {
		stored[node] = 0
	}
}

func (c Counter) Settle(stored map[int64]int) []int64 {
	nodes := make([]int64, 0, len(stored))
	for n := range stored {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	retry := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		if stored[n] < c.M {
			stored[n]++
			retry = append(retry, n)
		} else {
			delete(stored, n)
		}
	}
	return retry
}

// returns the strategy by name; the replay variants "0" and "3" are aliases
func GetStrategy(name string, m int) (Strategy, error) {
	switch name {
	case "", "probabilistic", "0":
		return Probabilistic{}, nil
	case "counter", "3":
		return Counter{M: m}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownStrategy, name)
}

// Trace is what a single packet did
type Trace struct {
	// every node that held the packet, the source included
	Reached map[int64]bool
	// number of transmissions
	Forwarded int
	// number of rounds in which a node received the packet
	Receptions map[int64]int
}

// Gossip spreads one packet in rounds.  A round first receives the pending
// transmissions, then lets every holder decide whether to forward to its
// neighbors that have not seen the packet.
type Gossip struct {
	Delivery DeliveryModel
	Strategy Strategy
	// holders fewer hops than this from the source always forward
	FloodHops int
	// forwarding holders also transmit to neighbors that already have the
	// packet; those only count as receptions
	Overhear bool
}

func (e *Gossip) Spread(g *topology.Graph, src int64, pt Point, rng *model.Rand) Trace {
	trace := Trace{
		Reached:    map[int64]bool{src: true},
		Receptions: make(map[int64]int),
	}
	havePacket := map[int64]bool{src: true}
	hops := map[int64]int{src: 0}
	stored := make(map[int64]int)
	var pending []Link

	for {
		if len(havePacket) == 0 && len(pending) == 0 {
			retry := e.Strategy.Settle(stored)
			if len(retry) == 0 {
				break
			}
			for _, n := range retry {
				havePacket[n] = true
			}
		}

		// receive; a node counts once per round however many copies arrive
		delivered := make(map[int64]bool)
		for _, l := range pending {
			if !e.Delivery.Deliver(l, pt, rng) {
				continue
			}
			delivered[l.To] = true
			if trace.Reached[l.To] {
				continue
			}
			havePacket[l.To] = true
			if _, ok := hops[l.To]; !ok {
				hops[l.To] = hops[l.From] + 1
			}
		}
		for n := range delivered {
			trace.Receptions[n]++
		}
		pending = nil

		// transmit
		holders := make([]int64, 0, len(havePacket))
		for n := range havePacket {
			holders = append(holders, n)
		}
		sort.Slice(holders, func(i, j int) bool { return holders[i] < holders[j] })

		for _, tx := range holders {
			var targets, overheard []int64
			for _, rx := range g.Neighbors(tx) {
				if !havePacket[rx] && !trace.Reached[rx] {
					targets = append(targets, rx)
				} else if e.Overhear {
					overheard = append(overheard, rx)
				}
			}
			trace.Reached[tx] = true
			// nothing left to reach, so there is nothing to send
			if len(targets) == 0 && len(overheard) == 0 {
				continue
			}

			if tx == src || hops[tx] < e.FloodHops || rng.Float64() < pt.Ps {
				for _, rx := range append(targets, overheard...) {
					w, _ := g.Weight(tx, rx)
					pending = append(pending, Link{From: tx, To: rx, Weight: w})
				}
				if len(targets) > 0 {
					trace.Forwarded++
					delete(stored, tx)
				}
			} else if len(targets) > 0 {
				e.Strategy.Declined(stored, tx)
			}
		}
		havePacket = make(map[int64]bool)
	}
	return trace
}

// GossipProcess measures how many nodes a gossiped packet reaches from a
// number of randomly drawn sources
type GossipProcess struct {
	log *logger.Logger
}

func (gp *GossipProcess) Init(log *logger.Logger) {
	gp.log = log
}

func (gp *GossipProcess) Name() string { return "gossip" }

func (gp *GossipProcess) Outputs() []Output {
	return []Output{{File: "results-mean", Description: "mean reachability"}}
}

func (gp *GossipProcess) Header() HeaderInfo {
	return HeaderInfo{
		Title: "Gossip routing process",
		Columns: []string{
			"Forwarding probability",
			"Packet delivery ratio",
			"Mean reachability calculated over all replications and sources",
			"Calculated standard deviation of the reachability",
			"Calculated 95% confidence interval (0.0 if missing)",
			"Number of data points/replications*sources",
		},
		Sources: true,
	}
}

func (gp *GossipProcess) Evaluate(g *topology.Graph, pt Point, params *Params, rng *model.Rand) []Outcome {
	engine := &Gossip{Delivery: params.Delivery, Strategy: params.Strategy, FloodHops: params.FloodHops}
	if engine.Delivery == nil {
		engine.Delivery = BondDelivery{}
	}
	if engine.Strategy == nil {
		engine.Strategy = Probabilistic{}
	}

	sources := model.Sample(rng, g.Nodes(), params.Sources)
	count := params.Replications * len(sources)
	reach := make([]float64, 0, count)
	forwarded := make([]float64, 0, count)
	others := float64(g.Len() - 1)

	for _, src := range sources {
		for r := 0; r < params.Replications; r++ {
			trace := engine.Spread(g, src, pt, rng)
			frac := 0.0
			if others > 0 {
				frac = float64(len(trace.Reached)-1) / others
			}
			reach = append(reach, frac)
			forwarded = append(forwarded, float64(trace.Forwarded))
		}
	}

	extra := stats.Reduce(forwarded, 0)
	return []Outcome{{
		File:    "results-mean",
		Summary: stats.Reduce(reach, 0),
		Count:   count,
		Extra:   &extra,
	}}
}
