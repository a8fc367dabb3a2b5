// Package replay runs the gossip engine on the measured testbed topologies and
// stores per packet and per host reception statistics next to the experiments
// of the testbed.
package replay

import (
	"fmt"
	"sync"

	model "gossip-sim/pkg/datamodel"
	"gossip-sim/pkg/logic"
	"gossip-sim/pkg/topology"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// one (variant, p, m, k) combination of a replay
type Setting struct {
	Variant string
	P       float64
	M       int
	K       int
}

// Settings expands the configured lists in the order they are replayed
func Settings(rc *model.ReplayConfig) []Setting {
	var out []Setting
	for _, v := range rc.Variants {
		for _, p := range rc.Probabilities {
			for _, m := range rc.Retries {
				for _, k := range rc.FloodHops {
					out = append(out, Setting{Variant: v, P: p, M: m, K: k})
				}
			}
		}
	}
	return out
}

// Replayer replays gossip on measured topologies
type Replayer struct {
	topoDB   *gorm.DB
	resultDB *gorm.DB
	config   *model.Config
	log      *logger.Logger
}

func NewReplayer(topoDB, resultDB *gorm.DB, config *model.Config, log *logger.Logger) *Replayer {
	return &Replayer{topoDB: topoDB, resultDB: resultDB, config: config, log: log}
}

// hello sizes to replay; 0 means every size in the topology database
func (r *Replayer) helloSizes() ([]int, error) {
	sizes := r.config.Replay.HelloSizes
	if len(sizes) > 0 && sizes[0] != 0 {
		return sizes, nil
	}
	var all []int
	if res := r.topoDB.Model(&model.Tag{}).Distinct("helloSize").Order("helloSize").Pluck("helloSize", &all); res.Error != nil {
		return nil, res.Error
	}
	return all, nil
}

// Run replays every setting for every source on every measured topology
func (r *Replayer) Run() error {
	rc := r.config.Replay
	if rc.Packets < 1 {
		return fmt.Errorf("%w: need at least one packet", model.ErrInvalidConfig)
	}
	if err := model.MigrateReplay(r.resultDB); err != nil {
		return err
	}

	var delivery logic.DeliveryModel = logic.WeightedDelivery{}
	if rc.NoLoss {
		delivery = logic.LosslessDelivery{Directed: true}
	}

	sizes, err := r.helloSizes()
	if err != nil {
		return err
	}
	settings := Settings(&rc)

	fracChan := make(chan *model.RxFraction, 1024)
	var recorder sync.WaitGroup
	recorder.Add(1)
	go model.RecordRxFractions(r.resultDB, fracChan, &recorder)
	defer func() {
		close(fracChan)
		recorder.Wait()
	}()

	stream := uint64(0)
	for _, size := range sizes {
		graphs, err := topology.LoadMeasured(r.topoDB, size, "dw", nil)
		if err != nil {
			return err
		}
		r.log.Infof("helloSize=%d: %d topologies", size, len(graphs))

		for gi, g := range graphs {
			sources, err := r.sources(g)
			if err != nil {
				return err
			}
			for si, s := range settings {
				strategy, err := logic.GetStrategy(s.Variant, s.M)
				if err != nil {
					return err
				}
				engine := &logic.Gossip{Delivery: delivery, Strategy: strategy, FloodHops: s.K, Overhear: true}
				r.log.Infof("\tgraph %d, gossip=%s p=%.2f m=%d k=%d (%d/%d)", gi, s.Variant, s.P, s.M, s.K, si+1, len(settings))

				for _, src := range sources {
					rng := model.NewRand(r.config.TopLevel.Seed, stream)
					stream++
					if err := r.replay(engine, g, src, s, size, rng, fracChan); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (r *Replayer) sources(g *topology.Graph) ([]int64, error) {
	names := r.config.Replay.Sources
	if len(names) == 0 {
		return g.Nodes(), nil
	}
	ids := make([]int64, 0, len(names))
	for _, n := range names {
		id, ok := g.ID(n)
		if !ok {
			return nil, fmt.Errorf("%w: source %q is not a host of the topology", model.ErrInvalidConfig, n)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// replays all packets of one source and setting and records the results
func (r *Replayer) replay(engine *logic.Gossip, g *topology.Graph, src int64, s Setting, size int, rng *model.Rand, fracChan chan *model.RxFraction) error {
	packets := r.config.Replay.Packets
	tag := &model.ReplayTag{
		Experiment: r.config.TopLevel.ExperimentName,
		Gossip:     s.Variant,
		P:          s.P,
		M:          s.M,
		K:          s.K,
		HelloSize:  size,
		Packets:    packets,
	}
	if res := r.resultDB.Create(tag); res.Error != nil {
		return res.Error
	}

	total := make(map[int64]int)
	distinct := make(map[int64]int)
	pt := logic.Point{Ps: s.P, Pb: 1.0}
	for i := 0; i < packets; i++ {
		trace := engine.Spread(g, src, pt, rng)
		for host, n := range trace.Receptions {
			total[host] += n
			distinct[host]++
		}
		fracChan <- &model.RxFraction{
			Src:    g.Name(src),
			TagKey: tag.Key,
			Frac:   float64(len(trace.Reached)) / float64(g.Len()),
		}
	}

	hosts := make([]*model.HostFraction, 0, g.Len())
	for _, id := range g.Nodes() {
		hosts = append(hosts, &model.HostFraction{
			Src:    g.Name(src),
			TagKey: tag.Key,
			Host:   g.Name(id),
			Total:  float64(total[id]) / float64(packets),
			Frac:   float64(distinct[id]) / float64(packets),
		})
	}
	if res := r.resultDB.Create(&hosts); res.Error != nil {
		return res.Error
	}
	r.log.Debugf("\t\tsrc=%s tag=%d done", g.Name(src), tag.Key)
	return nil
}
