package sweep

import (
	model "gossip-sim/pkg/datamodel"
	"gossip-sim/pkg/logic"
	"gossip-sim/pkg/metrics"
	"gossip-sim/pkg/topology"

	logger "github.com/sirupsen/logrus"
)

// Simulate sweeps the configured process over the grid for every graph of
// topo.  Headers are written first unless a previous run is resumed.
// Configuration errors are returned before any worker starts.
func Simulate(config *model.Config, topo *topology.Topology, log *logger.Logger, m *metrics.Registry) error {
	sim := config.Simulation

	process, err := logic.GetProcess(sim.Process)
	if err != nil {
		return err
	}
	params, err := logic.NewParams(config)
	if err != nil {
		return err
	}
	mode := ModeFor(config.Topology.Mode)
	points, err := Points(sim.Steps, mode)
	if err != nil {
		return err
	}
	log.Infof("%d grid points (%v) on %d graphs", len(points), mode, len(topo.Graphs))

	sink := NewSink(sim.Outdir)
	dispatcher := NewDispatcher(process, params, sink, sim.Processes, config.TopLevel.Seed, log)
	dispatcher.SetMetrics(m)
	tasks := BuildTasks(topo.Graphs, points)
	if err := dispatcher.Check(tasks); err != nil {
		return err
	}

	done := map[string]map[int]bool{}
	if sim.Resume {
		if done, err = sink.CompletedRuns(process.Outputs()); err != nil {
			return err
		}
	}
	resumed := false
	for _, runs := range done {
		resumed = resumed || len(runs) > 0
	}
	if !resumed {
		log.Info("writing header")
		header := FormatHeader(&HeaderData{
			Info:         process.Header(),
			Sources:      sim.Sources,
			Topology:     topo,
			Replications: sim.Replications,
			Steps:        sim.Steps,
			Suppression:  params.Suppression,
		})
		if err := sink.WriteHeaders(header, process.Outputs()); err != nil {
			return err
		}
	}
	dispatcher.Skip(done)

	log.Infof("running %s process", process.Name())
	return dispatcher.Run(tasks)
}
