package main

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	model "gossip-sim/pkg/datamodel"
	"gossip-sim/pkg/metrics"
	"gossip-sim/pkg/sweep"
	"gossip-sim/pkg/topology"
)

// random stream of the graph generators; tasks use the streams 0, 1, ...
const topologyStream = math.MaxUint64

func runSim(config *model.Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	log.Infof("experiment %v: %v process on %v topology", config.TopLevel.ExperimentName, config.Simulation.Process, config.Topology.Provider)

	topo, err := topology.Build(config, model.NewRand(config.TopLevel.Seed, topologyStream))
	if err != nil {
		return err
	}
	for i, g := range topo.Graphs {
		log.Debugf("graph %d: %d nodes, %d edges, mean degree %f", i, g.Len(), len(g.Edges()), g.MeanDegree())
	}

	reg := metrics.NewRegistry()
	if addr := config.Metrics.Listen; addr != "" {
		srv := serveMetrics(addr, reg)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	start := time.Now()
	err = sweep.Simulate(config, topo, log, reg)
	log.Infof("simulation took %v", time.Since(start))
	return err
}

func serveMetrics(addr string, reg *metrics.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Infof("serving metrics on %v/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warnf("metrics listener failed: %v", err)
		}
	}()
	return srv
}
