package main

import (
	model "gossip-sim/pkg/datamodel"
	"gossip-sim/pkg/replay"

	"github.com/akamensky/argparse"
)

type replayFlags struct {
	topoDB     *string
	topoDBType *string
	sources    *[]string
	variants   *[]string
	p          *[]float64
	m          *[]int
	k          *[]int
	packets    *int
	helloSizes *[]int
	noLoss     *bool
}

func addReplayFlags(cmd *argparse.Command) *replayFlags {
	return &replayFlags{
		topoDB:     cmd.String("", "topo-db", &argparse.Options{Help: "database with the measured topologies"}),
		topoDBType: cmd.String("", "topo-dbtype", &argparse.Options{Help: "sqlite | mysql"}),
		sources:    cmd.StringList("", "src", &argparse.Options{Help: "source hosts (default = all)"}),
		variants:   cmd.StringList("", "gossip", &argparse.Options{Help: "gossip variants: 0 (probabilistic), 3 (counter)"}),
		p:          cmd.FloatList("", "probability", &argparse.Options{Help: "forwarding probabilities"}),
		m:          cmd.IntList("m", "retries", &argparse.Options{Help: "retries of gossip variant 3"}),
		k:          cmd.IntList("k", "flood-hops", &argparse.Options{Help: "hops that are always flooded"}),
		packets:    cmd.Int("", "pkg-num", &argparse.Options{Help: "packets per source", Default: unset}),
		helloSizes: cmd.IntList("", "pkg-size", &argparse.Options{Help: "hello sizes of the topologies (0 = all)"}),
		noLoss:     cmd.Flag("", "no-loss", &argparse.Options{Help: "deliver every transmission"}),
	}
}

func (f *replayFlags) apply(config *model.Config) {
	rc := &config.Replay
	setString(&rc.TopoDBFile, f.topoDB)
	setString(&rc.TopoDataBase, f.topoDBType)
	if len(*f.sources) > 0 {
		rc.Sources = *f.sources
	}
	if len(*f.variants) > 0 {
		rc.Variants = *f.variants
	}
	if len(*f.p) > 0 {
		rc.Probabilities = *f.p
	}
	if len(*f.m) > 0 {
		rc.Retries = *f.m
	}
	if len(*f.k) > 0 {
		rc.FloodHops = *f.k
	}
	setInt(&rc.Packets, f.packets)
	if len(*f.helloSizes) > 0 {
		rc.HelloSizes = *f.helloSizes
	}
	if *f.noLoss {
		rc.NoLoss = true
	}
}

func runReplay(config *model.Config) error {
	topoDB, err := model.Open(config.Replay.TopoDataBase, config.Replay.TopoDBFile)
	if err != nil {
		return err
	}
	resultDB, err := model.Open(config.TopLevel.DataBase, config.TopLevel.DBFile)
	if err != nil {
		return err
	}
	log.Infof("replaying experiment %v", config.TopLevel.ExperimentName)
	return replay.NewReplayer(topoDB, resultDB, config, log).Run()
}
