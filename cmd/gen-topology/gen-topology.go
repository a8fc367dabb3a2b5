package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	model "gossip-sim/pkg/datamodel"
	"gossip-sim/pkg/topology"

	"github.com/akamensky/argparse"
	logger "github.com/sirupsen/logrus"
)

var log *logger.Logger

// metadata lines the file provider reads back
func fileFields(topo *topology.Topology) []topology.Field {
	fields := []topology.Field{
		{Key: "mode", Value: topo.Type},
		{Key: "nodes", Value: strconv.Itoa(topo.Nodes)},
	}
	if topo.Degree != nil {
		fields = append(fields, topology.Field{Key: "degree", Value: fmt.Sprintf("%f", *topo.Degree)})
	}
	return append(fields, topo.Fields...)
}

func writeGraph(path string, g *topology.Graph, fields []topology.Field) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return topology.WriteTopology(f, g, fields)
}

func main() {

	log = logger.New()
	log.SetLevel(logger.InfoLevel)

	parser := argparse.NewParser("gen-topology", "creates graphs but does not run a simulation")

	outdir := parser.String("o", "outdir", &argparse.Options{
		Help:    "directory to (over)write the topology files in",
		Default: "./",
	})
	prefix := parser.String("", "prefix", &argparse.Options{
		Help:    "file name prefix",
		Default: "graph",
	})
	provider := parser.String("t", "topology", &argparse.Options{
		Help:    "grid, random or geometric",
		Default: "random",
	})
	nodes := parser.Int("n", "nodes", &argparse.Options{
		Help:    "number of nodes",
		Default: 100,
	})
	degree := parser.Float("", "degree", &argparse.Options{
		Help:    "mean degree of random graphs",
		Default: 4.0,
	})
	graphs := parser.Int("g", "graphs", &argparse.Options{
		Help:    "number of graphs",
		Default: 1,
	})
	dimensions := parser.Int("d", "dimensions", &argparse.Options{
		Help:    "dimensions of the grid",
		Default: 2,
	})
	radioRange := parser.Float("", "range", &argparse.Options{
		Help:    "radio range of random geometric graphs",
		Default: 250.0,
	})
	size := parser.Float("", "size", &argparse.Options{
		Help:    "side length of the random geometric area",
		Default: 1000.0,
	})
	seed := parser.Int("", "seed", &argparse.Options{
		Help:    "seed for the RNG",
		Default: 12345,
	})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	config := model.MakeDefaultConfig()
	config.Topology.Provider = *provider
	config.Topology.Nodes = *nodes
	config.Topology.Degree = *degree
	config.Topology.Graphs = *graphs
	config.Topology.Dimensions = *dimensions
	config.Topology.Range = *radioRange
	config.Topology.Size = *size

	topology.ProviderInit(log)
	topo, err := topology.Build(config, model.NewRand(int64(*seed), math.MaxUint64))
	if err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(*outdir, 0o755); err != nil {
		log.Fatal(err)
	}

	fields := fileFields(topo)
	errs := make(chan error, len(topo.Graphs))
	var wg sync.WaitGroup
	for i, g := range topo.Graphs {
		wg.Add(1)
		go func(i int, g *topology.Graph) {
			defer wg.Done()
			path := filepath.Join(*outdir, fmt.Sprintf("%s-%03d", *prefix, i))
			log.Infof("writing %v (%d nodes, mean degree %f)", path, g.Len(), g.MeanDegree())
			if err := writeGraph(path, g, fields); err != nil {
				errs <- fmt.Errorf("%v: %w", path, err)
			}
		}(i, g)
	}
	wg.Wait()
	close(errs)

	failed := false
	for err := range errs {
		log.Error(err)
		failed = true
	}
	if failed {
		os.Exit(1)
	}
	log.Infof("wrote %d graphs", len(topo.Graphs))
}
