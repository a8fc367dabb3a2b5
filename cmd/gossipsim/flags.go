package main

import (
	"fmt"
	"strconv"
	"strings"

	model "gossip-sim/pkg/datamodel"

	"github.com/akamensky/argparse"
)

// unset marks integer flags that were not given; 0 is a valid value for some
const unset = -1

// command line values; they override the config file where given
type simFlags struct {
	replications    *int
	steps           *float64
	nodes           *int
	processes       *int
	suppression     *string
	suppressionArgs *[]float64
	sources         *int
	process         *string
	outdir          *string
	provider        *string
	degree          *float64
	graphs          *int
	dimensions      *int
	radioRange      *float64
	size            *float64
	dim             *int
	files           *[]string
	helloSize       *int
	mode            *string
	strategy        *string
	retries         *int
	floodHops       *int
	metricsAddr     *string
	resume          *bool
}

func addSimFlags(cmd *argparse.Command) *simFlags {
	return &simFlags{
		replications: cmd.Int("r", "replications", &argparse.Options{Help: "number of replications", Default: unset}),
		steps:        cmd.Float("s", "steps", &argparse.Options{Help: "steps for the probabilities"}),
		nodes:        cmd.Int("n", "nodes", &argparse.Options{Help: "number of nodes", Default: unset}),
		processes:    cmd.Int("p", "processes", &argparse.Options{Help: "number of worker processes", Default: unset}),
		suppression: cmd.String("", "suppression", &argparse.Options{
			Help: "suppression mode followed by its params, e.g. --suppression triangular 3 8 (default=none)",
		}),
		suppressionArgs: cmd.FloatList("", "suppression-param", &argparse.Options{
			Help: "parameter of the suppression mode; repeat for several (linear [max], triangular best [max])",
		}),
		sources:     cmd.Int("", "sources", &argparse.Options{Help: "sources for the gossip routing process", Default: unset}),
		process:     cmd.String("", "process", &argparse.Options{Help: "percolation | gossip (default = percolation)"}),
		outdir:      cmd.String("o", "outdir", &argparse.Options{Help: "output directory for the results"}),
		provider:    cmd.String("t", "topology", &argparse.Options{Help: "topology provider: grid, random, geometric, file, db"}),
		degree:      cmd.Float("", "degree", &argparse.Options{Help: "mean degree of random graphs", Default: float64(unset)}),
		graphs:      cmd.Int("g", "graphs", &argparse.Options{Help: "number of graphs", Default: unset}),
		dimensions:  cmd.Int("d", "dimensions", &argparse.Options{Help: "dimensions of the grid", Default: unset}),
		radioRange:  cmd.Float("", "range", &argparse.Options{Help: "radio range of random geometric graphs", Default: float64(unset)}),
		size:        cmd.Float("", "size", &argparse.Options{Help: "side length of the random geometric area", Default: float64(unset)}),
		dim:         cmd.Int("", "dim", &argparse.Options{Help: "dimensions of the random geometric area", Default: unset}),
		files:       cmd.StringList("f", "files", &argparse.Options{Help: "topology files"}),
		helloSize:   cmd.Int("", "hello-size", &argparse.Options{Help: "hello packet size of measured topologies", Default: unset}),
		mode:        cmd.String("", "mode", &argparse.Options{Help: "link mode of measured topologies: uu, du, dw"}),
		strategy:    cmd.String("", "strategy", &argparse.Options{Help: "forwarding strategy: probabilistic, counter"}),
		retries:     cmd.Int("m", "retries", &argparse.Options{Help: "retries of the counter strategy", Default: unset}),
		floodHops:   cmd.Int("k", "flood-hops", &argparse.Options{Help: "holders fewer hops from the source always forward", Default: unset}),
		metricsAddr: cmd.String("", "metrics-addr", &argparse.Options{Help: "serve prometheus metrics on this address"}),
		resume:      cmd.Flag("", "resume", &argparse.Options{Help: "skip runs found in the result files"}),
	}
}

func setInt(dst *int, v *int) {
	if *v != unset {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if *v != float64(unset) && *v != 0 {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if *v != "" {
		*dst = *v
	}
}

// folds the numbers following `--suppression <mode>` into the flag value, so
// the params can be given without quotes
func joinSuppression(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		out = append(out, args[i])
		if args[i] != "--suppression" || i+1 >= len(args) {
			continue
		}
		i++
		value := args[i]
		for i+1 < len(args) {
			if _, err := strconv.ParseFloat(args[i+1], 64); err != nil {
				break
			}
			value += " " + args[i+1]
			i++
		}
		out = append(out, value)
	}
	return out
}

// sets dst from a --seed value; empty keeps the configured seed
func setSeed(dst *int64, v string) error {
	if v == "" {
		return nil
	}
	seed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: seed %q: %v", model.ErrInvalidConfig, v, err)
	}
	*dst = seed
	return nil
}

// splits "mode p1 p2" (or "mode,p1,p2") into mode and params
func parseSuppression(s string) (string, []float64, error) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("%w: empty suppression mode", model.ErrInvalidConfig)
	}
	params := make([]float64, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return "", nil, fmt.Errorf("%w: suppression param %q: %v", model.ErrInvalidConfig, f, err)
		}
		params = append(params, v)
	}
	return fields[0], params, nil
}

func (f *simFlags) apply(config *model.Config) error {
	sim := &config.Simulation
	topo := &config.Topology

	setInt(&sim.Replications, f.replications)
	setFloat(&sim.Steps, f.steps)
	setInt(&topo.Nodes, f.nodes)
	setInt(&sim.Processes, f.processes)
	if *f.suppression != "" {
		mode, params, err := parseSuppression(*f.suppression)
		if err != nil {
			return err
		}
		sim.Suppression = mode
		sim.SuppressionParams = params
	}
	if len(*f.suppressionArgs) > 0 {
		sim.SuppressionParams = append(sim.SuppressionParams, *f.suppressionArgs...)
	}
	setInt(&sim.Sources, f.sources)
	setString(&sim.Process, f.process)
	setString(&sim.Outdir, f.outdir)
	setString(&topo.Provider, f.provider)
	setFloat(&topo.Degree, f.degree)
	setInt(&topo.Graphs, f.graphs)
	setInt(&topo.Dimensions, f.dimensions)
	setFloat(&topo.Range, f.radioRange)
	setFloat(&topo.Size, f.size)
	setInt(&topo.Dim, f.dim)
	if len(*f.files) > 0 {
		topo.Files = *f.files
	}
	setInt(&topo.HelloSize, f.helloSize)
	setString(&topo.Mode, f.mode)
	setString(&sim.Strategy, f.strategy)
	setInt(&sim.Retries, f.retries)
	setInt(&sim.FloodHops, f.floodHops)
	setString(&config.Metrics.Listen, f.metricsAddr)
	if *f.resume {
		sim.Resume = true
	}
	return nil
}
