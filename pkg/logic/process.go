// Package logic holds the stochastic processes the simulator sweeps over the
// probability grid: combined bond-site percolation and gossip forwarding.
package logic

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	model "gossip-sim/pkg/datamodel"
	"gossip-sim/pkg/stats"
	"gossip-sim/pkg/topology"

	logger "github.com/sirupsen/logrus"
)

var (
	ErrUnknownProcess     = errors.New("unknown process")
	ErrUnknownSuppression = errors.New("unsupported suppression mode")
	ErrUnknownDelivery    = errors.New("unknown delivery mode")
	ErrUnknownStrategy    = errors.New("unknown forwarding strategy")
	ErrTooManySources     = errors.New("more sources than nodes")
)

// our logger
var log *logger.Logger = logger.StandardLogger()

// A grid point: site (or forwarding) and bond (or delivery) probability
type Point struct {
	Ps float64
	Pb float64
}

// Params are the run wide settings of a process, resolved once from the config
type Params struct {
	Replications int
	// gossip only
	Sources     int
	Suppression Suppressor
	Delivery    DeliveryModel
	Strategy    Strategy
	FloodHops   int
}

// one result file a process writes to
type Output struct {
	File        string
	Description string
}

// Outcome is the reduced result of one task for one output file
type Outcome struct {
	File    string
	Summary stats.Summary
	// number of pooled observations written to the record
	Count int
	// forwarded counts of the gossip process
	Extra *stats.Summary
}

// what a process contributes to the header of its result files
type HeaderInfo struct {
	Title string
	// per-column documentation, starting with column 1
	Columns []string
	// whether the `sources` line is written
	Sources bool
}

// defines the interface of a replication engine
type Process interface {
	Init(log *logger.Logger)

	Name() string

	Outputs() []Output

	Header() HeaderInfo

	// runs all replications of one (graph, point) task.  g is shared between
	// tasks and must not be modified.
	Evaluate(g *topology.Graph, pt Point, params *Params, rng *model.Rand) []Outcome
}

// a map of all of the supported processes
var ProcessStore map[string]Process

// initialize the processes.
//
// Important: new processes need to be added here!
func ProcessInit(mainLogger *logger.Logger) {
	log = mainLogger
	ProcessStore = make(map[string]Process)
	ProcessStore["percolation"] = &Percolation{}
	ProcessStore["gossip"] = &GossipProcess{}

	for name, p := range ProcessStore {
		log.Debugf("initializing process '%v'", name)
		p.Init(mainLogger)
	}
}

func GetInstalledProcesses() []string {
	names := make([]string, 0, len(ProcessStore))
	for k := range ProcessStore {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func GetProcess(name string) (Process, error) {
	p, ok := ProcessStore[name]
	if !ok {
		return nil, fmt.Errorf("%w %q; valid processes are [%v]", ErrUnknownProcess, name, strings.Join(GetInstalledProcesses(), ","))
	}
	return p, nil
}

// NewParams resolves suppression, delivery model and strategy of a run
func NewParams(config *model.Config) (*Params, error) {
	sim := config.Simulation
	suppressor, err := ParseSuppression(sim.Suppression, sim.SuppressionParams)
	if err != nil {
		return nil, err
	}
	delivery, err := GetDelivery(config.Topology.Mode)
	if err != nil {
		return nil, err
	}
	strategy, err := GetStrategy(sim.Strategy, sim.Retries)
	if err != nil {
		return nil, err
	}
	return &Params{
		Replications: sim.Replications,
		Sources:      sim.Sources,
		Suppression:  suppressor,
		Delivery:     delivery,
		Strategy:     strategy,
		FloodHops:    sim.FloodHops,
	}, nil
}
