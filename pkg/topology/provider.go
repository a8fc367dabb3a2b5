package topology

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	model "gossip-sim/pkg/datamodel"

	logger "github.com/sirupsen/logrus"
)

var (
	ErrUnknownProvider = errors.New("unknown topology provider")
	ErrNotConnected    = errors.New("got unconnected graph; tune parameters")
)

// graphs that are not connected are regenerated at most this many times
const maxConnectAttempts = 100

// one `# key : value` line of a result header
type Field struct {
	Key   string
	Value string
}

// Topology is what a provider hands to the simulator: the base graphs plus the
// metadata that ends up in the result headers
type Topology struct {
	// graph type written to the `mode` header line
	Type   string
	Graphs []*Graph
	// type specific header lines, in order
	Fields []Field
	Nodes  int
	// requested degree, if the provider has one
	Degree *float64
	// lattices know their diameter in closed form
	Dimensions int
	Diameter   *int
}

// a Provider is a thing that builds base topologies
type Provider interface {
	// initializes the provider
	Init(log *logger.Logger)

	// builds the graphs described by the config
	Build(config *model.Config, rng *model.Rand) (*Topology, error)
}

// a map of all registered providers
var ProviderStore map[string]Provider

// initialize the providers; new providers need to be added here
func ProviderInit(log *logger.Logger) {
	ProviderStore = make(map[string]Provider)

	ProviderStore["grid"] = &GridProvider{}
	ProviderStore["random"] = &RandomProvider{}
	ProviderStore["geometric"] = &GeometricProvider{}
	ProviderStore["file"] = &FileProvider{}
	ProviderStore["db"] = &DBProvider{}

	for name, p := range ProviderStore {
		log.Debugf("initializing topology provider '%v'", name)
		p.Init(log)
	}
}

func GetInstalledProviders() string {
	names := make([]string, 0, len(ProviderStore))
	for k := range ProviderStore {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func GetProvider(name string) (Provider, error) {
	p, ok := ProviderStore[name]
	if !ok {
		return nil, fmt.Errorf("%w %q; valid providers are [%v]", ErrUnknownProvider, name, GetInstalledProviders())
	}
	return p, nil
}

// builds the topology named in the config
func Build(config *model.Config, rng *model.Rand) (*Topology, error) {
	p, err := GetProvider(config.Topology.Provider)
	if err != nil {
		return nil, err
	}
	topology, err := p.Build(config, rng)
	if err != nil {
		return nil, err
	}
	if len(topology.Graphs) == 0 {
		return nil, fmt.Errorf("provider %v created no graph", config.Topology.Provider)
	}
	return topology, nil
}

// calls gen until it returns a connected graph
func connected(gen func() *Graph) (*Graph, error) {
	for i := 0; i <= maxConnectAttempts; i++ {
		if g := gen(); g.IsConnected() {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w (%d tries)", ErrNotConnected, maxConnectAttempts)
}
