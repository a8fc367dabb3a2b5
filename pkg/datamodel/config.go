/**
 * configuration for a simulation run, includes default values for all args
 *
 */

package datamodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	TopLevel   TopLevelConfig   `json:"top_level" yaml:"top_level"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Topology   TopologyConfig   `json:"topology" yaml:"topology"`
	Replay     ReplayConfig     `json:"replay" yaml:"replay"`
}

type TopLevelConfig struct {
	Log        string `json:"log" yaml:"log"`
	DataBase   string `json:"db" yaml:"db"`
	DBFile     string `json:"dbfile" yaml:"dbfile"`
	TimeFormat string `json:"time_format" yaml:"time_format"`
	Seed       int64  `json:"seed" yaml:"seed"`
	// experiment name is used for replay tags and metric labels
	ExperimentName string `json:"experiment_name" yaml:"experiment_name"`
}

type MetricsConfig struct {
	// empty means no listener
	Listen string `json:"listen" yaml:"listen"`
}

type SimulationConfig struct {
	// percolation or gossip
	Process      string  `json:"process" yaml:"process"`
	Replications int     `json:"replications" yaml:"replications"`
	Steps        float64 `json:"steps" yaml:"steps"`
	Processes    int     `json:"processes" yaml:"processes"`
	// gossip only: number of sources drawn per task
	Sources           int       `json:"sources" yaml:"sources"`
	Suppression       string    `json:"suppression" yaml:"suppression"`
	SuppressionParams []float64 `json:"suppression_params" yaml:"suppression_params"`
	Outdir            string    `json:"outdir" yaml:"outdir"`
	// probabilistic or counter
	Strategy string `json:"strategy" yaml:"strategy"`
	// retry threshold of the counter strategy
	Retries int `json:"m" yaml:"m"`
	// holders fewer than k hops from the source always forward
	FloodHops int  `json:"k" yaml:"k"`
	Resume    bool `json:"resume" yaml:"resume"`
}

type TopologyConfig struct {
	// grid, random, geometric, file, db
	Provider   string   `json:"provider" yaml:"provider"`
	Nodes      int      `json:"nodes" yaml:"nodes"`
	Degree     float64  `json:"degree" yaml:"degree"`
	Graphs     int      `json:"graphs" yaml:"graphs"`
	Dimensions int      `json:"dimensions" yaml:"dimensions"`
	Range      float64  `json:"range" yaml:"range"`
	Size       float64  `json:"size" yaml:"size"`
	Dim        int      `json:"dim" yaml:"dim"`
	Files      []string `json:"files" yaml:"files"`
	HelloSize  int      `json:"hello_size" yaml:"hello_size"`
	// uu, du, dw for measured topologies; empty for synthetic graphs
	Mode string `json:"mode" yaml:"mode"`
}

type ReplayConfig struct {
	// topology database, read only
	TopoDataBase string `json:"topo_db" yaml:"topo_db"`
	TopoDBFile   string `json:"topo_dbfile" yaml:"topo_dbfile"`
	// empty means every host is a source
	Sources       []string  `json:"src" yaml:"src"`
	Variants      []string  `json:"gossip" yaml:"gossip"`
	Probabilities []float64 `json:"p" yaml:"p"`
	Retries       []int     `json:"m" yaml:"m"`
	FloodHops     []int     `json:"k" yaml:"k"`
	Packets       int       `json:"pkg_num" yaml:"pkg_num"`
	HelloSizes    []int     `json:"pkg_size" yaml:"pkg_size"`
	NoLoss        bool      `json:"no_loss" yaml:"no_loss"`
}

/**
initializes the configuration to default values
*/
func MakeDefaultConfig() *Config {

	DefaultConfig := new(Config)

	DefaultConfig.TopLevel.Log = "INFO"
	DefaultConfig.TopLevel.DataBase = "sqlite"
	DefaultConfig.TopLevel.DBFile = "topology.db"
	DefaultConfig.TopLevel.TimeFormat = "2006-01-02 15:04:05.000"
	DefaultConfig.TopLevel.Seed = 12345
	DefaultConfig.TopLevel.ExperimentName = "SIM-" + uuid.NewString()[:8]
	DefaultConfig.Simulation.Process = "percolation"
	DefaultConfig.Simulation.Replications = 30
	DefaultConfig.Simulation.Steps = 0.01
	DefaultConfig.Simulation.Processes = 2
	DefaultConfig.Simulation.Sources = 30
	DefaultConfig.Simulation.Suppression = "none"
	DefaultConfig.Simulation.Outdir = "./"
	DefaultConfig.Simulation.Strategy = "probabilistic"
	DefaultConfig.Simulation.Retries = 1
	DefaultConfig.Simulation.FloodHops = 1
	DefaultConfig.Topology.Provider = "random"
	DefaultConfig.Topology.Nodes = 100
	DefaultConfig.Topology.Degree = 4
	DefaultConfig.Topology.Graphs = 1
	DefaultConfig.Topology.Dimensions = 2
	DefaultConfig.Topology.Range = 250.0
	DefaultConfig.Topology.Size = 1000.0
	DefaultConfig.Topology.Dim = 2
	DefaultConfig.Replay.TopoDataBase = "sqlite"
	DefaultConfig.Replay.Variants = []string{"0"}
	DefaultConfig.Replay.Probabilities = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	DefaultConfig.Replay.Retries = []int{1}
	DefaultConfig.Replay.FloodHops = []int{1}
	DefaultConfig.Replay.Packets = 100
	DefaultConfig.Replay.HelloSizes = []int{0}

	return DefaultConfig
}

// reads a json (or yaml, by extension) config file over the defaults
func LoadConfig(filename string) (*Config, error) {
	config := MakeDefaultConfig()

	filedata, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(filedata, config)
	default:
		err = json.Unmarshal(filedata, config)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot decode config file %v: %w", filename, err)
	}
	return config, nil
}

// checks the values that must hold before any worker is started
func (c *Config) Validate() error {
	sim := c.Simulation
	if sim.Steps <= 0 || sim.Steps > 1 {
		return fmt.Errorf("%w: step size %v not in (0,1]", ErrInvalidConfig, sim.Steps)
	}
	if sim.Replications < 0 {
		return fmt.Errorf("%w: negative replication count %v", ErrInvalidConfig, sim.Replications)
	}
	if sim.Processes < 1 {
		return fmt.Errorf("%w: need at least one process, got %v", ErrInvalidConfig, sim.Processes)
	}
	if sim.Process == "gossip" && sim.Sources < 1 {
		return fmt.Errorf("%w: gossip needs at least one source", ErrInvalidConfig)
	}
	if sim.Retries < 0 || sim.FloodHops < 0 {
		return fmt.Errorf("%w: m and k must not be negative", ErrInvalidConfig)
	}
	if c.Topology.Graphs < 1 {
		return fmt.Errorf("%w: need at least one graph", ErrInvalidConfig)
	}
	switch c.Topology.Mode {
	case "", "uu", "du", "dw":
	default:
		return fmt.Errorf("%w: unknown link mode %q", ErrInvalidConfig, c.Topology.Mode)
	}
	return nil
}
