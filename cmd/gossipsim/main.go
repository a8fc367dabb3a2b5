package main

import (
	"fmt"
	"os"

	model "gossip-sim/pkg/datamodel"
	"gossip-sim/pkg/logic"
	"gossip-sim/pkg/topology"

	"github.com/akamensky/argparse"
	logger "github.com/sirupsen/logrus"
)

// create global log variable
var log *logger.Logger

func main() {

	parser := argparse.NewParser("gossipsim", "Run percolation or gossip routing process on a graph")

	configFile := parser.String("c", "config", &argparse.Options{Help: "json or yaml config file"})
	logLevel := parser.String("l", "log", &argparse.Options{Help: "log level (default = INFO)"})
	seed := parser.String("", "seed", &argparse.Options{Help: "seed for the RNG (negative values as --seed=-1)"})
	dbFile := parser.String("", "db", &argparse.Options{Help: "database file or DSN"})
	dbType := parser.String("", "dbtype", &argparse.Options{Help: "sqlite | mysql"})
	experiment := parser.String("e", "experiment", &argparse.Options{Help: "experiment name"})

	simCmd := parser.NewCommand("sim", "sweep a process over the probability grid")
	simArgs := addSimFlags(simCmd)

	replayCmd := parser.NewCommand("replay", "replay gossip on the measured testbed topologies")
	replayArgs := addReplayFlags(replayCmd)

	plotCmd := parser.NewCommand("plot", "plot a result file")
	plotArgs := addPlotFlags(plotCmd)

	listCmd := parser.NewCommand("list", "list topology providers and processes")

	if err := parser.Parse(joinSuppression(os.Args)); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	// the config file gives the defaults, flags override them
	config := model.MakeDefaultConfig()
	if *configFile != "" {
		var err error
		if config, err = model.LoadConfig(*configFile); err != nil {
			fmt.Fprint(os.Stderr, err)
			os.Exit(1)
		}
	}
	setString(&config.TopLevel.Log, logLevel)
	setString(&config.TopLevel.DBFile, dbFile)
	setString(&config.TopLevel.DataBase, dbType)
	setString(&config.TopLevel.ExperimentName, experiment)
	if err := setSeed(&config.TopLevel.Seed, *seed); err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(1)
	}

	log = newLogger(config.TopLevel.Log, config.TopLevel.TimeFormat)
	log.Infof("logging at log level %v; all times in UTC", config.TopLevel.Log)
	log.Infof("random seed is %v", config.TopLevel.Seed)

	model.Init(log)
	topology.ProviderInit(log)
	logic.ProcessInit(log)

	switch {
	case simCmd.Happened():
		if err := simArgs.apply(config); err != nil {
			log.Fatal(err)
		}
		if err := runSim(config); err != nil {
			log.Fatalf("simulation failed: %v", err)
		}

	case replayCmd.Happened():
		replayArgs.apply(config)
		if err := runReplay(config); err != nil {
			log.Fatalf("replay failed: %v", err)
		}

	case plotCmd.Happened():
		if err := runPlot(plotArgs); err != nil {
			log.Fatalf("plot failed: %v", err)
		}

	case listCmd.Happened():
		fmt.Printf("topology providers: %v\n", topology.GetInstalledProviders())
		fmt.Printf("processes: %v\n", logic.GetInstalledProcesses())
		fmt.Println("strategies: probabilistic (0), counter (3)")
		fmt.Println("link modes: uu, du, dw")
	}

	log.Info(" ... ending ... ")
}
