package main

import (
	"path/filepath"
	"strings"

	"gossip-sim/pkg/report"
	"gossip-sim/pkg/sweep"

	"github.com/akamensky/argparse"
)

type plotFlags struct {
	input  *string
	output *string
	title  *string
	extra  *bool
	pb     *[]float64
}

func addPlotFlags(cmd *argparse.Command) *plotFlags {
	return &plotFlags{
		input:  cmd.String("i", "input", &argparse.Options{Help: "result file", Required: true}),
		output: cmd.String("o", "output", &argparse.Options{Help: "image file (default = <input>.png)"}),
		title:  cmd.String("", "title", &argparse.Options{Help: "plot title"}),
		extra:  cmd.Flag("", "forwarded", &argparse.Options{Help: "plot the forwarded counts of a gossip result"}),
		pb:     cmd.FloatList("", "pb", &argparse.Options{Help: "only plot these bond probabilities"}),
	}
}

func runPlot(f *plotFlags) error {
	records, err := sweep.ReadRecords(*f.input)
	if err != nil {
		return err
	}
	out := *f.output
	if out == "" {
		out = strings.TrimSuffix(*f.input, filepath.Ext(*f.input)) + ".png"
	}
	title := *f.title
	if title == "" {
		title = filepath.Base(*f.input)
	}
	log.Infof("plotting %d records of %v to %v", len(records), *f.input, out)
	return report.Plot(records, out, report.Options{Title: title, Extra: *f.extra, Pb: *f.pb})
}
