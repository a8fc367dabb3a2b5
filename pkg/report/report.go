// Package report renders result files as curves of the mean over the swept
// probability, with the 95% confidence interval as error bars.
package report

import (
	"errors"
	"fmt"
	"sort"

	"gossip-sim/pkg/sweep"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var ErrNoRecords = errors.New("no records to plot")

type Options struct {
	Title string
	// plot the forwarded counts instead of the main metric
	Extra bool
	// only draw the curves of these pb values; empty means all
	Pb []float64
	Width, Height vg.Length
}

// a curve with error bars
type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// Curves groups records by pb and sorts every group by ps
func Curves(records []*sweep.Record, extra bool) (map[float64]plotter.XYs, map[float64]plotter.YErrors) {
	byPb := make(map[float64][]*sweep.Record)
	for _, r := range records {
		if extra && r.Extra == nil {
			continue
		}
		byPb[r.Point.Pb] = append(byPb[r.Point.Pb], r)
	}

	xys := make(map[float64]plotter.XYs, len(byPb))
	errs := make(map[float64]plotter.YErrors, len(byPb))
	for pb, group := range byPb {
		sort.Slice(group, func(i, j int) bool { return group[i].Point.Ps < group[j].Point.Ps })
		pts := make(plotter.XYs, len(group))
		yerr := make(plotter.YErrors, len(group))
		for i, r := range group {
			s := r.Summary
			if extra {
				s = *r.Extra
			}
			pts[i].X = r.Point.Ps
			pts[i].Y = s.Mean
			yerr[i].Low = s.Conf95
			yerr[i].High = s.Conf95
		}
		xys[pb] = pts
		errs[pb] = yerr
	}
	return xys, errs
}

// Plot draws one line per pb value and saves the figure; the format follows
// the extension of out
func Plot(records []*sweep.Record, out string, opts Options) error {
	xys, errs := Curves(records, opts.Extra)
	if len(xys) == 0 {
		return ErrNoRecords
	}

	keep := make(map[float64]bool, len(opts.Pb))
	for _, pb := range opts.Pb {
		keep[pb] = true
	}
	pbs := make([]float64, 0, len(xys))
	for pb := range xys {
		if len(keep) == 0 || keep[pb] {
			pbs = append(pbs, pb)
		}
	}
	if len(pbs) == 0 {
		return fmt.Errorf("%w: none of the requested pb values %v", ErrNoRecords, opts.Pb)
	}
	sort.Float64s(pbs)

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "ps"
	p.Y.Label.Text = "mean"
	if opts.Extra {
		p.Y.Label.Text = "forwarded"
	}
	p.X.Tick.Marker = plot.DefaultTicks{}
	p.Y.Tick.Marker = plot.DefaultTicks{}
	p.Legend.Top = true

	for i, pb := range pbs {
		line, points, err := plotter.NewLinePoints(xys[pb])
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)

		bars, err := plotter.NewYErrorBars(errorPoints{XYs: xys[pb], YErrors: errs[pb]})
		if err != nil {
			return err
		}
		bars.Color = plotutil.Color(i)

		p.Add(line, points, bars)
		p.Legend.Add(fmt.Sprintf("pb=%.2f", pb), line, points)
	}

	width, height := opts.Width, opts.Height
	if width == 0 {
		width = 6 * vg.Inch
	}
	if height == 0 {
		height = 4 * vg.Inch
	}
	return p.Save(width, height, out)
}
