// plotfit creates a plot of an experimental histogram observable
// together with the corresponding fitted histogram.
package main

import (
	"flag"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/cgfold/epsfit/model"
	"github.com/cgfold/epsfit/observables"
)

func main() {
	expFile := flag.String("exp", "", "experimental data file (value, stddev per bin)")
	fitFile := flag.String("fit", "", "fitted histogram file (one value per line)")
	low := flag.Float64("low", 0, "lower histogram edge")
	high := flag.Float64("high", 10, "upper histogram edge")
	out := flag.String("o", "fit.png", "output file")
	flag.Parse()

	h, err := observables.ReadHistogram(*expFile, "exp", *low, *high)
	if err != nil {
		panic(err)
	}

	p, err := plot.New()
	if err != nil {
		panic(err)
	}
	p.X.Label.Text = "distance"
	p.Y.Label.Text = "density"

	expPts := make(plotter.XYs, h.NBins())
	for i := 0; i < h.NBins(); i++ {
		expPts[i].X = (h.Edges[i] + h.Edges[i+1]) / 2
		expPts[i].Y = h.Mean[i]
	}

	if *fitFile != "" {
		fit, err := model.ReadParams(*fitFile)
		if err != nil {
			panic(err)
		}
		if len(fit) != h.NBins() {
			panic("fitted histogram size does not match the experimental one")
		}
		fitPts := make(plotter.XYs, h.NBins())
		for i := range fit {
			fitPts[i].X = (h.Edges[i] + h.Edges[i+1]) / 2
			fitPts[i].Y = fit[i]
		}
		err = plotutil.AddLinePoints(p,
			"experiment", expPts,
			"fit", fitPts)
		if err != nil {
			panic(err)
		}
	} else {
		if err := plotutil.AddLinePoints(p, "experiment", expPts); err != nil {
			panic(err)
		}
	}

	if err := p.Save(4*vg.Inch, 4*vg.Inch, *out); err != nil {
		panic(err)
	}
}
