// Copyright ©2025 The komodo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// plotTotals plots the per-sample total normalized abundance to
// plots/name.png. The totals are the normalization sanity diagnostic:
// a bar near or above 100% indicates a wrong denominator.
func plotTotals(name string, samples []string, cov *coverage) error {
	p := plot.New()
	p.Title.Text = "Total normalized abundance"
	p.Y.Label.Text = "% of sample reads"

	totals := make(plotter.Values, len(samples))
	for i, s := range samples {
		totals[i] = cov.totals[s]
	}
	bars, err := plotter.NewBarChart(totals, vg.Points(20))
	if err != nil {
		return err
	}
	p.Add(bars)
	p.NominalX(samples...)

	return p.Save(18*vg.Centimeter, 15*vg.Centimeter, filepath.Join("plots", name+".png"))
}
