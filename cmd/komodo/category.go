// Copyright ©2025 The komodo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// sampleMeta is one row of the external sample metadata table, used
// only for final column ordering and relabelling.
type sampleMeta struct {
	Sample      string
	Label       string
	Depth       float64 // water depth in metres.
	Temperature float64
}

// metadataColumns is the named-column contract of the sample metadata
// table.
var metadataColumns = []string{"sample", "label", "depth_m", "temperature_c"}

// readMetadata returns the sample metadata held in the table at path.
func readMetadata(path string) (map[string]sampleMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := csv.NewReader(f)
	c.Comma = '\t'
	c.Comment = '#'
	c.FieldsPerRecord = -1

	labels, err := c.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	col := make(map[string]int, len(labels))
	for i, l := range labels {
		col[l] = i
	}
	idx := make([]int, len(metadataColumns))
	for i, name := range metadataColumns {
		j, ok := col[name]
		if !ok {
			return nil, fmt.Errorf("declared column %q absent from %q", name, path)
		}
		idx[i] = j
	}

	meta := make(map[string]sampleMeta)
	for {
		row, err := c.Read()
		if err != nil {
			if err != io.EOF {
				return nil, err
			}
			break
		}
		for _, j := range idx {
			if j >= len(row) {
				return nil, fmt.Errorf("short row in %q: %v", path, row)
			}
		}
		depth, err := strconv.ParseFloat(row[idx[2]], 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing depth for %q in %q: %v", row[idx[0]], path, err)
		}
		temp, err := strconv.ParseFloat(row[idx[3]], 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing temperature for %q in %q: %v", row[idx[0]], path, err)
		}
		meta[row[idx[0]]] = sampleMeta{
			Sample:      row[idx[0]],
			Label:       row[idx[1]],
			Depth:       depth,
			Temperature: temp,
		}
	}
	return meta, nil
}

// categoryLabel returns the classification label of g at the given
// level. The coarsest level is "type".
func categoryLabel(g annotatedGene, level string) (string, error) {
	switch level {
	case "type":
		return g.Type, nil
	case "class":
		return g.Class, nil
	case "group":
		return g.Group, nil
	}
	return "", fmt.Errorf("unknown aggregation level %q", level)
}

// aggregate sums normalized per-gene abundances within each category
// label at the given level. Fan-out rows for one gene are reduced to
// one contribution per (gene, category), so modules sharing a category
// never count a gene twice. Genes with no valid category are excluded;
// genes with a category but no mapping data keep their category row
// representable at zero. Absent (gene, sample) cells sum as zero.
func aggregate(genes []annotatedGene, cov *coverage, level string) (map[string]map[string]float64, error) {
	sums := make(map[string]map[string]float64)
	type geneCat struct{ gene, label string }
	seen := make(map[geneCat]bool)

	for _, g := range genes {
		label, err := categoryLabel(g, level)
		if err != nil {
			return nil, err
		}
		if label == "" {
			continue
		}
		k := geneCat{g.GeneID, label}
		if seen[k] {
			continue
		}
		seen[k] = true

		row, ok := sums[label]
		if !ok {
			row = make(map[string]float64)
			sums[label] = row
		}
		for sample, pct := range cov.percent[g.GeneID] {
			row[sample] += pct
		}
	}
	return sums, nil
}

// orderSamples returns cov's samples ordered by ascending metadata
// temperature, with their human-readable display labels. Every mapped
// sample must have a metadata row.
func orderSamples(cov *coverage, meta map[string]sampleMeta) (samples, labels []string, err error) {
	samples = append(samples, cov.samples...)
	for _, s := range samples {
		if _, ok := meta[s]; !ok {
			return nil, nil, fmt.Errorf("no metadata for sample %q", s)
		}
	}
	sort.SliceStable(samples, func(i, j int) bool {
		mi, mj := meta[samples[i]], meta[samples[j]]
		if mi.Temperature != mj.Temperature {
			return mi.Temperature < mj.Temperature
		}
		return samples[i] < samples[j]
	})
	labels = make([]string, len(samples))
	for i, s := range samples {
		m := meta[s]
		labels[i] = fmt.Sprintf("%s (%v m)", m.Label, m.Depth)
	}
	return samples, labels, nil
}

// categoryMatrix assembles the aggregated sums into a dense matrix
// with sorted category rows and the given sample column order.
func categoryMatrix(sums map[string]map[string]float64, samples []string) (categories []string, m *mat.Dense) {
	categories = make([]string, 0, len(sums))
	for c := range sums {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	if len(categories) == 0 || len(samples) == 0 {
		return categories, nil
	}

	m = mat.NewDense(len(categories), len(samples), nil)
	for r, c := range categories {
		for col, s := range samples {
			m.Set(r, col, sums[c][s])
		}
	}
	return categories, m
}

// writeMatrix writes the labelled category-by-sample matrix to path
// as a tab-delimited table.
func writeMatrix(path string, rows, cols []string, data *mat.Dense) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		cerr := f.Close()
		if err == nil {
			err = cerr
		}
	}()

	_, err = f.Write([]byte{'\t'})
	if err != nil {
		return err
	}
	_, err = f.WriteString(strings.Join(cols, "\t"))
	if err != nil {
		return err
	}
	_, err = f.Write([]byte{'\n'})
	if err != nil {
		return err
	}

	for r, label := range rows {
		_, err = f.WriteString(label)
		if err != nil {
			return err
		}
		for c := range cols {
			_, err = fmt.Fprintf(f, "\t%v", data.At(r, c))
			if err != nil {
				return err
			}
		}
		_, err = f.Write([]byte{'\n'})
		if err != nil {
			return err
		}
	}
	return nil
}
