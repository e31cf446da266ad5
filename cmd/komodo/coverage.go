// Copyright ©2025 The komodo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// coverage holds normalized abundance per gene per sample, merged wide
// across samples. A gene present in any sample's mapping output has a
// row; a (gene, sample) cell with no mapping entry is absent, not
// zero, until aggregation.
type coverage struct {
	// samples is the sample identifiers in file name order.
	samples []string

	// percent maps gene identifier to per-sample percent of
	// the sample's total reads.
	percent map[string]map[string]float64

	// totals is the per-sample sum of all gene percentages,
	// kept as a normalization sanity diagnostic.
	totals map[string]float64
}

// Mapping tables are named <sample>_counts.tsv[.gz] by the read
// mapping batch jobs.
var mappingFile = regexp.MustCompile(`^(.+)_counts\.tsv(?:\.gz)?$`)

// readMapping returns the per-gene raw read counts held in the
// mapping table at path. The first column being Geneid is the
// documented positional convention of the mapping tool; the second
// column holds the counts.
func readMapping(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	c := csv.NewReader(r)
	c.Comma = '\t'
	c.Comment = '#'

	labels, err := c.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if labels[0] != "Geneid" {
		return nil, fmt.Errorf(`unexpected first column name in %q: %q != "Geneid"`, path, labels[0])
	}
	if len(labels) < 2 {
		return nil, fmt.Errorf("no count column in %q", path)
	}

	counts := make(map[string]int64)
	c.ReuseRecord = true
	for {
		row, err := c.Read()
		if err != nil {
			if err != io.EOF {
				return nil, err
			}
			break
		}
		n, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing count for %q in %q: %v", row[0], path, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("negative count for %q in %q", row[0], path)
		}
		if _, ok := counts[row[0]]; ok {
			return nil, fmt.Errorf("duplicate gene %q in %q", row[0], path)
		}
		counts[row[0]] = n
	}
	return counts, nil
}

// normalizeCoverage reads the per-sample mapping tables in dir and
// normalizes each gene's raw count by the sample's total read depth,
// as a percentage. A sample with mapping data but no depth entry is a
// MissingDepthError; the denominator is never defaulted.
func normalizeCoverage(dir string, depths map[string]int64) (*coverage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if mappingFile.MatchString(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no mapping tables in %q", dir)
	}

	cov := &coverage{
		percent: make(map[string]map[string]float64),
		totals:  make(map[string]float64),
	}
	for _, name := range files {
		sample := mappingFile.FindStringSubmatch(name)[1]
		total, ok := depths[sample]
		if !ok {
			return nil, &MissingDepthError{Sample: sample}
		}
		if total == 0 {
			return nil, fmt.Errorf("zero total read depth for sample %q", sample)
		}

		counts, err := readMapping(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		cov.samples = append(cov.samples, sample)
		pcts := make([]float64, 0, len(counts))
		for gene, n := range counts {
			pct := float64(n) / float64(total) * 100
			row, ok := cov.percent[gene]
			if !ok {
				row = make(map[string]float64)
				cov.percent[gene] = row
			}
			row[sample] = pct
			pcts = append(pcts, pct)
		}
		cov.totals[sample] = floats.Sum(pcts)

		// Well below 100% is expected given partial mapping
		// rates; values near or above it indicate a wrong
		// denominator.
		log.Printf("sample %s: %d genes, %.3f%% of reads mapped", sample, len(counts), cov.totals[sample])
	}

	return cov, nil
}
