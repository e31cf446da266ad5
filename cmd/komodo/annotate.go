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
	"strings"

	"github.com/kmods/komodo/internal/kegg"
)

// geneAnnotation is one row of an annotation tool output table.
type geneAnnotation struct {
	Gene     string
	Code     string // functional (KO) code; empty when unannotated.
	Genome   string
	Scaffold string
}

// annotatedGene is one row of the annotation join output: a gene
// matched to one functional module. A gene matching several modules
// appears once per match.
type annotatedGene struct {
	GeneID string
	Code   string
	Genome string
	Module string

	Type, Class, Group string
}

// annotationColumns is the named-column contract with the external
// annotation tool. Column order in the table may vary between tool
// versions, so columns are selected by name.
var annotationColumns = []string{"gene", "ko_id", "genome", "scaffold"}

// readAnnotationTable returns the gene annotations held in the table
// at path. A declared column that is absent from the header is an
// error. Rows with an empty functional code are returned; they are
// dropped by the join.
func readAnnotationTable(path string) ([]geneAnnotation, error) {
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
	idx := make([]int, len(annotationColumns))
	for i, name := range annotationColumns {
		j, ok := col[name]
		if !ok {
			return nil, fmt.Errorf("declared column %q absent from %q", name, path)
		}
		idx[i] = j
	}

	var annots []geneAnnotation
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
		annots = append(annots, geneAnnotation{
			Gene:     row[idx[0]],
			Code:     row[idx[1]],
			Genome:   row[idx[2]],
			Scaffold: row[idx[3]],
		})
	}
	return annots, nil
}

// loadAnnotations returns the concatenated annotation tables in dir,
// ordered by file name.
func loadAnnotations(dir string) ([]geneAnnotation, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.tsv"))
	if err != nil {
		return nil, err
	}
	zipped, err := filepath.Glob(filepath.Join(dir, "*.tsv.gz"))
	if err != nil {
		return nil, err
	}
	paths = append(paths, zipped...)
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no annotation tables in %q", dir)
	}

	var annots []geneAnnotation
	for _, path := range paths {
		a, err := readAnnotationTable(path)
		if err != nil {
			return nil, err
		}
		annots = append(annots, a...)
	}
	return annots, nil
}

// Gene names from the annotation tool carry a trailing _<integer>
// gene index within their scaffold.
var geneIndex = regexp.MustCompile(`_([0-9]+)$`)

// geneIDFor returns the synthetic gene identifier for an annotated
// gene: the scaffold identifier with the gene's index suffix appended.
func geneIDFor(a geneAnnotation) (string, error) {
	m := geneIndex.FindStringSubmatch(a.Gene)
	if m == nil {
		return "", fmt.Errorf("gene name %q in genome %q has no _<integer> index suffix", a.Gene, a.Genome)
	}
	return a.Scaffold + "_" + m[1], nil
}

// joinModules joins gene annotations against the flattened module
// database on functional code. Genes without a code and genes whose
// code matches no module are dropped; a gene matching k modules
// yields k rows.
func joinModules(annots []geneAnnotation, db []kegg.Record) ([]annotatedGene, error) {
	byCode := make(map[string][]kegg.Record)
	for _, r := range db {
		if r.Attr != "orthology" {
			continue
		}
		byCode[r.Member] = append(byCode[r.Member], r)
	}

	var (
		joined                 []annotatedGene
		unannotated, unmatched int
	)
	for _, a := range annots {
		if a.Code == "" {
			unannotated++
			continue
		}
		matches := byCode[a.Code]
		if len(matches) == 0 {
			unmatched++
			continue
		}
		id, err := geneIDFor(a)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			joined = append(joined, annotatedGene{
				GeneID: id,
				Code:   a.Code,
				Genome: a.Genome,
				Module: m.Module,
				Type:   m.Type, Class: m.Class, Group: m.Group,
			})
		}
	}
	log.Printf("joined %d annotation rows into %d module matches (%d unannotated, %d unmatched)",
		len(annots), len(joined), unannotated, unmatched)

	return joined, nil
}
