// Copyright ©2025 The komodo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// komodo integrates a flattened KEGG module database, per-sample
// sequencing read depths and per-gene read mapping counts into a
// category-by-sample normalized abundance matrix. It writes the matrix
// and the per-sample depth table as tab-delimited tables and a
// normalization diagnostic plot to a plot directory. The matrix is
// consumed by an external heatmap rendering step.
//
// The module database is the artifact written by modfetch.
//
// Per-sample total read depths are computed from a directory of raw
// gzip FASTQ files, or from a precomputed per-file count table with
// the columns file and n_reads, or reused from a previously written
// depth table. Each raw file is counted by a streaming record scan
// verified against an independent line count; the two counts must
// agree exactly. File names are reconciled to sample identifiers by
// the sequencing centre naming grammar, summing paired-end mates into
// one sample.
//
// Annotation tables are tab-delimited with the named columns gene,
// ko_id, genome and scaffold, one table per genome. Mapping tables are
// named <sample>_counts.tsv with a leading Geneid column followed by a
// count column, one table per sample.
//
// The sample metadata table carries the named columns sample, label,
// depth_m and temperature_c; matrix columns are ordered by ascending
// temperature and relabelled "label (depth m)".
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/kmods/komodo/internal/kegg"
)

func main() {
	var (
		workspace = flag.String("w", "", "specify the workspace holding an optional config file")
		confName  = flag.String("c", "config", "specify the config file name")
		moduledb  = flag.String("moduledb", "", "specify the flattened module database (.tsv/.tsv.gz - required)")
		reads     = flag.String("reads", "", "specify the raw read directory (.fastq/.fastq.gz)")
		counts    = flag.String("counts", "", "specify a precomputed per-file read count table")
		depth     = flag.String("depth", "", "specify a previously written per-sample depth table")
		annot     = flag.String("annot", "", "specify the annotation table directory (required)")
		mapping   = flag.String("mapping", "", "specify the mapping table directory (required)")
		meta      = flag.String("meta", "", "specify the sample metadata table (required)")
		level     = flag.String("level", "", "specify the aggregation level (type, class or group)")
		out       = flag.String("out", "", "specify the output matrix file")
		depthOut  = flag.String("depthout", "", "specify the per-sample depth table output file")
		workers   = flag.Int("workers", runtime.GOMAXPROCS(0), "specify the number of concurrent file counts")
		help      = flag.Bool("help", false, "print help text")
	)
	flag.Parse()

	if *help {
		flag.Usage()
		fmt.Fprintf(os.Stderr, `
%s integrates a flattened KEGG module database, per-sample sequencing
read depths and per-gene read mapping counts into a category-by-sample
normalized abundance matrix for heatmap rendering.

Gene mapping counts are normalized to a percentage of their sample's
total read count, joined to module categories via functional codes and
summed per category. Matrix columns are ordered by the temperature
column of the sample metadata table and relabelled with the metadata
label and water depth.

Exactly one of -reads, -counts or -depth must provide the read depth
source. All inputs are tab-delimited; paths may also be given by a
viper config file in the workspace named by -w and -c.

`, filepath.Base(os.Args[0]))
		os.Exit(0)
	}

	err := loadConfig(*workspace, *confName)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	var (
		moduledbPath = resolve(*moduledb, "moduledb", "")
		readsDir     = resolve(*reads, "reads", "")
		countsPath   = resolve(*counts, "counts", "")
		depthPath    = resolve(*depth, "depth", "")
		annotDir     = resolve(*annot, "annotations", "")
		mappingDir   = resolve(*mapping, "mapping", "")
		metaPath     = resolve(*meta, "metadata", "")
		aggLevel     = resolve(*level, "level", "type")
		outPath      = resolve(*out, "out", "category_matrix.tsv")
		depthOutPath = resolve(*depthOut, "depthout", "sample_depth.tsv")
	)

	if moduledbPath == "" || annotDir == "" || mappingDir == "" || metaPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if n := count(readsDir != "", countsPath != "", depthPath != ""); n != 1 {
		log.Fatalf("need exactly one of -reads, -counts or -depth, got %d", n)
	}

	log.Println(os.Args)
	err = os.MkdirAll("plots", 0o755)
	if err != nil {
		log.Fatal(err)
	}

	log.Println("[aggregating read depth]")
	var depths map[string]int64
	switch {
	case readsDir != "":
		depths, err = readDepths(readsDir, *workers)
	case countsPath != "":
		depths, err = fileCountDepths(countsPath)
	default:
		depths, err = readDepthTable(depthPath)
	}
	if err != nil {
		log.Fatalf("failed to aggregate read depth: %v", err)
	}
	if depthPath == "" {
		err = writeDepthTable(depthOutPath, depths)
		if err != nil {
			log.Fatalf("failed to write depth table: %v", err)
		}
	}

	log.Println("[loading module database]")
	db, err := kegg.ReadTable(moduledbPath)
	if err != nil {
		log.Fatalf("failed to load module database: %v", err)
	}

	log.Println("[joining annotations]")
	annots, err := loadAnnotations(annotDir)
	if err != nil {
		log.Fatalf("failed to load annotations: %v", err)
	}
	joined, err := joinModules(annots, db)
	if err != nil {
		log.Fatalf("failed to join annotations: %v", err)
	}

	log.Println("[normalizing coverage]")
	cov, err := normalizeCoverage(mappingDir, depths)
	if err != nil {
		log.Fatalf("failed to normalize coverage: %v", err)
	}
	err = plotTotals("normalized_totals", cov.samples, cov)
	if err != nil {
		log.Printf("failed to plot normalization diagnostic: %v", err)
	}

	log.Println("[aggregating categories]")
	sums, err := aggregate(joined, cov, aggLevel)
	if err != nil {
		log.Fatalf("failed to aggregate categories: %v", err)
	}
	metadata, err := readMetadata(metaPath)
	if err != nil {
		log.Fatalf("failed to read sample metadata: %v", err)
	}
	samples, labels, err := orderSamples(cov, metadata)
	if err != nil {
		log.Fatalf("failed to order samples: %v", err)
	}
	categories, m := categoryMatrix(sums, samples)
	if m == nil {
		log.Fatal("empty category matrix")
	}

	log.Println("[writing category matrix]")
	err = writeMatrix(outPath, categories, labels, m)
	if err != nil {
		log.Fatalf("failed to write category matrix: %v", err)
	}
}

func count(conds ...bool) int {
	var n int
	for _, c := range conds {
		if c {
			n++
		}
	}
	return n
}
