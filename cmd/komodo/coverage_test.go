// Copyright ©2025 The komodo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeFileT(t *testing.T, path, data string) {
	t.Helper()
	err := os.WriteFile(path, []byte(data), 0o644)
	if err != nil {
		t.Fatal(err)
	}
}

func TestNormalizeCoverage(t *testing.T) {
	dir := t.TempDir()
	writeFileT(t, filepath.Join(dir, "GB_21_S_counts.tsv"),
		"Geneid\tGB_21_S\nk127_1_2\t150\nk127_2_1\t0\n")
	writeFileT(t, filepath.Join(dir, "GB_23_S_counts.tsv"),
		"Geneid\tGB_23_S\nk127_1_2\t20\n")

	depths := map[string]int64{"GB_21_S": 10000, "GB_23_S": 200}
	cov, err := normalizeCoverage(dir, depths)
	if err != nil {
		t.Fatalf("unexpected error normalizing: %v", err)
	}

	if got, want := cov.samples, []string{"GB_21_S", "GB_23_S"}; len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("unexpected samples: %v != %v", got, want)
	}

	// 150/10000 x 100 = 1.5.
	if got := cov.percent["k127_1_2"]["GB_21_S"]; got != 1.5 {
		t.Errorf("unexpected percent for k127_1_2 in GB_21_S: %v != 1.5", got)
	}
	// A zero raw count is 0.0, never missing.
	got, ok := cov.percent["k127_2_1"]["GB_21_S"]
	if !ok {
		t.Error("zero-count gene missing from normalized table")
	}
	if got != 0 {
		t.Errorf("unexpected percent for zero-count gene: %v != 0", got)
	}
	// A gene absent from a sample's mapping output stays absent
	// in the wide table.
	if _, ok := cov.percent["k127_2_1"]["GB_23_S"]; ok {
		t.Error("gene absent from mapping output was coerced into the wide table")
	}

	if got := cov.percent["k127_1_2"]["GB_23_S"]; got != 10 {
		t.Errorf("unexpected percent for k127_1_2 in GB_23_S: %v != 10", got)
	}

	// The per-sample percentage total is the normalization
	// sanity diagnostic.
	if got := cov.totals["GB_21_S"]; math.Abs(got-1.5) > 1e-12 {
		t.Errorf("unexpected total for GB_21_S: %v != 1.5", got)
	}
	if got := cov.totals["GB_23_S"]; math.Abs(got-10) > 1e-12 {
		t.Errorf("unexpected total for GB_23_S: %v != 10", got)
	}
}

func TestNormalizeCoverageMissingDepth(t *testing.T) {
	dir := t.TempDir()
	writeFileT(t, filepath.Join(dir, "GB_25_S_counts.tsv"),
		"Geneid\tGB_25_S\nk127_1_2\t15\n")

	_, err := normalizeCoverage(dir, map[string]int64{"GB_21_S": 150})
	var mde *MissingDepthError
	if !errors.As(err, &mde) {
		t.Fatalf("expected MissingDepthError, got %v", err)
	}
	if mde.Sample != "GB_25_S" {
		t.Errorf("unexpected sample in error: %q != %q", mde.Sample, "GB_25_S")
	}
}

func TestReadMappingHeaderContract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GB_21_S_counts.tsv")
	writeFileT(t, path, "gene\tGB_21_S\nk127_1_2\t15\n")
	_, err := readMapping(path)
	if err == nil {
		t.Error("expected error for mapping table without Geneid column")
	}
}

func TestReadMappingNegativeCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GB_21_S_counts.tsv")
	writeFileT(t, path, "Geneid\tGB_21_S\nk127_1_2\t-3\n")
	_, err := readMapping(path)
	if err == nil {
		t.Error("expected error for negative count")
	}
}
