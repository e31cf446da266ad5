// Copyright ©2025 The komodo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

var sampleForTests = []struct {
	name    string
	want    string
	wantErr bool
}{
	{name: "GB21S_S3_L001_R1_001.fastq.gz", want: "GB_21_S"},
	{name: "GB21S_S3_L001_R2_001.fastq.gz", want: "GB_21_S"},
	{name: "GB21L_S4_L001_R1_001.fastq.gz", want: "GB_21_L"},
	{name: "TP7_S12_R1.fq", want: "TP_7"},
	{name: "TP7_S12_R2.fq.gz", want: "TP_7"},
	{name: "MB4_S1_L002_R2.fastq", want: "MB_4"},
	{name: "mb4s_S1_R1_002.fastq.gz", want: "mb_4_s"},

	{name: "README.txt", wantErr: true},
	{name: "GB_S3_R1.fastq", wantErr: true},     // No station number.
	{name: "GB21S_R1.fastq.gz", wantErr: true},  // No sample sheet index.
	{name: "GB21S_S3_L001_001.fastq.gz", wantErr: true}, // No read direction.
	{name: "GB21S_S3_L001_R3_001.fastq.gz", wantErr: true},
}

func TestSampleFor(t *testing.T) {
	for _, test := range sampleForTests {
		got, err := sampleFor(test.name)
		if (err != nil) != test.wantErr {
			t.Errorf("unexpected error state for %q: %v", test.name, err)
			continue
		}
		if got != test.want {
			t.Errorf("unexpected sample for %q: %q != %q", test.name, got, test.want)
		}
	}
}

// fastqFor returns n minimal FASTQ records.
func fastqFor(n int) []byte {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "@read%d\nACGTACGT\n+\nIIIIIIII\n", i)
	}
	return buf.Bytes()
}

func writeGzip(t *testing.T, path string, data []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	if err != nil {
		t.Fatal(err)
	}
	err = w.Close()
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(path, buf.Bytes(), 0o644)
	if err != nil {
		t.Fatal(err)
	}
}

func TestCountFile(t *testing.T) {
	dir := t.TempDir()

	gz := filepath.Join(dir, "GB21S_S3_L001_R1_001.fastq.gz")
	writeGzip(t, gz, fastqFor(3))
	n, err := countFile(gz)
	if err != nil {
		t.Fatalf("unexpected error counting %q: %v", gz, err)
	}
	if n != 3 {
		t.Errorf("unexpected read count for %q: %d != 3", gz, n)
	}

	plain := filepath.Join(dir, "GB21S_S3_L001_R2_001.fastq")
	err = os.WriteFile(plain, fastqFor(2), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	n, err = countFile(plain)
	if err != nil {
		t.Fatalf("unexpected error counting %q: %v", plain, err)
	}
	if n != 2 {
		t.Errorf("unexpected read count for %q: %d != 2", plain, n)
	}

	// A final record without a trailing newline must count in
	// both methods.
	trimmed := filepath.Join(dir, "GB21S_S4_L001_R1_001.fastq")
	err = os.WriteFile(trimmed, bytes.TrimSuffix(fastqFor(2), []byte{'\n'}), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	n, err = countFile(trimmed)
	if err != nil {
		t.Fatalf("unexpected error counting %q: %v", trimmed, err)
	}
	if n != 2 {
		t.Errorf("unexpected read count for %q: %d != 2", trimmed, n)
	}
}

func TestReadDepths(t *testing.T) {
	dir := t.TempDir()
	files := map[string]int{
		"GB21S_S3_L001_R1_001.fastq.gz": 100,
		"GB21S_S3_L001_R2_001.fastq.gz": 50,
		"GB23S_S4_L001_R1_001.fastq.gz": 200,
	}
	for name, n := range files {
		writeGzip(t, filepath.Join(dir, name), fastqFor(n))
	}
	// Non-read files in the directory are ignored.
	err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("raw reads\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	for _, workers := range []int{1, 4} {
		totals, err := readDepths(dir, workers)
		if err != nil {
			t.Fatalf("unexpected error with %d workers: %v", workers, err)
		}
		want := map[string]int64{"GB_21_S": 150, "GB_23_S": 200}
		if !reflect.DeepEqual(totals, want) {
			t.Errorf("unexpected totals with %d workers: %v != %v", workers, totals, want)
		}
	}
}

func TestFileCountDepths(t *testing.T) {
	// Summation must not depend on row order.
	rows := []string{
		"GB21S_S3_L001_R1_001.fastq.gz\t100",
		"GB21S_S3_L001_R2_001.fastq.gz\t50",
		"GB23S_S4_L001_R1_001.fastq.gz\t200",
	}
	want := map[string]int64{"GB_21_S": 150, "GB_23_S": 200}

	dir := t.TempDir()
	for i, order := range [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}} {
		lines := []string{"file\tn_reads"}
		for _, j := range order {
			lines = append(lines, rows[j])
		}
		path := filepath.Join(dir, fmt.Sprintf("counts_%d.tsv", i))
		err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
		if err != nil {
			t.Fatal(err)
		}
		totals, err := fileCountDepths(path)
		if err != nil {
			t.Fatalf("unexpected error for order %v: %v", order, err)
		}
		if !reflect.DeepEqual(totals, want) {
			t.Errorf("unexpected totals for order %v: %v != %v", order, totals, want)
		}
	}
}

func TestDepthTableRoundTrip(t *testing.T) {
	want := map[string]int64{"GB_21_S": 150, "GB_23_S": 200}
	path := filepath.Join(t.TempDir(), "sample_depth.tsv")
	err := writeDepthTable(path, want)
	if err != nil {
		t.Fatalf("unexpected error writing depth table: %v", err)
	}
	got, err := readDepthTable(path)
	if err != nil {
		t.Fatalf("unexpected error reading depth table: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected totals after round trip: %v != %v", got, want)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	const wantTable = "sample_id\tn_reads\nGB_21_S\t150\nGB_23_S\t200\n"
	if string(b) != wantTable {
		t.Errorf("unexpected depth table text:\ngot:\n%s\nwant:\n%s", b, wantTable)
	}
}

func TestVerificationError(t *testing.T) {
	var err error = fmt.Errorf("counting failed: %w", &VerificationError{Path: "a.fastq.gz", Records: 10, Lines: 11})
	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Fatal("expected wrapped VerificationError to be matched")
	}
	msg := verr.Error()
	for _, want := range []string{"a.fastq.gz", "10", "11"} {
		if !strings.Contains(msg, want) {
			t.Errorf("verification error does not report %q: %q", want, msg)
		}
	}
}
