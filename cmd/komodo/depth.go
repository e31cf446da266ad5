// Copyright ©2025 The komodo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"
)

// Raw read files are named by the sequencing centre as
//
//  <site><station><fraction>_S<index>[_L<lane>]_R<read>[_<chunk>].fastq[.gz]
//
// for example GB21S_S3_L001_R1_001.fastq.gz. The derived sample
// identifier inserts separators between the site code, station number
// and size fraction, and drops the read direction suffix so that the
// R1 and R2 files of a paired-end run sum into the same sample:
// GB21S_S3_L001_R[12]_001.fastq.gz -> GB_21_S.
var readFile = regexp.MustCompile(`^(?P<site>[A-Za-z]+)(?P<station>[0-9]+)(?P<fraction>[A-Za-z]*)_S[0-9]+(?:_L[0-9]{3})?_R(?P<read>[12])(?:_[0-9]{3})?\.f(?:ast)?q(?:\.gz)?$`)

var (
	siteIdx     = readFile.SubexpIndex("site")
	stationIdx  = readFile.SubexpIndex("station")
	fractionIdx = readFile.SubexpIndex("fraction")
)

// sampleFor returns the sample identifier derived from a raw read
// file name.
func sampleFor(name string) (string, error) {
	m := readFile.FindStringSubmatch(name)
	if m == nil {
		return "", fmt.Errorf("cannot derive sample identifier from file name %q", name)
	}
	parts := []string{m[siteIdx], m[stationIdx]}
	if m[fractionIdx] != "" {
		parts = append(parts, m[fractionIdx])
	}
	return strings.Join(parts, "_"), nil
}

// readDepths returns the total read count per sample for the raw read
// files in dir, counting files concurrently with the given number of
// workers. Every file is counted by two independent methods which must
// agree exactly; disagreement is returned as a VerificationError.
func readDepths(dir string, workers int) (map[string]int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if readFile.MatchString(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no raw read files in %q", dir)
	}

	if workers < 1 {
		workers = 1
	}
	counts := make([]int64, len(files))
	errs := make([]error, len(files))
	jobs := make(chan int)
	go func() {
		for i := range files {
			jobs <- i
		}
		close(jobs)
	}()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				counts[i], errs[i] = countFile(filepath.Join(dir, files[i]))
			}
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	totals := make(map[string]int64)
	for i, name := range files {
		sample, err := sampleFor(name)
		if err != nil {
			return nil, err
		}
		totals[sample] += counts[i]
	}
	return totals, nil
}

// countFile returns the number of reads in the FASTQ file at path.
// The primary count is a streaming record scan; it is verified against
// an independent decompress-and-line-count method and the two must
// agree exactly.
func countFile(path string) (int64, error) {
	records, err := countRecords(path)
	if err != nil {
		return 0, fmt.Errorf("failed to count records in %q: %w", path, err)
	}
	lines, err := countLines(path)
	if err != nil {
		return 0, fmt.Errorf("failed to count lines in %q: %w", path, err)
	}
	if records != lines {
		return 0, &VerificationError{Path: path, Records: records, Lines: lines}
	}
	return records, nil
}

func openReads(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, f.Close, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return gz, f.Close, nil
}

// countRecords streams the FASTQ records in the file at path, so the
// file is never held in memory whole.
func countRecords(path string) (int64, error) {
	r, done, err := openReads(path)
	if err != nil {
		return 0, err
	}
	defer done()

	t := linear.NewQSeq("", nil, alphabet.DNAredundant, alphabet.Sanger)
	sc := seqio.NewScanner(fastq.NewReader(r, t))
	var n int64
	for sc.Next() {
		n++
	}
	return n, sc.Error()
}

// countLines returns the line count of the file at path divided by
// four, the FASTQ record size.
func countLines(path string) (int64, error) {
	r, done, err := openReads(path)
	if err != nil {
		return 0, err
	}
	defer done()

	br := bufio.NewReader(r)
	var n int64
	for {
		b, err := br.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// A final line without a newline still counts.
				if len(b) != 0 {
					n++
				}
				break
			}
			return 0, err
		}
		n++
	}
	if n%4 != 0 {
		return 0, fmt.Errorf("line count %d is not a multiple of the FASTQ record size", n)
	}
	return n / 4, nil
}

// depthHeader is the column contract of per-file count tables and of
// the persisted per-sample depth table.
var (
	fileCountHeader = []string{"file", "n_reads"}
	depthHeader     = []string{"sample_id", "n_reads"}
)

// fileCountDepths returns the total read count per sample from a
// precomputed per-file count table, collapsing file counts to sample
// totals by the derived sample identifier.
func fileCountDepths(path string) (map[string]int64, error) {
	rows, err := readPairs(path, fileCountHeader)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int64)
	for _, row := range rows {
		sample, err := sampleFor(filepath.Base(row.key))
		if err != nil {
			return nil, err
		}
		totals[sample] += row.n
	}
	return totals, nil
}

// readDepthTable returns the per-sample totals held in a previously
// written depth table.
func readDepthTable(path string) (map[string]int64, error) {
	rows, err := readPairs(path, depthHeader)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int64, len(rows))
	for _, row := range rows {
		totals[row.key] = row.n
	}
	return totals, nil
}

type pair struct {
	key string
	n   int64
}

func readPairs(path string, header []string) ([]pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := csv.NewReader(f)
	c.Comma = '\t'
	c.Comment = '#'

	labels, err := c.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	for i, want := range header {
		if i >= len(labels) || labels[i] != want {
			return nil, fmt.Errorf("unexpected column names in %q: %v, want %v", path, labels, header)
		}
	}

	var rows []pair
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
		rows = append(rows, pair{key: row[0], n: n})
	}
	return rows, nil
}

// writeDepthTable persists the per-sample totals as a tab-delimited
// table ordered by sample identifier.
func writeDepthTable(path string, totals map[string]int64) (err error) {
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

	samples := make([]string, 0, len(totals))
	for s := range totals {
		samples = append(samples, s)
	}
	sort.Strings(samples)

	_, err = fmt.Fprintln(f, strings.Join(depthHeader, "\t"))
	if err != nil {
		return err
	}
	for _, s := range samples {
		_, err = fmt.Fprintf(f, "%s\t%d\n", s, totals[s])
		if err != nil {
			return err
		}
	}
	return nil
}
