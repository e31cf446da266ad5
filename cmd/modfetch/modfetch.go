// Copyright ©2025 The komodo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// modfetch builds the flattened module database artifact used by komodo.
// It fetches each requested module record from the KEGG REST service,
// flattens the record into one row per member identifier and writes the
// concatenated table gzip compressed to the output file.
package main

import (
	"bufio"
	"compress/gzip"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kmods/komodo/internal/kegg"
)

func main() {
	var (
		list    = flag.String("modules", "", "specify a file of module accessions, one per line (required)")
		out     = flag.String("out", "moduledb.tsv.gz", "specify the module database output file")
		base    = flag.String("base", kegg.DefaultBase, "specify the KEGG REST base URL")
		retries = flag.Int("retry", 3, "specify the number of attempts to retrieve each module")
		workers = flag.Int("workers", runtime.GOMAXPROCS(0), "specify the number of concurrent fetches")
		help    = flag.Bool("help", false, "print help text")
	)
	flag.Parse()

	if *help {
		flag.Usage()
		fmt.Fprintf(os.Stderr, `
%s fetches KEGG MODULE records and flattens them into a tab-delimited
module database table with the columns:

 module type class group attribute member description n

Each member section of a record contributes one row per member
identifier; comma-joined identifiers on a single line are split into
one row per identifier sharing the line's description. Modules that
cannot be fetched or flattened are logged and excluded from the table
without interrupting the remaining modules.

The output is gzip compressed and is reusable across komodo runs.

`, filepath.Base(os.Args[0]))
		os.Exit(0)
	}

	if *list == "" {
		flag.Usage()
		os.Exit(2)
	}

	log.Println(os.Args)

	ids, err := moduleList(*list)
	if err != nil {
		log.Fatalf("failed to read module list: %v", err)
	}
	if len(ids) == 0 {
		log.Fatalf("no module accessions in %q", *list)
	}

	log.Printf("[fetching %d modules]", len(ids))
	c := &kegg.Client{
		Base:    *base,
		Client:  &http.Client{Timeout: time.Minute},
		Retries: *retries,
	}
	results := kegg.FetchAll(c, ids, *workers)

	var table []kegg.Record
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Printf("failed to flatten %s: %v", r.ID, r.Err)
			continue
		}
		table = append(table, r.Records...)
	}
	log.Printf("flattened %d modules (%d rows), %d failed", len(ids)-failed, len(table), failed)

	log.Println("[writing module database]")
	err = writeArtifact(*out, table)
	if err != nil {
		log.Fatalf("failed to write module database: %v", err)
	}

	if failed == len(ids) {
		log.Fatal("all modules failed")
	}
}

// moduleList returns the module accessions held in the file at path,
// one per line. Blank lines and #-comments are skipped.
func moduleList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, s.Err()
}

func writeArtifact(path string, table []kegg.Record) (err error) {
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

	w := gzip.NewWriter(f)
	err = kegg.WriteTable(w, table)
	if err != nil {
		return err
	}
	return w.Close()
}
