// Copyright ©2025 The komodo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kegg

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// tableHeader is the column contract of the flattened module database
// artifact.
var tableHeader = []string{"module", "type", "class", "group", "attribute", "member", "description", "n"}

// WriteTable writes recs to w as a tab-delimited table with a header
// row. The artifact is reusable across pipeline runs.
func WriteTable(w io.Writer, recs []Record) error {
	_, err := fmt.Fprintln(w, strings.Join(tableHeader, "\t"))
	if err != nil {
		return err
	}
	for _, r := range recs {
		_, err = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			r.Module, r.Type, r.Class, r.Group, r.Attr, r.Member, r.Description, r.Seq)
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadTable returns the records held in the module database artifact
// at path. Paths ending in .gz are decompressed.
func ReadTable(path string) ([]Record, error) {
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
	if len(labels) != len(tableHeader) {
		return nil, fmt.Errorf("kegg: unexpected column count in %q: %d != %d", path, len(labels), len(tableHeader))
	}
	for i, want := range tableHeader {
		if labels[i] != want {
			return nil, fmt.Errorf("kegg: unexpected column name in %q: %q != %q", path, labels[i], want)
		}
	}

	var recs []Record
	c.ReuseRecord = true
	for {
		row, err := c.Read()
		if err != nil {
			if err != io.EOF {
				return nil, err
			}
			break
		}
		seq, err := strconv.Atoi(row[7])
		if err != nil {
			return nil, fmt.Errorf("kegg: error parsing sequence number for %q in %q: %v", row[0], path, err)
		}
		recs = append(recs, Record{
			Module: row[0],
			Type:   row[1], Class: row[2], Group: row[3],
			Attr:        row[4],
			Member:      row[5],
			Description: row[6],
			Seq:         seq,
		})
	}
	return recs, nil
}
