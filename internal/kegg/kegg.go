// Copyright ©2025 The komodo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kegg

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Entry is a single KEGG MODULE flat-file record. All sections are
// optional; a section that is absent in the source record is left as
// its zero value. The member sections hold the raw section lines with
// the twelve column key prefix removed and continuation indentation
// trimmed.
type Entry struct {
	// ID is the module accession from the ENTRY line.
	ID string

	// Name and Definition are the joined NAME and
	// DEFINITION section texts.
	Name       string
	Definition string

	// Class is the joined CLASS section text. It is a
	// "type; class; group" path when present.
	Class string

	// Orthology, Pathways, Reactions and Compounds are the
	// raw member lines of the corresponding sections.
	Orthology []string
	Pathways  []string
	Reactions []string
	Compounds []string
}

// keyWidth is the fixed width of the section key column in KEGG
// flat-file records.
const keyWidth = 12

// Decoder is a KEGG flat-file decoder. Records are separated by "///"
// lines and section keys occupy the first twelve columns of a line;
// lines with a blank key column continue the current section.
type Decoder struct {
	s    *bufio.Scanner
	line int
}

// NewDecoder returns a new Decoder that takes input from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{s: bufio.NewScanner(r)}
}

// Unmarshal returns the next record from the input stream. It returns
// io.EOF when the stream is exhausted.
func (d *Decoder) Unmarshal() (*Entry, error) {
	var (
		e       *Entry
		section string
	)
	for d.s.Scan() {
		d.line++
		line := d.s.Text()
		if strings.TrimRight(line, " ") == "///" {
			if e != nil {
				return e, nil
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		var key, text string
		if len(line) > keyWidth {
			key = strings.TrimRight(line[:keyWidth], " ")
			text = strings.TrimRight(line[keyWidth:], " ")
		} else {
			key = strings.TrimRight(line, " ")
		}
		if key != "" {
			section = key
		}
		if section == "" {
			return nil, fmt.Errorf("kegg: continuation line before any section at line %d: %q", d.line, line)
		}
		if e == nil {
			if section != "ENTRY" {
				return nil, fmt.Errorf("kegg: record does not start with ENTRY at line %d: %q", d.line, line)
			}
			e = &Entry{}
		}

		switch section {
		case "ENTRY":
			f := strings.Fields(text)
			if len(f) == 0 {
				return nil, fmt.Errorf("kegg: empty ENTRY line at line %d", d.line)
			}
			e.ID = f[0]
		case "NAME":
			e.Name = join(e.Name, text)
		case "DEFINITION":
			e.Definition = join(e.Definition, text)
		case "CLASS":
			e.Class = join(e.Class, text)
		case "ORTHOLOGY":
			e.Orthology = append(e.Orthology, text)
		case "PATHWAY":
			e.Pathways = append(e.Pathways, text)
		case "REACTION":
			e.Reactions = append(e.Reactions, text)
		case "COMPOUND":
			e.Compounds = append(e.Compounds, text)
		default:
			// Sections not used by the flattened table
			// (COMMENT, RMODULE, ...) are skipped.
		}
	}
	err := d.s.Err()
	if err != nil {
		return nil, err
	}
	if e != nil {
		// Record terminated by EOF rather than "///".
		return e, nil
	}
	return nil, io.EOF
}

func join(dst, next string) string {
	next = strings.TrimSpace(next)
	if dst == "" {
		return next
	}
	if next == "" {
		return dst
	}
	return dst + " " + next
}
