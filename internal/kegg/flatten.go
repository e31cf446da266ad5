// Copyright ©2025 The komodo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kegg

import (
	"fmt"
	"regexp"
	"strings"
)

// Record is one row of the flattened module database. A module yields
// one Record per member identifier in each of its member sections, all
// sharing the module's classification path.
type Record struct {
	// Module is the source module accession.
	Module string

	// Type, Class and Group are the three ordered fields of
	// the module's classification path. They are empty when
	// the source record has no CLASS section.
	Type, Class, Group string

	// Attr names the member section the row came from:
	// "orthology", "pathway", "reaction" or "compound".
	Attr string

	// Member is the member identifier and Description its
	// text. Member is unique within a module and section,
	// not globally.
	Member      string
	Description string

	// Seq is the stable row sequence number within the
	// module, based from 1.
	Seq int
}

// ShapeError describes a composite field that did not split into the
// expected number of sub-fields.
type ShapeError struct {
	Module string
	Field  string
	Text   string
	Want   int
	Got    int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("kegg: %s %s splits into %d fields, want %d: %q", e.Module, e.Field, e.Got, e.Want, e.Text)
}

var (
	// memberSep separates member identifiers from their
	// description in keyed section lines.
	memberSep = regexp.MustCompile(`\s{2,}|\t`)

	// reactionLine matches reaction member lines, which carry no
	// separately keyed name: the leading comma-joined reaction
	// codes are the identifiers and the remainder of the line is
	// the description.
	reactionLine = regexp.MustCompile(`^(R\d{5}(?:,R\d{5})*)\s+(.*)$`)
)

// Flatten returns the flattened rows for e. Absent sections contribute
// no rows, so a module with no member sections yields zero rows and a
// nil error. A CLASS section that does not split into exactly three
// path fields is a ShapeError.
func Flatten(e *Entry) ([]Record, error) {
	var typ, class, group string
	if e.Class != "" {
		f := strings.Split(e.Class, "; ")
		if len(f) != 3 {
			return nil, &ShapeError{Module: e.ID, Field: "CLASS", Text: e.Class, Want: 3, Got: len(f)}
		}
		typ, class, group = f[0], f[1], f[2]
	}

	var recs []Record
	add := func(attr, member, desc string) {
		recs = append(recs, Record{
			Module: e.ID,
			Type:   typ, Class: class, Group: group,
			Attr:        attr,
			Member:      member,
			Description: desc,
			Seq:         len(recs) + 1,
		})
	}

	for _, line := range e.Orthology {
		ids, desc := splitMember(line)
		if ids == "" {
			continue
		}
		// A line with k comma-separated identifiers explodes
		// into k rows sharing the description.
		for _, id := range strings.Split(ids, ",") {
			add("orthology", id, desc)
		}
	}
	for _, line := range e.Pathways {
		id, desc := splitMember(line)
		if id == "" {
			continue
		}
		add("pathway", id, desc)
	}
	for _, line := range e.Reactions {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := reactionLine.FindStringSubmatch(line)
		if m == nil {
			return nil, &ShapeError{Module: e.ID, Field: "REACTION", Text: line, Want: 2, Got: 1}
		}
		for _, id := range strings.Split(m[1], ",") {
			add("reaction", id, m[2])
		}
	}
	for _, line := range e.Compounds {
		id, desc := splitMember(line)
		if id == "" {
			continue
		}
		add("compound", id, desc)
	}

	return recs, nil
}

// splitMember splits a keyed member line into its identifier field and
// description text.
func splitMember(line string) (ids, desc string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}
	f := memberSep.Split(line, 2)
	if len(f) == 1 {
		return f[0], ""
	}
	return f[0], strings.TrimSpace(f[1])
}
