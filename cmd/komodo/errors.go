// Copyright ©2025 The komodo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "fmt"

// VerificationError describes disagreement between the two independent
// read-counting methods for a raw sequence file. It is a data
// integrity failure and is fatal to the pipeline run.
type VerificationError struct {
	Path    string
	Records int64
	Lines   int64
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("read count mismatch for %q: %d records != %d lines/4", e.Path, e.Records, e.Lines)
}

// MissingDepthError describes a sample that has read mapping data but
// no total read depth entry to normalize against.
type MissingDepthError struct {
	Sample string
}

func (e *MissingDepthError) Error() string {
	return fmt.Sprintf("no total read depth for sample %q", e.Sample)
}
