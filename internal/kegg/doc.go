// Copyright ©2025 The komodo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kegg implements decoding of KEGG MODULE flat-file records and
// flattening them into a relational module database table. It is not a
// complete KEGG flat-file parser implementation.
package kegg // import "github.com/kmods/komodo/internal/kegg"
