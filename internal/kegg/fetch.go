// Copyright ©2025 The komodo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kegg

import (
	"fmt"
	"io"
	"net/http"
	"sync"
)

// DefaultBase is the base URL of the KEGG REST service.
const DefaultBase = "https://rest.kegg.jp"

// Client fetches module records from a KEGG REST endpoint.
type Client struct {
	// Base is the service base URL. DefaultBase is used
	// if it is empty.
	Base string

	// Client is the HTTP client used for requests.
	// http.DefaultClient is used if it is nil.
	Client *http.Client

	// Retries is the number of attempts made for each
	// request. Values less than one mean a single attempt.
	Retries int
}

// Module returns the record for the module with the given accession.
func (c *Client) Module(id string) (*Entry, error) {
	retries := c.Retries
	if retries < 1 {
		retries = 1
	}
	var last error
	for t := 0; t < retries; t++ {
		e, err := c.fetch(id)
		if err == nil {
			return e, nil
		}
		last = err
	}
	return nil, last
}

func (c *Client) fetch(id string) (*Entry, error) {
	base := c.Base
	if base == "" {
		base = DefaultBase
	}
	hc := c.Client
	if hc == nil {
		hc = http.DefaultClient
	}

	resp, err := hc.Get(base + "/get/" + id)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kegg: unexpected status fetching %q: %s", id, resp.Status)
	}

	e, err := NewDecoder(resp.Body).Unmarshal()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("kegg: no record returned for %q", id)
		}
		return nil, err
	}
	if e.ID != id {
		return nil, fmt.Errorf("kegg: requested %q but received %q", id, e.ID)
	}
	return e, nil
}

// Result holds the outcome of fetching and flattening one module.
// Exactly one of Records and Err is meaningful.
type Result struct {
	ID      string
	Records []Record
	Err     error
}

// FetchAll fetches and flattens the modules with the given accessions
// using the given number of concurrent workers. A failure for one
// module does not interrupt the others. The returned results are
// ordered by the input accession list, not by completion time.
func FetchAll(c *Client, ids []string, workers int) []Result {
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(ids))
	jobs := make(chan int)
	go func() {
		for i := range ids {
			jobs <- i
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each worker writes only to its job's slot,
			// so no locking is needed.
			for i := range jobs {
				id := ids[i]
				e, err := c.Module(id)
				if err != nil {
					results[i] = Result{ID: id, Err: err}
					continue
				}
				recs, err := Flatten(e)
				results[i] = Result{ID: id, Records: recs, Err: err}
			}
		}()
	}
	wg.Wait()

	return results
}
