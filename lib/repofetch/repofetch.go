/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package repofetch retrieves repository release metadata over HTTPS.
package repofetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Fetcher is the narrow surface the network checks use. A nil Fetcher means
// "no HTTP client available" and causes those checks to be skipped.
type Fetcher interface {
	// Head probes a URL for reachability. An HTTP error status still counts
	// as reachable; only transport-level failures return an error.
	Head(ctx context.Context, url string) error
	// Fetch downloads a URL, requiring a 200 response.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// maxReleaseSize bounds release-index downloads; real Release files are a
// few hundred KB at most.
const maxReleaseSize = 8 << 20

type HTTPFetcher struct {
	Client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: http.DefaultClient}
}

func (f *HTTPFetcher) Head(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxReleaseSize))
}
