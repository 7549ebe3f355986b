// Package fetch downloads remote save sources.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tstromberg/camroll/pkg/camroll"
)

// HTTP fetches http and https sources. It never retries.
type HTTP struct {
	Client *http.Client
}

var _ camroll.Fetcher = (*HTTP)(nil)

// Fetch implements camroll.Fetcher.
func (h *HTTP) Fetch(ctx context.Context, u *url.URL, w io.Writer) (int64, error) {
	c := h.Client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("get %s: %s", u.Redacted(), resp.Status)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read body: %w", err)
	}
	return n, nil
}
