package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"streamstats/internal/config"
	"streamstats/internal/pipeline"
)

const maxDocumentBytes = 32 << 20

// Client reads a previously published document. A failed read is returned
// once; there is no retry.
type Client struct {
	httpClient *http.Client
}

func NewClient(cfg config.Config) *Client {
	timeout := time.Duration(cfg.FetchTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

func (c *Client) Fetch(ctx context.Context, url string) (*pipeline.Document, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("missing published document url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch published document: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch published document: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch published document: status=%d body=%s", resp.StatusCode, snippet(body, 200))
	}
	if len(body) > maxDocumentBytes {
		return nil, fmt.Errorf("fetch published document: larger than %d bytes", maxDocumentBytes)
	}
	return pipeline.DecodeDocument(body)
}

func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
