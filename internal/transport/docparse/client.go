// Package docparse is an HTTP client for an external structure-aware document
// parsing service. The service accepts raw document bytes and returns the
// parsed layout tree as JSON.
package docparse

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/clearbid/tenderdex/internal/domain"
)

const defaultTimeout = 120 * time.Second

// maxTreeBytes caps the parsed tree we are willing to buffer (64 MiB).
const maxTreeBytes = 64 << 20

// Client calls the parse service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// ClientConfig holds parse service settings.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClient creates a parse service client.
func NewClient(cfg *ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  cfg.Logger,
	}
}

// Parse sends document bytes to the service and returns the layout tree JSON.
// Any transport or non-2xx failure wraps domain.ErrParserUnavailable so
// callers can fall back to plain page-text chunking.
func (c *Client) Parse(ctx context.Context, document []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse", bytes.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("build parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parse service request: %v: %w", err, domain.ErrParserUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("parse service returned %d: %s: %w",
			resp.StatusCode, string(body), domain.ErrParserUnavailable)
	}

	tree, err := io.ReadAll(io.LimitReader(resp.Body, maxTreeBytes))
	if err != nil {
		return nil, fmt.Errorf("read parse response: %v: %w", err, domain.ErrParserUnavailable)
	}

	c.logger.Debug("Document parsed",
		zap.Int("document_bytes", len(document)),
		zap.Int("tree_bytes", len(tree)),
		zap.Duration("duration", time.Since(start)),
	)
	return tree, nil
}
