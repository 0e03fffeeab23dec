// Package extraction retrieves machine-extraction output per submission.
// Absence of a result is a valid outcome meaning "no extracted fields", not
// an error.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"subview/internal/config"
	"subview/internal/domain"
	"subview/internal/port"
)

// Client fetches extraction results from an http(s) endpoint or a local
// directory of <submissionId>.json files.
type Client struct {
	cfg  config.ExtractionConfig
	http *http.Client
	log  *zap.Logger
}

// NewClient creates an extraction client.
func NewClient(cfg config.ExtractionConfig, log *zap.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.HTTPTimeout},
		log:  log,
	}
}

var _ port.ExtractionClient = (*Client)(nil)

// Fetch returns the extraction result for a submission, or (nil, nil) when
// none exists. Transient failures are retried with backoff.
func (c *Client) Fetch(ctx context.Context, submissionID string) (*domain.ExtractionResult, error) {
	var result *domain.ExtractionResult
	err := retry.Do(
		func() error {
			var ferr error
			result, ferr = c.fetchOnce(ctx, submissionID)
			return ferr
		},
		retry.Attempts(c.cfg.MaxRetries),
		retry.Delay(c.cfg.RetryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) fetchOnce(ctx context.Context, submissionID string) (*domain.ExtractionResult, error) {
	if strings.HasPrefix(c.cfg.BaseURL, "http://") || strings.HasPrefix(c.cfg.BaseURL, "https://") {
		return c.fetchHTTP(ctx, submissionID)
	}
	return c.fetchFile(submissionID)
}

func (c *Client) fetchHTTP(ctx context.Context, submissionID string) (*domain.ExtractionResult, error) {
	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + submissionID + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building extraction request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching extraction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.log.Debug("no extraction data for submission", zap.String("submission_id", submissionID))
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction endpoint returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading extraction response: %w", err)
	}
	return decode(body)
}

func (c *Client) fetchFile(submissionID string) (*domain.ExtractionResult, error) {
	path := filepath.Join(c.cfg.BaseURL, submissionID+".json")
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		c.log.Debug("no extraction data for submission", zap.String("submission_id", submissionID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading extraction file: %w", err)
	}
	return decode(raw)
}

func decode(raw []byte) (*domain.ExtractionResult, error) {
	var result domain.ExtractionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding extraction result: %w", err)
	}
	return &result, nil
}
