// Package source fetches document bytes from their catalog URLs. It backs
// both adapter loads (with cancellation, so a document switch aborts the
// in-flight transfer) and client-initiated downloads.
package source

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"subview/internal/port"
)

// Source implements port.DocumentSource for http(s) and file URLs. A URL
// without a scheme is treated as a filesystem path.
type Source struct {
	http *http.Client
}

// New creates a Source.
func New(client *http.Client) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	return &Source{http: client}
}

var _ port.DocumentSource = (*Source)(nil)

// Fetch reads the full resource, honoring ctx cancellation.
func (s *Source) Fetch(ctx context.Context, url string) ([]byte, error) {
	rc, _, _, err := s.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return data, nil
}

// Open streams the resource for downloads.
func (s *Source) Open(ctx context.Context, url string) (io.ReadCloser, int64, string, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return s.openHTTP(ctx, url)
	}
	return openFile(url)
}

func (s *Source) openHTTP(ctx context.Context, url string) (io.ReadCloser, int64, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, "", fmt.Errorf("building request for %s: %w", url, err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("fetching %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, "", fmt.Errorf("fetching %s: %s", url, resp.Status)
	}
	return resp.Body, resp.ContentLength, resp.Header.Get("Content-Type"), nil
}

func openFile(path string) (io.ReadCloser, int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, "", fmt.Errorf("opening %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, "", fmt.Errorf("stat %s: %w", path, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return f, info.Size(), contentType, nil
}
