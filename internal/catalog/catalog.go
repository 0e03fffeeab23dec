// Package catalog provides the read-only submission/document lookup, loaded
// from a JSON file and optionally hot-reloaded when the file changes.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"subview/internal/domain"
	"subview/internal/port"
)

// Catalog implements port.Catalog from a catalog file of the shape
// {"submissions": [Submission...]}.
type Catalog struct {
	mu          sync.RWMutex
	submissions []domain.Submission
	byDoc       map[string]domain.Document
	bySub       map[string]domain.Submission

	path    string
	watcher *fsnotify.Watcher
	log     *zap.Logger
}

type catalogFile struct {
	Submissions []domain.Submission `json:"submissions"`
}

// Load reads the catalog file at path.
func Load(path string, log *zap.Logger) (*Catalog, error) {
	c := &Catalog{path: path, log: log}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Watch starts watching the catalog file and reloads it on writes. A broken
// rewrite keeps the last good catalog.
func (c *Catalog) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating catalog watcher: %w", err)
	}
	if err := w.Add(c.path); err != nil {
		_ = w.Close()
		return fmt.Errorf("watching %s: %w", c.path, err)
	}
	c.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := c.reload(); err != nil {
					c.log.Warn("catalog reload failed, keeping previous catalog",
						zap.String("path", c.path), zap.Error(err))
					continue
				}
				c.log.Info("catalog reloaded", zap.String("path", c.path))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.log.Warn("catalog watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (c *Catalog) reload() error {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("reading catalog %s: %w", c.path, err)
	}
	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("decoding catalog %s: %w", c.path, err)
	}

	byDoc := make(map[string]domain.Document)
	bySub := make(map[string]domain.Submission, len(file.Submissions))
	for _, sub := range file.Submissions {
		bySub[sub.SubmissionID] = sub
		for _, doc := range sub.Documents {
			if !doc.Type.Valid() {
				return fmt.Errorf("catalog document %s has unsupported type %q", doc.ID, doc.Type)
			}
			byDoc[doc.ID] = doc
		}
	}

	c.mu.Lock()
	c.submissions = file.Submissions
	c.byDoc = byDoc
	c.bySub = bySub
	c.mu.Unlock()
	return nil
}

var _ port.Catalog = (*Catalog)(nil)

// Submissions returns all submissions in catalog order.
func (c *Catalog) Submissions() []domain.Submission {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Submission, len(c.submissions))
	copy(out, c.submissions)
	return out
}

// Submission looks up a submission by id.
func (c *Catalog) Submission(id string) (*domain.Submission, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sub, ok := c.bySub[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sub, nil
}

// Document looks up a document by id.
func (c *Catalog) Document(id string) (*domain.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.byDoc[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// Close stops the watcher if one is running.
func (c *Catalog) Close() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}
