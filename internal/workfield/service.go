// Package workfield manages the reviewer's working copy of extracted fields:
// original vs. modified values, draft edit sessions, and the client-scoped
// persistence that survives reloads per submission.
package workfield

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"subview/internal/domain"
	"subview/internal/port"
)

// StorageKeyPrefix is the persisted-entry key prefix; the full key is
// StorageKeyPrefix + submission id. The format is kept for compatibility
// with previously stored data.
const StorageKeyPrefix = "extractedFields_"

// StorageKey returns the persistence key for a submission.
func StorageKey(submissionID string) string {
	return StorageKeyPrefix + submissionID
}

// Service is the field edit and persistence contract.
type Service interface {
	// Load returns the working-field collection for a submission. A
	// persisted entry fully replaces the freshly fetched extraction unless
	// force is set, which discards local edits in favor of a refetch.
	Load(ctx context.Context, submissionID string, force bool) ([]domain.WorkingField, error)
	// Fields returns the currently loaded collection.
	Fields() []domain.WorkingField
	// BeginEdit opens a draft seeded from the field's effective value.
	BeginEdit(fieldID string) (draft string, err error)
	// ConfirmEdit commits the draft as the modified value and persists the
	// whole collection for the active submission.
	ConfirmEdit(fieldID, draft string) (*domain.WorkingField, error)
	// CancelEdit discards the draft without persisting.
	CancelEdit(fieldID string)
	// Reset clears every field's edit for the active submission and erases
	// the persisted entry.
	Reset() error
}

type service struct {
	mu           sync.Mutex
	submissionID string
	fields       []domain.WorkingField
	editingID    string

	extraction port.ExtractionClient
	store      port.LocalStore
	log        *zap.Logger
}

// NewService creates a Service backed by the given extraction source and
// local store.
func NewService(extraction port.ExtractionClient, store port.LocalStore, log *zap.Logger) Service {
	return &service{
		extraction: extraction,
		store:      store,
		log:        log,
	}
}

func (s *service) Load(ctx context.Context, submissionID string, force bool) ([]domain.WorkingField, error) {
	if !force {
		if persisted, ok := s.loadPersisted(submissionID); ok {
			s.install(submissionID, persisted)
			return persisted, nil
		}
	}

	result, err := s.extraction.Fetch(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("fetching extraction for %s: %w", submissionID, err)
	}

	var fields []domain.WorkingField
	if result != nil {
		fields = make([]domain.WorkingField, 0, len(result.ExtractedFields))
		for _, ef := range result.ExtractedFields {
			fields = append(fields, domain.WorkingField{
				ExtractedField: ef,
				OriginalValue:  ef.Value,
				Status:         domain.FieldStatusOriginal,
			})
		}
	}

	if force {
		// Discarding local edits was explicit; drop the stale entry too.
		if err := s.store.Delete(StorageKey(submissionID)); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("deleting persisted edits", zap.String("submission_id", submissionID), zap.Error(err))
		}
	}

	s.install(submissionID, fields)
	return fields, nil
}

// loadPersisted reads and decodes the persisted collection. Any storage or
// decode failure is treated as "no local data".
func (s *service) loadPersisted(submissionID string) ([]domain.WorkingField, bool) {
	raw, err := s.store.Get(StorageKey(submissionID))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("reading persisted edits, falling back to fresh extraction",
				zap.String("submission_id", submissionID), zap.Error(err))
		}
		return nil, false
	}
	var fields []domain.WorkingField
	if err := json.Unmarshal(raw, &fields); err != nil {
		s.log.Warn("malformed persisted edits, falling back to fresh extraction",
			zap.String("submission_id", submissionID), zap.Error(err))
		return nil, false
	}
	if len(fields) == 0 {
		return nil, false
	}
	return fields, true
}

func (s *service) install(submissionID string, fields []domain.WorkingField) {
	s.mu.Lock()
	s.submissionID = submissionID
	s.fields = fields
	s.editingID = ""
	s.mu.Unlock()
}

func (s *service) Fields() []domain.WorkingField {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.WorkingField, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *service) BeginEdit(fieldID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.findLocked(fieldID)
	if f == nil {
		return "", domain.ErrNotFound
	}
	s.editingID = fieldID
	return f.EffectiveValue(), nil
}

func (s *service) ConfirmEdit(fieldID, draft string) (*domain.WorkingField, error) {
	s.mu.Lock()
	if s.editingID != fieldID {
		s.mu.Unlock()
		return nil, domain.ErrNoEditInProgress
	}
	f := s.findLocked(fieldID)
	if f == nil {
		s.mu.Unlock()
		return nil, domain.ErrNotFound
	}

	if draft != "" {
		f.ModifiedValue = draft
		f.Status = domain.FieldStatusModified
	} else {
		// Confirming an empty draft clears the edit rather than recording
		// an empty modification.
		f.ModifiedValue = ""
		f.Status = domain.FieldStatusOriginal
	}
	s.editingID = ""
	updated := *f
	submissionID := s.submissionID
	snapshot := make([]domain.WorkingField, len(s.fields))
	copy(snapshot, s.fields)
	s.mu.Unlock()

	s.persist(submissionID, snapshot)
	return &updated, nil
}

func (s *service) CancelEdit(fieldID string) {
	s.mu.Lock()
	if s.editingID == fieldID {
		s.editingID = ""
	}
	s.mu.Unlock()
}

func (s *service) Reset() error {
	s.mu.Lock()
	for i := range s.fields {
		s.fields[i].ModifiedValue = ""
		s.fields[i].Status = domain.FieldStatusOriginal
	}
	s.editingID = ""
	submissionID := s.submissionID
	s.mu.Unlock()

	if submissionID == "" {
		return domain.ErrNoSubmission
	}
	if err := s.store.Delete(StorageKey(submissionID)); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("deleting persisted edits for %s: %w", submissionID, err)
	}
	return nil
}

// persist writes the whole collection. A storage failure is logged, never
// surfaced to the reviewer; the in-memory edit already took effect.
func (s *service) persist(submissionID string, fields []domain.WorkingField) {
	raw, err := json.Marshal(fields)
	if err != nil {
		s.log.Warn("encoding working fields", zap.String("submission_id", submissionID), zap.Error(err))
		return
	}
	if err := s.store.Put(StorageKey(submissionID), raw); err != nil {
		s.log.Warn("persisting working fields", zap.String("submission_id", submissionID), zap.Error(err))
	}
}

func (s *service) findLocked(fieldID string) *domain.WorkingField {
	for i := range s.fields {
		if s.fields[i].ID == fieldID {
			return &s.fields[i]
		}
	}
	return nil
}
