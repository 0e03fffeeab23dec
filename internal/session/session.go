// Package session composes one reviewer's viewer state: the selection
// store, the mounted per-format adapter, the field list bridge, and the
// working-field service, kept in sync through the store's event stream.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"subview/internal/domain"
	"subview/internal/fieldlist"
	"subview/internal/overlay"
	"subview/internal/port"
	"subview/internal/selection"
	"subview/internal/viewer"
	"subview/internal/workfield"
)

// Snapshot is the full renderable session state returned to clients.
type Snapshot struct {
	State     selection.State     `json:"state"`
	ShareQuery string             `json:"shareQuery"`
	Highlight *domain.Highlight   `json:"highlight,omitempty"`
	Viewer    *viewer.Status      `json:"viewer,omitempty"`
	FieldList fieldlist.Snapshot  `json:"fieldList"`
}

// Session is one reviewer's composition of the core components.
type Session struct {
	ID string

	store   *selection.Store
	bridge  *fieldlist.Bridge
	fields  workfield.Service
	catalog port.Catalog
	factory *viewer.Factory
	log     *zap.Logger

	mu         sync.Mutex
	adapter    viewer.Adapter
	mountedDoc string
	loadCancel context.CancelFunc
	lastSeen   time.Time

	events      <-chan selection.Event
	eventsStop  func()
	done        chan struct{}
}

func newSession(id string, store *selection.Store, fields workfield.Service, catalog port.Catalog, factory *viewer.Factory, log *zap.Logger) *Session {
	s := &Session{
		ID:       id,
		store:    store,
		bridge:   fieldlist.NewBridge(store, log),
		fields:   fields,
		catalog:  catalog,
		factory:  factory,
		log:      log.With(zap.String("session_id", id)),
		lastSeen: time.Now(),
		done:     make(chan struct{}),
	}
	s.events, s.eventsStop = store.Subscribe()
	go s.consume()
	return s
}

// consume reacts to store mutations: it remounts the adapter when the
// active document changes and keeps the adapter's visible page in sync with
// store-driven navigation.
func (s *Session) consume() {
	for ev := range s.events {
		if ev.Kind != domain.ChangeSelection {
			continue
		}
		s.syncToState(ev.State)
	}
	close(s.done)
}

func (s *Session) syncToState(st selection.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.DocumentID == s.mountedDoc {
		if s.adapter != nil {
			s.adapter.SyncToPage(st.PageOrDefault())
		}
		return
	}
	s.unmountLocked()
	if st.DocumentID == "" {
		return
	}
	if err := s.mountLocked(st.DocumentID); err != nil {
		s.log.Warn("mounting document", zap.String("doc_id", st.DocumentID), zap.Error(err))
		return
	}
	// Seed the target page so a deep link or cross-document highlight lands
	// on the right page once the load completes.
	s.adapter.SyncToPage(st.PageOrDefault())
}

// mountLocked tears down any previous adapter and starts loading the given
// document. The per-mount context guarantees a superseded load can neither
// keep fetching nor apply its result.
func (s *Session) mountLocked(docID string) error {
	doc, err := s.catalog.Document(docID)
	if err != nil {
		return fmt.Errorf("looking up document %s: %w", docID, err)
	}

	extracted := make([]domain.ExtractedField, 0)
	for _, wf := range s.fields.Fields() {
		extracted = append(extracted, wf.ExtractedField)
	}

	adapter, err := s.factory.New(*doc, extracted, s.onViewerPageChange)
	if err != nil {
		return fmt.Errorf("creating adapter for %s: %w", docID, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.adapter = adapter
	s.mountedDoc = docID
	s.loadCancel = cancel
	adapter.Load(ctx)
	return nil
}

func (s *Session) unmountLocked() {
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}
	if s.adapter != nil {
		s.adapter.Close()
		s.adapter = nil
	}
	s.mountedDoc = ""
}

// onViewerPageChange propagates viewer-driven navigation (a manual page
// swipe) outward so the URL state follows what is visually shown.
func (s *Session) onViewerPageChange(page int) {
	s.store.SetPage(page)
}

// SelectSubmission activates a submission: selection resets, fields load
// (persisted edits win over fresh extraction), and any mounted document is
// torn down via the selection event.
func (s *Session) SelectSubmission(ctx context.Context, submissionID string) error {
	if _, err := s.catalog.Submission(submissionID); err != nil {
		return err
	}
	s.store.SetSubmission(submissionID)

	fields, err := s.fields.Load(ctx, submissionID, false)
	if err != nil {
		s.bridge.SetFields(submissionID, nil)
		return err
	}
	s.bridge.SetFields(submissionID, fields)
	return nil
}

// RefetchFields re-fetches extraction data for the active submission,
// optionally discarding local edits.
func (s *Session) RefetchFields(ctx context.Context, discardEdits bool) error {
	st := s.store.GetState()
	if st.SubmissionID == "" {
		return domain.ErrNoSubmission
	}
	fields, err := s.fields.Load(ctx, st.SubmissionID, discardEdits)
	if err != nil {
		return err
	}
	s.bridge.SetFields(st.SubmissionID, fields)
	return nil
}

// SelectDocument activates a document of the current submission.
func (s *Session) SelectDocument(documentID string) error {
	st := s.store.GetState()
	if st.SubmissionID == "" {
		return domain.ErrNoSubmission
	}
	sub, err := s.catalog.Submission(st.SubmissionID)
	if err != nil {
		return err
	}
	found := false
	for _, d := range sub.Documents {
		if d.ID == documentID {
			found = true
			break
		}
	}
	if !found {
		return domain.ErrNotFound
	}
	s.store.SetDocument(documentID)
	return nil
}

// SetPage drives navigation from the URL/state side.
func (s *Session) SetPage(n int) error {
	if s.store.GetState().DocumentID == "" {
		return domain.ErrNoDocument
	}
	s.store.SetPage(n)
	return nil
}

// ViewerGoToPage drives navigation from the viewer side; the resulting page
// change propagates back into the store.
func (s *Session) ViewerGoToPage(n int) (int, error) {
	s.mu.Lock()
	adapter := s.adapter
	s.mu.Unlock()
	if adapter == nil {
		return 0, domain.ErrNoDocument
	}
	return adapter.GoToPage(n), nil
}

// HighlightFieldByID emphasizes a working field; the store handles any
// document/page jump its provenance requires.
func (s *Session) HighlightFieldByID(fieldID string, origin domain.HighlightOrigin) error {
	for _, wf := range s.fields.Fields() {
		if wf.ID == fieldID {
			s.store.HighlightField(wf.ExtractedField, origin)
			return nil
		}
	}
	return domain.ErrNotFound
}

// HighlightAt hit-tests the current page overlay at a page-space point and
// highlights the struck field, both in the same gesture.
func (s *Session) HighlightAt(xFrac, yFrac float64) (*domain.ExtractedField, error) {
	ov, err := s.CurrentOverlay()
	if err != nil {
		return nil, err
	}
	if ov == nil {
		return nil, nil
	}
	f := ov.HitTest(xFrac, yFrac)
	if f == nil {
		return nil, nil
	}
	s.store.HighlightField(*f, domain.HighlightOriginViewer)
	return f, nil
}

// CurrentOverlay builds the highlight overlay for the visible page, marking
// the highlighted field active.
func (s *Session) CurrentOverlay() (*overlay.Overlay, error) {
	s.mu.Lock()
	adapter := s.adapter
	s.mu.Unlock()
	if adapter == nil {
		return nil, domain.ErrNoDocument
	}
	active := ""
	if h := s.store.Highlighted(); h != nil {
		active = h.Field.ID
	}
	return adapter.CurrentOverlay(active)
}

// HandleKey forwards a field-list keyboard event. For the edit chord it
// opens an edit session and returns the seeded draft.
func (s *Session) HandleKey(key fieldlist.Key) (editFieldID, draft string, err error) {
	editFieldID = s.bridge.HandleKey(key)
	if editFieldID == "" {
		return "", "", nil
	}
	draft, err = s.fields.BeginEdit(editFieldID)
	if err != nil {
		return "", "", err
	}
	return editFieldID, draft, nil
}

// BeginEdit opens an edit session for a field.
func (s *Session) BeginEdit(fieldID string) (string, error) {
	return s.fields.BeginEdit(fieldID)
}

// ConfirmEdit commits a draft and reflects the updated field in the list.
func (s *Session) ConfirmEdit(fieldID, draft string) (*domain.WorkingField, error) {
	updated, err := s.fields.ConfirmEdit(fieldID, draft)
	if err != nil {
		return nil, err
	}
	s.bridge.UpdateField(*updated)
	return updated, nil
}

// CancelEdit discards a draft.
func (s *Session) CancelEdit(fieldID string) {
	s.fields.CancelEdit(fieldID)
}

// ResetFields clears all edits for the active submission and reloads the
// list from the (now unedited) working set.
func (s *Session) ResetFields() error {
	if err := s.fields.Reset(); err != nil {
		return err
	}
	st := s.store.GetState()
	s.bridge.SetFields(st.SubmissionID, s.fields.Fields())
	return nil
}

// Restore initializes the session from deep-link query parameters.
func (s *Session) Restore(ctx context.Context, q url.Values) error {
	st := selection.DecodeQuery(q)
	if st.SubmissionID == "" {
		s.store.Restore(selection.State{})
		return nil
	}
	if err := s.SelectSubmission(ctx, st.SubmissionID); err != nil {
		return err
	}
	if st.DocumentID != "" {
		err := s.SelectDocument(st.DocumentID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// A stale document reference degrades to the submission view.
			return nil
		case err != nil:
			return err
		}
		if st.Page != nil {
			s.store.SetPage(*st.Page)
		}
	}
	return nil
}

// Snapshot assembles the renderable state for the client.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		State:      s.store.GetState(),
		ShareQuery: s.store.EncodeQuery().Encode(),
		Highlight:  s.store.Highlighted(),
		FieldList:  s.bridge.Snapshot(),
	}
	s.mu.Lock()
	if s.adapter != nil {
		st := s.adapter.Status()
		snap.Viewer = &st
	}
	s.mu.Unlock()
	return snap
}

// ViewerStatus returns the adapter lifecycle snapshot.
func (s *Session) ViewerStatus() (*viewer.Status, error) {
	s.mu.Lock()
	adapter := s.adapter
	s.mu.Unlock()
	if adapter == nil {
		return nil, domain.ErrNoDocument
	}
	st := adapter.Status()
	return &st, nil
}

// ViewerPage returns surface info for a page of the mounted document.
func (s *Session) ViewerPage(n int) (*viewer.PageInfo, error) {
	s.mu.Lock()
	adapter := s.adapter
	s.mu.Unlock()
	if adapter == nil {
		return nil, domain.ErrNoDocument
	}
	return adapter.Page(n)
}

// RetryLoad reloads the mounted document after a load error.
func (s *Session) RetryLoad() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adapter == nil {
		return domain.ErrNoDocument
	}
	if s.loadCancel != nil {
		s.loadCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.loadCancel = cancel
	s.adapter.Retry(ctx)
	return nil
}

// SheetAdapter returns the mounted adapter's tabular interface, if the
// active document is a spreadsheet.
func (s *Session) RevealMoreRows(delta int) (int, error) {
	s.mu.Lock()
	adapter := s.adapter
	s.mu.Unlock()
	sheet, ok := adapter.(interface{ RevealMoreRows(int) int })
	if !ok || adapter == nil {
		return 0, domain.ErrNoDocument
	}
	return sheet.RevealMoreRows(delta), nil
}

// SheetRows returns the revealed row window for a sheet of a mounted
// spreadsheet.
func (s *Session) SheetRows(n int) (rows [][]string, total int, err error) {
	s.mu.Lock()
	adapter := s.adapter
	s.mu.Unlock()
	sheet, ok := adapter.(interface {
		SheetRows(int) ([][]string, int, error)
	})
	if !ok || adapter == nil {
		return nil, 0, domain.ErrNoDocument
	}
	return sheet.SheetRows(n)
}

// Touch records activity for idle expiry.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen returns the time of last activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close tears down the session: adapter, subscriptions, and the store.
func (s *Session) Close() {
	s.mu.Lock()
	s.unmountLocked()
	s.mu.Unlock()
	s.bridge.Close()
	s.eventsStop()
	s.store.Close()
	<-s.done
}
