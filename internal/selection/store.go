// Package selection owns the shared viewer selection: active submission,
// document, page, and the ephemeral highlighted field. It is the single
// mutable resource both the field list and the viewer adapters read and
// write; all mutation goes through named operations so ordering, URL
// reflection, and the highlight expiry stay centralized.
package selection

import (
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"subview/internal/domain"
)

// Query parameter names of the shareable URL encoding.
const (
	ParamSubmissionID = "submissionId"
	ParamDocumentID   = "documentId"
	ParamPage         = "page"
)

// State is the URL-backed selection. Page is nil when no explicit page was
// chosen; a selected document then shows page 1.
type State struct {
	SubmissionID string `json:"submissionId"`
	DocumentID   string `json:"documentId"`
	Page         *int   `json:"page,omitempty"`
}

// PageOrDefault returns the effective 1-based page.
func (s State) PageOrDefault() int {
	if s.Page == nil {
		return 1
	}
	return *s.Page
}

// Event is delivered to subscribers on every state change. Highlight is set
// for highlight/expiry events only.
type Event struct {
	Kind      domain.ChangeKind
	State     State
	Highlight *domain.Highlight
}

// Store is the selection state container. All operations are synchronous and
// effective immediately; subscribers observe them in mutation order.
type Store struct {
	mu        sync.Mutex
	state     State
	highlight *domain.Highlight

	ttl   time.Duration
	timer *time.Timer
	// gen guards the single-flight expiry task: a timer fired for a
	// superseded highlight must not clear the current one.
	gen uint64

	subs   map[int]chan Event
	nextID int

	log *zap.Logger
	now func() time.Time
}

// NewStore creates a Store with the given highlight TTL.
func NewStore(ttl time.Duration, log *zap.Logger) *Store {
	return &Store{
		ttl:  ttl,
		subs: make(map[int]chan Event),
		log:  log,
		now:  time.Now,
	}
}

// GetState returns the current selection.
func (s *Store) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Highlighted returns the currently emphasized field, or nil.
func (s *Store) Highlighted() *domain.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.highlight == nil {
		return nil
	}
	h := *s.highlight
	return &h
}

// SetSubmission activates a submission and clears document and page.
func (s *Store) SetSubmission(id string) {
	s.mu.Lock()
	s.state = State{SubmissionID: id}
	s.clearHighlightLocked()
	s.notifyLocked(Event{Kind: domain.ChangeSelection, State: s.state})
	s.mu.Unlock()
}

// SetDocument activates a document within the current submission and resets
// the page to 1.
func (s *Store) SetDocument(id string) {
	s.mu.Lock()
	s.setDocumentLocked(id)
	s.notifyLocked(Event{Kind: domain.ChangeSelection, State: s.state})
	s.mu.Unlock()
}

// SetPage sets the 1-based page. Bounds are the caller's responsibility; the
// adapters clamp against their own page counts.
func (s *Store) SetPage(n int) {
	s.mu.Lock()
	s.setPageLocked(n)
	s.notifyLocked(Event{Kind: domain.ChangeSelection, State: s.state})
	s.mu.Unlock()
}

// HighlightField emphasizes a single field and restarts the expiry window.
// When the field's provenance references a different document or page than
// the active one, the selection follows it so the viewer jumps to the right
// place. Re-highlighting the already-highlighted field only restarts the
// timer.
func (s *Store) HighlightField(f domain.ExtractedField, origin domain.HighlightOrigin) {
	s.mu.Lock()
	defer s.mu.Unlock()

	navigated := false
	if f.Provenance.DocID != "" && f.Provenance.DocID != s.state.DocumentID {
		s.setDocumentLocked(f.Provenance.DocID)
		s.setPageLocked(f.Provenance.Page)
		navigated = true
	} else if f.Provenance.Page > 0 && f.Provenance.Page != s.state.PageOrDefault() {
		s.setPageLocked(f.Provenance.Page)
		navigated = true
	}
	if navigated {
		s.notifyLocked(Event{Kind: domain.ChangeSelection, State: s.state})
	}

	same := s.highlight != nil && s.highlight.Field.ID == f.ID
	s.highlight = &domain.Highlight{
		Field:     f,
		Origin:    origin,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.restartTimerLocked()
	if !same {
		h := *s.highlight
		s.notifyLocked(Event{Kind: domain.ChangeHighlight, State: s.state, Highlight: &h})
	}
}

// ClearHighlight drops the highlighted field immediately.
func (s *Store) ClearHighlight() {
	s.mu.Lock()
	if s.highlight != nil {
		s.clearHighlightLocked()
		s.notifyLocked(Event{Kind: domain.ChangeHighlightExpired, State: s.state})
	}
	s.mu.Unlock()
}

// Restore replaces the selection wholesale, e.g. from a decoded deep link.
func (s *Store) Restore(state State) {
	s.mu.Lock()
	s.state = state
	s.clearHighlightLocked()
	s.notifyLocked(Event{Kind: domain.ChangeSelection, State: s.state})
	s.mu.Unlock()
}

// Subscribe registers an observer. The returned cancel func must be called
// to release the subscription. Slow subscribers drop events rather than
// blocking mutations.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan Event, 16)
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close stops the expiry timer and closes all subscriptions.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// EncodeQuery encodes the selection as shareable URL query parameters. The
// highlighted field is memory-only and never encoded.
func (s *Store) EncodeQuery() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return EncodeState(s.state)
}

// EncodeState encodes a State as URL query parameters.
func EncodeState(st State) url.Values {
	q := url.Values{}
	if st.SubmissionID != "" {
		q.Set(ParamSubmissionID, st.SubmissionID)
	}
	if st.DocumentID != "" {
		q.Set(ParamDocumentID, st.DocumentID)
	}
	if st.Page != nil {
		q.Set(ParamPage, strconv.Itoa(*st.Page))
	}
	return q
}

// DecodeQuery reconstructs a State from URL query parameters. A malformed or
// non-positive page is treated as absent.
func DecodeQuery(q url.Values) State {
	st := State{
		SubmissionID: q.Get(ParamSubmissionID),
		DocumentID:   q.Get(ParamDocumentID),
	}
	if raw := q.Get(ParamPage); raw != "" && st.DocumentID != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			st.Page = &n
		}
	}
	return st
}

func (s *Store) setDocumentLocked(id string) {
	one := 1
	s.state.DocumentID = id
	s.state.Page = &one
}

func (s *Store) setPageLocked(n int) {
	s.state.Page = &n
}

func (s *Store) clearHighlightLocked() {
	s.highlight = nil
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// restartTimerLocked cancels any pending expiry task and schedules a new
// one. At most one task is ever pending per store.
func (s *Store) restartTimerLocked() {
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.ttl, func() {
		s.expire(gen)
	})
}

func (s *Store) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.highlight == nil {
		return
	}
	s.log.Debug("highlight expired", zap.String("field_id", s.highlight.Field.ID))
	s.highlight = nil
	s.timer = nil
	s.notifyLocked(Event{Kind: domain.ChangeHighlightExpired, State: s.state})
}

func (s *Store) notifyLocked(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.log.Warn("dropping selection event for slow subscriber",
				zap.String("kind", string(ev.Kind)))
		}
	}
}
