// Package fieldlist bridges the working-field collection to the shared
// selection store: keyboard navigation through the list, highlight
// activation, and reacting to highlights that originate in the viewer.
package fieldlist

import (
	"sync"

	"go.uber.org/zap"

	"subview/internal/domain"
	"subview/internal/selection"
)

// Key is a normalized keyboard event name delivered by the client.
type Key string

const (
	KeyUp     Key = "up"
	KeyDown   Key = "down"
	KeyEnter  Key = "enter"
	KeyEscape Key = "escape"
	// KeyEdit is the modifier+E chord entering edit mode for the focused
	// field.
	KeyEdit Key = "edit"
)

// ListState names the list's empty/placeholder conditions.
type ListState string

const (
	// StateNoSubmission shows the "pick a submission" placeholder.
	StateNoSubmission ListState = "no_submission"
	// StateEmpty means the active submission has no fields; the list offers
	// a refetch action.
	StateEmpty ListState = "empty"
	StateReady ListState = "ready"
)

// Snapshot is the renderable list state. ScrollToFieldID is set once per
// external highlight and consumed by the read.
type Snapshot struct {
	State           ListState             `json:"state"`
	Fields          []domain.WorkingField `json:"fields"`
	Cursor          int                   `json:"cursor"` // -1 when nothing focused
	ScrollToFieldID string                `json:"scrollToFieldId,omitempty"`
}

// Bridge is the field-list side of the selection synchronization.
type Bridge struct {
	mu           sync.Mutex
	submissionID string
	fields       []domain.WorkingField
	cursor       int
	scrollTo     string

	store  *selection.Store
	cancel func()
	log    *zap.Logger
}

// NewBridge creates the bridge and subscribes it to the store. External
// highlights (a box clicked in the viewer) force-scroll the list and clear
// keyboard focus; highlights initiated from the list itself preserve focus
// and trigger no scroll.
func NewBridge(store *selection.Store, log *zap.Logger) *Bridge {
	b := &Bridge{
		cursor: -1,
		store:  store,
		log:    log,
	}
	events, cancel := store.Subscribe()
	b.cancel = cancel
	go b.consume(events)
	return b
}

func (b *Bridge) consume(events <-chan selection.Event) {
	for ev := range events {
		if ev.Kind != domain.ChangeHighlight || ev.Highlight == nil {
			continue
		}
		if ev.Highlight.Origin == domain.HighlightOriginList {
			continue
		}
		b.mu.Lock()
		b.scrollTo = ev.Highlight.Field.ID
		b.cursor = -1
		b.mu.Unlock()
	}
}

// SetFields installs the working-field collection for a submission and
// resets focus.
func (b *Bridge) SetFields(submissionID string, fields []domain.WorkingField) {
	b.mu.Lock()
	b.submissionID = submissionID
	b.fields = fields
	b.cursor = -1
	b.scrollTo = ""
	b.mu.Unlock()
}

// UpdateField replaces a single field in place after an edit.
func (b *Bridge) UpdateField(updated domain.WorkingField) {
	b.mu.Lock()
	for i := range b.fields {
		if b.fields[i].ID == updated.ID {
			b.fields[i] = updated
			break
		}
	}
	b.mu.Unlock()
}

// HandleKey processes a keyboard event. For KeyEdit it returns the focused
// field's id so the caller can open an edit session; otherwise the returned
// id is empty.
func (b *Bridge) HandleKey(key Key) (editFieldID string) {
	b.mu.Lock()

	switch key {
	case KeyUp, KeyDown:
		if len(b.fields) == 0 {
			break
		}
		if b.cursor < 0 {
			// First arrow press focuses an end of the list.
			if key == KeyDown {
				b.cursor = 0
			} else {
				b.cursor = len(b.fields) - 1
			}
			break
		}
		if key == KeyDown {
			b.cursor = (b.cursor + 1) % len(b.fields)
		} else {
			b.cursor = (b.cursor - 1 + len(b.fields)) % len(b.fields)
		}
	case KeyEscape:
		b.cursor = -1
	case KeyEnter:
		if b.cursor >= 0 && b.cursor < len(b.fields) {
			f := b.fields[b.cursor].ExtractedField
			b.mu.Unlock()
			// User-initiated: focus continuity is preserved because the
			// consume loop ignores list-origin highlights.
			b.store.HighlightField(f, domain.HighlightOriginList)
			return ""
		}
	case KeyEdit:
		if b.cursor >= 0 && b.cursor < len(b.fields) {
			id := b.fields[b.cursor].ID
			b.mu.Unlock()
			return id
		}
	}

	b.mu.Unlock()
	return ""
}

// Snapshot returns the current renderable state and consumes any pending
// scroll target.
func (b *Bridge) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{
		Fields:          b.fields,
		Cursor:          b.cursor,
		ScrollToFieldID: b.scrollTo,
	}
	b.scrollTo = ""

	switch {
	case b.submissionID == "":
		snap.State = StateNoSubmission
	case len(b.fields) == 0:
		snap.State = StateEmpty
	default:
		snap.State = StateReady
	}
	return snap
}

// Close releases the store subscription.
func (b *Bridge) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}
