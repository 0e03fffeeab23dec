package selection

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"subview/internal/domain"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s := NewStore(ttl, zap.NewNop())
	t.Cleanup(s.Close)
	return s
}

func extractedField(id, docID string, page int) domain.ExtractedField {
	return domain.ExtractedField{
		Field: domain.Field{ID: id, Name: id, Value: "v"},
		Provenance: domain.FieldProvenance{
			DocID: docID,
			Page:  page,
		},
	}
}

func waitEvent(t *testing.T, ch <-chan Event, kind domain.ChangeKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "subscription closed while waiting for %s", kind)
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func TestSetSubmissionResetsDocumentAndPage(t *testing.T) {
	s := newTestStore(t, time.Minute)

	s.SetSubmission("sub_2")
	s.SetDocument("doc_7")
	s.SetPage(4)

	s.SetSubmission("sub_5")

	st := s.GetState()
	assert.Equal(t, "sub_5", st.SubmissionID)
	assert.Empty(t, st.DocumentID)
	assert.Nil(t, st.Page)
	assert.Equal(t, 1, st.PageOrDefault())
}

func TestSetDocumentResetsPage(t *testing.T) {
	s := newTestStore(t, time.Minute)

	s.SetSubmission("sub_1")
	s.SetDocument("doc_1")
	s.SetPage(9)
	s.SetDocument("doc_2")

	st := s.GetState()
	require.NotNil(t, st.Page)
	assert.Equal(t, 1, *st.Page)
}

func TestHighlightNavigatesToProvenance(t *testing.T) {
	s := newTestStore(t, time.Minute)
	s.SetSubmission("sub_1")
	s.SetDocument("doc_1")

	t.Run("different document jumps document and page", func(t *testing.T) {
		s.HighlightField(extractedField("f1", "doc_2", 3), domain.HighlightOriginList)
		st := s.GetState()
		assert.Equal(t, "doc_2", st.DocumentID)
		assert.Equal(t, 3, st.PageOrDefault())
	})

	t.Run("same document different page jumps page only", func(t *testing.T) {
		s.HighlightField(extractedField("f2", "doc_2", 7), domain.HighlightOriginList)
		st := s.GetState()
		assert.Equal(t, "doc_2", st.DocumentID)
		assert.Equal(t, 7, st.PageOrDefault())
	})

	t.Run("same document same page leaves selection untouched", func(t *testing.T) {
		before := s.GetState()
		s.HighlightField(extractedField("f3", "doc_2", 7), domain.HighlightOriginList)
		assert.Equal(t, before, s.GetState())
	})
}

func TestHighlightExpiry(t *testing.T) {
	s := newTestStore(t, 30*time.Millisecond)
	events, cancel := s.Subscribe()
	defer cancel()

	s.HighlightField(extractedField("f1", "", 0), domain.HighlightOriginList)
	require.NotNil(t, s.Highlighted())

	waitEvent(t, events, domain.ChangeHighlightExpired)
	assert.Nil(t, s.Highlighted())
}

func TestReHighlightRestartsExpiryWindow(t *testing.T) {
	s := newTestStore(t, 80*time.Millisecond)

	s.HighlightField(extractedField("f1", "", 0), domain.HighlightOriginList)
	first := s.Highlighted()
	require.NotNil(t, first)

	time.Sleep(50 * time.Millisecond)
	s.HighlightField(extractedField("f1", "", 0), domain.HighlightOriginList)
	second := s.Highlighted()
	require.NotNil(t, second)
	assert.True(t, second.ExpiresAt.After(first.ExpiresAt))

	// The original window has elapsed but the restarted one has not.
	time.Sleep(50 * time.Millisecond)
	assert.NotNil(t, s.Highlighted())
}

func TestReHighlightSameFieldDoesNotNotify(t *testing.T) {
	s := newTestStore(t, time.Minute)

	s.HighlightField(extractedField("f1", "", 0), domain.HighlightOriginList)
	events, cancel := s.Subscribe()
	defer cancel()

	s.HighlightField(extractedField("f1", "", 0), domain.HighlightOriginList)
	select {
	case ev := <-events:
		t.Fatalf("expected no event, got %s", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewHighlightSupersedesOldTimer(t *testing.T) {
	s := newTestStore(t, 60*time.Millisecond)

	s.HighlightField(extractedField("f1", "", 0), domain.HighlightOriginList)
	time.Sleep(30 * time.Millisecond)
	s.HighlightField(extractedField("f2", "", 0), domain.HighlightOriginList)

	// f1's timer firing must not clear f2's highlight.
	time.Sleep(40 * time.Millisecond)
	h := s.Highlighted()
	require.NotNil(t, h)
	assert.Equal(t, "f2", h.Field.ID)
}

func TestClearHighlight(t *testing.T) {
	s := newTestStore(t, time.Minute)
	events, cancel := s.Subscribe()
	defer cancel()

	s.HighlightField(extractedField("f1", "", 0), domain.HighlightOriginList)
	waitEvent(t, events, domain.ChangeHighlight)

	s.ClearHighlight()
	waitEvent(t, events, domain.ChangeHighlightExpired)
	assert.Nil(t, s.Highlighted())

	// Clearing again is a no-op and emits nothing.
	s.ClearHighlight()
	select {
	case ev := <-events:
		t.Fatalf("expected no event, got %s", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeObservesMutationOrder(t *testing.T) {
	s := newTestStore(t, time.Minute)
	events, cancel := s.Subscribe()
	defer cancel()

	s.SetSubmission("sub_1")
	s.SetDocument("doc_1")
	s.SetPage(2)

	ev := waitEvent(t, events, domain.ChangeSelection)
	assert.Equal(t, "sub_1", ev.State.SubmissionID)
	ev = waitEvent(t, events, domain.ChangeSelection)
	assert.Equal(t, "doc_1", ev.State.DocumentID)
	ev = waitEvent(t, events, domain.ChangeSelection)
	assert.Equal(t, 2, ev.State.PageOrDefault())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	page := 3
	st := State{SubmissionID: "sub_4", DocumentID: "doc_9", Page: &page}

	q := EncodeState(st)
	assert.Equal(t, "sub_4", q.Get(ParamSubmissionID))
	assert.Equal(t, "doc_9", q.Get(ParamDocumentID))
	assert.Equal(t, "3", q.Get(ParamPage))

	assert.Equal(t, st, DecodeQuery(q))
}

func TestDecodeQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  State
	}{
		{name: "empty", query: "", want: State{}},
		{
			name:  "submission only",
			query: "submissionId=sub_1",
			want:  State{SubmissionID: "sub_1"},
		},
		{
			name:  "page without document is dropped",
			query: "submissionId=sub_1&page=4",
			want:  State{SubmissionID: "sub_1"},
		},
		{
			name:  "malformed page is dropped",
			query: "submissionId=sub_1&documentId=doc_1&page=abc",
			want:  State{SubmissionID: "sub_1", DocumentID: "doc_1"},
		},
		{
			name:  "non-positive page is dropped",
			query: "submissionId=sub_1&documentId=doc_1&page=0",
			want:  State{SubmissionID: "sub_1", DocumentID: "doc_1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, DecodeQuery(q))
		})
	}
}

func TestEncodeQueryOmitsHighlight(t *testing.T) {
	s := newTestStore(t, time.Minute)
	s.SetSubmission("sub_1")
	s.HighlightField(extractedField("f1", "", 0), domain.HighlightOriginViewer)

	q := s.EncodeQuery()
	assert.Equal(t, "submissionId=sub_1", q.Encode())
}
