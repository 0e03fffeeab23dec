package viewer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"subview/internal/config"
	"subview/internal/domain"
	"subview/internal/geometry"
	"subview/internal/port"
	"subview/mocks"
)

func testViewerConfig() config.ViewerConfig {
	return config.ViewerConfig{
		HighlightTTL:   6 * time.Second,
		SheetRowWindow: 3,
		LoadRetries:    0,
	}
}

func emlDoc() domain.Document {
	return domain.Document{
		ID:   "doc_1",
		Name: "broker_email.eml",
		Type: domain.DocTypeEML,
		URL:  "http://files.test/broker_email.eml",
	}
}

func provField(id, docName string, page int) domain.ExtractedField {
	return domain.ExtractedField{
		Field: domain.Field{ID: id, Name: id, Value: "v"},
		Provenance: domain.FieldProvenance{
			DocName: docName,
			Page:    page,
			BBox:    []float64{0.1, 0.1, 0.2, 0.05},
		},
	}
}

func waitReady(t *testing.T, a Adapter) {
	t.Helper()
	require.Eventually(t, func() bool {
		return a.Status().State == domain.AdapterReady
	}, 2*time.Second, 5*time.Millisecond)
}

func waitError(t *testing.T, a Adapter) {
	t.Helper()
	require.Eventually(t, func() bool {
		return a.Status().State == domain.AdapterError
	}, 2*time.Second, 5*time.Millisecond)
}

func newRenderedDoc(pages int, widthPx, heightPx float64) *mocks.MockRenderedDocument {
	rd := new(mocks.MockRenderedDocument)
	rd.On("PageCount").Return(pages)
	for i := 1; i <= pages; i++ {
		rd.On("RenderPage", mock.Anything, i).Return(&port.RenderedPage{
			Index:    i,
			WidthPx:  widthPx,
			HeightPx: heightPx,
		}, nil)
	}
	rd.On("Close").Return(nil)
	return rd
}

func TestFactoryDispatch(t *testing.T) {
	f := NewFactory(new(mocks.MockDocumentSource), new(mocks.MockPageRenderer),
		geometry.NewNormalizer(zap.NewNop()), testViewerConfig(), zap.NewNop())

	for _, dt := range []domain.DocumentType{
		domain.DocTypePDF, domain.DocTypeImage, domain.DocTypeXLSX,
		domain.DocTypeEML, domain.DocTypeDOCX,
	} {
		a, err := f.New(domain.Document{ID: "d", Name: "d", Type: dt}, nil, nil)
		require.NoError(t, err, dt)
		require.NotNil(t, a, dt)
	}

	_, err := f.New(domain.Document{Type: "tiff"}, nil, nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestPagedAdapterLifecycle(t *testing.T) {
	doc := emlDoc()
	data := []byte("Subject: Renewal inquiry\r\nFrom: broker@example.com\r\n\r\nSee attached.")

	source := new(mocks.MockDocumentSource)
	source.On("Fetch", mock.Anything, doc.URL).Return(data, nil)
	renderer := new(mocks.MockPageRenderer)
	renderer.On("Open", mock.Anything, doc, data).Return(newRenderedDoc(3, 816, 1056), nil)

	f := NewFactory(source, renderer, geometry.NewNormalizer(zap.NewNop()), testViewerConfig(), zap.NewNop())
	a, err := f.New(doc, nil, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, domain.AdapterIdle, a.Status().State)

	a.Load(context.Background())
	waitReady(t, a)

	st := a.Status()
	assert.Equal(t, 3, st.PageCount)
	assert.Equal(t, 1, st.CurrentPage)

	// The eml subject labels the page surface.
	info, err := a.Page(1)
	require.NoError(t, err)
	assert.Equal(t, "Renewal inquiry", info.Name)
	assert.Equal(t, 816.0, info.WidthPx)

	_, err = a.Page(4)
	assert.ErrorIs(t, err, domain.ErrPageOutOfRange)
}

func TestPagedAdapterLoadFailureAndRetry(t *testing.T) {
	doc := emlDoc()
	data := []byte("Subject: ok\r\n\r\nbody")

	source := new(mocks.MockDocumentSource)
	source.On("Fetch", mock.Anything, doc.URL).Return(nil, errors.New("connection refused")).Once()
	source.On("Fetch", mock.Anything, doc.URL).Return(data, nil).Once()
	renderer := new(mocks.MockPageRenderer)
	renderer.On("Open", mock.Anything, doc, data).Return(newRenderedDoc(1, 816, 1056), nil)

	f := NewFactory(source, renderer, geometry.NewNormalizer(zap.NewNop()), testViewerConfig(), zap.NewNop())
	a, err := f.New(doc, nil, nil)
	require.NoError(t, err)
	defer a.Close()

	a.Load(context.Background())
	waitError(t, a)
	assert.Contains(t, a.Status().Error, "connection refused")

	_, err = a.Page(1)
	assert.ErrorIs(t, err, domain.ErrDocumentNotReady)

	a.Retry(context.Background())
	waitReady(t, a)
	assert.Equal(t, 1, a.PageCount())
}

func TestPagedAdapterStaleLoadDiscarded(t *testing.T) {
	doc := emlDoc()
	slow := []byte("Subject: slow\r\n\r\nold")
	fast := []byte("Subject: fast\r\n\r\nnew")

	release := make(chan time.Time)
	source := new(mocks.MockDocumentSource)
	source.On("Fetch", mock.Anything, doc.URL).WaitUntil(release).Return(slow, nil).Once()
	source.On("Fetch", mock.Anything, doc.URL).Return(fast, nil).Once()

	staleRendered := newRenderedDoc(5, 816, 1056)
	renderer := new(mocks.MockPageRenderer)
	renderer.On("Open", mock.Anything, doc, slow).Return(staleRendered, nil)
	renderer.On("Open", mock.Anything, doc, fast).Return(newRenderedDoc(2, 816, 1056), nil)

	f := NewFactory(source, renderer, geometry.NewNormalizer(zap.NewNop()), testViewerConfig(), zap.NewNop())
	a, err := f.New(doc, nil, nil)
	require.NoError(t, err)
	defer a.Close()

	a.Load(context.Background()) // will block on the slow fetch
	a.Load(context.Background()) // supersedes it
	waitReady(t, a)
	require.Equal(t, 2, a.PageCount())

	// The superseded load finishes late; its result must not win.
	close(release)
	require.Eventually(t, func() bool {
		for _, call := range staleRendered.Calls {
			if call.Method == "Close" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, a.PageCount())
}

func TestNavigationClampAndNotify(t *testing.T) {
	doc := emlDoc()
	data := []byte("Subject: s\r\n\r\nbody")

	source := new(mocks.MockDocumentSource)
	source.On("Fetch", mock.Anything, doc.URL).Return(data, nil)
	renderer := new(mocks.MockPageRenderer)
	renderer.On("Open", mock.Anything, doc, data).Return(newRenderedDoc(3, 816, 1056), nil)

	var notified []int
	f := NewFactory(source, renderer, geometry.NewNormalizer(zap.NewNop()), testViewerConfig(), zap.NewNop())
	a, err := f.New(doc, nil, func(page int) { notified = append(notified, page) })
	require.NoError(t, err)
	defer a.Close()

	a.Load(context.Background())
	waitReady(t, a)

	// Viewer-driven navigation clamps and reports outward.
	assert.Equal(t, 3, a.GoToPage(99))
	assert.Equal(t, 1, a.GoToPage(0))
	assert.Equal(t, []int{3, 1}, notified)

	// Store-driven sync clamps but stays silent, so no echo loop.
	assert.Equal(t, 2, a.SyncToPage(2))
	assert.Equal(t, []int{3, 1}, notified)

	// Navigating to the current page is not a change.
	a.GoToPage(2)
	assert.Equal(t, []int{3, 1}, notified)
}

func TestFieldsNeverLeakAcrossPages(t *testing.T) {
	doc := emlDoc()
	fields := []domain.ExtractedField{
		provField("f1", doc.Name, 3),
		provField("f2", doc.Name, 1),
		provField("f3", "other.pdf", 1), // different document entirely
	}

	source := new(mocks.MockDocumentSource)
	renderer := new(mocks.MockPageRenderer)
	f := NewFactory(source, renderer, geometry.NewNormalizer(zap.NewNop()), testViewerConfig(), zap.NewNop())
	a, err := f.New(doc, fields, nil)
	require.NoError(t, err)
	defer a.Close()

	require.Len(t, a.FieldsForPage(1), 1)
	assert.Equal(t, "f2", a.FieldsForPage(1)[0].ID)
	require.Len(t, a.FieldsForPage(3), 1)
	assert.Equal(t, "f1", a.FieldsForPage(3)[0].ID)
	assert.Empty(t, a.FieldsForPage(2))
}

func TestPagedAdapterRendersPagesOnce(t *testing.T) {
	doc := emlDoc()
	data := []byte("Subject: s\r\n\r\nbody")

	rd := new(mocks.MockRenderedDocument)
	rd.On("PageCount").Return(2)
	rd.On("RenderPage", mock.Anything, 1).Return(&port.RenderedPage{Index: 1, WidthPx: 816, HeightPx: 1056}, nil).Once()
	rd.On("Close").Return(nil)

	source := new(mocks.MockDocumentSource)
	source.On("Fetch", mock.Anything, doc.URL).Return(data, nil)
	renderer := new(mocks.MockPageRenderer)
	renderer.On("Open", mock.Anything, doc, data).Return(rd, nil)

	f := NewFactory(source, renderer, geometry.NewNormalizer(zap.NewNop()), testViewerConfig(), zap.NewNop())
	a, err := f.New(doc, nil, nil)
	require.NoError(t, err)
	defer a.Close()

	a.Load(context.Background())
	waitReady(t, a)

	// Second access serves the owned slot; RenderPage is Once().
	for i := 0; i < 3; i++ {
		info, err := a.Page(1)
		require.NoError(t, err)
		assert.Equal(t, 1, info.Index)
	}
	a.Close()
	rd.AssertExpectations(t)
}

func TestPagedAdapterOverlay(t *testing.T) {
	doc := domain.Document{ID: "doc_2", Name: "app_form.docx", Type: domain.DocTypeDOCX, URL: "http://files.test/app_form.docx"}
	data := []byte("docx-bytes")
	fields := []domain.ExtractedField{provField("f1", doc.Name, 1)}

	source := new(mocks.MockDocumentSource)
	source.On("Fetch", mock.Anything, doc.URL).Return(data, nil)
	renderer := new(mocks.MockPageRenderer)
	renderer.On("Open", mock.Anything, doc, data).Return(newRenderedDoc(2, 816, 1056), nil)

	f := NewFactory(source, renderer, geometry.NewNormalizer(zap.NewNop()), testViewerConfig(), zap.NewNop())
	a, err := f.New(doc, fields, nil)
	require.NoError(t, err)
	defer a.Close()

	a.Load(context.Background())
	waitReady(t, a)

	ov, err := a.CurrentOverlay("f1")
	require.NoError(t, err)
	require.NotNil(t, ov)
	require.Len(t, ov.Regions, 1)
	assert.True(t, ov.Regions[0].Active)
	assert.InDelta(t, 10.0, ov.Regions[0].LeftPct, 1e-9)

	// Page 2 has no fields, so there is nothing to render.
	a.SyncToPage(2)
	ov, err = a.CurrentOverlay("")
	require.NoError(t, err)
	assert.Nil(t, ov)
}
