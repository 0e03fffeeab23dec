package viewer

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"subview/internal/domain"
	"subview/internal/geometry"
	"subview/mocks"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestRasterAdapterImage(t *testing.T) {
	doc := domain.Document{
		ID:   "doc_4",
		Name: "roof_photo.png",
		Type: domain.DocTypeImage,
		URL:  "http://files.test/roof_photo.png",
	}
	source := new(mocks.MockDocumentSource)
	source.On("Fetch", mock.Anything, doc.URL).Return(pngBytes(t, 640, 480), nil)

	f := NewFactory(source, new(mocks.MockPageRenderer),
		geometry.NewNormalizer(zap.NewNop()), testViewerConfig(), zap.NewNop())
	a, err := f.New(doc, []domain.ExtractedField{provField("f1", doc.Name, 1)}, nil)
	require.NoError(t, err)
	defer a.Close()

	a.Load(context.Background())
	waitReady(t, a)

	// An image is a single-page document sized to its decoded dimensions.
	assert.Equal(t, 1, a.PageCount())
	info, err := a.Page(1)
	require.NoError(t, err)
	assert.Equal(t, 640.0, info.WidthPx)
	assert.Equal(t, 480.0, info.HeightPx)

	ov, err := a.CurrentOverlay("")
	require.NoError(t, err)
	require.NotNil(t, ov)
	assert.Len(t, ov.Regions, 1)
}

func TestRasterAdapterRejectsGarbage(t *testing.T) {
	doc := domain.Document{
		ID:   "doc_5",
		Name: "broken.png",
		Type: domain.DocTypeImage,
		URL:  "http://files.test/broken.png",
	}
	source := new(mocks.MockDocumentSource)
	source.On("Fetch", mock.Anything, doc.URL).Return([]byte("not an image"), nil)

	f := NewFactory(source, new(mocks.MockPageRenderer),
		geometry.NewNormalizer(zap.NewNop()), testViewerConfig(), zap.NewNop())
	a, err := f.New(doc, nil, nil)
	require.NoError(t, err)
	defer a.Close()

	a.Load(context.Background())
	waitError(t, a)
	assert.Contains(t, a.Status().Error, "decoding image")
}
