package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"subview/internal/domain"
)

const validCatalog = `{
  "submissions": [
    {
      "submissionId": "sub_1",
      "title": "Acme Manufacturing Renewal",
      "documents": [
        {"id": "doc_1", "name": "policy.pdf", "type": "pdf", "url": "http://files.test/policy.pdf"},
        {"id": "doc_2", "name": "sov.xlsx", "type": "xlsx", "url": "http://files.test/sov.xlsx"}
      ]
    },
    {
      "submissionId": "sub_2",
      "title": "Harbor Logistics New Business",
      "documents": [
        {"id": "doc_3", "name": "broker_email.eml", "type": "eml", "url": "http://files.test/broker_email.eml"}
      ]
    }
  ]
}`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeCatalog(t, validCatalog), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	subs := c.Submissions()
	require.Len(t, subs, 2)
	assert.Equal(t, "sub_1", subs[0].SubmissionID)
	assert.Equal(t, "Acme Manufacturing Renewal", subs[0].Title)

	sub, err := c.Submission("sub_2")
	require.NoError(t, err)
	assert.Len(t, sub.Documents, 1)

	doc, err := c.Document("doc_2")
	require.NoError(t, err)
	assert.Equal(t, domain.DocTypeXLSX, doc.Type)
	assert.Equal(t, "sov.xlsx", doc.Name)
}

func TestLookupMisses(t *testing.T) {
	c, err := Load(writeCatalog(t, validCatalog), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Submission("sub_999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = c.Document("doc_999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoadRejectsBadInput(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"), zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := Load(writeCatalog(t, "{not json"), zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("unsupported document type", func(t *testing.T) {
		_, err := Load(writeCatalog(t, `{"submissions":[{"submissionId":"s","title":"t","documents":[{"id":"d","name":"a.tiff","type":"tiff","url":"u"}]}]}`), zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported type")
	})
}

func TestWatchReload(t *testing.T) {
	path := writeCatalog(t, validCatalog)
	c, err := Load(path, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Watch())

	updated := `{"submissions":[{"submissionId":"sub_9","title":"New","documents":[]}]}`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		_, err := c.Submission("sub_9")
		return err == nil
	}, 3*time.Second, 10*time.Millisecond)
}

func TestWatchKeepsLastGoodOnBrokenRewrite(t *testing.T) {
	path := writeCatalog(t, validCatalog)
	c, err := Load(path, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Watch())

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	// The previous catalog must stay intact.
	time.Sleep(200 * time.Millisecond)
	sub, err := c.Submission("sub_1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Manufacturing Renewal", sub.Title)
}
