package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subview/internal/config"
	"subview/internal/domain"
)

func openTestStore(t *testing.T, cfg config.StorageConfig) *BadgerStore {
	t.Helper()
	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t, config.StorageConfig{InMemory: true})

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Put("extractedFields_sub_1", []byte(`[{"id":"f1"}]`)))
	got, err := s.Get("extractedFields_sub_1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"id":"f1"}]`), got)

	// Overwrite is last-write-wins.
	require.NoError(t, s.Put("extractedFields_sub_1", []byte("[]")))
	got, err = s.Get("extractedFields_sub_1")
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), got)

	require.NoError(t, s.Delete("extractedFields_sub_1"))
	_, err = s.Get("extractedFields_sub_1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting an absent key is idempotent.
	assert.NoError(t, s.Delete("extractedFields_sub_1"))
}

func TestOnDiskPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(config.StorageConfig{DataDir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Put("k", []byte("v")))
	require.NoError(t, s.Close())

	s2 := openTestStore(t, config.StorageConfig{DataDir: dir})
	got, err := s2.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}
