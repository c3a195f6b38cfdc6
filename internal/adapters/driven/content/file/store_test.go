package file

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func writeBlob(t *testing.T, store *Store, docs ...domain.Document) domain.ContentID {
	t.Helper()
	w, err := store.Create(context.Background())
	require.NoError(t, err)
	for _, doc := range docs {
		require.NoError(t, w.WriteDocument(doc))
	}
	require.NoError(t, w.Persist())
	return w.ID()
}

func TestStore_PersistAndReadBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id := writeBlob(t, store,
		domain.Document{"id": 1, "title": "Carol"},
		domain.Document{"id": 2, "title": "Wonder <Woman>"},
		domain.Document{"id": 3, "tags": []string{"a", "b"}},
	)

	var docs []domain.Document
	err := store.Documents(ctx, id, func(doc domain.Document) error {
		docs = append(docs, doc)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, json.Number("1"), docs[0]["id"])
	assert.Equal(t, "Wonder <Woman>", docs[1]["title"])
	assert.Equal(t, []any{"a", "b"}, docs[2]["tags"])

	rc, err := store.Open(ctx, id)
	require.NoError(t, err)
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"title":"Carol"`)
	assert.Contains(t, string(raw), `"title":"Wonder <Woman>"`)
}

func TestStore_NotVisibleBeforePersist(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	w, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, w.WriteDocument(domain.Document{"id": 1}))

	_, err = store.Open(ctx, w.ID())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, w.Persist())

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.ContentID{w.ID()}, ids)
}

func TestStore_FreshIDs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a, err := store.Create(ctx)
	require.NoError(t, err)
	b, err := store.Create(ctx)
	require.NoError(t, err)
	defer a.Discard()
	defer b.Discard()

	assert.NotEqual(t, a.ID(), b.ID())
}

func TestWriter_DiscardPartial(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	w, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, w.WriteDocument(domain.Document{"id": 1}))
	require.NoError(t, w.Discard())

	entries, err := os.ReadDir(store.TmpDir())
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Error(t, w.WriteDocument(domain.Document{"id": 2}))
	assert.Error(t, w.Persist())
	assert.NoError(t, w.Discard(), "discard is idempotent")
}

func TestWriter_UnencodableDocument(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	w, err := store.Create(ctx)
	require.NoError(t, err)
	defer w.Discard()

	err = w.WriteDocument(domain.Document{"price": json.Number("05")})
	assert.ErrorIs(t, err, domain.ErrMalformedPayload)

	require.NoError(t, w.WriteDocument(domain.Document{"id": json.Number("1")}))
	require.NoError(t, w.Persist())

	var docs []domain.Document
	require.NoError(t, store.Documents(ctx, w.ID(), func(doc domain.Document) error {
		docs = append(docs, doc)
		return nil
	}))
	require.Len(t, docs, 1, "the rejected document left nothing in the blob")
	assert.Contains(t, docs[0], "id")
}

func TestWriter_DiscardAfterPersist(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	w, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Persist())
	require.NoError(t, w.Discard())

	_, err = store.Open(ctx, w.ID())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id := writeBlob(t, store, domain.Document{"id": 1})
	require.NoError(t, store.Delete(ctx, id))
	require.NoError(t, store.Delete(ctx, id), "deleting a missing blob is not an error")

	_, err := store.Open(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_RejectsNonUUIDIDs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Open(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, store.Delete(ctx, "../outside"))
}

func TestStore_DocumentsCorruptBlob(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id := writeBlob(t, store, domain.Document{"id": 1})
	path := filepath.Join(store.filesDir, id.String())
	require.NoError(t, os.WriteFile(path, []byte("{\"id\":1}\n{broken"), 0600))

	count := 0
	err := store.Documents(ctx, id, func(domain.Document) error {
		count++
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrCorruption)
	assert.Equal(t, 1, count)
}

func TestNewStore_ClearsPartialBlobs(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	w, err := store.Create(context.Background())
	require.NoError(t, err)
	require.NoError(t, w.WriteDocument(domain.Document{"id": 1}))
	persisted := writeBlob(t, store, domain.Document{"id": 2})

	reopened, err := NewStore(dir)
	require.NoError(t, err)

	entries, err := os.ReadDir(reopened.TmpDir())
	require.NoError(t, err)
	assert.Empty(t, entries)

	ids, err := reopened.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.ContentID{persisted}, ids)
}
