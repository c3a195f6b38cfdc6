package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
)

// Directory layout under the data directory.
const (
	UpdatesSubdir = "updates"
	filesSubdir   = "updates_files"
	tmpSubdir     = "tmp"
)

// Ensure Store implements the interface.
var _ driven.ContentStore = (*Store)(nil)

// Store is a file-based implementation of driven.ContentStore.
type Store struct {
	filesDir string
	tmpDir   string
}

// NewStore opens the content store under dataDir, creating its directories
// and removing partial blobs left by an earlier process.
func NewStore(dataDir string) (*Store, error) {
	root := filepath.Join(dataDir, UpdatesSubdir)
	s := &Store{
		filesDir: filepath.Join(root, filesSubdir),
		tmpDir:   filepath.Join(root, tmpSubdir),
	}

	// Nothing in tmp can belong to a live writer yet.
	if err := os.RemoveAll(s.tmpDir); err != nil {
		return nil, fmt.Errorf("clearing partial blobs: %w", err)
	}
	for _, dir := range []string{s.filesDir, s.tmpDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating content directory: %w", err)
		}
	}
	return s, nil
}

// TmpDir returns the directory holding partial blobs and spool files.
func (s *Store) TmpDir() string {
	return s.tmpDir
}

// Create allocates a fresh content ID and opens a partial blob for it.
func (s *Store) Create(ctx context.Context) (driven.ContentWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := domain.ContentID(uuid.NewString())
	f, err := os.CreateTemp(s.tmpDir, id.String()+"-*")
	if err != nil {
		return nil, fmt.Errorf("creating partial blob: %w", err)
	}

	w := &writer{
		store: s,
		id:    id,
		file:  f,
		path:  f.Name(),
		buf:   bufio.NewWriter(f),
	}
	w.enc = json.NewEncoder(&w.line)
	w.enc.SetEscapeHTML(false)
	return w, nil
}

// Open returns a reader over a persisted blob.
func (s *Store) Open(ctx context.Context, id domain.ContentID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := s.blobPath(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("opening blob: %w", err)
	}
	return f, nil
}

// Documents streams the documents of a persisted blob in write order.
func (s *Store) Documents(ctx context.Context, id domain.ContentID, fn func(domain.Document) error) error {
	rc, err := s.Open(ctx, id)
	if err != nil {
		return err
	}
	defer rc.Close()

	dec := json.NewDecoder(bufio.NewReader(rc))
	dec.UseNumber()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var doc domain.Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: blob %s: %v", domain.ErrCorruption, id, err)
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
}

// Delete removes a persisted blob.
func (s *Store) Delete(_ context.Context, id domain.ContentID) error {
	path, ok := s.blobPath(id)
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

// List returns the IDs of every persisted blob.
func (s *Store) List(ctx context.Context) ([]domain.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.filesDir)
	if err != nil {
		return nil, fmt.Errorf("listing blobs: %w", err)
	}
	ids := make([]domain.ContentID, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, err := uuid.Parse(entry.Name()); err != nil {
			continue
		}
		ids = append(ids, domain.ContentID(entry.Name()))
	}
	return ids, nil
}

// blobPath maps an ID to its file. Only UUIDs are valid content IDs, which
// also keeps callers from naming paths outside the store.
func (s *Store) blobPath(id domain.ContentID) (string, bool) {
	if _, err := uuid.Parse(id.String()); err != nil {
		return "", false
	}
	return filepath.Join(s.filesDir, id.String()), true
}

// writer is a driven.ContentWriter for one partial blob.
// It is not safe for concurrent use.
type writer struct {
	store *Store
	id    domain.ContentID
	file  *os.File
	path  string
	buf   *bufio.Writer

	// line holds one encoded document, so an unencodable value is told
	// apart from a failed write.
	line bytes.Buffer
	enc  *json.Encoder

	closed bool
}

func (w *writer) ID() domain.ContentID {
	return w.id
}

func (w *writer) WriteDocument(doc domain.Document) error {
	if w.closed {
		return fmt.Errorf("writing blob %s: writer closed", w.id)
	}
	w.line.Reset()
	if err := w.enc.Encode(doc); err != nil {
		return fmt.Errorf("%w: encoding document: %v", domain.ErrMalformedPayload, err)
	}
	if _, err := w.buf.Write(w.line.Bytes()); err != nil {
		return fmt.Errorf("writing blob %s: %w", w.id, err)
	}
	return nil
}

// Persist flushes, fsyncs and renames the blob into place.
func (w *writer) Persist() error {
	if w.closed {
		return fmt.Errorf("persisting blob %s: writer closed", w.id)
	}
	w.closed = true

	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("flushing blob: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return fmt.Errorf("syncing blob: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing blob: %w", err)
	}

	final := filepath.Join(w.store.filesDir, w.id.String())
	if err := os.Rename(w.path, final); err != nil {
		return fmt.Errorf("publishing blob: %w", err)
	}
	w.path = final

	return syncDir(w.store.filesDir)
}

// Discard removes the blob, whether or not it was persisted.
func (w *writer) Discard() error {
	if !w.closed {
		w.closed = true
		w.file.Close()
	}
	if err := os.Remove(w.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("discarding blob: %w", err)
	}
	return nil
}

// syncDir makes a rename in dir durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("opening content directory: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("syncing content directory: %w", err)
	}
	return nil
}
