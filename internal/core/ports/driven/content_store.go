package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
)

// ContentStore holds write-once blobs of normalised documents.
type ContentStore interface {
	// Create allocates a fresh content ID and opens a writer for it.
	// The blob is not retrievable until the writer is persisted.
	Create(ctx context.Context) (ContentWriter, error)

	// Open returns a reader over a persisted blob.
	// Returns domain.ErrNotFound if the blob does not exist.
	Open(ctx context.Context, id domain.ContentID) (io.ReadCloser, error)

	// Documents streams the documents stored in a persisted blob.
	Documents(ctx context.Context, id domain.ContentID, fn func(domain.Document) error) error

	// Delete removes a persisted blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, id domain.ContentID) error

	// List returns the IDs of every persisted blob.
	List(ctx context.Context) ([]domain.ContentID, error)
}

// ContentWriter receives normalised documents for one blob.
type ContentWriter interface {
	// ID returns the content ID allocated for the blob.
	ID() domain.ContentID

	// WriteDocument appends one normalised document.
	WriteDocument(doc domain.Document) error

	// Persist durably flushes the blob and makes it retrievable.
	Persist() error

	// Discard removes the partial blob. Safe to call after Persist fails.
	Discard() error
}
