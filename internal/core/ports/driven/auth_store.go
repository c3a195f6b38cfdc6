package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
)

// AuthStore persists API keys and maintains the inverted index of
// (key id, action, index) grants used for permission checks.
//
// Mutations are atomic: a key record and its grants are always written or
// removed together.
type AuthStore interface {
	// Put creates or replaces a key by ID. Every existing grant for the ID is
	// purged before the new grants are written.
	Put(ctx context.Context, key domain.Key) (*domain.Key, error)

	// Insert stores a key only if its ID is unused. Returns
	// domain.ErrAlreadyExists otherwise, leaving the existing key untouched.
	Insert(ctx context.Context, key domain.Key) (*domain.Key, error)

	// Get looks up a key by the ID prefix of a credential.
	// Returns domain.ErrNotFound if no key exists.
	Get(ctx context.Context, credential string) (*domain.Key, error)

	// Delete removes a key and all of its grants.
	// Returns whether a key existed.
	Delete(ctx context.Context, credential string) (bool, error)

	// List returns every key in store iteration order.
	List(ctx context.Context) ([]domain.Key, error)

	// Expiration finds the grant authorising action on index for the key.
	// Scoped grants are probed before unscoped ones, and the exact action
	// before domain.ActionAll. The second return value is false when no
	// grant applies; a nil time means the grant never expires.
	Expiration(ctx context.Context, keyID string, action domain.Action, index string) (*time.Time, bool, error)

	// Grants returns every inverted index entry recorded for the key ID.
	Grants(ctx context.Context, keyID string) ([]domain.Grant, error)
}
