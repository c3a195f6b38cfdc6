package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
)

// KeyService manages API keys for the serving layer.
type KeyService interface {
	// Create validates the request and stores a new key.
	Create(ctx context.Context, req KeyRequest) (*KeyView, error)

	// List returns every key.
	List(ctx context.Context) ([]KeyView, error)

	// Get returns a key by ID or full credential.
	Get(ctx context.Context, keyOrID string) (*KeyView, error)

	// Update applies a partial change to an existing key.
	Update(ctx context.Context, keyOrID string, patch KeyPatch) (*KeyView, error)

	// Delete removes a key.
	Delete(ctx context.Context, keyOrID string) error

	// Authorize verifies a credential and checks it grants action on index.
	// Returns domain.ErrUnauthorized when it does not.
	Authorize(ctx context.Context, credential string, action domain.Action, index string) (*domain.Key, error)
}

// KeyRequest describes a key to create.
type KeyRequest struct {
	Description string          `json:"description,omitempty"`
	Actions     []domain.Action `json:"actions"`
	Indexes     []string        `json:"indexes"`
	ExpiresAt   *time.Time      `json:"expiresAt"`
}

// KeyPatch describes a partial key update. Nil fields are left unchanged.
type KeyPatch struct {
	Description *string         `json:"description,omitempty"`
	Actions     []domain.Action `json:"actions,omitempty"`
	Indexes     []string        `json:"indexes,omitempty"`
	ExpiresAt   *time.Time      `json:"expiresAt,omitempty"`
}

// KeyView is the client-facing representation of a key.
// Key holds the derived credential; the master key never appears.
type KeyView struct {
	Description string          `json:"description,omitempty"`
	Key         string          `json:"key"`
	Actions     []domain.Action `json:"actions"`
	Indexes     []string        `json:"indexes"`
	ExpiresAt   *time.Time      `json:"expiresAt"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
