package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// KeyIDLength is the length in bytes of a Key identifier. A credential
// string always starts with the identifier of the Key it belongs to.
const KeyIDLength = 8

// IndexWildcard is the index pattern granting access to every index.
const IndexWildcard = "*"

// Key is an API credential record.
// The credential string handed to clients is derived from ID and the
// server's master key; it is never stored.
type Key struct {
	// ID is the immutable 8-byte identifier.
	ID string `json:"id" msgpack:"id"`

	// Description is an optional human-readable note.
	Description string `json:"description,omitempty" msgpack:"description,omitempty"`

	// Actions lists the permissions this key grants.
	Actions []Action `json:"actions" msgpack:"actions"`

	// Indexes lists index names this key applies to, or IndexWildcard.
	Indexes []string `json:"indexes" msgpack:"indexes"`

	// ExpiresAt is when the key stops granting access. Nil never expires.
	ExpiresAt *time.Time `json:"expiresAt" msgpack:"expires_at"`

	// CreatedAt is when the key was created.
	CreatedAt time.Time `json:"createdAt" msgpack:"created_at"`

	// UpdatedAt is when the key was last modified.
	UpdatedAt time.Time `json:"updatedAt" msgpack:"updated_at"`
}

// Validate checks the key can be stored and indexed.
// An empty index name is rejected because it cannot be told apart from
// the wildcard scope in the inverted index encoding.
func (k *Key) Validate() error {
	if len(k.ID) != KeyIDLength {
		return fmt.Errorf("%w: key id must be %d bytes, got %d", ErrInvalidInput, KeyIDLength, len(k.ID))
	}
	if len(k.Actions) == 0 {
		return fmt.Errorf("%w: key must grant at least one action", ErrInvalidInput)
	}
	for _, a := range k.Actions {
		if !a.IsValid() {
			return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, a)
		}
	}
	if len(k.Indexes) == 0 {
		return fmt.Errorf("%w: key must apply to at least one index", ErrInvalidInput)
	}
	for _, idx := range k.Indexes {
		if idx == "" {
			return fmt.Errorf("%w: index name must not be empty", ErrInvalidInput)
		}
		if !utf8.ValidString(idx) {
			return fmt.Errorf("%w: index name %q is not valid UTF-8", ErrInvalidInput, idx)
		}
	}
	return nil
}

// HasWildcardIndex returns true if the key applies to all indexes.
func (k *Key) HasWildcardIndex() bool {
	for _, idx := range k.Indexes {
		if idx == IndexWildcard {
			return true
		}
	}
	return false
}

// IsExpired returns true if the key has expired at the given instant.
func (k *Key) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// Grant is one derived inverted index entry of a Key.
// Index is empty for a grant that is not restricted to a single index.
type Grant struct {
	KeyID     string
	Action    Action
	Index     string
	ExpiresAt *time.Time
}

// Grants derives the inverted index entries for the key.
// With IndexWildcard present, one unscoped grant is produced per action;
// otherwise one grant per (action, index) pair.
func (k *Key) Grants() []Grant {
	wildcard := k.HasWildcardIndex()
	var grants []Grant
	for _, a := range k.Actions {
		if wildcard {
			grants = append(grants, Grant{KeyID: k.ID, Action: a, ExpiresAt: k.ExpiresAt})
			continue
		}
		for _, idx := range k.Indexes {
			grants = append(grants, Grant{KeyID: k.ID, Action: a, Index: idx, ExpiresAt: k.ExpiresAt})
		}
	}
	return grants
}

// KeyIDFromCredential extracts the key identifier prefix from a credential
// string. Returns false if the credential is too short.
func KeyIDFromCredential(credential string) (string, bool) {
	if len(credential) < KeyIDLength {
		return "", false
	}
	return credential[:KeyIDLength], true
}
