package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
)

// Ensure AuthStore implements the interface.
var _ driven.AuthStore = (*AuthStore)(nil)

type grantKey struct {
	id     string
	action domain.Action
	index  string
}

// AuthStore is an in-memory implementation of driven.AuthStore.
type AuthStore struct {
	mu     sync.RWMutex
	keys   map[string]domain.Key
	grants map[grantKey]*time.Time
}

// NewAuthStore creates a new in-memory auth store.
func NewAuthStore() *AuthStore {
	return &AuthStore{
		keys:   make(map[string]domain.Key),
		grants: make(map[grantKey]*time.Time),
	}
}

// Put stores or replaces a key and rebuilds its grants.
func (s *AuthStore) Put(_ context.Context, key domain.Key) (*domain.Key, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(key), nil
}

// Insert stores a key whose ID is not taken yet.
func (s *AuthStore) Insert(_ context.Context, key domain.Key) (*domain.Key, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key.ID]; ok {
		return nil, fmt.Errorf("key %s: %w", key.ID, domain.ErrAlreadyExists)
	}
	return s.store(key), nil
}

// Get retrieves a key by the ID prefix of a credential.
func (s *AuthStore) Get(_ context.Context, credential string) (*domain.Key, error) {
	id, ok := domain.KeyIDFromCredential(credential)
	if !ok {
		return nil, domain.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	key = cloneKey(key)
	return &key, nil
}

// Delete removes a key and its grants.
func (s *AuthStore) Delete(_ context.Context, credential string) (bool, error) {
	id, ok := domain.KeyIDFromCredential(credential)
	if !ok {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.keys[id]
	delete(s.keys, id)
	s.purge(id)
	return existed, nil
}

// List returns all keys in ID order.
func (s *AuthStore) List(_ context.Context) ([]domain.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Key, 0, len(s.keys))
	for _, key := range s.keys {
		result = append(result, cloneKey(key))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Expiration probes the grants that could authorise action on index.
func (s *AuthStore) Expiration(
	_ context.Context, keyID string, action domain.Action, index string,
) (*time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	actions := []domain.Action{action}
	if action != domain.ActionAll {
		actions = append(actions, domain.ActionAll)
	}
	for _, a := range actions {
		if index != "" {
			if exp, ok := s.grants[grantKey{id: keyID, action: a, index: index}]; ok {
				return exp, true, nil
			}
		}
		if exp, ok := s.grants[grantKey{id: keyID, action: a}]; ok {
			return exp, true, nil
		}
	}
	return nil, false, nil
}

// Grants returns every grant recorded for the key ID.
func (s *AuthStore) Grants(_ context.Context, keyID string) ([]domain.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Grant
	for k, exp := range s.grants {
		if k.id == keyID {
			result = append(result, domain.Grant{KeyID: k.id, Action: k.action, Index: k.index, ExpiresAt: exp})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Action != result[j].Action {
			return result[i].Action < result[j].Action
		}
		return result[i].Index < result[j].Index
	})
	return result, nil
}

// store keeps a private copy of key and rebuilds its grants. Caller must
// hold mu.
func (s *AuthStore) store(key domain.Key) *domain.Key {
	key = cloneKey(key)
	s.keys[key.ID] = key
	s.purge(key.ID)
	for _, g := range key.Grants() {
		s.grants[grantKey{id: g.KeyID, action: g.Action, index: g.Index}] = g.ExpiresAt
	}
	out := cloneKey(key)
	return &out
}

// cloneKey copies the slices and expiry so stored keys share no memory
// with callers.
func cloneKey(key domain.Key) domain.Key {
	key.Actions = slices.Clone(key.Actions)
	key.Indexes = slices.Clone(key.Indexes)
	if key.ExpiresAt != nil {
		exp := *key.ExpiresAt
		key.ExpiresAt = &exp
	}
	return key
}

// purge drops every grant of the key ID. Caller must hold mu.
func (s *AuthStore) purge(keyID string) {
	for k := range s.grants {
		if k.id == keyID {
			delete(s.grants, k)
		}
	}
}
