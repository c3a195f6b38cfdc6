package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-server/internal/logger"
)

// Ensure KeyService implements the interface.
var _ driving.KeyService = (*KeyService)(nil)

// maxIDAttempts bounds retries when a generated key ID is already taken.
const maxIDAttempts = 8

// Default key descriptions.
const (
	DefaultSearchKeyDescription = "Default Search API Key"
	DefaultAdminKeyDescription  = "Default Admin API Key"
)

// KeyService manages API keys on an AuthStore.
type KeyService struct {
	store     driven.AuthStore
	masterKey string
	now       func() time.Time
	newID     func() string
}

// NewKeyService creates a key service. masterKey may be empty.
func NewKeyService(store driven.AuthStore, masterKey string) *KeyService {
	return &KeyService{
		store:     store,
		masterKey: masterKey,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     randomKeyID,
	}
}

// Credential derives the credential string handed out for a key ID.
func (s *KeyService) Credential(keyID string) string {
	sum := sha256.Sum256([]byte(keyID + "-" + s.masterKey))
	return keyID + "-" + hex.EncodeToString(sum[:])
}

// Create validates the request and stores a new key under a fresh ID.
// A drawn ID that is already taken is redrawn; an existing key is never
// overwritten.
func (s *KeyService) Create(ctx context.Context, req driving.KeyRequest) (*driving.KeyView, error) {
	now := s.now()
	key := domain.Key{
		Description: req.Description,
		Actions:     req.Actions,
		Indexes:     req.Indexes,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for i := 0; i < maxIDAttempts; i++ {
		key.ID = s.newID()
		if err := key.Validate(); err != nil {
			return nil, err
		}

		stored, err := s.store.Insert(ctx, key)
		if errors.Is(err, domain.ErrAlreadyExists) {
			logger.Debug("key id %s taken, drawing another", key.ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("storing key: %w", err)
		}
		logger.Info("created key %s", stored.ID)
		return s.view(stored), nil
	}
	return nil, fmt.Errorf("no free key id after %d attempts", maxIDAttempts)
}

// List returns every key.
func (s *KeyService) List(ctx context.Context) ([]driving.KeyView, error) {
	keys, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]driving.KeyView, 0, len(keys))
	for i := range keys {
		views = append(views, *s.view(&keys[i]))
	}
	return views, nil
}

// Get returns a key by ID or full credential.
func (s *KeyService) Get(ctx context.Context, keyOrID string) (*driving.KeyView, error) {
	key, err := s.lookup(ctx, keyOrID)
	if err != nil {
		return nil, err
	}
	return s.view(key), nil
}

// Update applies a partial change and restamps the update time.
func (s *KeyService) Update(ctx context.Context, keyOrID string, patch driving.KeyPatch) (*driving.KeyView, error) {
	key, err := s.lookup(ctx, keyOrID)
	if err != nil {
		return nil, err
	}

	if patch.Description != nil {
		key.Description = *patch.Description
	}
	if patch.Actions != nil {
		key.Actions = patch.Actions
	}
	if patch.Indexes != nil {
		key.Indexes = patch.Indexes
	}
	if patch.ExpiresAt != nil {
		key.ExpiresAt = patch.ExpiresAt
	}
	key.UpdatedAt = s.now()

	if err := key.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.store.Put(ctx, *key)
	if err != nil {
		return nil, fmt.Errorf("storing key: %w", err)
	}
	logger.Info("updated key %s", stored.ID)
	return s.view(stored), nil
}

// Delete removes a key. Returns domain.ErrNotFound if it does not exist.
func (s *KeyService) Delete(ctx context.Context, keyOrID string) error {
	id, err := s.resolveID(keyOrID)
	if err != nil {
		return err
	}
	existed, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting key: %w", err)
	}
	if !existed {
		return domain.ErrNotFound
	}
	logger.Info("deleted key %s", id)
	return nil
}

// Authorize verifies the credential against the master key and checks the
// key grants action on index, unexpired. An empty index is granted only by
// keys that apply to every index.
func (s *KeyService) Authorize(
	ctx context.Context, credential string, action domain.Action, index string,
) (*domain.Key, error) {
	key, err := s.authorize(ctx, credential, action, index)
	if err != nil {
		AuthorizationCount.WithLabelValues("denied").Inc()
		return nil, err
	}
	AuthorizationCount.WithLabelValues("granted").Inc()
	return key, nil
}

func (s *KeyService) authorize(
	ctx context.Context, credential string, action domain.Action, index string,
) (*domain.Key, error) {
	id, ok := domain.KeyIDFromCredential(credential)
	if !ok || !s.verify(id, credential) {
		return nil, domain.ErrUnauthorized
	}

	exp, found, err := s.store.Expiration(ctx, id, action, index)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: key does not grant %s", domain.ErrUnauthorized, action)
	}
	if exp != nil && !s.now().Before(*exp) {
		return nil, fmt.Errorf("%w: key expired", domain.ErrUnauthorized)
	}

	key, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		// Deleted between the probe and the read.
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return key, nil
}

// EnsureDefaultKeys creates the default search and admin keys when a master
// key is configured and no key exists yet.
func (s *KeyService) EnsureDefaultKeys(ctx context.Context) error {
	if s.masterKey == "" {
		return nil
	}
	keys, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return nil
	}

	defaults := []driving.KeyRequest{
		{
			Description: DefaultSearchKeyDescription,
			Actions:     []domain.Action{domain.ActionSearch},
			Indexes:     []string{domain.IndexWildcard},
		},
		{
			Description: DefaultAdminKeyDescription,
			Actions:     []domain.Action{domain.ActionAll},
			Indexes:     []string{domain.IndexWildcard},
		},
	}
	for _, req := range defaults {
		if _, err := s.Create(ctx, req); err != nil {
			return fmt.Errorf("creating default key: %w", err)
		}
	}
	return nil
}

// lookup resolves keyOrID and loads the key.
func (s *KeyService) lookup(ctx context.Context, keyOrID string) (*domain.Key, error) {
	id, err := s.resolveID(keyOrID)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// resolveID accepts a bare key ID or a credential that verifies.
func (s *KeyService) resolveID(keyOrID string) (string, error) {
	id, ok := domain.KeyIDFromCredential(keyOrID)
	if !ok {
		return "", domain.ErrNotFound
	}
	if len(keyOrID) > domain.KeyIDLength && !s.verify(id, keyOrID) {
		return "", domain.ErrNotFound
	}
	return id, nil
}

func (s *KeyService) verify(id, credential string) bool {
	return subtle.ConstantTimeCompare([]byte(s.Credential(id)), []byte(credential)) == 1
}

// randomKeyID takes a key ID from a fresh UUID.
func randomKeyID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:domain.KeyIDLength]
}

func (s *KeyService) view(key *domain.Key) *driving.KeyView {
	return &driving.KeyView{
		Description: key.Description,
		Key:         s.Credential(key.ID),
		Actions:     key.Actions,
		Indexes:     key.Indexes,
		ExpiresAt:   key.ExpiresAt,
		CreatedAt:   key.CreatedAt,
		UpdatedAt:   key.UpdatedAt,
	}
}
