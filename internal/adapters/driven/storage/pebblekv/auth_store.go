package pebblekv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
)

// AuthStore implements driven.AuthStore on a pebble Env.
type AuthStore struct {
	env *Env
}

var _ driven.AuthStore = (*AuthStore)(nil)

// NewAuthStore builds a store on env, taking a reference on it.
func NewAuthStore(env *Env) (*AuthStore, error) {
	if err := env.acquire(); err != nil {
		return nil, err
	}
	return &AuthStore{env: env}, nil
}

// Close releases the store's reference on its Env.
func (s *AuthStore) Close() error {
	return s.env.Close()
}

// Put creates or replaces a key and rebuilds its grants in one batch.
func (s *AuthStore) Put(ctx context.Context, key domain.Key) (*domain.Key, error) {
	return s.write(ctx, key, false)
}

// Insert creates a key whose ID must not exist yet.
func (s *AuthStore) Insert(ctx context.Context, key domain.Key) (*domain.Key, error) {
	return s.write(ctx, key, true)
}

// write stages the record and its grants under writeMu, so the existence
// check of an insert and its commit cannot interleave with another write.
func (s *AuthStore) write(ctx context.Context, key domain.Key, insert bool) (*domain.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	value, err := encodeKey(&key)
	if err != nil {
		return nil, err
	}

	s.env.writeMu.Lock()
	defer s.env.writeMu.Unlock()

	if insert {
		taken, err := s.exists(key.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("key %s: %w", key.ID, domain.ErrAlreadyExists)
		}
	}

	batch := s.env.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(recordKey(key.ID), value, nil); err != nil {
		return nil, fmt.Errorf("staging key record: %w", err)
	}

	// The action or index set may have shrunk; drop every old grant first.
	if err := s.purgeGrants(batch, key.ID); err != nil {
		return nil, err
	}

	for _, g := range key.Grants() {
		raw, err := EncodeGrantKey(g.KeyID, g.Action, g.Index)
		if err != nil {
			return nil, err
		}
		exp, err := encodeExpiry(g.ExpiresAt)
		if err != nil {
			return nil, err
		}
		if err := batch.Set(grantTableKey(raw), exp, nil); err != nil {
			return nil, fmt.Errorf("staging grant: %w", err)
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("committing key: %w", err)
	}
	return &key, nil
}

// Get looks up a key by the ID prefix of a credential.
func (s *AuthStore) Get(ctx context.Context, credential string) (*domain.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, ok := domain.KeyIDFromCredential(credential)
	if !ok {
		return nil, domain.ErrNotFound
	}

	value, closer, err := s.env.db.Get(recordKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading key: %w", err)
	}
	defer closer.Close()

	return decodeKey(value)
}

// Delete removes a key record and every grant of its ID in one batch.
func (s *AuthStore) Delete(ctx context.Context, credential string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	id, ok := domain.KeyIDFromCredential(credential)
	if !ok {
		return false, nil
	}

	s.env.writeMu.Lock()
	defer s.env.writeMu.Unlock()

	existed, err := s.exists(id)
	if err != nil {
		return false, err
	}

	batch := s.env.db.NewBatch()
	defer batch.Close()

	if err := batch.Delete(recordKey(id), nil); err != nil {
		return false, fmt.Errorf("staging key delete: %w", err)
	}
	if err := s.purgeGrants(batch, id); err != nil {
		return false, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return false, fmt.Errorf("committing key delete: %w", err)
	}
	return existed, nil
}

// List returns every key in key ID order.
func (s *AuthStore) List(ctx context.Context) ([]domain.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iter, err := s.env.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{keysTable},
		UpperBound: []byte{keysTable + 1},
	})
	if err != nil {
		return nil, fmt.Errorf("opening key iterator: %w", err)
	}
	defer iter.Close()

	var keys []domain.Key //nolint:prealloc // size unknown from iterator
	for valid := iter.First(); valid; valid = iter.Next() {
		key, err := decodeKey(iter.Value())
		if err != nil {
			return nil, err
		}
		keys = append(keys, *key)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterating keys: %w", err)
	}
	return keys, nil
}

// Expiration probes the grants that could authorise action on index.
func (s *AuthStore) Expiration(
	ctx context.Context, keyID string, action domain.Action, index string,
) (*time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if len(keyID) != domain.KeyIDLength {
		return nil, false, nil
	}

	snap := s.env.db.NewSnapshot()
	defer snap.Close()

	for _, probe := range grantProbes(action, index) {
		raw, err := EncodeGrantKey(keyID, probe.action, probe.index)
		if err != nil {
			return nil, false, err
		}
		value, closer, err := snap.Get(grantTableKey(raw))
		if errors.Is(err, pebble.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("reading grant: %w", err)
		}
		exp, err := decodeExpiry(value)
		closer.Close()
		if err != nil {
			return nil, false, err
		}
		return exp, true, nil
	}
	return nil, false, nil
}

// Grants returns every grant recorded for the key ID.
func (s *AuthStore) Grants(ctx context.Context, keyID string) ([]domain.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iter, err := s.grantIter(s.env.db, keyID)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var grants []domain.Grant //nolint:prealloc // size unknown from iterator
	for valid := iter.First(); valid; valid = iter.Next() {
		id, action, index, err := DecodeGrantKey(iter.Key()[1:])
		if err != nil {
			return nil, err
		}
		exp, err := decodeExpiry(iter.Value())
		if err != nil {
			return nil, err
		}
		grants = append(grants, domain.Grant{KeyID: id, Action: action, Index: index, ExpiresAt: exp})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterating grants: %w", err)
	}
	return grants, nil
}

// purgeGrants stages a delete for every grant of the key ID.
// Keys are collected first and deleted after the iterator is closed, so
// the scan never observes its own deletions. Caller must hold writeMu.
func (s *AuthStore) purgeGrants(batch *pebble.Batch, keyID string) error {
	stale, err := s.collectGrantKeys(keyID)
	if err != nil {
		return err
	}
	for _, k := range stale {
		if err := batch.Delete(k, nil); err != nil {
			return fmt.Errorf("staging grant delete: %w", err)
		}
	}
	return nil
}

func (s *AuthStore) collectGrantKeys(keyID string) ([][]byte, error) {
	iter, err := s.grantIter(s.env.db, keyID)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var keys [][]byte
	for valid := iter.First(); valid; valid = iter.Next() {
		// The iterator reuses its key buffer.
		k := make([]byte, len(iter.Key()))
		copy(k, iter.Key())
		keys = append(keys, k)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scanning grants: %w", err)
	}
	return keys, nil
}

func (s *AuthStore) grantIter(r pebble.Reader, keyID string) (*pebble.Iterator, error) {
	prefix := grantPrefix(keyID)
	iter, err := r.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("opening grant iterator: %w", err)
	}
	return iter, nil
}

func (s *AuthStore) exists(keyID string) (bool, error) {
	_, closer, err := s.env.db.Get(recordKey(keyID))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading key: %w", err)
	}
	closer.Close()
	return true, nil
}

type grantProbe struct {
	action domain.Action
	index  string
}

// grantProbes lists candidate grants from most to least specific.
func grantProbes(action domain.Action, index string) []grantProbe {
	actions := []domain.Action{action}
	if action != domain.ActionAll {
		actions = append(actions, domain.ActionAll)
	}
	var probes []grantProbe
	for _, a := range actions {
		if index != "" {
			probes = append(probes, grantProbe{action: a, index: index})
		}
		probes = append(probes, grantProbe{action: a})
	}
	return probes
}
