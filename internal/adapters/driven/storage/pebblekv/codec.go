package pebblekv

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
)

// Table prefixes.
const (
	keysTable   byte = 'k'
	grantsTable byte = 'g'
)

// grantKeyMinLen is the id plus the action code.
const grantKeyMinLen = domain.KeyIDLength + 1

// EncodeGrantKey builds the compound key [id][action code][index].
// An empty index encodes an unscoped grant.
func EncodeGrantKey(keyID string, action domain.Action, index string) ([]byte, error) {
	if len(keyID) != domain.KeyIDLength {
		return nil, fmt.Errorf("%w: key id must be %d bytes", domain.ErrInvalidInput, domain.KeyIDLength)
	}
	code, ok := action.Code()
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidInput, action)
	}

	b := make([]byte, 0, grantKeyMinLen+len(index))
	b = append(b, keyID...)
	b = append(b, code)
	b = append(b, index...)
	return b, nil
}

// DecodeGrantKey splits a compound key back into its fields.
// Malformed keys are reported as domain.ErrCorruption.
func DecodeGrantKey(b []byte) (keyID string, action domain.Action, index string, err error) {
	if len(b) < grantKeyMinLen {
		return "", "", "", fmt.Errorf("%w: grant key is %d bytes", domain.ErrCorruption, len(b))
	}
	action, ok := domain.ActionFromCode(b[domain.KeyIDLength])
	if !ok {
		return "", "", "", fmt.Errorf("%w: unknown action code %d", domain.ErrCorruption, b[domain.KeyIDLength])
	}
	scope := b[grantKeyMinLen:]
	if !utf8.Valid(scope) {
		return "", "", "", fmt.Errorf("%w: index name is not valid UTF-8", domain.ErrCorruption)
	}
	return string(b[:domain.KeyIDLength]), action, string(scope), nil
}

// recordKey is the primary table key of a key record.
func recordKey(keyID string) []byte {
	return append([]byte{keysTable}, keyID...)
}

// grantTableKey prefixes an encoded grant key with its table.
func grantTableKey(raw []byte) []byte {
	return append([]byte{grantsTable}, raw...)
}

// grantPrefix is the table prefix shared by every grant of a key.
func grantPrefix(keyID string) []byte {
	return append([]byte{grantsTable}, keyID...)
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix, or nil if there is none.
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func encodeKey(key *domain.Key) ([]byte, error) {
	b, err := msgpack.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("encoding key: %w", err)
	}
	return b, nil
}

func decodeKey(b []byte) (*domain.Key, error) {
	var key domain.Key
	if err := msgpack.Unmarshal(b, &key); err != nil {
		return nil, fmt.Errorf("%w: decoding key: %v", domain.ErrCorruption, err)
	}
	for _, a := range key.Actions {
		if !a.IsValid() {
			return nil, fmt.Errorf("%w: key %s has unknown action %q", domain.ErrCorruption, key.ID, a)
		}
	}
	key.CreatedAt = key.CreatedAt.UTC()
	key.UpdatedAt = key.UpdatedAt.UTC()
	key.ExpiresAt = utcPtr(key.ExpiresAt)
	return &key, nil
}

func encodeExpiry(t *time.Time) ([]byte, error) {
	b, err := msgpack.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding expiry: %w", err)
	}
	return b, nil
}

func decodeExpiry(b []byte) (*time.Time, error) {
	var t *time.Time
	if err := msgpack.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("%w: decoding expiry: %v", domain.ErrCorruption, err)
	}
	return utcPtr(t), nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
