package pebblekv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
)

func TestGrantKey_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		action domain.Action
		index  string
	}{
		{"unscoped", "abcd1234", domain.ActionDocumentsAdd, ""},
		{"scoped", "abcd1234", domain.ActionSearch, "movies"},
		{"wildcard action", "zzzzzzzz", domain.ActionAll, "books"},
		{"utf8 index", "00000000", domain.ActionKeysDelete, "películas-日本"},
		{"index containing id bytes", "abcd1234", domain.ActionSearch, "abcd1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := EncodeGrantKey(tt.id, tt.action, tt.index)
			require.NoError(t, err)

			id, action, index, err := DecodeGrantKey(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.index, index)
		})
	}
}

func TestEncodeGrantKey_Layout(t *testing.T) {
	raw, err := EncodeGrantKey("abcd1234", domain.ActionSearch, "movies")
	require.NoError(t, err)

	assert.Equal(t, []byte("abcd1234"), raw[:8])
	assert.Equal(t, byte(1), raw[8])
	assert.Equal(t, []byte("movies"), raw[9:])

	unscoped, err := EncodeGrantKey("abcd1234", domain.ActionSearch, "")
	require.NoError(t, err)
	assert.Len(t, unscoped, 9)
}

func TestEncodeGrantKey_RejectsBadInput(t *testing.T) {
	_, err := EncodeGrantKey("short", domain.ActionSearch, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = EncodeGrantKey("abcd1234", domain.Action("nope"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDecodeGrantKey_Corruption(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"too short", []byte("abcd123")},
		{"missing action", []byte("abcd1234")},
		{"unknown action code", append([]byte("abcd1234"), 250)},
		{"invalid utf8 scope", append([]byte("abcd1234"), 1, 0xff, 0xfe)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := DecodeGrantKey(tt.raw)
			assert.ErrorIs(t, err, domain.ErrCorruption)
		})
	}
}

func TestPrefixUpperBound(t *testing.T) {
	assert.Equal(t, []byte{'g', 'b'}, prefixUpperBound([]byte{'g', 'a'}))
	assert.Equal(t, []byte{'h'}, prefixUpperBound([]byte{'g', 0xff}))
	assert.Nil(t, prefixUpperBound([]byte{0xff, 0xff}))
}

func TestExpiry_RoundTrip(t *testing.T) {
	exp := time.Date(2031, 5, 6, 7, 8, 9, 0, time.UTC)

	b, err := encodeExpiry(&exp)
	require.NoError(t, err)
	got, err := decodeExpiry(b)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, exp.Equal(*got))

	b, err = encodeExpiry(nil)
	require.NoError(t, err)
	got, err = decodeExpiry(b)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecodeKey_Corruption(t *testing.T) {
	_, err := decodeKey([]byte{0xc1})
	assert.ErrorIs(t, err, domain.ErrCorruption)
}
