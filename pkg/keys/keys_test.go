// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basique/mini-oidc/pkg/entityid"
	"github.com/basique/mini-oidc/pkg/storage"
)

// memKeyStore is an in-memory SigningKeyStore for tests.
type memKeyStore struct {
	mu   sync.Mutex
	rows []storage.SigningKey
}

func (m *memKeyStore) InsertSigningKey(_ context.Context, key storage.SigningKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, key)
	return nil
}

func (m *memKeyStore) ListSigningKeys(_ context.Context) ([]storage.SigningKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.SigningKey(nil), m.rows...), nil
}

func TestBootstrap(t *testing.T) {
	t.Parallel()

	store := &memKeyStore{}
	ctx := context.Background()

	require.NoError(t, Bootstrap(ctx, store))
	rows, err := store.ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// A second boot reuses the existing key instead of generating another.
	require.NoError(t, Bootstrap(ctx, store))
	rows, err = store.ListSigningKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("empty store fails", func(t *testing.T) {
		t.Parallel()

		_, err := Load(ctx, &memKeyStore{})
		require.Error(t, err)
	})

	t.Run("active key is lowest id", func(t *testing.T) {
		t.Parallel()

		store := &memKeyStore{}
		lowID, err := entityid.FromInt64(int64(entityid.Min))
		require.NoError(t, err)
		highID, err := entityid.FromInt64(int64(entityid.Min) + 1)
		require.NoError(t, err)

		lowKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		highKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		// Insert out of order to check Load sorts, not insertion order.
		require.NoError(t, store.InsertSigningKey(ctx, storage.SigningKey{ID: highID, PEM: EncodePEM(highKey)}))
		require.NoError(t, store.InsertSigningKey(ctx, storage.SigningKey{ID: lowID, PEM: EncodePEM(lowKey)}))

		set, err := Load(ctx, store)
		require.NoError(t, err)

		kid, active := set.Active()
		assert.Equal(t, lowID, kid)
		assert.True(t, lowKey.Equal(active))

		assert.True(t, highKey.Equal(set.Get(highID)))
		assert.Nil(t, set.Get(entityid.Max-1))
	})
}

func TestPublicJWKS(t *testing.T) {
	t.Parallel()

	store := &memKeyStore{}
	ctx := context.Background()
	require.NoError(t, Bootstrap(ctx, store))

	set, err := Load(ctx, store)
	require.NoError(t, err)

	jwks := set.PublicJWKS()
	require.Len(t, jwks.Keys, 1)

	kid, active := set.Active()
	jwk := jwks.Keys[0]
	assert.Equal(t, kid.String(), jwk.KeyID)
	assert.Equal(t, Algorithm, jwk.Algorithm)
	assert.Equal(t, "sig", jwk.Use)

	// Only the public half goes on the wire.
	pub, ok := jwk.Key.(*rsa.PublicKey)
	require.True(t, ok)
	assert.True(t, active.PublicKey.Equal(pub))
}

func TestPEMRoundTrip(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	decoded, err := DecodePEM(EncodePEM(key))
	require.NoError(t, err)
	assert.True(t, key.Equal(decoded))

	_, err = DecodePEM("not a pem block")
	require.Error(t, err)
}
