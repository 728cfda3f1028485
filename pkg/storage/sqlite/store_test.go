// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basique/mini-oidc/pkg/entityid"
	"github.com/basique/mini-oidc/pkg/scope"
	"github.com/basique/mini-oidc/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func mustID(t *testing.T) entityid.EntityID {
	t.Helper()

	id, err := entityid.New()
	require.NoError(t, err)
	return id
}

func newTestUser(t *testing.T, store *Store, username string) storage.User {
	t.Helper()

	user := storage.User{
		ID:           mustID(t),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdHNhbHQ$aGFzaGhhc2g",
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

// backdate marks a credential row as expired without waiting for its TTL.
func backdate(t *testing.T, store *Store, table, uid string) {
	t.Helper()

	_, err := store.db.Exec(
		`UPDATE `+table+` SET expires = ? WHERE uid = ?`,
		encodeTime(time.Now().Add(-time.Minute)), uid)
	require.NoError(t, err)
}

func TestUsers(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, store, "marcela")

	t.Run("get by id", func(t *testing.T) {
		got, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("get by name", func(t *testing.T) {
		got, err := store.GetUserByName(ctx, "marcela")
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("duplicate username", func(t *testing.T) {
		dup := storage.User{ID: mustID(t), Username: "marcela", PasswordHash: "x"}
		err := store.CreateUser(ctx, dup)
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := store.GetUser(ctx, mustID(t))
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = store.GetUserByName(ctx, "nobody")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("empty email stays empty", func(t *testing.T) {
		noMail := storage.User{ID: mustID(t), Username: "plain", PasswordHash: "x"}
		require.NoError(t, store.CreateUser(ctx, noMail))

		got, err := store.GetUser(ctx, noMail.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Email)
	})
}

func TestClients(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	client := storage.Client{
		ID:                    mustID(t),
		Name:                  "My App",
		ApplicationType:       "web",
		ClientURI:             "https://rp.test",
		LogoURI:               "https://rp.test/logo.png",
		SecretHash:            "$argon2id$secret",
		RegistrationTokenHash: "$argon2id$token",
		RedirectURIs:          []string{"https://rp.test/cb", "https://rp.test/cb2"},
		Contacts:              []string{"admin@rp.test"},
	}
	require.NoError(t, store.CreateClient(ctx, client))

	t.Run("round trip", func(t *testing.T) {
		got, err := store.GetClient(ctx, client.ID)
		require.NoError(t, err)
		assert.Equal(t, client, got)
	})

	t.Run("whitelist match", func(t *testing.T) {
		got, err := store.GetClientWithRedirect(ctx, client.ID, "https://rp.test/cb")
		require.NoError(t, err)
		assert.Equal(t, client.ID, got.ID)
	})

	t.Run("whitelist is byte equality", func(t *testing.T) {
		// Same URI up to a trailing slash is not a match.
		_, err := store.GetClientWithRedirect(ctx, client.ID, "https://rp.test/cb/")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = store.GetClientWithRedirect(ctx, client.ID, "https://rp.test/other")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("duplicate redirect URI rolls back everything", func(t *testing.T) {
		bad := storage.Client{
			ID:                    mustID(t),
			Name:                  "Broken",
			ApplicationType:       "web",
			LogoURI:               "https://rp.test/logo.png",
			SecretHash:            "x",
			RegistrationTokenHash: "x",
			RedirectURIs:          []string{"https://rp.test/a", "https://rp.test/a"},
		}
		err := store.CreateClient(ctx, bad)
		require.ErrorIs(t, err, storage.ErrAlreadyExists)

		// The client row must not survive the failed transaction.
		_, err = store.GetClient(ctx, bad.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("unknown client", func(t *testing.T) {
		_, err := store.GetClient(ctx, mustID(t))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestSessions(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, store, "marcela")

	t.Run("create and get", func(t *testing.T) {
		sess, err := store.CreateSession(ctx, user.ID, "192.0.2.1")
		require.NoError(t, err)
		assert.Len(t, sess.SID, 64)

		got, err := store.GetSession(ctx, sess.SID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.UserID)
		assert.Equal(t, "marcela", got.Username)
		assert.Equal(t, "192.0.2.1", got.LastIP)
		assert.WithinDuration(t, time.Now().Add(storage.SessionTTL), got.Expires, 5*time.Second)
	})

	t.Run("refresh slides forward", func(t *testing.T) {
		sess, err := store.CreateSession(ctx, user.ID, "192.0.2.1")
		require.NoError(t, err)

		later := time.Now().Add(2 * storage.SessionTTL)
		require.NoError(t, store.RefreshSession(ctx, sess.SID, "192.0.2.2", later))

		got, err := store.GetSession(ctx, sess.SID)
		require.NoError(t, err)
		assert.Equal(t, "192.0.2.2", got.LastIP)
		assert.WithinDuration(t, later, got.Expires, time.Second)
	})

	t.Run("refresh never regresses", func(t *testing.T) {
		sess, err := store.CreateSession(ctx, user.ID, "192.0.2.1")
		require.NoError(t, err)

		earlier := time.Now().Add(time.Minute)
		require.NoError(t, store.RefreshSession(ctx, sess.SID, "192.0.2.9", earlier))

		got, err := store.GetSession(ctx, sess.SID)
		require.NoError(t, err)
		// The guarded update ignored the earlier expiry and the IP with it.
		assert.WithinDuration(t, sess.Expires, got.Expires, time.Second)
		assert.Equal(t, "192.0.2.1", got.LastIP)
	})

	t.Run("expired session is invisible", func(t *testing.T) {
		sess, err := store.CreateSession(ctx, user.ID, "192.0.2.1")
		require.NoError(t, err)
		backdate(t, store, "sessions", sess.SID)

		_, err = store.GetSession(ctx, sess.SID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		sess, err := store.CreateSession(ctx, user.ID, "192.0.2.1")
		require.NoError(t, err)
		require.NoError(t, store.DeleteSession(ctx, sess.SID))

		_, err = store.GetSession(ctx, sess.SID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// Deleting again is a no-op.
		assert.NoError(t, store.DeleteSession(ctx, sess.SID))
	})

	t.Run("unknown sid", func(t *testing.T) {
		_, err := store.GetSession(ctx, "nosuchsession")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestAuthorizationCodes(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, store, "marcela")
	clientID := mustID(t)

	body := storage.CodeBody{
		Scope:       scope.Scope{"openid", "email"},
		State:       "xyz",
		Nonce:       "n-0S6",
		RedirectURI: "https://rp.test/cb",
	}

	t.Run("consume is single use", func(t *testing.T) {
		code, err := store.CreateAuthorizationCode(ctx, user.ID, clientID, body)
		require.NoError(t, err)
		assert.Len(t, code.UID, 64)

		got, err := store.ConsumeAuthorizationCode(ctx, code.UID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.UserID)
		assert.Equal(t, clientID, got.ClientID)
		assert.Equal(t, body, got.Body)

		// The second redemption of the same code must fail.
		_, err = store.ConsumeAuthorizationCode(ctx, code.UID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("expired code is not redeemable", func(t *testing.T) {
		code, err := store.CreateAuthorizationCode(ctx, user.ID, clientID, body)
		require.NoError(t, err)
		backdate(t, store, "authorization_codes", code.UID)

		_, err = store.ConsumeAuthorizationCode(ctx, code.UID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := store.ConsumeAuthorizationCode(ctx, "nosuchcode")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestAccessTokens(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, store, "marcela")
	clientID := mustID(t)

	body := storage.TokenBody{Scope: scope.Scope{"openid", "profile"}}

	t.Run("create and get", func(t *testing.T) {
		token, err := store.CreateAccessToken(ctx, user.ID, clientID, body)
		require.NoError(t, err)
		assert.Len(t, token.UID, 64)

		got, err := store.GetAccessToken(ctx, token.UID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.UserID)
		assert.Equal(t, clientID, got.ClientID)
		assert.Equal(t, body, got.Body)

		// Tokens are reusable until expiry, unlike codes.
		_, err = store.GetAccessToken(ctx, token.UID)
		assert.NoError(t, err)
	})

	t.Run("expired token is invisible", func(t *testing.T) {
		token, err := store.CreateAccessToken(ctx, user.ID, clientID, body)
		require.NoError(t, err)
		backdate(t, store, "access_tokens", token.UID)

		_, err = store.GetAccessToken(ctx, token.UID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestExpirySweeps(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, store, "marcela")
	clientID := mustID(t)

	// One live and one expired row per credential table.
	liveSess, err := store.CreateSession(ctx, user.ID, "192.0.2.1")
	require.NoError(t, err)
	deadSess, err := store.CreateSession(ctx, user.ID, "192.0.2.1")
	require.NoError(t, err)
	backdate(t, store, "sessions", deadSess.SID)

	liveCode, err := store.CreateAuthorizationCode(ctx, user.ID, clientID, storage.CodeBody{})
	require.NoError(t, err)
	deadCode, err := store.CreateAuthorizationCode(ctx, user.ID, clientID, storage.CodeBody{})
	require.NoError(t, err)
	backdate(t, store, "authorization_codes", deadCode.UID)

	liveToken, err := store.CreateAccessToken(ctx, user.ID, clientID, storage.TokenBody{})
	require.NoError(t, err)
	deadToken, err := store.CreateAccessToken(ctx, user.ID, clientID, storage.TokenBody{})
	require.NoError(t, err)
	backdate(t, store, "access_tokens", deadToken.UID)

	for _, sweep := range []struct {
		name string
		fn   storage.SweepFunc
	}{
		{"sessions", store.DeleteExpiredSessions},
		{"authorization_codes", store.DeleteExpiredAuthorizationCodes},
		{"access_tokens", store.DeleteExpiredAccessTokens},
	} {
		deleted, err := sweep.fn(ctx)
		require.NoError(t, err, sweep.name)
		assert.Equal(t, int64(1), deleted, sweep.name)

		// Sweeps are idempotent.
		deleted, err = sweep.fn(ctx)
		require.NoError(t, err, sweep.name)
		assert.Zero(t, deleted, sweep.name)
	}

	// Live rows survived.
	_, err = store.GetSession(ctx, liveSess.SID)
	assert.NoError(t, err)
	_, err = store.ConsumeAuthorizationCode(ctx, liveCode.UID)
	assert.NoError(t, err)
	_, err = store.GetAccessToken(ctx, liveToken.UID)
	assert.NoError(t, err)
}

func TestSigningKeys(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	lowID, err := entityid.FromInt64(int64(entityid.Min))
	require.NoError(t, err)
	highID, err := entityid.FromInt64(int64(entityid.Min) + 1)
	require.NoError(t, err)

	require.NoError(t, store.InsertSigningKey(ctx, storage.SigningKey{ID: highID, PEM: "pem-high"}))
	require.NoError(t, store.InsertSigningKey(ctx, storage.SigningKey{ID: lowID, PEM: "pem-low"}))

	rows, err := store.ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Listed in ascending id order regardless of insertion order.
	assert.Equal(t, lowID, rows[0].ID)
	assert.Equal(t, "pem-low", rows[0].PEM)
	assert.Equal(t, highID, rows[1].ID)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	assert.NoError(t, store.Health(context.Background()))
}
