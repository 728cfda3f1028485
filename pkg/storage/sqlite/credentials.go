// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/basique/mini-oidc/pkg/crypto"
	"github.com/basique/mini-oidc/pkg/entityid"
	"github.com/basique/mini-oidc/pkg/storage"
)

// The three credential tables share one shape: opaque uid primary key,
// subject references, an optional JSON body, and an expiry. The generic
// helpers below carry that shape; the exported methods are thin typed
// façades over them.

// credentialRow is the common column set of a credential table.
type credentialRow struct {
	uid      string
	userID   entityid.EntityID
	clientID entityid.EntityID
	body     []byte
	expires  time.Time
}

// insertCredential mints a fresh uid and inserts a row with the given TTL.
func (s *Store) insertCredential(
	ctx context.Context, query string, args func(uid, expires string) []any, ttl time.Duration,
) (string, time.Time, error) {
	uid, err := crypto.NewSecret()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generating credential uid: %w", err)
	}
	expires := time.Now().Add(ttl)

	if _, err := s.db.ExecContext(ctx, query, args(uid, encodeTime(expires))...); err != nil {
		return "", time.Time{}, fmt.Errorf("inserting credential: %w", err)
	}
	return uid, expires, nil
}

// scanCredential decodes a code or token row, re-checking expiry and
// comparing the caller's uid against the stored column in constant time. The
// SQL WHERE clause already matched on uid; the re-compare avoids leaning on
// the database's string comparison as a timing boundary.
func scanCredential(row *sql.Row, uid string) (credentialRow, error) {
	var (
		c          credentialRow
		storedUID  string
		userID     int64
		clientID   int64
		expiresStr string
	)

	err := row.Scan(&storedUID, &userID, &clientID, &c.body, &expiresStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return credentialRow{}, storage.ErrNotFound
		}
		return credentialRow{}, fmt.Errorf("scanning credential row: %w", err)
	}

	if !crypto.SecretEqual(uid, storedUID) {
		return credentialRow{}, storage.ErrNotFound
	}

	c.uid = storedUID
	if c.userID, err = entityid.FromInt64(userID); err != nil {
		return credentialRow{}, fmt.Errorf("decoding user id: %w", err)
	}
	if c.clientID, err = entityid.FromInt64(clientID); err != nil {
		return credentialRow{}, fmt.Errorf("decoding client id: %w", err)
	}
	if c.expires, err = decodeTime(expiresStr); err != nil {
		return credentialRow{}, err
	}
	if !c.expires.After(time.Now()) {
		// Expired but not yet swept. Lookups must not trust sweep latency.
		return credentialRow{}, storage.ErrNotFound
	}

	return c, nil
}

// deleteExpired removes expired rows from one credential table.
func (s *Store) deleteExpired(ctx context.Context, table string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE expires < ?`, encodeTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("deleting expired %s: %w", table, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return deleted, nil
}

// -----------------------
// Sessions
// -----------------------

// CreateSession mints a fresh session for userID with a 30-minute expiry.
func (s *Store) CreateSession(
	ctx context.Context, userID entityid.EntityID, lastIP string,
) (storage.Session, error) {
	uid, expires, err := s.insertCredential(ctx,
		`INSERT INTO sessions (uid, user_id, last_ip, expires) VALUES (?, ?, ?, ?)`,
		func(uid, expires string) []any {
			return []any{uid, userID.Int64(), lastIP, expires}
		},
		storage.SessionTTL,
	)
	if err != nil {
		return storage.Session{}, err
	}
	return storage.Session{SID: uid, UserID: userID, LastIP: lastIP, Expires: expires}, nil
}

// GetSession retrieves an unexpired session joined with its user.
func (s *Store) GetSession(ctx context.Context, sid string) (storage.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.uid, s.user_id, s.last_ip, s.expires, u.username
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.uid = ?`,
		sid,
	)

	var (
		storedUID  string
		userID     int64
		sess       storage.Session
		expiresStr string
	)
	err := row.Scan(&storedUID, &userID, &sess.LastIP, &expiresStr, &sess.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Session{}, storage.ErrNotFound
		}
		return storage.Session{}, fmt.Errorf("scanning session row: %w", err)
	}

	if !crypto.SecretEqual(sid, storedUID) {
		return storage.Session{}, storage.ErrNotFound
	}

	sess.SID = storedUID
	if sess.UserID, err = entityid.FromInt64(userID); err != nil {
		return storage.Session{}, fmt.Errorf("decoding user id: %w", err)
	}
	if sess.Expires, err = decodeTime(expiresStr); err != nil {
		return storage.Session{}, err
	}
	if !sess.Expires.After(time.Now()) {
		return storage.Session{}, storage.ErrNotFound
	}

	return sess, nil
}

// RefreshSession slides the session expiry forward and records the observed
// peer IP. The guard on expires means a concurrent refresh can lose its
// last_ip write but the expiry never moves backwards.
func (s *Store) RefreshSession(ctx context.Context, sid, lastIP string, newExpires time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_ip = ?, expires = ? WHERE uid = ? AND expires < ?`,
		lastIP, encodeTime(newExpires), sid, encodeTime(newExpires),
	)
	if err != nil {
		return fmt.Errorf("refreshing session: %w", err)
	}
	return nil
}

// DeleteSession removes a session row.
func (s *Store) DeleteSession(ctx context.Context, sid string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE uid = ?`, sid); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes expired session rows.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return s.deleteExpired(ctx, "sessions")
}

// -----------------------
// Authorization codes
// -----------------------

// CreateAuthorizationCode mints a fresh code with a 2-minute expiry.
func (s *Store) CreateAuthorizationCode(
	ctx context.Context, userID, clientID entityid.EntityID, body storage.CodeBody,
) (storage.AuthorizationCode, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return storage.AuthorizationCode{}, fmt.Errorf("encoding code body: %w", err)
	}

	uid, expires, err := s.insertCredential(ctx,
		`INSERT INTO authorization_codes (uid, user_id, client_id, body, expires) VALUES (?, ?, ?, ?, ?)`,
		func(uid, expires string) []any {
			return []any{uid, userID.Int64(), clientID.Int64(), string(encoded), expires}
		},
		storage.AuthorizationCodeTTL,
	)
	if err != nil {
		return storage.AuthorizationCode{}, err
	}

	return storage.AuthorizationCode{
		UID: uid, UserID: userID, ClientID: clientID, Body: body, Expires: expires,
	}, nil
}

// ConsumeAuthorizationCode fetches and deletes an unexpired code in one
// transaction. The delete is what enforces single use: a concurrent replay
// races on the row and exactly one caller sees it.
func (s *Store) ConsumeAuthorizationCode(ctx context.Context, uid string) (storage.AuthorizationCode, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.AuthorizationCode{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	row := tx.QueryRowContext(ctx,
		`SELECT uid, user_id, client_id, body, expires FROM authorization_codes WHERE uid = ?`,
		uid,
	)
	c, err := scanCredential(row, uid)
	if err != nil {
		return storage.AuthorizationCode{}, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM authorization_codes WHERE uid = ?`, uid)
	if err != nil {
		return storage.AuthorizationCode{}, fmt.Errorf("deleting authorization code: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.AuthorizationCode{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return storage.AuthorizationCode{}, storage.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return storage.AuthorizationCode{}, fmt.Errorf("committing transaction: %w", err)
	}

	code := storage.AuthorizationCode{
		UID: c.uid, UserID: c.userID, ClientID: c.clientID, Expires: c.expires,
	}
	if err := json.Unmarshal(c.body, &code.Body); err != nil {
		return storage.AuthorizationCode{}, fmt.Errorf("decoding code body: %w", err)
	}

	return code, nil
}

// DeleteExpiredAuthorizationCodes removes expired code rows.
func (s *Store) DeleteExpiredAuthorizationCodes(ctx context.Context) (int64, error) {
	return s.deleteExpired(ctx, "authorization_codes")
}

// -----------------------
// Access tokens
// -----------------------

// CreateAccessToken mints a fresh token with a 30-minute expiry.
func (s *Store) CreateAccessToken(
	ctx context.Context, userID, clientID entityid.EntityID, body storage.TokenBody,
) (storage.AccessToken, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return storage.AccessToken{}, fmt.Errorf("encoding token body: %w", err)
	}

	uid, expires, err := s.insertCredential(ctx,
		`INSERT INTO access_tokens (uid, user_id, client_id, body, expires) VALUES (?, ?, ?, ?, ?)`,
		func(uid, expires string) []any {
			return []any{uid, userID.Int64(), clientID.Int64(), string(encoded), expires}
		},
		storage.AccessTokenTTL,
	)
	if err != nil {
		return storage.AccessToken{}, err
	}

	return storage.AccessToken{
		UID: uid, UserID: userID, ClientID: clientID, Body: body, Expires: expires,
	}, nil
}

// GetAccessToken retrieves an unexpired access token.
func (s *Store) GetAccessToken(ctx context.Context, uid string) (storage.AccessToken, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT uid, user_id, client_id, body, expires FROM access_tokens WHERE uid = ?`,
		uid,
	)
	c, err := scanCredential(row, uid)
	if err != nil {
		return storage.AccessToken{}, err
	}

	token := storage.AccessToken{
		UID: c.uid, UserID: c.userID, ClientID: c.clientID, Expires: c.expires,
	}
	if err := json.Unmarshal(c.body, &token.Body); err != nil {
		return storage.AccessToken{}, fmt.Errorf("decoding token body: %w", err)
	}

	return token, nil
}

// DeleteExpiredAccessTokens removes expired token rows.
func (s *Store) DeleteExpiredAccessTokens(ctx context.Context) (int64, error) {
	return s.deleteExpired(ctx, "access_tokens")
}
