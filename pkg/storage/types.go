// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage defines the persistence interfaces and entities for the
// provider: users, clients, signing keys, and the three expiring credential
// kinds (sessions, authorization codes, access tokens).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/basique/mini-oidc/pkg/entityid"
	"github.com/basique/mini-oidc/pkg/scope"
)

// Sentinel errors shared by all implementations.
var (
	// ErrNotFound indicates the requested entity does not exist or, for
	// expiring credentials, has already expired.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness conflict (duplicate username,
	// duplicate redirect URI for a client).
	ErrAlreadyExists = errors.New("already exists")
)

// Credential lifetimes and the sweep cadence.
const (
	// SessionTTL is the sliding lifetime of a browser session.
	SessionTTL = 30 * time.Minute
	// AuthorizationCodeTTL is the validity window of an authorization code.
	AuthorizationCodeTTL = 2 * time.Minute
	// AccessTokenTTL is the validity window of an access token.
	AccessTokenTTL = 30 * time.Minute
	// SweepInterval is how often each expiry sweep runs.
	SweepInterval = 5 * time.Minute
)

// User is an end-user account. Rows are created at registration and never
// mutated afterwards.
type User struct {
	ID           entityid.EntityID
	Username     string
	Email        string // empty when the user registered without one
	PasswordHash string // Argon2id PHC string
}

// Client is a registered relying party. SecretHash and RegistrationTokenHash
// are Argon2id PHC strings; the plaintext values are returned exactly once in
// the registration response.
type Client struct {
	ID                    entityid.EntityID
	Name                  string
	ApplicationType       string // "web" or "native"
	ClientURI             string
	LogoURI               string
	SecretHash            string
	RegistrationTokenHash string
	RedirectURIs          []string // exact-match whitelist, at least one
	Contacts              []string
}

// Session is a server-side browser session keyed by an opaque cookie value.
// Expires slides forward on every authenticated request.
type Session struct {
	SID     string
	UserID  entityid.EntityID
	LastIP  string
	Expires time.Time

	// Username is joined from the users table on lookup.
	Username string
}

// CodeBody is the payload carried by an authorization code: the granted
// scope, the relying party's state (echoed verbatim), the OIDC nonce, and
// the redirect URI that delivered the code, which the token request must
// echo byte-equal. The store serializes it as JSON; handlers never see the
// encoding.
type CodeBody struct {
	Scope       scope.Scope `json:"scope"`
	State       string      `json:"state"`
	Nonce       string      `json:"nonce,omitempty"`
	RedirectURI string      `json:"redirect_uri"`
}

// AuthorizationCode is a short-lived single-use credential minted at consent
// and redeemed at the token endpoint.
type AuthorizationCode struct {
	UID      string
	UserID   entityid.EntityID
	ClientID entityid.EntityID
	Body     CodeBody
	Expires  time.Time
}

// TokenBody is the payload carried by an access token.
type TokenBody struct {
	Scope scope.Scope `json:"scope"`
}

// AccessToken is an opaque bearer credential authorizing UserInfo calls.
type AccessToken struct {
	UID      string
	UserID   entityid.EntityID
	ClientID entityid.EntityID
	Body     TokenBody
	Expires  time.Time
}

// SigningKey is a PEM-encoded RSA private key at rest.
type SigningKey struct {
	ID  entityid.EntityID
	PEM string
}

// UserStore persists end-user accounts.
type UserStore interface {
	// CreateUser inserts a new user. Returns ErrAlreadyExists when the
	// username is taken.
	CreateUser(ctx context.Context, user User) error
	// GetUser fetches a user by id.
	GetUser(ctx context.Context, id entityid.EntityID) (User, error)
	// GetUserByName fetches a user by username.
	GetUserByName(ctx context.Context, username string) (User, error)
}

// ClientStore persists relying parties with their redirect URI whitelists and
// contact addresses.
type ClientStore interface {
	// CreateClient inserts the client row, its redirect URIs, and its
	// contacts in a single transaction. Any failure rolls back everything.
	CreateClient(ctx context.Context, client Client) error
	// GetClient fetches a client with its redirect URIs and contacts.
	GetClient(ctx context.Context, id entityid.EntityID) (Client, error)
	// GetClientWithRedirect fetches a client only if redirectURI is
	// byte-equal to one registered for it; ErrNotFound otherwise.
	GetClientWithRedirect(ctx context.Context, id entityid.EntityID, redirectURI string) (Client, error)
}

// SessionStore persists browser sessions.
type SessionStore interface {
	// CreateSession mints a fresh 64-character sid with a 30-minute expiry.
	CreateSession(ctx context.Context, userID entityid.EntityID, lastIP string) (Session, error)
	// GetSession fetches an unexpired session joined with its user.
	GetSession(ctx context.Context, sid string) (Session, error)
	// RefreshSession slides the expiry forward and records the peer IP.
	// The expiry never regresses under concurrent refreshes.
	RefreshSession(ctx context.Context, sid, lastIP string, newExpires time.Time) error
	// DeleteSession removes a session (logout).
	DeleteSession(ctx context.Context, sid string) error
	// DeleteExpiredSessions removes expired rows, returning the count.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// AuthorizationCodeStore persists authorization codes.
type AuthorizationCodeStore interface {
	// CreateAuthorizationCode mints a fresh code with a 2-minute expiry.
	CreateAuthorizationCode(
		ctx context.Context, userID, clientID entityid.EntityID, body CodeBody,
	) (AuthorizationCode, error)
	// ConsumeAuthorizationCode atomically fetches and deletes an unexpired
	// code. A second consume of the same code returns ErrNotFound, which is
	// what makes codes single-use.
	ConsumeAuthorizationCode(ctx context.Context, uid string) (AuthorizationCode, error)
	// DeleteExpiredAuthorizationCodes removes expired rows.
	DeleteExpiredAuthorizationCodes(ctx context.Context) (int64, error)
}

// AccessTokenStore persists access tokens.
type AccessTokenStore interface {
	// CreateAccessToken mints a fresh token with a 30-minute expiry.
	CreateAccessToken(
		ctx context.Context, userID, clientID entityid.EntityID, body TokenBody,
	) (AccessToken, error)
	// GetAccessToken fetches an unexpired token.
	GetAccessToken(ctx context.Context, uid string) (AccessToken, error)
	// DeleteExpiredAccessTokens removes expired rows.
	DeleteExpiredAccessTokens(ctx context.Context) (int64, error)
}

// SigningKeyStore persists RSA signing keys.
type SigningKeyStore interface {
	// InsertSigningKey stores a new key.
	InsertSigningKey(ctx context.Context, key SigningKey) error
	// ListSigningKeys returns every stored key.
	ListSigningKeys(ctx context.Context) ([]SigningKey, error)
}

// Store is the full persistence surface of the provider.
type Store interface {
	UserStore
	ClientStore
	SessionStore
	AuthorizationCodeStore
	AccessTokenStore
	SigningKeyStore

	// Health verifies the backing database is reachable.
	Health(ctx context.Context) error
	// Close releases the database pool.
	Close() error
}
