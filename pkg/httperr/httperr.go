// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

// Package httperr defines the provider's error taxonomy and renders each kind
// to its wire form: RFC 7807 problem+json for interactive and infrastructure
// failures, RFC 6749 JSON for token-endpoint failures, RFC 7591 JSON for
// registration failures, and a WWW-Authenticate challenge for UserInfo.
package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/basique/mini-oidc/pkg/logger"
)

// typeBase prefixes the RFC 7807 type URI for each problem kind.
const typeBase = "https://basique.top/mini-oidc/error/"

// Kind classifies a provider error for HTTP rendering.
type Kind int

// Error kinds.
const (
	// KindCSRF is a missing or mismatched CSRF nonce. Rendered as 400.
	KindCSRF Kind = iota
	// KindDatabase is an unrecovered storage failure. Rendered as 500.
	KindDatabase
	// KindPasswordHash is an internal password hashing failure. Rendered as 500.
	KindPasswordHash
	// KindURLParse is an internal URL construction failure. Rendered as 500.
	KindURLParse
	// KindCrypto is an RSA or randomness failure. Rendered as 500.
	KindCrypto
	// KindNotFound is an unknown client or redirect URI on the authorization
	// endpoint. Rendered as 404, never as a redirect.
	KindNotFound
	// KindAuthRequest is a stage-one authorization request parse failure,
	// before the redirect URI is attested. Rendered as 400, never a redirect.
	KindAuthRequest
)

// Error is a classified provider error. The Detail string is safe to show to
// clients; the wrapped cause is logged but never rendered.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

// New builds an Error of the given kind wrapping cause.
func New(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

// Unwrap exposes the cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// problem is an RFC 7807 problem details body.
type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// rendering maps each kind to its problem template.
var rendering = map[Kind]problem{
	KindCSRF:         {Type: typeBase + "csrf", Title: "CSRF verification failed", Status: http.StatusBadRequest},
	KindDatabase:     {Type: typeBase + "database", Title: "Database error", Status: http.StatusInternalServerError},
	KindPasswordHash: {Type: typeBase + "password_hash", Title: "Password hashing error", Status: http.StatusInternalServerError},
	KindURLParse:     {Type: typeBase + "url_parse", Title: "URL parse error", Status: http.StatusInternalServerError},
	KindCrypto:       {Type: typeBase + "rsa", Title: "Cryptographic error", Status: http.StatusInternalServerError},
	KindNotFound:     {Type: typeBase + "not_found", Title: "Not found", Status: http.StatusNotFound},
	KindAuthRequest:  {Type: typeBase + "auth_request", Title: "Invalid authorization request", Status: http.StatusBadRequest},
}

// Render writes err to w in its HTTP form. Unknown error values render as a
// generic 500 problem; their cause goes to the log, not the response.
func Render(w http.ResponseWriter, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindDatabase, Detail: "internal server error", Err: err}
	}

	p := rendering[e.Kind]
	p.Detail = e.Detail
	if p.Status >= http.StatusInternalServerError {
		// The wrapped cause goes to the log only; Detail is written by the
		// handler and safe to show.
		logger.Errorw("request failed", "kind", int(e.Kind), "error", err.Error())
	}

	writeJSON(w, "application/problem+json", p.Status, p)
}

// TokenError is an RFC 6749 Section 5.2 token endpoint error body.
type TokenError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *TokenError) Error() string {
	return e.Code + ": " + e.Description
}

// RFC 6749 token error codes used by the token endpoint.
const (
	TokenInvalidClient        = "invalid_client"
	TokenInvalidGrant         = "invalid_grant"
	TokenInvalidRequest       = "invalid_request"
	TokenUnsupportedGrantType = "unsupported_grant_type"
)

// WriteTokenError renders an RFC 6749 error as a 400, invalid_client
// included.
func WriteTokenError(w http.ResponseWriter, te *TokenError) {
	writeJSON(w, "application/json", http.StatusBadRequest, te)
}

// RegistrationError is an RFC 7591 Section 3.2.2 registration error body.
type RegistrationError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *RegistrationError) Error() string {
	return e.Code + ": " + e.Description
}

// RFC 7591 registration error codes.
const (
	RegistrationInvalidMetadata    = "invalid_client_metadata"
	RegistrationInvalidRedirectURI = "invalid_redirect_uri"
)

// WriteRegistrationError renders an RFC 7591 error as a 400.
func WriteRegistrationError(w http.ResponseWriter, re *RegistrationError) {
	writeJSON(w, "application/json", http.StatusBadRequest, re)
}

// WriteBearerChallenge renders the UserInfo 401 with an RFC 6750 challenge.
func WriteBearerChallenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	writeJSON(w, "application/json", http.StatusUnauthorized,
		&TokenError{Code: "invalid_token", Description: "The access token is missing, invalid, or expired"})
}

func writeJSON(w http.ResponseWriter, contentType string, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		logger.Errorw("failed to encode error body", "error", err.Error())
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
