// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

// Package oidc implements the OpenID Connect protocol pieces that sit
// between HTTP and storage: authorization-request parsing, claim gathering,
// and ID-token construction.
package oidc

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/basique/mini-oidc/pkg/entityid"
	"github.com/basique/mini-oidc/pkg/scope"
)

// The authorization request is decoded in two stages because the error
// reporting policy depends on how much has already been validated. Stage one
// (Head) extracts only client_id, redirect_uri, and state; any failure there
// must render as a local 400, because without an attested redirect URI no
// query parameters may be sent to the client. Only after the handler has
// checked the redirect URI against the whitelist may stage two (Finish)
// report its failures as an error redirect.

// Stage-one parse errors. All of them render as 400 problem+json.
var (
	ErrMissingClientID    = errors.New("client_id is required")
	ErrMissingRedirectURI = errors.New("redirect_uri is required")
)

// Head is the stage-one decoding of an authorization request.
type Head struct {
	ClientID    entityid.EntityID
	RedirectURI string
	State       string
}

// ParseHead extracts client_id, redirect_uri, and state from the query.
func ParseHead(q url.Values) (Head, error) {
	rawClientID := q.Get("client_id")
	if rawClientID == "" {
		return Head{}, ErrMissingClientID
	}
	clientID, err := entityid.Parse(rawClientID)
	if err != nil {
		return Head{}, fmt.Errorf("invalid client_id: %w", err)
	}

	redirectURI := q.Get("redirect_uri")
	if redirectURI == "" {
		return Head{}, ErrMissingRedirectURI
	}

	return Head{
		ClientID:    clientID,
		RedirectURI: redirectURI,
		State:       q.Get("state"),
	}, nil
}

// RedirectError is a stage-two failure destined for the client's validated
// redirect URI, per RFC 6749 Section 4.1.2.1.
type RedirectError struct {
	Code        string
	Description string
}

func (e *RedirectError) Error() string {
	return e.Code + ": " + e.Description
}

// OAuth error codes emitted by the authorization endpoint.
const (
	ErrorInvalidRequest          = "invalid_request"
	ErrorUnsupportedResponseType = "unsupported_response_type"
	ErrorAccessDenied            = "access_denied"
)

// Location builds the redirect URL carrying error, error_description, and
// the echoed state.
func (e *RedirectError) Location(redirectURI, state string) string {
	return ErrorRedirect(redirectURI, e.Code, e.Description, state)
}

// ErrorRedirect appends OAuth error parameters to a validated redirect URI.
func ErrorRedirect(redirectURI, code, description, state string) string {
	v := url.Values{}
	v.Set("error", code)
	if description != "" {
		v.Set("error_description", description)
	}
	if state != "" {
		v.Set("state", state)
	}
	return appendQuery(redirectURI, v)
}

// SuccessRedirect builds the code-issuance redirect.
func SuccessRedirect(redirectURI, code, state string) string {
	v := url.Values{}
	v.Set("code", code)
	if state != "" {
		v.Set("state", state)
	}
	return appendQuery(redirectURI, v)
}

// appendQuery joins extra parameters onto a URI that may already carry a
// query string.
func appendQuery(uri string, v url.Values) string {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + v.Encode()
}

// AuthRequest is the full decoding of an authorization request.
type AuthRequest struct {
	Head

	Scope        scope.Scope
	ResponseType string
	ResponseMode string
	Nonce        string
	Display      string
	Prompt       string
	// MaxAge is the client's max_age parameter; HasMaxAge distinguishes an
	// absent parameter from max_age=0.
	MaxAge      time.Duration
	HasMaxAge   bool
	UILocales   []string
	IDTokenHint string
	LoginHint   string
}

// Finish performs the stage-two decode. The caller must have validated the
// redirect URI first: any error returned here is meant to be delivered as a
// 302 to the client.
func (h Head) Finish(q url.Values) (*AuthRequest, *RedirectError) {
	req := &AuthRequest{
		Head:         h,
		Scope:        scope.Parse(q.Get("scope")),
		ResponseType: q.Get("response_type"),
		ResponseMode: q.Get("response_mode"),
		Nonce:        q.Get("nonce"),
		Display:      q.Get("display"),
		Prompt:       q.Get("prompt"),
		IDTokenHint:  q.Get("id_token_hint"),
		LoginHint:    q.Get("login_hint"),
	}

	if req.ResponseType == "" {
		return nil, &RedirectError{
			Code:        ErrorInvalidRequest,
			Description: "response_type is required",
		}
	}
	if req.ResponseType != "code" {
		return nil, &RedirectError{
			Code:        ErrorUnsupportedResponseType,
			Description: "only the authorization code flow is supported",
		}
	}

	if raw := q.Get("max_age"); raw != "" {
		seconds, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || seconds < 0 {
			return nil, &RedirectError{
				Code:        ErrorInvalidRequest,
				Description: "max_age must be a non-negative integer",
			}
		}
		req.MaxAge = time.Duration(seconds) * time.Second
		req.HasMaxAge = true
	}

	if raw := q.Get("ui_locales"); raw != "" {
		req.UILocales = strings.Fields(raw)
	}

	return req, nil
}
