// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/basique/mini-oidc/pkg/crypto"
	"github.com/basique/mini-oidc/pkg/entityid"
	"github.com/basique/mini-oidc/pkg/httperr"
	"github.com/basique/mini-oidc/pkg/logger"
	"github.com/basique/mini-oidc/pkg/oidc"
	"github.com/basique/mini-oidc/pkg/storage"
)

// tokenResponse is the RFC 6749 Section 5.1 success body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	IDToken     string `json:"id_token"`
}

// Token handles POST /api/oauth2/token: authenticate the client with HTTP
// Basic, redeem the authorization code (single use), and return a signed ID
// token plus a fresh access token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httperr.WriteTokenError(w, &httperr.TokenError{
			Code: httperr.TokenInvalidRequest, Description: "malformed form body",
		})
		return
	}

	client, terr := h.authenticateClient(r)
	if terr != nil {
		httperr.WriteTokenError(w, terr)
		return
	}

	if gt := r.PostFormValue("grant_type"); gt != "authorization_code" {
		httperr.WriteTokenError(w, &httperr.TokenError{
			Code: httperr.TokenUnsupportedGrantType, Description: "only authorization_code is supported",
		})
		return
	}

	// Consume deletes the code row in the same transaction that reads it,
	// so a replayed code fails here with invalid_grant.
	code, err := h.store.ConsumeAuthorizationCode(r.Context(), r.PostFormValue("code"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httperr.WriteTokenError(w, &httperr.TokenError{
				Code: httperr.TokenInvalidGrant, Description: "authorization code is invalid or expired",
			})
			return
		}
		logger.Errorw("failed to consume authorization code", "error", err.Error())
		httperr.Render(w, httperr.New(httperr.KindDatabase, "failed to redeem code", err))
		return
	}

	if code.ClientID != client.ID {
		httperr.WriteTokenError(w, &httperr.TokenError{
			Code: httperr.TokenInvalidGrant, Description: "authorization code was issued to another client",
		})
		return
	}

	// RFC 6749 Section 4.1.3: the token request must echo, byte-equal, the
	// redirect_uri that delivered the code. Whitelist membership alone is
	// not enough: a code issued via one registered URI must not redeem
	// through another.
	redirectURI := r.PostFormValue("redirect_uri")
	if redirectURI == "" || redirectURI != code.Body.RedirectURI {
		httperr.WriteTokenError(w, &httperr.TokenError{
			Code: httperr.TokenInvalidGrant, Description: "redirect_uri missing or does not match the authorization request",
		})
		return
	}

	user, err := h.store.GetUser(r.Context(), code.UserID)
	if err != nil {
		logger.Errorw("failed to load user for token issuance", "error", err.Error())
		httperr.Render(w, httperr.New(httperr.KindDatabase, "failed to load user", err))
		return
	}

	userClaims := oidc.GatherClaims(user, code.Body.Scope)
	claims := oidc.NewIDTokenClaims(
		h.links.Issuer, client.ID.String(), code.Body.Nonce, code.UID, userClaims, time.Now())

	kid, signingKey := h.keys.Active()
	idToken, err := oidc.SignIDToken(claims, kid.String(), signingKey)
	if err != nil {
		httperr.Render(w, httperr.New(httperr.KindCrypto, "failed to sign id token", err))
		return
	}

	accessToken, err := h.store.CreateAccessToken(r.Context(), code.UserID, client.ID,
		storage.TokenBody{Scope: code.Body.Scope})
	if err != nil {
		httperr.Render(w, httperr.New(httperr.KindDatabase, "failed to create access token", err))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: accessToken.UID,
		TokenType:   "Bearer",
		ExpiresIn:   int64(storage.AccessTokenTTL / time.Second),
		IDToken:     idToken,
	})
}

// authenticateClient verifies the HTTP Basic credentials: username is the
// base-62 client_id, password is the client_secret, checked against the
// Argon2id hash at rest. Every failure collapses to invalid_client so the
// endpoint does not reveal which part was wrong.
func (h *Handler) authenticateClient(r *http.Request) (storage.Client, *httperr.TokenError) {
	invalid := &httperr.TokenError{
		Code: httperr.TokenInvalidClient, Description: "client authentication failed",
	}

	username, password, ok := r.BasicAuth()
	if !ok {
		return storage.Client{}, invalid
	}

	clientID, err := entityid.Parse(username)
	if err != nil {
		return storage.Client{}, invalid
	}

	client, err := h.store.GetClient(r.Context(), clientID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Errorw("failed to load client", "error", err.Error())
		}
		return storage.Client{}, invalid
	}

	if err := crypto.VerifyPassword(password, client.SecretHash); err != nil {
		return storage.Client{}, invalid
	}

	return client, nil
}
