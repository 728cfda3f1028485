// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package oidc

import (
	"github.com/basique/mini-oidc/pkg/scope"
	"github.com/basique/mini-oidc/pkg/storage"
)

// Scope words that gate claim projection.
const (
	ScopeOpenID  = "openid"
	ScopeProfile = "profile"
	ScopeEmail   = "email"
)

// UserClaims is the standard claim bundle served by UserInfo and embedded in
// ID tokens, filtered by the granted scopes.
type UserClaims struct {
	Sub               string `json:"sub"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Email             string `json:"email,omitempty"`
	EmailVerified     *bool  `json:"email_verified,omitempty"`
}

// GatherClaims projects a user record through the granted scopes. The
// profile scope releases preferred_username; the email scope releases email
// and email_verified, which is true exactly when an email is on file. A user
// without an email gets neither email claim.
func GatherClaims(user storage.User, granted scope.Scope) UserClaims {
	claims := UserClaims{Sub: user.ID.String()}

	if granted.Has(ScopeProfile) {
		claims.PreferredUsername = user.Username
	}

	if granted.Has(ScopeEmail) && user.Email != "" {
		verified := true
		claims.Email = user.Email
		claims.EmailVerified = &verified
	}

	return claims
}
