// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

// Package middleware holds the chi middleware protecting the interactive
// surface: CSRF nonces, session resolution, and request metrics.
package middleware

import (
	"context"
	"net/http"

	"github.com/basique/mini-oidc/pkg/crypto"
	"github.com/basique/mini-oidc/pkg/httperr"
)

// CSRFCookie is the name of the per-browser nonce cookie.
const CSRFCookie = "csrf"

// CSRFField is the form field that must echo the cookie nonce.
const CSRFField = "csrf"

type csrfKey struct{}

// CSRF ensures every request on the interactive surface carries a nonce
// cookie, minting one when absent, and attaches the nonce to the request
// context for template rendering and later verification.
func CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonce := ""
		if c, err := r.Cookie(CSRFCookie); err == nil && c.Value != "" {
			nonce = c.Value
		} else {
			fresh, err := crypto.NewSecret()
			if err != nil {
				httperr.Render(w, httperr.New(httperr.KindCrypto, "failed to generate CSRF nonce", err))
				return
			}
			nonce = fresh
			http.SetCookie(w, &http.Cookie{
				Name:     CSRFCookie,
				Value:    nonce,
				Path:     "/",
				HttpOnly: true,
				Secure:   true,
			})
		}

		ctx := context.WithValue(r.Context(), csrfKey{}, nonce)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CSRFNonce returns the nonce attached by the CSRF middleware, or "" when
// the middleware did not run.
func CSRFNonce(ctx context.Context) string {
	nonce, _ := ctx.Value(csrfKey{}).(string)
	return nonce
}

// VerifyCSRF checks that the submitted form field echoes the cookie nonce.
// Every state-changing form handler calls this before doing anything else.
func VerifyCSRF(r *http.Request) error {
	nonce := CSRFNonce(r.Context())
	submitted := r.FormValue(CSRFField)
	if nonce == "" || submitted == "" || !crypto.SecretEqual(nonce, submitted) {
		return httperr.New(httperr.KindCSRF, "CSRF token missing or mismatched", nil)
	}
	return nil
}
