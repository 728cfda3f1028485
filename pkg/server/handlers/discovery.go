// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"fmt"
	"net/http"

	"github.com/basique/mini-oidc/pkg/keys"
	"github.com/basique/mini-oidc/pkg/oidc"
)

// discoveryCacheMaxAge is the Cache-Control max-age for the discovery and
// JWKS documents (1 hour).
const discoveryCacheMaxAge = 3600

// discoveryDocument is the OIDC provider metadata per OpenID Connect
// Discovery 1.0.
type discoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserInfoEndpoint                  string   `json:"userinfo_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	RegistrationEndpoint              string   `json:"registration_endpoint"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
}

// Discovery handles GET /.well-known/openid-configuration. The document is
// fully determined by the issuer URL.
func (h *Handler) Discovery(w http.ResponseWriter, _ *http.Request) {
	doc := discoveryDocument{
		Issuer:                           h.links.Issuer,
		AuthorizationEndpoint:            h.links.Authorize(),
		TokenEndpoint:                    h.links.Token(),
		UserInfoEndpoint:                 h.links.UserInfo(),
		JWKSURI:                          h.links.JWKS(),
		RegistrationEndpoint:             h.links.Register(),
		ResponseTypesSupported:           []string{"code"},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{keys.Algorithm},
		ScopesSupported: []string{
			oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail,
		},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic"},
		ClaimsSupported: []string{
			"sub", "iss", "aud", "exp", "iat",
			"preferred_username", "email", "email_verified",
		},
	}

	setCacheHeaders(w)
	writeJSON(w, http.StatusOK, doc)
}

// JWKS handles GET /api/oidc/jwks: the public keys of every stored signing
// key, so tokens signed before a rotation stay verifiable.
func (h *Handler) JWKS(w http.ResponseWriter, _ *http.Request) {
	setCacheHeaders(w)
	writeJSON(w, http.StatusOK, h.keys.PublicJWKS())
}

func setCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", discoveryCacheMaxAge))
}
