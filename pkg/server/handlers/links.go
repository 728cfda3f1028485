// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import "net/url"

// Links derives every absolute URL the provider hands out from the issuer.
// The issuer has its trailing slash stripped at config load, so all methods
// can concatenate paths directly.
type Links struct {
	Issuer string
}

// Index is the HTML landing page.
func (l Links) Index() string { return l.Issuer + "/" }

// Authorize is the authorization endpoint.
func (l Links) Authorize() string { return l.Issuer + "/api/oauth2/auth" }

// Token is the token endpoint.
func (l Links) Token() string { return l.Issuer + "/api/oauth2/token" }

// UserInfo is the UserInfo endpoint.
func (l Links) UserInfo() string { return l.Issuer + "/api/oidc/userinfo" }

// JWKS is the JWK Set endpoint.
func (l Links) JWKS() string { return l.Issuer + "/api/oidc/jwks" }

// Register is the dynamic client registration endpoint.
func (l Links) Register() string { return l.Issuer + "/api/oidc/register" }

// Login is the interactive login page.
func (l Links) Login() string { return l.Issuer + "/login" }

// RegisterPage is the interactive account registration page.
func (l Links) RegisterPage() string { return l.Issuer + "/register" }

// Logout is the logout form target.
func (l Links) Logout() string { return l.Issuer + "/logout" }

// ClientConfig is the per-client registration URI returned by DCR.
func (l Links) ClientConfig(clientID string) string {
	return l.Issuer + "/api/oidc/config/" + clientID
}

// DefaultIcon is the fallback client logo.
func (l Links) DefaultIcon() string { return l.Issuer + "/static/default_icon.png" }

// LoginFrom builds the login redirect that returns the browser to next
// after authentication.
func (l Links) LoginFrom(next string) string {
	return l.Login() + "?redirect_uri=" + url.QueryEscape(next)
}
