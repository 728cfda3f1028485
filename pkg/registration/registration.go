// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

// Package registration implements OAuth 2.0 Dynamic Client Registration per
// RFC 7591: the request/response wire types and metadata validation with
// defaults applied. The registration transaction itself lives in the store.
package registration

import (
	"fmt"
	"net/url"

	"github.com/basique/mini-oidc/pkg/httperr"
)

// Validation limits to keep oversized registration requests out of the store.
const (
	// MaxRedirectURICount is the maximum number of redirect URIs per client.
	MaxRedirectURICount = 10

	// MaxClientNameLength is the maximum allowed length for a client name.
	MaxClientNameLength = 256
)

// Application types accepted for registered clients.
const (
	ApplicationTypeWeb    = "web"
	ApplicationTypeNative = "native"
)

// Request is an RFC 7591 client registration request.
type Request struct {
	// RedirectURIs is the exact-match whitelist for the client. Required,
	// at least one entry.
	RedirectURIs []string `json:"redirect_uris"`

	// ClientName is a human-readable name for the client. Required.
	ClientName string `json:"client_name"`

	// ApplicationType is "web" or "native". Defaults to "web".
	ApplicationType string `json:"application_type,omitempty"`

	// ClientURI is the client's home page.
	ClientURI string `json:"client_uri,omitempty"`

	// LogoURI points at the client's icon, shown on the consent page.
	// Defaults to the provider's stock icon.
	LogoURI string `json:"logo_uri,omitempty"`

	// Contacts is a list of contact email addresses.
	Contacts []string `json:"contacts,omitempty"`
}

// Response is an RFC 7591 registration response. ClientSecret and
// RegistrationAccessToken are returned in plaintext exactly once; only
// Argon2id hashes are kept at rest.
type Response struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret"`
	RegistrationAccessToken string   `json:"registration_access_token"`
	RegistrationClientURI   string   `json:"registration_client_uri"`
	ClientName              string   `json:"client_name"`
	ApplicationType         string   `json:"application_type"`
	RedirectURIs            []string `json:"redirect_uris"`
	LogoURI                 string   `json:"logo_uri"`
	Contacts                []string `json:"contacts,omitempty"`
}

// Validate checks a registration request against RFC 7591 and the provider's
// policy, returning a copy with defaults applied. The issuer parameter
// supplies the default logo URI.
func Validate(req *Request, issuer string) (*Request, *httperr.RegistrationError) {
	if req.ClientName == "" {
		return nil, &httperr.RegistrationError{
			Code:        httperr.RegistrationInvalidMetadata,
			Description: "client_name is required",
		}
	}
	if len(req.ClientName) > MaxClientNameLength {
		return nil, &httperr.RegistrationError{
			Code:        httperr.RegistrationInvalidMetadata,
			Description: fmt.Sprintf("client_name too long (maximum %d characters)", MaxClientNameLength),
		}
	}

	if len(req.RedirectURIs) == 0 {
		return nil, &httperr.RegistrationError{
			Code:        httperr.RegistrationInvalidRedirectURI,
			Description: "redirect_uris is required",
		}
	}
	if len(req.RedirectURIs) > MaxRedirectURICount {
		return nil, &httperr.RegistrationError{
			Code:        httperr.RegistrationInvalidRedirectURI,
			Description: fmt.Sprintf("too many redirect_uris (maximum %d)", MaxRedirectURICount),
		}
	}
	for _, uri := range req.RedirectURIs {
		if err := validateRedirectURI(uri); err != nil {
			return nil, err
		}
	}

	appType := req.ApplicationType
	if appType == "" {
		appType = ApplicationTypeWeb
	}
	if appType != ApplicationTypeWeb && appType != ApplicationTypeNative {
		return nil, &httperr.RegistrationError{
			Code:        httperr.RegistrationInvalidMetadata,
			Description: "application_type must be 'web' or 'native'",
		}
	}

	logoURI := req.LogoURI
	if logoURI == "" {
		logoURI = issuer + "/static/default_icon.png"
	}

	return &Request{
		RedirectURIs:    req.RedirectURIs,
		ClientName:      req.ClientName,
		ApplicationType: appType,
		ClientURI:       req.ClientURI,
		LogoURI:         logoURI,
		Contacts:        req.Contacts,
	}, nil
}

// validateRedirectURI requires an absolute URI with a scheme and host.
// Beyond that the URI is stored verbatim: matching later is byte-equality,
// so normalization here would only create mismatches.
func validateRedirectURI(uri string) *httperr.RegistrationError {
	parsed, err := url.Parse(uri)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return &httperr.RegistrationError{
			Code:        httperr.RegistrationInvalidRedirectURI,
			Description: "redirect_uri must be an absolute URL",
		}
	}
	if parsed.Fragment != "" {
		return &httperr.RegistrationError{
			Code:        httperr.RegistrationInvalidRedirectURI,
			Description: "redirect_uri must not contain a fragment",
		}
	}
	return nil
}
