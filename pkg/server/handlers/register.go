// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/basique/mini-oidc/pkg/crypto"
	"github.com/basique/mini-oidc/pkg/entityid"
	"github.com/basique/mini-oidc/pkg/httperr"
	"github.com/basique/mini-oidc/pkg/logger"
	"github.com/basique/mini-oidc/pkg/registration"
	"github.com/basique/mini-oidc/pkg/storage"
)

// maxRegistrationBody bounds the registration request body (64 KiB).
const maxRegistrationBody = 64 * 1024

// RegisterClient handles POST /api/oidc/register, dynamic client
// registration per RFC 7591. The client secret and registration token are
// generated here, returned once in plaintext, and stored only as Argon2id
// hashes.
func (h *Handler) RegisterClient(w http.ResponseWriter, r *http.Request) {
	var req registration.Request
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRegistrationBody))
	if err := decoder.Decode(&req); err != nil {
		httperr.WriteRegistrationError(w, &httperr.RegistrationError{
			Code:        httperr.RegistrationInvalidMetadata,
			Description: "request body is not valid JSON",
		})
		return
	}

	validated, rerr := registration.Validate(&req, h.links.Issuer)
	if rerr != nil {
		httperr.WriteRegistrationError(w, rerr)
		return
	}

	clientID, err := entityid.New()
	if err != nil {
		httperr.Render(w, httperr.New(httperr.KindCrypto, "failed to allocate client id", err))
		return
	}
	secret, err := crypto.NewSecret()
	if err != nil {
		httperr.Render(w, httperr.New(httperr.KindCrypto, "failed to generate client secret", err))
		return
	}
	regToken, err := crypto.NewSecret()
	if err != nil {
		httperr.Render(w, httperr.New(httperr.KindCrypto, "failed to generate registration token", err))
		return
	}

	secretHash, err := crypto.HashPassword(secret)
	if err != nil {
		httperr.Render(w, httperr.New(httperr.KindPasswordHash, "failed to hash client secret", err))
		return
	}
	regTokenHash, err := crypto.HashPassword(regToken)
	if err != nil {
		httperr.Render(w, httperr.New(httperr.KindPasswordHash, "failed to hash registration token", err))
		return
	}

	client := storage.Client{
		ID:                    clientID,
		Name:                  validated.ClientName,
		ApplicationType:       validated.ApplicationType,
		ClientURI:             validated.ClientURI,
		LogoURI:               validated.LogoURI,
		SecretHash:            secretHash,
		RegistrationTokenHash: regTokenHash,
		RedirectURIs:          validated.RedirectURIs,
		Contacts:              validated.Contacts,
	}
	if err := h.store.CreateClient(r.Context(), client); err != nil {
		httperr.Render(w, httperr.New(httperr.KindDatabase, "failed to register client", err))
		return
	}

	logger.Infow("registered client", "client_id", clientID.String(), "client_name", validated.ClientName)

	writeJSON(w, http.StatusCreated, registration.Response{
		ClientID:                clientID.String(),
		ClientSecret:            secret,
		RegistrationAccessToken: regToken,
		RegistrationClientURI:   h.links.ClientConfig(clientID.String()),
		ClientName:              validated.ClientName,
		ApplicationType:         validated.ApplicationType,
		RedirectURIs:            validated.RedirectURIs,
		LogoURI:                 validated.LogoURI,
		Contacts:                validated.Contacts,
	})
}
