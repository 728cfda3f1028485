// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"errors"
	"net/http"

	"github.com/basique/mini-oidc/pkg/httperr"
	"github.com/basique/mini-oidc/pkg/oidc"
	"github.com/basique/mini-oidc/pkg/scope"
	"github.com/basique/mini-oidc/pkg/server/middleware"
	"github.com/basique/mini-oidc/pkg/storage"
)

// consentData feeds the consent page template.
type consentData struct {
	ClientName string
	LogoURI    string
	Scopes     scope.Scope
	FormAction string
	CSRF       string
}

// Authorize handles GET /api/oauth2/auth: validate the request, check the
// redirect URI against the whitelist, and render the consent page. Stage-one
// failures and whitelist misses render locally (400/404); only after the
// whitelist passes may errors travel to the client as a redirect.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	head, err := oidc.ParseHead(r.URL.Query())
	if err != nil {
		httperr.Render(w, httperr.New(httperr.KindAuthRequest, err.Error(), err))
		return
	}

	client, err := h.store.GetClientWithRedirect(r.Context(), head.ClientID, head.RedirectURI)
	if errors.Is(err, storage.ErrNotFound) {
		// An unverified redirect URI must not receive query parameters,
		// so this is a local 404, never a redirect.
		httperr.Render(w, httperr.New(httperr.KindNotFound, "unknown client or redirect URI", err))
		return
	}
	if err != nil {
		httperr.Render(w, httperr.New(httperr.KindDatabase, "failed to look up client", err))
		return
	}

	req, rerr := head.Finish(r.URL.Query())
	if rerr != nil {
		http.Redirect(w, r, rerr.Location(head.RedirectURI, head.State), http.StatusFound)
		return
	}

	h.render(w, "consent.html", consentData{
		ClientName: client.Name,
		LogoURI:    client.LogoURI,
		Scopes:     req.Scope,
		FormAction: h.links.Authorize() + "?" + r.URL.RawQuery,
		CSRF:       middleware.CSRFNonce(r.Context()),
	})
}

// AuthorizeDecision handles POST /api/oauth2/auth: verify CSRF, re-validate
// the redirect URI, and either mint an authorization code or report the
// denial to the client.
func (h *Handler) AuthorizeDecision(w http.ResponseWriter, r *http.Request) {
	if err := middleware.VerifyCSRF(r); err != nil {
		httperr.Render(w, err)
		return
	}

	head, err := oidc.ParseHead(r.URL.Query())
	if err != nil {
		httperr.Render(w, httperr.New(httperr.KindAuthRequest, err.Error(), err))
		return
	}

	// Re-validate against the whitelist even though GET already did: the
	// POST carries its own query string and must not be trusted.
	if _, err := h.store.GetClientWithRedirect(r.Context(), head.ClientID, head.RedirectURI); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httperr.Render(w, httperr.New(httperr.KindNotFound, "unknown client or redirect URI", err))
			return
		}
		httperr.Render(w, httperr.New(httperr.KindDatabase, "failed to look up client", err))
		return
	}

	req, rerr := head.Finish(r.URL.Query())
	if rerr != nil {
		http.Redirect(w, r, rerr.Location(head.RedirectURI, head.State), http.StatusSeeOther)
		return
	}

	if r.FormValue("action") == "deny" {
		denied := &oidc.RedirectError{Code: oidc.ErrorAccessDenied, Description: "the user denied the request"}
		http.Redirect(w, r, denied.Location(head.RedirectURI, head.State), http.StatusSeeOther)
		return
	}

	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		// RequireSession guards this route; reaching here without a
		// session means the router is miswired.
		httperr.Render(w, httperr.New(httperr.KindDatabase, "no session on consent submission", nil))
		return
	}

	code, err := h.store.CreateAuthorizationCode(r.Context(), sess.UserID, head.ClientID, storage.CodeBody{
		Scope:       req.Scope,
		State:       head.State,
		Nonce:       req.Nonce,
		RedirectURI: head.RedirectURI,
	})
	if err != nil {
		httperr.Render(w, httperr.New(httperr.KindDatabase, "failed to create authorization code", err))
		return
	}

	http.Redirect(w, r, oidc.SuccessRedirect(head.RedirectURI, code.UID, head.State), http.StatusSeeOther)
}
