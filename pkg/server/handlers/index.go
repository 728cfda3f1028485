// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/basique/mini-oidc/pkg/server/middleware"
	"github.com/basique/mini-oidc/pkg/versions"
)

// indexData feeds the landing page template.
type indexData struct {
	Links    Links
	CSRF     string
	Username string
}

// Index handles GET /, the HTML landing page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Links: h.links,
		CSRF:  middleware.CSRFNonce(r.Context()),
	}
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		data.Username = sess.Username
	}
	h.render(w, "index.html", data)
}

// APIIndex handles GET /api/, a small JSON directory note.
func (h *Handler) APIIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "mini-oidc",
		"version": versions.GetVersionInfo().Version,
		"note":    "This is the API directory.",
	})
}
