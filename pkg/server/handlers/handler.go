// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

// Package handlers implements the HTTP handlers of the provider: the OIDC
// protocol endpoints, dynamic client registration, and the interactive
// login/consent surface.
package handlers

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/basique/mini-oidc/pkg/keys"
	"github.com/basique/mini-oidc/pkg/logger"
	"github.com/basique/mini-oidc/pkg/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler carries the shared dependencies of every endpoint.
type Handler struct {
	store     storage.Store
	keys      *keys.Set
	links     Links
	templates *template.Template
}

// New builds the handler set. The issuer must already have its trailing
// slash stripped.
func New(store storage.Store, keySet *keys.Set, issuer string) *Handler {
	return &Handler{
		store:     store,
		keys:      keySet,
		links:     Links{Issuer: issuer},
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

// Links exposes the derived URL set, used by the router for login redirects.
func (h *Handler) Links() Links {
	return h.links
}

// render writes an HTML template response. Template failures after the
// header is written can only be logged.
func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		logger.Errorw("template execution failed", "template", name, "error", err.Error())
	}
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		logger.Errorw("failed to encode response", "error", err.Error())
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
