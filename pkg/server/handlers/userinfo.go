// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"strings"

	"github.com/basique/mini-oidc/pkg/httperr"
	"github.com/basique/mini-oidc/pkg/logger"
	"github.com/basique/mini-oidc/pkg/oidc"
)

// UserInfo handles GET /api/oidc/userinfo: resolve the bearer token and
// return the claims granted at authorization time. Any token problem is a
// 401 with a Bearer challenge; the endpoint never distinguishes missing,
// unknown, and expired tokens.
func (h *Handler) UserInfo(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		httperr.WriteBearerChallenge(w)
		return
	}

	access, err := h.store.GetAccessToken(r.Context(), token)
	if err != nil {
		httperr.WriteBearerChallenge(w)
		return
	}

	user, err := h.store.GetUser(r.Context(), access.UserID)
	if err != nil {
		logger.Errorw("failed to load user for userinfo", "error", err.Error())
		httperr.WriteBearerChallenge(w)
		return
	}

	writeJSON(w, http.StatusOK, oidc.GatherClaims(user, access.Body.Scope))
}
