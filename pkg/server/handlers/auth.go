// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/basique/mini-oidc/pkg/crypto"
	"github.com/basique/mini-oidc/pkg/entityid"
	"github.com/basique/mini-oidc/pkg/httperr"
	"github.com/basique/mini-oidc/pkg/server/middleware"
	"github.com/basique/mini-oidc/pkg/storage"
)

// authPageData feeds the login and register templates.
type authPageData struct {
	Links       Links
	CSRF        string
	RedirectURI string
	Username    string
	Email       string
	Error       string
}

func (h *Handler) authPageData(r *http.Request) authPageData {
	redirect := r.FormValue("redirect_uri")
	if redirect == "" {
		redirect = h.links.Index()
	}
	return authPageData{
		Links:       h.links,
		CSRF:        middleware.CSRFNonce(r.Context()),
		RedirectURI: redirect,
		Username:    r.FormValue("username"),
		Email:       r.FormValue("email"),
	}
}

// LoginPage handles GET /login.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", h.authPageData(r))
}

// Login handles POST /login: verify CSRF, check the password, mint a
// session, and bounce the browser back where it came from.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := middleware.VerifyCSRF(r); err != nil {
		httperr.Render(w, err)
		return
	}

	data := h.authPageData(r)

	user, err := h.store.GetUserByName(r.Context(), r.FormValue("username"))
	if errors.Is(err, storage.ErrNotFound) {
		data.Error = "No such user"
		h.render(w, "login.html", data)
		return
	}
	if err != nil {
		httperr.Render(w, httperr.New(httperr.KindDatabase, "failed to look up user", err))
		return
	}

	if err := crypto.VerifyPassword(r.FormValue("password"), user.PasswordHash); err != nil {
		if errors.Is(err, crypto.ErrMismatch) {
			data.Error = "Wrong password"
			h.render(w, "login.html", data)
			return
		}
		httperr.Render(w, httperr.New(httperr.KindPasswordHash, "failed to verify password", err))
		return
	}

	h.startSession(w, r, user.ID, data.RedirectURI)
}

// RegisterPage handles GET /register.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "register.html", h.authPageData(r))
}

// Register handles POST /register: verify CSRF, hash the password, create
// the user, and start a session immediately.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := middleware.VerifyCSRF(r); err != nil {
		httperr.Render(w, err)
		return
	}

	data := h.authPageData(r)

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		data.Error = "Username and password are required"
		h.render(w, "register.html", data)
		return
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		httperr.Render(w, httperr.New(httperr.KindPasswordHash, "failed to hash password", err))
		return
	}

	id, err := entityid.New()
	if err != nil {
		httperr.Render(w, httperr.New(httperr.KindCrypto, "failed to allocate user id", err))
		return
	}

	user := storage.User{
		ID:           id,
		Username:     username,
		Email:        r.FormValue("email"),
		PasswordHash: hash,
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			data.Error = "Username taken"
			h.render(w, "register.html", data)
			return
		}
		httperr.Render(w, httperr.New(httperr.KindDatabase, "failed to create user", err))
		return
	}

	h.startSession(w, r, user.ID, data.RedirectURI)
}

// Logout handles POST /logout: verify CSRF, drop the session row, and
// overwrite the cookie with an epoch expiry.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := middleware.VerifyCSRF(r); err != nil {
		httperr.Render(w, err)
		return
	}

	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		if err := h.store.DeleteSession(r.Context(), sess.SID); err != nil {
			httperr.Render(w, httperr.New(httperr.KindDatabase, "failed to delete session", err))
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		Expires:  time.Unix(0, 0),
	})

	redirect := r.FormValue("redirect_uri")
	if redirect == "" {
		redirect = h.links.Index()
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// startSession mints a session row, sets the cookie, and 303s to redirect.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, userID entityid.EntityID, redirect string) {
	sess, err := h.store.CreateSession(r.Context(), userID, middleware.PeerIP(r))
	if err != nil {
		httperr.Render(w, httperr.New(httperr.KindDatabase, "failed to create session", err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.SID,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		Expires:  sess.Expires,
	})

	http.Redirect(w, r, redirect, http.StatusSeeOther)
}
