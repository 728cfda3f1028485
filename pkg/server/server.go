// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

// Package server assembles the HTTP surface of the provider: routing,
// middleware, background sweepers, and the server lifecycle.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/basique/mini-oidc/pkg/keys"
	"github.com/basique/mini-oidc/pkg/logger"
	"github.com/basique/mini-oidc/pkg/server/handlers"
	"github.com/basique/mini-oidc/pkg/server/middleware"
	"github.com/basique/mini-oidc/pkg/storage"
)

//go:embed static/*
var staticFS embed.FS

// readHeaderTimeout bounds how long a client may take to send headers.
const readHeaderTimeout = 10 * time.Second

// Config is the immutable server configuration.
type Config struct {
	// BindAddr is the host:port the listener binds to.
	BindAddr string
	// Issuer is the canonical origin of the provider, trailing slash
	// already stripped.
	Issuer string
}

// Server ties the handler set, the router, and the credential sweepers to
// one lifecycle.
type Server struct {
	cfg     Config
	store   storage.Store
	handler *handlers.Handler
}

// New builds a server around an opened store and loaded key set.
func New(cfg Config, store storage.Store, keySet *keys.Set) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		handler: handlers.New(store, keySet, cfg.Issuer),
	}
}

// Router builds the chi router with the full route table.
func (s *Server) Router() chi.Router {
	h := s.handler
	links := h.Links()

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Metrics)
	r.Use(middleware.Sessions(s.store))

	// Machine-facing endpoints: no CSRF cookie, no session requirement.
	r.Get("/.well-known/openid-configuration", h.Discovery)
	r.Get("/api/oidc/jwks", h.JWKS)
	r.Post("/api/oidc/register", h.RegisterClient)
	r.Post("/api/oauth2/token", h.Token)
	r.Get("/api/oidc/userinfo", h.UserInfo)
	r.Get("/api/", h.APIIndex)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The embed is compiled in; a missing subtree is a programming error.
		panic(err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// Interactive surface: every route gets a CSRF nonce.
	r.Group(func(r chi.Router) {
		r.Use(middleware.CSRF)

		r.Get("/", h.Index)
		r.Get("/login", h.LoginPage)
		r.Post("/login", h.Login)
		r.Get("/register", h.RegisterPage)
		r.Post("/register", h.Register)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(links.LoginFrom))
			r.Get("/api/oauth2/auth", h.Authorize)
			r.Post("/api/oauth2/auth", h.AuthorizeDecision)
		})
	})

	return r
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully. The
// three credential sweepers share the server's lifetime through one
// errgroup.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.cfg.BindAddr, err)
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return storage.NewSweeper("sessions", storage.SweepInterval,
			s.store.DeleteExpiredSessions).Run(ctx)
	})
	group.Go(func() error {
		return storage.NewSweeper("authorization_codes", storage.SweepInterval,
			s.store.DeleteExpiredAuthorizationCodes).Run(ctx)
	})
	group.Go(func() error {
		return storage.NewSweeper("access_tokens", storage.SweepInterval,
			s.store.DeleteExpiredAccessTokens).Run(ctx)
	})

	group.Go(func() error {
		logger.Infow("listening", "addr", listener.Addr().String(), "issuer", s.cfg.Issuer)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
