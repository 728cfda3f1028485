// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/basique/mini-oidc/pkg/entityid"
	"github.com/basique/mini-oidc/pkg/logger"
	"github.com/basique/mini-oidc/pkg/storage"
)

// SessionCookie is the name of the browser session cookie.
const SessionCookie = "session_id"

// AuthSession is the authenticated end-user attached to a request.
type AuthSession struct {
	SID      string
	UserID   entityid.EntityID
	Username string
	LastIP   string
	Expires  time.Time
}

type sessionKey struct{}

// Sessions resolves the session cookie against the store on every request.
// On a hit it slides the expiry forward, records the observed peer IP, and
// attaches an AuthSession to the context. On a miss the request proceeds
// unauthenticated; handlers that need a session use RequireSession.
func Sessions(store storage.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(SessionCookie)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := store.GetSession(r.Context(), c.Value)
			if err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					logger.Errorw("session lookup failed", "error", err.Error())
				}
				next.ServeHTTP(w, r)
				return
			}

			peer := PeerIP(r)
			newExpires := time.Now().Add(storage.SessionTTL)
			// Sliding refresh is best-effort: a failed write must not drop
			// the caller's request.
			if err := store.RefreshSession(r.Context(), sess.SID, peer, newExpires); err != nil {
				logger.Warnw("session refresh failed", "error", err.Error())
			}

			auth := AuthSession{
				SID:      sess.SID,
				UserID:   sess.UserID,
				Username: sess.Username,
				LastIP:   peer,
				Expires:  newExpires,
			}
			ctx := context.WithValue(r.Context(), sessionKey{}, auth)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the AuthSession attached by Sessions.
func SessionFromContext(ctx context.Context) (AuthSession, bool) {
	auth, ok := ctx.Value(sessionKey{}).(AuthSession)
	return auth, ok
}

// RequireSession guards handlers that need an authenticated user, sending
// everyone else to the login page with the original URL as the return target.
func RequireSession(loginFrom func(next string) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := SessionFromContext(r.Context()); !ok {
				http.Redirect(w, r, loginFrom(r.URL.String()), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PeerIP extracts the remote address without the port. RealIP middleware has
// already rewritten RemoteAddr when a proxy header is present.
func PeerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
