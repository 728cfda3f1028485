// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "csrf",
			err:        New(KindCSRF, "csrf token mismatch", nil),
			wantStatus: http.StatusBadRequest,
			wantType:   "https://basique.top/mini-oidc/error/csrf",
		},
		{
			name:       "database",
			err:        New(KindDatabase, "query failed", errors.New("disk I/O error")),
			wantStatus: http.StatusInternalServerError,
			wantType:   "https://basique.top/mini-oidc/error/database",
		},
		{
			name:       "not found",
			err:        New(KindNotFound, "unknown client", nil),
			wantStatus: http.StatusNotFound,
			wantType:   "https://basique.top/mini-oidc/error/not_found",
		},
		{
			name:       "auth request",
			err:        New(KindAuthRequest, "client_id is required", nil),
			wantStatus: http.StatusBadRequest,
			wantType:   "https://basique.top/mini-oidc/error/auth_request",
		},
		{
			name:       "unclassified error falls back to 500",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "https://basique.top/mini-oidc/error/database",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			Render(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			var body struct {
				Type   string `json:"type"`
				Status int    `json:"status"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantType, body.Type)
			assert.Equal(t, tc.wantStatus, body.Status)
		})
	}
}

func TestRender_WrappedError(t *testing.T) {
	t.Parallel()

	cause := New(KindNotFound, "unknown client", nil)
	rec := httptest.NewRecorder()
	Render(rec, fmt.Errorf("authorize: %w", cause))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteTokenError(t *testing.T) {
	t.Parallel()

	t.Run("invalid_client gets 400 without a challenge", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		WriteTokenError(rec, &TokenError{Code: TokenInvalidClient})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, rec.Header().Get("WWW-Authenticate"))

		var body TokenError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, TokenInvalidClient, body.Code)
	})

	t.Run("invalid_grant gets 400", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		WriteTokenError(rec, &TokenError{Code: TokenInvalidGrant, Description: "code already redeemed"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, rec.Header().Get("WWW-Authenticate"))

		var body TokenError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, TokenInvalidGrant, body.Code)
		assert.Equal(t, "code already redeemed", body.Description)
	})
}

func TestWriteBearerChallenge(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteBearerChallenge(rec)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Bearer error="invalid_token"`, rec.Header().Get("WWW-Authenticate"))

	var body TokenError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_token", body.Code)
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("no such row")
	err := New(KindDatabase, "lookup failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "lookup failed")
	assert.Contains(t, err.Error(), "no such row")
}
