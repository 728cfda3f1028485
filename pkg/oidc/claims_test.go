// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package oidc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basique/mini-oidc/pkg/entityid"
	"github.com/basique/mini-oidc/pkg/scope"
	"github.com/basique/mini-oidc/pkg/storage"
)

func TestGatherClaims(t *testing.T) {
	t.Parallel()

	uid, err := entityid.Parse("AbCdEfGh")
	require.NoError(t, err)

	withEmail := storage.User{ID: uid, Username: "marcela", Email: "marcela@example.com"}
	noEmail := storage.User{ID: uid, Username: "marcela"}

	tests := []struct {
		name    string
		user    storage.User
		granted scope.Scope
		want    UserClaims
	}{
		{
			name:    "openid only",
			user:    withEmail,
			granted: scope.Scope{"openid"},
			want:    UserClaims{Sub: "AbCdEfGh"},
		},
		{
			name:    "profile releases username",
			user:    withEmail,
			granted: scope.Scope{"openid", "profile"},
			want:    UserClaims{Sub: "AbCdEfGh", PreferredUsername: "marcela"},
		},
		{
			name:    "email releases email and verified",
			user:    withEmail,
			granted: scope.Scope{"openid", "email"},
			want:    UserClaims{Sub: "AbCdEfGh", Email: "marcela@example.com", EmailVerified: boolPtr(true)},
		},
		{
			name:    "email scope without email on file",
			user:    noEmail,
			granted: scope.Scope{"openid", "email"},
			want:    UserClaims{Sub: "AbCdEfGh"},
		},
		{
			name:    "all scopes",
			user:    withEmail,
			granted: scope.Scope{"openid", "profile", "email"},
			want: UserClaims{
				Sub:               "AbCdEfGh",
				PreferredUsername: "marcela",
				Email:             "marcela@example.com",
				EmailVerified:     boolPtr(true),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, GatherClaims(tc.user, tc.granted))
		})
	}
}

func boolPtr(b bool) *bool { return &b }
