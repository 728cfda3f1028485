// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package oidc

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeHash(t *testing.T) {
	t.Parallel()

	code := "0123456789abcdef"
	sum := sha256.Sum256([]byte(code))
	want := base64.RawURLEncoding.EncodeToString(sum[:16])

	assert.Equal(t, want, CodeHash(code))
	assert.NotEqual(t, CodeHash(code), CodeHash(code+"x"))
}

func TestSignIDToken(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	user := UserClaims{Sub: "AbCdEfGh", PreferredUsername: "marcela"}
	claims := NewIDTokenClaims("https://idp.test", "00000client", "n-0S6", "thecode", user, now)

	signed, err := SignIDToken(claims, "0000Akey", key)
	require.NoError(t, err)

	var parsed IDTokenClaims
	token, err := jwt.ParseWithClaims(signed, &parsed,
		func(t *jwt.Token) (any, error) { return &key.PublicKey, nil },
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	require.NoError(t, err)
	require.True(t, token.Valid)

	assert.Equal(t, "0000Akey", token.Header["kid"])
	assert.Equal(t, "https://idp.test", parsed.Issuer)
	assert.Equal(t, "AbCdEfGh", parsed.Subject)
	assert.Equal(t, jwt.ClaimStrings{"00000client"}, parsed.Audience)
	assert.Equal(t, "n-0S6", parsed.Nonce)
	assert.Equal(t, CodeHash("thecode"), parsed.CHash)
	assert.Equal(t, "marcela", parsed.PreferredUsername)
	assert.Equal(t, now.Add(IDTokenTTL).Unix(), parsed.ExpiresAt.Unix())
	assert.Equal(t, now.Unix(), parsed.IssuedAt.Unix())
}
