// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package oidc

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IDTokenTTL is the validity window of issued ID tokens.
const IDTokenTTL = 30 * time.Minute

// IDTokenClaims is the RS256-signed ID token payload: the registered JWT
// claims plus the OIDC additions and the scope-filtered user claims.
type IDTokenClaims struct {
	jwt.RegisteredClaims

	Nonce             string `json:"nonce,omitempty"`
	CHash             string `json:"c_hash,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Email             string `json:"email,omitempty"`
	EmailVerified     *bool  `json:"email_verified,omitempty"`
}

// NewIDTokenClaims assembles the claim set for a token issued to clientID,
// binding the redeemed authorization code into c_hash.
func NewIDTokenClaims(issuer, clientID, nonce, code string, user UserClaims, now time.Time) IDTokenClaims {
	return IDTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.Sub,
			Audience:  jwt.ClaimStrings{clientID},
			ExpiresAt: jwt.NewNumericDate(now.Add(IDTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Nonce:             nonce,
		CHash:             CodeHash(code),
		PreferredUsername: user.PreferredUsername,
		Email:             user.Email,
		EmailVerified:     user.EmailVerified,
	}
}

// SignIDToken signs the claims with RS256, setting the kid header so relying
// parties can select the right key from the JWKS.
func SignIDToken(claims IDTokenClaims, kid string, key *rsa.PrivateKey) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing id token: %w", err)
	}
	return signed, nil
}

// CodeHash computes the c_hash claim per OIDC Core Section 3.3.2.11 for
// RS256: the base64url encoding of the left half of SHA-256(code).
func CodeHash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return base64.RawURLEncoding.EncodeToString(sum[:len(sum)/2])
}
