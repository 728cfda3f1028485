// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

// Package crypto provides the credential primitives shared across the
// provider: opaque secret generation, constant-time comparison, and
// Argon2id password hashing.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
)

// SecretLength is the length of every opaque credential issued by the
// provider: session ids, authorization codes, access tokens, client secrets,
// registration tokens, and CSRF nonces.
const SecretLength = 64

const secretAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// NewSecret returns a 64-character alphanumeric token drawn uniformly from
// crypto/rand.
func NewSecret() (string, error) {
	out := make([]byte, 0, SecretLength)
	buf := make([]byte, 2*SecretLength)

	for len(out) < SecretLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			// Reject bytes >= 248 (the largest multiple of 62 below 256)
			// so the modulo does not bias the distribution.
			if b >= 248 {
				continue
			}
			out = append(out, secretAlphabet[int(b)%62])
			if len(out) == SecretLength {
				break
			}
		}
	}

	return string(out), nil
}

// SecretEqual compares two credentials in constant time.
func SecretEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
