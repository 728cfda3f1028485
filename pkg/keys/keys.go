// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

// Package keys manages the provider's RSA signing keys: first-boot
// generation, PEM persistence, the in-memory cache used for signing, and the
// public JWK Set served to relying parties.
package keys

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"sort"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/basique/mini-oidc/pkg/entityid"
	"github.com/basique/mini-oidc/pkg/logger"
	"github.com/basique/mini-oidc/pkg/storage"
)

// Algorithm is the only signing algorithm the provider uses.
const Algorithm = "RS256"

// keyBits is the RSA modulus size for generated keys.
const keyBits = 2048

// pemType is the PEM block type for keys at rest (PKCS#1).
const pemType = "RSA PRIVATE KEY"

// Set is the in-memory signing-key cache, loaded once at boot and retained
// for the server lifetime. Rotation would require a re-Load plus cache
// invalidation, which is not implemented.
type Set struct {
	keys   map[entityid.EntityID]*rsa.PrivateKey
	active entityid.EntityID
}

// Bootstrap ensures at least one signing key exists, generating a 2048-bit
// RSA key on first boot. It runs before the listener starts so the CPU-bound
// generation never shares a thread with request handling.
func Bootstrap(ctx context.Context, store storage.SigningKeyStore) error {
	existing, err := store.ListSigningKeys(ctx)
	if err != nil {
		return fmt.Errorf("listing signing keys: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	id, err := entityid.New()
	if err != nil {
		return fmt.Errorf("allocating key id: %w", err)
	}

	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return fmt.Errorf("generating RSA key: %w", err)
	}

	if err := store.InsertSigningKey(ctx, storage.SigningKey{ID: id, PEM: EncodePEM(key)}); err != nil {
		return fmt.Errorf("storing signing key: %w", err)
	}

	logger.Infow("generated initial signing key", "kid", id.String())
	return nil
}

// Load reads every stored key into a Set. At least one key must exist;
// Bootstrap guarantees that on the boot path.
func Load(ctx context.Context, store storage.SigningKeyStore) (*Set, error) {
	rows, err := store.ListSigningKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing signing keys: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no signing keys in storage")
	}

	s := &Set{keys: make(map[entityid.EntityID]*rsa.PrivateKey, len(rows))}
	for _, row := range rows {
		key, err := DecodePEM(row.PEM)
		if err != nil {
			return nil, fmt.Errorf("decoding key %s: %w", row.ID, err)
		}
		s.keys[row.ID] = key
	}

	// The active key is the lowest EntityID: deterministic across restarts
	// and stable under rotation, where newer keys get verified via the JWKS
	// until they become active.
	ids := s.ids()
	s.active = ids[0]

	return s, nil
}

// Active returns the key used to sign new ID tokens and its kid.
func (s *Set) Active() (entityid.EntityID, *rsa.PrivateKey) {
	return s.active, s.keys[s.active]
}

// Get returns the private key for kid, or nil when unknown.
func (s *Set) Get(kid entityid.EntityID) *rsa.PrivateKey {
	return s.keys[kid]
}

// PublicJWKS assembles the public JWK Set over every cached key, so relying
// parties can verify tokens signed with any of them.
func (s *Set) PublicJWKS() jose.JSONWebKeySet {
	var set jose.JSONWebKeySet
	for _, id := range s.ids() {
		set.Keys = append(set.Keys, jose.JSONWebKey{
			Key:       s.keys[id].Public(),
			KeyID:     id.String(),
			Algorithm: Algorithm,
			Use:       "sig",
		})
	}
	return set
}

// ids returns the cached key ids in ascending order.
func (s *Set) ids() []entityid.EntityID {
	ids := make([]entityid.EntityID, 0, len(s.keys))
	for id := range s.keys {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// EncodePEM renders a private key as a PKCS#1 PEM block for storage.
func EncodePEM(key *rsa.PrivateKey) string {
	block := &pem.Block{Type: pemType, Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return string(pem.EncodeToMemory(block))
}

// DecodePEM parses a stored PKCS#1 PEM block back into a private key.
func DecodePEM(data string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil || block.Type != pemType {
		return nil, fmt.Errorf("no %s PEM block found", pemType)
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing RSA private key: %w", err)
	}
	return key, nil
}
