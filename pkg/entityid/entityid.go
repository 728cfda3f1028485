// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

// Package entityid implements the public identifier format shared by users,
// clients, and signing keys: a uint64 sampled uniformly from [62^7, 62^8),
// rendered as exactly eight base-62 digits (0-9, A-Z, a-z). The lower bound
// guarantees the rendering never has a leading zero, so the textual form is
// unambiguous and fixed-width.
package entityid

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// EntityID is a public identifier in [Min, Max).
type EntityID uint64

const (
	// Min is the smallest valid EntityID (62^7).
	Min EntityID = 3521614606208
	// Max is the exclusive upper bound of the EntityID range (62^8).
	Max EntityID = 218340105584896

	// Length is the size of the textual rendering.
	Length = 8
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Parse errors.
var (
	ErrWrongLength  = errors.New("entity id must be exactly 8 characters")
	ErrInvalidDigit = errors.New("entity id contains a character outside 0-9A-Za-z")
	ErrOutOfBounds  = errors.New("entity id outside the valid range")
)

// span is the size of the sampling interval, Max - Min.
var span = new(big.Int).SetUint64(uint64(Max - Min))

// New returns a fresh EntityID sampled uniformly from [Min, Max) using
// crypto/rand.
func New() (EntityID, error) {
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, fmt.Errorf("sampling entity id: %w", err)
	}
	return Min + EntityID(n.Uint64()), nil
}

// Parse decodes an 8-character base-62 string into an EntityID.
func Parse(s string) (EntityID, error) {
	if len(s) != Length {
		return 0, ErrWrongLength
	}

	var v uint64
	for i := 0; i < Length; i++ {
		d, ok := digit(s[i])
		if !ok {
			return 0, ErrInvalidDigit
		}
		v = v*62 + d
	}

	// Eight digits cannot exceed 62^8 - 1, so only the lower bound needs
	// checking: anything below Min would have a leading-zero rendering.
	if EntityID(v) < Min {
		return 0, ErrOutOfBounds
	}
	return EntityID(v), nil
}

// FromInt64 converts a stored column value back into an EntityID,
// validating the range.
func FromInt64(v int64) (EntityID, error) {
	if v < 0 || EntityID(v) < Min || EntityID(v) >= Max {
		return 0, ErrOutOfBounds
	}
	return EntityID(v), nil
}

// Int64 returns the numeric value for storage. The range fits well inside
// int64 (62^8 < 2^48).
func (id EntityID) Int64() int64 {
	return int64(id)
}

// String renders the id as eight base-62 digits, most significant first.
func (id EntityID) String() string {
	var buf [Length]byte
	v := uint64(id)
	for i := Length - 1; i >= 0; i-- {
		buf[i] = alphabet[v%62]
		v /= 62
	}
	return string(buf[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id EntityID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *EntityID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func digit(c byte) (uint64, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint64(c - '0'), true
	case c >= 'A' && c <= 'Z':
		return uint64(c-'A') + 10, true
	case c >= 'a' && c <= 'z':
		return uint64(c-'a') + 36, true
	}
	return 0, false
}
