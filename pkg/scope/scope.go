// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

// Package scope implements the OAuth 2.0 scope wire format: a list of ASCII
// words joined by single spaces. Order and duplicates are preserved through
// parse/format but carry no meaning.
package scope

import "strings"

// Scope is an ordered list of scope words.
type Scope []string

// Parse splits a space-separated scope string. Runs of spaces collapse and
// leading/trailing spaces are ignored, so Parse(format(s)) == s for any
// scope whose words contain no spaces.
func Parse(s string) Scope {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return Scope(fields)
}

// String joins the scope words with single spaces.
func (s Scope) String() string {
	return strings.Join(s, " ")
}

// MarshalText renders the scope in its wire form, so JSON bodies carry the
// space-separated string rather than an array.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(text []byte) error {
	*s = Parse(string(text))
	return nil
}

// Has reports whether word is a member of the scope, by exact string match.
func (s Scope) Has(word string) bool {
	for _, w := range s {
		if w == word {
			return true
		}
	}
	return false
}
