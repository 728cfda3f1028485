// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"fmt"

	"github.com/basique/mini-oidc/pkg/entityid"
	"github.com/basique/mini-oidc/pkg/storage"
)

// InsertSigningKey stores a PEM-encoded signing key.
func (s *Store) InsertSigningKey(ctx context.Context, key storage.SigningKey) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jwt_keys (id, pem_body) VALUES (?, ?)`,
		key.ID.Int64(), key.PEM,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("inserting signing key: %w", err)
	}
	return nil
}

// ListSigningKeys returns every stored signing key.
func (s *Store) ListSigningKeys(ctx context.Context) ([]storage.SigningKey, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, pem_body FROM jwt_keys ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying signing keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []storage.SigningKey
	for rows.Next() {
		var (
			id  int64
			key storage.SigningKey
		)
		if err := rows.Scan(&id, &key.PEM); err != nil {
			return nil, fmt.Errorf("scanning signing key row: %w", err)
		}
		if key.ID, err = entityid.FromInt64(id); err != nil {
			return nil, fmt.Errorf("decoding key id: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating signing key rows: %w", err)
	}

	return keys, nil
}
