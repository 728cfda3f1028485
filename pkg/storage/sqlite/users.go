// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/basique/mini-oidc/pkg/entityid"
	"github.com/basique/mini-oidc/pkg/storage"
)

// CreateUser inserts a new user account.
func (s *Store) CreateUser(ctx context.Context, user storage.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, ?)`,
		user.ID.Int64(), user.Username, nullString(user.Email), user.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id entityid.EntityID) (storage.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash FROM users WHERE id = ?`,
		id.Int64(),
	)
	return scanUser(row)
}

// GetUserByName retrieves a user by username.
func (s *Store) GetUserByName(ctx context.Context, username string) (storage.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash FROM users WHERE username = ?`,
		username,
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (storage.User, error) {
	var (
		id    int64
		u     storage.User
		email sql.NullString
	)
	err := row.Scan(&id, &u.Username, &email, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, fmt.Errorf("scanning user row: %w", err)
	}

	u.ID, err = entityid.FromInt64(id)
	if err != nil {
		return storage.User{}, fmt.Errorf("decoding user id: %w", err)
	}
	u.Email = email.String

	return u, nil
}

// nullString maps "" to NULL so optional columns stay NULL at rest.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
