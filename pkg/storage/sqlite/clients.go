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

// CreateClient inserts the client row, its redirect URIs, and its contacts in
// one transaction. Any failure rolls everything back, so a client is never
// visible without its whitelist.
func (s *Store) CreateClient(ctx context.Context, client storage.Client) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO clients (
			id, client_name, app_type, client_uri, logo_uri,
			registration_token, client_secret
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		client.ID.Int64(),
		client.Name,
		client.ApplicationType,
		nullString(client.ClientURI),
		client.LogoURI,
		client.RegistrationTokenHash,
		client.SecretHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("inserting client: %w", err)
	}

	for _, uri := range client.RedirectURIs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO client_redirect_uris (client_id, redirect_uri) VALUES (?, ?)`,
			client.ID.Int64(), uri,
		); err != nil {
			if isUniqueViolation(err) {
				return storage.ErrAlreadyExists
			}
			return fmt.Errorf("inserting redirect uri %q: %w", uri, err)
		}
	}

	for _, email := range client.Contacts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO client_contacts (client_id, email) VALUES (?, ?)`,
			client.ID.Int64(), email,
		); err != nil {
			return fmt.Errorf("inserting contact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// GetClient retrieves a client with its redirect URIs and contacts.
func (s *Store) GetClient(ctx context.Context, id entityid.EntityID) (storage.Client, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, client_name, app_type, client_uri, logo_uri,
		       registration_token, client_secret
		FROM clients WHERE id = ?`,
		id.Int64(),
	)

	client, err := scanClient(row)
	if err != nil {
		return storage.Client{}, err
	}

	client.RedirectURIs, err = s.listStrings(ctx,
		`SELECT redirect_uri FROM client_redirect_uris WHERE client_id = ? ORDER BY redirect_uri`,
		id.Int64())
	if err != nil {
		return storage.Client{}, err
	}

	client.Contacts, err = s.listStrings(ctx,
		`SELECT email FROM client_contacts WHERE client_id = ?`, id.Int64())
	if err != nil {
		return storage.Client{}, err
	}

	return client, nil
}

// GetClientWithRedirect retrieves a client only if redirectURI is byte-equal
// to one registered for it. The join is the redirect-URI whitelist check.
func (s *Store) GetClientWithRedirect(
	ctx context.Context, id entityid.EntityID, redirectURI string,
) (storage.Client, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.client_name, c.app_type, c.client_uri, c.logo_uri,
		       c.registration_token, c.client_secret
		FROM clients c
		JOIN client_redirect_uris r ON r.client_id = c.id
		WHERE c.id = ? AND r.redirect_uri = ?`,
		id.Int64(), redirectURI,
	)
	return scanClient(row)
}

func scanClient(row *sql.Row) (storage.Client, error) {
	var (
		id        int64
		c         storage.Client
		clientURI sql.NullString
	)
	err := row.Scan(&id, &c.Name, &c.ApplicationType, &clientURI, &c.LogoURI,
		&c.RegistrationTokenHash, &c.SecretHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Client{}, storage.ErrNotFound
		}
		return storage.Client{}, fmt.Errorf("scanning client row: %w", err)
	}

	c.ID, err = entityid.FromInt64(id)
	if err != nil {
		return storage.Client{}, fmt.Errorf("decoding client id: %w", err)
	}
	c.ClientURI = clientURI.String

	return c, nil
}

func (s *Store) listStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}
