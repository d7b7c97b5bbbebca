// Package store keeps email templates in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/dmitrymomot/mailroom/pkg/db"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations holds the goose migrations for the email_templates table.
var Migrations, _ = fs.Sub(migrations, "migrations")

var (
	ErrLoadTemplates = errors.New("store: failed to load templates")
	ErrSaveTemplates = errors.New("store: failed to save templates")
)

const (
	selectTemplates = `SELECT name, description, markup FROM email_templates ORDER BY name`
	upsertTemplate  = `INSERT INTO email_templates (name, description, markup)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE
SET description = EXCLUDED.description, markup = EXCLUDED.markup, updated_at = now()`
)

// Store reads and writes templates through database/sql.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Templates returns every stored template ordered by name.
func (s *Store) Templates(ctx context.Context) ([]mailer.Template, error) {
	rows, err := s.db.QueryContext(ctx, selectTemplates)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadTemplates, err)
	}
	defer rows.Close()

	var out []mailer.Template
	for rows.Next() {
		var t mailer.Template
		if err := rows.Scan(&t.Name, &t.Description, &t.Markup); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadTemplates, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadTemplates, err)
	}
	return out, nil
}

// Save upserts templates in a single transaction.
func (s *Store) Save(ctx context.Context, templates ...mailer.Template) error {
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, t := range templates {
			if _, err := tx.ExecContext(ctx, upsertTemplate, t.Name, t.Description, t.Markup); err != nil {
				return fmt.Errorf("template %q: %w", t.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveTemplates, err)
	}
	return nil
}
