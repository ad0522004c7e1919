// Package sqlite persists facts in a SQLite database. Every save replaces
// the table contents inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/becomeliminal/nim-memory/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS facts (
	id             TEXT PRIMARY KEY,
	position       INTEGER NOT NULL,
	subject        TEXT NOT NULL,
	predicate      TEXT NOT NULL,
	objects        TEXT NOT NULL,
	is_multi_value INTEGER NOT NULL DEFAULT 0,
	context        TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);`

// Persister stores facts in the facts table of a SQLite database.
type Persister struct {
	db *sql.DB
}

// Open opens (or creates) the database at path.
func Open(ctx context.Context, path string) (*Persister, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Persister{db: db}, nil
}

// Load returns every fact in insertion order.
func (p *Persister) Load(ctx context.Context) ([]core.Fact, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, subject, predicate, objects, is_multi_value, context, created_at, updated_at
		FROM facts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	var facts []core.Fact
	for rows.Next() {
		var (
			f                core.Fact
			objects          string
			multi            int
			created, updated string
		)
		if err := rows.Scan(&f.ID, &f.Subject, &f.Predicate, &objects, &multi, &f.Context, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		if err := json.Unmarshal([]byte(objects), &f.Objects); err != nil {
			return nil, fmt.Errorf("decode objects of %s: %w", f.ID, err)
		}
		f.IsMultiValue = multi != 0
		if f.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at of %s: %w", f.ID, err)
		}
		if f.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("parse updated_at of %s: %w", f.ID, err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// Save replaces the stored collection with facts.
func (p *Persister) Save(ctx context.Context, facts []core.Fact) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM facts`); err != nil {
		return fmt.Errorf("clear facts: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO facts (id, position, subject, predicate, objects, is_multi_value, context, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range facts {
		objects, err := json.Marshal(f.Objects)
		if err != nil {
			return fmt.Errorf("encode objects of %s: %w", f.ID, err)
		}
		multi := 0
		if f.IsMultiValue {
			multi = 1
		}
		if _, err := stmt.ExecContext(ctx, f.ID, i, f.Subject, f.Predicate, string(objects), multi, f.Context,
			f.CreatedAt.Format(time.RFC3339Nano), f.UpdatedAt.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("insert %s: %w", f.ID, err)
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (p *Persister) Close() error {
	return p.db.Close()
}
