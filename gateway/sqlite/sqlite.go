// Package sqlite persists modules in a single SQLite table, one JSON
// payload per row, using the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/GoCodeAlone/modgraph"
)

// Repository implements modgraph.Gateway on top of SQLite.
type Repository struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Repository, error) {
	if path == "" {
		path = "modgraph.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS modules (
		name TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create modules table: %w", err)
	}
	return &Repository{db: db, path: path}, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the configured database path.
func (r *Repository) Path() string { return r.path }

// DB exposes the underlying sql.DB for integration testing hooks.
func (r *Repository) DB() *sql.DB { return r.db }

// GetAll implements modgraph.Gateway.
func (r *Repository) GetAll(ctx context.Context) (map[string]modgraph.Module, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, payload FROM modules`)
	if err != nil {
		return nil, fmt.Errorf("select modules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]modgraph.Module)
	for rows.Next() {
		var (
			name    string
			payload []byte
		)
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		m, err := decode(name, payload)
		if err != nil {
			return nil, err
		}
		out[name] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modules: %w", err)
	}
	return out, nil
}

// Create implements modgraph.Gateway.
func (r *Repository) Create(ctx context.Context, m modgraph.Module) (modgraph.Module, error) {
	if err := modgraph.ValidateModule(m); err != nil {
		return modgraph.Module{}, err
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return modgraph.Module{}, fmt.Errorf("encode %s: %w", m.Name, err)
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO modules(name, payload) VALUES(?, ?) ON CONFLICT(name) DO NOTHING`, m.Name, payload)
	if err != nil {
		return modgraph.Module{}, fmt.Errorf("insert %s: %w", m.Name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return modgraph.Module{}, fmt.Errorf("%w: %s", modgraph.ErrConflict, m.Name)
	}
	return m.Clone(), nil
}

// Update implements modgraph.Gateway. The read and the write share one
// transaction.
func (r *Repository) Update(ctx context.Context, name string, patch modgraph.ModulePatch) (_ modgraph.Module, retErr error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return modgraph.Module{}, err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	var payload []byte
	err = tx.QueryRowContext(ctx, `SELECT payload FROM modules WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return modgraph.Module{}, fmt.Errorf("%w: %s", modgraph.ErrNotFound, name)
	}
	if err != nil {
		return modgraph.Module{}, fmt.Errorf("select %s: %w", name, err)
	}
	current, err := decode(name, payload)
	if err != nil {
		return modgraph.Module{}, err
	}

	updated := patch.Apply(current)
	if err := modgraph.ValidateModule(updated); err != nil {
		return modgraph.Module{}, err
	}
	if payload, err = json.Marshal(updated); err != nil {
		return modgraph.Module{}, fmt.Errorf("encode %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE modules SET payload = ? WHERE name = ?`, payload, name); err != nil {
		return modgraph.Module{}, fmt.Errorf("update %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return modgraph.Module{}, err
	}
	return updated, nil
}

// Delete implements modgraph.Gateway.
func (r *Repository) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM modules WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", modgraph.ErrNotFound, name)
	}
	return nil
}

// Import upserts modules, typically to migrate a YAML directory.
func (r *Repository) Import(ctx context.Context, modules []modgraph.Module) (retErr error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, m := range modules {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO modules(name, payload) VALUES(?, ?) ON CONFLICT(name) DO UPDATE SET payload = excluded.payload`, m.Name, payload); err != nil {
			return fmt.Errorf("upsert %s: %w", m.Name, err)
		}
	}
	return tx.Commit()
}

func decode(name string, payload []byte) (modgraph.Module, error) {
	var m modgraph.Module
	if err := json.Unmarshal(payload, &m); err != nil {
		return modgraph.Module{}, fmt.Errorf("decode %s: %w", name, err)
	}
	if m.Name == "" {
		m.Name = name
	}
	return m, nil
}
