// Package postgres is a concrete, optional catalog.Source backed by
// Postgres: environment policy documents are stored as a JSONB blob per row,
// decoded into a policy.EnvironmentPolicy on load. It is a reference
// adapter, not a storage layer the core depends on (catalog.Source is the
// abstract boundary); any store that can produce the same interface works
// just as well.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	sqldblogger "github.com/simukti/sqldb-logger"

	"go.miloapis.com/jitgroups/internal/catalog"
	"go.miloapis.com/jitgroups/internal/ferrors"
)

// Store implements catalog.Source against a `jitgroups_environment` table
// with columns (name text primary key, description text, data jsonb).
type Store struct {
	db *sql.DB

	listStmt *sql.Stmt
	loadStmt *sql.Stmt
}

// Open connects to dsn through lib/pq, wrapping the driver with
// sqldb-logger so every statement is traced the way the rest of the module
// logs through slog, and prepares the store's fixed statements.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db := sqldblogger.OpenDriver(dsn, &pq.Driver{}, slogAdapter{logger: logger},
		sqldblogger.WithSQLQueryAsMessage(true),
		sqldblogger.WithMinimumLevel(sqldblogger.LevelInfo),
	)

	return newStore(ctx, db)
}

func newStore(ctx context.Context, db *sql.DB) (*Store, error) {
	listStmt, err := db.PrepareContext(ctx, `SELECT name, description FROM jitgroups_environment ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("preparing list statement: %w", err)
	}
	loadStmt, err := db.PrepareContext(ctx, `SELECT data FROM jitgroups_environment WHERE name = $1`)
	if err != nil {
		return nil, fmt.Errorf("preparing load statement: %w", err)
	}
	return &Store{db: db, listStmt: listStmt, loadStmt: loadStmt}, nil
}

// ListEnvironments returns every environment's name and description,
// without loading its full policy tree.
func (s *Store) ListEnvironments(ctx context.Context) ([]catalog.EnvironmentHeader, error) {
	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.EnvironmentHeader
	for rows.Next() {
		var h catalog.EnvironmentHeader
		if err := rows.Scan(&h.Name, &h.Description); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// LoadEnvironment decodes the named environment's JSONB policy document.
func (s *Store) LoadEnvironment(ctx context.Context, name string) (catalog.PolicyDocument, error) {
	var raw []byte
	if err := s.loadStmt.QueryRowContext(ctx, name).Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, ferrors.ResourceNotFound(fmt.Sprintf("policystore: environment %q not found", name))
		}
		return nil, err
	}
	return decodeEnvironment(raw)
}

// Close releases the prepared statements and the underlying connection
// pool.
func (s *Store) Close() error {
	s.listStmt.Close()
	s.loadStmt.Close()
	return s.db.Close()
}
