package resolve

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"bpmastats/internal/ddl"
)

// SQLSource queries the species dimension directly.
type SQLSource struct {
	db      *sqlx.DB
	queries map[Field]string
}

// OpenSQL connects with driver "postgres" (lib/pq) or "sqlite" (modernc).
func OpenSQL(ctx context.Context, driver, dsn, table string) (*SQLSource, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("resolver: connect %s: %w", driver, err)
	}
	return NewSQLSource(db, table)
}

// NewSQLSource prepares the per-field queries for table, which must have id,
// nome_cientifico and nome_popular columns.
func NewSQLSource(db *sqlx.DB, table string) (*SQLSource, error) {
	var f ddl.Flavor
	switch db.DriverName() {
	case "postgres", "pgx":
		f = ddl.Postgres
	case "sqlite", "sqlite3":
		f = ddl.SQLite
	default:
		return nil, fmt.Errorf("resolver: unsupported driver %q", db.DriverName())
	}
	s := &SQLSource{db: db, queries: map[Field]string{}}
	for _, field := range []Field{Scientific, Common} {
		s.queries[field] = db.Rebind(fmt.Sprintf(
			"SELECT id FROM %s WHERE LOWER(TRIM(%s)) = ? LIMIT 1",
			ddl.QuoteFQN(f, table), ddl.QuoteIdent(f, field.Column()),
		))
	}
	return s, nil
}

func (s *SQLSource) Lookup(ctx context.Context, field Field, name string) (string, bool, error) {
	var id string
	err := s.db.GetContext(ctx, &id, s.queries[field], name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Close releases the connection pool.
func (s *SQLSource) Close() error { return s.db.Close() }
