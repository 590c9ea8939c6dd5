// Package mysql implements a MySQL/MariaDB repository on go-sql-driver/mysql.
// Rendered upserts use INSERT ... ON DUPLICATE KEY UPDATE.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds MySQL repository configuration.
type Config struct {
	// DSN in driver form, e.g. "user:pass@tcp(127.0.0.1:3306)/bpma?parseTime=true".
	DSN string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository parses the DSN, opens a pool and pings it.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	// DATE columns come back as time.Time.
	mc.ParseTime = true

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}
	close := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, close, nil
}

// Exec executes one rendered statement.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return describe(err)
	}
	return nil
}

func describe(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return fmt.Errorf("mysql: error %d: %s: %w", myErr.Number, myErr.Message, err)
	}
	return fmt.Errorf("mysql: exec: %w", err)
}
