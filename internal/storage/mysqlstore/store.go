// Package mysqlstore implements library.Store on MySQL with sqlx, building the
// dynamic queries with goqu's mysql dialect.
package mysqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/platform/db"
)

//go:embed schema.sql
var schemaSQL string

var dialect = goqu.Dialect("mysql")

type Store struct {
	db *sqlx.DB
	q  db.DBTX
	tx bool
}

var _ library.Store = (*Store)(nil)

func New(conn *sqlx.DB) *Store {
	return &Store{db: conn, q: conn}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx library.Store) error) error {
	if s.tx {
		return fn(s)
	}
	return db.RunInTx(ctx, s.db, db.ReadCommitted(), func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(&Store{db: s.db, q: tx, tx: true})
	})
}

// Migrate creates the tables that do not exist yet.
func Migrate(ctx context.Context, conn *sqlx.DB) error {
	for _, stmt := range splitStatements(schemaSQL) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func splitStatements(src string) []string {
	var out []string
	for _, part := range strings.Split(src, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MySQL error numbers
const (
	errDupEntry        = 1062
	errRowIsReferenced = 1451
	errNoReferencedRow = 1452
	errCheckViolated   = 3819
)

// mapErr turns driver errors into apperr values for entity/key.
func mapErr(err error, entity string, key any) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case errDupEntry:
		if strings.Contains(me.Message, "uq_loans_open_copy") {
			return apperr.ErrConflict("copy already has an open loan")
		}
		return apperr.ErrDuplicate(entity, key)
	case errRowIsReferenced:
		return apperr.ErrConflict(fmt.Sprintf("%s %v is still referenced", entity, key))
	case errNoReferencedRow:
		return apperr.ErrInvalid(fmt.Sprintf("%s %v references a missing row", entity, key))
	case errCheckViolated:
		return apperr.ErrInvalid(fmt.Sprintf("%s %v violates a check constraint", entity, key))
	}
	return err
}

// execOne runs a statement that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, entity string, key any, q string, args ...any) error {
	res, err := s.q.ExecContext(ctx, q, args...)
	if err != nil {
		return mapErr(err, entity, key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound(entity, key)
	}
	return nil
}

func notFound(err error, entity string, key any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound(entity, key)
	}
	return err
}
