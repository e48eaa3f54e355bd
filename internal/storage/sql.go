package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/saf-slovakia/accountancy/internal/contextutil"
	"github.com/saf-slovakia/accountancy/logging"
)

// SQLStorage keeps everything in MySQL or Postgres.
type SQLStorage struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStorage(db *sql.DB, dialect Dialect) *SQLStorage {
	return &SQLStorage{db: db, dialect: dialect}
}

func (s *SQLStorage) GetStorageType() string {
	return s.dialect.Name
}

func (s *SQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func (s *SQLStorage) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *SQLStorage) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *SQLStorage) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

// withTx runs fn in one SQL transaction. The exec passed to fn rebinds like SQLStorage.exec.
func (s *SQLStorage) withTx(ctx context.Context, fn func(exec func(query string, args ...any) (sql.Result, error)) error) error {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	exec := func(query string, args ...any) (sql.Result, error) {
		return txn.ExecContext(ctx, s.dialect.Rebind(query), args...)
	}
	if err := fn(exec); err != nil {
		txn.Rollback()
		return err
	}
	return txn.Commit()
}

// internalError logs err with the trace id of ctx and hides it behind a generic message.
func internalError(ctx context.Context, function string, what string, err error, message string) error {
	traceID := contextutil.TraceIDFromContext(ctx)
	logging.Logger.Errorf("[TraceID=%s] | failed to %s in Storage.%s() function | Error: %v", traceID, what, function, err)
	return appErrors.ErrorResponse{
		Code:    appErrors.ErrInternal,
		Message: message,
	}
}

func notFound(message string) error {
	return appErrors.ErrorResponse{
		Code:    appErrors.ErrNotFound,
		Message: message,
	}
}

func NilToNullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func NilToNullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func NullStringToNil(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func NullTimeToNil(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// EmptyToNull stores "" as NULL, for optional references.
func EmptyToNull(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
