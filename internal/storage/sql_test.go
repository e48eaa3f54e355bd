package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saf-slovakia/accountancy/internal/accountancy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		input    string
		expected string
	}{
		{
			name:     "mysql keeps question marks",
			dialect:  MySQL,
			input:    "SELECT * FROM t WHERE a = ? AND b = ?",
			expected: "SELECT * FROM t WHERE a = ? AND b = ?",
		},
		{
			name:     "postgres numbers placeholders",
			dialect:  Postgres,
			input:    "SELECT * FROM t WHERE a = ? AND b IN (?, ?)",
			expected: "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)",
		},
		{
			name:     "no placeholders",
			dialect:  Postgres,
			input:    "SELECT 1",
			expected: "SELECT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dialect.Rebind(tt.input))
		})
	}
}

func TestDialectFor(t *testing.T) {
	d, ok := DialectFor("")
	require.True(t, ok)
	assert.Equal(t, MySQL, d)
	assert.Equal(t, "mysql", d.DriverName())

	d, ok = DialectFor("PostgreSQL")
	require.True(t, ok)
	assert.Equal(t, Postgres, d)
	assert.Equal(t, "pgx", d.DriverName())

	_, ok = DialectFor("sqlite")
	assert.False(t, ok)
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, MySQL.IsDuplicate(&mysql.MySQLError{Number: 1062}))
	assert.False(t, MySQL.IsDuplicate(&mysql.MySQLError{Number: 1452}))
	assert.True(t, Postgres.IsDuplicate(&pgconn.PgError{Code: "23505"}))
	assert.True(t, Postgres.IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, Postgres.IsDuplicate(errors.New("boom")))
}

func TestFilterNewMigrations(t *testing.T) {
	all := []string{"0001_init.sql", "0002_extra.sql", "0003_old_state.sql"}

	assert.Equal(t, all, filterNewMigrations(all, ""))
	assert.Equal(t, []string{"0003_old_state.sql"}, filterNewMigrations(all, "0002_extra.sql"))
	assert.Empty(t, filterNewMigrations(all, "0003_old_state.sql"))
}

func TestGetMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_b.sql", "0001_a.sql", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0000_dir.sql"), 0o755))

	files, err := getMigrationFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a.sql", "0002_b.sql"}, files)
}

func TestSplitStatements(t *testing.T) {
	content := `-- accounts
CREATE TABLE a (id INT);

-- types
CREATE TABLE b (id INT);
`
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"}, splitStatements(content))
}

func TestBuildRecordWhere(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		dialect      Dialect
		filter       accountancy.RecordFilter
		expectedSQL  string
		expectedArgs []any
	}{
		{
			name:        "no filter orders newest first",
			dialect:     MySQL,
			filter:      accountancy.RecordFilter{},
			expectedSQL: " ORDER BY t.date_created DESC, t.id DESC",
		},
		{
			name:         "states section and paging",
			dialect:      MySQL,
			filter:       accountancy.RecordFilter{States: []string{"payed", "public"}, Section: "ultimate", Ordering: "amount", Limit: 100, Offset: 200},
			expectedSQL:  " WHERE t.state IN (?, ?) AND t.section = ? ORDER BY t.amount ASC, t.id ASC LIMIT ? OFFSET ?",
			expectedArgs: []any{"payed", "public", "ultimate", 100, 200},
		},
		{
			name:         "search casts the amount per dialect",
			dialect:      Postgres,
			filter:       accountancy.RecordFilter{Search: " Discs ", WithApproval: true},
			expectedSQL:  " WHERE (LOWER(t.description) LIKE ? OR CAST(t.amount AS TEXT) LIKE ?) AND a.id IS NOT NULL ORDER BY t.date_created DESC, t.id DESC",
			expectedArgs: []any{"%discs%", "%discs%"},
		},
		{
			name:         "payment filters",
			dialect:      MySQL,
			filter:       accountancy.RecordFilter{AccountID: "acc-1", WithItem: true, PayedBefore: &cutoff, Ordering: "-date_payed"},
			expectedSQL:  " WHERE i.account_id = ? AND i.id IS NOT NULL AND i.date_payed < ? ORDER BY i.date_payed DESC, t.id DESC",
			expectedArgs: []any{"acc-1", cutoff},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := buildRecordWhere(tt.filter, tt.dialect)
			assert.Equal(t, tt.expectedSQL, sql)
			assert.Equal(t, tt.expectedArgs, args)
		})
	}
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{User: "saf", Pass: "secret", Host: "db", Port: "3306", Name: "books"}

	assert.Equal(t, "saf:secret@tcp(db:3306)/books?parseTime=true", cfg.dsn(MySQL))
	admin, err := cfg.adminDSN(MySQL)
	require.NoError(t, err)
	assert.Equal(t, "saf:secret@tcp(db:3306)/?parseTime=true", admin)

	cfg.Port = "5432"
	assert.Equal(t, "postgres://saf:secret@db:5432/books?sslmode=disable", cfg.dsn(Postgres))

	_, err = Config{Host: "db"}.adminDSN(MySQL)
	assert.Error(t, err)

	full := Config{FullDSN: "root:pw@tcp(localhost:3306)/books?parseTime=true"}
	admin, err = full.adminDSN(MySQL)
	require.NoError(t, err)
	assert.Equal(t, "root:pw@tcp(localhost:3306)/", admin)
}
