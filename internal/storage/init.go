package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/saf-slovakia/accountancy/logging"
)

const (
	PING_ATTEMPTS = 15
	PING_INTERVAL = 3 * time.Second
)

type Config struct {
	Driver        string
	User          string
	Pass          string
	Host          string
	Port          string
	Name          string
	FullDSN       string
	MigrationsDir string
}

func (cfg Config) adminDSN(d Dialect) (string, error) {
	if cfg.FullDSN != "" {
		if d == Postgres {
			return "", nil
		}
		parts := strings.Split(cfg.FullDSN, "/")
		return strings.Join(parts[:len(parts)-1], "/") + "/", nil
	}
	if cfg.User == "" || cfg.Pass == "" || cfg.Host == "" || cfg.Port == "" {
		return "", fmt.Errorf("missing required DB environment variables")
	}
	if d == Postgres {
		return cfg.postgresDSN("postgres"), nil
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/?parseTime=true", cfg.User, cfg.Pass, cfg.Host, cfg.Port), nil
}

func (cfg Config) dsn(d Dialect) string {
	if cfg.FullDSN != "" {
		return cfg.FullDSN
	}
	if d == Postgres {
		return cfg.postgresDSN(cfg.Name)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", cfg.User, cfg.Pass, cfg.Host, cfg.Port, cfg.Name)
}

func (cfg Config) postgresDSN(dbname string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Pass),
		Host:     cfg.Host + ":" + cfg.Port,
		Path:     "/" + dbname,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Init connects to the configured server, creates the database when missing and applies pending migrations.
func Init(ctx context.Context, cfg Config) (*sql.DB, Dialect, error) {
	dialect, ok := DialectFor(cfg.Driver)
	if !ok {
		return nil, Dialect{}, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if cfg.Name == "" {
		cfg.Name = "saf_accountancy"
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "db/migrations"
	}

	adminDsn, err := cfg.adminDSN(dialect)
	if err != nil {
		return nil, Dialect{}, err
	}
	if adminDsn != "" {
		if err := ensureDatabase(ctx, dialect, adminDsn, cfg.Name); err != nil {
			return nil, Dialect{}, err
		}
	}

	logging.Logger.Info("Connecting to database...")
	db, err := sql.Open(dialect.DriverName(), cfg.dsn(dialect))
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("failed to open database handle: %v", err)
	}
	if err := waitForPing(ctx, db); err != nil {
		db.Close()
		return nil, Dialect{}, err
	}

	if dialect == MySQL {
		if _, err := db.ExecContext(ctx, "SET time_zone = '+00:00'"); err != nil {
			logging.Logger.Warn("failed to set database timezone(UTC+0)")
		}
	}

	logging.Logger.Info("Connected to database successfully")
	logging.Logger.Info("Running migrations...")

	if err := runMigrations(ctx, db, dialect, filepath.Join(cfg.MigrationsDir, dialect.Name)); err != nil {
		db.Close()
		return nil, Dialect{}, fmt.Errorf("failed to run migrations: %v", err)
	}
	return db, dialect, nil
}

func waitForPing(ctx context.Context, db *sql.DB) error {
	for i := 0; i < PING_ATTEMPTS; i++ {
		if err := db.PingContext(ctx); err == nil {
			return nil
		}
		logging.Logger.Warnf("Database not ready, retrying... (%d/%d)", i+1, PING_ATTEMPTS)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(PING_INTERVAL):
		}
	}
	return fmt.Errorf("database unreachable after multiple attempts")
}

func ensureDatabase(ctx context.Context, dialect Dialect, adminDsn string, dbname string) error {
	logging.Logger.Infof("Connecting to %s server for initialization...", dialect.Name)
	adminDb, err := sql.Open(dialect.DriverName(), adminDsn)
	if err != nil {
		return fmt.Errorf("failed to open admin %s handle: %v", dialect.Name, err)
	}
	defer adminDb.Close()

	if err := waitForPing(ctx, adminDb); err != nil {
		return err
	}

	checkQuery := "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?"
	createQuery := fmt.Sprintf("CREATE DATABASE `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci;", dbname)
	if dialect == Postgres {
		checkQuery = "SELECT datname FROM pg_database WHERE datname = ?"
		createQuery = fmt.Sprintf(`CREATE DATABASE "%s" ENCODING 'UTF8'`, dbname)
	}

	var existing string
	err = adminDb.QueryRowContext(ctx, dialect.Rebind(checkQuery), dbname).Scan(&existing)
	if err == sql.ErrNoRows {
		logging.Logger.Infof("Database '%s' does not exist, creating...", dbname)
		if _, err := adminDb.ExecContext(ctx, createQuery); err != nil {
			return fmt.Errorf("failed to create database: %v", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check database existence: %v", err)
	}
	return nil
}

func runMigrations(ctx context.Context, db *sql.DB, dialect Dialect, dir string) error {
	migrationFiles, err := getMigrationFiles(dir)
	if err != nil {
		return fmt.Errorf("failed to get migration files: %v", err)
	}

	lastAppliedMigration, err := getLastAppliedMigration(ctx, db, dialect)
	if err != nil {
		return fmt.Errorf("failed to get last applied migration name: %v", err)
	}

	newMigrations := filterNewMigrations(migrationFiles, lastAppliedMigration)
	if len(newMigrations) == 0 {
		logging.Logger.Info("no new migration")
		return nil
	}

	for _, migrationFile := range newMigrations {
		logging.Logger.Info("applying migration: ", migrationFile)
		migrationContent, err := os.ReadFile(filepath.Join(dir, migrationFile))
		if err != nil {
			return fmt.Errorf("failed to read this '%s' migration file, error: %v", migrationFile, err)
		}
		if err := applyMigration(ctx, db, dialect, migrationFile, string(migrationContent)); err != nil {
			return fmt.Errorf("failed to apply this '%s' migration file, error: %v", migrationFile, err)
		}
	}

	logging.Logger.Info("all migrations applied successfully")
	return nil
}

func getMigrationFiles(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)
	return migrationFiles, nil
}

func getLastAppliedMigration(ctx context.Context, db *sql.DB, dialect Dialect) (string, error) {
	if _, err := db.ExecContext(ctx, dialect.migrationTable()); err != nil {
		return "", err
	}

	var lastMigration string
	err := db.QueryRowContext(ctx, "SELECT migration_name FROM migration ORDER BY migration_name DESC LIMIT 1").Scan(&lastMigration)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return lastMigration, err
}

func filterNewMigrations(all []string, lastApplied string) []string {
	if lastApplied == "" {
		return all
	}

	var result []string
	for _, migration := range all {
		if migration > lastApplied {
			result = append(result, migration)
		}
	}
	return result
}

// splitStatements drops "--" comment lines and splits on ";".
func splitStatements(sqlContent string) []string {
	var lines []string
	for _, line := range strings.Split(sqlContent, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}

	var statements []string
	for _, statement := range strings.Split(strings.Join(lines, "\n"), ";") {
		if trimmed := strings.TrimSpace(statement); trimmed != "" {
			statements = append(statements, trimmed)
		}
	}
	return statements
}

func applyMigration(ctx context.Context, db *sql.DB, dialect Dialect, name, sqlContent string) error {
	txn, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	for _, statement := range splitStatements(sqlContent) {
		if _, err := txn.ExecContext(ctx, statement); err != nil {
			txn.Rollback()
			return fmt.Errorf("migration statement failed: %w\nStatement: %s", err, statement)
		}
	}

	if _, err := txn.ExecContext(ctx, dialect.Rebind("INSERT INTO migration (migration_name) VALUES (?)"), name); err != nil {
		txn.Rollback()
		return fmt.Errorf("failed to record migration name: %w", err)
	}

	return txn.Commit()
}
