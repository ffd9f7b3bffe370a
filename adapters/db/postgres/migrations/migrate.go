package migrations

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"greenmetrics/internal"
)

//go:embed sql/*.sql
var embedded embed.FS

// Migrator handles database schema migrations
type Migrator struct {
	db     *sql.DB
	source fs.FS
	logger *internal.Logger
}

// NewMigrator creates a migrator over the SQL files compiled into the binary
func NewMigrator(db *sql.DB, logger *internal.Logger) *Migrator {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		// embedded path is fixed at compile time
		panic(err)
	}
	return NewMigratorFS(db, sub, logger)
}

// NewMigratorFS creates a migrator reading *.sql files from the root of source
func NewMigratorFS(db *sql.DB, source fs.FS, logger *internal.Logger) *Migrator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Migrator{db: db, source: source, logger: logger}
}

// MigrationFile represents a migration file
type MigrationFile struct {
	Version string
	Name    string
	Path    string
}

// MigrationStatus reports whether a migration has been applied
type MigrationStatus struct {
	MigrationFile
	Applied bool
}

// Up executes all pending migrations
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := m.FindMigrationFiles()
	if err != nil {
		return fmt.Errorf("failed to find migration files: %w", err)
	}

	for _, file := range files {
		if _, ok := applied[file.Version]; ok {
			continue
		}

		if err := m.applyMigration(ctx, file); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Version, err)
		}

		m.logger.Info("applied migration %s (%s)", file.Version, file.Name)
	}

	return nil
}

// Status lists every known migration and whether it has been applied.
// A checksum mismatch on an applied migration is reported as an error.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := m.FindMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to find migration files: %w", err)
	}

	statuses := make([]MigrationStatus, 0, len(files))
	for _, file := range files {
		sum, ok := applied[file.Version]
		if ok {
			data, err := fs.ReadFile(m.source, file.Path)
			if err != nil {
				return nil, err
			}
			if calculateChecksum(data) != sum {
				return nil, fmt.Errorf("migration %s changed after it was applied", file.Version)
			}
		}
		statuses = append(statuses, MigrationStatus{MigrationFile: file, Applied: ok})
	}
	return statuses, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// getAppliedMigrations returns applied versions mapped to their checksums
func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, err
		}
		applied[version] = checksum
	}

	return applied, rows.Err()
}

// calculateChecksum computes SHA256 checksum of migration content
func calculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// FindMigrationFiles lists NNN_name.sql files sorted by version
func (m *Migrator) FindMigrationFiles() ([]MigrationFile, error) {
	entries, err := fs.ReadDir(m.source, ".")
	if err != nil {
		return nil, err
	}

	var files []MigrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}

		// Parse filename: 001_initial_schema.sql
		version, name, ok := strings.Cut(strings.TrimSuffix(e.Name(), ".sql"), "_")
		if !ok {
			continue
		}

		files = append(files, MigrationFile{
			Version: version,
			Name:    name,
			Path:    path.Join(".", e.Name()),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Version < files[j].Version
	})

	return files, nil
}

// applyMigration executes a single migration file in its own transaction
func (m *Migrator) applyMigration(ctx context.Context, file MigrationFile) error {
	sqlBytes, err := fs.ReadFile(m.source, file.Path)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)", file.Version, calculateChecksum(sqlBytes))
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
