package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/taskman/internal/core/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration is one versioned schema change with its inverse.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrationState pairs a migration with the time it was applied. AppliedAt
// is zero for pending migrations.
type MigrationState struct {
	Migration
	AppliedAt time.Time
}

// Applied reports whether the migration has been run.
func (s MigrationState) Applied() bool { return !s.AppliedAt.IsZero() }

var migrationFilename = regexp.MustCompile(`^(\d+)_(\w+)\.(up|down)\.sql$`)

type migrationFile struct {
	version int
	name    string
	up      bool
}

// parseFilename splits "NNNN_name.up.sql" / "NNNN_name.down.sql".
func parseFilename(filename string) (migrationFile, error) {
	m := migrationFilename.FindStringSubmatch(filename)
	if m == nil {
		return migrationFile{}, fmt.Errorf("expected format NNNN_name.{up,down}.sql")
	}

	version, err := strconv.Atoi(m[1])
	if err != nil {
		return migrationFile{}, fmt.Errorf("version %q is not a valid integer: %w", m[1], err)
	}
	if version <= 0 {
		return migrationFile{}, fmt.Errorf("version must be positive, got %d", version)
	}

	return migrationFile{version: version, name: m[2], up: m[3] == "up"}, nil
}

func loadMigrations() ([]Migration, error) {
	return readMigrations(migrationsFS, "migrations")
}

// readMigrations parses the SQL files in dir into migrations sorted by
// version. Every version needs exactly one up and one down file.
func readMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		f, err := parseFilename(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("invalid migration filename %q: %w", entry.Name(), err)
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		m, ok := byVersion[f.version]
		if !ok {
			m = &Migration{Version: f.version, Name: f.name}
			byVersion[f.version] = m
		}

		slot := &m.DownSQL
		if f.up {
			slot = &m.UpSQL
		}
		if *slot != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %04d", direction(f.up), f.version)
		}
		*slot = string(content)
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		switch {
		case m.UpSQL == "":
			return nil, fmt.Errorf("migration %04d has down file but no up file", m.Version)
		case m.DownSQL == "":
			return nil, fmt.Errorf("migration %04d has up file but no down file", m.Version)
		}
		migrations = append(migrations, *m)
	}

	slices.SortFunc(migrations, func(a, b Migration) int { return a.Version - b.Version })
	return migrations, nil
}

func direction(up bool) string {
	if up {
		return "up"
	}
	return "down"
}

// migrator runs the embedded migrations against one connection pool and
// tracks them in schema_migrations.
type migrator struct {
	conn *sql.DB
	all  []Migration
	log  zerolog.Logger
}

func newMigrator(ctx context.Context, conn *sql.DB) (*migrator, error) {
	all, err := loadMigrations()
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	_, err = conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("creating schema_migrations table: %w", err)
	}

	return &migrator{conn: conn, all: all, log: logging.Component("migrate")}, nil
}

// migrateUp applies every pending migration in version order. Databases
// written before migrations were tracked are bootstrapped first.
func migrateUp(ctx context.Context, conn *sql.DB) error {
	m, err := newMigrator(ctx, conn)
	if err != nil {
		return err
	}

	if err := m.bootstrapLegacy(ctx); err != nil {
		return err
	}

	states, err := m.states(ctx)
	if err != nil {
		return err
	}

	for _, s := range states {
		if s.Applied() {
			continue
		}
		m.log.Info().Int("version", s.Version).Str("name", s.Name).Msg("applying migration")
		if err := m.step(ctx, s.Migration, true); err != nil {
			return fmt.Errorf("migration %04d (%s): %w", s.Version, s.Name, err)
		}
	}

	return nil
}

// MigrateDown reverts the last n applied migrations, newest first.
func MigrateDown(ctx context.Context, conn *sql.DB, n int) error {
	if n <= 0 {
		return fmt.Errorf("n must be positive, got %d", n)
	}

	m, err := newMigrator(ctx, conn)
	if err != nil {
		return err
	}

	states, err := m.states(ctx)
	if err != nil {
		return err
	}

	var toRevert []Migration
	for _, s := range slices.Backward(states) {
		if s.Applied() {
			toRevert = append(toRevert, s.Migration)
		}
	}
	if n > len(toRevert) {
		return fmt.Errorf("requested %d down migrations but only %d are applied", n, len(toRevert))
	}

	for _, mig := range toRevert[:n] {
		m.log.Info().Int("version", mig.Version).Str("name", mig.Name).Msg("reverting migration")
		if err := m.step(ctx, mig, false); err != nil {
			return fmt.Errorf("revert migration %04d (%s): %w", mig.Version, mig.Name, err)
		}
	}

	return nil
}

// MigrationStatus lists every known migration in version order with its
// applied time.
func MigrationStatus(ctx context.Context, conn *sql.DB) ([]MigrationState, error) {
	m, err := newMigrator(ctx, conn)
	if err != nil {
		return nil, err
	}
	return m.states(ctx)
}

func (m *migrator) states(ctx context.Context) ([]MigrationState, error) {
	rows, err := m.conn.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("querying applied versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var at int64
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		applied[version] = time.Unix(0, at)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	states := make([]MigrationState, 0, len(m.all))
	for _, mig := range m.all {
		states = append(states, MigrationState{Migration: mig, AppliedAt: applied[mig.Version]})
	}
	return states, nil
}

// step runs one direction of a migration and updates schema_migrations in
// the same transaction.
func (m *migrator) step(ctx context.Context, mig Migration, up bool) error {
	tx, err := m.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	script, record, args := mig.DownSQL, "DELETE FROM schema_migrations WHERE version = ?", []any{mig.Version}
	if up {
		script = mig.UpSQL
		record = "INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)"
		args = []any{mig.Version, mig.Name, time.Now().UnixNano()}
	}

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}

	return tx.Commit()
}

// bootstrapLegacy marks migrations as applied for a database that already
// holds a tasks table but has no migration records. Such files come from
// older releases and may or may not carry the timestamp columns.
func (m *migrator) bootstrapLegacy(ctx context.Context) error {
	var count int
	if err := m.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		return fmt.Errorf("checking schema_migrations count: %w", err)
	}
	if count > 0 {
		return nil
	}

	var table string
	err := m.conn.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='tasks'",
	).Scan(&table)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking for legacy tasks table: %w", err)
	}

	legacyVersion := 1
	hasTimestamps, err := hasColumn(ctx, m.conn, "tasks", "created_at")
	if err != nil {
		return err
	}
	if hasTimestamps {
		legacyVersion = 2
	}

	m.log.Info().Int("legacy_version", legacyVersion).Msg("bootstrapping migrations from legacy tasks table")

	tx, err := m.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bootstrap transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixNano()
	for _, mig := range m.all {
		if mig.Version > legacyVersion {
			break
		}
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			mig.Version, mig.Name, now,
		)
		if err != nil {
			return fmt.Errorf("bootstrap migration %04d: %w", mig.Version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bootstrap transaction: %w", err)
	}
	return nil
}

func hasColumn(ctx context.Context, conn *sql.DB, table, column string) (bool, error) {
	var n int
	err := conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspecting %s columns: %w", table, err)
	}
	return n > 0, nil
}
