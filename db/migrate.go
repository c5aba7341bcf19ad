package db

import (
	"context"
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/sym"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

const migrationsDir = "sqlite/migrations"

// Migration is one embedded schema file. Version is the numeric filename prefix.
type Migration struct {
	Version   string
	Name      string
	AppliedAt *string
}

// Applied reports whether the migration has been recorded in schema_migrations.
func (m Migration) Applied() bool { return m.AppliedAt != nil }

// Status lists every embedded migration in version order, marking those
// already recorded. A database without schema_migrations reports all pending.
func Status(ctx context.Context, db *sql.DB) ([]Migration, error) {
	files, err := migrationFiles()
	if err != nil {
		return nil, err
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	out := make([]Migration, 0, len(files))
	for _, name := range files {
		m := Migration{Version: versionOf(name), Name: name}
		if at, ok := applied[m.Version]; ok {
			m.AppliedAt = &at
		}
		out = append(out, m)
	}
	return out, nil
}

// Migrate runs all pending migrations, each in its own transaction.
// If logger is provided, logs migration progress; otherwise operates silently.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	ctx := context.Background()

	status, err := Status(ctx, db)
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range status {
		if m.Applied() {
			if logger != nil {
				logger.Debugw("Skipping migration (already applied)", "migration", m.Name, "version", m.Version)
			}
			continue
		}
		if logger != nil {
			logger.Infow("Applying migration", "migration", m.Name, "version", m.Version)
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
		applied++
	}

	if logger != nil {
		logger.Infow("Migrations complete",
			"symbol", sym.DB,
			"total_migrations", len(status),
			"applied", applied,
		)
	}
	return nil
}

func apply(ctx context.Context, db *sql.DB, m Migration) error {
	// embed.FS paths are always slash-separated
	body, err := migrations.ReadFile(path.Join(migrationsDir, m.Name))
	if err != nil {
		return errors.Wrapf(err, "read %s", m.Name)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "begin tx for %s", m.Name)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return errors.Wrapf(err, "execute %s", m.Name)
	}
	// 000 creates schema_migrations, then records itself
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
		return errors.Wrapf(err, "record %s", m.Name)
	}
	return errors.Wrapf(tx.Commit(), "commit %s", m.Name)
}

func migrationFiles() ([]string, error) {
	entries, err := migrations.ReadDir(migrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	// 000_create_schema_migrations.sql sorts first
	sort.Strings(files)
	return files, nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		if IsDatabaseClosed(err) {
			return nil, errors.Wrap(ErrDatabaseClosed, err.Error())
		}
		if strings.Contains(err.Error(), "no such table") {
			return map[string]string{}, nil
		}
		return nil, errors.Wrap(err, "failed to read schema_migrations")
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, at string
		if err := rows.Scan(&version, &at); err != nil {
			return nil, errors.Wrap(err, "failed to scan schema_migrations")
		}
		applied[version] = at
	}
	return applied, errors.Wrap(rows.Err(), "error iterating schema_migrations")
}

func versionOf(filename string) string {
	return strings.SplitN(filename, "_", 2)[0]
}
