package store

import (
	"context"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Migrate applies pending migrations for the dialect in filename order.
// 000 creates schema_migrations and then records itself.
func (d *DB) Migrate(ctx context.Context) error {
	dir := path.Join("migrations", string(d.dialect))
	entries, err := migrations.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	applied := 0
	for _, filename := range files {
		version := strings.Split(filename, "_")[0]

		done, err := d.migrationApplied(ctx, version)
		if err != nil {
			if version != "000" {
				return fmt.Errorf("schema_migrations table missing, but migration is not 000: %s: %w", filename, err)
			}
		} else if done {
			d.log.Debugw("Skipping migration (already applied)", "migration", filename)
			continue
		}

		body, err := migrations.ReadFile(path.Join(dir, filename))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", filename, err)
		}

		d.log.Infow("Applying migration", "migration", filename, "version", version)

		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin tx for %s: %w", filename, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			d.rollback(tx)
			return fmt.Errorf("failed to execute %s: %w", filename, err)
		}

		insert, args, err := d.sb.Insert("schema_migrations").Columns("version").Values(version).ToSql()
		if err != nil {
			d.rollback(tx)
			return fmt.Errorf("failed to build migration record: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			d.rollback(tx)
			return fmt.Errorf("failed to record %s: %w", filename, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit %s: %w", filename, err)
		}
		applied++
	}

	d.log.Infow("Migrations complete", "dialect", d.dialect, "total", len(files), "applied", applied)
	return nil
}

func (d *DB) migrationApplied(ctx context.Context, version string) (bool, error) {
	query, args, err := d.sb.Select("COUNT(*)").From("schema_migrations").Where("version = ?", version).ToSql()
	if err != nil {
		return false, err
	}
	var n int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
