package postercache

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// step is one numbered schema change. Files are named NNN_description.sql and
// the highest applied number is kept in PRAGMA user_version.
type step struct {
	version int
	name    string
	sql     string
}

func loadSteps() ([]step, error) {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	steps := make([]step, 0, len(names))
	for _, name := range names {
		base := strings.TrimPrefix(name, "migrations/")
		prefix, _, _ := strings.Cut(base, "_")
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: name must start with a positive number", base)
		}
		data, err := migrationFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", base, err)
		}
		steps = append(steps, step{version: version, name: base, sql: string(data)})
	}
	slices.SortFunc(steps, func(a, b step) int { return a.version - b.version })
	return steps, nil
}

func (c *Cache) applyMigrations(ctx context.Context) error {
	steps, err := loadSteps()
	if err != nil {
		return err
	}

	var current int
	if err := c.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, s := range steps {
		if s.version <= current {
			continue
		}
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", s.name, err)
		}
		if _, err := tx.ExecContext(ctx, s.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", s.name, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", s.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", s.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", s.name, err)
		}
		c.logger.Debug("applied poster cache migration", "migration", s.name)
		current = s.version
	}
	return nil
}
