package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// MigrateUp — накатывает *.up.sql из каталога по порядку имён.
// Для self-hosted платформы; managed-инстансы уже несут схему
func MigrateUp(ctx context.Context, q querier, dir string) error {
	return runMigrations(ctx, q, dir, "*.up.sql")
}

func MigrateDown(ctx context.Context, q querier, dir string) error {
	return runMigrations(ctx, q, dir, "*.down.sql")
}

func runMigrations(ctx context.Context, q querier, dir, pattern string) error {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := q.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		slog.Info("postgres.migrate: applied", slog.String("file", filepath.Base(file)))
	}

	return nil
}
