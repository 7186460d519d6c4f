package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"branchstock/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration is one embedded goose-format migration file.
type Migration struct {
	Version int64
	Name    string
	Up      string
}

// Migrations returns the embedded migrations ordered by version.
func Migrations() ([]Migration, error) {
	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}

	out := make([]Migration, 0, len(files))
	for _, f := range files {
		name := strings.TrimPrefix(f, "migrations/")
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: missing version prefix", name)
		}
		version, err := strconv.ParseInt(prefix, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", name, err)
		}

		raw, err := migrationFS.ReadFile(f)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Version: version, Name: name, Up: upSection(string(raw))})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// upSection returns the statements between "-- +goose Up" and "-- +goose Down".
func upSection(src string) string {
	const upMarker, downMarker = "-- +goose Up", "-- +goose Down"
	if i := strings.Index(src, upMarker); i >= 0 {
		src = src[i+len(upMarker):]
	}
	if i := strings.Index(src, downMarker); i >= 0 {
		src = src[:i]
	}
	return strings.TrimSpace(src)
}

// Migrate applies pending embedded migrations.
// Applied versions are tracked in goose_db_version, so the goose CLI sees the same state.
func Migrate(ctx context.Context, pool *Pool) error {
	migrations, err := Migrations()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS goose_db_version (
			id         SERIAL PRIMARY KEY,
			version_id BIGINT NOT NULL,
			is_applied BOOLEAN NOT NULL,
			tstamp     TIMESTAMP DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create version table: %w", err)
	}

	var current int64
	err = pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(version_id), 0) FROM goose_db_version WHERE is_applied`).Scan(&current)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		err := pgx.BeginFunc(ctx, pool.Pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.Up); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO goose_db_version (version_id, is_applied) VALUES ($1, TRUE)`, m.Version)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", m.Name, err)
		}
		logger.Info(ctx, "migration applied", "version", m.Version, "name", m.Name)
	}

	return nil
}
