package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Table names shared by the SQL backends.
const (
	PresentationsTable       = "presentations"
	PresentationHistoryTable = "presentation_history"
	ThemesTable              = "themes"
	ThemeHistoryTable        = "theme_history"
	ActiveThemeColumn        = "active_theme"
)

// EnsureSchema creates the tables if they don't exist and applies forward-compatible
// column additions. It is idempotent and runs on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	for _, stmt := range schemaStatements(dialect) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return addColumnIfMissing(ctx, db, dialect, PresentationsTable, ActiveThemeColumn, "TEXT")
}

func schemaStatements(dialect Dialect) []string {
	var stmts []string
	for _, pair := range [][2]string{
		{PresentationsTable, PresentationHistoryTable},
		{ThemesTable, ThemeHistoryTable},
	} {
		docs, history := pair[0], pair[1]
		if dialect == Postgres {
			stmts = append(stmts,
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
					name TEXT PRIMARY KEY,
					content TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL
				)`, docs),
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
					seq BIGSERIAL PRIMARY KEY,
					id TEXT NOT NULL UNIQUE,
					doc_name TEXT NOT NULL REFERENCES %s(name) ON DELETE CASCADE,
					content TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL
				)`, history, docs),
			)
		} else {
			stmts = append(stmts,
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
					name TEXT PRIMARY KEY,
					content TEXT NOT NULL,
					created_at INTEGER NOT NULL,
					updated_at INTEGER NOT NULL
				)`, docs),
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
					seq INTEGER PRIMARY KEY AUTOINCREMENT,
					id TEXT NOT NULL UNIQUE,
					doc_name TEXT NOT NULL REFERENCES %s(name) ON DELETE CASCADE,
					content TEXT NOT NULL,
					created_at INTEGER NOT NULL
				)`, history, docs),
			)
		}
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_doc_idx ON %s (doc_name, created_at)`, history, history))
	}
	return stmts
}

func addColumnIfMissing(ctx context.Context, db *sql.DB, dialect Dialect, table, column, typ string) error {
	if dialect == Postgres {
		_, err := db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s`, table, column, typ))
		if err != nil {
			return fmt.Errorf("failed to add column %s.%s: %w", table, column, err)
		}
		return nil
	}

	// SQLite has no ADD COLUMN IF NOT EXISTS.
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	if count > 0 {
		return nil
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, typ)); err != nil {
		return fmt.Errorf("failed to add column %s.%s: %w", table, column, err)
	}
	return nil
}
