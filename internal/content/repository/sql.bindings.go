package repository

import (
	"context"
	"database/sql"
	"errors"

	"deckeditor/config/database"
	"deckeditor/pkg/apperror"
	"deckeditor/pkg/logger"

	sq "github.com/Masterminds/squirrel"
)

// SQLBindings stores the active theme in a column of the presentations table.
type SQLBindings struct {
	DB      *sql.DB
	dialect database.Dialect
}

func NewSQLBindings(db *sql.DB, dialect database.Dialect) *SQLBindings {
	return &SQLBindings{DB: db, dialect: dialect}
}

func (b *SQLBindings) ActiveTheme(ctx context.Context, doc string) (string, error) {
	query, args, err := b.dialect.Builder().
		Select(database.ActiveThemeColumn).
		From(database.PresentationsTable).
		Where(sq.Eq{"name": doc}).
		ToSql()
	if err != nil {
		return "", apperror.IO("build active theme", err)
	}
	var theme sql.NullString
	err = b.DB.QueryRowContext(ctx, query, args...).Scan(&theme)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperror.NotFound("document %q", doc)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to read active theme of %s: %v", doc, err)
		return "", apperror.IO("active theme "+doc, err)
	}
	return theme.String, nil
}

func (b *SQLBindings) SetActiveTheme(ctx context.Context, doc, theme string) error {
	result, err := b.update(ctx, doc, theme)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NotFound("document %q", doc)
	}
	return nil
}

func (b *SQLBindings) DocumentsUsing(ctx context.Context, theme string) ([]string, error) {
	query, args, err := b.dialect.Builder().
		Select("name").
		From(database.PresentationsTable).
		Where(sq.Eq{database.ActiveThemeColumn: theme}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, apperror.IO("build theme usage", err)
	}
	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Sugar.Errorf("Failed to query documents using theme %s: %v", theme, err)
		return nil, apperror.IO("theme usage "+theme, err)
	}
	defer rows.Close()

	var docs []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperror.IO("scan theme usage", err)
		}
		docs = append(docs, name)
	}
	return docs, rows.Err()
}

func (b *SQLBindings) Unbind(ctx context.Context, doc string) error {
	_, err := b.update(ctx, doc, nil)
	return err
}

func (b *SQLBindings) update(ctx context.Context, doc string, theme any) (sql.Result, error) {
	query, args, err := b.dialect.Builder().
		Update(database.PresentationsTable).
		Set(database.ActiveThemeColumn, theme).
		Where(sq.Eq{"name": doc}).
		ToSql()
	if err != nil {
		return nil, apperror.IO("build bind theme", err)
	}
	result, err := b.DB.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Sugar.Errorf("Failed to bind theme for %s: %v", doc, err)
		return nil, apperror.IO("bind theme "+doc, err)
	}
	return result, nil
}
