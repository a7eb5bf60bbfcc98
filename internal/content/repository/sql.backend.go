package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"deckeditor/config/database"
	"deckeditor/internal/content/model"
	"deckeditor/pkg/apperror"
	"deckeditor/pkg/logger"

	sq "github.com/Masterminds/squirrel"
)

// SQLBackend stores one row per document, keyed by unique name.
type SQLBackend struct {
	DB        *sql.DB
	dialect   database.Dialect
	table     string
	protected string
	now       Clock
}

func NewSQLBackend(db *sql.DB, dialect database.Dialect, table, protected string, clock Clock) *SQLBackend {
	return &SQLBackend{
		DB:        db,
		dialect:   dialect,
		table:     table,
		protected: protected,
		now:       clockOrDefault(clock),
	}
}

func (b *SQLBackend) Read(ctx context.Context, name string) (model.Document, error) {
	query, args, err := b.dialect.Builder().
		Select("content", "updated_at").
		From(b.table).
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return model.Document{}, apperror.IO("build read", err)
	}

	doc := model.Document{Name: name}
	var updatedAt sqlTime
	err = b.DB.QueryRowContext(ctx, query, args...).Scan(&doc.Content, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, apperror.NotFound("document %q", name)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to read %s %s: %v", b.table, name, err)
		return model.Document{}, apperror.IO("read "+name, err)
	}
	doc.UpdatedAt = updatedAt.Time
	return doc, nil
}

// Write upserts the document; a single statement, so readers never see a partial row.
func (b *SQLBackend) Write(ctx context.Context, name, content string) error {
	now := b.dialect.TimeValue(b.now())
	query, args, err := b.dialect.Builder().
		Insert(b.table).
		Columns("name", "content", "created_at", "updated_at").
		Values(name, content, now, now).
		Suffix("ON CONFLICT (name) DO UPDATE SET content = EXCLUDED.content, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return apperror.IO("build write", err)
	}
	if _, err := b.DB.ExecContext(ctx, query, args...); err != nil {
		logger.Sugar.Errorf("Failed to write %s %s: %v", b.table, name, err)
		return apperror.IO("write "+name, err)
	}
	return nil
}

func (b *SQLBackend) List(ctx context.Context) ([]model.Summary, error) {
	query, args, err := b.dialect.Builder().
		Select("name", "updated_at", b.dialect.ByteLength("content")).
		From(b.table).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, apperror.IO("build list", err)
	}

	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Sugar.Errorf("Failed to list %s: %v", b.table, err)
		return nil, apperror.IO("list", err)
	}
	defer rows.Close()

	summaries := []model.Summary{}
	for rows.Next() {
		var s model.Summary
		var updatedAt sqlTime
		if err := rows.Scan(&s.Name, &updatedAt, &s.Size); err != nil {
			return nil, apperror.IO("scan list", err)
		}
		s.UpdatedAt = updatedAt.Time
		s.IsDefault = s.Name == b.protected
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.IO("list", err)
	}
	return summaries, nil
}

func (b *SQLBackend) Delete(ctx context.Context, name string) error {
	if err := checkDeletable(name, b.protected); err != nil {
		return err
	}
	query, args, err := b.dialect.Builder().
		Delete(b.table).
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return apperror.IO("build delete", err)
	}
	result, err := b.DB.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete %s %s: %v", b.table, name, err)
		return apperror.IO("delete "+name, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NotFound("document %q", name)
	}
	return nil
}

// sqlTime scans timestamps from either driver: lib/pq yields time.Time,
// SQLite columns hold unix nanoseconds.
type sqlTime struct {
	time.Time
}

func (t *sqlTime) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = x.UTC()
	case int64:
		t.Time = time.Unix(0, x).UTC()
	case string:
		return t.parse(x)
	case []byte:
		return t.parse(string(x))
	default:
		return fmt.Errorf("unsupported timestamp type %T", v)
	}
	return nil
}

func (t *sqlTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}
