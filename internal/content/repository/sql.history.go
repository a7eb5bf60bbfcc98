package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"deckeditor/config/database"
	"deckeditor/internal/content/model"
	"deckeditor/pkg/apperror"
	"deckeditor/pkg/logger"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// recencyOrder sorts newest first; seq breaks created_at ties by insertion order.
var recencyOrder = []string{"created_at DESC", "seq DESC"}

// SQLLedger stores snapshots as rows of a history table.
type SQLLedger struct {
	DB      *sql.DB
	dialect database.Dialect
	table   string
	limit   int
	now     Clock
	newID   func() string
}

func NewSQLLedger(db *sql.DB, dialect database.Dialect, table string, limit int, clock Clock) *SQLLedger {
	return &SQLLedger{
		DB:      db,
		dialect: dialect,
		table:   table,
		limit:   limitOrDefault(limit),
		now:     clockOrDefault(clock),
		newID:   uuid.NewString,
	}
}

// Snapshot inserts the row and trims the document's history to the newest N in one transaction.
func (l *SQLLedger) Snapshot(ctx context.Context, name, content string) error {
	insert, insertArgs, err := l.dialect.Builder().
		Insert(l.table).
		Columns("id", "doc_name", "content", "created_at").
		Values(l.newID(), name, content, l.dialect.TimeValue(l.now())).
		ToSql()
	if err != nil {
		return apperror.IO("build snapshot", err)
	}
	trim, trimArgs, err := l.dialect.Builder().
		Delete(l.table).
		Where(sq.Eq{"doc_name": name}).
		Where(sq.Expr(fmt.Sprintf(
			"id NOT IN (SELECT id FROM %s WHERE doc_name = ? ORDER BY created_at DESC, seq DESC LIMIT ?)", l.table),
			name, l.limit)).
		ToSql()
	if err != nil {
		return apperror.IO("build trim", err)
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		logger.Sugar.Errorf("Failed to begin snapshot of %s: %v", name, err)
		return apperror.IO("snapshot "+name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
		logger.Sugar.Errorf("Failed to snapshot %s: %v", name, err)
		return apperror.IO("snapshot "+name, err)
	}
	if _, err := tx.ExecContext(ctx, trim, trimArgs...); err != nil {
		logger.Sugar.Errorf("Failed to trim history of %s: %v", name, err)
		return apperror.IO("trim "+name, err)
	}
	if err := tx.Commit(); err != nil {
		logger.Sugar.Errorf("Failed to commit snapshot of %s: %v", name, err)
		return apperror.IO("snapshot "+name, err)
	}
	return nil
}

func (l *SQLLedger) List(ctx context.Context, name string) ([]model.HistoryEntry, error) {
	query, args, err := l.dialect.Builder().
		Select("id", "created_at", l.dialect.ByteLength("content")).
		From(l.table).
		Where(sq.Eq{"doc_name": name}).
		OrderBy(recencyOrder...).
		Limit(uint64(l.limit)).
		ToSql()
	if err != nil {
		return nil, apperror.IO("build history", err)
	}

	rows, err := l.DB.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Sugar.Errorf("Failed to list history of %s: %v", name, err)
		return nil, apperror.IO("history "+name, err)
	}
	defer rows.Close()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		var e model.HistoryEntry
		var createdAt sqlTime
		if err := rows.Scan(&e.ID, &createdAt, &e.Size); err != nil {
			return nil, apperror.IO("scan history", err)
		}
		e.Position = len(entries)
		e.CreatedAt = createdAt.Time
		e.Label = model.HistoryLabel(e.Position)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.IO("history "+name, err)
	}
	return entries, nil
}

func (l *SQLLedger) Fetch(ctx context.Context, name string, position int) (model.Snapshot, error) {
	if position < 0 || position >= l.limit {
		return model.Snapshot{}, apperror.NotFound("history position %d of %q", position, name)
	}
	query, args, err := l.dialect.Builder().
		Select("id", "content", "created_at").
		From(l.table).
		Where(sq.Eq{"doc_name": name}).
		OrderBy(recencyOrder...).
		Limit(1).
		Offset(uint64(position)).
		ToSql()
	if err != nil {
		return model.Snapshot{}, apperror.IO("build fetch", err)
	}

	snap := model.Snapshot{Name: name}
	var createdAt sqlTime
	err = l.DB.QueryRowContext(ctx, query, args...).Scan(&snap.ID, &snap.Content, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, apperror.NotFound("history position %d of %q", position, name)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to fetch history %d of %s: %v", position, name, err)
		return model.Snapshot{}, apperror.IO("fetch "+name, err)
	}
	snap.CreatedAt = createdAt.Time
	return snap, nil
}

func (l *SQLLedger) Purge(ctx context.Context, name string) error {
	query, args, err := l.dialect.Builder().
		Delete(l.table).
		Where(sq.Eq{"doc_name": name}).
		ToSql()
	if err != nil {
		return apperror.IO("build purge", err)
	}
	if _, err := l.DB.ExecContext(ctx, query, args...); err != nil {
		logger.Sugar.Errorf("Failed to purge history of %s: %v", name, err)
		return apperror.IO("purge "+name, err)
	}
	return nil
}
