package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const entryColumns = `id, ref, payload, sealed, timestamp, status, synced_at, attempts, rejections, last_error, next_attempt_at`

// EntryRepository работает с одной очередью: transactions или inventory_updates
type EntryRepository struct {
	db         *sql.DB
	collection Collection
}

func (r *EntryRepository) Collection() Collection {
	return r.collection
}

// Put вставляет запись (ID == 0) или обновляет существующую.
// Обновление не может вернуть запись из synced/failed_permanent обратно.
func (r *EntryRepository) Put(ctx context.Context, e *Entry) (int64, error) {
	if e.Status == "" {
		e.Status = StatusPending
	}
	if e.NextAttemptAt.IsZero() {
		e.NextAttemptAt = e.Timestamp
	}

	if e.ID == 0 {
		return r.insert(ctx, e)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE `+string(r.collection)+`
		SET payload = ?, sealed = ?, timestamp = ?, status = ?, synced_at = ?,
			attempts = ?, rejections = ?, last_error = ?, next_attempt_at = ?
		WHERE id = ? AND (status = ? OR status = ?)
	`, e.Payload, e.Sealed, e.Timestamp.UTC(), e.Status, nullTime(e.SyncedAt),
		e.Attempts, e.Rejections, e.LastError, e.NextAttemptAt.UTC(),
		e.ID, StatusPending, e.Status)
	if err != nil {
		return 0, fmt.Errorf("update %s entry %d: %w", r.collection, e.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s entry %d: %w", r.collection, e.ID, err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, e.ID); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %s entry %d", ErrStatusRegression, r.collection, e.ID)
	}

	return e.ID, nil
}

func (r *EntryRepository) insert(ctx context.Context, e *Entry) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO `+string(r.collection)+`
			(ref, payload, sealed, timestamp, status, synced_at, attempts, rejections, last_error, next_attempt_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Ref.String(), e.Payload, e.Sealed, e.Timestamp.UTC(), e.Status, nullTime(e.SyncedAt),
		e.Attempts, e.Rejections, e.LastError, e.NextAttemptAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert %s entry: %w", r.collection, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert %s entry: %w", r.collection, err)
	}
	e.ID = id

	return id, nil
}

func (r *EntryRepository) Get(ctx context.Context, id int64) (*Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM `+string(r.collection)+` WHERE id = ?`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s entry %d", ErrNotFound, r.collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s entry %d: %w", r.collection, id, err)
	}

	return e, nil
}

// GetAll возвращает все записи в порядке вставки
func (r *EntryRepository) GetAll(ctx context.Context) ([]*Entry, error) {
	return r.list(ctx, `SELECT `+entryColumns+` FROM `+string(r.collection)+` ORDER BY id`)
}

// Query выбирает записи по вторичному индексу
func (r *EntryRepository) Query(ctx context.Context, index string, value any) ([]*Entry, error) {
	col, err := indexColumn(r.collection, index)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s", err, r.collection, index)
	}

	if t, ok := value.(time.Time); ok {
		value = t.UTC()
	}

	return r.list(ctx,
		`SELECT `+entryColumns+` FROM `+string(r.collection)+` WHERE `+col+` = ? ORDER BY id`, value)
}

// Pending возвращает записи со статусом pending.
// Если dueBefore не нулевое, остаются только те, чей NextAttemptAt уже наступил.
func (r *EntryRepository) Pending(ctx context.Context, dueBefore time.Time) ([]*Entry, error) {
	entries, err := r.Query(ctx, IndexStatus, StatusPending)
	if err != nil {
		return nil, err
	}

	if dueBefore.IsZero() {
		return entries, nil
	}

	due := entries[:0]
	for _, e := range entries {
		if !e.NextAttemptAt.After(dueBefore) {
			due = append(due, e)
		}
	}

	return due, nil
}

// MarkSynced переводит запись pending -> synced
func (r *EntryRepository) MarkSynced(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE `+string(r.collection)+`
		SET status = ?, synced_at = ?, last_error = ''
		WHERE id = ? AND status = ?
	`, StatusSynced, at.UTC(), id, StatusPending)
	if err != nil {
		return fmt.Errorf("mark %s entry %d synced: %w", r.collection, id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark %s entry %d synced: %w", r.collection, id, err)
	}
	if n == 0 {
		return r.notPending(ctx, id)
	}

	return nil
}

// MarkFailed учитывает неудачную попытку отправки. Запись уходит в
// failed_permanent, только когда число отказов сервера (f.Rejected)
// достигает maxRejections (> 0). Сетевые сбои лишь сдвигают next_attempt_at.
// Возвращает новый статус и число попыток.
func (r *EntryRepository) MarkFailed(
	ctx context.Context,
	id int64,
	f Failure,
	maxRejections int,
) (Status, int, error) {
	var (
		status   Status
		attempts int
		rejected int
	)
	if f.Rejected {
		rejected = 1
	}

	err := r.db.QueryRowContext(ctx, `
		UPDATE `+string(r.collection)+`
		SET attempts = attempts + 1,
			rejections = rejections + ?,
			last_error = ?,
			next_attempt_at = ?,
			status = CASE WHEN ? = 1 AND ? > 0 AND rejections + 1 >= ? THEN ? ELSE status END
		WHERE id = ? AND status = ?
		RETURNING status, attempts
	`, rejected, f.Reason, f.Next.UTC(), rejected, maxRejections, maxRejections,
		StatusFailedPermanent, id, StatusPending).
		Scan(&status, &attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, r.notPending(ctx, id)
	}
	if err != nil {
		return "", 0, fmt.Errorf("mark %s entry %d failed: %w", r.collection, id, err)
	}

	return status, attempts, nil
}

// CountByStatus считает записи очереди по статусам
func (r *EntryRepository) CountByStatus(ctx context.Context) (QueueStats, error) {
	var qs QueueStats

	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM `+string(r.collection)+` GROUP BY status`)
	if err != nil {
		return qs, fmt.Errorf("count %s: %w", r.collection, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status Status
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return qs, fmt.Errorf("count %s: %w", r.collection, err)
		}

		switch status {
		case StatusPending:
			qs.Pending = n
		case StatusSynced:
			qs.Synced = n
		case StatusFailedPermanent:
			qs.Failed = n
		}
	}

	return qs, rows.Err()
}

// Clear удаляет все записи коллекции
func (r *EntryRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM `+string(r.collection)); err != nil {
		return fmt.Errorf("clear %s: %w", r.collection, err)
	}
	return nil
}

func (r *EntryRepository) notPending(ctx context.Context, id int64) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s entry %d", ErrNotPending, r.collection, id)
}

func (r *EntryRepository) list(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.collection, err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s entry: %w", r.collection, err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e        Entry
		syncedAt sql.NullTime
		next     sql.NullTime
	)

	err := s.Scan(&e.ID, &e.Ref, &e.Payload, &e.Sealed, &e.Timestamp, &e.Status,
		&syncedAt, &e.Attempts, &e.Rejections, &e.LastError, &next)
	if err != nil {
		return nil, err
	}

	if syncedAt.Valid {
		t := syncedAt.Time
		e.SyncedAt = &t
	}
	if next.Valid {
		e.NextAttemptAt = next.Time
	} else {
		e.NextAttemptAt = e.Timestamp
	}

	return &e, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
