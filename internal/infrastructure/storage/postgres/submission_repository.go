package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"possync/internal/domain/sale"
)

// SubmissionRepository хранит принятые от касс продажи и корректировки
type SubmissionRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewSubmissionRepository(pool *pgxpool.Pool, log *slog.Logger) *SubmissionRepository {
	return &SubmissionRepository{
		pool: pool,
		log:  log.With("component", "submission_repository"),
	}
}

// Insert добавляет запись. При конфликте по (kind, ref) возвращает id существующей.
func (r *SubmissionRepository) Insert(ctx context.Context, s *sale.Submission) (int64, bool, error) {
	const insert = `
		INSERT INTO submissions (kind, ref, payload, recorded_at, received_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kind, ref) DO NOTHING
		RETURNING id`

	var id int64
	err := r.pool.QueryRow(ctx, insert,
		string(s.Kind), s.Ref, s.Payload, s.RecordedAt, s.ReceivedAt,
	).Scan(&id)
	if err == nil {
		s.ID = id
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.log.Error("failed to insert submission", "kind", s.Kind, "ref", s.Ref, "error", err)
		return 0, false, fmt.Errorf("insert submission: %w", err)
	}

	const existing = `SELECT id FROM submissions WHERE kind = $1 AND ref = $2`

	if err := r.pool.QueryRow(ctx, existing, string(s.Kind), s.Ref).Scan(&id); err != nil {
		r.log.Error("failed to read duplicate submission", "kind", s.Kind, "ref", s.Ref, "error", err)
		return 0, false, fmt.Errorf("read duplicate submission: %w", err)
	}

	s.ID = id
	return id, true, nil
}

func (r *SubmissionRepository) Count(ctx context.Context, kind sale.Kind) (int64, error) {
	const query = `SELECT COUNT(*) FROM submissions WHERE kind = $1`

	var n int64
	if err := r.pool.QueryRow(ctx, query, string(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}
