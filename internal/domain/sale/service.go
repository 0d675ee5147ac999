package sale

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

type Servicer interface {
	Accept(ctx context.Context, kind Kind, req PushRequest) (*Accepted, error)
	Count(ctx context.Context, kind Kind) (int64, error)
}

// Service принимает записи касс идемпотентно по ref
type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *slog.Logger) Servicer {
	return &Service{
		repo: repo,
		log:  log.With("component", "sale_service"),
		now:  time.Now,
	}
}

// Accept сохраняет запись. Повтор с тем же ref возвращает id первой записи и Duplicate = true.
func (s *Service) Accept(ctx context.Context, kind Kind, req PushRequest) (*Accepted, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if req.Ref == uuid.Nil {
		return nil, ErrEmptyRef
	}

	payload := bytes.TrimSpace(req.Payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) || !json.Valid(payload) {
		return nil, ErrInvalidPayload
	}

	sub := &Submission{
		Kind:       kind,
		Ref:        req.Ref,
		Payload:    payload,
		RecordedAt: req.RecordedAt,
		ReceivedAt: s.now().UTC(),
	}
	if sub.RecordedAt.IsZero() {
		sub.RecordedAt = sub.ReceivedAt
	}

	id, duplicate, err := s.repo.Insert(ctx, sub)
	if err != nil {
		s.log.Error("failed to store submission", "kind", kind, "ref", req.Ref, "error", err)
		return nil, fmt.Errorf("store %s: %w", kind, err)
	}

	if duplicate {
		s.log.Info("duplicate submission ignored", "kind", kind, "ref", req.Ref, "id", id)
	} else {
		s.log.Debug("submission accepted", "kind", kind, "ref", req.Ref, "id", id)
	}

	return &Accepted{ID: id, Duplicate: duplicate}, nil
}

func (s *Service) Count(ctx context.Context, kind Kind) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return s.repo.Count(ctx, kind)
}
