package syncer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"possync/internal/offline/store"
)

// Trigger - причина запуска прохода синхронизации
type Trigger string

const (
	TriggerOnline     Trigger = "online"
	TriggerManual     Trigger = "manual"
	TriggerBackground Trigger = "background"
	TriggerPeriodic   Trigger = "periodic"
)

// Item - запись очереди в том виде, в котором она уходит на сервер
type Item struct {
	Collection store.Collection
	Ref        uuid.UUID
	Payload    json.RawMessage
	RecordedAt time.Time
}

// PushError - неудачная отправка одной записи. Не выходит за пределы Sync,
// запись остается pending до следующего прохода.
type PushError struct {
	Collection store.Collection
	EntryID    int64
	Ref        uuid.UUID
	Attempts   int
	Err        error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push %s entry %d (ref %s): %v", e.Collection, e.EntryID, e.Ref, e.Err)
}

func (e *PushError) Unwrap() error {
	return e.Err
}

// Rejecter - ошибка отправки, знающая, отклонил ли сервер саму запись
type Rejecter interface {
	Rejected() bool
}

// IsRejection сообщает, что сервер окончательно отклонил запись.
// Сетевые ошибки, таймауты и ответы 5xx отказом не считаются.
func IsRejection(err error) bool {
	var r Rejecter
	return errors.As(err, &r) && r.Rejected()
}

// CollectionResult - итог прохода по одной коллекции
type CollectionResult struct {
	Collection   store.Collection `json:"collection"`
	Attempted    int              `json:"attempted"`
	Synced       int              `json:"synced"`
	Failed       int              `json:"failed"`
	DeadLettered int              `json:"dead_lettered"`
}

// Result - итог одного прохода
type Result struct {
	Trigger     Trigger            `json:"trigger"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
	Collections []CollectionResult `json:"collections"`
	Failures    []*PushError       `json:"-"`
	// Shared - вызов присоединился к уже идущему проходу
	Shared bool `json:"shared"`
	// Skipped - периодический проход пропущен, сеть недоступна
	Skipped bool `json:"skipped"`
}

// Total суммирует результаты по коллекциям
func (r *Result) Total() CollectionResult {
	var t CollectionResult
	for _, c := range r.Collections {
		t.Attempted += c.Attempted
		t.Synced += c.Synced
		t.Failed += c.Failed
		t.DeadLettered += c.DeadLettered
	}
	return t
}

// For возвращает результат по коллекции
func (r *Result) For(c store.Collection) CollectionResult {
	for _, cr := range r.Collections {
		if cr.Collection == c {
			return cr
		}
	}
	return CollectionResult{Collection: c}
}

// Stats - накопленные счетчики движка с момента запуска
type Stats struct {
	Passes       int       `json:"passes"`
	Pushed       int       `json:"pushed"`
	Synced       int       `json:"synced"`
	Failed       int       `json:"failed"`
	DeadLettered int       `json:"dead_lettered"`
	LastPassAt   time.Time `json:"last_pass_at"`
	LastSuccess  time.Time `json:"last_success"`
	LastFailure  time.Time `json:"last_failure"`
}

// Backoff считает задержку перед следующей попыткой: base * 2^(attempts-1), не больше ceiling
func Backoff(attempts int, base, ceiling time.Duration) time.Duration {
	if attempts <= 0 || base <= 0 {
		return 0
	}

	d := base
	for i := 1; i < attempts; i++ {
		if d > math.MaxInt64/2 {
			break
		}
		d *= 2
		if ceiling > 0 && d >= ceiling {
			return ceiling
		}
	}

	if ceiling > 0 && d > ceiling {
		return ceiling
	}
	return d
}
