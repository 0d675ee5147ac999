package sale

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind - тип принятой от кассы записи
type Kind string

const (
	KindTransaction     Kind = "transaction"
	KindInventoryUpdate Kind = "inventory_update"
)

func (k Kind) Valid() bool {
	return k == KindTransaction || k == KindInventoryUpdate
}

// Submission - продажа или корректировка остатков, принятая сервером
type Submission struct {
	ID         int64           `json:"id"`
	Kind       Kind            `json:"kind"`
	Ref        uuid.UUID       `json:"ref"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt time.Time       `json:"recorded_at"`
	ReceivedAt time.Time       `json:"received_at"`
}

// PushRequest - тело запроса кассы. Ref - ключ идемпотентности,
// одинаковый для всех повторов одной записи.
type PushRequest struct {
	Ref        uuid.UUID       `json:"ref" doc:"Client-generated idempotency key"`
	Payload    json.RawMessage `json:"payload" doc:"Sale or stock delta as recorded by the till"`
	RecordedAt time.Time       `json:"recorded_at" doc:"Time the till recorded the entry"`
}

// PushResponse - ответ на отправку записи
type PushResponse struct {
	Status    string `json:"status" example:"Ok"`
	ID        int64  `json:"id"`
	Duplicate bool   `json:"duplicate" doc:"Entry with this ref was already accepted"`
}

// Accepted - результат приема записи
type Accepted struct {
	ID        int64
	Duplicate bool
}
