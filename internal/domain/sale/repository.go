package sale

import "context"

// Repository хранит принятые записи. Insert не создает дубликат по ref
// и сообщает, что запись уже была.
type Repository interface {
	Insert(ctx context.Context, s *Submission) (id int64, duplicate bool, err error)
	Count(ctx context.Context, kind Kind) (int64, error)
}
