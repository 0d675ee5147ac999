package sale

import "errors"

var (
	ErrEmptyRef       = errors.New("ref is required")
	ErrInvalidPayload = errors.New("payload must be valid JSON")
	ErrUnknownKind    = errors.New("unknown submission kind")
)
