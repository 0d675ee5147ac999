package crypto

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"time"
)

// HeaderKey - ключ в таблице meta, под которым хранится заголовок ключа
const HeaderKey = "sealer_header"

const headerVersion = 1

// MetaStore - хранилище служебных значений (store.Store)
type MetaStore interface {
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error
}

// KeyHeader хранит соль и хеш ключа. Сам ключ на диск не пишется.
type KeyHeader struct {
	Version   int       `json:"version"`
	Params    KeyParams `json:"params"`
	KeyHash   []byte    `json:"key_hash"`
	CreatedAt time.Time `json:"created_at"`
}

// Unlock создает Sealer для парольной фразы. При первом запуске генерирует
// соль и сохраняет заголовок, дальше проверяет фразу по хешу ключа.
func Unlock(ctx context.Context, ms MetaStore, passphrase string) (*Sealer, error) {
	raw, ok, err := ms.GetMeta(ctx, HeaderKey)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения заголовка ключа: %w", err)
	}

	if !ok {
		return initHeader(ctx, ms, passphrase)
	}

	var h KeyHeader
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return nil, fmt.Errorf("ошибка декодирования заголовка ключа: %w", err)
	}

	s, err := NewSealer(passphrase, h.Params)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare(s.KeyHash(), h.KeyHash) != 1 {
		s.Wipe()
		return nil, ErrWrongPassphrase
	}

	return s, nil
}

func initHeader(ctx context.Context, ms MetaStore, passphrase string) (*Sealer, error) {
	params, err := DefaultKeyParams()
	if err != nil {
		return nil, err
	}

	s, err := NewSealer(passphrase, params)
	if err != nil {
		return nil, err
	}

	h := KeyHeader{
		Version:   headerVersion,
		Params:    params,
		KeyHash:   s.KeyHash(),
		CreatedAt: time.Now().UTC(),
	}

	b, err := json.Marshal(h)
	if err != nil {
		s.Wipe()
		return nil, err
	}

	if err := ms.SetMeta(ctx, HeaderKey, string(b)); err != nil {
		s.Wipe()
		return nil, fmt.Errorf("ошибка сохранения заголовка ключа: %w", err)
	}

	return s, nil
}
