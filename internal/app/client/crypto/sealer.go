package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	AlgorithmArgon2id = "Argon2id"

	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4

	keyLength  = 32 // AES-256
	saltLength = 16
)

var (
	ErrWrongPassphrase = errors.New("wrong offline passphrase")
	ErrSealerWiped     = errors.New("sealer key wiped")
)

// KeyParams - параметры получения ключа из парольной фразы
type KeyParams struct {
	Algorithm string `json:"algorithm"`
	Salt      []byte `json:"salt"`
	Time      uint32 `json:"time,omitempty"`
	Memory    uint32 `json:"memory,omitempty"`
	Threads   uint8  `json:"threads,omitempty"`
}

// DefaultKeyParams возвращает параметры Argon2id со свежей солью
func DefaultKeyParams() (KeyParams, error) {
	salt, err := GenerateRandomBytes(saltLength)
	if err != nil {
		return KeyParams{}, err
	}

	return KeyParams{
		Algorithm: AlgorithmArgon2id,
		Salt:      salt,
		Time:      argon2Time,
		Memory:    argon2Memory,
		Threads:   argon2Threads,
	}, nil
}

// DeriveKey получает 256-битный ключ из парольной фразы
func DeriveKey(passphrase []byte, p KeyParams) ([]byte, error) {
	if len(p.Salt) == 0 {
		return nil, errors.New("empty salt")
	}

	switch p.Algorithm {
	case AlgorithmArgon2id:
		return argon2.IDKey(passphrase, p.Salt, p.Time, p.Memory, p.Threads, keyLength), nil
	default:
		return nil, fmt.Errorf("неподдерживаемый алгоритм: %s", p.Algorithm)
	}
}

// Sealer шифрует содержимое записей очереди перед записью на диск
type Sealer struct {
	mu  sync.RWMutex
	key []byte
}

func NewSealer(passphrase string, p KeyParams) (*Sealer, error) {
	key, err := DeriveKey([]byte(passphrase), p)
	if err != nil {
		return nil, err
	}
	return &Sealer{key: key}, nil
}

// Seal шифрует данные AES-GCM, nonce идет префиксом
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return nil, ErrSealerWiped
	}

	return encryptWithKey(s.key, plaintext)
}

// Open расшифровывает данные, полученные от Seal
func (s *Sealer) Open(ciphertext []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return nil, ErrSealerWiped
	}

	return decryptWithKey(s.key, ciphertext)
}

// KeyHash возвращает sha256 ключа для проверки парольной фразы
func (s *Sealer) KeyHash() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := sha256.Sum256(s.key)
	return sum[:]
}

// Wipe затирает ключ в памяти. После этого Seal и Open возвращают ErrSealerWiped.
func (s *Sealer) Wipe() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ClearMemory(s.key)
	s.key = nil
}

// encryptWithKey шифрует данные с использованием AES-GCM
func encryptWithKey(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decryptWithKey расшифровывает данные с использованием AES-GCM
func decryptWithKey(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("шифротекст слишком короткий")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка расшифровки: %w", err)
	}

	return plaintext, nil
}

// GenerateRandomBytes генерирует криптографически безопасные случайные байты
func GenerateRandomBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// ClearMemory затирает чувствительные данные нулями
func ClearMemory(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
