package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"GeminiChat/internal/config"
)

// Store — строковое key-value хранилище. Отсутствие ключа не ошибка: ok=false.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// Exchange — одна успешная пара вопрос/ответ для журнала.
type Exchange struct {
	ID        string
	Persona   string
	UserText  string
	ModelText string
	Duration  time.Duration
	CreatedAt time.Time
}

// Stats — сводка по журналу.
type Stats struct {
	Total       int
	AvgDuration time.Duration
	Today       int
}

// Journal пишет историю обменов. Есть только у SQLite хранилища.
type Journal interface {
	RecordExchange(ctx context.Context, e Exchange) error
	Stats(ctx context.Context) (Stats, error)
}

// Open создаёт хранилище по конфигурации.
func Open(cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Kind) {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreFile, "":
		return NewFileStore(cfg.Path)
	case config.StoreSQLite:
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}
