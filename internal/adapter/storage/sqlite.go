package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS exchanges (
    id          TEXT PRIMARY KEY,
    persona     TEXT NOT NULL,
    user_text   TEXT NOT NULL,
    model_text  TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,
    created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exchanges_created ON exchanges(created_at);
`

// SQLiteStore — key-value таблица и журнал обменов в одной базе.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite открывает (или создаёт) базу и применяет схему.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open: %w", err)
	}
	// Один писатель
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite store: get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO kv(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("sqlite store: set %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite store: remove %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// RecordExchange добавляет запись в журнал. Пустой CreatedAt заменяется текущим временем.
func (s *SQLiteStore) RecordExchange(ctx context.Context, e Exchange) error {
	if e.ID == "" {
		return errors.New("sqlite store: exchange without id")
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO exchanges(id, persona, user_text, model_text, duration_ms, created_at)
		VALUES(?, ?, ?, ?, ?, ?)`,
		e.ID, e.Persona, e.UserText, e.ModelText, e.Duration.Milliseconds(), created.UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite store: record exchange: %w", err)
	}
	return nil
}

// Stats считает всего обменов, среднее время ответа и количество за сегодня (локальное время).
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var (
		st    Stats
		avgMs sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			AVG(duration_ms),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		FROM exchanges`, dayStart.UnixMilli()).Scan(&st.Total, &avgMs, &st.Today)
	if err != nil {
		return Stats{}, fmt.Errorf("sqlite store: stats: %w", err)
	}
	if avgMs.Valid {
		st.AvgDuration = time.Duration(avgMs.Float64 * float64(time.Millisecond))
	}
	return st, nil
}
