package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"airtriage/internal/config"
	"airtriage/internal/model"
)

// Store persists attack outcomes and score samples for offline review. The
// in-memory record table stays authoritative; writes here are best-effort
// telemetry and never gate the core.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveAttack(ctx context.Context, record model.AttackRecord) error
	SaveScore(ctx context.Context, obs model.Observation, result model.ScoreResult) error
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type baseStore struct {
	db *sql.DB
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func encodeJSON(value any) string {
	data, _ := json.Marshal(value)
	return string(data)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
