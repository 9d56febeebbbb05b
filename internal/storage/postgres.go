package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"airtriage/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/airtriage?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attacks (
			id TEXT PRIMARY KEY,
			target_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			progress INTEGER NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			priority TEXT NOT NULL,
			submitted_at TIMESTAMPTZ NOT NULL,
			started_at TIMESTAMPTZ,
			ended_at TIMESTAMPTZ,
			eta_seconds INTEGER NOT NULL,
			result_summary TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attacks_target ON attacks(target_id, kind)`,
		`CREATE TABLE IF NOT EXISTS scores (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			identifier TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			priority TEXT NOT NULL,
			signal_dbm INTEGER NOT NULL,
			packet_count INTEGER NOT NULL,
			device_type TEXT,
			manufacturer TEXT,
			observation_json JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_identifier ON scores(identifier)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *postgresStore) SaveAttack(ctx context.Context, record model.AttackRecord) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attacks (id, target_id, kind, status, progress, score, priority, submitted_at, started_at, ended_at, eta_seconds, result_summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, progress = EXCLUDED.progress,
			ended_at = EXCLUDED.ended_at, result_summary = EXCLUDED.result_summary`,
		record.ID,
		record.TargetID,
		string(record.Kind),
		string(record.Status),
		record.Progress,
		record.Score,
		string(record.Priority),
		record.SubmittedAt.UTC(),
		nullableTime(record.StartedAt),
		nullableTime(record.EndedAt),
		record.ETASeconds,
		record.ResultSummary,
	)
	return err
}

func (s *postgresStore) SaveScore(ctx context.Context, obs model.Observation, result model.ScoreResult) error {
	if s.db == nil || obs.Identifier == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (ts, identifier, score, priority, signal_dbm, packet_count, device_type, manufacturer, observation_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		nowUTC(),
		obs.Identifier,
		result.Score,
		string(result.Priority),
		obs.SignalDbm,
		obs.PacketCount,
		obs.DeviceType,
		obs.Manufacturer,
		encodeJSON(obs),
	)
	return err
}
