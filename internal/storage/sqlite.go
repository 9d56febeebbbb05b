package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"airtriage/internal/model"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:airtriage.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
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
			score REAL NOT NULL,
			priority TEXT NOT NULL,
			submitted_at TEXT NOT NULL,
			started_at TEXT,
			ended_at TEXT,
			eta_seconds INTEGER NOT NULL,
			result_summary TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attacks_target ON attacks(target_id, kind)`,
		`CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			identifier TEXT NOT NULL,
			score REAL NOT NULL,
			priority TEXT NOT NULL,
			signal_dbm INTEGER NOT NULL,
			packet_count INTEGER NOT NULL,
			device_type TEXT,
			manufacturer TEXT,
			observation_json TEXT NOT NULL
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

func (s *sqliteStore) SaveAttack(ctx context.Context, record model.AttackRecord) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO attacks (id, target_id, kind, status, progress, score, priority, submitted_at, started_at, ended_at, eta_seconds, result_summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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

func (s *sqliteStore) SaveScore(ctx context.Context, obs model.Observation, result model.ScoreResult) error {
	if s.db == nil || obs.Identifier == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (ts, identifier, score, priority, signal_dbm, packet_count, device_type, manufacturer, observation_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
