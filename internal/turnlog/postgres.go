package turnlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gideonheart/voicegateway/internal/domain"
)

// PostgresSink persists turn audit records via pgx, the teacher's own
// Postgres driver. The schema is intentionally narrow — no message
// content column exists, so this sink cannot be repurposed into a
// conversation-history store without a schema change outside this
// package's scope.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("turnlog: connect: %w", err)
	}
	sink := &PostgresSink{pool: pool}
	if err := sink.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return sink, nil
}

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS turn_audit (
			turn_id      TEXT NOT NULL,
			session_key  TEXT NOT NULL,
			provider_id  TEXT NOT NULL,
			stt_ms       BIGINT NOT NULL,
			agent_ms     BIGINT NOT NULL,
			total_ms     BIGINT NOT NULL,
			outcome_code TEXT NOT NULL,
			recorded_at  TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("turnlog: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresSink) Record(ctx context.Context, r Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO turn_audit (turn_id, session_key, provider_id, stt_ms, agent_ms, total_ms, outcome_code, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, string(r.TurnId), string(r.SessionKey), string(r.ProviderId), r.SttMs, r.AgentMs, r.TotalMs, r.OutcomeCode, r.Timestamp)
	if err != nil {
		return fmt.Errorf("turnlog: insert: %w", err)
	}
	return nil
}

func (s *PostgresSink) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT turn_id, session_key, provider_id, stt_ms, agent_ms, total_ms, outcome_code, recorded_at
		FROM turn_audit ORDER BY recorded_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("turnlog: query: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var turnId, sessionKey, providerId string
		if err := rows.Scan(&turnId, &sessionKey, &providerId, &r.SttMs, &r.AgentMs, &r.TotalMs, &r.OutcomeCode, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("turnlog: scan: %w", err)
		}
		r.TurnId = domain.TurnId(turnId)
		r.SessionKey = domain.SessionKey(sessionKey)
		r.ProviderId = domain.ProviderId(providerId)
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *PostgresSink) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}
