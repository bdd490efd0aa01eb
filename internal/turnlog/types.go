// Package turnlog is an optional, non-authoritative operational audit
// sink for turn timings and outcomes — never transcript content or
// assistant text, so it does not reintroduce the durable-conversation
// -history Non-goal. Grounded on the teacher's internal/memory
// package's DSN-presence factory (memory.NewStore picks Postgres when
// DATABASE_URL is set, in-memory otherwise); the content model here is
// entirely different (operational metadata, not conversation turns).
package turnlog

import (
	"context"
	"time"

	"github.com/gideonheart/voicegateway/internal/domain"
)

// Record is one completed turn's operational metadata.
type Record struct {
	TurnId     domain.TurnId
	SessionKey domain.SessionKey
	ProviderId domain.ProviderId
	SttMs      int64
	AgentMs    int64
	TotalMs    int64
	OutcomeCode string // "ok" or an error code
	Timestamp  time.Time
}

// Sink records turns and reports the most recent ones for the
// diagnostic /api/turns/recent endpoint.
type Sink interface {
	Record(ctx context.Context, r Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close(ctx context.Context) error
}

// NewSink picks a Postgres-backed sink when databaseURL is non-empty,
// an in-memory ring buffer otherwise — mirroring the teacher's
// factory.NewStore(ctx, databaseURL) presence check exactly.
func NewSink(ctx context.Context, databaseURL string) (Sink, error) {
	if databaseURL == "" {
		return NewInMemorySink(256), nil
	}
	return NewPostgresSink(ctx, databaseURL)
}
