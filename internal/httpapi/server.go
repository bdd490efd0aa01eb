// Package httpapi is the HTTP plane: routes, the gate chain
// (readiness, CORS, rate limiting, body-size caps), the settings and
// voice-turn handlers, and the error-taxonomy-to-status mapping.
// Grounded on the teacher's internal/httpapi/server.go (chi router,
// New(cfg, ...) constructor, respondJSON/respondError helpers),
// generalized from samantha's session/websocket surface to this
// gateway's stateless-per-turn HTTP surface.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gideonheart/voicegateway/internal/configstore"
	"github.com/gideonheart/voicegateway/internal/domain"
	"github.com/gideonheart/voicegateway/internal/logging"
	"github.com/gideonheart/voicegateway/internal/observability"
	"github.com/gideonheart/voicegateway/internal/runtime"
	"github.com/gideonheart/voicegateway/internal/shaper"
	"github.com/gideonheart/voicegateway/internal/turnlog"
)

const settingsBodyLimit = 64 * 1024

type Server struct {
	store             *configstore.Store
	bundle            *runtime.Bundle
	readiness         *ReadinessGate
	limiter           *RateLimiter
	logger            logging.Logger
	metrics           *observability.Metrics
	turnAudit         turnlog.Sink
	shapeOpts         shaper.Options
	trustProxyHeaders bool
}

// New builds a Server. trustProxyHeaders controls the rate limiter's
// client-key extraction (spec §10 Open Question 3): false (the
// default a caller should pass absent an explicit boot flag) uses
// r.RemoteAddr; true trusts the first X-Forwarded-For entry.
func New(store *configstore.Store, bundle *runtime.Bundle, readiness *ReadinessGate, metrics *observability.Metrics, turnAudit turnlog.Sink, logger logging.Logger, trustProxyHeaders bool) *Server {
	return &Server{
		store:             store,
		bundle:            bundle,
		readiness:         readiness,
		limiter:           NewRateLimiter(),
		logger:            logger,
		metrics:           metrics,
		turnAudit:         turnAudit,
		shapeOpts:         shaper.Options{},
		trustProxyHeaders: trustProxyHeaders,
	}
}

// Limiter exposes the rate limiter so the startup supervisor can run
// its background prune loop alongside the server.
func (s *Server) Limiter() *RateLimiter { return s.limiter }

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withReadiness)
	r.Use(s.withCORS)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	if s.metrics != nil {
		r.Get("/metrics", s.metrics.Handler().ServeHTTP)
	}
	if s.turnAudit != nil {
		r.Get("/api/turns/recent", s.handleTurnsRecent)
	}

	voiceBody := func(next http.Handler) http.Handler {
		return withMaxBody(func() int64 { return s.store.Get().Server.MaxAudioBytes }, next)
	}
	settingsBody := func(next http.Handler) http.Handler {
		return withMaxBody(func() int64 { return settingsBodyLimit }, next)
	}

	r.With(s.withRateLimit, voiceBody).Post("/api/voice/turn", s.handleVoiceTurn)
	r.With(s.withRateLimit, settingsBody).Post("/api/settings", s.handlePostSettings)
	r.Get("/api/settings", s.handleGetSettings)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "timestamp": time.Now().UTC()})
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	sttHealthy := true
	if p, ok := s.bundle.Provider(s.store.Get().SttProvider); ok {
		sttHealthy = p.HealthCheck(context.Background()).Healthy
	}
	openclawHealthy := true
	if client := s.bundle.SessionClient(); client != nil {
		openclawHealthy = client.HealthCheck().Healthy
	}

	ready := s.readiness.IsOpen() && sttHealthy && openclawHealthy
	status := "ready"
	code := http.StatusOK
	if !ready {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]any{
		"status": status,
		"checks": map[string]bool{"stt": sttHealthy, "openclaw": openclawHealthy},
	})
}

func (s *Server) handleTurnsRecent(w http.ResponseWriter, r *http.Request) {
	records, err := s.turnAudit.Recent(r.Context(), 50)
	if err != nil {
		writeError(w, s.logger, domain.NewOperatorError(domain.CodeInternal, "failed to read turn audit log", err))
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (s *Server) recordAudit(ctx context.Context, turnId domain.TurnId, sessionKey domain.SessionKey, provider domain.ProviderId, timing domain.Timing, outcomeCode string) {
	if s.turnAudit == nil {
		return
	}
	_ = s.turnAudit.Record(ctx, turnlog.Record{
		TurnId:      turnId,
		SessionKey:  sessionKey,
		ProviderId:  provider,
		SttMs:       timing.SttMs,
		AgentMs:     timing.AgentMs,
		TotalMs:     timing.TotalMs,
		OutcomeCode: outcomeCode,
		Timestamp:   time.Now().UTC(),
	})
}
