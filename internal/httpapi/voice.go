package httpapi

import (
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/gideonheart/voicegateway/internal/domain"
	"github.com/gideonheart/voicegateway/internal/turn"
	"github.com/gideonheart/voicegateway/internal/validate"
)

const maxLanguageHintLen = 64

func (s *Server) handleVoiceTurn(w http.ResponseWriter, r *http.Request) {
	cfg := s.store.Get()

	contentType := r.Header.Get("Content-Type")
	if !validate.AudioContentType(contentType) {
		writeError(w, s.logger, domain.NewUserError(domain.CodeInvalidContentType, "unsupported content type"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, s.logger, domain.NewUserError(domain.CodeAudioTooLarge, "request body too large or unreadable"))
		return
	}
	if len(body) == 0 {
		writeError(w, s.logger, domain.NewUserError(domain.CodeInvalidAudio, "audio payload is empty"))
		return
	}
	if !validate.AudioSize(int64(len(body)), cfg.Server.MaxAudioBytes) {
		writeError(w, s.logger, domain.NewUserError(domain.CodeAudioTooLarge, "audio payload exceeds maxAudioBytes"))
		return
	}

	languageHint := r.Header.Get("X-Language-Hint")
	if len(languageHint) > maxLanguageHintLen {
		languageHint = languageHint[:maxLanguageHintLen]
	}

	turnId := domain.TurnId(uuid.NewString())
	sessionKey := cfg.OpenclawSessionKey

	envelope, err := turn.Run(r.Context(), turn.Input{
		TurnId:     turnId,
		SessionKey: sessionKey,
		Audio: domain.AudioPayload{
			Bytes:        body,
			ContentType:  contentType,
			LanguageHint: languageHint,
		},
	}, turn.Deps{
		Provider:         s.bundle.Provider,
		ActiveProviderId: cfg.SttProvider,
		SessionClient:    s.bundle.SessionClient(),
		Logger:           s.logger,
		ShapeOpts:        s.shapeOpts,
		Metrics:          s.metrics,
	})
	if err != nil {
		s.recordAudit(r.Context(), turnId, sessionKey, cfg.SttProvider, envelope.Timing, codeOf(err))
		writeError(w, s.logger, err)
		return
	}

	s.recordAudit(r.Context(), turnId, sessionKey, envelope.Meta.Provider, envelope.Timing, "ok")
	respondJSON(w, http.StatusOK, envelope)
}
