// Package turn implements the per-request sequencer: select provider
// by id, transcribe, send the transcript to the agent, shape the
// response, and assemble the reply envelope with timing. Grounded on
// the stage-sequencing-with-timing shape of the teacher's voice
// orchestrator, generalized from its TTS-producing pipeline to this
// gateway's STT-then-agent pipeline.
package turn

import (
	"context"
	"time"

	"github.com/gideonheart/voicegateway/internal/domain"
	"github.com/gideonheart/voicegateway/internal/logging"
	"github.com/gideonheart/voicegateway/internal/observability"
	"github.com/gideonheart/voicegateway/internal/shaper"
	"github.com/gideonheart/voicegateway/internal/stt"
)

// AgentClient is the narrow slice of gatewayclient.Client the
// orchestrator depends on, named here so tests can supply a fake
// without standing up a real WebSocket connection.
type AgentClient interface {
	SendTranscript(ctx context.Context, sessionKey domain.SessionKey, turnId domain.TurnId, text string) (domain.AgentResponse, error)
}

// Input is what one orchestrated turn needs from the HTTP layer.
type Input struct {
	TurnId     domain.TurnId
	SessionKey domain.SessionKey
	Audio      domain.AudioPayload
}

// Deps is the dependency bundle §4.7 names: a provider lookup, the
// active provider id, the session client, and a logger. Callers pass
// a closure for Provider so a turn already holding an instance keeps
// using it even if a rebuild swaps the shared map mid-turn.
type Deps struct {
	Provider         func(id domain.ProviderId) (stt.Provider, bool)
	ActiveProviderId domain.ProviderId
	SessionClient    AgentClient
	Logger           logging.Logger
	ShapeOpts        shaper.Options
	// Metrics is optional; a nil Metrics disables instrumentation so
	// orchestrator tests don't need to stand up a registry.
	Metrics *observability.Metrics
}

// Run executes the sequence in spec §4.7 and returns the assembled
// reply envelope, or the single typed error that terminated the turn
// — no partial envelope is ever returned on failure.
func Run(ctx context.Context, in Input, deps Deps) (domain.ReplyEnvelope, error) {
	logger := deps.Logger.WithTurn(string(in.TurnId))
	totalStart := time.Now()

	provider, ok := deps.Provider(deps.ActiveProviderId)
	if !ok {
		if deps.Metrics != nil {
			deps.Metrics.TurnsTotal.Inc()
		}
		return domain.ReplyEnvelope{}, domain.NewOperatorError(domain.CodeMissingConfig, "no stt provider registered for active provider id", nil)
	}

	logger.Info("stt transcribe starting")
	sttStart := time.Now()
	result, err := provider.Transcribe(ctx, in.Audio, stt.TranscribeContext{
		TurnId:       in.TurnId,
		LanguageHint: in.Audio.LanguageHint,
	})
	sttMs := time.Since(sttStart).Milliseconds()
	if deps.Metrics != nil {
		deps.Metrics.ObserveStage("stt", sttMs)
	}
	if err != nil {
		logger.Error(err, "stt transcribe failed")
		mapped := mapSttError(err)
		if deps.Metrics != nil {
			deps.Metrics.ObserveSttError(codeOf(mapped), string(deps.ActiveProviderId))
			deps.Metrics.TurnsTotal.Inc()
		}
		return domain.ReplyEnvelope{}, mapped
	}
	logger.Info("stt transcribe complete")

	logger.Info("agent send starting")
	agentStart := time.Now()
	response, err := deps.SessionClient.SendTranscript(ctx, in.SessionKey, in.TurnId, result.Text)
	agentMs := time.Since(agentStart).Milliseconds()
	if deps.Metrics != nil {
		deps.Metrics.ObserveStage("agent", agentMs)
	}
	if err != nil {
		logger.Error(err, "agent send failed")
		if deps.Metrics != nil {
			deps.Metrics.ObserveAgentError(codeOf(err))
			deps.Metrics.TurnsTotal.Inc()
		}
		return domain.ReplyEnvelope{}, err
	}
	logger.Info("agent send complete")

	shaped := shaper.Shape(response.Text, deps.ShapeOpts)
	totalMs := time.Since(totalStart).Milliseconds()
	if deps.Metrics != nil {
		deps.Metrics.ObserveStage("total", totalMs)
		deps.Metrics.TurnsTotal.Inc()
	}

	return domain.ReplyEnvelope{
		TurnId:     in.TurnId,
		SessionKey: in.SessionKey,
		Assistant: domain.Assistant{
			FullText:  shaped.FullText,
			Segments:  shaped.Segments,
			Truncated: shaped.Truncated,
		},
		Timing: domain.Timing{SttMs: sttMs, AgentMs: agentMs, TotalMs: totalMs},
		Meta:   domain.Meta{Provider: result.ProviderId, Model: result.Model},
	}, nil
}

// mapSttError translates the internal SttError variant into the
// UserError/OperatorError boundary the HTTP layer expects, per the
// propagation policy in spec §7.
func mapSttError(err error) error {
	sttErr, ok := err.(*domain.SttError)
	if !ok {
		return domain.NewOperatorError(domain.CodeInternal, "unexpected stt error", err)
	}
	switch sttErr.Code {
	case domain.SttAudioInvalid:
		return domain.NewUserError(domain.CodeInvalidAudio, sttErr.Message)
	case domain.SttTimeout, domain.SttRateLimited, domain.SttAuth:
		return domain.NewOperatorError(domain.CodeSttUnavailable, "stt provider unavailable", sttErr)
	default:
		return domain.NewOperatorError(domain.CodeSttUnavailable, "stt provider unavailable", sttErr)
	}
}

// codeOf extracts a metric-label-friendly code from a CodedError,
// falling back to "unknown" for errors that escaped the domain
// taxonomy (e.g. a transport error from gatewayclient).
func codeOf(err error) string {
	if coded, ok := err.(domain.CodedError); ok {
		return coded.Code()
	}
	return "unknown"
}
