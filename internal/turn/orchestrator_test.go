package turn

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/gideonheart/voicegateway/internal/domain"
	"github.com/gideonheart/voicegateway/internal/logging"
	"github.com/gideonheart/voicegateway/internal/stt"
)

type fakeProvider struct {
	result domain.SttResult
	err    error
}

func (f fakeProvider) Transcribe(ctx context.Context, audio domain.AudioPayload, tc stt.TranscribeContext) (domain.SttResult, error) {
	return f.result, f.err
}
func (f fakeProvider) HealthCheck(ctx context.Context) stt.HealthStatus {
	return stt.HealthStatus{Healthy: true}
}

type fakeAgentClient struct {
	resp domain.AgentResponse
	err  error
}

func (f fakeAgentClient) SendTranscript(ctx context.Context, sessionKey domain.SessionKey, turnId domain.TurnId, text string) (domain.AgentResponse, error) {
	return f.resp, f.err
}

func TestRunHappyTurn(t *testing.T) {
	provider := fakeProvider{result: domain.SttResult{
		Text: "What is the weather today", Language: "en", ProviderId: domain.ProviderWhisperX, DurationMs: 200,
	}}
	agent := fakeAgentClient{resp: domain.AgentResponse{Text: "AI response to: What is the weather today"}}

	envelope, err := Run(context.Background(), Input{
		TurnId:     "turn-1",
		SessionKey: "sess-1",
		Audio:      domain.AudioPayload{Bytes: []byte("fake-wav-audio-data"), ContentType: "audio/wav"},
	}, Deps{
		Provider: func(id domain.ProviderId) (stt.Provider, bool) { return provider, true },
		ActiveProviderId: domain.ProviderWhisperX,
		SessionClient:    agent,
		Logger:           logging.NewTo(io.Discard),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if envelope.Assistant.FullText != "AI response to: What is the weather today" {
		t.Errorf("fullText = %q", envelope.Assistant.FullText)
	}
	if len(envelope.Assistant.Segments) < 1 {
		t.Fatal("expected at least one segment")
	}
	if envelope.Assistant.Segments[0].Text != "AI response to: What is the weather today" {
		t.Errorf("segments[0].text = %q", envelope.Assistant.Segments[0].Text)
	}
	if envelope.Meta.Provider != domain.ProviderWhisperX {
		t.Errorf("meta.provider = %q", envelope.Meta.Provider)
	}
	if envelope.Timing.SttMs < 0 || envelope.Timing.AgentMs < 0 || envelope.Timing.TotalMs < 0 {
		t.Errorf("negative timing: %+v", envelope.Timing)
	}
}

func TestRunMissingProviderIsOperatorError(t *testing.T) {
	_, err := Run(context.Background(), Input{TurnId: "t1", SessionKey: "s1"}, Deps{
		Provider:         func(id domain.ProviderId) (stt.Provider, bool) { return nil, false },
		ActiveProviderId: domain.ProviderWhisperX,
		Logger:           logging.NewTo(io.Discard),
	})
	opErr, ok := err.(*domain.OperatorError)
	if !ok || opErr.Code() != domain.CodeMissingConfig {
		t.Fatalf("err = %v, want OperatorError(MISSING_CONFIG)", err)
	}
}

func TestRunSttErrorMapsToOperatorError(t *testing.T) {
	provider := fakeProvider{err: domain.NewSttError(domain.SttUnavailable, "boom")}
	_, err := Run(context.Background(), Input{TurnId: "t1", SessionKey: "s1"}, Deps{
		Provider:         func(id domain.ProviderId) (stt.Provider, bool) { return provider, true },
		ActiveProviderId: domain.ProviderWhisperX,
		Logger:           logging.NewTo(io.Discard),
	})
	opErr, ok := err.(*domain.OperatorError)
	if !ok || opErr.Code() != domain.CodeSttUnavailable {
		t.Fatalf("err = %v, want OperatorError(STT_UNAVAILABLE)", err)
	}
}

func TestRunAgentErrorPropagatesNoPartialEnvelope(t *testing.T) {
	provider := fakeProvider{result: domain.SttResult{Text: "hi", ProviderId: domain.ProviderWhisperX}}
	agent := fakeAgentClient{err: errors.New("agent unreachable")}

	envelope, err := Run(context.Background(), Input{TurnId: "t1", SessionKey: "s1"}, Deps{
		Provider:         func(id domain.ProviderId) (stt.Provider, bool) { return provider, true },
		ActiveProviderId: domain.ProviderWhisperX,
		SessionClient:    agent,
		Logger:           logging.NewTo(io.Discard),
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if envelope.Assistant.FullText != "" || len(envelope.Assistant.Segments) != 0 {
		t.Errorf("expected empty envelope on terminal failure, got %+v", envelope)
	}
}
