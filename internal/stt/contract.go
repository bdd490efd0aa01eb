// Package stt defines the provider contract every speech-to-text
// backend must satisfy and the three concrete adapters: async-poll,
// synchronous, and generic HTTP. The contract shape is grounded on
// the narrow provider-interface pattern in the example pack's voice
// package, generalized to the two-method, variant-result contract
// spec.md §4.1 requires instead of the teacher's event-channel
// streaming interface (this gateway has no streaming Non-goal
// exception).
package stt

import (
	"context"

	"github.com/gideonheart/voicegateway/internal/domain"
)

// TranscribeContext carries the per-call metadata a provider needs
// beyond the audio bytes themselves. CancelSignal, via ctx, must be
// treated as a hard interrupt: providers tear down in-flight I/O and
// return within bounded wind-down time when ctx is done.
type TranscribeContext struct {
	TurnId       domain.TurnId
	LanguageHint string
}

// HealthStatus is the result of a cheap readiness probe.
type HealthStatus struct {
	Healthy   bool
	Message   string
	LatencyMs int64
}

// Provider is the closed, two-method contract every STT adapter
// implements. Providers are pure consumers of configuration supplied
// at construction time; they never read the config store themselves.
// When configuration changes, a rebuilder constructs a fresh instance
// and swaps it in (see internal/rebuild) rather than mutating this
// one in place.
type Provider interface {
	Transcribe(ctx context.Context, audio domain.AudioPayload, tc TranscribeContext) (domain.SttResult, error)
	HealthCheck(ctx context.Context) HealthStatus
}
