package configstore

import (
	"encoding/json"
	"testing"

	"github.com/gideonheart/voicegateway/internal/domain"
)

func baseConfig() domain.GatewayConfig {
	return domain.GatewayConfig{
		OpenclawGatewayUrl:   "ws://localhost:3000",
		OpenclawGatewayToken: "super-secret-token",
		OpenclawSessionKey:   "default",
		SttProvider:          domain.ProviderWhisperX,
		WhisperX: domain.WhisperXConfig{
			BaseUrl: "http://localhost:9000", Model: "base", PollIntervalMs: 2000, TimeoutMs: 30000,
		},
		OpenAI: domain.OpenAIConfig{ApiKey: "sk-secret"},
		CustomHttp: domain.CustomHttpConfig{
			Url: "http://example.com/stt", AuthHeader: "Bearer secret",
		},
		Server: domain.ServerConfig{Port: 4400, MaxAudioBytes: 1 << 20, RateLimitPerMinute: 60},
	}
}

// TestSettingsRoundTripMasksSecrets is testable property #1 from
// spec §8.
func TestSettingsRoundTripMasksSecrets(t *testing.T) {
	store := New(baseConfig())

	patchJSON := []byte(`{"whisperx":{"model":"large-v3"}}`)
	patch, err := ValidateSettingsPatch(patchJSON)
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	store.Update(patch)

	safe := store.GetSafe()
	if safe.WhisperX.Model != "large-v3" {
		t.Errorf("whisperx.model = %q, want large-v3", safe.WhisperX.Model)
	}
	if safe.OpenclawGatewayToken != domain.SecretMask {
		t.Errorf("openclawGatewayToken leaked: %q", safe.OpenclawGatewayToken)
	}
	if safe.OpenAI.ApiKey != domain.SecretMask {
		t.Errorf("openai.apiKey leaked: %q", safe.OpenAI.ApiKey)
	}
	if safe.CustomHttp.AuthHeader != domain.SecretMask {
		t.Errorf("customHttp.authHeader leaked: %q", safe.CustomHttp.AuthHeader)
	}
	// every other field unchanged
	if safe.Server.Port != 4400 {
		t.Errorf("unrelated field server.port mutated: %d", safe.Server.Port)
	}
}

// TestListenersFireExactlyOncePerUpdate is testable property #4.
func TestListenersFireExactlyOncePerUpdate(t *testing.T) {
	store := New(baseConfig())
	var calls []Patch
	store.OnChange(func(p Patch, cfg domain.GatewayConfig) { calls = append(calls, p) })
	store.OnChange(func(p Patch, cfg domain.GatewayConfig) { calls = append(calls, p) })

	patch, err := ValidateSettingsPatch([]byte(`{"server":{"port":9000}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.Update(patch)

	if len(calls) != 2 {
		t.Fatalf("listeners invoked %d times, want 2 (one each)", len(calls))
	}
}

func TestEmptyPatchStillFiresListenersAndLeavesConfigEqual(t *testing.T) {
	store := New(baseConfig())
	fired := 0
	store.OnChange(func(p Patch, cfg domain.GatewayConfig) { fired++ })

	before := store.Get()
	store.Update(Patch{})
	after := store.Get()

	if fired != 1 {
		t.Fatalf("listener fired %d times, want 1", fired)
	}
	beforeJSON, _ := json.Marshal(before)
	afterJSON, _ := json.Marshal(after)
	if string(beforeJSON) != string(afterJSON) {
		t.Errorf("empty patch changed config:\nbefore=%s\nafter=%s", beforeJSON, afterJSON)
	}
}

func TestShallowMergePreservesSiblingFields(t *testing.T) {
	store := New(baseConfig())
	patch, err := ValidateSettingsPatch([]byte(`{"whisperx":{"model":"large-v3"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.Update(patch)

	cfg := store.Get()
	if cfg.WhisperX.BaseUrl != "http://localhost:9000" {
		t.Errorf("sibling field whisperx.baseUrl clobbered: %q", cfg.WhisperX.BaseUrl)
	}
}

func TestUnknownTopLevelKeysIgnored(t *testing.T) {
	_, err := ValidateSettingsPatch([]byte(`{"totallyUnknownField": 123}`))
	if err != nil {
		t.Fatalf("unexpected error for unknown top-level key: %v", err)
	}
}

func TestInvalidConfigRaisesUserError(t *testing.T) {
	_, err := ValidateSettingsPatch([]byte(`{"sttProvider": "not-a-real-provider"}`))
	if err == nil {
		t.Fatal("expected a validation error")
	}
	userErr, ok := err.(*domain.UserError)
	if !ok || userErr.Code() != domain.CodeInvalidConfig {
		t.Fatalf("err = %v, want UserError(INVALID_CONFIG)", err)
	}
}

func TestSnapshotsAreImmutable(t *testing.T) {
	store := New(baseConfig())
	snap := store.Get()
	snap.Server.CorsOrigins = append(snap.Server.CorsOrigins, "http://mutated.example")

	fresh := store.Get()
	if len(fresh.Server.CorsOrigins) != 0 {
		t.Errorf("mutating a snapshot leaked into the store: %v", fresh.Server.CorsOrigins)
	}
}
