package rebuild

import (
	"io"
	"testing"

	"github.com/gideonheart/voicegateway/internal/configstore"
	"github.com/gideonheart/voicegateway/internal/domain"
	"github.com/gideonheart/voicegateway/internal/gatewayclient"
	"github.com/gideonheart/voicegateway/internal/logging"
	"github.com/gideonheart/voicegateway/internal/runtime"
)

func baseConfig() domain.GatewayConfig {
	return domain.GatewayConfig{
		OpenclawGatewayUrl: "ws://localhost:3000",
		SttProvider:        domain.ProviderWhisperX,
		WhisperX:           domain.WhisperXConfig{BaseUrl: "http://localhost:9000", Model: "large-v2"},
		OpenAI:             domain.OpenAIConfig{Model: "whisper-1"},
		CustomHttp:         domain.CustomHttpConfig{Url: "http://localhost:9100"},
		Server:             domain.ServerConfig{Port: 4400, MaxAudioBytes: 1 << 20, RateLimitPerMinute: 60},
	}
}

// TestPatchTouchingMultipleGroupsRebuildsEachOnce verifies that a
// single patch spanning the whisperx and custom-http groups fires the
// change listeners once, replaces both touched provider instances,
// and leaves the untouched openai provider instance in place.
func TestPatchTouchingMultipleGroupsRebuildsEachOnce(t *testing.T) {
	cfg := baseConfig()
	store := configstore.New(cfg)
	bundle := runtime.New()
	for id, p := range BuildInitialProviders(cfg) {
		bundle.SetProvider(id, p)
	}
	logger := logging.NewTo(io.Discard)

	oldOpenAI, _ := bundle.Provider(domain.ProviderOpenAI)
	oldWhisperX, _ := bundle.Provider(domain.ProviderWhisperX)
	oldCustom, _ := bundle.Provider(domain.ProviderCustom)

	sttRebuilds := 0
	store.OnChange(func(patch configstore.Patch, _ domain.GatewayConfig) {
		if patch.WhisperX != nil || patch.CustomHttp != nil {
			sttRebuilds++
		}
	})
	RegisterSTTRebuilder(store, bundle, logger)

	newModel := "large-v3"
	newURL := "http://localhost:9200"
	store.Update(configstore.Patch{
		WhisperX:   &configstore.WhisperXPatch{Model: &newModel},
		CustomHttp: &configstore.CustomHttpPatch{Url: &newURL},
	})

	if sttRebuilds != 1 {
		t.Fatalf("onChange observer fired %d times, want 1 (once per Update call)", sttRebuilds)
	}

	newWhisperX, _ := bundle.Provider(domain.ProviderWhisperX)
	newCustom, _ := bundle.Provider(domain.ProviderCustom)
	newOpenAI, _ := bundle.Provider(domain.ProviderOpenAI)

	if newWhisperX == oldWhisperX {
		t.Error("whisperx provider was not rebuilt")
	}
	if newCustom == oldCustom {
		t.Error("custom http provider was not rebuilt")
	}
	if newOpenAI != oldOpenAI {
		t.Error("openai provider was rebuilt despite its group not being in the patch")
	}
}

// TestSessionClientRebuiltOnlyWhenOpenclawFieldsChange confirms the
// session-client rebuilder ignores patches that touch unrelated
// groups and rebuilds exactly once when the gateway URL changes.
func TestSessionClientRebuiltOnlyWhenOpenclawFieldsChange(t *testing.T) {
	cfg := baseConfig()
	store := configstore.New(cfg)
	bundle := runtime.New()
	logger := logging.NewTo(io.Discard)

	initial := gatewayclient.FromConfig(cfg, logger)
	bundle.SetSessionClient(initial)
	RegisterSessionClientRebuilder(store, bundle, logger)

	newModel := "large-v3"
	store.Update(configstore.Patch{WhisperX: &configstore.WhisperXPatch{Model: &newModel}})
	if bundle.SessionClient() != initial {
		t.Fatal("session client was rebuilt on an unrelated patch")
	}

	newURL := "ws://localhost:3100"
	store.Update(configstore.Patch{OpenclawGatewayUrl: &newURL})
	if bundle.SessionClient() == initial {
		t.Fatal("session client was not rebuilt after openclawGatewayUrl changed")
	}
}
