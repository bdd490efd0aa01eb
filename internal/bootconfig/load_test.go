package bootconfig

import (
	"testing"

	"github.com/gideonheart/voicegateway/internal/domain"
)

func clearGatewayEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"OPENCLAW_GATEWAY_URL", "OPENCLAW_GATEWAY_TOKEN", "OPENCLAW_SESSION_KEY",
		"STT_PROVIDER", "WHISPERX_BASE_URL", "WHISPERX_MODEL", "WHISPERX_LANGUAGE",
		"WHISPERX_POLL_INTERVAL_MS", "WHISPERX_TIMEOUT_MS",
		"OPENAI_API_KEY", "OPENAI_STT_MODEL", "OPENAI_STT_LANGUAGE",
		"CUSTOM_STT_URL", "CUSTOM_STT_AUTH", "CUSTOM_STT_TEXT_FIELD",
		"CUSTOM_STT_LANGUAGE_FIELD", "CUSTOM_STT_CONFIDENCE_FIELD",
		"PORT", "HOST", "CORS_ORIGINS", "MAX_AUDIO_BYTES", "RATE_LIMIT_PER_MINUTE",
	}
	for _, v := range vars {
		t.Setenv(v, "")
	}
}

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	clearGatewayEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SttProvider != domain.ProviderWhisperX {
		t.Errorf("SttProvider = %q, want default whisperx", cfg.SttProvider)
	}
	if cfg.Server.Port != 4400 {
		t.Errorf("Server.Port = %d, want default 4400", cfg.Server.Port)
	}
	if cfg.Server.MaxAudioBytes != 10*1024*1024 {
		t.Errorf("MaxAudioBytes = %d, want default 10MiB", cfg.Server.MaxAudioBytes)
	}
	if len(cfg.Server.CorsOrigins) != 0 {
		t.Errorf("CorsOrigins = %v, want empty when CORS_ORIGINS unset", cfg.Server.CorsOrigins)
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("STT_PROVIDER", "openai")
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SttProvider != domain.ProviderOpenAI {
		t.Errorf("SttProvider = %q, want openai", cfg.SttProvider)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if len(cfg.Server.CorsOrigins) != 2 || cfg.Server.CorsOrigins[0] != "http://a.example" || cfg.Server.CorsOrigins[1] != "http://b.example" {
		t.Errorf("CorsOrigins = %v, want trimmed two-element split", cfg.Server.CorsOrigins)
	}
}

func TestLoadRejectsNonNumericPort(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("PORT", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("Load returned nil error for a non-numeric PORT")
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("STT_PROVIDER", "carrier-pigeon")

	if _, err := Load(); err == nil {
		t.Fatal("Load returned nil error for an unrecognized STT_PROVIDER")
	}
}
