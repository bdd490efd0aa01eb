// Package bootconfig loads the process's initial GatewayConfig from
// the environment, matching the env-var-with-fallback shape of the
// teacher's internal/config/config.go (envOrDefault/durationFromEnv/
// intFromEnv helpers), adapted here to the voice-turn gateway's own
// variable list (spec §6) and to populate a domain.GatewayConfig
// instead of a flat Config struct.
package bootconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gideonheart/voicegateway/internal/domain"
)

// Load reads the environment and applies the defaults named in spec
// §6. A non-numeric value where a positive integer is expected is a
// fatal boot-time configuration error, per spec's explicit note.
func Load() (domain.GatewayConfig, error) {
	cfg := domain.GatewayConfig{
		OpenclawGatewayUrl:   envOrDefault("OPENCLAW_GATEWAY_URL", "ws://localhost:3000"),
		OpenclawGatewayToken: envOrDefault("OPENCLAW_GATEWAY_TOKEN", ""),
		OpenclawSessionKey:   domain.SessionKey(envOrDefault("OPENCLAW_SESSION_KEY", "default")),
		SttProvider:          domain.ProviderId(envOrDefault("STT_PROVIDER", string(domain.ProviderWhisperX))),
		WhisperX: domain.WhisperXConfig{
			BaseUrl:  envOrDefault("WHISPERX_BASE_URL", "http://localhost:9000"),
			Model:    envOrDefault("WHISPERX_MODEL", "large-v2"),
			Language: envOrDefault("WHISPERX_LANGUAGE", ""),
		},
		OpenAI: domain.OpenAIConfig{
			ApiKey:   envOrDefault("OPENAI_API_KEY", ""),
			Model:    envOrDefault("OPENAI_STT_MODEL", "whisper-1"),
			Language: envOrDefault("OPENAI_STT_LANGUAGE", ""),
		},
		CustomHttp: domain.CustomHttpConfig{
			Url:        envOrDefault("CUSTOM_STT_URL", ""),
			AuthHeader: envOrDefault("CUSTOM_STT_AUTH", ""),
			ResponseMapping: domain.ResponseMapping{
				TextField:       envOrDefault("CUSTOM_STT_TEXT_FIELD", "text"),
				LanguageField:   envOrDefault("CUSTOM_STT_LANGUAGE_FIELD", "language"),
				ConfidenceField: envOrDefault("CUSTOM_STT_CONFIDENCE_FIELD", "confidence"),
			},
		},
		Server: domain.ServerConfig{
			Host: envOrDefault("HOST", ""),
		},
	}

	if !domain.ValidProviderId(cfg.SttProvider) {
		return domain.GatewayConfig{}, fmt.Errorf("STT_PROVIDER has invalid value %q", cfg.SttProvider)
	}

	var err error
	cfg.WhisperX.PollIntervalMs, err = int64FromEnv("WHISPERX_POLL_INTERVAL_MS", 2000)
	if err != nil {
		return domain.GatewayConfig{}, err
	}
	cfg.WhisperX.TimeoutMs, err = int64FromEnv("WHISPERX_TIMEOUT_MS", 30000)
	if err != nil {
		return domain.GatewayConfig{}, err
	}
	cfg.Server.Port, err = intFromEnv("PORT", 4400)
	if err != nil {
		return domain.GatewayConfig{}, err
	}
	cfg.Server.MaxAudioBytes, err = int64FromEnv("MAX_AUDIO_BYTES", 10*1024*1024)
	if err != nil {
		return domain.GatewayConfig{}, err
	}
	cfg.Server.RateLimitPerMinute, err = intFromEnv("RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return domain.GatewayConfig{}, err
	}

	if origins := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				cfg.Server.CorsOrigins = append(cfg.Server.CorsOrigins, o)
			}
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: expected an integer, got %q", key, v)
	}
	return n, nil
}

func int64FromEnv(key string, fallback int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: expected an integer, got %q", key, v)
	}
	return n, nil
}
