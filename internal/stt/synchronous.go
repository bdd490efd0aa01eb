package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gideonheart/voicegateway/internal/domain"
)

// maxSyncUploadBytes is the upstream size limit enforced locally
// before sending, so an oversized payload never makes the round trip.
const maxSyncUploadBytes = 25 * 1024 * 1024

// SyncProvider performs a single request/response round trip against
// a cloud transcription API (the OpenAI shape): one POST, one parsed
// JSON response, no polling.
type SyncProvider struct {
	cfg    domain.OpenAIConfig
	client *http.Client
	apiURL string
}

// NewSyncProvider constructs a provider bound to cfg. apiURL defaults
// to the OpenAI transcriptions endpoint when empty, kept as a
// parameter so tests can point it at an httptest server.
func NewSyncProvider(cfg domain.OpenAIConfig, apiURL string) *SyncProvider {
	if apiURL == "" {
		apiURL = "https://api.openai.com/v1/audio/transcriptions"
	}
	return &SyncProvider{cfg: cfg, client: &http.Client{}, apiURL: apiURL}
}

type syncResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

func (p *SyncProvider) Transcribe(ctx context.Context, audio domain.AudioPayload, tc TranscribeContext) (domain.SttResult, error) {
	if int64(len(audio.Bytes)) > maxSyncUploadBytes {
		return domain.SttResult{}, domain.NewSttError(domain.SttAudioInvalid, "audio exceeds upstream size limit")
	}

	start := time.Now()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio")
	if err != nil {
		return domain.SttResult{}, domain.NewSttError(domain.SttUnknown, err.Error())
	}
	if _, err := part.Write(audio.Bytes); err != nil {
		return domain.SttResult{}, domain.NewSttError(domain.SttUnknown, err.Error())
	}
	model := p.cfg.Model
	if model == "" {
		model = "whisper-1"
	}
	_ = writer.WriteField("model", model)
	lang := audio.LanguageHint
	if lang == "" {
		lang = p.cfg.Language
	}
	if lang != "" {
		_ = writer.WriteField("language", lang)
	}
	if err := writer.Close(); err != nil {
		return domain.SttResult{}, domain.NewSttError(domain.SttUnknown, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, &body)
	if err != nil {
		return domain.SttResult{}, domain.NewSttError(domain.SttUnknown, err.Error())
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.cfg.ApiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.SttResult{}, domain.NewSttError(domain.SttTimeout, "openai transcription timed out")
		}
		return domain.SttResult{}, domain.NewSttError(domain.SttUnavailable, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.SttResult{}, domain.NewSttError(domain.SttAuth, "openai rejected credentials")
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.SttResult{}, domain.NewSttError(domain.SttRateLimited, "openai rate limited the request")
	case resp.StatusCode >= 500:
		return domain.SttResult{}, domain.NewSttError(domain.SttUnavailable, "openai upstream error")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return domain.SttResult{}, domain.NewSttError(domain.SttUnknown, "unexpected openai status")
	}

	var parsed syncResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.SttResult{}, domain.NewSttError(domain.SttUnavailable, "unparseable openai response")
	}

	return domain.SttResult{
		Text:       parsed.Text,
		Language:   parsed.Language,
		ProviderId: domain.ProviderOpenAI,
		Model:      model,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func (p *SyncProvider) HealthCheck(ctx context.Context) HealthStatus {
	start := time.Now()
	hctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(hctx, http.MethodGet, p.apiURL, nil)
	if err != nil {
		return HealthStatus{Healthy: false, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.ApiKey)
	resp, err := p.client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return HealthStatus{Healthy: false, Message: err.Error(), LatencyMs: latency}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	// The transcriptions endpoint rejects a bare GET with 405, which
	// still proves the host is reachable and routing correctly.
	healthy := resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden
	return HealthStatus{Healthy: healthy, LatencyMs: latency}
}
