package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gideonheart/voicegateway/internal/domain"
)

// GenericHTTPProvider posts audio to an arbitrary configured endpoint
// with a single auth header, then extracts text/language/confidence
// from the JSON response by configurable dotted paths. Grounded on
// the teacher's extractText field-picking (internal/openclaw/http.go),
// generalized from a fixed field list to configurable dotted paths.
type GenericHTTPProvider struct {
	cfg    domain.CustomHttpConfig
	client *http.Client
}

func NewGenericHTTPProvider(cfg domain.CustomHttpConfig) *GenericHTTPProvider {
	return &GenericHTTPProvider{cfg: cfg, client: &http.Client{}}
}

func (p *GenericHTTPProvider) Transcribe(ctx context.Context, audio domain.AudioPayload, tc TranscribeContext) (domain.SttResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Url, bytes.NewReader(audio.Bytes))
	if err != nil {
		return domain.SttResult{}, domain.NewSttError(domain.SttUnavailable, err.Error())
	}
	req.Header.Set("Content-Type", audio.ContentType)
	if p.cfg.AuthHeader != "" {
		req.Header.Set("Authorization", p.cfg.AuthHeader)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.SttResult{}, domain.NewSttError(domain.SttTimeout, "custom stt timed out")
		}
		return domain.SttResult{}, domain.NewSttError(domain.SttUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.SttResult{}, domain.NewSttError(domain.SttUnavailable, "custom stt non-2xx response")
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.SttResult{}, domain.NewSttError(domain.SttUnavailable, "failed reading custom stt response")
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.SttResult{}, domain.NewSttError(domain.SttUnavailable, "unparseable custom stt response")
	}

	mapping := p.cfg.ResponseMapping
	text, _ := dottedString(parsed, mapping.TextField)
	if strings.TrimSpace(text) == "" {
		return domain.SttResult{}, domain.NewSttError(domain.SttAudioInvalid, "custom stt response missing textField")
	}

	language, _ := dottedString(parsed, mapping.LanguageField)
	result := domain.SttResult{
		Text:       text,
		Language:   language,
		ProviderId: domain.ProviderCustom,
	}
	if conf, ok := dottedFloat(parsed, mapping.ConfidenceField); ok {
		result.Confidence = conf
		result.HasConfidence = true
	}
	return result, nil
}

func (p *GenericHTTPProvider) HealthCheck(ctx context.Context) HealthStatus {
	start := time.Now()
	hctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(hctx, http.MethodHead, p.cfg.Url, nil)
	if err != nil {
		return HealthStatus{Healthy: false, Message: err.Error()}
	}
	if p.cfg.AuthHeader != "" {
		req.Header.Set("Authorization", p.cfg.AuthHeader)
	}
	resp, err := p.client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return HealthStatus{Healthy: false, Message: err.Error(), LatencyMs: latency}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return HealthStatus{Healthy: resp.StatusCode < 500, LatencyMs: latency}
}

// dottedValue walks a dotted path ("result.data.text") through nested
// map[string]any values, as produced by encoding/json unmarshalling
// into `any`.
func dottedValue(obj map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var cur any = obj
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func dottedString(obj map[string]any, path string) (string, bool) {
	v, ok := dottedValue(obj, path)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func dottedFloat(obj map[string]any, path string) (float64, bool) {
	v, ok := dottedValue(obj, path)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
