package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gideonheart/voicegateway/internal/domain"
)

// minPollInterval is the hard lower bound on poll cadence: spec §4.1
// requires cadence never exceed 1 Hz regardless of configuration.
const minPollInterval = 1000 * time.Millisecond

// AsyncPollProvider submits audio to a task-based transcription
// backend (the WhisperX shape) and polls a status endpoint until the
// task reaches a terminal state or the overall timeout elapses.
type AsyncPollProvider struct {
	cfg    domain.WhisperXConfig
	client *http.Client
}

// NewAsyncPollProvider constructs a provider bound to cfg at this
// instant; it never re-reads the config store. A rebuilder replaces
// the whole instance when whisperx config changes.
func NewAsyncPollProvider(cfg domain.WhisperXConfig) *AsyncPollProvider {
	return &AsyncPollProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 0}, // per-request deadlines via ctx
	}
}

type taskSubmitResponse struct {
	TaskId string `json:"taskId"`
}

type taskStatusResponse struct {
	Status     string  `json:"status"`
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence *float64 `json:"confidence"`
}

func (p *AsyncPollProvider) pollInterval() time.Duration {
	d := time.Duration(p.cfg.PollIntervalMs) * time.Millisecond
	if d < minPollInterval {
		return minPollInterval
	}
	return d
}

func (p *AsyncPollProvider) overallTimeout() time.Duration {
	if p.cfg.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.cfg.TimeoutMs) * time.Millisecond
}

// Transcribe submits audio, then polls until COMPLETED, FAILED,
// overall timeout, or cancellation. Any status other than those two
// terminal values is treated as "continue polling".
func (p *AsyncPollProvider) Transcribe(ctx context.Context, audio domain.AudioPayload, tc TranscribeContext) (domain.SttResult, error) {
	deadlineCtx, cancel := context.WithTimeout(ctx, p.overallTimeout())
	defer cancel()

	taskId, err := p.submit(deadlineCtx, audio)
	if err != nil {
		return domain.SttResult{}, mapTransportErr(err, deadlineCtx)
	}

	ticker := time.NewTicker(p.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.SttResult{}, domain.NewSttError(domain.SttTimeout, "transcription cancelled")
		case <-deadlineCtx.Done():
			return domain.SttResult{}, domain.NewSttError(domain.SttTimeout, "transcription timed out")
		case <-ticker.C:
			status, err := p.poll(deadlineCtx, taskId)
			if err != nil {
				return domain.SttResult{}, mapTransportErr(err, deadlineCtx)
			}
			switch status.Status {
			case "COMPLETED":
				result := domain.SttResult{
					Text:       status.Text,
					Language:   status.Language,
					ProviderId: domain.ProviderWhisperX,
					Model:      p.cfg.Model,
				}
				if status.Confidence != nil {
					result.Confidence = *status.Confidence
					result.HasConfidence = true
				}
				return result, nil
			case "FAILED":
				return domain.SttResult{}, domain.NewSttError(domain.SttUnavailable, "whisperx task failed")
			default:
				// continue polling
			}
		}
	}
}

func (p *AsyncPollProvider) submit(ctx context.Context, audio domain.AudioPayload) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", "audio")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio.Bytes); err != nil {
		return "", err
	}
	if audio.LanguageHint != "" {
		_ = writer.WriteField("language", audio.LanguageHint)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseUrl+"/transcribe", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("whisperx submit status %d", resp.StatusCode)
	}
	var sub taskSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return "", err
	}
	return sub.TaskId, nil
}

func (p *AsyncPollProvider) poll(ctx context.Context, taskId string) (taskStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseUrl+"/tasks/"+taskId, nil)
	if err != nil {
		return taskStatusResponse{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return taskStatusResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return taskStatusResponse{}, fmt.Errorf("whisperx poll status %d", resp.StatusCode)
	}
	var status taskStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return taskStatusResponse{}, err
	}
	return status, nil
}

func (p *AsyncPollProvider) HealthCheck(ctx context.Context) HealthStatus {
	start := time.Now()
	hctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(hctx, http.MethodGet, p.cfg.BaseUrl+"/health", nil)
	if err != nil {
		return HealthStatus{Healthy: false, Message: err.Error()}
	}
	resp, err := p.client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return HealthStatus{Healthy: false, Message: err.Error(), LatencyMs: latency}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return HealthStatus{
		Healthy:   resp.StatusCode >= 200 && resp.StatusCode < 300,
		LatencyMs: latency,
	}
}

func mapTransportErr(err error, ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewSttError(domain.SttTimeout, "transcription timed out")
	}
	return domain.NewSttError(domain.SttUnavailable, err.Error())
}
