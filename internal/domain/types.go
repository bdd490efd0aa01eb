// Package domain holds the shared wire and in-process types for the
// voice-turn gateway: branded identifiers, transcription results, the
// agent wire DTOs, the reply envelope, and the configuration record
// schema. Nothing here performs I/O.
package domain

import "time"

// TurnId correlates one audio-in/response-out cycle end to end.
// Structurally a string, nominally distinct so it can't be confused
// with a SessionKey by the type checker.
type TurnId string

// SessionKey identifies a logical agent conversation channel. It is
// constant across every turn within a session.
type SessionKey string

// ProviderId selects the active STT backend. The set is closed.
type ProviderId string

const (
	ProviderWhisperX ProviderId = "whisperx"
	ProviderOpenAI   ProviderId = "openai"
	ProviderCustom   ProviderId = "custom"
)

// ValidProviderId reports whether id is one of the closed set of
// recognized provider identifiers.
func ValidProviderId(id ProviderId) bool {
	switch id {
	case ProviderWhisperX, ProviderOpenAI, ProviderCustom:
		return true
	default:
		return false
	}
}

// AudioContentTypes is the whitelist of Content-Type values the HTTP
// plane and validation guards accept for POST /api/voice/turn.
var AudioContentTypes = map[string]bool{
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/pcm":   true,
	"audio/ogg":   true,
	"audio/mpeg":  true,
	"audio/webm":  true,
}

// AudioPayload is the transient in-memory representation of an
// uploaded recording. It is discarded after transcription; nothing
// retains a reference to Bytes beyond the orchestrated turn.
type AudioPayload struct {
	Bytes        []byte
	ContentType  string
	LanguageHint string
}

// NoConfidence is a sentinel value that no provider assigns: when a
// provider does not report a confidence score it leaves
// SttResult.Confidence at 0 and HasConfidence false. Callers must
// check HasConfidence, not compare against a magic float.
const NoConfidence = -1

// SttResult is the normalized transcription outcome every provider
// produces, regardless of its native wire shape.
type SttResult struct {
	Text       string
	Language   string
	Confidence float64 // in [0,1]; ignore unless HasConfidence
	HasConfidence bool
	ProviderId ProviderId
	Model      string
	DurationMs int64
}

// SttErrorCode is the closed discriminant for STT adapter failures.
type SttErrorCode string

const (
	SttTimeout      SttErrorCode = "TIMEOUT"
	SttUnavailable  SttErrorCode = "UNAVAILABLE"
	SttAudioInvalid SttErrorCode = "AUDIO_INVALID"
	SttRateLimited  SttErrorCode = "RATE_LIMITED"
	SttAuth         SttErrorCode = "AUTH"
	SttUnknown      SttErrorCode = "UNKNOWN"
)

// SttError is the variant every adapter maps its native failures
// into. The orchestrator never observes a provider-native error
// shape.
type SttError struct {
	Code    SttErrorCode
	Message string
}

func (e *SttError) Error() string { return string(e.Code) + ": " + e.Message }

// NewSttError is a small constructor kept next to the type so call
// sites read as `domain.NewSttError(domain.SttTimeout, "...")` rather
// than a bare struct literal.
func NewSttError(code SttErrorCode, message string) *SttError {
	return &SttError{Code: code, Message: message}
}

// AgentRequestParams is the params object of an outbound chat.send
// request frame.
type AgentRequestParams struct {
	SessionKey     SessionKey `json:"sessionKey"`
	Message        string     `json:"message"`
	IdempotencyKey string     `json:"idempotencyKey"`
	TimeoutMs      int64      `json:"timeoutMs"`
}

// AgentResponse is the accumulated result of one chat.send turn, built
// from one or more chat event frames keyed by runId.
type AgentResponse struct {
	SessionKey SessionKey
	TurnId     TurnId
	Text       string
	Timestamp  time.Time
}

// Segment is one piece of a shaped assistant reply.
type Segment struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	Continuation bool   `json:"continuation"`
}

// Timing reports the three measured durations of a turn.
type Timing struct {
	SttMs   int64 `json:"sttMs"`
	AgentMs int64 `json:"agentMs"`
	TotalMs int64 `json:"totalMs"`
}

// Meta carries the provider attribution surfaced to the caller.
type Meta struct {
	Provider ProviderId `json:"provider"`
	Model    string     `json:"model,omitempty"`
}

// Assistant is the shaped-reply portion of the envelope.
type Assistant struct {
	FullText  string    `json:"fullText"`
	Segments  []Segment `json:"segments"`
	Truncated bool      `json:"truncated"`
}

// ReplyEnvelope is the complete HTTP response body for a voice turn.
type ReplyEnvelope struct {
	TurnId     TurnId     `json:"turnId"`
	SessionKey SessionKey `json:"sessionKey"`
	Assistant  Assistant  `json:"assistant"`
	Timing     Timing     `json:"timing"`
	Meta       Meta       `json:"meta"`
}

const SecretMask = "********"

// WhisperXConfig configures the async-poll STT provider.
type WhisperXConfig struct {
	BaseUrl        string `json:"baseUrl"`
	Model          string `json:"model"`
	Language       string `json:"language"`
	PollIntervalMs int64  `json:"pollIntervalMs"`
	TimeoutMs      int64  `json:"timeoutMs"`
}

// OpenAIConfig configures the synchronous STT provider.
type OpenAIConfig struct {
	ApiKey   string `json:"apiKey"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

// ResponseMapping names the dotted JSON paths the generic HTTP
// provider extracts its three fields from.
type ResponseMapping struct {
	TextField       string `json:"textField"`
	LanguageField   string `json:"languageField"`
	ConfidenceField string `json:"confidenceField"`
}

// CustomHttpConfig configures the generic HTTP STT provider.
type CustomHttpConfig struct {
	AuthHeader      string          `json:"authHeader"`
	Url             string          `json:"url"`
	RequestMapping  string          `json:"requestMapping"`
	ResponseMapping ResponseMapping `json:"responseMapping"`
}

// ServerConfig holds the HTTP plane's runtime-tunable knobs.
type ServerConfig struct {
	Port               int      `json:"port"`
	Host               string   `json:"host"`
	CorsOrigins        []string `json:"corsOrigins"`
	MaxAudioBytes      int64    `json:"maxAudioBytes"`
	RateLimitPerMinute int      `json:"rateLimitPerMinute"`
}

// GatewayConfig is the complete configuration record owned
// exclusively by the ConfigStore. No component outside configstore
// holds a long-lived reference to one of these; every reader gets an
// immutable snapshot.
type GatewayConfig struct {
	OpenclawGatewayUrl   string           `json:"openclawGatewayUrl"`
	OpenclawGatewayToken string           `json:"openclawGatewayToken"`
	OpenclawSessionKey   SessionKey       `json:"openclawSessionKey"`
	SttProvider          ProviderId       `json:"sttProvider"`
	WhisperX             WhisperXConfig   `json:"whisperx"`
	OpenAI               OpenAIConfig     `json:"openai"`
	CustomHttp           CustomHttpConfig `json:"customHttp"`
	Server               ServerConfig     `json:"server"`
}

// Clone returns a deep copy so snapshots handed to readers can never
// be mutated by a subsequent ConfigStore.update.
func (c GatewayConfig) Clone() GatewayConfig {
	clone := c
	clone.Server.CorsOrigins = append([]string(nil), c.Server.CorsOrigins...)
	return clone
}

// Safe mirrors the same structure with the three secret fields
// replaced by SecretMask, never the originals.
func (c GatewayConfig) Safe() SafeGatewayConfig {
	safe := SafeGatewayConfig{
		OpenclawGatewayUrl:   c.OpenclawGatewayUrl,
		OpenclawGatewayToken: SecretMask,
		OpenclawSessionKey:   c.OpenclawSessionKey,
		SttProvider:          c.SttProvider,
		WhisperX:             c.WhisperX,
		OpenAI:               c.OpenAI,
		CustomHttp:           c.CustomHttp,
		Server:               c.Server,
	}
	safe.OpenAI.ApiKey = SecretMask
	safe.CustomHttp.AuthHeader = SecretMask
	safe.Server.CorsOrigins = append([]string(nil), c.Server.CorsOrigins...)
	return safe
}

// SafeGatewayConfig is GatewayConfig with every secret field masked.
// No code path may construct one with an unmasked secret value.
type SafeGatewayConfig struct {
	OpenclawGatewayUrl   string           `json:"openclawGatewayUrl"`
	OpenclawGatewayToken string           `json:"openclawGatewayToken"`
	OpenclawSessionKey   SessionKey       `json:"openclawSessionKey"`
	SttProvider          ProviderId       `json:"sttProvider"`
	WhisperX             WhisperXConfig   `json:"whisperx"`
	OpenAI               OpenAIConfig     `json:"openai"`
	CustomHttp           CustomHttpConfig `json:"customHttp"`
	Server               ServerConfig     `json:"server"`
}

// RateBucket tracks one client source's request count within the
// current one-minute window.
type RateBucket struct {
	Count   int
	ResetAt time.Time
}
