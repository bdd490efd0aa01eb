// Package configstore owns the single authoritative in-memory
// GatewayConfig record: validated partial-patch application with
// nested shallow merge, masked safe snapshots, and synchronous
// listener fanout. Grounded on the registry/diff pattern in the
// sibling example's config package (MrWong99-glyphoxa/internal/config,
// registry.go + diff.go) for the shape of "recognized groups with
// guarded fields", generalized from YAML-file config to programmatic
// patch application since this gateway's settings arrive over HTTP,
// not from a watched file.
package configstore

import (
	"encoding/json"

	"github.com/gideonheart/voicegateway/internal/domain"
	"github.com/gideonheart/voicegateway/internal/validate"
)

// Patch is a validated partial update, produced only by
// ValidateSettingsPatch. Handlers never see raw, unvalidated input;
// every optional field that is non-nil has already passed its guard.
type Patch struct {
	OpenclawGatewayUrl   *string
	OpenclawGatewayToken *string
	OpenclawSessionKey   *string
	SttProvider          *domain.ProviderId
	WhisperX             *WhisperXPatch
	OpenAI               *OpenAIPatch
	CustomHttp           *CustomHttpPatch
	Server               *ServerPatch
}

type WhisperXPatch struct {
	BaseUrl        *string
	Model          *string
	Language       *string
	PollIntervalMs *int64
	TimeoutMs      *int64
}

type OpenAIPatch struct {
	ApiKey   *string
	Model    *string
	Language *string
}

type ResponseMappingPatch struct {
	TextField       *string
	LanguageField   *string
	ConfidenceField *string
}

type CustomHttpPatch struct {
	Url             *string
	AuthHeader      *string
	RequestMapping  *string
	ResponseMapping *ResponseMappingPatch
}

type ServerPatch struct {
	Port               *int
	Host               *string
	CorsOrigins        *[]string
	MaxAudioBytes      *int64
	RateLimitPerMinute *int
}

// ValidateSettingsPatch parses an arbitrary JSON object into a typed,
// guard-checked Patch. Unknown top-level keys are silently ignored
// (forward compatibility); unknown keys inside a recognized group are
// likewise ignored. Any recognized field that fails its guard raises
// a UserError(INVALID_CONFIG) — never a panic, so the HTTP layer maps
// it to 400, not 500.
func ValidateSettingsPatch(raw []byte) (Patch, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return Patch{}, domain.NewUserError(domain.CodeInvalidConfig, "settings patch must be a JSON object")
	}

	var patch Patch

	if v, ok := top["openclawGatewayUrl"]; ok {
		s, err := decodeNonEmptyString(v, "openclawGatewayUrl")
		if err != nil {
			return Patch{}, err
		}
		if !validate.URLSyntax(s, "ws", "wss") {
			return Patch{}, domain.NewUserError(domain.CodeInvalidConfig, "openclawGatewayUrl must be a valid ws(s):// URL")
		}
		patch.OpenclawGatewayUrl = &s
	}
	if v, ok := top["openclawGatewayToken"]; ok {
		s, err := decodeString(v, "openclawGatewayToken")
		if err != nil {
			return Patch{}, err
		}
		patch.OpenclawGatewayToken = &s
	}
	if v, ok := top["openclawSessionKey"]; ok {
		s, err := decodeNonEmptyString(v, "openclawSessionKey")
		if err != nil {
			return Patch{}, err
		}
		patch.OpenclawSessionKey = &s
	}
	if v, ok := top["sttProvider"]; ok {
		var raw string
		if err := json.Unmarshal(v, &raw); err != nil {
			return Patch{}, domain.NewUserError(domain.CodeInvalidConfig, "sttProvider must be a string")
		}
		id, err := validate.ProviderId(raw)
		if err != nil {
			return Patch{}, err
		}
		patch.SttProvider = &id
	}
	if v, ok := top["whisperx"]; ok {
		p, err := decodeWhisperXPatch(v)
		if err != nil {
			return Patch{}, err
		}
		patch.WhisperX = p
	}
	if v, ok := top["openai"]; ok {
		p, err := decodeOpenAIPatch(v)
		if err != nil {
			return Patch{}, err
		}
		patch.OpenAI = p
	}
	if v, ok := top["customHttp"]; ok {
		p, err := decodeCustomHttpPatch(v)
		if err != nil {
			return Patch{}, err
		}
		patch.CustomHttp = p
	}
	if v, ok := top["server"]; ok {
		p, err := decodeServerPatch(v)
		if err != nil {
			return Patch{}, err
		}
		patch.Server = p
	}

	return patch, nil
}

func decodeString(raw json.RawMessage, field string) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", domain.NewUserError(domain.CodeInvalidConfig, field+" must be a string")
	}
	return s, nil
}

func decodeNonEmptyString(raw json.RawMessage, field string) (string, error) {
	s, err := decodeString(raw, field)
	if err != nil {
		return "", err
	}
	if !validate.NonEmptyString(s) {
		return "", domain.NewUserError(domain.CodeInvalidConfig, field+" must not be empty")
	}
	return s, nil
}

func decodePositiveInt64(raw json.RawMessage, field string) (int64, error) {
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, domain.NewUserError(domain.CodeInvalidConfig, field+" must be an integer")
	}
	if !validate.PositiveInt(n) {
		return 0, domain.NewUserError(domain.CodeInvalidConfig, field+" must be positive")
	}
	return n, nil
}

func decodePositiveInt(raw json.RawMessage, field string) (int, error) {
	n, err := decodePositiveInt64(raw, field)
	return int(n), err
}

func decodeWhisperXPatch(raw json.RawMessage) (*WhisperXPatch, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, domain.NewUserError(domain.CodeInvalidConfig, "whisperx must be an object")
	}
	p := &WhisperXPatch{}
	if v, ok := fields["baseUrl"]; ok {
		s, err := decodeNonEmptyString(v, "whisperx.baseUrl")
		if err != nil {
			return nil, err
		}
		if !validate.URLSyntax(s, "http", "https") {
			return nil, domain.NewUserError(domain.CodeInvalidConfig, "whisperx.baseUrl must be a valid http(s):// URL")
		}
		p.BaseUrl = &s
	}
	if v, ok := fields["model"]; ok {
		s, err := decodeNonEmptyString(v, "whisperx.model")
		if err != nil {
			return nil, err
		}
		p.Model = &s
	}
	if v, ok := fields["language"]; ok {
		s, err := decodeString(v, "whisperx.language")
		if err != nil {
			return nil, err
		}
		p.Language = &s
	}
	if v, ok := fields["pollIntervalMs"]; ok {
		n, err := decodePositiveInt64(v, "whisperx.pollIntervalMs")
		if err != nil {
			return nil, err
		}
		p.PollIntervalMs = &n
	}
	if v, ok := fields["timeoutMs"]; ok {
		n, err := decodePositiveInt64(v, "whisperx.timeoutMs")
		if err != nil {
			return nil, err
		}
		p.TimeoutMs = &n
	}
	return p, nil
}

func decodeOpenAIPatch(raw json.RawMessage) (*OpenAIPatch, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, domain.NewUserError(domain.CodeInvalidConfig, "openai must be an object")
	}
	p := &OpenAIPatch{}
	if v, ok := fields["apiKey"]; ok {
		s, err := decodeNonEmptyString(v, "openai.apiKey")
		if err != nil {
			return nil, err
		}
		p.ApiKey = &s
	}
	if v, ok := fields["model"]; ok {
		s, err := decodeNonEmptyString(v, "openai.model")
		if err != nil {
			return nil, err
		}
		p.Model = &s
	}
	if v, ok := fields["language"]; ok {
		s, err := decodeString(v, "openai.language")
		if err != nil {
			return nil, err
		}
		p.Language = &s
	}
	return p, nil
}

func decodeCustomHttpPatch(raw json.RawMessage) (*CustomHttpPatch, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, domain.NewUserError(domain.CodeInvalidConfig, "customHttp must be an object")
	}
	p := &CustomHttpPatch{}
	if v, ok := fields["url"]; ok {
		s, err := decodeNonEmptyString(v, "customHttp.url")
		if err != nil {
			return nil, err
		}
		if !validate.URLSyntax(s, "http", "https") {
			return nil, domain.NewUserError(domain.CodeInvalidConfig, "customHttp.url must be a valid http(s):// URL")
		}
		p.Url = &s
	}
	if v, ok := fields["authHeader"]; ok {
		s, err := decodeString(v, "customHttp.authHeader")
		if err != nil {
			return nil, err
		}
		p.AuthHeader = &s
	}
	if v, ok := fields["requestMapping"]; ok {
		s, err := decodeString(v, "customHttp.requestMapping")
		if err != nil {
			return nil, err
		}
		p.RequestMapping = &s
	}
	if v, ok := fields["responseMapping"]; ok {
		var rmFields map[string]json.RawMessage
		if err := json.Unmarshal(v, &rmFields); err != nil {
			return nil, domain.NewUserError(domain.CodeInvalidConfig, "customHttp.responseMapping must be an object")
		}
		rm := &ResponseMappingPatch{}
		if tv, ok := rmFields["textField"]; ok {
			s, err := decodeNonEmptyString(tv, "customHttp.responseMapping.textField")
			if err != nil {
				return nil, err
			}
			rm.TextField = &s
		}
		if lv, ok := rmFields["languageField"]; ok {
			s, err := decodeString(lv, "customHttp.responseMapping.languageField")
			if err != nil {
				return nil, err
			}
			rm.LanguageField = &s
		}
		if cv, ok := rmFields["confidenceField"]; ok {
			s, err := decodeString(cv, "customHttp.responseMapping.confidenceField")
			if err != nil {
				return nil, err
			}
			rm.ConfidenceField = &s
		}
		p.ResponseMapping = rm
	}
	return p, nil
}

func decodeServerPatch(raw json.RawMessage) (*ServerPatch, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, domain.NewUserError(domain.CodeInvalidConfig, "server must be an object")
	}
	p := &ServerPatch{}
	if v, ok := fields["port"]; ok {
		n, err := decodePositiveInt(v, "server.port")
		if err != nil {
			return nil, err
		}
		p.Port = &n
	}
	if v, ok := fields["host"]; ok {
		s, err := decodeNonEmptyString(v, "server.host")
		if err != nil {
			return nil, err
		}
		p.Host = &s
	}
	if v, ok := fields["corsOrigins"]; ok {
		var origins []string
		if err := json.Unmarshal(v, &origins); err != nil {
			return nil, domain.NewUserError(domain.CodeInvalidConfig, "server.corsOrigins must be an array of strings")
		}
		p.CorsOrigins = &origins
	}
	if v, ok := fields["maxAudioBytes"]; ok {
		n, err := decodePositiveInt64(v, "server.maxAudioBytes")
		if err != nil {
			return nil, err
		}
		p.MaxAudioBytes = &n
	}
	if v, ok := fields["rateLimitPerMinute"]; ok {
		n, err := decodePositiveInt(v, "server.rateLimitPerMinute")
		if err != nil {
			return nil, err
		}
		p.RateLimitPerMinute = &n
	}
	return p, nil
}
