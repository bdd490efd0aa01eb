package configstore

import (
	"sync"

	"github.com/gideonheart/voicegateway/internal/domain"
)

// Listener is invoked once per Update call, after the patch has been
// merged, with the patch that was applied and the resulting config.
type Listener func(patch Patch, newConfig domain.GatewayConfig)

// Store is the single authoritative in-memory GatewayConfig record.
// Under parallel scheduling, Update is mutually exclusive against
// itself and against readers; Get/GetSafe return deep-cloned
// snapshots so no caller can observe a later mutation (spec §3:
// "ConfigStore.get() and getSafe() return snapshots that cannot be
// mutated by subsequent update() calls").
type Store struct {
	mu        sync.Mutex
	cfg       domain.GatewayConfig
	listeners []Listener
}

func New(initial domain.GatewayConfig) *Store {
	return &Store{cfg: initial.Clone()}
}

// Get returns an immutable snapshot of the full configuration.
func (s *Store) Get() domain.GatewayConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

// GetSafe returns an immutable snapshot with every secret field
// masked. No caller of GetSafe can ever observe a secret value.
func (s *Store) GetSafe() domain.SafeGatewayConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone().Safe()
}

// OnChange registers a listener invoked synchronously after every
// Update, in registration order.
func (s *Store) OnChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Update applies patch with shallow nested merge — top-level scalars
// overwrite, nested groups preserve sibling fields not named in the
// patch — then fans the result out to every registered listener
// exactly once, synchronously, in registration order. Even an empty
// patch still fires every listener once (spec §8 boundary behavior).
func (s *Store) Update(patch Patch) domain.GatewayConfig {
	s.mu.Lock()
	merged := applyPatch(s.cfg, patch)
	s.cfg = merged
	listeners := append([]Listener(nil), s.listeners...)
	result := merged.Clone()
	s.mu.Unlock()

	for _, l := range listeners {
		l(patch, result.Clone())
	}
	return result.Clone()
}

func applyPatch(cfg domain.GatewayConfig, patch Patch) domain.GatewayConfig {
	next := cfg.Clone()

	if patch.OpenclawGatewayUrl != nil {
		next.OpenclawGatewayUrl = *patch.OpenclawGatewayUrl
	}
	if patch.OpenclawGatewayToken != nil {
		next.OpenclawGatewayToken = *patch.OpenclawGatewayToken
	}
	if patch.OpenclawSessionKey != nil {
		next.OpenclawSessionKey = domain.SessionKey(*patch.OpenclawSessionKey)
	}
	if patch.SttProvider != nil {
		next.SttProvider = *patch.SttProvider
	}
	if patch.WhisperX != nil {
		next.WhisperX = mergeWhisperX(next.WhisperX, patch.WhisperX)
	}
	if patch.OpenAI != nil {
		next.OpenAI = mergeOpenAI(next.OpenAI, patch.OpenAI)
	}
	if patch.CustomHttp != nil {
		next.CustomHttp = mergeCustomHttp(next.CustomHttp, patch.CustomHttp)
	}
	if patch.Server != nil {
		next.Server = mergeServer(next.Server, patch.Server)
	}
	return next
}

func mergeWhisperX(cur domain.WhisperXConfig, p *WhisperXPatch) domain.WhisperXConfig {
	if p.BaseUrl != nil {
		cur.BaseUrl = *p.BaseUrl
	}
	if p.Model != nil {
		cur.Model = *p.Model
	}
	if p.Language != nil {
		cur.Language = *p.Language
	}
	if p.PollIntervalMs != nil {
		cur.PollIntervalMs = *p.PollIntervalMs
	}
	if p.TimeoutMs != nil {
		cur.TimeoutMs = *p.TimeoutMs
	}
	return cur
}

func mergeOpenAI(cur domain.OpenAIConfig, p *OpenAIPatch) domain.OpenAIConfig {
	if p.ApiKey != nil {
		cur.ApiKey = *p.ApiKey
	}
	if p.Model != nil {
		cur.Model = *p.Model
	}
	if p.Language != nil {
		cur.Language = *p.Language
	}
	return cur
}

func mergeCustomHttp(cur domain.CustomHttpConfig, p *CustomHttpPatch) domain.CustomHttpConfig {
	if p.Url != nil {
		cur.Url = *p.Url
	}
	if p.AuthHeader != nil {
		cur.AuthHeader = *p.AuthHeader
	}
	if p.RequestMapping != nil {
		cur.RequestMapping = *p.RequestMapping
	}
	if p.ResponseMapping != nil {
		rm := p.ResponseMapping
		if rm.TextField != nil {
			cur.ResponseMapping.TextField = *rm.TextField
		}
		if rm.LanguageField != nil {
			cur.ResponseMapping.LanguageField = *rm.LanguageField
		}
		if rm.ConfidenceField != nil {
			cur.ResponseMapping.ConfidenceField = *rm.ConfidenceField
		}
	}
	return cur
}

func mergeServer(cur domain.ServerConfig, p *ServerPatch) domain.ServerConfig {
	if p.Port != nil {
		cur.Port = *p.Port
	}
	if p.Host != nil {
		cur.Host = *p.Host
	}
	if p.CorsOrigins != nil {
		cur.CorsOrigins = append([]string(nil), *p.CorsOrigins...)
	}
	if p.MaxAudioBytes != nil {
		cur.MaxAudioBytes = *p.MaxAudioBytes
	}
	if p.RateLimitPerMinute != nil {
		cur.RateLimitPerMinute = *p.RateLimitPerMinute
	}
	return cur
}
