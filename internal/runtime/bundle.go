// Package runtime holds the dependency bundle the turn orchestrator
// and HTTP handlers read per request: the provider map and the
// current agent session client. It is the "small, explicit mutable
// slot" spec §9 calls for in place of a generic shared-mutable-deps
// object — rebuilders write it, handlers read it, and a turn already
// holding a provider instance keeps using it even if a rebuild
// happens mid-turn.
package runtime

import (
	"sync"

	"github.com/gideonheart/voicegateway/internal/domain"
	"github.com/gideonheart/voicegateway/internal/gatewayclient"
	"github.com/gideonheart/voicegateway/internal/stt"
)

// Bundle is safe for concurrent reads and for replace-key writes.
type Bundle struct {
	mu            sync.RWMutex
	providers     map[domain.ProviderId]stt.Provider
	sessionClient *gatewayclient.Client
}

func New() *Bundle {
	return &Bundle{providers: make(map[domain.ProviderId]stt.Provider)}
}

// Provider returns the provider currently registered under id. A
// turn in progress that already captured this value keeps using it
// even if SetProvider replaces the map entry afterward.
func (b *Bundle) Provider(id domain.ProviderId) (stt.Provider, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.providers[id]
	return p, ok
}

func (b *Bundle) SetProvider(id domain.ProviderId, p stt.Provider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providers[id] = p
}

// Providers returns a shallow copy of the current provider map, for
// diagnostics and tests that need to inspect every registered
// provider rather than just the one currently active.
func (b *Bundle) Providers() map[domain.ProviderId]stt.Provider {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[domain.ProviderId]stt.Provider, len(b.providers))
	for k, v := range b.providers {
		out[k] = v
	}
	return out
}

func (b *Bundle) SessionClient() *gatewayclient.Client {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sessionClient
}

func (b *Bundle) SetSessionClient(c *gatewayclient.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionClient = c
}
