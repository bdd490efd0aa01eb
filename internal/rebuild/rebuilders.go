// Package rebuild contains the config-change listeners that recreate
// STT provider instances and the agent session client when their
// config slices change, swapping the replacement into the shared
// runtime.Bundle in place — visible to handlers on the very next
// request. Grounded on the onChange-callback pattern in the sibling
// example's config.Watcher (MrWong99-glyphoxa/internal/config/
// watcher.go) and the construct-and-wire shape of the teacher's
// internal/app/build.go, adapted from file-polling to the
// configstore's programmatic patch listener.
package rebuild

import (
	"github.com/gideonheart/voicegateway/internal/configstore"
	"github.com/gideonheart/voicegateway/internal/domain"
	"github.com/gideonheart/voicegateway/internal/gatewayclient"
	"github.com/gideonheart/voicegateway/internal/logging"
	"github.com/gideonheart/voicegateway/internal/runtime"
	"github.com/gideonheart/voicegateway/internal/stt"
)

// RegisterSTTRebuilder installs a listener that reconstructs the
// whisperx/openai/custom provider instance whenever the patch touches
// its config group. A single patch touching multiple groups triggers
// each relevant provider's rebuild exactly once, since this listener
// is itself invoked once per Update.
func RegisterSTTRebuilder(store *configstore.Store, bundle *runtime.Bundle, logger logging.Logger) {
	store.OnChange(func(patch configstore.Patch, newConfig domain.GatewayConfig) {
		if patch.WhisperX != nil {
			bundle.SetProvider(domain.ProviderWhisperX, stt.NewAsyncPollProvider(newConfig.WhisperX))
			logger.Info("rebuilt whisperx stt provider after config change")
		}
		if patch.OpenAI != nil {
			bundle.SetProvider(domain.ProviderOpenAI, stt.NewSyncProvider(newConfig.OpenAI, ""))
			logger.Info("rebuilt openai stt provider after config change")
		}
		if patch.CustomHttp != nil {
			bundle.SetProvider(domain.ProviderCustom, stt.NewGenericHTTPProvider(newConfig.CustomHttp))
			logger.Info("rebuilt custom http stt provider after config change")
		}
	})
}

// RegisterSessionClientRebuilder installs a listener that disconnects
// the current agent session client and replaces it with a fresh one
// whenever the gateway URL or token changes. The replacement does not
// eagerly dial: the next SendTranscript connects lazily (spec §4.6).
func RegisterSessionClientRebuilder(store *configstore.Store, bundle *runtime.Bundle, logger logging.Logger) {
	store.OnChange(func(patch configstore.Patch, newConfig domain.GatewayConfig) {
		if patch.OpenclawGatewayUrl == nil && patch.OpenclawGatewayToken == nil {
			return
		}
		if old := bundle.SessionClient(); old != nil {
			old.Disconnect()
		}
		bundle.SetSessionClient(gatewayclient.FromConfig(newConfig, logger))
		logger.Info("rebuilt agent session client after config change")
	})
}

// BuildInitialProviders constructs the full provider map once at
// startup, before any rebuilder has ever fired.
func BuildInitialProviders(cfg domain.GatewayConfig) map[domain.ProviderId]stt.Provider {
	return map[domain.ProviderId]stt.Provider{
		domain.ProviderWhisperX: stt.NewAsyncPollProvider(cfg.WhisperX),
		domain.ProviderOpenAI:   stt.NewSyncProvider(cfg.OpenAI, ""),
		domain.ProviderCustom:   stt.NewGenericHTTPProvider(cfg.CustomHttp),
	}
}
