package gatewayclient

import (
	"github.com/gideonheart/voicegateway/internal/domain"
	"github.com/gideonheart/voicegateway/internal/logging"
)

// FromConfig builds a Client bound to the openclaw* fields of cfg.
// Called both at startup and by the session-client rebuilder whenever
// those fields change; the returned client has not dialed yet — the
// next SendTranscript connects lazily.
func FromConfig(cfg domain.GatewayConfig, logger logging.Logger) *Client {
	return New(Config{
		GatewayURL:   cfg.OpenclawGatewayUrl,
		GatewayToken: cfg.OpenclawGatewayToken,
	}, logger)
}
