package gatewayclient

// HealthStatus mirrors stt.HealthStatus's shape for the /readyz
// handler, which reports on both the active STT provider and the
// agent client with one common structure.
type HealthStatus struct {
	Healthy bool
	Message string
}

// HealthCheck reports READY as healthy. A client that has never
// connected yet (DISCONNECTED) is still considered healthy at boot:
// the connection is established lazily on first SendTranscript, so
// readiness should not require an eager dial just to pass /readyz.
func (c *Client) HealthCheck() HealthStatus {
	c.mu.Lock()
	st := c.st
	c.mu.Unlock()
	switch st {
	case stateReady, stateDisconnected:
		return HealthStatus{Healthy: true}
	case stateDraining:
		return HealthStatus{Healthy: false, Message: "agent client draining"}
	default:
		return HealthStatus{Healthy: true, Message: "agent client dialing"}
	}
}
