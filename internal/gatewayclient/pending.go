package gatewayclient

import (
	"time"

	"github.com/gideonheart/voicegateway/internal/domain"
)

// pendingRequest tracks one outstanding chat.send request awaiting
// its ack response frame. Distinct from pendingTurn: the ack arrives
// as a response frame keyed by request id; the final turn text
// arrives later as an event keyed by runId (the idempotencyKey).
type pendingRequest struct {
	resolve func()
	reject  func(error)
	timer   *time.Timer
}

// pendingTurn tracks one in-flight chat.send turn by its runId
// (== the outbound idempotencyKey), accumulating delta text until a
// terminal event arrives.
type pendingTurn struct {
	turnId         domain.TurnId
	sessionKey     domain.SessionKey
	runId          string
	resolve        func(domain.AgentResponse)
	reject         func(error)
	deadlineTimer  *time.Timer
	accumulatedText string
}
