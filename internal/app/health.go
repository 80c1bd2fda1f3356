package app

import (
	"sync/atomic"

	"github.com/florianilch/claudine-bridge/internal/proxy"
)

// Health tracks the serving phase: starting until the listener is up, ready
// while serving, draining once shutdown begins. Draining never returns to ready.
type Health struct {
	phase atomic.Int32
}

const (
	phaseStarting int32 = iota
	phaseReady
	phaseDraining
)

var _ proxy.ReadinessChecker = (*Health)(nil)

// NewHealth returns a Health in the starting phase.
func NewHealth() *Health {
	return &Health{}
}

// SetReady moves to ready, or to draining when ready is false.
func (h *Health) SetReady(ready bool) {
	if ready {
		h.phase.CompareAndSwap(phaseStarting, phaseReady)
		return
	}
	h.phase.Store(phaseDraining)
}

func (h *Health) IsReady() bool {
	return h.phase.Load() == phaseReady
}

// Status names the current phase for the readiness endpoint.
func (h *Health) Status() string {
	switch h.phase.Load() {
	case phaseReady:
		return "ready"
	case phaseDraining:
		return "draining"
	default:
		return "starting"
	}
}
