package client

import (
	"time"

	"github.com/Aspag-Labs/voble-seeker/rpc"
)

// GamePhase is the orchestrator's current stage. Transitions are
// serialized under the client mutex; every phase change is broadcast
// to listeners.
type GamePhase string

const (
	PhaseIdle       GamePhase = "idle"
	PhaseRecovering GamePhase = "recovering"
	PhasePreflight  GamePhase = "preflight"
	PhaseBuying     GamePhase = "buying"
	PhaseResetting  GamePhase = "resetting"
	PhaseSyncing    GamePhase = "syncing"
	PhasePlaying    GamePhase = "playing"
	PhaseSubmitting GamePhase = "submitting"
	PhaseCompleting GamePhase = "completing"
	PhaseResult     GamePhase = "result"
	PhaseError      GamePhase = "error"
)

// Phase returns the current phase.
func (c *VobleClient) Phase() GamePhase {
	c.RLock()
	defer c.RUnlock()
	return c.phase
}

// Err returns the user-facing message of the last failure, empty when
// the client is not in the error phase.
func (c *VobleClient) Err() string {
	c.RLock()
	defer c.RUnlock()
	return c.errMsg
}

// IsStartingGame reports whether a start or recovery attempt is in
// flight. Used to reject concurrent starts.
func (c *VobleClient) IsStartingGame() bool {
	c.RLock()
	defer c.RUnlock()
	switch c.phase {
	case PhasePreflight, PhaseBuying, PhaseResetting, PhaseSyncing, PhaseRecovering:
		return true
	}
	return false
}

// TicketPurchased reports whether the base-ledger purchase of this
// run's ticket confirmed. It survives later failures so the UI can
// tell the player their payment is safe.
func (c *VobleClient) TicketPurchased() bool {
	c.RLock()
	defer c.RUnlock()
	return c.ticketPurchased
}

// VRFCompleted reports whether the target word draw finished for this
// run.
func (c *VobleClient) VRFCompleted() bool {
	c.RLock()
	defer c.RUnlock()
	return c.vrfCompleted
}

func (c *VobleClient) transition(p GamePhase) {
	c.Lock()
	prev := c.phase
	c.phase = p
	if p != PhaseError {
		c.errMsg = ""
	}
	c.Unlock()
	if prev != p {
		c.ntfns.notifyPhaseChanged(prev, p)
		c.notifyUpdated()
	}
}

// transitionFrom moves to the target phase only if the client is still
// in the expected phase. The compare and swap is the one-shot guard
// for start and recovery.
func (c *VobleClient) transitionFrom(from, to GamePhase) bool {
	c.Lock()
	if c.phase != from {
		c.Unlock()
		return false
	}
	c.phase = to
	if to != PhaseError {
		c.errMsg = ""
	}
	c.Unlock()
	c.ntfns.notifyPhaseChanged(from, to)
	c.notifyUpdated()
	return true
}

func (c *VobleClient) fail(err error) {
	msg := rpc.NormalizeMessage(err)
	c.Lock()
	prev := c.phase
	c.phase = PhaseError
	c.errMsg = msg
	c.Unlock()
	c.log.Errorf("game error (from %s): %v", prev, err)
	c.ntfns.notifyPhaseChanged(prev, PhaseError)
	c.ntfns.notifyError(msg)
	c.postError(err)
	c.notifyUpdated()
}

// Retry clears a failed run so the player can start over. Purchase and
// draw latches reset with it.
func (c *VobleClient) Retry() {
	c.Lock()
	prev := c.phase
	c.phase = PhaseIdle
	c.errMsg = ""
	c.ticketPurchased = false
	c.vrfCompleted = false
	c.submitting = false
	c.completing = false
	c.startTime = time.Time{}
	c.Unlock()
	if prev != PhaseIdle {
		c.ntfns.notifyPhaseChanged(prev, PhaseIdle)
		c.notifyUpdated()
	}
}

func (c *VobleClient) setTicketPurchased(v bool) {
	c.Lock()
	c.ticketPurchased = v
	c.Unlock()
	c.notifyUpdated()
}

func (c *VobleClient) setVRFCompleted(v bool) {
	c.Lock()
	c.vrfCompleted = v
	c.Unlock()
	c.notifyUpdated()
}
