package call

import (
	"time"

	"github.com/sebas/videophone/internal/sched"
)

const (
	// minSetupTimeout is the floor for the ready and SIP-signaling
	// timeouts regardless of the ring-count setting.
	minSetupTimeout = 12 * time.Second
	// perRingInterval converts the rings-before-greeting setting into
	// waiting time.
	perRingInterval = 6 * time.Second
	// ShortSignalingTimeout bounds the wait once signaling is already
	// known to be in flight.
	ShortSignalingTimeout = 2 * time.Second
)

// setupTimeout is the ready / SIP-signaling timeout:
// max(12s, rings-before-greeting x 6s).
func (c *Coordinator) setupTimeout() time.Duration {
	d := time.Duration(c.env.RingsBeforeGreeting()) * perRingInterval
	if d < minSetupTimeout {
		d = minSetupTimeout
	}
	return d
}

// RestartCallTimeout (re)arms the session's single-shot setup timer.
// The previous handle, if any, is invalidated first; it will never fire
// after being replaced.
func (c *Coordinator) RestartCallTimeout(s *Session, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.state == StateEnded {
		return
	}
	c.restartTimeoutLocked(s, d)
}

func (c *Coordinator) restartTimeoutLocked(s *Session, d time.Duration) {
	s.timeout.Stop()
	s.timeout = sched.After(d, func() { c.timeoutFired(s) })
}

// RestartReadyTimeout re-arms the full setup timeout for the session
// carrying the given call ID. Called by the push-relay coordinator after
// a delivery report is accepted.
func (c *Coordinator) RestartReadyTimeout(callID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.findByCallIDLocked(callID)
	if s == nil || s.state == StateEnded {
		return
	}
	c.restartTimeoutLocked(s, c.setupTimeout())
}

// ShortenSignalingTimeout drops the session's timeout to the short
// value. Called by the push-relay coordinator when signaling is expected
// imminently.
func (c *Coordinator) ShortenSignalingTimeout(callID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.findByCallIDLocked(callID)
	if s == nil || s.state == StateEnded {
		return
	}
	c.restartTimeoutLocked(s, ShortSignalingTimeout)
}

// timeoutFired gives up on a session whose setup timer elapsed: its
// deferred actions fulfill with a timeout error and the session ends.
// A session that never progressed past ringing ends without an error;
// one already connecting carries the timeout error.
func (c *Coordinator) timeoutFired(s *Session) {
	c.mu.Lock()
	if s.state == StateEnded || !c.containsLocked(s) {
		c.mu.Unlock()
		return
	}

	timeoutErr := NewError(CodeTimeout)
	acts := append(c.awaitingEngine.takeSession(s), c.awaitingResult.takeSession(s)...)
	var endErr error
	if !s.state.preRinging() {
		endErr = timeoutErr
	}
	ec, attached := s.attached()
	callID := s.callID
	incoming := s.direction == DirectionIncoming
	after := c.endSessionLocked(s, EndReasonTimeout, endErr)
	c.mu.Unlock()

	c.log.Info("call setup timed out", "call_id", callID)
	fire(acts, timeoutErr)
	after()

	if attached {
		if incoming {
			_ = ec.Reject()
		} else {
			_ = ec.HangUp()
		}
	}
	if incoming {
		c.relay.Decline(callID)
	}
}
