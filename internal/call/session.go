package call

import (
	"time"

	"github.com/google/uuid"

	"github.com/sebas/videophone/internal/engine"
	"github.com/sebas/videophone/internal/relay"
	"github.com/sebas/videophone/internal/sched"
)

// Session is the coordinator's record of one call, independent of
// whether an engine call object currently exists for it. All mutable
// fields are owned by the Coordinator and only touched under its lock;
// external readers go through Coordinator.Info / Coordinator.Sessions.
type Session struct {
	id        string
	direction Direction

	// Descriptive fields, immutable after creation except dialString,
	// which a redirect overwrites.
	dialString        string
	displayName       string
	isSorensonDevice  bool
	skippedToSignmail bool

	state     State
	endReason EndReason
	endErr    error
	held      bool
	ringCount int

	// callID is the SIP call ID shared with the engine and the push
	// relay; "" for outgoing calls until the engine assigns one.
	callID string

	// engineCall is the owned reference to the live engine call object;
	// nil before the engine creates it or after it is released. Once it
	// goes back to nil, duration stays frozen at the last known value.
	engineCall engine.Call
	// preIncomingID records early signaling seen before the session was
	// promoted. Arena lookup only; never extends the object's lifetime.
	preIncomingID string

	duration   time.Duration
	nativeUIID string
	timeout    *sched.Timer
	pushInfo   *relay.PushInfo
}

func newSession(direction Direction, dialString, displayName string) *Session {
	return &Session{
		id:          uuid.NewString(),
		direction:   direction,
		dialString:  dialString,
		displayName: displayName,
		state:       StateInitializing,
		nativeUIID:  uuid.NewString(),
	}
}

// ID returns the session's own identifier (not the engine call ID).
func (s *Session) ID() string { return s.id }

// Direction returns the fixed call direction.
func (s *Session) Direction() Direction { return s.direction }

// attached returns the engine call object, if one exists. Every use of
// the engine object goes through this so the detached case is handled
// explicitly at each site.
func (s *Session) attached() (engine.Call, bool) {
	if s.engineCall == nil {
		return nil, false
	}
	return s.engineCall, true
}

// attach adopts the engine call object and its ID.
func (s *Session) attach(c engine.Call) {
	s.engineCall = c
	s.callID = c.ID()
}

// detach releases the engine call reference, freezing duration at the
// last known value.
func (s *Session) detach() {
	if c, ok := s.attached(); ok {
		s.duration = c.Duration()
	}
	s.engineCall = nil
}

// setState applies a transition. Ended is terminal: any attempt to leave
// it is ignored. Re-entering Initializing during a transfer is legal and
// goes through here like any other transition.
func (s *Session) setState(next State) bool {
	if s.state == StateEnded {
		return false
	}
	s.state = next
	return true
}

// end moves the session to Ended with the given reason and optional
// error, cancelling any armed timeout. Idempotent.
func (s *Session) end(reason EndReason, err error) bool {
	if s.state == StateEnded {
		return false
	}
	s.timeout.Stop()
	s.timeout = nil
	s.detach()
	s.state = StateEnded
	s.endReason = reason
	s.endErr = err
	return true
}

// Info is an immutable snapshot of a session, safe to hand to the
// reporting layer and the ops API.
type Info struct {
	ID                string        `json:"id"`
	CallID            string        `json:"call_id,omitempty"`
	Direction         Direction     `json:"-"`
	DirectionName     string        `json:"direction"`
	State             State         `json:"-"`
	StateName         string        `json:"state"`
	DialString        string        `json:"dial_string"`
	DisplayName       string        `json:"display_name,omitempty"`
	IsSorensonDevice  bool          `json:"is_sorenson_device,omitempty"`
	SkippedToSignmail bool          `json:"skipped_to_signmail,omitempty"`
	Held              bool          `json:"held,omitempty"`
	RingCount         int           `json:"ring_count,omitempty"`
	Duration          time.Duration `json:"duration"`
	NativeUIID        string        `json:"native_ui_id"`
	EndReason         EndReason     `json:"-"`
	EndError          error         `json:"-"`
	HasEngineCall     bool          `json:"has_engine_call"`
}

// snapshot must be called under the coordinator lock.
func (s *Session) snapshot() Info {
	duration := s.duration
	if c, ok := s.attached(); ok {
		duration = c.Duration()
	}
	return Info{
		ID:                s.id,
		CallID:            s.callID,
		Direction:         s.direction,
		DirectionName:     s.direction.String(),
		State:             s.state,
		StateName:         s.state.String(),
		DialString:        s.dialString,
		DisplayName:       s.displayName,
		IsSorensonDevice:  s.isSorensonDevice,
		SkippedToSignmail: s.skippedToSignmail,
		Held:              s.held,
		RingCount:         s.ringCount,
		Duration:          duration,
		NativeUIID:        s.nativeUIID,
		EndReason:         s.endReason,
		EndError:          s.endErr,
		HasEngineCall:     s.engineCall != nil,
	}
}
