package call

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/sebas/videophone/internal/engine"
)

// Config holds the coordinator's policy knobs.
type Config struct {
	// MaxOutboundCalls caps concurrent outgoing sessions. Default 2.
	MaxOutboundCalls int
	// UnauthenticatedNumbers are destinations dialable without a
	// signed-in account (emergency and provisioning numbers).
	UnauthenticatedNumbers []string
	Logger                 *slog.Logger
}

// OutgoingCallRequest carries the full parameter set of an outgoing call.
type OutgoingCallRequest struct {
	Number          string
	DialSource      string
	DisplayName     string
	SkipToSignmail  bool
	UseVCO          bool
	RelayLanguage   string
	ForceEncryption bool
}

// pendingOutgoing is an outgoing call deferred until authentication,
// self-certification, or app foreground. At most one may exist.
type pendingOutgoing struct {
	session  *Session
	req      OutgoingCallRequest
	complete Completion
}

// Coordinator owns the set of live call sessions. The head of the
// ordered session list is the active call. All state lives behind one
// mutex; completions and reporter calls are collected under the lock and
// fired after it is released, so callbacks may safely re-enter.
type Coordinator struct {
	cfg      Config
	engine   engine.Engine
	arena    *engine.Arena
	env      Environment
	reporter Reporter
	relay    RelayControl
	log      *slog.Logger

	mu              sync.Mutex
	sessions        []*Session
	awaitingEngine  actionQueue
	awaitingResult  actionQueue
	pendingOutgoing *pendingOutgoing
}

// New creates a coordinator. reporter and relay may be NopReporter /
// NopRelay; engine and env are required.
func New(cfg Config, eng engine.Engine, env Environment, reporter Reporter, relay RelayControl) *Coordinator {
	if cfg.MaxOutboundCalls == 0 {
		cfg.MaxOutboundCalls = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	if relay == nil {
		relay = NopRelay{}
	}
	return &Coordinator{
		cfg:      cfg,
		engine:   eng,
		arena:    engine.NewArena(),
		env:      env,
		reporter: reporter,
		relay:    relay,
		log:      cfg.Logger,
	}
}

// MakeOutgoingCall creates a session for an outbound call. The session
// handle is always returned; errors and deferrals are delivered through
// done. An unauthenticated call to a non-allow-listed number waits in
// AwaitingAuthentication; a backgrounded app defers to
// AwaitingAppForeground. Gates apply in fixed order: authentication,
// then self-certification, then app foreground.
func (c *Coordinator) MakeOutgoingCall(req OutgoingCallRequest, done Completion) *Session {
	c.mu.Lock()
	s := newSession(DirectionOutgoing, req.Number, req.DisplayName)
	s.skippedToSignmail = req.SkipToSignmail

	if err := c.validateCanMakeCallLocked(req); err != nil {
		s.end(EndReasonError, err)
		c.mu.Unlock()
		c.log.Info("outgoing call rejected", "number", req.Number, "error", err)
		done.call(err)
		return s
	}

	if deferred := c.deferOutgoingLocked(s, req, done); deferred {
		state := s.state
		c.mu.Unlock()
		c.log.Info("outgoing call deferred", "number", req.Number, "state", state)
		return s
	}

	c.dispatch(s, req, done)
	return s
}

// deferOutgoingLocked applies the deferral gates. Returns true when the
// call was parked as the pending outgoing call.
func (c *Coordinator) deferOutgoingLocked(s *Session, req OutgoingCallRequest, done Completion) bool {
	switch {
	case !c.env.Authenticated() && !c.dialableUnauthenticated(req.Number):
		s.setState(StateAwaitingAuthentication)
	case c.env.RequiresSelfCertification():
		s.setState(StateAwaitingSelfCertification)
	case !c.env.AppForegrounded():
		s.setState(StateAwaitingAppForeground)
	default:
		return false
	}
	c.pendingOutgoing = &pendingOutgoing{session: s, req: req, complete: done}
	return true
}

// dispatch sends the outgoing call to the engine. Must be called with
// the lock held; it releases the lock before firing callbacks.
func (c *Coordinator) dispatch(s *Session, req OutgoingCallRequest, done Completion) {
	var ec engine.Call
	var err error
	if req.SkipToSignmail {
		ec, err = c.engine.SignmailSend(req.Number)
		if err != nil {
			err = WrapError(CodeFailedToSendSignmail, err)
		}
	} else {
		ec, err = c.engine.Dial(engine.DialRequest{
			Number:          req.Number,
			DisplayName:     req.DisplayName,
			RelayLanguage:   req.RelayLanguage,
			VCO:             req.UseVCO,
			ForceEncryption: req.ForceEncryption,
		})
		if err != nil {
			err = WrapError(CodeDialFailed, err)
		}
	}
	if err != nil {
		s.end(EndReasonError, err)
		c.mu.Unlock()
		c.log.Warn("engine dial failed", "number", req.Number, "error", err)
		done.call(err)
		return
	}

	s.attach(ec)
	c.arena.Put(ec)
	c.promoteLocked(s)
	c.restartTimeoutLocked(s, c.setupTimeout())
	info := s.snapshot()
	c.mu.Unlock()

	c.log.Info("outgoing call dispatched", "call_id", info.CallID, "number", req.Number)
	c.reporter.DidMakeOutgoingCall(info, nil)
	c.reporter.ActiveCallDidChange(&info, nil)
	done.call(nil)
}

// HandleAuthenticated releases a call parked on authentication, then
// re-applies the remaining gates in order.
func (c *Coordinator) HandleAuthenticated() {
	c.flushPendingOutgoing(StateAwaitingAuthentication)
}

// HandleSelfCertified releases a call parked on self-certification.
func (c *Coordinator) HandleSelfCertified() {
	c.flushPendingOutgoing(StateAwaitingSelfCertification)
}

// HandleAppForegrounded releases a call parked on app foreground.
func (c *Coordinator) HandleAppForegrounded() {
	c.flushPendingOutgoing(StateAwaitingAppForeground)
}

func (c *Coordinator) flushPendingOutgoing(gate State) {
	c.mu.Lock()
	p := c.pendingOutgoing
	if p == nil || p.session.state != gate {
		c.mu.Unlock()
		return
	}
	c.pendingOutgoing = nil
	if deferred := c.deferOutgoingLocked(p.session, p.req, p.complete); deferred {
		c.mu.Unlock()
		return
	}
	c.dispatch(p.session, p.req, p.complete)
}

// ReceiveIncomingCall reports an inbound call delivery, keyed by the SIP
// call ID. Duplicate reports attach to the existing session and still
// re-notify the reporting layer, because duplicate push delivery is
// expected and must be re-reported rather than ignored.
func (c *Coordinator) ReceiveIncomingCall(number, callID, displayName string, isSorensonDevice bool, done Completion) *Session {
	c.mu.Lock()
	if existing := c.findByCallIDLocked(callID); existing != nil {
		if displayName != "" {
			existing.displayName = displayName
		}
		info := existing.snapshot()
		c.mu.Unlock()
		c.log.Info("duplicate incoming call report", "call_id", callID)
		c.reporter.DidReceiveIncomingCall(info, nil)
		done.call(nil)
		return existing
	}

	if err := c.validateCanReceiveLocked(number); err != nil {
		s := newSession(DirectionIncoming, number, displayName)
		s.callID = callID
		reason := EndReasonError
		if IsCode(err, CodeCallFiltered) {
			reason = EndReasonFiltered
		}
		s.end(reason, err)
		info := s.snapshot()
		c.mu.Unlock()
		c.log.Info("ignoring incoming call", "call_id", callID, "error", err)
		c.reporter.DidIgnoreIncomingCall(info, nil)
		done.call(err)
		return s
	}

	s := newSession(DirectionIncoming, number, displayName)
	s.callID = callID
	s.isSorensonDevice = isSorensonDevice
	c.sessions = append(c.sessions, s)

	// Early signaling may have beaten the push here.
	if ec, ok := c.arena.Lookup(callID); ok {
		s.attach(ec)
		s.setState(StateRinging)
		c.restartTimeoutLocked(s, c.setupTimeout())
		info := s.snapshot()
		c.mu.Unlock()
		c.reporter.DidReceiveIncomingCall(info, nil)
		c.relay.CallDelivered(callID)
		done.call(nil)
		return s
	}

	s.setState(StateRinging)
	c.awaitingEngine.push(s, ActionReceive, done)
	c.restartTimeoutLocked(s, c.setupTimeout())
	info := s.snapshot()
	c.mu.Unlock()

	c.log.Info("incoming call queued for engine delivery", "call_id", callID, "number", number)
	c.reporter.DidReceiveIncomingCall(info, nil)
	c.relay.RequestDelivery(callID, func() bool { return c.answeredBeforeDelivery(callID) })
	return s
}

// answeredBeforeDelivery reports whether the user already answered the
// call while it had no engine object. Evaluated by the relay at
// delivery-report time.
func (c *Coordinator) answeredBeforeDelivery(callID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.findByCallIDLocked(callID)
	return s != nil && s.state == StatePleaseWait
}

// Answer accepts an incoming call. With no engine object yet, the
// session moves to PleaseWait, the answer is queued awaiting the engine
// object, and the relay is asked to pre-empt the ring-group wait.
func (c *Coordinator) Answer(s *Session, done Completion) {
	c.mu.Lock()
	if err := c.validateCanAnswerLocked(s); err != nil {
		c.mu.Unlock()
		done.call(err)
		return
	}

	ec, ok := s.attached()
	if !ok {
		s.setState(StatePleaseWait)
		c.awaitingEngine.push(s, ActionAnswer, done)
		callID := s.callID
		info := s.snapshot()
		c.mu.Unlock()
		c.log.Info("answer deferred awaiting engine object", "call_id", callID)
		c.reporter.CallUpdated(info, nil)
		c.relay.Preempt(callID)
		return
	}

	c.awaitingResult.push(s, ActionAnswer, done)
	if err := ec.Answer(); err != nil {
		c.failActionLocked(s, ActionAnswer, WrapError(CodeFailedToAnswer, err))
		return
	}
	c.mu.Unlock()
}

// Hold places the session on hold.
func (c *Coordinator) Hold(s *Session, done Completion) {
	c.mu.Lock()
	ec, err := c.validateCanHoldLocked(s)
	if err != nil {
		c.mu.Unlock()
		done.call(err)
		return
	}
	c.awaitingResult.push(s, ActionHold, done)
	if opErr := ec.Hold(); opErr != nil {
		c.failActionLocked(s, ActionHold, WrapError(CodeFailedToHold, opErr))
		return
	}
	c.mu.Unlock()
}

// Resume takes the session off hold.
func (c *Coordinator) Resume(s *Session, done Completion) {
	c.mu.Lock()
	ec, err := c.validateCanResumeLocked(s)
	if err != nil {
		c.mu.Unlock()
		done.call(err)
		return
	}
	c.awaitingResult.push(s, ActionResume, done)
	if opErr := ec.Resume(); opErr != nil {
		c.failActionLocked(s, ActionResume, WrapError(CodeFailedToResume, opErr))
		return
	}
	c.mu.Unlock()
}

// Join merges the session into the active conference.
func (c *Coordinator) Join(s *Session, done Completion) {
	c.mu.Lock()
	ec, err := c.validateCanJoinLocked(s)
	if err != nil {
		c.mu.Unlock()
		done.call(err)
		return
	}
	c.awaitingResult.push(s, ActionJoin, done)
	if opErr := ec.Join(); opErr != nil {
		c.failActionLocked(s, ActionJoin, WrapError(CodeFailedToJoin, opErr))
		return
	}
	c.mu.Unlock()
}

// Transfer redirects the session to number. Re-entering Initializing
// while the transfer is in flight is a legal transition.
func (c *Coordinator) Transfer(s *Session, number string, done Completion) {
	c.mu.Lock()
	ec, err := c.validateCanTransferLocked(s, number)
	if err != nil {
		c.mu.Unlock()
		done.call(err)
		return
	}
	s.setState(StateInitializing)
	s.dialString = number
	c.awaitingResult.push(s, ActionTransfer, done)
	if opErr := ec.Transfer(number); opErr != nil {
		c.failActionLocked(s, ActionTransfer, WrapError(CodeFailedToTransfer, opErr))
		return
	}
	c.mu.Unlock()
}

// End terminates the session. The session transitions to Ended and the
// reporting layer is notified before the engine hangup/reject is
// attempted, so the UI reacts even when the engine is slow. cause nil
// means a normal local hangup. Ending an already-ended session is a
// no-op. A filtering decision (CodeCallFiltered) on a call the engine
// still has in connecting state skips the engine rejection entirely, so
// no busy semantic leaks to the caller.
func (c *Coordinator) End(s *Session, cause error, done Completion) {
	c.mu.Lock()
	if s.state == StateEnded {
		c.mu.Unlock()
		done.call(nil)
		return
	}

	answered := s.state == StateConnecting || s.state == StateConferencing ||
		s.state == StateLeavingMessage
	ec, attached := s.attached()
	reason := EndReasonLocal
	if IsCode(cause, CodeCallFiltered) {
		reason = EndReasonFiltered
	}
	acts := append(c.awaitingEngine.takeSession(s), c.awaitingResult.takeSession(s)...)
	callID := s.callID
	after := c.endSessionLocked(s, reason, cause)
	c.mu.Unlock()

	fire(acts, ErrSessionEnded)
	after()

	var opErr error
	switch {
	case !attached:
		if s.direction == DirectionIncoming {
			c.relay.Decline(callID)
		}
	case reason == EndReasonFiltered && ec.State() == engine.CallStateConnecting:
		// Filtering is a local decision, not a failure; rejecting here
		// would signal busy to the caller.
	case s.direction == DirectionIncoming && !answered:
		opErr = ec.Reject()
	default:
		opErr = ec.HangUp()
	}
	if opErr != nil {
		opErr = WrapError(CodeFailedToEnd, opErr)
		c.log.Warn("engine end failed", "call_id", callID, "error", opErr)
	}
	done.call(opErr)
}

// SwitchTo holds the current active call and promotes s to the head of
// the list, resuming it when possible. A session that cannot be resumed
// still becomes active so the user is able to hang it up.
func (c *Coordinator) SwitchTo(s *Session, done Completion) {
	c.mu.Lock()
	if !c.containsLocked(s) || s.state == StateEnded {
		c.mu.Unlock()
		done.call(NewError(CodeCallAlreadyInProgress))
		return
	}

	if cur := c.activeLocked(); cur != nil && cur != s {
		if cc, ok := cur.attached(); ok && cc.Holdable() && !cur.held {
			c.awaitingResult.push(cur, ActionHold, nil)
			if err := cc.Hold(); err != nil {
				// The hold may fail; the switch still proceeds.
				c.awaitingResult.take(cur, ActionHold)
				c.log.Warn("hold before switch failed", "call_id", cur.callID, "error", err)
			}
		}
	}

	c.promoteLocked(s)
	if sc, ok := s.attached(); ok && s.held {
		c.awaitingResult.push(s, ActionResume, nil)
		if err := sc.Resume(); err != nil {
			c.awaitingResult.take(s, ActionResume)
			c.log.Warn("resume on switch failed", "call_id", s.callID, "error", err)
		}
	}
	info := s.snapshot()
	c.mu.Unlock()

	c.reporter.ActiveCallDidChange(&info, nil)
	done.call(nil)
}

// Active returns a snapshot of the active call, nil when none exists.
func (c *Coordinator) Active() *Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.activeLocked()
	if s == nil {
		return nil
	}
	info := s.snapshot()
	return &info
}

// Info returns a snapshot of the given session.
func (c *Coordinator) Info(s *Session) Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.snapshot()
}

// Sessions returns snapshots of all live sessions, active call first.
func (c *Coordinator) Sessions() []Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Info, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, s.snapshot())
	}
	return out
}

// --- internal helpers (lock held) ---

// failActionLocked handles a synchronous engine failure: the queued
// entries for (s, kind) fire with err and the session ends with err.
// Releases the lock.
func (c *Coordinator) failActionLocked(s *Session, kind ActionKind, err *Error) {
	acts := c.awaitingResult.take(s, kind)
	acts = append(acts, c.awaitingEngine.take(s, kind)...)
	callID := s.callID
	after := c.endSessionLocked(s, EndReasonError, err)
	c.mu.Unlock()
	c.log.Warn("engine operation failed", "call_id", callID, "action", kind, "error", err)
	fire(acts, err)
	after()
}

// endSessionLocked moves s to Ended, removes it from the active list,
// and returns the callbacks to run after the lock is released.
func (c *Coordinator) endSessionLocked(s *Session, reason EndReason, err error) func() {
	prevActive := c.activeLocked()
	s.end(reason, err)
	c.removeLocked(s)
	if s.callID != "" {
		c.arena.Remove(s.callID)
	}
	// A deferred outgoing call releases its slot when it ends, so the
	// next dial is not rejected against a dead reservation.
	var pendingDone Completion
	if p := c.pendingOutgoing; p != nil && p.session == s {
		c.pendingOutgoing = nil
		pendingDone = p.complete
	}
	info := s.snapshot()

	var activeInfo *Info
	activeChanged := prevActive == s
	if activeChanged {
		if next := c.activeLocked(); next != nil {
			ni := next.snapshot()
			activeInfo = &ni
		}
	}

	return func() {
		pendingDone.call(ErrSessionEnded)
		c.reporter.CallEnded(info, nil)
		if activeChanged {
			c.reporter.ActiveCallDidChange(activeInfo, nil)
		}
	}
}

func (c *Coordinator) activeLocked() *Session {
	if len(c.sessions) == 0 {
		return nil
	}
	return c.sessions[0]
}

func (c *Coordinator) containsLocked(s *Session) bool {
	for _, v := range c.sessions {
		if v == s {
			return true
		}
	}
	return false
}

// promoteLocked moves s to the head of the list, inserting it if absent.
func (c *Coordinator) promoteLocked(s *Session) {
	c.removeLocked(s)
	c.sessions = append([]*Session{s}, c.sessions...)
}

func (c *Coordinator) removeLocked(s *Session) {
	kept := c.sessions[:0]
	for _, v := range c.sessions {
		if v != s {
			kept = append(kept, v)
		}
	}
	c.sessions = kept
}

func (c *Coordinator) findByCallIDLocked(callID string) *Session {
	if callID == "" {
		return nil
	}
	for _, s := range c.sessions {
		if s.callID == callID || s.preIncomingID == callID {
			return s
		}
	}
	return nil
}

func (c *Coordinator) outboundCountLocked() int {
	n := 0
	for _, s := range c.sessions {
		if s.direction == DirectionOutgoing {
			n++
		}
	}
	return n
}

func (c *Coordinator) inboundCountLocked() int {
	n := 0
	for _, s := range c.sessions {
		if s.direction == DirectionIncoming {
			n++
		}
	}
	return n
}

// anotherUnheldCallLocked reports whether a call other than s is live
// and not on hold.
func (c *Coordinator) anotherUnheldCallLocked(s *Session) bool {
	for _, v := range c.sessions {
		if v == s || v.held {
			continue
		}
		switch v.state {
		case StateConnecting, StateConferencing, StateLeavingMessage:
			return true
		}
	}
	return false
}

func (c *Coordinator) maxInbound() int {
	if n := c.engine.MaxInboundCalls(); n > 0 {
		return n
	}
	return 1
}

func (c *Coordinator) dialableUnauthenticated(number string) bool {
	for _, allowed := range c.cfg.UnauthenticatedNumbers {
		if digits(number) == digits(allowed) {
			return true
		}
	}
	return false
}

// digits strips common formatting from a dial string.
func digits(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
