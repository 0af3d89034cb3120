package call

import (
	"context"

	"github.com/sebas/videophone/internal/engine"
)

// Run pumps engine notifications into the coordinator until ctx is
// canceled or the engine closes its stream. Notifications for the same
// call are applied in emission order.
func (c *Coordinator) Run(ctx context.Context) {
	ch := c.engine.Notifications()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				c.engineStreamClosed()
				return
			}
			c.HandleNotification(n)
		}
	}
}

// engineStreamClosed fails every receive still parked on an engine call
// object, across all sessions in enqueue order. A closed stream means
// those objects will never arrive; the sessions themselves are left for
// their setup timeouts.
func (c *Coordinator) engineStreamClosed() {
	c.mu.Lock()
	acts := c.awaitingEngine.takeKind(ActionReceive)
	c.mu.Unlock()
	if len(acts) > 0 {
		c.log.Warn("engine stream closed with receives pending", "count", len(acts))
	}
	fire(acts, ErrEngineClosed)
}

// HandleNotification applies one engine event to the owning session.
func (c *Coordinator) HandleNotification(n engine.Notification) {
	if n.Call == nil {
		return
	}
	switch n.Kind {
	case engine.NotifyPreIncoming:
		c.handlePreIncoming(n)
	case engine.NotifyIncoming:
		c.handleIncoming(n)
	case engine.NotifyDialing:
		c.handleDialing(n)
	case engine.NotifyAnswering:
		c.handleAnswering(n)
	case engine.NotifyEstablishingConference:
		c.applyState(n, StateConnecting)
	case engine.NotifyConferencing:
		c.handleConferencing(n)
	case engine.NotifyHeld:
		c.handleHeldResumed(n, true)
	case engine.NotifyResumed:
		c.handleHeldResumed(n, false)
	case engine.NotifyLeaveMessage:
		c.applyState(n, StateLeavingMessage)
	case engine.NotifySelfCertRequired:
		c.applyState(n, StateAwaitingSelfCertification)
	case engine.NotifyVRSPrompt:
		c.applyState(n, StateAwaitingVRSPrompt)
	case engine.NotifyRedirect:
		c.handleRedirect(n)
	case engine.NotifyRingCountChanged:
		c.handleRingCount(n)
	case engine.NotifyPleaseWait:
		c.handlePleaseWait(n)
	case engine.NotifyMailboxFull:
		c.handleEngineFailure(n, CodeMailboxFull)
	case engine.NotifyMessageSendFailed:
		c.handleEngineFailure(n, CodeMessageSendFailed)
	case engine.NotifyUploadURLFailed:
		c.handleEngineFailure(n, CodeUploadURLFailed)
	case engine.NotifyDisconnected:
		c.handleDisconnected(n)
	}
}

// handlePreIncoming records early signaling. The session, if one already
// exists for the call ID, keeps only a back-reference; the arena entry
// is how the object is found later.
func (c *Coordinator) handlePreIncoming(n engine.Notification) {
	id := n.Call.ID()
	c.arena.Put(n.Call)
	c.mu.Lock()
	if s := c.findByCallIDLocked(id); s != nil {
		s.preIncomingID = id
	}
	c.mu.Unlock()
}

// handleIncoming attaches the engine call object to its waiting session
// and drains the awaiting-engine-object queue for it. Any deferred
// answer is issued against the fresh object. With no waiting session the
// object is parked in the arena until ReceiveIncomingCall arrives.
func (c *Coordinator) handleIncoming(n engine.Notification) {
	id := n.Call.ID()
	c.arena.Put(n.Call)

	c.mu.Lock()
	s := c.findByCallIDLocked(id)
	if s == nil {
		c.mu.Unlock()
		c.log.Info("engine call arrived before push delivery", "call_id", id)
		return
	}
	if _, ok := s.attached(); !ok {
		s.attach(n.Call)
	}
	receives := c.awaitingEngine.take(s, ActionReceive)
	answers := c.awaitingEngine.take(s, ActionAnswer)

	var answerErr *Error
	if len(answers) > 0 {
		for _, a := range answers {
			c.awaitingResult.push(s, ActionAnswer, a.complete)
		}
		if err := n.Call.Answer(); err != nil {
			answerErr = WrapError(CodeFailedToAnswer, err)
		}
	}
	if answerErr != nil {
		c.awaitingResult.take(s, ActionAnswer)
		after := c.endSessionLocked(s, EndReasonError, answerErr)
		c.mu.Unlock()
		fire(receives, nil)
		fire(answers, answerErr)
		after()
		c.relay.CallDelivered(id)
		return
	}

	info := s.snapshot()
	c.mu.Unlock()

	fire(receives, nil)
	c.reporter.CallUpdated(info, nil)
	c.relay.CallDelivered(id)
}

func (c *Coordinator) handleDialing(n engine.Notification) {
	c.mu.Lock()
	s := c.findByCallIDLocked(n.Call.ID())
	if s == nil {
		c.mu.Unlock()
		return
	}
	s.setState(StateRinging)
	transfers := c.awaitingResult.take(s, ActionTransfer)
	info := s.snapshot()
	c.mu.Unlock()

	fire(transfers, nil)
	c.reporter.CallUpdated(info, nil)
}

func (c *Coordinator) handleAnswering(n engine.Notification) {
	c.mu.Lock()
	s := c.findByCallIDLocked(n.Call.ID())
	if s == nil {
		c.mu.Unlock()
		return
	}
	s.setState(StateConnecting)
	answers := c.awaitingResult.take(s, ActionAnswer)
	c.restartTimeoutLocked(s, c.setupTimeout())
	info := s.snapshot()
	c.mu.Unlock()

	fire(answers, nil)
	c.reporter.CallDidBeginConnecting(info, nil)
}

func (c *Coordinator) handleConferencing(n engine.Notification) {
	id := n.Call.ID()
	c.mu.Lock()
	s := c.findByCallIDLocked(id)
	if s == nil {
		// The joined call's own session may already be gone; resolve
		// any join still waiting on this event.
		joins := c.awaitingResult.filter(func(a deferredAction) bool {
			return a.kind == ActionJoin && a.session.callID == id
		})
		c.mu.Unlock()
		fire(joins, nil)
		return
	}
	s.setState(StateConferencing)
	s.held = false
	s.timeout.Stop()
	s.timeout = nil
	acts := append(c.awaitingResult.take(s, ActionJoin), c.awaitingResult.take(s, ActionAnswer)...)
	info := s.snapshot()
	c.mu.Unlock()

	fire(acts, nil)
	c.reporter.CallDidConnect(info, nil)
}

func (c *Coordinator) handleHeldResumed(n engine.Notification, held bool) {
	c.mu.Lock()
	s := c.findByCallIDLocked(n.Call.ID())
	if s == nil {
		c.mu.Unlock()
		return
	}
	s.held = held
	kind := ActionHold
	if !held {
		kind = ActionResume
	}
	acts := c.awaitingResult.take(s, kind)
	info := s.snapshot()
	c.mu.Unlock()

	fire(acts, nil)
	c.reporter.CallUpdated(info, nil)
}

func (c *Coordinator) handleRedirect(n engine.Notification) {
	c.mu.Lock()
	s := c.findByCallIDLocked(n.Call.ID())
	if s == nil {
		c.mu.Unlock()
		return
	}
	s.setState(StateAwaitingRedirect)
	if n.Number != "" {
		s.dialString = n.Number
	}
	info := s.snapshot()
	c.mu.Unlock()
	c.reporter.CallUpdated(info, nil)
}

func (c *Coordinator) handleRingCount(n engine.Notification) {
	c.mu.Lock()
	s := c.findByCallIDLocked(n.Call.ID())
	if s == nil {
		c.mu.Unlock()
		return
	}
	s.ringCount = n.RingCount
	if s.state == StateInitializing {
		s.setState(StateRinging)
	}
	info := s.snapshot()
	c.mu.Unlock()
	c.reporter.CallUpdated(info, nil)
}

func (c *Coordinator) handlePleaseWait(n engine.Notification) {
	c.mu.Lock()
	s := c.findByCallIDLocked(n.Call.ID())
	if s == nil {
		c.mu.Unlock()
		return
	}
	s.setState(StatePleaseWait)
	c.restartTimeoutLocked(s, c.setupTimeout())
	info := s.snapshot()
	c.mu.Unlock()
	c.reporter.CallUpdated(info, nil)
}

func (c *Coordinator) applyState(n engine.Notification, next State) {
	c.mu.Lock()
	s := c.findByCallIDLocked(n.Call.ID())
	if s == nil {
		c.mu.Unlock()
		return
	}
	s.setState(next)
	info := s.snapshot()
	c.mu.Unlock()
	c.reporter.CallUpdated(info, nil)
}

// handleEngineFailure ends the session with the given engine error code.
func (c *Coordinator) handleEngineFailure(n engine.Notification, code Code) {
	c.mu.Lock()
	s := c.findByCallIDLocked(n.Call.ID())
	if s == nil {
		c.mu.Unlock()
		return
	}
	err := NewError(code)
	acts := append(c.awaitingEngine.takeSession(s), c.awaitingResult.takeSession(s)...)
	after := c.endSessionLocked(s, EndReasonError, err)
	c.mu.Unlock()

	fire(acts, err)
	after()
}

// handleDisconnected ends the session for a released engine call. Holds,
// answers, and transfers in flight abort; a join already resolving via
// its own conferencing event is left to that event.
func (c *Coordinator) handleDisconnected(n engine.Notification) {
	id := n.Call.ID()
	c.mu.Lock()
	s := c.findByCallIDLocked(id)
	if s == nil {
		c.arena.Remove(id)
		c.mu.Unlock()
		return
	}
	acts := append(c.awaitingEngine.takeSession(s, ActionJoin),
		c.awaitingResult.takeSession(s, ActionJoin)...)
	incoming := s.direction == DirectionIncoming
	after := c.endSessionLocked(s, EndReasonRemote, nil)
	c.mu.Unlock()

	c.log.Info("call disconnected", "call_id", id, "reason", n.Reason)
	fire(acts, ErrSessionEnded)
	after()
	if incoming {
		c.relay.CallDelivered(id)
	}
}
