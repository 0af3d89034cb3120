package call

import "github.com/sebas/videophone/internal/engine"

// Precondition checks. Each runs before any side effect; a failure is
// returned to the caller's completion and never reaches the engine.

func (c *Coordinator) validateCanMakeCallLocked(req OutgoingCallRequest) error {
	switch {
	case c.pendingOutgoing != nil:
		return NewError(CodeOnlyOneActiveCallAllowed)
	case c.env.RestrictedMode():
		return NewError(CodeRestrictedMode)
	case !c.env.NetworkAvailable():
		return NewError(CodeNetworkRequired)
	case c.env.EULARejected():
		return NewError(CodeRequiresEULAAcceptance)
	case digits(req.Number) == "":
		return NewError(CodeInvalidDialString)
	case c.dialingSelf(req.Number):
		return NewError(CodeDialingSelf)
	case c.outboundCountLocked() >= c.cfg.MaxOutboundCalls:
		return NewError(CodeMaxCallsExceeded)
	case c.anotherUnheldCallLocked(nil):
		return NewError(CodeOnlyOneActiveCallAllowed)
	case req.SkipToSignmail && c.env.CallerIDBlocked():
		// Skipping to sign-mail identifies the caller; a caller-ID
		// block contradicts that.
		return NewError(CodeCallerIDBlockConflict)
	}
	return nil
}

func (c *Coordinator) validateCanReceiveLocked(number string) error {
	switch {
	case c.inboundCountLocked() >= c.maxInbound():
		return NewError(CodeMaxCallsExceeded)
	case c.anyLeavingMessageLocked():
		// Only one leave-message call is allowed system-wide.
		return NewError(CodeCallAlreadyInProgress)
	case c.env.CallbackRequired():
		return NewError(CodeRequiresCallback)
	case number == "" && c.env.AnonymousCallBlocked():
		return NewError(CodeCallFiltered)
	case c.env.NumberBlocked(number):
		return NewError(CodeCallFiltered)
	}
	return nil
}

func (c *Coordinator) validateCanAnswerLocked(s *Session) error {
	switch {
	case !c.containsLocked(s) || s.state == StateEnded:
		return NewError(CodeCallAlreadyInProgress)
	case s.direction != DirectionIncoming:
		return NewError(CodeCallAlreadyInProgress)
	case !c.env.NetworkAvailable():
		return NewError(CodeNetworkRequired)
	case c.env.EULARejected():
		return NewError(CodeRequiresEULAAcceptance)
	case c.env.RequiresSelfCertification():
		return NewError(CodeRequiresSelfCertification)
	case c.anotherUnheldCallLocked(s):
		return NewError(CodeOnlyOneActiveCallAllowed)
	}
	return nil
}

func (c *Coordinator) validateCanHoldLocked(s *Session) (engine.Call, error) {
	if !c.containsLocked(s) || s.state == StateEnded {
		return nil, NewError(CodeCallAlreadyInProgress)
	}
	ec, ok := s.attached()
	if !ok || !ec.Holdable() || s.held {
		return nil, NewError(CodeNotHoldable)
	}
	if !c.env.NetworkAvailable() {
		return nil, NewError(CodeNetworkRequired)
	}
	return ec, nil
}

func (c *Coordinator) validateCanResumeLocked(s *Session) (engine.Call, error) {
	if !c.containsLocked(s) || s.state == StateEnded {
		return nil, NewError(CodeCallAlreadyInProgress)
	}
	ec, ok := s.attached()
	if !ok || !s.held {
		return nil, NewError(CodeNotHoldable)
	}
	if c.anotherUnheldCallLocked(s) {
		return nil, NewError(CodeOnlyOneActiveCallAllowed)
	}
	if !c.env.NetworkAvailable() {
		return nil, NewError(CodeNetworkRequired)
	}
	return ec, nil
}

func (c *Coordinator) validateCanJoinLocked(s *Session) (engine.Call, error) {
	if !c.containsLocked(s) || s.state == StateEnded {
		return nil, NewError(CodeCallAlreadyInProgress)
	}
	ec, ok := s.attached()
	if !ok || !ec.Joinable() {
		return nil, NewError(CodeNotJoinable)
	}
	if !c.env.NetworkAvailable() {
		return nil, NewError(CodeNetworkRequired)
	}
	return ec, nil
}

func (c *Coordinator) validateCanTransferLocked(s *Session, number string) (engine.Call, error) {
	if !c.containsLocked(s) || s.state == StateEnded {
		return nil, NewError(CodeCallAlreadyInProgress)
	}
	ec, ok := s.attached()
	if !ok || !ec.Transferable() {
		return nil, NewError(CodeNotTransferable)
	}
	if digits(number) == "" {
		return nil, NewError(CodeInvalidDialString)
	}
	if !c.env.NetworkAvailable() {
		return nil, NewError(CodeNetworkRequired)
	}
	return ec, nil
}

func (c *Coordinator) anyLeavingMessageLocked() bool {
	for _, s := range c.sessions {
		if s.state == StateLeavingMessage {
			return true
		}
	}
	return false
}

func (c *Coordinator) dialingSelf(number string) bool {
	for _, own := range c.env.OwnNumbers() {
		if digits(number) == digits(own) {
			return true
		}
	}
	return false
}
