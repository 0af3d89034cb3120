package call

// Reporter is the outbound surface to the platform call-reporting and
// notification layer. Every method receives a session snapshot and an
// asynchronous completion; implementations must not call back into the
// Coordinator from the reporting path.
type Reporter interface {
	// DidReceiveIncomingCall reports a new (or re-delivered) incoming call.
	DidReceiveIncomingCall(info Info, done Completion)
	// DidIgnoreIncomingCall reports an incoming call that was not accepted.
	DidIgnoreIncomingCall(info Info, done Completion)
	// DidMakeOutgoingCall reports an outgoing call dispatched to the engine.
	DidMakeOutgoingCall(info Info, done Completion)
	// CallDidBeginConnecting reports answer signaling in flight.
	CallDidBeginConnecting(info Info, done Completion)
	// CallDidConnect reports an established call.
	CallDidConnect(info Info, done Completion)
	// CallUpdated reports a state or metadata change.
	CallUpdated(info Info, done Completion)
	// CallEnded reports a terminated call.
	CallEnded(info Info, done Completion)
	// ActiveCallDidChange reports a new head of the session list;
	// info is nil when no session remains.
	ActiveCallDidChange(info *Info, done Completion)
}

// NopReporter ignores all reports, completing each immediately.
type NopReporter struct{}

func (NopReporter) DidReceiveIncomingCall(_ Info, done Completion)  { done.call(nil) }
func (NopReporter) DidIgnoreIncomingCall(_ Info, done Completion)   { done.call(nil) }
func (NopReporter) DidMakeOutgoingCall(_ Info, done Completion)     { done.call(nil) }
func (NopReporter) CallDidBeginConnecting(_ Info, done Completion)  { done.call(nil) }
func (NopReporter) CallDidConnect(_ Info, done Completion)          { done.call(nil) }
func (NopReporter) CallUpdated(_ Info, done Completion)             { done.call(nil) }
func (NopReporter) CallEnded(_ Info, done Completion)               { done.call(nil) }
func (NopReporter) ActiveCallDidChange(_ *Info, done Completion)    { done.call(nil) }
