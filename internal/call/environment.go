package call

// Environment supplies the account, policy, and device facts the
// Coordinator validates against before touching the engine.
type Environment interface {
	// NetworkAvailable reports whether the device has connectivity.
	NetworkAvailable() bool
	// Authenticated reports whether a signed-in account exists.
	Authenticated() bool
	// AppForegrounded reports whether the app is in the foreground.
	AppForegrounded() bool
	// RequiresSelfCertification reports an outstanding self-certification.
	RequiresSelfCertification() bool
	// EULARejected reports whether the user rejected the EULA.
	EULARejected() bool
	// CallbackRequired reports a mandatory callback before accepting calls.
	CallbackRequired() bool
	// CallerIDBlocked reports whether outbound caller ID is blocked.
	CallerIDBlocked() bool
	// NumberBlocked reports whether the given number is on the block list.
	NumberBlocked(number string) bool
	// AnonymousCallBlocked reports whether anonymous callers are blocked.
	AnonymousCallBlocked() bool
	// RestrictedMode reports whether the client is running restricted.
	RestrictedMode() bool
	// RingsBeforeGreeting returns the account's ring-count setting.
	RingsBeforeGreeting() int
	// OwnNumbers returns the numbers assigned to this account.
	OwnNumbers() []string
}

// RelayControl is the Coordinator's hook into the push-relay handshake.
// A coordinator without push delivery can use NopRelay.
type RelayControl interface {
	// RequestDelivery asks the relay to hand over the call; answered is
	// evaluated at report time to choose answer vs ready semantics.
	RequestDelivery(callID string, answered func() bool)
	// Preempt forces answer delivery, bypassing the ring-group wait.
	Preempt(callID string)
	// CallDelivered signals that the engine call object arrived.
	CallDelivered(callID string)
	// Decline tells the relay this device will not take the call.
	Decline(callID string)
}

// NopRelay is a RelayControl that does nothing.
type NopRelay struct{}

func (NopRelay) RequestDelivery(string, func() bool) {}
func (NopRelay) Preempt(string)                      {}
func (NopRelay) CallDelivered(string)                {}
func (NopRelay) Decline(string)                      {}
