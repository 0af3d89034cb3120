package app

import (
	"sync"

	"github.com/sebas/videophone/internal/relay"
)

// ClientState is the mutable account/device state shared between the
// call coordinator (policy checks) and the relay coordinator
// (registration eligibility). Setters that change relay eligibility or
// gate deferred calls notify the interested coordinators through the
// hooks wired by App.
type ClientState struct {
	mu sync.RWMutex

	authenticated   bool
	foregrounded    bool
	network         bool
	doNotDisturb    bool
	eulaRejected    bool
	callbackNeeded  bool
	selfCertNeeded  bool
	callerIDBlocked bool
	anonBlocked     bool
	restricted      bool

	deviceToken string
	sipServer   string
	ringCount   int
	devRelay    bool
	numbers     []relay.PhoneNumber
	blocked     map[string]bool

	// Hooks, set once during wiring.
	onAuthenticated   func()
	onForegrounded    func()
	onSelfCertified   func()
	onSIPRegistration func(server string)
	onIdentityChanged func()
}

// NewClientState creates a state store with sane defaults: foregrounded,
// network up, nothing blocked.
func NewClientState(ringCount int) *ClientState {
	return &ClientState{
		foregrounded: true,
		network:      true,
		ringCount:    ringCount,
		blocked:      make(map[string]bool),
	}
}

// --- call.Environment ---

func (s *ClientState) NetworkAvailable() bool { s.mu.RLock(); defer s.mu.RUnlock(); return s.network }
func (s *ClientState) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}
func (s *ClientState) AppForegrounded() bool { s.mu.RLock(); defer s.mu.RUnlock(); return s.foregrounded }
func (s *ClientState) RequiresSelfCertification() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selfCertNeeded
}
func (s *ClientState) EULARejected() bool { s.mu.RLock(); defer s.mu.RUnlock(); return s.eulaRejected }
func (s *ClientState) CallbackRequired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.callbackNeeded
}
func (s *ClientState) CallerIDBlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.callerIDBlocked
}
func (s *ClientState) NumberBlocked(number string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blocked[number]
}
func (s *ClientState) AnonymousCallBlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.anonBlocked
}
func (s *ClientState) RestrictedMode() bool { s.mu.RLock(); defer s.mu.RUnlock(); return s.restricted }
func (s *ClientState) RingsBeforeGreeting() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ringCount
}
func (s *ClientState) OwnNumbers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.numbers))
	for _, n := range s.numbers {
		out = append(out, n.Number)
	}
	return out
}

// --- relay.Identity ---

func (s *ClientState) DeviceToken() string { s.mu.RLock(); defer s.mu.RUnlock(); return s.deviceToken }
func (s *ClientState) PhoneNumbers() []relay.PhoneNumber {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]relay.PhoneNumber, len(s.numbers))
	copy(out, s.numbers)
	return out
}
func (s *ClientState) SIPServer() string { s.mu.RLock(); defer s.mu.RUnlock(); return s.sipServer }
func (s *ClientState) AccountKnown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}
func (s *ClientState) DoNotDisturb() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doNotDisturb
}
func (s *ClientState) DevRelay() bool { s.mu.RLock(); defer s.mu.RUnlock(); return s.devRelay }

// --- setters ---

// SetAuthenticated flips the authentication state, releasing any call
// parked on it and re-syncing relay registration.
func (s *ClientState) SetAuthenticated(v bool) {
	s.mu.Lock()
	changed := s.authenticated != v
	s.authenticated = v
	hook := s.onAuthenticated
	identity := s.onIdentityChanged
	s.mu.Unlock()
	if !changed {
		return
	}
	if v && hook != nil {
		hook()
	}
	if identity != nil {
		identity()
	}
}

// SetAppForegrounded flips the foreground state, releasing any call
// parked on it.
func (s *ClientState) SetAppForegrounded(v bool) {
	s.mu.Lock()
	changed := s.foregrounded != v
	s.foregrounded = v
	hook := s.onForegrounded
	s.mu.Unlock()
	if changed && v && hook != nil {
		hook()
	}
}

// SetSelfCertified clears the self-certification requirement.
func (s *ClientState) SetSelfCertified() {
	s.mu.Lock()
	changed := s.selfCertNeeded
	s.selfCertNeeded = false
	hook := s.onSelfCertified
	s.mu.Unlock()
	if changed && hook != nil {
		hook()
	}
}

// SetSIPServer records a confirmed SIP registration, flushing queued
// push handshakes for that server and re-syncing relay registration.
func (s *ClientState) SetSIPServer(server string) {
	s.mu.Lock()
	s.sipServer = server
	hook := s.onSIPRegistration
	identity := s.onIdentityChanged
	s.mu.Unlock()
	if hook != nil {
		hook(server)
	}
	if identity != nil {
		identity()
	}
}

// SetDeviceToken records the push device token.
func (s *ClientState) SetDeviceToken(token string) {
	s.mu.Lock()
	s.deviceToken = token
	identity := s.onIdentityChanged
	s.mu.Unlock()
	if identity != nil {
		identity()
	}
}

// SetPhoneNumbers replaces the registered number set.
func (s *ClientState) SetPhoneNumbers(numbers []relay.PhoneNumber) {
	s.mu.Lock()
	s.numbers = append([]relay.PhoneNumber(nil), numbers...)
	identity := s.onIdentityChanged
	s.mu.Unlock()
	if identity != nil {
		identity()
	}
}

// SetDoNotDisturb flips DND, which changes relay eligibility.
func (s *ClientState) SetDoNotDisturb(v bool) {
	s.mu.Lock()
	s.doNotDisturb = v
	identity := s.onIdentityChanged
	s.mu.Unlock()
	if identity != nil {
		identity()
	}
}

// SetNetworkAvailable flips connectivity.
func (s *ClientState) SetNetworkAvailable(v bool) {
	s.mu.Lock()
	s.network = v
	s.mu.Unlock()
}

// SetRequiresSelfCertification marks self-certification outstanding.
func (s *ClientState) SetRequiresSelfCertification(v bool) {
	s.mu.Lock()
	s.selfCertNeeded = v
	s.mu.Unlock()
}

// SetBlockedNumbers replaces the block list.
func (s *ClientState) SetBlockedNumbers(numbers []string) {
	s.mu.Lock()
	s.blocked = make(map[string]bool, len(numbers))
	for _, n := range numbers {
		s.blocked[n] = true
	}
	s.mu.Unlock()
}

// SetDevRelay selects the dev relay pool at next registration sync.
func (s *ClientState) SetDevRelay(v bool) {
	s.mu.Lock()
	s.devRelay = v
	s.mu.Unlock()
}
