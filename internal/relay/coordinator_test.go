package relay

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeIdentity struct {
	mu      sync.Mutex
	token   string
	server  string
	known   bool
	dnd     bool
	dev     bool
	rings   int
	numbers []PhoneNumber
}

func (f *fakeIdentity) DeviceToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}
func (f *fakeIdentity) PhoneNumbers() []PhoneNumber {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numbers
}
func (f *fakeIdentity) SIPServer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.server
}
func (f *fakeIdentity) AccountKnown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.known
}
func (f *fakeIdentity) DoNotDisturb() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dnd
}
func (f *fakeIdentity) RingsBeforeGreeting() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rings
}
func (f *fakeIdentity) DevRelay() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dev
}

func (f *fakeIdentity) set(fn func(*fakeIdentity)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

type fakeControl struct {
	mu        sync.Mutex
	restarted []string
	shortened []string
}

func (f *fakeControl) RestartReadyTimeout(callID string) {
	f.mu.Lock()
	f.restarted = append(f.restarted, callID)
	f.mu.Unlock()
}

func (f *fakeControl) ShortenSignalingTimeout(callID string) {
	f.mu.Lock()
	f.shortened = append(f.shortened, callID)
	f.mu.Unlock()
}

func (f *fakeControl) restartCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.restarted)
}

func (f *fakeControl) shortenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.shortened)
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) Report(event string, _ map[string]any) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type coordFixture struct {
	server   *relayServer
	identity *fakeIdentity
	control  *fakeControl
	sink     *recordingSink
	coord    *Coordinator
}

func newCoordFixture(t *testing.T) *coordFixture {
	t.Helper()
	rs := newRelayServer()
	t.Cleanup(rs.Close)

	f := &coordFixture{
		server: rs,
		identity: &fakeIdentity{
			token:   "tok-1",
			server:  "10.0.0.1",
			known:   true,
			rings:   2,
			numbers: []PhoneNumber{{Number: "5551234"}},
		},
		control: &fakeControl{},
		sink:    &recordingSink{},
	}
	f.coord = NewCoordinator(CoordinatorConfig{
		Client:   NewClient(ClientConfig{BaseURL: rs.URL}),
		Identity: f.identity,
		Sink:     f.sink,
	})
	f.coord.SetCallControl(f.control)
	return f
}

func pushFor(callID, server string) *PushInfo {
	return &PushInfo{Identifier: "ens-" + callID, CallID: callID, SIPServer: server}
}

func TestSyncRegistrationLogsInOnceUntilIdentityChanges(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	f.coord.SyncRegistration(ctx)
	if got := f.server.count("Login"); got != 1 {
		t.Fatalf("Login requests = %d, want 1", got)
	}
	if !f.coord.Snapshot().Registered {
		t.Fatal("coordinator not marked registered after login")
	}

	// An unchanged identity is not re-sent.
	f.coord.SyncRegistration(ctx)
	if got := f.server.count("Login"); got != 1 {
		t.Errorf("Login requests after redundant sync = %d, want 1", got)
	}

	// A number change is.
	f.identity.set(func(i *fakeIdentity) {
		i.numbers = append(i.numbers, PhoneNumber{Number: "5555678", Shared: true})
	})
	f.coord.SyncRegistration(ctx)
	if got := f.server.count("Login"); got != 2 {
		t.Errorf("Login requests after number change = %d, want 2", got)
	}
	if body := f.server.lastBody("Login"); !strings.Contains(body, "5555678") {
		t.Errorf("login body missing new number: %s", body)
	}
}

func TestSyncRegistrationLogsOutWhenIneligible(t *testing.T) {
	f := newCoordFixture(t)
	ctx := context.Background()

	f.coord.SyncRegistration(ctx)
	f.identity.set(func(i *fakeIdentity) { i.dnd = true })
	f.coord.SyncRegistration(ctx)

	if got := f.server.count("Logout"); got != 1 {
		t.Errorf("Logout requests = %d, want 1", got)
	}
	if f.coord.Snapshot().Registered {
		t.Error("coordinator still marked registered")
	}
}

func TestSyncRegistrationSkipsLogoutWhenNeverRegistered(t *testing.T) {
	f := newCoordFixture(t)
	f.identity.set(func(i *fakeIdentity) { i.known = false })

	f.coord.SyncRegistration(context.Background())
	if got := f.server.count("Logout"); got != 0 {
		t.Errorf("Logout requests = %d, want 0", got)
	}
}

func TestHandlePushReportsRinging(t *testing.T) {
	f := newCoordFixture(t)

	f.coord.HandlePush(pushFor("call-1", "10.0.0.1"))
	waitFor(t, "ringing report", func() bool { return f.server.count("Ringing") == 1 })

	if got := f.coord.Snapshot().PendingCalls; got != 1 {
		t.Errorf("pending calls = %d, want 1", got)
	}

	// Duplicate push keeps the original entry and reports again.
	f.coord.HandlePush(pushFor("call-1", "10.0.0.1"))
	waitFor(t, "second ringing report", func() bool { return f.server.count("Ringing") == 2 })
	if got := f.coord.Snapshot().PendingCalls; got != 1 {
		t.Errorf("pending calls after duplicate = %d, want 1", got)
	}
}

func TestRequestDeliveryReportsReady(t *testing.T) {
	f := newCoordFixture(t)

	f.coord.HandlePush(pushFor("call-1", "10.0.0.1"))
	f.coord.RequestDelivery("call-1", func() bool { return false })

	waitFor(t, "delivery report", func() bool { return f.server.count("Answer") == 1 })
	if body := f.server.lastBody("Answer"); strings.Contains(body, "ForceAnswer") {
		t.Errorf("ready report carried ForceAnswer: %s", body)
	}
	waitFor(t, "ready timeout restart", func() bool { return f.control.restartCount() == 1 })

	f.coord.CallDelivered("call-1")
	if got := f.coord.Snapshot().PendingCalls; got != 0 {
		t.Errorf("pending calls after delivery = %d, want 0", got)
	}
}

func TestRequestDeliveryUsesAnswerForEarlyAccept(t *testing.T) {
	f := newCoordFixture(t)

	f.coord.HandlePush(pushFor("call-1", "10.0.0.1"))
	f.coord.RequestDelivery("call-1", func() bool { return true })

	waitFor(t, "delivery report", func() bool { return f.server.count("Answer") == 1 })
	if body := f.server.lastBody("Answer"); !strings.Contains(body, `"ForceAnswer":true`) {
		t.Errorf("early-accepted delivery did not force answer: %s", body)
	}
}

func TestRequestDeliveryWaitsForSIPRegistration(t *testing.T) {
	f := newCoordFixture(t)
	f.identity.set(func(i *fakeIdentity) { i.server = "10.0.0.9" })

	f.coord.HandlePush(pushFor("call-1", "10.0.0.1"))
	f.coord.RequestDelivery("call-1", func() bool { return false })

	if got := f.coord.Snapshot().AwaitingSIPRegistration; got != 1 {
		t.Fatalf("awaiting registration = %d, want 1", got)
	}
	time.Sleep(50 * time.Millisecond)
	if got := f.server.count("Answer"); got != 0 {
		t.Fatalf("Answer requests before registration = %d, want 0", got)
	}

	// Registration for a different server leaves the call queued.
	f.coord.SIPRegistrationConfirmed("10.0.0.9")
	if got := f.coord.Snapshot().AwaitingSIPRegistration; got != 1 {
		t.Errorf("awaiting registration after wrong server = %d, want 1", got)
	}

	f.coord.SIPRegistrationConfirmed("10.0.0.1")
	waitFor(t, "delivery report", func() bool { return f.server.count("Answer") == 1 })
	if got := f.coord.Snapshot().AwaitingSIPRegistration; got != 0 {
		t.Errorf("awaiting registration after flush = %d, want 0", got)
	}
}

func TestPreemptForcesAnswer(t *testing.T) {
	f := newCoordFixture(t)

	f.coord.HandlePush(pushFor("call-1", "10.0.0.1"))
	f.coord.Preempt("call-1")

	waitFor(t, "forced answer", func() bool { return f.server.count("Answer") == 1 })
	if body := f.server.lastBody("Answer"); !strings.Contains(body, `"ForceAnswer":true`) {
		t.Errorf("preempt did not force answer: %s", body)
	}

	// A second report for the same call is suppressed.
	f.coord.RequestDelivery("call-1", func() bool { return false })
	time.Sleep(50 * time.Millisecond)
	if got := f.server.count("Answer"); got != 1 {
		t.Errorf("Answer requests = %d, want 1", got)
	}
}

func TestDeclineReportsAndDropsCall(t *testing.T) {
	f := newCoordFixture(t)

	f.coord.HandlePush(pushFor("call-1", "10.0.0.1"))
	f.coord.Decline("call-1")

	waitFor(t, "decline report", func() bool { return f.server.count("Decline") == 1 })
	if got := f.coord.Snapshot().PendingCalls; got != 0 {
		t.Errorf("pending calls after decline = %d, want 0", got)
	}

	// Declining an unknown call is a no-op.
	f.coord.Decline("call-9")
}

func TestPollFailureShortensSignalingTimeout(t *testing.T) {
	f := newCoordFixture(t)
	f.server.setResponse("CallAvailableCheck", 503, "gone")

	f.coord.HandlePush(pushFor("call-1", "10.0.0.1"))
	f.coord.RequestDelivery("call-1", func() bool { return false })

	waitFor(t, "shortened timeout", func() bool { return f.control.shortenCount() == 1 })

	// Polling stopped with the failure; no further checks accumulate.
	checks := f.server.count("CallAvailableCheck")
	time.Sleep(1200 * time.Millisecond)
	if got := f.server.count("CallAvailableCheck"); got != checks {
		t.Errorf("checks kept arriving after failure: %d -> %d", checks, got)
	}
}

func TestDeliveryFailureIsNonFatal(t *testing.T) {
	f := newCoordFixture(t)
	f.server.setResponse("Answer", 500, "boom")

	f.coord.HandlePush(pushFor("call-1", "10.0.0.1"))
	f.coord.RequestDelivery("call-1", func() bool { return false })

	waitFor(t, "failure report", func() bool { return f.sink.count() >= 1 })
	if got := f.control.restartCount(); got != 0 {
		t.Errorf("ready timeout restarted %d times after failed report, want 0", got)
	}
	// The handshake entry survives for a later decline or delivery.
	if got := f.coord.Snapshot().PendingCalls; got != 1 {
		t.Errorf("pending calls = %d, want 1", got)
	}
}
