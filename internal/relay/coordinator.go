package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sebas/videophone/internal/sched"
)

// Identity supplies the device/account facts the coordinator needs to
// keep relay registration in sync and to gate call delivery.
type Identity interface {
	// DeviceToken returns the push device token, "" when none is known.
	DeviceToken() string
	// PhoneNumbers returns the numbers this device answers for.
	PhoneNumbers() []PhoneNumber
	// SIPServer returns the currently registered SIP server, "" when
	// registration has not completed.
	SIPServer() string
	// AccountKnown reports whether a signed-in account exists.
	AccountKnown() bool
	// DoNotDisturb reports whether the user has silenced incoming calls.
	DoNotDisturb() bool
	// RingsBeforeGreeting returns the account's ring-count setting.
	RingsBeforeGreeting() int
	// DevRelay reports whether to register against the dev relay pool.
	DevRelay() bool
}

// CallControl is the coordinator's path back into call handling. Relay
// outcomes only ever adjust timeouts; the call coordinator's local
// timeout is the sole authority for giving up on a call.
type CallControl interface {
	// RestartReadyTimeout re-arms the call's ready timeout after the
	// relay accepted a delivery report.
	RestartReadyTimeout(callID string)
	// ShortenSignalingTimeout drops the call's timeout to the short
	// value once signaling is known to be imminent.
	ShortenSignalingTimeout(callID string)
}

// pollInterval is the cadence of the call-available check after a
// delivery report, while the engine call object has not appeared yet.
const pollInterval = time.Second

type pendingCall struct {
	info     *PushInfo
	answered func() bool
	poll     *sched.Repeater
	reported bool
}

// CoordinatorConfig configures a relay Coordinator.
type CoordinatorConfig struct {
	Client   *Client
	Identity Identity
	Control  CallControl
	Sink     LogSink
	Logger   *slog.Logger
	// DeviceType is reported at login so the relay can pick
	// platform-appropriate push behavior. Defaults to "videophone".
	DeviceType string
}

// Coordinator drives the push-relay protocol: registration sync, the
// ringing/ready/answer handshake for push-originated calls, and the
// poll-until-delivered loop. All relay failures are non-fatal to calls.
type Coordinator struct {
	client     *Client
	identity   Identity
	control    CallControl
	sink       LogSink
	log        *slog.Logger
	deviceType string

	mu          sync.Mutex
	pending     map[string]*pendingCall
	awaitingSIP []string
	registered  bool
	lastLogin   string
}

// NewCoordinator creates a relay coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	sink := cfg.Sink
	if sink == nil {
		sink = NopSink{}
	}
	deviceType := cfg.DeviceType
	if deviceType == "" {
		deviceType = "videophone"
	}
	return &Coordinator{
		client:     cfg.Client,
		identity:   cfg.Identity,
		control:    cfg.Control,
		sink:       sink,
		log:        log,
		deviceType: deviceType,
		pending:    make(map[string]*pendingCall),
	}
}

// SetCallControl installs the call-side timeout hooks. It must be
// called before the first push arrives; construction order puts the
// call coordinator after the relay coordinator.
func (c *Coordinator) SetCallControl(control CallControl) {
	c.mu.Lock()
	c.control = control
	c.mu.Unlock()
}

func (c *Coordinator) callControl() CallControl {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.control
}

// SyncRegistration reconciles relay registration with current identity.
// Eligible (account known, device token present, SIP server known, DND
// off) means logged in with the current number set; anything else means
// logged out. Redundant syncs are cheap: an unchanged login is skipped.
func (c *Coordinator) SyncRegistration(ctx context.Context) {
	token := c.identity.DeviceToken()
	numbers := c.identity.PhoneNumbers()
	server := c.identity.SIPServer()
	eligible := token != "" && c.identity.AccountKnown() && server != "" &&
		!c.identity.DoNotDisturb() && len(numbers) > 0

	if !eligible {
		c.mu.Lock()
		wasRegistered := c.registered
		c.registered = false
		c.lastLogin = ""
		c.mu.Unlock()
		if !wasRegistered || token == "" {
			return
		}
		req := LogoutRequest{DeviceToken: token, PhoneNumbers: bareNumbers(numbers)}
		if err := c.client.Logout(ctx, req); err != nil {
			c.reportFailure("relay logout failed", err, nil)
		}
		return
	}

	sig := loginSignature(token, server, numbers)
	c.mu.Lock()
	if c.registered && c.lastLogin == sig {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	req := LoginRequest{
		DeviceToken:  token,
		DeviceType:   c.deviceType,
		RingCount:    c.identity.RingsBeforeGreeting(),
		Dev:          c.identity.DevRelay(),
		PhoneNumbers: numbers,
		SIPServer:    server,
	}
	if err := c.client.Login(ctx, req); err != nil {
		c.reportFailure("relay login failed", err, nil)
		return
	}
	c.mu.Lock()
	c.registered = true
	c.lastLogin = sig
	c.mu.Unlock()
	c.log.Info("relay registration updated", "numbers", len(numbers), "sip_server", server)
}

// HandlePush records a push-delivered call and reports ringing
// immediately. Delivery (ready/answer) waits for RequestDelivery.
func (c *Coordinator) HandlePush(info *PushInfo) {
	c.mu.Lock()
	if _, ok := c.pending[info.CallID]; ok {
		// Duplicate push delivery; keep the original entry.
		c.mu.Unlock()
	} else {
		c.pending[info.CallID] = &pendingCall{info: info}
		c.mu.Unlock()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.client.Ringing(ctx, handshake(info)); err != nil {
			c.reportFailure("relay ringing report failed", err, info)
		}
	}()
}

// RequestDelivery asks the relay to hand the call to this device.
// answered is evaluated at report time: true selects answer semantics,
// false a normal ring. When the locally registered SIP server does not
// match the server named in the push, the call is queued until a
// matching SIPRegistrationConfirmed arrives.
func (c *Coordinator) RequestDelivery(callID string, answered func() bool) {
	c.mu.Lock()
	p, ok := c.pending[callID]
	if !ok {
		c.mu.Unlock()
		return
	}
	p.answered = answered
	if c.identity.SIPServer() != p.info.SIPServer {
		if !contains(c.awaitingSIP, callID) {
			c.awaitingSIP = append(c.awaitingSIP, callID)
		}
		c.mu.Unlock()
		c.log.Info("call queued awaiting SIP registration",
			"call_id", callID, "push_sip_server", p.info.SIPServer,
			"local_sip_server", c.identity.SIPServer())
		return
	}
	c.mu.Unlock()
	c.deliver(p, false)
}

// SIPRegistrationConfirmed flushes calls queued for the given server,
// in one batch, choosing answer vs ready per call.
func (c *Coordinator) SIPRegistrationConfirmed(server string) {
	c.mu.Lock()
	var flush []*pendingCall
	var keep []string
	for _, id := range c.awaitingSIP {
		p, ok := c.pending[id]
		if !ok {
			continue
		}
		if p.info.SIPServer == server {
			flush = append(flush, p)
		} else {
			keep = append(keep, id)
		}
	}
	c.awaitingSIP = keep
	c.mu.Unlock()

	for _, p := range flush {
		c.deliver(p, false)
	}
}

// Preempt forces answer delivery for a call the user already accepted,
// bypassing the relay's ring-group wait. A call still queued for SIP
// registration stays queued; the flush will pick answer semantics.
func (c *Coordinator) Preempt(callID string) {
	c.mu.Lock()
	p, ok := c.pending[callID]
	queued := contains(c.awaitingSIP, callID)
	c.mu.Unlock()
	if !ok || queued {
		return
	}
	c.deliver(p, true)
}

// CallDelivered tells the coordinator the engine call object arrived:
// polling stops and the handshake entry is dropped.
func (c *Coordinator) CallDelivered(callID string) {
	c.mu.Lock()
	p, ok := c.pending[callID]
	if ok {
		delete(c.pending, callID)
		c.awaitingSIP = remove(c.awaitingSIP, callID)
	}
	c.mu.Unlock()
	if ok {
		p.poll.Stop()
	}
}

// Decline tells the relay this device will not take the call and drops
// the handshake entry.
func (c *Coordinator) Decline(callID string) {
	c.mu.Lock()
	p, ok := c.pending[callID]
	if ok {
		delete(c.pending, callID)
		c.awaitingSIP = remove(c.awaitingSIP, callID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	p.poll.Stop()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.client.Decline(ctx, handshake(p.info)); err != nil {
			c.reportFailure("relay decline failed", err, p.info)
		}
	}()
}

// deliver sends the ready/answer report and starts the one-second
// call-available poll. force selects ForceAnswer regardless of session
// state; otherwise the answered callback decides answer vs ready.
func (c *Coordinator) deliver(p *pendingCall, force bool) {
	c.mu.Lock()
	if p.reported {
		c.mu.Unlock()
		return
	}
	p.reported = true
	answeredFn := p.answered
	c.mu.Unlock()

	answer := force
	if !answer && answeredFn != nil {
		answer = answeredFn()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := c.client.Answer(ctx, handshake(p.info), answer)
		if err != nil {
			c.reportFailure("relay delivery report failed", err, p.info)
			return
		}
		c.log.Info("relay delivery reported", "call_id", p.info.CallID, "answer", answer)
		c.callControl().RestartReadyTimeout(p.info.CallID)
		c.startPoll(p)
	}()
}

// startPoll begins the once-per-second call-available check. A failed
// check means signaling is expected imminently: the local timeout is
// shortened and polling stops. A successful check keeps waiting.
func (c *Coordinator) startPoll(p *pendingCall) {
	c.mu.Lock()
	if _, live := c.pending[p.info.CallID]; !live || p.poll != nil {
		c.mu.Unlock()
		return
	}
	p.poll = sched.Every(pollInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), pollInterval)
		defer cancel()
		if err := c.client.CallAvailableCheck(ctx, handshake(p.info)); err != nil {
			c.reportFailure("relay call-available check failed", err, p.info)
			c.callControl().ShortenSignalingTimeout(p.info.CallID)
			p.poll.Stop()
		}
	})
	c.mu.Unlock()
}

// Status is a snapshot of coordinator state for diagnostics.
type Status struct {
	Registered              bool `json:"registered"`
	PendingCalls            int  `json:"pending_calls"`
	AwaitingSIPRegistration int  `json:"awaiting_sip_registration"`
}

// Snapshot returns the current coordinator status.
func (c *Coordinator) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Registered:              c.registered,
		PendingCalls:            len(c.pending),
		AwaitingSIPRegistration: len(c.awaitingSIP),
	}
}

func (c *Coordinator) reportFailure(msg string, err error, info *PushInfo) {
	fields := map[string]any{"error": err.Error()}
	if re, ok := err.(*RequestError); ok {
		fields["op"] = re.Op
		fields["status"] = re.StatusCode
		fields["response"] = re.ResponseBody
	}
	if info != nil {
		fields["call_id"] = info.CallID
		fields["ens_identifier"] = info.Identifier
		c.log.Warn(msg, "call_id", info.CallID, "error", err)
	} else {
		c.log.Warn(msg, "error", err)
	}
	c.sink.Report(msg, fields)
}

func handshake(info *PushInfo) HandshakeRequest {
	return HandshakeRequest{
		Identifier: info.Identifier,
		CallID:     info.CallID,
		SIPServer:  info.SIPServer,
	}
}

func loginSignature(token, server string, numbers []PhoneNumber) string {
	parts := make([]string, 0, len(numbers)+2)
	parts = append(parts, token, server)
	for _, n := range numbers {
		parts = append(parts, fmt.Sprintf("%s/%t", n.Number, n.Shared))
	}
	sort.Strings(parts[2:])
	return strings.Join(parts, "|")
}

func bareNumbers(numbers []PhoneNumber) []string {
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, n.Number)
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
