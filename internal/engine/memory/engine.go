// Package memory provides an in-memory CallEngine implementation used by
// cmd/videophone in development mode and by coordinator tests. Calls are
// plain records; control operations succeed synchronously and emit the
// matching notifications on the engine stream.
package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sebas/videophone/internal/engine"
)

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("memory engine closed")

// Engine is an in-memory call engine.
type Engine struct {
	mu         sync.Mutex
	calls      map[string]*Call
	notify     chan engine.Notification
	maxInbound int
	closed     bool
}

// New creates a memory engine with the given inbound capacity
// (0 means the engine does not advertise one).
func New(maxInbound int) *Engine {
	return &Engine{
		calls:      make(map[string]*Call),
		notify:     make(chan engine.Notification, 64),
		maxInbound: maxInbound,
	}
}

// Dial creates an outbound call object and emits Dialing.
func (e *Engine) Dial(req engine.DialRequest) (engine.Call, error) {
	c, err := e.newCall(uuid.NewString(), engine.CallStateDialing)
	if err != nil {
		return nil, err
	}
	c.number = req.Number
	e.Emit(engine.Notification{Kind: engine.NotifyDialing, Call: c})
	return c, nil
}

// SignmailSend creates a direct message-deposit call and emits Dialing.
func (e *Engine) SignmailSend(number string) (engine.Call, error) {
	c, err := e.newCall(uuid.NewString(), engine.CallStateDialing)
	if err != nil {
		return nil, err
	}
	c.number = number
	c.signmail = true
	e.Emit(engine.Notification{Kind: engine.NotifyDialing, Call: c})
	return c, nil
}

// OfferIncoming creates an inbound call object under the given call ID
// and emits Incoming. Test and development hook: this is how signaling
// arrival is simulated.
func (e *Engine) OfferIncoming(callID string) (engine.Call, error) {
	c, err := e.newCall(callID, engine.CallStateRinging)
	if err != nil {
		return nil, err
	}
	e.Emit(engine.Notification{Kind: engine.NotifyIncoming, Call: c})
	return c, nil
}

// Emit places a notification on the engine stream. Drops the event if the
// stream buffer is full rather than blocking the caller.
func (e *Engine) Emit(n engine.Notification) {
	select {
	case e.notify <- n:
	default:
	}
}

// Notifications returns the engine event stream.
func (e *Engine) Notifications() <-chan engine.Notification {
	return e.notify
}

// MaxInboundCalls reports the configured inbound capacity.
func (e *Engine) MaxInboundCalls() int {
	return e.maxInbound
}

// Close shuts the engine down and closes the notification stream.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	close(e.notify)
	return nil
}

func (e *Engine) newCall(id string, st engine.CallState) (*Call, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	c := &Call{engine: e, id: id, state: st, holdable: true, joinable: true, transferable: true}
	e.calls[id] = c
	return c, nil
}

// Call is one in-memory call object.
type Call struct {
	engine *Engine

	mu          sync.Mutex
	id          string
	number      string
	signmail    bool
	state       engine.CallState
	connectedAt time.Time
	released    time.Duration

	holdable     bool
	joinable     bool
	transferable bool
}

// ID returns the call identifier.
func (c *Call) ID() string { return c.id }

// State returns the current call state.
func (c *Call) State() engine.CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Duration returns elapsed connected time.
func (c *Call) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == engine.CallStateEnded {
		return c.released
	}
	if c.connectedAt.IsZero() {
		return 0
	}
	return time.Since(c.connectedAt)
}

// SetCapabilities adjusts the hold/join/transfer flags. Test hook.
func (c *Call) SetCapabilities(holdable, joinable, transferable bool) {
	c.mu.Lock()
	c.holdable, c.joinable, c.transferable = holdable, joinable, transferable
	c.mu.Unlock()
}

func (c *Call) Holdable() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.holdable }
func (c *Call) Joinable() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.joinable }
func (c *Call) Transferable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transferable
}

// Answer accepts an inbound call: Answering, then Conferencing.
func (c *Call) Answer() error {
	if err := c.transition(engine.CallStateConnecting); err != nil {
		return err
	}
	c.engine.Emit(engine.Notification{Kind: engine.NotifyAnswering, Call: c})
	c.mu.Lock()
	c.state = engine.CallStateConnected
	c.connectedAt = time.Now()
	c.mu.Unlock()
	c.engine.Emit(engine.Notification{Kind: engine.NotifyConferencing, Call: c})
	return nil
}

// Hold places the call on hold and emits Held.
func (c *Call) Hold() error {
	if err := c.transition(engine.CallStateHeld); err != nil {
		return err
	}
	c.engine.Emit(engine.Notification{Kind: engine.NotifyHeld, Call: c})
	return nil
}

// Resume takes the call off hold and emits Resumed.
func (c *Call) Resume() error {
	if err := c.transition(engine.CallStateConnected); err != nil {
		return err
	}
	c.engine.Emit(engine.Notification{Kind: engine.NotifyResumed, Call: c})
	return nil
}

// Join merges the call into the active conference.
func (c *Call) Join() error {
	c.engine.Emit(engine.Notification{Kind: engine.NotifyEstablishingConference, Call: c})
	if err := c.transition(engine.CallStateConnected); err != nil {
		return err
	}
	c.engine.Emit(engine.Notification{Kind: engine.NotifyConferencing, Call: c})
	return nil
}

// Transfer redirects the call to number and emits Dialing for the new target.
func (c *Call) Transfer(number string) error {
	c.mu.Lock()
	if c.state == engine.CallStateEnded {
		c.mu.Unlock()
		return errCallEnded(c.id)
	}
	c.number = number
	c.state = engine.CallStateDialing
	c.mu.Unlock()
	c.engine.Emit(engine.Notification{Kind: engine.NotifyDialing, Call: c})
	return nil
}

// HangUp releases the call and emits Disconnected.
func (c *Call) HangUp() error { return c.end("hangup") }

// Reject declines an unanswered call and emits Disconnected.
func (c *Call) Reject() error { return c.end("rejected") }

func (c *Call) end(reason string) error {
	c.mu.Lock()
	if c.state == engine.CallStateEnded {
		c.mu.Unlock()
		return nil
	}
	if !c.connectedAt.IsZero() {
		c.released = time.Since(c.connectedAt)
	}
	c.state = engine.CallStateEnded
	c.mu.Unlock()

	c.engine.mu.Lock()
	delete(c.engine.calls, c.id)
	c.engine.mu.Unlock()

	c.engine.Emit(engine.Notification{Kind: engine.NotifyDisconnected, Call: c, Reason: reason})
	return nil
}

func (c *Call) transition(next engine.CallState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == engine.CallStateEnded {
		return errCallEnded(c.id)
	}
	c.state = next
	return nil
}

type callEndedError string

func (e callEndedError) Error() string { return "call already ended: " + string(e) }

func errCallEnded(id string) error { return callEndedError(id) }
