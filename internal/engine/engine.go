// Package engine defines the boundary to the external call-signaling
// engine. The engine performs actual session setup and media negotiation;
// this package only describes the surface the coordinator consumes: a
// dial/signmail entry point, per-call control operations, and a typed
// asynchronous notification stream.
package engine

import (
	"fmt"
	"time"
)

// CallState is the engine's view of one call object's lifecycle.
type CallState int

const (
	// CallStateIdle indicates the call object exists but no signaling has started.
	CallStateIdle CallState = iota
	// CallStateDialing indicates outbound signaling is in progress.
	CallStateDialing
	// CallStateRinging indicates the remote side is being alerted.
	CallStateRinging
	// CallStateConnecting indicates answer signaling is in flight.
	CallStateConnecting
	// CallStateConnected indicates the call is established.
	CallStateConnected
	// CallStateHeld indicates the call is established but on hold.
	CallStateHeld
	// CallStateEnded indicates the call object has been released.
	CallStateEnded
)

// String returns the string representation of the call state.
func (s CallState) String() string {
	switch s {
	case CallStateIdle:
		return "Idle"
	case CallStateDialing:
		return "Dialing"
	case CallStateRinging:
		return "Ringing"
	case CallStateConnecting:
		return "Connecting"
	case CallStateConnected:
		return "Connected"
	case CallStateHeld:
		return "Held"
	case CallStateEnded:
		return "Ended"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// DialRequest carries the parameters of an outbound call.
type DialRequest struct {
	Number          string
	DisplayName     string
	RelayLanguage   string
	VCO             bool
	ForceEncryption bool
}

// Call is a live engine call object. Each control operation returns its
// synchronous outcome; the asynchronous result arrives on the engine's
// notification stream keyed to this call's ID.
type Call interface {
	// ID returns the engine call identifier. For push-originated calls
	// this matches the SIP call ID named in the push payload.
	ID() string

	// State returns the engine's current view of the call.
	State() CallState

	// Duration returns the elapsed connected time for the call.
	Duration() time.Duration

	// Holdable reports whether the call may be placed on hold.
	Holdable() bool
	// Joinable reports whether the call may be joined into a conference.
	Joinable() bool
	// Transferable reports whether the call may be transferred.
	Transferable() bool

	Answer() error
	Hold() error
	Resume() error
	Join() error
	Transfer(number string) error
	HangUp() error
	Reject() error
}

// Engine is the externally supplied call-signaling engine.
type Engine interface {
	// Dial starts an outbound call and returns its call object.
	Dial(req DialRequest) (Call, error)

	// SignmailSend starts a direct sign-mail deposit to number.
	SignmailSend(number string) (Call, error)

	// Notifications returns the engine's event stream. The channel is
	// closed when the engine shuts down. Events for the same call are
	// delivered in emission order.
	Notifications() <-chan Notification

	// MaxInboundCalls reports the engine's inbound call capacity,
	// or 0 when the engine does not advertise one.
	MaxInboundCalls() int

	Close() error
}
