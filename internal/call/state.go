// Package call owns the lifecycle of every call session. The Coordinator
// reconciles user intents, engine notifications, and push-relay handshake
// results into a single ordered list of sessions, queueing work that
// cannot complete yet and driving the timeouts that bound call setup.
package call

import "fmt"

// State is the lifecycle state of a call session.
type State int

const (
	// StateInitializing is the initial state for most sessions.
	StateInitializing State = iota
	// StateAwaitingAuthentication holds an outgoing call until sign-in completes.
	StateAwaitingAuthentication
	// StateAwaitingRedirect means the call was redirected and is re-targeting.
	StateAwaitingRedirect
	// StateAwaitingVRSPrompt means the engine is showing a VRS prompt.
	StateAwaitingVRSPrompt
	// StateAwaitingSelfCertification holds the call until the account self-certifies.
	StateAwaitingSelfCertification
	// StateAwaitingAppForeground holds an outgoing call until the app foregrounds.
	StateAwaitingAppForeground
	// StatePleaseWait means the user answered before the engine call object
	// existed, or the remote side asked the caller to hold on.
	StatePleaseWait
	// StateRinging means the call is alerting; the session's ring counter advances.
	StateRinging
	// StateConnecting means answer signaling is in flight.
	StateConnecting
	// StateConferencing means the call is established.
	StateConferencing
	// StateLeavingMessage means the call dropped to message recording.
	StateLeavingMessage
	// StateEnded is terminal. No transition leaves it.
	StateEnded
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "Initializing"
	case StateAwaitingAuthentication:
		return "AwaitingAuthentication"
	case StateAwaitingRedirect:
		return "AwaitingRedirect"
	case StateAwaitingVRSPrompt:
		return "AwaitingVRSPrompt"
	case StateAwaitingSelfCertification:
		return "AwaitingSelfCertification"
	case StateAwaitingAppForeground:
		return "AwaitingAppForeground"
	case StatePleaseWait:
		return "PleaseWait"
	case StateRinging:
		return "Ringing"
	case StateConnecting:
		return "Connecting"
	case StateConferencing:
		return "Conferencing"
	case StateLeavingMessage:
		return "LeavingMessage"
	case StateEnded:
		return "Ended"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// IsTerminal returns true if this is a terminal state.
func (s State) IsTerminal() bool {
	return s == StateEnded
}

// preRinging reports whether the session never progressed past alerting.
// A timeout in one of these states ends the call without an error.
func (s State) preRinging() bool {
	switch s {
	case StateInitializing, StateRinging, StatePleaseWait:
		return true
	default:
		return false
	}
}

// Direction indicates whether a session was placed or received.
type Direction int

const (
	// DirectionOutgoing represents a call placed from this device.
	DirectionOutgoing Direction = iota
	// DirectionIncoming represents a call received by this device.
	DirectionIncoming
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionOutgoing:
		return "Outgoing"
	case DirectionIncoming:
		return "Incoming"
	default:
		return fmt.Sprintf("Unknown(%d)", d)
	}
}

// EndReason explains why a session ended.
type EndReason int

const (
	// EndReasonNone indicates the session has not ended.
	EndReasonNone EndReason = iota
	// EndReasonLocal means this side ended the call.
	EndReasonLocal
	// EndReasonRemote means the remote side ended the call.
	EndReasonRemote
	// EndReasonTimeout means the local setup timeout fired.
	EndReasonTimeout
	// EndReasonFiltered means the call was screened out by a local
	// filtering decision, not a failure.
	EndReasonFiltered
	// EndReasonError means the call ended because an operation failed.
	EndReasonError
)

// String returns the string representation of the end reason.
func (r EndReason) String() string {
	switch r {
	case EndReasonNone:
		return "None"
	case EndReasonLocal:
		return "Local"
	case EndReasonRemote:
		return "Remote"
	case EndReasonTimeout:
		return "Timeout"
	case EndReasonFiltered:
		return "Filtered"
	case EndReasonError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", r)
	}
}
