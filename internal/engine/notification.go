package engine

import "fmt"

// NotificationKind identifies an engine event.
type NotificationKind int

const (
	// NotifyDialing indicates outbound signaling started for a call.
	NotifyDialing NotificationKind = iota
	// NotifyPreIncoming indicates early inbound signaling was seen before
	// the call was offered to the application.
	NotifyPreIncoming
	// NotifyIncoming indicates an inbound call object is available.
	NotifyIncoming
	// NotifyAnswering indicates answer signaling is in flight.
	NotifyAnswering
	// NotifyDisconnected indicates the call ended; Reason carries the cause.
	NotifyDisconnected
	// NotifyHeld indicates a hold request completed.
	NotifyHeld
	// NotifyResumed indicates a resume request completed.
	NotifyResumed
	// NotifyEstablishingConference indicates the call is being joined
	// into its conference.
	NotifyEstablishingConference
	// NotifyConferencing indicates the call is established in conference.
	NotifyConferencing
	// NotifyLeaveMessage indicates the call dropped to message recording.
	NotifyLeaveMessage
	// NotifySelfCertRequired indicates the account must self-certify
	// before the call can proceed.
	NotifySelfCertRequired
	// NotifyVRSPrompt indicates the engine is showing a VRS prompt.
	NotifyVRSPrompt
	// NotifyRedirect indicates the call was redirected; Number carries
	// the new destination.
	NotifyRedirect
	// NotifyRingCountChanged indicates the ring counter advanced.
	NotifyRingCountChanged
	// NotifyPleaseWait indicates the remote side asked the caller to hold on.
	NotifyPleaseWait
	// NotifyMailboxFull indicates a message deposit failed: mailbox full.
	NotifyMailboxFull
	// NotifyMessageSendFailed indicates a recorded message failed to send.
	NotifyMessageSendFailed
	// NotifyUploadURLFailed indicates the engine could not obtain an
	// upload URL for a message deposit.
	NotifyUploadURLFailed
)

// String returns the string representation of the notification kind.
func (k NotificationKind) String() string {
	switch k {
	case NotifyDialing:
		return "Dialing"
	case NotifyPreIncoming:
		return "PreIncoming"
	case NotifyIncoming:
		return "Incoming"
	case NotifyAnswering:
		return "Answering"
	case NotifyDisconnected:
		return "Disconnected"
	case NotifyHeld:
		return "Held"
	case NotifyResumed:
		return "Resumed"
	case NotifyEstablishingConference:
		return "EstablishingConference"
	case NotifyConferencing:
		return "Conferencing"
	case NotifyLeaveMessage:
		return "LeaveMessage"
	case NotifySelfCertRequired:
		return "SelfCertRequired"
	case NotifyVRSPrompt:
		return "VRSPrompt"
	case NotifyRedirect:
		return "Redirect"
	case NotifyRingCountChanged:
		return "RingCountChanged"
	case NotifyPleaseWait:
		return "PleaseWait"
	case NotifyMailboxFull:
		return "MailboxFull"
	case NotifyMessageSendFailed:
		return "MessageSendFailed"
	case NotifyUploadURLFailed:
		return "UploadURLFailed"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Notification is one event on the engine stream, keyed to a call object.
type Notification struct {
	Kind NotificationKind
	Call Call

	// Reason carries the disconnect cause for NotifyDisconnected.
	Reason string
	// Number carries the new destination for NotifyRedirect.
	Number string
	// Inbound and RingCount qualify NotifyRingCountChanged.
	Inbound   bool
	RingCount int
}
