package call

import (
	"errors"
	"fmt"
)

// ErrSessionEnded is used to fulfill deferred actions when their session
// ends locally before the action could complete.
var ErrSessionEnded = errors.New("call session ended")

// ErrEngineClosed fulfills deferred actions left behind when the engine
// notification stream closes before they could resolve.
var ErrEngineClosed = errors.New("call engine closed")

// Code classifies a call error. Precondition codes are returned
// synchronously before any side effect; engine codes surface after an
// attempted operation and end the session; Timeout is terminal.
type Code int

const (
	// CodeNetworkRequired - no network connectivity.
	CodeNetworkRequired Code = iota
	// CodeMaxCallsExceeded - inbound or outbound capacity reached.
	CodeMaxCallsExceeded
	// CodeOnlyOneActiveCallAllowed - another non-held call is active or
	// an outgoing call is already pending.
	CodeOnlyOneActiveCallAllowed
	// CodeCallAlreadyInProgress - the requested call duplicates one in progress.
	CodeCallAlreadyInProgress
	// CodeNotHoldable - the engine call does not support hold.
	CodeNotHoldable
	// CodeNotJoinable - the engine call does not support joining.
	CodeNotJoinable
	// CodeNotTransferable - the engine call does not support transfer.
	CodeNotTransferable
	// CodeRequiresAuthentication - the destination needs a signed-in account.
	CodeRequiresAuthentication
	// CodeRequiresEULAAcceptance - the user rejected the EULA.
	CodeRequiresEULAAcceptance
	// CodeRequiresCallback - the account must complete a callback before calls.
	CodeRequiresCallback
	// CodeRequiresSelfCertification - the account must self-certify first.
	CodeRequiresSelfCertification
	// CodeInvalidDialString - the destination is not dialable.
	CodeInvalidDialString
	// CodeDialingSelf - the destination is one of our own numbers.
	CodeDialingSelf
	// CodeFeatureDisabled - the requested feature is switched off.
	CodeFeatureDisabled
	// CodeCallerIDBlockConflict - caller-ID block conflicts with sign-mail skip.
	CodeCallerIDBlockConflict
	// CodeRestrictedMode - not available while the client is restricted.
	CodeRestrictedMode
	// CodeCallFiltered - the call was screened out locally.
	CodeCallFiltered
	// CodeTimeout - the local setup timeout fired.
	CodeTimeout

	// Engine failure codes.
	CodeDialFailed
	CodeFailedToAnswer
	CodeFailedToEnd
	CodeFailedToHold
	CodeFailedToResume
	CodeFailedToJoin
	CodeFailedToTransfer
	CodeFailedToSendSignmail
	CodeMailboxFull
	CodeMessageSendFailed
	CodeUploadURLFailed
)

// String returns the string representation of the code.
func (c Code) String() string {
	switch c {
	case CodeNetworkRequired:
		return "NetworkRequired"
	case CodeMaxCallsExceeded:
		return "MaxCallsExceeded"
	case CodeOnlyOneActiveCallAllowed:
		return "OnlyOneActiveCallAllowed"
	case CodeCallAlreadyInProgress:
		return "CallAlreadyInProgress"
	case CodeNotHoldable:
		return "NotHoldable"
	case CodeNotJoinable:
		return "NotJoinable"
	case CodeNotTransferable:
		return "NotTransferable"
	case CodeRequiresAuthentication:
		return "RequiresAuthentication"
	case CodeRequiresEULAAcceptance:
		return "RequiresEULAAcceptance"
	case CodeRequiresCallback:
		return "RequiresCallback"
	case CodeRequiresSelfCertification:
		return "RequiresSelfCertification"
	case CodeInvalidDialString:
		return "InvalidDialString"
	case CodeDialingSelf:
		return "DialingSelf"
	case CodeFeatureDisabled:
		return "FeatureDisabled"
	case CodeCallerIDBlockConflict:
		return "CallerIDBlockConflict"
	case CodeRestrictedMode:
		return "RestrictedMode"
	case CodeCallFiltered:
		return "CallFiltered"
	case CodeTimeout:
		return "Timeout"
	case CodeDialFailed:
		return "DialFailed"
	case CodeFailedToAnswer:
		return "FailedToAnswer"
	case CodeFailedToEnd:
		return "FailedToEnd"
	case CodeFailedToHold:
		return "FailedToHold"
	case CodeFailedToResume:
		return "FailedToResume"
	case CodeFailedToJoin:
		return "FailedToJoin"
	case CodeFailedToTransfer:
		return "FailedToTransfer"
	case CodeFailedToSendSignmail:
		return "FailedToSendSignmail"
	case CodeMailboxFull:
		return "MailboxFull"
	case CodeMessageSendFailed:
		return "MessageSendFailed"
	case CodeUploadURLFailed:
		return "UploadURLFailed"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// Error is a classified call error.
type Error struct {
	Code  Code
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError creates an Error with the given code.
func NewError(code Code) *Error { return &Error{Code: code} }

// WrapError creates an Error with the given code and cause.
func WrapError(code Code, cause error) *Error { return &Error{Code: code, Cause: cause} }

// CodeOf extracts the Code from err, reporting ok=false for foreign errors.
func CodeOf(err error) (Code, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return 0, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
