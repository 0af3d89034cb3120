package call

import "fmt"

// Completion delivers the asynchronous result of a call operation.
// A nil Completion is legal and simply discards the result.
type Completion func(error)

func (c Completion) call(err error) {
	if c != nil {
		c(err)
	}
}

// ActionKind identifies a deferred call operation.
type ActionKind int

const (
	// ActionReceive finishes accepting an inbound call once its engine
	// call object exists.
	ActionReceive ActionKind = iota
	// ActionAnswer completes an answer request.
	ActionAnswer
	// ActionHold completes a hold request.
	ActionHold
	// ActionResume completes a resume request.
	ActionResume
	// ActionJoin completes a join-into-conference request.
	ActionJoin
	// ActionTransfer completes a transfer request.
	ActionTransfer
	// ActionEnd completes a hangup/reject request.
	ActionEnd
)

// String returns the string representation of the action kind.
func (k ActionKind) String() string {
	switch k {
	case ActionReceive:
		return "Receive"
	case ActionAnswer:
		return "Answer"
	case ActionHold:
		return "Hold"
	case ActionResume:
		return "Resume"
	case ActionJoin:
		return "Join"
	case ActionTransfer:
		return "Transfer"
	case ActionEnd:
		return "End"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// deferredAction is a queued operation waiting either for the engine
// call object to exist or for an already-issued engine operation to
// resolve. The same (session, kind) pair may be queued more than once;
// fulfillment fires each matching entry exactly once, in enqueue order.
type deferredAction struct {
	session  *Session
	kind     ActionKind
	complete Completion
}

// actionQueue is an enqueue-order-preserving list of deferred actions.
type actionQueue struct {
	entries []deferredAction
}

func (q *actionQueue) push(s *Session, kind ActionKind, complete Completion) {
	q.entries = append(q.entries, deferredAction{session: s, kind: kind, complete: complete})
}

// take removes and returns every entry matching (session, kind),
// preserving enqueue order.
func (q *actionQueue) take(s *Session, kind ActionKind) []deferredAction {
	return q.filter(func(a deferredAction) bool {
		return a.session == s && a.kind == kind
	})
}

// takeKind removes and returns every entry of the given kind across all
// sessions, preserving enqueue order.
func (q *actionQueue) takeKind(kind ActionKind) []deferredAction {
	return q.filter(func(a deferredAction) bool { return a.kind == kind })
}

// takeSession removes and returns every entry for the session except
// the excluded kinds, preserving enqueue order.
func (q *actionQueue) takeSession(s *Session, except ...ActionKind) []deferredAction {
	return q.filter(func(a deferredAction) bool {
		if a.session != s {
			return false
		}
		for _, k := range except {
			if a.kind == k {
				return false
			}
		}
		return true
	})
}

func (q *actionQueue) filter(match func(deferredAction) bool) []deferredAction {
	var taken []deferredAction
	kept := q.entries[:0]
	for _, a := range q.entries {
		if match(a) {
			taken = append(taken, a)
		} else {
			kept = append(kept, a)
		}
	}
	q.entries = kept
	return taken
}

func (q *actionQueue) len() int { return len(q.entries) }

// fire invokes the completions in order with the given error. Callers
// must not hold the coordinator lock.
func fire(actions []deferredAction, err error) {
	for _, a := range actions {
		a.complete.call(err)
	}
}
