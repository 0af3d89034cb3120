package call

import "testing"

func TestActionQueuePreservesEnqueueOrder(t *testing.T) {
	var q actionQueue
	s := newSession(DirectionIncoming, "1001", "")
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		q.push(s, ActionAnswer, func(error) { order = append(order, i) })
	}

	fire(q.take(s, ActionAnswer), nil)
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("completion order = %v, want [0 1 2]", order)
	}
	if q.len() != 0 {
		t.Errorf("queue length = %d after take, want 0", q.len())
	}
}

func TestActionQueueTakeMatchesSessionAndKind(t *testing.T) {
	var q actionQueue
	a := newSession(DirectionIncoming, "1001", "")
	b := newSession(DirectionIncoming, "1002", "")
	q.push(a, ActionAnswer, nil)
	q.push(b, ActionAnswer, nil)
	q.push(a, ActionHold, nil)

	got := q.take(a, ActionAnswer)
	if len(got) != 1 || got[0].session != a {
		t.Fatalf("take(a, Answer) returned %d entries, want 1 for a", len(got))
	}
	if q.len() != 2 {
		t.Errorf("queue length = %d, want 2", q.len())
	}
}

func TestActionQueueTakeKindSpansSessions(t *testing.T) {
	var q actionQueue
	a := newSession(DirectionIncoming, "1001", "")
	b := newSession(DirectionIncoming, "1002", "")
	q.push(a, ActionReceive, nil)
	q.push(b, ActionReceive, nil)
	q.push(a, ActionAnswer, nil)

	got := q.takeKind(ActionReceive)
	if len(got) != 2 {
		t.Fatalf("takeKind(Receive) returned %d entries, want 2", len(got))
	}
	if q.len() != 1 {
		t.Errorf("queue length = %d, want 1", q.len())
	}
}

func TestActionQueueTakeSessionHonorsExclusions(t *testing.T) {
	var q actionQueue
	s := newSession(DirectionIncoming, "1001", "")
	q.push(s, ActionAnswer, nil)
	q.push(s, ActionJoin, nil)
	q.push(s, ActionHold, nil)

	got := q.takeSession(s, ActionJoin)
	if len(got) != 2 {
		t.Fatalf("takeSession(except Join) returned %d entries, want 2", len(got))
	}
	rest := q.takeSession(s)
	if len(rest) != 1 || rest[0].kind != ActionJoin {
		t.Errorf("remaining entries = %v, want one Join", rest)
	}
}

func TestNilCompletionIsSafe(t *testing.T) {
	var c Completion
	c.call(nil) // must not panic
	fire([]deferredAction{{complete: nil}}, ErrSessionEnded)
}
