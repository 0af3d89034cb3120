package call

import "testing"

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateInitializing, "Initializing"},
		{StateAwaitingAuthentication, "AwaitingAuthentication"},
		{StatePleaseWait, "PleaseWait"},
		{StateRinging, "Ringing"},
		{StateConferencing, "Conferencing"},
		{StateEnded, "Ended"},
		{State(99), "Unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestOnlyEndedIsTerminal(t *testing.T) {
	for s := StateInitializing; s <= StateEnded; s++ {
		want := s == StateEnded
		if got := s.IsTerminal(); got != want {
			t.Errorf("%v.IsTerminal() = %v, want %v", s, got, want)
		}
	}
}

func TestPreRingingStates(t *testing.T) {
	pre := map[State]bool{
		StateInitializing: true,
		StateRinging:      true,
		StatePleaseWait:   true,
	}
	for s := StateInitializing; s <= StateEnded; s++ {
		if got := s.preRinging(); got != pre[s] {
			t.Errorf("%v.preRinging() = %v, want %v", s, got, pre[s])
		}
	}
}

func TestSessionStateIsSealedAfterEnd(t *testing.T) {
	s := newSession(DirectionOutgoing, "1001", "")
	if !s.end(EndReasonLocal, nil) {
		t.Fatal("first end returned false")
	}
	if s.end(EndReasonRemote, nil) {
		t.Error("second end returned true, want no-op")
	}
	if s.setState(StateRinging) {
		t.Error("setState succeeded on an ended session")
	}
	if s.state != StateEnded || s.endReason != EndReasonLocal {
		t.Errorf("session = (%v, %v), want (Ended, Local)", s.state, s.endReason)
	}
}
