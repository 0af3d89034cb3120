package call

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorWrappingPreservesCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := WrapError(CodeFailedToAnswer, cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
	if got := err.Error(); got != "FailedToAnswer: socket closed" {
		t.Errorf("Error() = %q, want %q", got, "FailedToAnswer: socket closed")
	}
}

func TestCodeOf(t *testing.T) {
	if _, ok := CodeOf(errors.New("plain")); ok {
		t.Error("CodeOf(plain error) reported ok")
	}
	wrapped := fmt.Errorf("outer: %w", NewError(CodeTimeout))
	code, ok := CodeOf(wrapped)
	if !ok || code != CodeTimeout {
		t.Errorf("CodeOf(wrapped) = (%v, %v), want (Timeout, true)", code, ok)
	}
	if !IsCode(wrapped, CodeTimeout) {
		t.Error("IsCode(wrapped, Timeout) = false")
	}
	if IsCode(wrapped, CodeNetworkRequired) {
		t.Error("IsCode matched the wrong code")
	}
}
