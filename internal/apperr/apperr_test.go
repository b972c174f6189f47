package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(KindNotFound, "session missing")
	if err.Kind != KindNotFound {
		t.Errorf("kind = %v", err.Kind)
	}
	if err.Retryable {
		t.Error("not_found should not be retryable")
	}
	if got := err.Error(); got != "not_found: session missing" {
		t.Errorf("Error() = %q", got)
	}
}

func TestNew_TimeoutIsRetryable(t *testing.T) {
	if !New(KindTimeout, "too slow").Retryable {
		t.Error("timeout should be retryable")
	}
	if !Wrap(KindTimeout, "too slow", errors.New("deadline")).Retryable {
		t.Error("wrapped timeout should be retryable")
	}
}

func TestWrap_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindExternal, "embed call failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should see the cause")
	}
	want := "external_service: embed call failed: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestExternal(t *testing.T) {
	if !External("rate limited", true, nil).Retryable {
		t.Error("explicit retryable flag ignored")
	}
	if External("bad request", false, nil).Retryable {
		t.Error("explicit non-retryable flag ignored")
	}
	if External("x", false, nil).Kind != KindExternal {
		t.Error("kind should be external_service")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(New(KindInvalidInput, "empty question")); got != KindInvalidInput {
		t.Errorf("KindOf = %v", got)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain) = %v, want internal", got)
	}
	// Kind survives further wrapping with %w.
	wrapped := fmt.Errorf("ask: %w", New(KindNotFound, "no such session"))
	if got := KindOf(wrapped); got != KindNotFound {
		t.Errorf("KindOf(wrapped) = %v", got)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
	wrapped := fmt.Errorf("embed: %w", External("overloaded", true, nil))
	if !IsRetryable(wrapped) {
		t.Error("retryable flag should survive wrapping")
	}
}

func TestIs(t *testing.T) {
	err := New(KindNotFound, "missing")
	if !Is(err, KindNotFound) {
		t.Error("Is(not_found) = false")
	}
	if Is(err, KindTimeout) {
		t.Error("Is(timeout) = true")
	}
	if !Is(errors.New("plain"), KindInternal) {
		t.Error("unclassified errors are internal")
	}
}
