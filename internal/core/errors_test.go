// internal/core/errors_test.go
package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_Is(t *testing.T) {
	if !errors.Is(ErrUnknownPair, ErrUnknownPair) {
		t.Error("same error should match")
	}
	if errors.Is(ErrInsufficientData, ErrDataValidation) {
		t.Error("different codes should not match")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrProvider, cause)
	if wrapped.Cause != cause {
		t.Error("cause not set")
	}
	if wrapped.Code != ErrProvider.Code {
		t.Error("code not preserved")
	}
	if !errors.Is(wrapped, ErrProvider) {
		t.Error("wrapped error should match its base")
	}
}

func TestMissingFieldsError(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	err := MissingFieldsError(ts, "lower_band", "rsi")

	if !errors.Is(err, ErrDataValidation) {
		t.Fatal("expected data validation error")
	}
	msg := err.Error()
	for _, want := range []string{"lower_band", "rsi", "2024-03-01T00:00:00Z"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}
