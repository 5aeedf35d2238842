package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	withCode := &Error{Type: ErrorTypeRateLimit, Message: "slow down", Code: 429}
	if got := withCode.Error(); got != "rate_limit error (code 429): slow down" {
		t.Errorf("Unexpected message: %q", got)
	}

	withoutCode := New(ErrorTypeDisk, "disk full")
	if got := withoutCode.Error(); got != "disk error: disk full" {
		t.Errorf("Unexpected message: %q", got)
	}
}

func TestTypeOf(t *testing.T) {
	if got := TypeOf(New(ErrorTypeAuth, "nope")); got != ErrorTypeAuth {
		t.Errorf("Expected auth, got %s", got)
	}

	wrapped := fmt.Errorf("outer: %w", New(ErrorTypeNetwork, "down"))
	if got := TypeOf(wrapped); got != ErrorTypeNetwork {
		t.Errorf("Expected network through the chain, got %s", got)
	}

	if got := TypeOf(stderrors.New("plain")); got != ErrorTypeUnknown {
		t.Errorf("Expected unknown for untyped errors, got %s", got)
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError}
	for _, typ := range retryable {
		if !IsRetryable(typ) {
			t.Errorf("Expected %s to be retryable", typ)
		}
	}

	terminal := []ErrorType{ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeDisk,
		ErrorTypeFile, ErrorTypeCorruptState, ErrorTypeConfig, ErrorTypeUnknown}
	for _, typ := range terminal {
		if IsRetryable(typ) {
			t.Errorf("Expected %s not to be retryable", typ)
		}
	}
}

func TestClassificationHelpers(t *testing.T) {
	if !IsTransientRemote(New(ErrorTypeRateLimit, "quota")) {
		t.Error("Rate limit is a transient remote failure")
	}
	if IsTransientRemote(New(ErrorTypeDisk, "full")) {
		t.Error("Disk errors are not remote failures")
	}

	if !IsLocalResource(New(ErrorTypeDisk, "full")) {
		t.Error("Disk errors are local resource failures")
	}
	if IsLocalResource(New(ErrorTypeAuth, "nope")) {
		t.Error("Auth errors are not local resource failures")
	}

	if !IsFatal(New(ErrorTypeConfig, "bad config")) {
		t.Error("Config errors are fatal")
	}
	if IsFatal(New(ErrorTypeServerError, "503")) {
		t.Error("Server errors are not fatal")
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{0, true},
		{429, true},
		{500, true},
		{503, true},
		{401, false},
		{403, false},
		{404, false},
		{200, false},
		{400, false},
	}

	for _, tt := range tests {
		if got := IsRetryableStatusCode(tt.code); got != tt.want {
			t.Errorf("IsRetryableStatusCode(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
