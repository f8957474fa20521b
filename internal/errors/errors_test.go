package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(KindPermissionDenied, "screen recording not granted")
	if KindOf(err) != KindPermissionDenied {
		t.Errorf("KindOf = %v, want KindPermissionDenied", KindOf(err))
	}

	wrapped := fmt.Errorf("start failed: %w", err)
	if KindOf(wrapped) != KindPermissionDenied {
		t.Error("KindOf should see through fmt.Errorf wrapping")
	}

	if KindOf(stderrors.New("plain")) != KindUnknown {
		t.Error("plain errors should map to KindUnknown")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("device busy")
	err := Wrap(cause, KindProviderError, "delivery refused")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause should satisfy errors.Is")
	}
	if !IsKind(err, KindProviderError) {
		t.Error("IsKind should match the wrapping kind")
	}
}

func TestErrorString(t *testing.T) {
	err := Provider("SCK-3817", "stream refused to start").WithMetadata("source", "display:1")
	s := err.Error()

	for _, want := range []string{"PROVIDER_ERROR", "SCK-3817", "display:1"} {
		if !strings.Contains(s, want) {
			t.Errorf("Error() = %q, missing %q", s, want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindDiscoveryTimeout, true},
		{KindProviderError, true},
		{KindTranscriptionFailure, true},
		{KindInvalidConfiguration, false},
		{KindAlreadyRecording, false},
		{KindEncodingFailure, false},
	}
	for _, tt := range tests {
		if got := IsRetryable(New(tt.kind, "x")); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.kind, got, tt.want)
		}
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}
