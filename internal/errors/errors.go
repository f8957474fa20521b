// Package errors provides the classified error model shared across the
// recording pipeline. Callers always receive a mapped Kind; raw provider
// diagnostics travel as auxiliary detail, never as the primary value.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidConfiguration
	KindPermissionDenied
	KindDiscoveryTimeout
	KindProviderError
	KindAlreadyRecording
	KindNotRecording
	KindEncodingFailure
	KindTranscriptionFailure
)

var kindNames = map[Kind]string{
	KindUnknown:              "UNKNOWN",
	KindInvalidConfiguration: "INVALID_CONFIGURATION",
	KindPermissionDenied:     "PERMISSION_DENIED",
	KindDiscoveryTimeout:     "DISCOVERY_TIMEOUT",
	KindProviderError:        "PROVIDER_ERROR",
	KindAlreadyRecording:     "ALREADY_RECORDING",
	KindNotRecording:         "NOT_RECORDING",
	KindEncodingFailure:      "ENCODING_FAILURE",
	KindTranscriptionFailure: "TRANSCRIPTION_FAILURE",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Error is the structured error type carrying a Kind, an optional provider
// diagnostic code, and metadata for logs.
type Error struct {
	Kind         Kind
	Message      string
	ProviderCode string
	Metadata     map[string]string
	Cause        error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.ProviderCode != "" {
		s += fmt.Sprintf(" (provider code %s)", e.ProviderCode)
	}
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with the given kind and message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error under a kind.
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// Provider creates a ProviderError carrying the provider's diagnostic code.
func Provider(code, msg string) *Error {
	return &Error{Kind: KindProviderError, Message: msg, ProviderCode: code}
}

// WithProviderCode attaches the provider diagnostic code.
func (e *Error) WithProviderCode(code string) *Error {
	e.ProviderCode = code
	return e
}

// WithMetadata attaches a key/value pair.
func (e *Error) WithMetadata(key, value string) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// KindOf extracts the Kind from any error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether any error in the chain has the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable reports whether the operation behind the error is worth
// retrying. Validation and state errors never are.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindDiscoveryTimeout, KindProviderError, KindTranscriptionFailure:
		return true
	default:
		return false
	}
}
