package metricool

import (
	"errors"
	"fmt"
)

var (
	ErrTransport = errors.New("metricool: transport failure")
	ErrTimeout   = errors.New("metricool: request timed out")
	ErrStatus    = errors.New("metricool: non-2xx status")
	ErrDecode    = errors.New("metricool: undecodable response body")
	ErrEncode    = errors.New("metricool: unencodable request body")
)

// FailureKind classifies why a call produced no result.
type FailureKind int

const (
	FailureTransport FailureKind = iota
	FailureTimeout
	FailureStatus
	FailureDecode
	FailureEncode
)

// String returns the stable name used in logs and audit events.
func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport"
	case FailureTimeout:
		return "timeout"
	case FailureStatus:
		return "status"
	case FailureDecode:
		return "decode"
	case FailureEncode:
		return "encode"
	default:
		return "unknown"
	}
}

// Retryable reports whether the failure was transient. The client never
// retries; the flag is informational.
func (k FailureKind) Retryable() bool {
	return k == FailureTransport || k == FailureTimeout
}

func (k FailureKind) sentinel() error {
	switch k {
	case FailureTimeout:
		return ErrTimeout
	case FailureStatus:
		return ErrStatus
	case FailureDecode:
		return ErrDecode
	case FailureEncode:
		return ErrEncode
	default:
		return ErrTransport
	}
}

// RequestError is returned for every failed call.
type RequestError struct {
	Kind       FailureKind
	Method     string
	URL        string
	StatusCode int // set for FailureStatus and for body failures after headers arrived
	Err        error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("metricool %s %s: %s: %v", e.Method, e.URL, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind, so errors.Is(err, ErrStatus) works.
func (e *RequestError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf extracts the failure kind from err. ok is false when err is not a *RequestError.
func KindOf(err error) (kind FailureKind, ok bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind, true
	}
	return 0, false
}

// StatusOf returns the HTTP status recorded on err, or 0.
func StatusOf(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}
