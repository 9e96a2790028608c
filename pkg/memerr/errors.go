// Package memerr defines the closed error taxonomy returned by the memclient
// client. Every failure a caller observes is one of the types in this package:
// NotFoundError, ValidationError, RateLimitedError, NetworkError, ServerError,
// PartialFailureError (batch only) or StreamError (mid-stream decode failures).
//
// The taxonomy is a sealed sum type: Error can only be implemented inside this
// package, and Kind returns a tag suitable for switch dispatch.
//
//	switch memerr.KindOf(err) {
//	case memerr.KindRateLimited:
//	    ...
//	}
package memerr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind tags a classified error.
type Kind uint8

const (
	// KindUnknown is returned by KindOf for errors outside the taxonomy.
	KindUnknown Kind = iota
	// KindNotFound means the addressed key does not exist.
	KindNotFound
	// KindValidation covers malformed input, authorization failures and any unclassified 4xx.
	KindValidation
	// KindRateLimited means the server asked the client to slow down (HTTP 429).
	KindRateLimited
	// KindNetwork covers connection failures, timeouts and aborted requests.
	KindNetwork
	// KindServer means the server failed with a 5xx status.
	KindServer
	// KindPartialFailure is a batch result in which some items failed.
	KindPartialFailure
	// KindStream is a decode failure in the middle of an NDJSON stream.
	KindStream
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate_limited"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindPartialFailure:
		return "partial_failure"
	case KindStream:
		return "stream"
	case KindUnknown:
		fallthrough
	default:
		return "unknown"
	}
}

// Error is implemented by every classified error.
type Error interface {
	error
	Kind() Kind
	sealed()
}

// NotFoundError reports a missing key.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("memory %q not found", e.Key) }

// Kind implements Error.
func (*NotFoundError) Kind() Kind { return KindNotFound }
func (*NotFoundError) sealed()    {}

// ValidationError reports a request the server (or the client) refused.
// Authorization failures are reported as validation errors.
type ValidationError struct {
	Message string
	// Details carries the response body when the server returned one.
	Details string
	// Status is the HTTP status that produced the error, zero for local validation.
	Status int
	// Cause is an optional underlying error (a sentinel or a wrapped decode failure).
	Cause error
}

func (e *ValidationError) Error() string {
	var sb strings.Builder

	sb.WriteString("validation error: ")
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Details)
		sb.WriteString(")")
	}

	return sb.String()
}

// Unwrap returns the cause.
func (e *ValidationError) Unwrap() error { return e.Cause }

// Kind implements Error.
func (*ValidationError) Kind() Kind { return KindValidation }
func (*ValidationError) sealed()    {}

// RateLimitedError reports an HTTP 429. RetryAfter is only meaningful when HasRetryAfter is set.
type RateLimitedError struct {
	RetryAfter    time.Duration
	HasRetryAfter bool
}

func (e *RateLimitedError) Error() string {
	if e.HasRetryAfter {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}

	return "rate limited"
}

// Kind implements Error.
func (*RateLimitedError) Kind() Kind { return KindRateLimited }
func (*RateLimitedError) sealed()    {}

// NetworkError reports a transport-level failure: the request never produced a status.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	if e.Cause == nil {
		return "network error"
	}

	return "network error: " + e.Cause.Error()
}

// Unwrap returns the transport error.
func (e *NetworkError) Unwrap() error { return e.Cause }

// Kind implements Error.
func (*NetworkError) Kind() Kind { return KindNetwork }
func (*NetworkError) sealed()    {}

// ServerError reports a 5xx response.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string { return fmt.Sprintf("server error: status %d", e.Status) }

// Kind implements Error.
func (*ServerError) Kind() Kind { return KindServer }
func (*ServerError) sealed()    {}

// ItemFailure attributes a classified error to one key of a batch.
type ItemFailure struct {
	Key string
	Err Error
}

// PartialFailureError is the outcome of a batch in which at least one item failed.
// Failures keep the order in which they were encountered and are not deduplicated.
type PartialFailureError struct {
	SuccessCount int
	Failures     []ItemFailure
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partial failure: %d succeeded, %d failed", e.SuccessCount, len(e.Failures))
}

// Kind implements Error.
func (*PartialFailureError) Kind() Kind { return KindPartialFailure }
func (*PartialFailureError) sealed()    {}

// Keys returns the failed keys in encounter order.
func (e *PartialFailureError) Keys() []string {
	keys := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		keys = append(keys, f.Key)
	}

	return keys
}

// StreamError reports an NDJSON record that could not be decoded.
// Line is 1-based and counts every line received, blank ones included.
type StreamError struct {
	Line int
	Raw  string
	Err  error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream decode error at line %d: %v", e.Line, e.Err)
}

// Unwrap returns the decode error.
func (e *StreamError) Unwrap() error { return e.Err }

// Kind implements Error.
func (*StreamError) Kind() Kind { return KindStream }
func (*StreamError) sealed()    {}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var classified Error
	if errors.As(err, &classified) {
		return classified.Kind()
	}

	return KindUnknown
}

// IsRetryEligible reports whether re-attempting the operation that produced err can succeed.
// It is true exactly for network, server and rate-limit errors.
func IsRetryEligible(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindServer, KindRateLimited:
		return true
	case KindUnknown, KindNotFound, KindValidation, KindPartialFailure, KindStream:
		return false
	default:
		return false
	}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
