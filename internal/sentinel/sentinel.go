// Package sentinel provides standardized error definitions for the memclient module.
// This package centralizes the errors that are not part of the remote error taxonomy
// (see pkg/memerr): invalid arguments, invalid configuration and misuse of streams.
//
// All errors are created using the ewrap package to provide enhanced error
// wrapping and context capabilities.
package sentinel

import (
	"github.com/hyp3rd/ewrap"
)

var (
	// ErrInvalidKey is returned when an invalid key is used to address a memory.
	// An invalid key is a key that is either empty or consists only of whitespace characters.
	ErrInvalidKey = ewrap.New("invalid key")

	// ErrParamCannotBeEmpty is returned when a required parameter is empty.
	ErrParamCannotBeEmpty = ewrap.New("param cannot be empty")

	// ErrInvalidRetryPolicy is returned when a retry policy has less than one attempt or a negative delay.
	ErrInvalidRetryPolicy = ewrap.New("invalid retry policy")

	// ErrInvalidTimeout is returned when a negative timeout is configured.
	ErrInvalidTimeout = ewrap.New("timeout cannot be negative")

	// ErrInvalidBaseURL is returned when the base URL cannot be parsed or has no scheme/host.
	ErrInvalidBaseURL = ewrap.New("invalid base url")

	// ErrNilTransport is returned when a nil transport is passed to the client.
	ErrNilTransport = ewrap.New("nil transport")

	// ErrNilClient is returned when a nil client or service is passed to a constructor.
	ErrNilClient = ewrap.New("nil client")

	// ErrSerializerNotFound is returned when a serializer is not found.
	ErrSerializerNotFound = ewrap.New("serializer not found")

	// ErrStreamConsumed is returned when a stream is iterated a second time.
	ErrStreamConsumed = ewrap.New("stream already consumed")

	// ErrStreamClosed is returned when a stream is read after Close.
	ErrStreamClosed = ewrap.New("stream closed")

	// ErrNotProcessed is the cause attached to batch items the backend did not report.
	ErrNotProcessed = ewrap.New("not processed by backend")

	// ErrStatsCollectorNotFound is returned when a stats collector is not registered.
	ErrStatsCollectorNotFound = ewrap.New("stats collector not found")

	// ErrServerShutdownTimeout is returned when the reference server fails to shutdown before context deadline.
	ErrServerShutdownTimeout = ewrap.New("server shutdown timeout")
)
