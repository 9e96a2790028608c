// Package constants defines default configuration values, wire paths and header
// names shared by the memclient client and the reference server.
package constants

import "time"

const (
	// DefaultTimeout is the per-request timeout applied when none is configured.
	// Buffered requests are bounded end-to-end; streaming requests only up to the response headers.
	DefaultTimeout = 30 * time.Second
	// DefaultStreamChunkSize is the size of the read buffer used by the NDJSON decoder.
	DefaultStreamChunkSize = 4 * 1024
	// DefaultUserAgent is sent with every request unless overridden.
	DefaultUserAgent = "memclient/" + Version
	// Version of the module, reported in the user agent.
	Version = "0.3.0"
	// DefaultSerializer is the serializer used by typed stores when none is named.
	DefaultSerializer = "json"
)
