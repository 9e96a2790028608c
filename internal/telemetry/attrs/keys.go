// Package attrs provides reusable OpenTelemetry attribute key constants
// to avoid duplication across middlewares.
package attrs

const (
	// AttrKeyLength is the length of a memory key in bytes.
	AttrKeyLength = "key.len"
	// AttrValueLength is the length of a memory value in bytes, before encoding.
	AttrValueLength = "value.len"
	// AttrKeysCount is the number of keys in a batch request.
	AttrKeysCount = "keys.count"
	// AttrResultCount is the number of entries returned by a batch read.
	AttrResultCount = "result.count"
	// AttrFailedCount is the number of failed items reported by a batch operation.
	AttrFailedCount = "failed.count"
	// AttrFound reports whether a read found the key.
	AttrFound = "found"
	// AttrErrorKind is the classified kind of a failed operation.
	AttrErrorKind = "error.kind"
	// AttrNamespace is the namespace the client is scoped to.
	AttrNamespace = "memory.namespace"
)
