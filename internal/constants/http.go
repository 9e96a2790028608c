package constants

// Paths of the remote memory API.
const (
	PathMemories       = "/api/v1/memories"
	PathMemoryBatch    = "/api/v1/memories/batch"
	PathMemoryBatchGet = "/api/v1/memories/batchGet"
	PathKeysPrefix     = "/v1/keys/"
	PathSearchPrefix   = "/v1/search/"
	PathSearchSuffix   = "/stream"
)

// Header names and media types.
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderRetryAfter    = "Retry-After"
	HeaderRequestID     = "X-Request-Id"
	HeaderUserAgent     = "User-Agent"

	BearerPrefix = "Bearer "

	MediaTypeJSON   = "application/json"
	MediaTypeNDJSON = "application/x-ndjson"
)

// Query parameter names.
const (
	QueryNamespace = "namespace"
	QuerySearch    = "q"
	QueryLimit     = "limit"
)
