package memclient

// Item is one key/value pair of a PutMany request.
type Item struct {
	Key   string
	Value string
}

// Lookup is the GetMany result for one key. Found is false for keys that do not exist
// or that the backend did not return.
type Lookup struct {
	Value string
	Found bool
}

// SearchResult is one record of a search stream.
type SearchResult struct {
	Key      string         `json:"key"`
	Value    string         `json:"value"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchOption configures a search request.
type SearchOption func(*searchOptions)

type searchOptions struct {
	limit int
}

// WithSearchLimit caps the number of results the server emits. Zero leaves it to the server.
func WithSearchLimit(n int) SearchOption {
	return func(o *searchOptions) {
		if n > 0 {
			o.limit = n
		}
	}
}

// Logger describes a logging interface allowing to implement different external, or custom logger.
// It matches the standard library logger and is easily adapted to zap or logrus.
type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
