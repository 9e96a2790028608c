package memerr

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const maxDetailsLen = 512

// Outcome is what a single transport call produced. Err is set when no status was received.
type Outcome struct {
	Err        error
	StatusCode int
	Header     http.Header
	Body       []byte
	// Key is the memory key the request addressed, empty when the request has no key context.
	Key string
}

// Classify maps an unsuccessful outcome to a classified error. Rules apply in order:
// transport error, 401/403, 429, 5xx, 404, any other 4xx.
// A 2xx outcome without a transport error is not a failure and classifies to nil.
func Classify(o Outcome) Error {
	return classifyAt(o, time.Now())
}

func classifyAt(o Outcome, now time.Time) Error {
	if o.Err != nil {
		return &NetworkError{Cause: o.Err}
	}

	status := o.StatusCode

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ValidationError{Message: http.StatusText(status), Details: details(o.Body), Status: status}
	case status == http.StatusTooManyRequests:
		d, ok := parseRetryAfter(o.Header.Get("Retry-After"), now)

		return &RateLimitedError{RetryAfter: d, HasRetryAfter: ok}
	case status >= http.StatusInternalServerError:
		return &ServerError{Status: status, Body: details(o.Body)}
	case status == http.StatusNotFound:
		if o.Key != "" {
			return &NotFoundError{Key: o.Key}
		}

		return &ValidationError{Message: http.StatusText(status), Details: details(o.Body), Status: status}
	case status >= http.StatusBadRequest:
		return &ValidationError{Message: statusMessage(status), Details: details(o.Body), Status: status}
	case status >= http.StatusOK && status < http.StatusMultipleChoices:
		return nil
	default:
		// 1xx and 3xx never reach the client after redirects are followed.
		return &ValidationError{Message: statusMessage(status), Details: details(o.Body), Status: status}
	}
}

// TranslateItemStatus classifies a per-item batch status. 404 maps to NotFound,
// every other failing status (and an error indicator without a status) to Validation.
func TranslateItemStatus(key string, status int, message string) Error {
	if status == http.StatusNotFound {
		return &NotFoundError{Key: key}
	}

	if message == "" {
		message = statusMessage(status)
	}

	return &ValidationError{Message: message, Status: status}
}

// ParseRetryAfter parses a Retry-After header value: integer seconds or an HTTP date.
// The result is clamped to zero; ok is false when the value is absent or unparseable.
func ParseRetryAfter(value string) (time.Duration, bool) {
	return parseRetryAfter(value, time.Now())
}

func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs < 0 {
			return 0, true
		}

		return time.Duration(secs) * time.Second, true
	}

	at, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}

	d := at.Sub(now)
	if d < 0 {
		d = 0
	}

	return d.Truncate(time.Millisecond), true
}

func statusMessage(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}

	return "status " + strconv.Itoa(status)
}

func details(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxDetailsLen {
		s = s[:maxDetailsLen]
	}

	return s
}
