package middleware

import (
	"encoding/json"
	"net/http"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

// Timeout bounds REST requests. The response is buffered by
// http.TimeoutHandler, so a request that overruns gets a 503 with the
// REQUEST_TIMEOUT envelope instead of a partial body. The event stream must
// not sit behind it; StreamingTimeout covers that route.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	body, _ := json.Marshal(errorEnvelope("REQUEST_TIMEOUT", "request timed out after "+timeout.String()))

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, string(body))
	}
}
