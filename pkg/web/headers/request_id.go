package headers

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	RequestIDHeaderName = "X-Request-Id"

	maxRequestIDLength = 128
)

var requestIDRegex = regexp.MustCompile(`^[a-zA-Z0-9._:-]+$`)

type requestIDContextKey struct{}

// RequestID assigns every request an ID, reusing the caller's when it's
// well formed. The ID is echoed in the response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeaderName)
		if len(requestID) == 0 || len(requestID) > maxRequestIDLength || !requestIDRegex.MatchString(requestID) {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeaderName, requestID)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
	})
}

// WithRequestID returns a context carrying the request ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// GetRequestID returns the request ID set by RequestID
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDContextKey{}).(string)
	return requestID, ok && len(requestID) > 0
}
