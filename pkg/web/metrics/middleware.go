package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/code-payments/compressed-wallet/pkg/metrics"
	"github.com/code-payments/compressed-wallet/pkg/web/headers"
)

const (
	httpRouteAttributeKey     = "http.request.route"
	httpRequestIDAttributeKey = "http.request.id"
)

// PrometheusMiddleware counts requests by their chi route pattern, so path
// parameters don't explode label cardinality
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		done := metrics.TrackInFlightRequest()
		defer done()

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.ObserveHTTPRequest(r.Method, routePattern(r), status, time.Since(start))
	})
}

// NewRelicMiddleware wraps every request in a New Relic web transaction and
// makes the application available to handlers for custom events. A nil app
// installs a pass through middleware.
func NewRelicMiddleware(app *newrelic.Application) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if app == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			txn := app.StartTransaction(fmt.Sprintf("%s %s", r.Method, r.URL.Path))
			defer txn.End()

			txn.SetWebRequestHTTP(r)
			if requestID, ok := headers.GetRequestID(r.Context()); ok {
				txn.AddAttribute(httpRequestIDAttributeKey, requestID)
			}

			w = txn.SetWebResponse(w)
			r = newrelic.RequestWithTransactionContext(r, txn)
			r = r.WithContext(metrics.NewContext(r.Context(), app))

			next.ServeHTTP(w, r)

			// Transactions are renamed once routing has resolved the pattern
			if route := routePattern(r); len(route) > 0 {
				txn.SetName(fmt.Sprintf("%s %s", r.Method, route))
				txn.AddAttribute(httpRouteAttributeKey, route)
			}
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
