package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/pulseboard/internal/observability/metrics"
)

// Metrics records request counts and latency under a fixed route label, so
// arbitrary paths cannot blow up label cardinality.
func Metrics(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrap(w)

			next.ServeHTTP(rw, r)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
