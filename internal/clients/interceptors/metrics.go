package interceptors

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pribylovaa/guanavive/internal/metrics"
)

// WithMetrics считает запросы и латентность; ошибка транспорта — code="error".
func WithMetrics(m *metrics.Metrics) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		if m == nil {
			return next
		}

		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)

			code := "error"
			if err == nil {
				code = strconv.Itoa(resp.StatusCode)
			}

			m.Requests.WithLabelValues(r.Method, code).Inc()
			m.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())

			return resp, err
		})
	}
}
