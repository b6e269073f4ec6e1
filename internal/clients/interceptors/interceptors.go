// interceptors предоставляет цепочку http.RoundTripper для исходящих
// запросов к API GuanaVive.
package interceptors

import "net/http"

// RoundTripperFunc — адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Interceptor оборачивает транспорт.
type Interceptor func(next http.RoundTripper) http.RoundTripper

// Chain собирает транспорт: первый интерсептор — внешний.
// base == nil — http.DefaultTransport.
func Chain(base http.RoundTripper, in ...Interceptor) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	rt := base
	for i := len(in) - 1; i >= 0; i-- {
		rt = in[i](rt)
	}

	return rt
}
