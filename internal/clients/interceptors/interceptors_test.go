package interceptors

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/guanavive/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type capHandler struct {
	mu      sync.Mutex
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
	count   map[string]int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})
	if h.count == nil {
		h.count = make(map[string]int)
	}
	h.count[r.Message]++
	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.base = append(h.base, attrs...)
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

// terminal — конечный транспорт, возвращающий status и запоминающий запрос.
func terminal(status int, seen **http.Request) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if seen != nil {
			*seen = r
		}
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("{}")),
			Request:    r,
		}, nil
	})
}

func newReq(t *testing.T, ctx context.Context) *http.Request {
	t.Helper()
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://api.test/api/publications?page=1", nil)
	require.NoError(t, err)
	return r
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) Interceptor {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}

	rt := Chain(terminal(200, nil), mark("a"), mark("b"), mark("c"))
	resp, err := rt.RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestWithMetadata_AppendsHeaders(t *testing.T) {
	t.Parallel()

	const rid = "rid-123"
	const ua = "guanavive-gateway"

	var seen *http.Request
	rt := Chain(terminal(200, &seen), WithMetadata(ua))

	orig := newReq(t, ContextWithRequestID(context.Background(), rid))
	_, err := rt.RoundTrip(orig)
	require.NoError(t, err)

	require.Equal(t, rid, seen.Header.Get(HeaderRequestID))
	require.Equal(t, ua, seen.Header.Get("User-Agent"))

	// оригинальный запрос не тронут
	require.Empty(t, orig.Header.Get(HeaderRequestID))
}

func TestWithMetadata_GeneratesRequestID(t *testing.T) {
	t.Parallel()

	var seen *http.Request
	rt := Chain(terminal(200, &seen), WithMetadata(""))

	_, err := rt.RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)

	_, err = uuid.Parse(seen.Header.Get(HeaderRequestID))
	require.NoError(t, err)
	require.Empty(t, seen.Header.Get("User-Agent"))
}

func TestWithMetadata_KeepsExplicitHeader(t *testing.T) {
	t.Parallel()

	var seen *http.Request
	rt := Chain(terminal(200, &seen), WithMetadata(""))

	r := newReq(t, ContextWithRequestID(context.Background(), "from-ctx"))
	r.Header.Set(HeaderRequestID, "explicit")
	_, err := rt.RoundTrip(r)
	require.NoError(t, err)
	require.Equal(t, "explicit", seen.Header.Get(HeaderRequestID))
}

func TestWithTimeout_DeadlineLivesUntilBodyClosed(t *testing.T) {
	t.Parallel()

	var seen *http.Request
	rt := Chain(terminal(200, &seen), WithTimeout(time.Second))

	resp, err := rt.RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)

	_, ok := seen.Context().Deadline()
	require.True(t, ok)
	require.NoError(t, seen.Context().Err(), "ctx must be alive while body is open")

	require.NoError(t, resp.Body.Close())
	require.ErrorIs(t, seen.Context().Err(), context.Canceled)

	// повторный Close безопасен
	require.NoError(t, resp.Body.Close())
}

func TestWithTimeout_Expires(t *testing.T) {
	t.Parallel()

	const d = 40 * time.Millisecond
	slow := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		<-r.Context().Done()
		return nil, r.Context().Err()
	})

	start := time.Now()
	_, err := Chain(slow, WithTimeout(d)).RoundTrip(newReq(t, context.Background()))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, time.Since(start), d)
}

func TestWithTimeout_KeepsEarlierParentDeadline(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()
	parentDL, _ := parent.Deadline()

	var seen *http.Request
	resp, err := Chain(terminal(200, &seen), WithTimeout(time.Second)).RoundTrip(newReq(t, parent))
	require.NoError(t, err)
	defer resp.Body.Close()

	childDL, ok := seen.Context().Deadline()
	require.True(t, ok)
	require.WithinDuration(t, parentDL, childDL, time.Millisecond)
}

func TestWithTimeout_ZeroDuration_PassThrough(t *testing.T) {
	t.Parallel()

	var seen *http.Request
	_, err := Chain(terminal(200, &seen), WithTimeout(0)).RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)

	_, hasDL := seen.Context().Deadline()
	require.False(t, hasDL, "no deadline expected when d <= 0")
}

func TestWithLogging_OneRecordPerRequest(t *testing.T) {
	t.Parallel()

	h := &capHandler{}

	// WithLogging внутри WithMetadata видит уже выставленный X-Request-Id.
	rt := Chain(terminal(201, nil), WithMetadata(""), WithLogging(slog.New(h)))

	_, err := rt.RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)

	require.Equal(t, 1, h.count["http_client"])
	require.Equal(t, "http_client", h.lastMsg)
	require.Equal(t, slog.LevelInfo, h.lastLvl)
	require.Equal(t, int64(201), h.attrs["status"])
	require.Equal(t, "/api/publications", h.attrs["path"])
	require.Equal(t, http.MethodGet, h.attrs["method"])

	rid, _ := h.attrs["request_id"].(string)
	_, err = uuid.Parse(rid)
	require.NoError(t, err)

	d, ok := h.attrs["dur"].(time.Duration)
	require.True(t, ok, "dur attr not found or wrong type: %#v", h.attrs["dur"])
	require.GreaterOrEqual(t, d, time.Duration(0))
}

func TestWithLogging_TransportError(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	boom := errors.New("dial tcp: connection refused")
	failing := RoundTripperFunc(func(*http.Request) (*http.Response, error) { return nil, boom })

	_, err := Chain(failing, WithLogging(slog.New(h))).RoundTrip(newReq(t, context.Background()))
	require.ErrorIs(t, err, boom)

	require.Equal(t, "http_client", h.lastMsg)
	require.Equal(t, slog.LevelWarn, h.lastLvl)
	require.Equal(t, boom.Error(), h.attrs["err"])
}

func TestWithMetrics_CountsByCode(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())

	_, err := Chain(terminal(404, nil), WithMetrics(m)).RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)

	failing := RoundTripperFunc(func(*http.Request) (*http.Response, error) { return nil, errors.New("x") })
	_, err = Chain(failing, WithMetrics(m)).RoundTrip(newReq(t, context.Background()))
	require.Error(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "404")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "error")))
}

func TestWithMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	_, err := Chain(terminal(200, nil), WithMetrics(nil)).RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
}
