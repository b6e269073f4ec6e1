package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apierrors "github.com/pribylovaa/guanavive/internal/errors"
)

// Request — один вызов бэкенда.
type Request struct {
	Method string
	// Path — путь относительно базового URL, например "/publications".
	Path   string
	Query  url.Values
	Header http.Header
	// Body кодируется в JSON; []byte и json.RawMessage уходят как есть.
	Body any
	// SkipAuthRefresh — 401 возвращается вызывающему без цикла обновления.
	SkipAuthRefresh bool
}

// RequestOption — настройка отдельного вызова.
type RequestOption func(*Request)

func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = http.Header{}
		}
		r.Header.Set(key, value)
	}
}

// WithQuery добавляет параметры строки запроса.
func WithQuery(q url.Values) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = url.Values{}
		}
		for k, vs := range q {
			for _, v := range vs {
				r.Query.Add(k, v)
			}
		}
	}
}

// WithoutAuthRefresh — для login/register и прочих вызовов, где 401
// означает неверные данные, а не истёкший токен.
func WithoutAuthRefresh() RequestOption {
	return func(r *Request) { r.SkipAuthRefresh = true }
}

// RawResponse — успешный ответ с прочитанным телом.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// prepared — запрос с уже закодированным телом; пригоден для повтора.
type prepared struct {
	method      string
	path        string
	query       url.Values
	header      http.Header
	body        []byte
	skipRefresh bool
	anonymous   bool
}

// attempt — запрос и признак того, что он уже повторялся после обновления.
// token — access-токен, с которым ушла последняя отправка.
type attempt struct {
	req     prepared
	retried bool
	token   string
}

func prepare(r Request) (prepared, error) {
	const op = "apiclient.prepare"

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	p := prepared{
		method:      strings.ToUpper(method),
		path:        r.Path,
		query:       r.Query,
		header:      r.Header,
		skipRefresh: r.SkipAuthRefresh,
	}

	switch b := r.Body.(type) {
	case nil:
	case []byte:
		p.body = b
	case json.RawMessage:
		p.body = b
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return prepared{}, fmt.Errorf("%s: %w: %w", op, apierrors.ErrInvalidArgument, err)
		}
		p.body = raw
	}

	return p, nil
}

func (c *Client) url(p prepared) string {
	u := c.baseURL + "/" + strings.TrimLeft(p.path, "/")
	if len(p.query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + p.query.Encode()
	}

	return u
}

// send выполняет один HTTP-обмен без обработки 401. Ошибка — только если
// ответа нет; статус ответа не проверяется. Пустой token — без Authorization.
func (c *Client) send(ctx context.Context, p prepared, token string) (*RawResponse, error) {
	const op = "apiclient.send"

	var body io.Reader
	if p.body != nil {
		body = bytes.NewReader(p.body)
	}

	req, err := http.NewRequestWithContext(ctx, p.method, c.url(p), body)
	if err != nil {
		return nil, apierrors.FromTransport(fmt.Errorf("%s: %w", op, err))
	}

	for k, vs := range p.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if p.body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apierrors.FromTransport(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierrors.FromTransport(err)
	}

	return &RawResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: b}, nil
}

func success(status int) bool { return status >= 200 && status < 300 }
