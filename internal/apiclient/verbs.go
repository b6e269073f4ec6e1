package apiclient

import (
	"context"
	"encoding/json"
	"net/http"

	apierrors "github.com/pribylovaa/guanavive/internal/errors"
	"github.com/pribylovaa/guanavive/internal/models"
)

// Call выполняет запрос и декодирует всё тело ответа в T.
// Пустое тело (например, 204) даёт нулевое значение T.
func Call[T any](ctx context.Context, c *Client, method, path string, body any, opts ...RequestOption) (*T, error) {
	raw, err := c.Do(ctx, build(method, path, body, opts))
	if err != nil {
		return nil, err
	}

	var out T
	if err := decode(raw, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func Get[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (*models.Response[T], error) {
	return envelope[T](ctx, c, http.MethodGet, path, nil, opts...)
}

func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*models.Response[T], error) {
	return envelope[T](ctx, c, http.MethodPost, path, body, opts...)
}

func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*models.Response[T], error) {
	return envelope[T](ctx, c, http.MethodPut, path, body, opts...)
}

func Patch[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*models.Response[T], error) {
	return envelope[T](ctx, c, http.MethodPatch, path, body, opts...)
}

func Delete[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (*models.Response[T], error) {
	return envelope[T](ctx, c, http.MethodDelete, path, nil, opts...)
}

func envelope[T any](ctx context.Context, c *Client, method, path string, body any, opts ...RequestOption) (*models.Response[T], error) {
	raw, err := c.Do(ctx, build(method, path, body, opts))
	if err != nil {
		return nil, err
	}

	// 2xx без тела — успешная операция без данных.
	if len(raw.Body) == 0 {
		return &models.Response[T]{Success: true}, nil
	}

	var out models.Response[T]
	if err := decode(raw, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func build(method, path string, body any, opts []RequestOption) Request {
	r := Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(&r)
	}

	return r
}

func decode(raw *RawResponse, out any) error {
	if len(raw.Body) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw.Body, out); err != nil {
		return &apierrors.Error{
			Message:    "invalid response body: " + err.Error(),
			StatusCode: raw.StatusCode,
			Code:       apierrors.CodeBadResponse,
		}
	}

	return nil
}
