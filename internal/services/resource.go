package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pribylovaa/guanavive/internal/apiclient"
	"github.com/pribylovaa/guanavive/internal/models"
)

// Resource — CRUD-коллекция бэкенда: T — сущность, C — тело создания,
// U — тело частичного обновления.
type Resource[T, C, U any] struct {
	c    *apiclient.Client
	path string
}

func NewResource[T, C, U any](c *apiclient.Client, path string) *Resource[T, C, U] {
	return &Resource[T, C, U]{c: c, path: path}
}

// Path — путь коллекции, например "/publications".
func (r *Resource[T, C, U]) Path() string { return r.path }

func (r *Resource[T, C, U]) item(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// List — GET /<resource>?page&limit&search&sortBy&order.
func (r *Resource[T, C, U]) List(ctx context.Context, p models.ListParams) (*models.Response[[]T], error) {
	const op = "services.Resource.List"

	if err := Validate(p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := apiclient.Get[[]T](ctx, r.c, r.path, apiclient.WithQuery(p.Values()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return resp, nil
}

func (r *Resource[T, C, U]) Get(ctx context.Context, id string) (*models.Response[T], error) {
	const op = "services.Resource.Get"

	if err := validateID(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := apiclient.Get[T](ctx, r.c, r.item(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return resp, nil
}

func (r *Resource[T, C, U]) Create(ctx context.Context, body C) (*models.Response[T], error) {
	const op = "services.Resource.Create"

	if err := Validate(body); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := apiclient.Post[T](ctx, r.c, r.path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return resp, nil
}

// Update — частичное обновление (PATCH).
func (r *Resource[T, C, U]) Update(ctx context.Context, id string, body U) (*models.Response[T], error) {
	const op = "services.Resource.Update"

	if err := validateID(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := Validate(body); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := apiclient.Patch[T](ctx, r.c, r.item(id), body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return resp, nil
}

func (r *Resource[T, C, U]) Delete(ctx context.Context, id string) error {
	const op = "services.Resource.Delete"

	if err := validateID(id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := apiclient.Delete[any](ctx, r.c, r.item(id)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
