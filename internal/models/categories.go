package models

import "time"

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug,omitempty"`
	Description string    `json:"description,omitempty"`
	Active      *bool     `json:"active,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name"                  validate:"required,min=2,max=80"`
	Slug        string `json:"slug,omitempty"        validate:"omitempty,max=80"`
	Description string `json:"description,omitempty" validate:"omitempty,max=300"`
}

type UpdateCategoryRequest struct {
	Name        string `json:"name,omitempty"        validate:"omitempty,min=2,max=80"`
	Slug        string `json:"slug,omitempty"        validate:"omitempty,max=80"`
	Description string `json:"description,omitempty" validate:"omitempty,max=300"`
	Active      *bool  `json:"active,omitempty"`
}
