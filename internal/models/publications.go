package models

import "time"

// PublicationStatus — стадия модерации публикации.
type PublicationStatus string

const (
	PublicationPending  PublicationStatus = "pending"
	PublicationApproved PublicationStatus = "approved"
	PublicationRejected PublicationStatus = "rejected"
)

type Publication struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Content     string            `json:"content,omitempty"`
	ImageURL    string            `json:"imageUrl,omitempty"`
	CategoryID  string            `json:"categoryId,omitempty"`
	Category    *Category         `json:"category,omitempty"`
	AuthorID    string            `json:"authorId,omitempty"`
	Author      *User             `json:"author,omitempty"`
	Status      PublicationStatus `json:"status,omitempty"`
	Location    string            `json:"location,omitempty"`
	EventDate   *time.Time        `json:"eventDate,omitempty"`
	CreatedAt   time.Time         `json:"createdAt,omitempty"`
	UpdatedAt   time.Time         `json:"updatedAt,omitempty"`
}

type CreatePublicationRequest struct {
	Title       string     `json:"title"                 validate:"required,min=3,max=200"`
	Description string     `json:"description,omitempty" validate:"omitempty,max=500"`
	Content     string     `json:"content"               validate:"required"`
	ImageURL    string     `json:"imageUrl,omitempty"    validate:"omitempty,url"`
	CategoryID  string     `json:"categoryId"            validate:"required"`
	Location    string     `json:"location,omitempty"    validate:"omitempty,max=200"`
	EventDate   *time.Time `json:"eventDate,omitempty"`
}

// UpdatePublicationRequest — частичное обновление, в т.ч. модерация (status).
type UpdatePublicationRequest struct {
	Title       string            `json:"title,omitempty"       validate:"omitempty,min=3,max=200"`
	Description string            `json:"description,omitempty" validate:"omitempty,max=500"`
	Content     string            `json:"content,omitempty"`
	ImageURL    string            `json:"imageUrl,omitempty"    validate:"omitempty,url"`
	CategoryID  string            `json:"categoryId,omitempty"`
	Status      PublicationStatus `json:"status,omitempty"      validate:"omitempty,oneof=pending approved rejected"`
	Location    string            `json:"location,omitempty"    validate:"omitempty,max=200"`
	EventDate   *time.Time        `json:"eventDate,omitempty"`
}
