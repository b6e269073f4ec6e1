package models

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleUser   Role = "user"
)

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
)

type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      Role       `json:"role,omitempty"`
	Status    UserStatus `json:"status,omitempty"`
	AvatarURL string     `json:"avatarUrl,omitempty"`
	CreatedAt time.Time  `json:"createdAt,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt,omitempty"`
}

// IsAdmin — пользователь имеет доступ к панели администратора.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// CreateUserRequest — создание пользователя из панели администратора.
type CreateUserRequest struct {
	Name     string `json:"name"           validate:"required,min=2,max=100"`
	Email    string `json:"email"          validate:"required,email"`
	Password string `json:"password"       validate:"required,min=8"`
	Role     Role   `json:"role,omitempty" validate:"omitempty,oneof=admin editor user"`
}

// UpdateUserRequest — частичное обновление (PATCH): пустые поля не отправляются.
type UpdateUserRequest struct {
	Name      string     `json:"name,omitempty"      validate:"omitempty,min=2,max=100"`
	Role      Role       `json:"role,omitempty"      validate:"omitempty,oneof=admin editor user"`
	Status    UserStatus `json:"status,omitempty"    validate:"omitempty,oneof=active suspended"`
	AvatarURL string     `json:"avatarUrl,omitempty" validate:"omitempty,url"`
}
