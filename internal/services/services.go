// services — типизированные обёртки над REST API GuanaVive поверх
// apiclient: аутентификация и CRUD ресурсов.
//
// Входные данные проверяются go-playground/validator до отправки запроса;
// ошибки валидации — *apierrors.ValidationError. Ошибки бэкенда
// возвращаются нормализованными (*apierrors.Error), обёрнутыми op.
package services

import (
	"github.com/pribylovaa/guanavive/internal/apiclient"
	"github.com/pribylovaa/guanavive/internal/models"
)

type (
	Publications  = Resource[models.Publication, models.CreatePublicationRequest, models.UpdatePublicationRequest]
	Categories    = Resource[models.Category, models.CreateCategoryRequest, models.UpdateCategoryRequest]
	Users         = Resource[models.User, models.CreateUserRequest, models.UpdateUserRequest]
	Subscriptions = Resource[models.Subscription, models.CreateSubscriptionRequest, models.UpdateSubscriptionRequest]
)

// Services агрегирует все обёртки над одним клиентом.
type Services struct {
	Auth          *Auth
	Publications  *Publications
	Categories    *Categories
	Users         *Users
	Subscriptions *Subscriptions
}

func New(c *apiclient.Client) *Services {
	return &Services{
		Auth:          NewAuth(c),
		Publications:  NewResource[models.Publication, models.CreatePublicationRequest, models.UpdatePublicationRequest](c, "/publications"),
		Categories:    NewResource[models.Category, models.CreateCategoryRequest, models.UpdateCategoryRequest](c, "/categories"),
		Users:         NewResource[models.User, models.CreateUserRequest, models.UpdateUserRequest](c, "/users"),
		Subscriptions: NewResource[models.Subscription, models.CreateSubscriptionRequest, models.UpdateSubscriptionRequest](c, "/subscriptions"),
	}
}
