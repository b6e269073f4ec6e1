package models

import "time"

type Plan string

const (
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
	PlanPro     Plan = "pro"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
)

type Subscription struct {
	ID        string             `json:"id"`
	UserID    string             `json:"userId"`
	User      *User              `json:"user,omitempty"`
	Plan      Plan               `json:"plan"`
	Status    SubscriptionStatus `json:"status"`
	Price     float64            `json:"price,omitempty"`
	Currency  string             `json:"currency,omitempty"`
	StartDate time.Time          `json:"startDate,omitempty"`
	EndDate   *time.Time         `json:"endDate,omitempty"`
	AutoRenew bool               `json:"autoRenew,omitempty"`
}

// ActiveAt — подписка действует в момент now.
func (s Subscription) ActiveAt(now time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}

	return s.EndDate == nil || s.EndDate.After(now)
}

type CreateSubscriptionRequest struct {
	UserID    string `json:"userId,omitempty"`
	Plan      Plan   `json:"plan"                validate:"required,oneof=basic premium pro"`
	AutoRenew bool   `json:"autoRenew,omitempty"`
}

type UpdateSubscriptionRequest struct {
	Plan      Plan               `json:"plan,omitempty"      validate:"omitempty,oneof=basic premium pro"`
	Status    SubscriptionStatus `json:"status,omitempty"    validate:"omitempty,oneof=active canceled expired past_due"`
	AutoRenew *bool              `json:"autoRenew,omitempty"`
}
