package subscriptions

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is the lifecycle state of a subscription record.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

const (
	PlanPremium    = "premium"
	ProviderStripe = "stripe"

	// PlanPriceUSD is the flat monthly price of the only plan on offer.
	PlanPriceUSD     = 20.00
	PlanDurationDays = 30
)

// Subscription is the billing record stored in the user database. Records
// synthesized from provider webhooks may carry user_email instead of user_id
// when no local account could be resolved.
type Subscription struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID               string             `bson:"user_id,omitempty" json:"user_id,omitempty"`
	UserEmail            string             `bson:"user_email,omitempty" json:"user_email,omitempty"`
	Plan                 string             `bson:"plan" json:"plan"`
	Status               Status             `bson:"status" json:"status"`
	PaymentProvider      string             `bson:"payment_provider" json:"payment_provider"`
	StripeSubscriptionID string             `bson:"stripe_subscription_id,omitempty" json:"stripe_subscription_id,omitempty"`
	StartsAt             time.Time          `bson:"starts_at" json:"starts_at"`
	EndsAt               time.Time          `bson:"ends_at" json:"ends_at"`
	CreatedAt            time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at" json:"updated_at"`
}

// HasAccess reports whether the record still grants listing access. A
// cancelled subscription keeps access until its period end.
func (s *Subscription) HasAccess(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.Status != StatusActive && s.Status != StatusCancelled {
		return false
	}
	return s.EndsAt.After(now)
}

// EffectiveStatus derives "expired" at read time; the stored status is never
// rewritten when a period lapses.
func (s *Subscription) EffectiveStatus(now time.Time) Status {
	if s == nil {
		return ""
	}
	if (s.Status == StatusActive || s.Status == StatusCancelled) && !s.EndsAt.After(now) {
		return StatusExpired
	}
	return s.Status
}

// PlanInfo describes the subscription plan shown to clients.
type PlanInfo struct {
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	Features     []string `json:"features"`
	DurationDays int      `json:"duration_days"`
}

// PremiumPlan returns the single plan on offer.
func PremiumPlan() PlanInfo {
	return PlanInfo{
		Name:  PlanPremium,
		Price: PlanPriceUSD,
		Features: []string{
			"Access to all property listings",
			"Detailed property information",
			"Contact information for properties",
			"Advanced search and filtering",
			"Monthly updates",
		},
		DurationDays: PlanDurationDays,
	}
}

// PaymentResponse is the payload returned by the payment operations.
type PaymentResponse struct {
	Success        bool   `json:"success"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Message        string `json:"message"`
}
