package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v84"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nochance19900208-source/Real-Estate/internal/subscriptions"
	"github.com/nochance19900208-source/Real-Estate/internal/users"
	pkgerrors "github.com/nochance19900208-source/Real-Estate/pkg/errors"
	"github.com/nochance19900208-source/Real-Estate/pkg/logger"
)

type subscriptionStore interface {
	Insert(ctx context.Context, sub *subscriptions.Subscription) error
	ByStripeID(ctx context.Context, stripeID string) (*subscriptions.Subscription, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	UpdateFieldsByStripeID(ctx context.Context, stripeID string, fields bson.M) error
}

type userDirectory interface {
	GetByStripeCustomerID(ctx context.Context, customerID string) (*users.User, error)
}

type stripeLookup interface {
	GetSubscription(ctx context.Context, id string) (*subscriptions.ProviderSubscription, error)
	ListSubscriptions(ctx context.Context, customerID string, limit int64) ([]subscriptions.ProviderSubscription, error)
	InvoiceSubscriptionID(ctx context.Context, invoiceID string) (string, error)
	CustomerEmail(ctx context.Context, customerID string) (string, error)
}

type ServiceParams struct {
	Subscriptions subscriptionStore
	Users         userDirectory
	Stripe        stripeLookup
	Logger        *logger.Logger
	Now           func() time.Time
}

// Service applies Stripe billing events to the local subscription records.
type Service struct {
	subs   subscriptionStore
	users  userDirectory
	stripe stripeLookup
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription store required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user directory required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Service{
		subs:   params.Subscriptions,
		users:  params.Users,
		stripe: params.Stripe,
		logg:   params.Logger,
		now:    params.Now,
	}, nil
}

// invoicePayload carries the fields read from invoice-shaped event objects.
// Older API versions put the subscription id at the top level, newer ones
// under parent.subscription_details.
type invoicePayload struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Lines        struct {
		Data []struct {
			Subscription string `json:"subscription"`
		} `json:"data"`
	} `json:"lines"`
	Parent *struct {
		SubscriptionDetails *struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (p *invoicePayload) subscriptionID() string {
	if p.Subscription != "" {
		return p.Subscription
	}
	if p.Parent != nil && p.Parent.SubscriptionDetails != nil {
		return p.Parent.SubscriptionDetails.Subscription
	}
	return ""
}

type subscriptionPayload struct {
	ID         string `json:"id"`
	CancelAt   int64  `json:"cancel_at"`
	CanceledAt int64  `json:"canceled_at"`
}

// HandleEvent routes a verified Stripe event. Unknown event types are
// acknowledged without action so Stripe stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentCreated:
		// The storefront confirms payment client side, so this is the
		// earliest signal a subscription charge went through.
		var payload invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment event")
		}
		return s.handlePaymentSucceeded(ctx, &payload)
	case stripe.EventTypeInvoicePaymentFailed:
		var payload invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode invoice event")
		}
		return s.handlePaymentFailed(ctx, &payload)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		var payload subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode subscription event")
		}
		return s.handleSubscriptionDeleted(ctx, &payload)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		var payload subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode subscription event")
		}
		return s.handleSubscriptionUpdated(ctx, &payload)
	default:
		return nil
	}
}

// handlePaymentSucceeded extends the paid period by thirty days. The
// subscription id is resolved through a chain of fallbacks because payment
// events carry it in different places depending on how the charge was made.
func (s *Service) handlePaymentSucceeded(ctx context.Context, payload *invoicePayload) error {
	subscriptionID := s.resolveSubscriptionID(ctx, payload)
	if subscriptionID == "" {
		s.logg.Debug(ctx, "payment event carries no resolvable subscription, skipping")
		return nil
	}

	now := s.now().UTC()
	fields := bson.M{
		"status":  subscriptions.StatusActive,
		"ends_at": now.Add(subscriptions.PlanDurationDays * 24 * time.Hour),
	}

	existing, err := s.subs.ByStripeID(ctx, subscriptionID)
	if err != nil && !errors.Is(err, subscriptions.ErrNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription record")
	}
	if existing != nil {
		if err := s.subs.UpdateFields(ctx, existing.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend subscription")
		}
		return nil
	}

	// No local record. Synthesize one so the paid period is not lost,
	// attributing it by email when the account cannot be resolved.
	sub := &subscriptions.Subscription{
		UserEmail:            s.resolveUserEmail(ctx, subscriptionID),
		Plan:                 subscriptions.PlanPremium,
		Status:               subscriptions.StatusActive,
		PaymentProvider:      subscriptions.ProviderStripe,
		StripeSubscriptionID: subscriptionID,
		StartsAt:             now,
		EndsAt:               now.Add(subscriptions.PlanDurationDays * 24 * time.Hour),
	}
	if err := s.subs.Insert(ctx, sub); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record subscription")
	}
	return nil
}

func (s *Service) handlePaymentFailed(ctx context.Context, payload *invoicePayload) error {
	subscriptionID := payload.subscriptionID()
	if subscriptionID == "" {
		return nil
	}
	existing, err := s.subs.ByStripeID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, subscriptions.ErrNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription record")
	}
	fields := bson.M{
		"status":  subscriptions.StatusInactive,
		"ends_at": s.now().UTC(),
	}
	if err := s.subs.UpdateFields(ctx, existing.ID, fields); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate subscription")
	}
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, payload *subscriptionPayload) error {
	if payload.ID == "" {
		return nil
	}
	endsAt := s.now().UTC()
	if payload.CanceledAt > 0 {
		endsAt = time.Unix(payload.CanceledAt, 0).UTC()
	}
	fields := bson.M{
		"status":  subscriptions.StatusCancelled,
		"ends_at": endsAt,
	}
	if err := s.subs.UpdateFieldsByStripeID(ctx, payload.ID, fields); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark subscription cancelled")
	}
	return nil
}

// handleSubscriptionUpdated only reacts to a scheduled cancellation. Other
// updates carry no state this system tracks.
func (s *Service) handleSubscriptionUpdated(ctx context.Context, payload *subscriptionPayload) error {
	if payload.ID == "" || payload.CancelAt == 0 {
		return nil
	}
	fields := bson.M{
		"status":  subscriptions.StatusCancelled,
		"ends_at": time.Unix(payload.CancelAt, 0).UTC(),
	}
	if err := s.subs.UpdateFieldsByStripeID(ctx, payload.ID, fields); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark subscription cancelled")
	}
	return nil
}

func (s *Service) resolveSubscriptionID(ctx context.Context, payload *invoicePayload) string {
	if id := payload.subscriptionID(); id != "" {
		return id
	}
	for _, line := range payload.Lines.Data {
		if line.Subscription != "" {
			return line.Subscription
		}
	}
	if payload.Customer != "" {
		subs, err := s.stripe.ListSubscriptions(ctx, payload.Customer, 3)
		if err != nil {
			s.logg.Debug(ctx, "could not list customer subscriptions for payment event")
		} else {
			for _, sub := range subs {
				if sub.Status == "active" {
					return sub.ID
				}
			}
			if len(subs) > 0 {
				return subs[0].ID
			}
		}
	}
	if payload.ID != "" {
		id, err := s.stripe.InvoiceSubscriptionID(ctx, payload.ID)
		if err == nil && id != "" {
			return id
		}
	}
	return ""
}

func (s *Service) resolveUserEmail(ctx context.Context, subscriptionID string) string {
	remote, err := s.stripe.GetSubscription(ctx, subscriptionID)
	if err != nil || remote.Customer == "" {
		return ""
	}
	if user, err := s.users.GetByStripeCustomerID(ctx, remote.Customer); err == nil {
		return user.Email
	}
	if email, err := s.stripe.CustomerEmail(ctx, remote.Customer); err == nil {
		return email
	}
	return ""
}
