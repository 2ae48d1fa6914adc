package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nochance19900208-source/Real-Estate/internal/users"
	pkgerrors "github.com/nochance19900208-source/Real-Estate/pkg/errors"
	"github.com/nochance19900208-source/Real-Estate/pkg/logger"
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, sub *Subscription) error
	MostRecentByUser(ctx context.Context, userID string) (*Subscription, error)
	ActiveByUser(ctx context.Context, userID string) (*Subscription, error)
	MostRecentCancelledByUser(ctx context.Context, userID string) (*Subscription, error)
	HasUnexpiredAccess(ctx context.Context, userID string, now time.Time) (bool, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error
}

// Service runs the subscription state machine against Stripe and the local store.
type Service interface {
	Charge(ctx context.Context, email, name, paymentToken string) (string, error)
	Activate(ctx context.Context, user *users.User, stripeSubscriptionID string) (*PaymentResponse, error)
	CreateForUser(ctx context.Context, user *users.User, paymentToken string) (*PaymentResponse, error)
	Renew(ctx context.Context, user *users.User, paymentToken string) (*PaymentResponse, error)
	Cancel(ctx context.Context, user *users.User) (string, error)
	Reactivate(ctx context.Context, user *users.User) (*PaymentResponse, error)
	Current(ctx context.Context, user *users.User) (*Subscription, error)
	HasActiveAccess(ctx context.Context, user *users.User) (bool, error)
}

type ServiceParams struct {
	Store     Store
	Stripe    StripeClient
	ProductID string
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	store     Store
	stripe    StripeClient
	productID string
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("subscriptions: store is required")
	}
	if p.Stripe == nil {
		return nil, fmt.Errorf("subscriptions: stripe client is required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("subscriptions: logger is required")
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &service{
		store:     p.Store,
		stripe:    p.Stripe,
		productID: p.ProductID,
		logg:      p.Logger,
		now:       p.Now,
	}, nil
}

// Charge runs the Stripe payment flow without touching the local store. The
// signup-and-subscribe endpoint calls it before any account exists, so a
// declined card leaves nothing behind and the customer can simply retry.
func (s *service) Charge(ctx context.Context, email, name, paymentToken string) (string, error) {
	return s.charge(ctx, email, name, paymentToken)
}

// Activate records the paid provider subscription for a freshly created
// account.
func (s *service) Activate(ctx context.Context, user *users.User, stripeSubscriptionID string) (*PaymentResponse, error) {
	sub, err := s.record(ctx, user, stripeSubscriptionID)
	if err != nil {
		return nil, err
	}
	return &PaymentResponse{
		Success:        true,
		SubscriptionID: sub.ID.Hex(),
		Message:        "Account created and subscription activated successfully!",
	}, nil
}

// CreateForUser starts a new subscription for an existing account. An
// unexpired active subscription blocks the purchase.
func (s *service) CreateForUser(ctx context.Context, user *users.User, paymentToken string) (*PaymentResponse, error) {
	active, err := s.store.ActiveByUser(ctx, user.PublicID())
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if active != nil && active.HasAccess(s.now().UTC()) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "You already have an active subscription")
	}

	sub, err := s.chargeAndRecord(ctx, user, paymentToken)
	if err != nil {
		return nil, err
	}
	return &PaymentResponse{
		Success:        true,
		SubscriptionID: sub.ID.Hex(),
		Message:        "Subscription activated successfully!",
	}, nil
}

// Renew restores access for an account whose period lapsed or was cancelled.
// A cancelled subscription still inside its period is reactivated without
// charging; an unexpired active one rejects the request; anything else pays
// for a fresh period.
func (s *service) Renew(ctx context.Context, user *users.User, paymentToken string) (*PaymentResponse, error) {
	existing, err := s.store.MostRecentByUser(ctx, user.PublicID())
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if existing != nil && existing.HasAccess(s.now().UTC()) {
		switch existing.Status {
		case StatusCancelled:
			return s.reactivate(ctx, existing)
		case StatusActive:
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "You already have an active subscription")
		}
	}

	sub, err := s.chargeAndRecord(ctx, user, paymentToken)
	if err != nil {
		return nil, err
	}
	return &PaymentResponse{
		Success:        true,
		SubscriptionID: sub.ID.Hex(),
		Message:        "Subscription renewed successfully!",
	}, nil
}

// Cancel marks the active subscription cancelled locally and asks Stripe to
// stop billing at period end. The local update proceeds even when Stripe is
// unreachable.
func (s *service) Cancel(ctx context.Context, user *users.User) (string, error) {
	sub, err := s.store.ActiveByUser(ctx, user.PublicID())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "No active subscription found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}

	message := "Subscription cancelled successfully"
	if sub.StripeSubscriptionID != "" {
		remote, err := s.stripe.GetSubscription(ctx, sub.StripeSubscriptionID)
		switch {
		case err != nil:
			s.logg.Error(s.logg.WithField(ctx, "stripe_subscription_id", sub.StripeSubscriptionID), "stripe cancellation failed, updating local record only", err)
			message = "Subscription cancelled in our system. Please contact support if you continue to be charged."
		case remote.Status == "active":
			if err := s.stripe.SetCancelAtPeriodEnd(ctx, sub.StripeSubscriptionID, true); err != nil {
				s.logg.Error(s.logg.WithField(ctx, "stripe_subscription_id", sub.StripeSubscriptionID), "stripe cancellation failed, updating local record only", err)
				message = "Subscription cancelled in our system. Please contact support if you continue to be charged."
			} else {
				message = "Subscription will be cancelled at the end of your current billing period. You'll retain access until then."
			}
		case remote.Status == "canceled" || remote.Status == "cancelled":
			message = "Subscription is already cancelled"
		default:
			message = fmt.Sprintf("Subscription status is %s. Marked as cancelled in our system.", remote.Status)
		}
	}

	if err := s.store.UpdateFields(ctx, sub.ID, bson.M{"status": StatusCancelled}); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel subscription")
	}
	return message, nil
}

// Reactivate restores a cancelled subscription that is still inside its paid
// period, without charging again.
func (s *service) Reactivate(ctx context.Context, user *users.User) (*PaymentResponse, error) {
	sub, err := s.store.MostRecentCancelledByUser(ctx, user.PublicID())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "No cancelled subscription found to reactivate")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if !sub.HasAccess(s.now().UTC()) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Subscription has expired and cannot be reactivated. Please create a new subscription.")
	}
	return s.reactivate(ctx, sub)
}

// Current returns the newest subscription record for the user, or nil when
// the account has never subscribed. The status is derived at read time, so a
// lapsed record reports expired without waiting for a write.
func (s *service) Current(ctx context.Context, user *users.User) (*Subscription, error) {
	sub, err := s.store.MostRecentByUser(ctx, user.PublicID())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	out := *sub
	out.Status = sub.EffectiveStatus(s.now().UTC())
	return &out, nil
}

// HasActiveAccess reports whether the account may read listing data. Admins
// always pass; everyone else needs an unexpired active or cancelled record.
func (s *service) HasActiveAccess(ctx context.Context, user *users.User) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.IsAdmin() {
		return true, nil
	}
	ok, err := s.store.HasUnexpiredAccess(ctx, user.PublicID(), s.now().UTC())
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check subscription access")
	}
	return ok, nil
}

func (s *service) reactivate(ctx context.Context, sub *Subscription) (*PaymentResponse, error) {
	if sub.StripeSubscriptionID != "" {
		if err := s.stripe.SetCancelAtPeriodEnd(ctx, sub.StripeSubscriptionID, false); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reactivate stripe subscription")
		}
	}
	if err := s.store.UpdateFields(ctx, sub.ID, bson.M{"status": StatusActive}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reactivate subscription")
	}
	return &PaymentResponse{
		Success:        true,
		SubscriptionID: sub.ID.Hex(),
		Message:        "Subscription reactivated successfully! Your access will continue beyond the current period.",
	}, nil
}

// chargeAndRecord runs the shared Stripe payment flow and inserts the local
// record for an existing account.
func (s *service) chargeAndRecord(ctx context.Context, user *users.User, paymentToken string) (*Subscription, error) {
	stripeSubID, err := s.charge(ctx, user.Email, user.Name, paymentToken)
	if err != nil {
		return nil, err
	}
	return s.record(ctx, user, stripeSubID)
}

// charge walks the Stripe flow: customer by email, attach and default the
// payment method, verify the product, create the subscription.
func (s *service) charge(ctx context.Context, email, name, paymentToken string) (string, error) {
	customerID, err := s.stripe.FindCustomerByEmail(ctx, email)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up stripe customer")
	}
	if customerID == "" {
		customerID, err = s.stripe.CreateCustomer(ctx, email, name)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe customer")
		}
	}

	paymentMethodID, err := s.stripe.AttachPaymentMethod(ctx, customerID, paymentToken)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "attach payment method")
	}
	if err := s.stripe.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set default payment method")
	}

	if s.productID == "" {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "stripe product is not configured")
	}
	if err := s.stripe.EnsureProduct(ctx, s.productID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify stripe product")
	}

	remote, err := s.stripe.CreateSubscription(ctx, customerID, s.productID, int64(PlanPriceUSD*100))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "create stripe subscription")
	}
	return remote.ID, nil
}

// record inserts the local record with a thirty-day period.
func (s *service) record(ctx context.Context, user *users.User, stripeSubID string) (*Subscription, error) {
	now := s.now().UTC()
	sub := &Subscription{
		UserID:               user.PublicID(),
		Plan:                 PlanPremium,
		Status:               StatusActive,
		PaymentProvider:      ProviderStripe,
		StripeSubscriptionID: stripeSubID,
		StartsAt:             now,
		EndsAt:               now.Add(PlanDurationDays * 24 * time.Hour),
	}
	if err := s.store.Insert(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store subscription")
	}
	return sub, nil
}
