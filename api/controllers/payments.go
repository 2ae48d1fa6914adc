package controllers

import (
	"net/http"

	"github.com/nochance19900208-source/Real-Estate/api/middleware"
	"github.com/nochance19900208-source/Real-Estate/api/responses"
	"github.com/nochance19900208-source/Real-Estate/api/validators"
	"github.com/nochance19900208-source/Real-Estate/internal/auth"
	"github.com/nochance19900208-source/Real-Estate/internal/subscriptions"
	pkgerrors "github.com/nochance19900208-source/Real-Estate/pkg/errors"
	"github.com/nochance19900208-source/Real-Estate/pkg/logger"
)

type subscriptionCreateRequest struct {
	Plan            string `json:"plan" validate:"required"`
	PaymentProvider string `json:"payment_provider"`
	PaymentToken    string `json:"payment_token" validate:"required"`
}

type subscriptionCreateWithUserRequest struct {
	subscriptionCreateRequest
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func requireStripeProvider(provider string) error {
	if provider != "" && provider != subscriptions.ProviderStripe {
		return pkgerrors.New(pkgerrors.CodeValidation, "Only Stripe payment provider is supported")
	}
	return nil
}

type publishableKeySource interface {
	PublishableKey() string
}

// PaymentConfig exposes the publishable key the storefront needs to tokenize
// cards.
func PaymentConfig(keys publishableKeySource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"stripe": map[string]string{"publishable_key": keys.PublishableKey()},
		})
	}
}

// CreateSubscription registers an account and activates its subscription in
// one call. The card is charged before the account is inserted, so a
// declined payment leaves no account and the same email can retry.
func CreateSubscription(accounts auth.Service, subs subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body subscriptionCreateWithUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := requireStripeProvider(body.PaymentProvider); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := accounts.PrepareAccount(r.Context(), auth.RegisterRequest{
			Email:    body.Email,
			Password: body.Password,
			Name:     validators.SanitizeName(body.Name),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stripeSubID, err := subs.Charge(r.Context(), user.Email, user.Name, body.PaymentToken)
		if err != nil {
			logg.Error(r.Context(), "signup payment failed, no account created", err)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := accounts.SaveAccount(r.Context(), user); err != nil {
			logg.Error(r.Context(), "account insert failed after successful charge", err)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := subs.Activate(r.Context(), user, stripeSubID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CreateSubscriptionForUser starts a subscription for the authenticated
// account.
func CreateSubscriptionForUser(subs subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var body subscriptionCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := requireStripeProvider(body.PaymentProvider); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := subs.CreateForUser(r.Context(), user, body.PaymentToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func RenewSubscription(subs subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var body subscriptionCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := requireStripeProvider(body.PaymentProvider); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := subs.Renew(r.Context(), user, body.PaymentToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CancelSubscription(subs subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		message, err := subs.Cancel(r.Context(), user)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": message})
	}
}

func ReactivateSubscription(subs subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		result, err := subs.Reactivate(r.Context(), user)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CurrentSubscription returns the newest subscription record for the account,
// or null when it never subscribed.
func CurrentSubscription(subs subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		sub, err := subs.Current(r.Context(), user)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]*subscriptions.Subscription{"subscription": sub})
	}
}
