package subscriptions

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/invoice"
	"github.com/stripe/stripe-go/v84/paymentmethod"
	"github.com/stripe/stripe-go/v84/product"
	"github.com/stripe/stripe-go/v84/subscription"
)

// ProviderSubscription is the slice of provider subscription state the
// service and webhook handlers read.
type ProviderSubscription struct {
	ID       string
	Status   string
	Customer string
}

// StripeClient is the provider surface the subscription service depends on.
type StripeClient interface {
	FindCustomerByEmail(ctx context.Context, email string) (string, error)
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentToken string) (string, error)
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	EnsureProduct(ctx context.Context, productID string) error
	CreateSubscription(ctx context.Context, customerID, productID string, unitAmountCents int64) (*ProviderSubscription, error)
	GetSubscription(ctx context.Context, id string) (*ProviderSubscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) error
	ListSubscriptions(ctx context.Context, customerID string, limit int64) ([]ProviderSubscription, error)
	InvoiceSubscriptionID(ctx context.Context, invoiceID string) (string, error)
	CustomerEmail(ctx context.Context, customerID string) (string, error)
}

// stripeAPI calls the Stripe API through the package-level bindings. The
// global key is set once at startup by pkg/stripe.
type stripeAPI struct{}

// NewStripeAPI returns the live Stripe-backed client.
func NewStripeAPI() StripeClient {
	return &stripeAPI{}
}

func (s *stripeAPI) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	it := customer.List(params)
	for it.Next() {
		return it.Customer().ID, nil
	}
	if err := it.Err(); err != nil {
		return "", fmt.Errorf("list stripe customers: %w", err)
	}
	return "", nil
}

func (s *stripeAPI) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return cust.ID, nil
}

func (s *stripeAPI) AttachPaymentMethod(ctx context.Context, customerID, paymentToken string) (string, error) {
	params := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	pm, err := paymentmethod.Attach(paymentToken, params)
	if err != nil {
		return "", fmt.Errorf("attach payment method: %w", err)
	}
	return pm.ID, nil
}

func (s *stripeAPI) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx
	if _, err := customer.Update(customerID, params); err != nil {
		return fmt.Errorf("set default payment method: %w", err)
	}
	return nil
}

func (s *stripeAPI) EnsureProduct(ctx context.Context, productID string) error {
	params := &stripe.ProductParams{}
	params.Context = ctx
	if _, err := product.Get(productID, params); err != nil {
		return fmt.Errorf("retrieve stripe product: %w", err)
	}
	return nil
}

func (s *stripeAPI) CreateSubscription(ctx context.Context, customerID, productID string, unitAmountCents int64) (*ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{
				PriceData: &stripe.SubscriptionItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					Product:    stripe.String(productID),
					UnitAmount: stripe.Int64(unitAmountCents),
					Recurring: &stripe.SubscriptionItemPriceDataRecurringParams{
						Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
					},
				},
			},
		},
		PaymentBehavior: stripe.String("error_if_incomplete"),
	}
	params.Context = ctx
	sub, err := subscription.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe subscription: %w", err)
	}
	return providerSub(sub), nil
}

func (s *stripeAPI) GetSubscription(ctx context.Context, id string) (*ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := subscription.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve stripe subscription: %w", err)
	}
	return providerSub(sub), nil
}

func (s *stripeAPI) SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) error {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(cancel)}
	params.Context = ctx
	if _, err := subscription.Update(id, params); err != nil {
		return fmt.Errorf("update stripe subscription: %w", err)
	}
	return nil
}

func (s *stripeAPI) ListSubscriptions(ctx context.Context, customerID string, limit int64) ([]ProviderSubscription, error) {
	params := &stripe.SubscriptionListParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	if limit > 0 {
		params.Limit = stripe.Int64(limit)
	}
	var out []ProviderSubscription
	it := subscription.List(params)
	for it.Next() {
		out = append(out, *providerSub(it.Subscription()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list stripe subscriptions: %w", err)
	}
	return out, nil
}

func (s *stripeAPI) InvoiceSubscriptionID(ctx context.Context, invoiceID string) (string, error) {
	params := &stripe.InvoiceParams{}
	params.Context = ctx
	inv, err := invoice.Get(invoiceID, params)
	if err != nil {
		return "", fmt.Errorf("retrieve stripe invoice: %w", err)
	}
	if inv.Parent != nil && inv.Parent.SubscriptionDetails != nil && inv.Parent.SubscriptionDetails.Subscription != nil {
		return inv.Parent.SubscriptionDetails.Subscription.ID, nil
	}
	return "", nil
}

func (s *stripeAPI) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	cust, err := customer.Get(customerID, params)
	if err != nil {
		return "", fmt.Errorf("retrieve stripe customer: %w", err)
	}
	return cust.Email, nil
}

func providerSub(sub *stripe.Subscription) *ProviderSubscription {
	out := &ProviderSubscription{ID: sub.ID, Status: string(sub.Status)}
	if sub.Customer != nil {
		out.Customer = sub.Customer.ID
	}
	return out
}
