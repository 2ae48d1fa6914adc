package stripe

import (
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/nochance19900208-source/Real-Estate/pkg/config"
)

var errSecretKeyRequired = errors.New("stripe secret key is required")

// Client carries the Stripe credentials the API hands to its controllers.
type Client struct {
	publishableKey string
	signingSecret  string
	productID      string
}

// NewClient initializes the global Stripe key once from configuration.
func NewClient(cfg config.StripeConfig) (*Client, error) {
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}

	stripe.Key = secretKey

	return &Client{
		publishableKey: strings.TrimSpace(cfg.PublishableKey),
		signingSecret:  strings.TrimSpace(cfg.WebhookSecret),
		productID:      strings.TrimSpace(cfg.ProductID),
	}, nil
}

// PublishableKey returns the key exposed to browser clients.
func (c *Client) PublishableKey() string {
	if c == nil {
		return ""
	}
	return c.publishableKey
}

// SigningSecret returns the webhook signature secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// ProductID returns the configured subscription product.
func (c *Client) ProductID() string {
	if c == nil {
		return ""
	}
	return c.productID
}
