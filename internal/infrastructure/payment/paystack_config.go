package payment

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/bizdocs/backend/internal/infrastructure/config"
)

const (
	paystackAPIBaseURL     = "https://api.paystack.co"
	paystackDefaultTimeout = 30 * time.Second
)

// Errors for configuration validation
var (
	ErrPaystackMissingSecretKey = errors.New("paystack: missing secret key")
	ErrPaystackInvalidBaseURL   = errors.New("paystack: invalid base URL")
	ErrPaystackInvalidTimeout   = errors.New("paystack: timeout must be positive")
)

// PaystackConfig contains configuration for the Paystack transaction API
type PaystackConfig struct {
	// SecretKey authenticates API calls (sk_live_... or sk_test_...)
	SecretKey string
	// WebhookSecret signs webhook payloads; Paystack uses the secret key
	WebhookSecret string
	// BaseURL is overridden in tests
	BaseURL string
	// CallbackURL is used when a request does not carry its own
	CallbackURL string
	// Timeout bounds every API call
	Timeout time.Duration
}

// PaystackConfigFromGateway maps the service's gateway settings.
func PaystackConfigFromGateway(g config.GatewayConfig) *PaystackConfig {
	return &PaystackConfig{
		SecretKey:     g.SecretKey,
		WebhookSecret: g.WebhookSecret,
		BaseURL:       g.BaseURL,
		CallbackURL:   g.CallbackURL,
		Timeout:       g.Timeout,
	}
}

// Validate validates the configuration and fills defaults
func (c *PaystackConfig) Validate() error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return ErrPaystackMissingSecretKey
	}
	if c.BaseURL == "" {
		c.BaseURL = paystackAPIBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrPaystackInvalidBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = paystackDefaultTimeout
	}
	if c.Timeout < 0 {
		return ErrPaystackInvalidTimeout
	}
	if c.WebhookSecret == "" {
		c.WebhookSecret = c.SecretKey
	}
	return nil
}

// IsTestMode reports whether a test secret key is configured.
func (c *PaystackConfig) IsTestMode() bool {
	return strings.HasPrefix(c.SecretKey, "sk_test_")
}
