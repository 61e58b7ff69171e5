package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

const orderMetadataKey = "order_id"

// StripeConfig holds credentials and redirect targets.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// StripeProvider creates Checkout sessions and verifies Stripe webhooks.
type StripeProvider struct {
	sessions *session.Client
	cfg      StripeConfig
}

// NewStripeProvider builds a provider on the default Stripe API backend.
func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	return NewStripeProviderWithBackend(cfg, stripe.GetBackend(stripe.APIBackend))
}

// NewStripeProviderWithBackend builds a provider on a custom backend.
func NewStripeProviderWithBackend(cfg StripeConfig, backend stripe.Backend) *StripeProvider {
	return &StripeProvider{
		sessions: &session.Client{B: backend, Key: cfg.SecretKey},
		cfg:      cfg,
	}
}

// Name identifies the provider on stored orders.
func (p *StripeProvider) Name() string { return "stripe" }

// CreateCheckout opens a hosted Checkout session for a single line item.
func (p *StripeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if p.cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key not configured")
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(withOrder(p.cfg.SuccessURL, req.OrderID)),
		CancelURL:         stripe.String(withOrder(p.cfg.CancelURL, req.OrderID)),
		ClientReferenceID: stripe.String(req.OrderID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(req.AmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
			},
		}},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata(orderMetadataKey, req.OrderID)
	params.Context = ctx

	sess, err := p.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the order
// settlement outcome.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	out := &WebhookEvent{ID: event.ID, Type: string(event.Type), Kind: EventIgnored}

	var kind EventKind
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		kind = EventPaid
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		kind = EventFailed
	default:
		return out, nil
	}
	if event.Data == nil {
		return nil, fmt.Errorf("stripe event %s has no data", event.ID)
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	out.ProviderRef = sess.ID
	out.OrderID = sess.ClientReferenceID
	if out.OrderID == "" {
		out.OrderID = sess.Metadata[orderMetadataKey]
	}
	// A completed session for a delayed payment method is settled by the async event.
	if event.Type == "checkout.session.completed" && sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		return out, nil
	}
	out.Kind = kind
	return out, nil
}

func withOrder(target, orderID string) string {
	if target == "" {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + "order=" + orderID
}
