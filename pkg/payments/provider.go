package payments

import (
	"context"
	"errors"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// CheckoutRequest describes a one-off purchase.
type CheckoutRequest struct {
	OrderID       string
	Description   string
	AmountMinor   int64
	Currency      string
	CustomerEmail string
}

// CheckoutSession is the processor-side session the buyer is redirected to.
type CheckoutSession struct {
	ID  string
	URL string
}

// EventKind classifies webhook events relevant to order settlement.
type EventKind string

const (
	EventPaid    EventKind = "paid"
	EventFailed  EventKind = "failed"
	EventIgnored EventKind = "ignored"
)

// WebhookEvent is a verified processor notification.
type WebhookEvent struct {
	ID          string
	Type        string
	Kind        EventKind
	OrderID     string
	ProviderRef string
}

// Provider is a payment processor.
type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
