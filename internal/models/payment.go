package models

import "time"

// OrderStatus tracks checkout progress.
type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"
)

// Order is a credit purchase.
type Order struct {
	ID          string      `db:"id" json:"id"`
	UserID      string      `db:"user_id" json:"userId"`
	Provider    string      `db:"provider" json:"provider"`
	PackageID   string      `db:"package_id" json:"packageId"`
	Credits     int         `db:"credits" json:"credits"`
	AmountMinor int64       `db:"amount_minor" json:"amountMinor"`
	Currency    string      `db:"currency" json:"currency"`
	Status      OrderStatus `db:"status" json:"status"`
	ProviderRef *string     `db:"provider_ref" json:"providerRef,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	PaidAt      *time.Time  `db:"paid_at" json:"paidAt,omitempty"`
}

// CreditLedgerEntry records every change to a user's credit balance.
type CreditLedgerEntry struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Delta     int       `db:"delta" json:"delta"`
	Reason    string    `db:"reason" json:"reason"`
	Reference string    `db:"reference" json:"reference"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Ledger reasons.
const (
	LedgerPurchase  = "purchase"
	LedgerPromotion = "promotion"
)
