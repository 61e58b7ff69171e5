package dto

// CheckoutRequest starts a credit purchase.
type CheckoutRequest struct {
	PackageID string `json:"packageId" validate:"required"`
}

// CheckoutResponse carries the processor redirect.
type CheckoutResponse struct {
	OrderID     string `json:"orderId"`
	RedirectURL string `json:"redirectUrl"`
}

// PromotionResponse reports the result of a promotion purchase.
type PromotionResponse struct {
	ListingID     string `json:"listingId"`
	PromotedUntil int64  `json:"promotedUntil"`
	CreditsSpent  int    `json:"creditsSpent"`
}
