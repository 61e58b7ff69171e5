package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vindel10/vindel-api/internal/catalog"
	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/models"
	"github.com/vindel10/vindel-api/pkg/response"
)

const maxWebhookBytes = 64 << 10

type paymentService interface {
	Packages() []catalog.CreditPackage
	Checkout(ctx context.Context, userID string, req dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	Receipt(ctx context.Context, actor *models.JWTClaims, orderID string) ([]byte, error)
	Ledger(ctx context.Context, userID string, limit int) ([]models.CreditLedgerEntry, error)
	Promote(ctx context.Context, actor *models.JWTClaims, listingID string, req dto.PromoteListingRequest) (*dto.PromotionResponse, error)
}

// PaymentHandler serves credit purchases and listing promotion.
type PaymentHandler struct {
	service paymentService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(svc paymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// Packages godoc
// @Summary Purchasable credit packages
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payments/packages [get]
func (h *PaymentHandler) Packages(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Packages(), nil)
}

// Checkout godoc
// @Summary Start a credit purchase
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CheckoutRequest true "Package"
// @Success 201 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /payments/checkout [post]
func (h *PaymentHandler) Checkout(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid checkout payload"))
		return
	}
	result, err := h.service.Checkout(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// StripeWebhook godoc
// @Summary Stripe event receiver
// @Tags Payments
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} response.Envelope
// @Router /payments/webhook/stripe [post]
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		response.Error(c, bindError(err, "failed to read webhook body"))
		return
	}
	if err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		response.Error(c, err)
		return
	}
	response.Raw(c, http.StatusOK, gin.H{"received": true})
}

// Receipt godoc
// @Summary PDF receipt of a paid order
// @Tags Payments
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /payments/orders/{id}/receipt [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	orderID := c.Param("id")
	data, err := h.service.Receipt(c.Request.Context(), claims, orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "receipt-"+orderID+".pdf"))
	c.Data(http.StatusOK, "application/pdf", data)
}

// Ledger godoc
// @Summary Credit history of the current user
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum items"
// @Success 200 {object} response.Envelope
// @Router /me/credits [get]
func (h *PaymentHandler) Ledger(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	entries, err := h.service.Ledger(c.Request.Context(), claims.UserID, intQuery(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Promote godoc
// @Summary Spend credits to promote a listing
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param payload body dto.PromoteListingRequest true "Days"
// @Success 200 {object} response.Envelope
// @Failure 402 {object} response.Envelope
// @Router /listings/{id}/promote [post]
func (h *PaymentHandler) Promote(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.PromoteListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid promotion payload"))
		return
	}
	result, err := h.service.Promote(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
