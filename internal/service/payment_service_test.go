package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/models"
	"github.com/vindel10/vindel-api/internal/repository"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
	"github.com/vindel10/vindel-api/pkg/payments"
)

type fakePaymentRepo struct {
	orders   map[string]*models.Order
	credits  map[string]int
	promoted map[string]time.Time
	failed   []string
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{orders: map[string]*models.Order{}, credits: map[string]int{}, promoted: map[string]time.Time{}}
}

func (f *fakePaymentRepo) CreateOrder(_ context.Context, order *models.Order) error {
	order.ID = "order-1"
	clone := *order
	f.orders[order.ID] = &clone
	return nil
}

func (f *fakePaymentRepo) SetProviderRef(_ context.Context, orderID, ref string) error {
	f.orders[orderID].ProviderRef = &ref
	return nil
}

func (f *fakePaymentRepo) FindOrder(_ context.Context, id string) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *order
	return &clone, nil
}

func (f *fakePaymentRepo) FulfillOrder(_ context.Context, orderID, _ string, paidAt time.Time) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok || order.Status != models.OrderPending {
		return nil, nil
	}
	order.Status = models.OrderPaid
	order.PaidAt = &paidAt
	f.credits[order.UserID] += order.Credits
	clone := *order
	return &clone, nil
}

func (f *fakePaymentRepo) MarkFailed(_ context.Context, orderID string) error {
	f.failed = append(f.failed, orderID)
	if order, ok := f.orders[orderID]; ok && order.Status == models.OrderPending {
		order.Status = models.OrderFailed
	}
	return nil
}

func (f *fakePaymentRepo) SpendOnPromotion(_ context.Context, userID, listingID string, cost, days int, now time.Time) (time.Time, error) {
	if f.credits[userID] < cost {
		return time.Time{}, repository.ErrInsufficientCredits
	}
	f.credits[userID] -= cost
	start := now
	if current, ok := f.promoted[listingID]; ok && current.After(now) {
		start = current
	}
	f.promoted[listingID] = start.AddDate(0, 0, days)
	return f.promoted[listingID], nil
}

func (f *fakePaymentRepo) ListLedger(context.Context, string, int) ([]models.CreditLedgerEntry, error) {
	return []models.CreditLedgerEntry{}, nil
}

type fakeUsers map[string]*models.User

func (f fakeUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

type fakeProvider struct {
	checkoutErr error
	lastReq     payments.CheckoutRequest
	event       *payments.WebhookEvent
	parseErr    error
}

func (p *fakeProvider) Name() string { return "stripe" }

func (p *fakeProvider) CreateCheckout(_ context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	p.lastReq = req
	if p.checkoutErr != nil {
		return nil, p.checkoutErr
	}
	return &payments.CheckoutSession{ID: "cs_1", URL: "https://pay.test/cs_1"}, nil
}

func (p *fakeProvider) ParseWebhook([]byte, string) (*payments.WebhookEvent, error) {
	return p.event, p.parseErr
}

func newTestPaymentService() (*PaymentService, *fakePaymentRepo, *fakeProvider, *fakeListingRepo, *recordingNotifier) {
	repo := newFakePaymentRepo()
	provider := &fakeProvider{}
	listings := newFakeListingRepo()
	notes := &recordingNotifier{}
	users := fakeUsers{"u1": {ID: "u1", Email: "ana@example.ro", DisplayName: "Ana"}}
	svc := NewPaymentService(repo, users, listings, provider, nil, nil, notes, nil, PaymentConfig{Currency: "ron", PromotionCreditsPerDay: 2})
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	return svc, repo, provider, listings, notes
}

func TestCheckoutCreatesPendingOrder(t *testing.T) {
	svc, repo, provider, _, _ := newTestPaymentService()

	resp, err := svc.Checkout(context.Background(), "u1", dto.CheckoutRequest{PackageID: "credits-50"})
	require.NoError(t, err)
	assert.Equal(t, "order-1", resp.OrderID)
	assert.Equal(t, "https://pay.test/cs_1", resp.RedirectURL)

	order := repo.orders["order-1"]
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, 50, order.Credits)
	assert.Equal(t, int64(4500), order.AmountMinor)
	require.NotNil(t, order.ProviderRef)
	assert.Equal(t, "cs_1", *order.ProviderRef)
	assert.Equal(t, "ana@example.ro", provider.lastReq.CustomerEmail)
}

func TestCheckoutErrors(t *testing.T) {
	svc, repo, provider, _, _ := newTestPaymentService()

	_, err := svc.Checkout(context.Background(), "u1", dto.CheckoutRequest{PackageID: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	provider.checkoutErr = errors.New("stripe down")
	_, err = svc.Checkout(context.Background(), "u1", dto.CheckoutRequest{PackageID: "credits-10"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPaymentProvider.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []string{"order-1"}, repo.failed)
}

func TestWebhookCreditsOnce(t *testing.T) {
	svc, repo, provider, _, notes := newTestPaymentService()
	_, err := svc.Checkout(context.Background(), "u1", dto.CheckoutRequest{PackageID: "credits-10"})
	require.NoError(t, err)

	provider.event = &payments.WebhookEvent{ID: "evt_1", Kind: payments.EventPaid, OrderID: "order-1", ProviderRef: "cs_1"}
	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))

	assert.Equal(t, 10, repo.credits["u1"])
	require.Len(t, notes.items, 1)
	assert.Equal(t, models.NotificationPayment, notes.items[0].Kind)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	svc, _, provider, _, _ := newTestPaymentService()
	provider.parseErr = payments.ErrInvalidSignature
	err := svc.HandleWebhook(context.Background(), []byte("{}"), "bad")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestWebhookMarksFailure(t *testing.T) {
	svc, repo, provider, _, _ := newTestPaymentService()
	provider.event = &payments.WebhookEvent{Kind: payments.EventFailed, OrderID: "order-9"}
	require.NoError(t, svc.HandleWebhook(context.Background(), nil, "sig"))
	assert.Equal(t, []string{"order-9"}, repo.failed)
}

func TestReceiptRequiresPaidOwnedOrder(t *testing.T) {
	svc, repo, provider, _, _ := newTestPaymentService()
	_, err := svc.Checkout(context.Background(), "u1", dto.CheckoutRequest{PackageID: "credits-10"})
	require.NoError(t, err)

	_, err = svc.Receipt(context.Background(), owner("u1"), "order-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	provider.event = &payments.WebhookEvent{Kind: payments.EventPaid, OrderID: "order-1"}
	require.NoError(t, svc.HandleWebhook(context.Background(), nil, "sig"))

	pdf, err := svc.Receipt(context.Background(), owner("u1"), "order-1")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, err = svc.Receipt(context.Background(), owner("u2"), "order-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NotNil(t, repo.orders["order-1"].PaidAt)
}

func TestPromoteSpendsCreditsAndExtends(t *testing.T) {
	svc, repo, _, listings, _ := newTestPaymentService()
	now := svc.now()
	current := now.Add(48 * time.Hour)
	listings.put(models.ListingDocument{ID: "l1", OwnerID: sp("u1"), PromotedUntil: &current})
	repo.promoted["l1"] = current
	repo.credits["u1"] = 10

	resp, err := svc.Promote(context.Background(), owner("u1"), "l1", dto.PromoteListingRequest{Days: 3})
	require.NoError(t, err)
	assert.Equal(t, 6, resp.CreditsSpent)
	assert.Equal(t, current.Add(72*time.Hour).UnixMilli(), resp.PromotedUntil)
	assert.Equal(t, 4, repo.credits["u1"])

	_, err = svc.Promote(context.Background(), owner("u1"), "l1", dto.PromoteListingRequest{Days: 3})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInsufficientCredits.Code, appErr.Code)
	assert.Equal(t, 402, appErr.Status)
}

func TestPromoteTwiceStacksDays(t *testing.T) {
	svc, repo, _, listings, _ := newTestPaymentService()
	now := svc.now()
	listings.put(models.ListingDocument{ID: "l1", OwnerID: sp("u1")})
	repo.credits["u1"] = 28

	first, err := svc.Promote(context.Background(), owner("u1"), "l1", dto.PromoteListingRequest{Days: 7})
	require.NoError(t, err)
	second, err := svc.Promote(context.Background(), owner("u1"), "l1", dto.PromoteListingRequest{Days: 7})
	require.NoError(t, err)

	assert.Equal(t, now.AddDate(0, 0, 7).UnixMilli(), first.PromotedUntil)
	assert.Equal(t, now.AddDate(0, 0, 14).UnixMilli(), second.PromotedUntil)
	assert.Equal(t, 0, repo.credits["u1"])
}

func TestPromoteRejectsNonOwnerAndInactive(t *testing.T) {
	svc, repo, _, listings, _ := newTestPaymentService()
	listings.put(models.ListingDocument{ID: "l1", OwnerID: sp("u1")})
	listings.put(models.ListingDocument{ID: "l2", OwnerID: sp("u1"), Status: sp(string(models.StatusPaused))})
	repo.credits["u1"] = 100

	_, err := svc.Promote(context.Background(), owner("u2"), "l1", dto.PromoteListingRequest{Days: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Promote(context.Background(), owner("u1"), "l2", dto.PromoteListingRequest{Days: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Promote(context.Background(), owner("u1"), "l1", dto.PromoteListingRequest{Days: 0})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "45.00 RON", formatAmount(4500, "ron"))
	assert.Equal(t, "0.05 EUR", formatAmount(5, "eur"))
}
