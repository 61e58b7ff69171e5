package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vindel10/vindel-api/internal/catalog"
	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/models"
	"github.com/vindel10/vindel-api/internal/repository"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
	"github.com/vindel10/vindel-api/pkg/export"
	"github.com/vindel10/vindel-api/pkg/payments"
)

type paymentRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	SetProviderRef(ctx context.Context, orderID, ref string) error
	FindOrder(ctx context.Context, id string) (*models.Order, error)
	FulfillOrder(ctx context.Context, orderID, providerRef string, paidAt time.Time) (*models.Order, error)
	MarkFailed(ctx context.Context, orderID string) error
	SpendOnPromotion(ctx context.Context, userID, listingID string, cost, days int, now time.Time) (time.Time, error)
	ListLedger(ctx context.Context, userID string, limit int) ([]models.CreditLedgerEntry, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type receiptRenderer interface {
	RenderReceipt(r export.Receipt) ([]byte, error)
}

// PaymentConfig prices checkout and promotion.
type PaymentConfig struct {
	Currency               string
	PromotionCreditsPerDay int
}

// PaymentService sells credit packages and spends credits on promotions.
type PaymentService struct {
	repo      paymentRepository
	users     userLookup
	listings  listingLookup
	provider  payments.Provider
	catalog   *catalog.Catalog
	cache     *CacheService
	notify    notifier
	receipts  receiptRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       PaymentConfig
	now       func() time.Time
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(repo paymentRepository, users userLookup, listings listingLookup, provider payments.Provider, cat *catalog.Catalog, cache *CacheService, notify notifier, logger *zap.Logger, cfg PaymentConfig) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cat == nil {
		cat = catalog.Default()
	}
	if cfg.Currency == "" {
		cfg.Currency = "ron"
	}
	if cfg.PromotionCreditsPerDay <= 0 {
		cfg.PromotionCreditsPerDay = 1
	}
	return &PaymentService{
		repo:      repo,
		users:     users,
		listings:  listings,
		provider:  provider,
		catalog:   cat,
		cache:     cache,
		notify:    notify,
		receipts:  export.NewPDFExporter(),
		validator: NewValidator(),
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Packages lists the purchasable credit packages.
func (s *PaymentService) Packages() []catalog.CreditPackage {
	return append([]catalog.CreditPackage(nil), s.catalog.Packages...)
}

// Checkout creates a pending order and a processor session for it.
func (s *PaymentService) Checkout(ctx context.Context, userID string, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checkout payload")
	}
	pkg, ok := s.catalog.Package(req.PackageID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown credit package")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}

	order := &models.Order{
		UserID:      userID,
		Provider:    s.provider.Name(),
		PackageID:   pkg.ID,
		Credits:     pkg.Credits,
		AmountMinor: pkg.AmountMinor,
		Currency:    s.cfg.Currency,
		Status:      models.OrderPending,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create order")
	}

	sess, err := s.provider.CreateCheckout(ctx, payments.CheckoutRequest{
		OrderID:       order.ID,
		Description:   pkg.Name,
		AmountMinor:   pkg.AmountMinor,
		Currency:      s.cfg.Currency,
		CustomerEmail: user.Email,
	})
	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, order.ID); markErr != nil {
			s.logger.Warn("mark order failed", zap.String("order_id", order.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPaymentProvider.Code, appErrors.ErrPaymentProvider.Status, "payment provider unavailable")
	}
	if err := s.repo.SetProviderRef(ctx, order.ID, sess.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store checkout reference")
	}
	s.logger.Info("checkout created", zap.String("order_id", order.ID), zap.String("package_id", pkg.ID), zap.String("user_id", userID))
	return &dto.CheckoutResponse{OrderID: order.ID, RedirectURL: sess.URL}, nil
}

// HandleWebhook settles orders from a verified processor event. Replayed
// events are acknowledged without crediting twice.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid webhook signature")
		}
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid webhook payload")
	}
	logger := s.logger.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type), zap.String("order_id", event.OrderID))

	switch event.Kind {
	case payments.EventPaid:
		order, err := s.repo.FulfillOrder(ctx, event.OrderID, event.ProviderRef, s.now())
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fulfill order")
		}
		if order == nil {
			logger.Info("webhook for settled order ignored")
			return nil
		}
		logger.Info("order paid", zap.Int("credits", order.Credits))
		s.notifyPayment(ctx, order)
	case payments.EventFailed:
		if err := s.repo.MarkFailed(ctx, event.OrderID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark order failed")
		}
		logger.Info("order failed")
	default:
		logger.Debug("webhook event ignored")
	}
	return nil
}

// Receipt renders a PDF receipt for a paid order of the caller.
func (s *PaymentService) Receipt(ctx context.Context, actor *models.JWTClaims, orderID string) ([]byte, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order")
	}
	if !canManage(order.UserID, actor) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "order not found")
	}
	if order.Status != models.OrderPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "order is not paid")
	}
	user, err := s.users.FindByID(ctx, order.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}
	item := order.PackageID
	if pkg, ok := s.catalog.Package(order.PackageID); ok {
		item = pkg.Name
	}
	issued := order.CreatedAt
	if order.PaidAt != nil {
		issued = *order.PaidAt
	}
	ref := ""
	if order.ProviderRef != nil {
		ref = *order.ProviderRef
	}
	data, err := s.receipts.RenderReceipt(export.Receipt{
		Number:    strings.ToUpper(strings.SplitN(order.ID, "-", 2)[0]),
		IssuedAt:  issued.Format("02.01.2006 15:04"),
		Customer:  user.DisplayName,
		Email:     user.Email,
		Item:      item,
		Credits:   order.Credits,
		Amount:    formatAmount(order.AmountMinor, order.Currency),
		Provider:  order.Provider,
		Reference: ref,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return data, nil
}

// Ledger returns the caller's credit history.
func (s *PaymentService) Ledger(ctx context.Context, userID string, limit int) ([]models.CreditLedgerEntry, error) {
	entries, err := s.repo.ListLedger(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load credit history")
	}
	return entries, nil
}

// Promote spends credits to feature an active listing for the given days.
// Existing promotions are extended rather than replaced.
func (s *PaymentService) Promote(ctx context.Context, actor *models.JWTClaims, listingID string, req dto.PromoteListingRequest) (*dto.PromotionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion payload")
	}
	doc, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}
	listing := doc.ToListing()
	if actor == nil || listing.OwnerID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can promote this listing")
	}
	if listing.Status != "" && listing.Status != models.StatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only active listings can be promoted")
	}

	cost := req.Days * s.cfg.PromotionCreditsPerDay
	until, err := s.repo.SpendOnPromotion(ctx, actor.UserID, listingID, cost, req.Days, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			return nil, appErrors.Clone(appErrors.ErrInsufficientCredits, fmt.Sprintf("promotion costs %d credits", cost))
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote listing")
	}
	_ = s.cache.Invalidate(ctx, listingCacheKey(listingID))
	s.logger.Info("listing promoted", zap.String("listing_id", listingID), zap.Int("days", req.Days), zap.Int("credits", cost))
	return &dto.PromotionResponse{ListingID: listingID, PromotedUntil: until.UnixMilli(), CreditsSpent: cost}, nil
}

func (s *PaymentService) notifyPayment(ctx context.Context, order *models.Order) {
	if s.notify == nil {
		return
	}
	if err := s.notify.Notify(ctx, &models.Notification{
		UserID: order.UserID,
		Kind:   models.NotificationPayment,
		Title:  "Plată confirmată",
		Body:   fmt.Sprintf("Ai primit %d credite.", order.Credits),
	}); err != nil {
		s.logger.Warn("notify payment failed", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, strings.ToUpper(currency))
}
