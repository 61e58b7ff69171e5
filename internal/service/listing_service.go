package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/models"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
)

type listingRepository interface {
	FindByID(ctx context.Context, id string) (*models.ListingDocument, error)
	Create(ctx context.Context, doc *models.ListingDocument) error
	Update(ctx context.Context, doc *models.ListingDocument) error
	UpdateStatus(ctx context.Context, id string, from, to models.ListingStatus, at time.Time) error
	ListByOwner(ctx context.Context, filter models.ListingFilter) ([]models.ListingDocument, int, error)
	ListByStatus(ctx context.Context, filter models.ListingFilter) ([]models.ListingDocument, int, error)
	ExpireActiveBefore(ctx context.Context, cutoff, now time.Time) ([]models.ListingDocument, error)
	AppendImage(ctx context.Context, id, ref string) error
}

type mediaStore interface {
	SaveStream(key string, r io.Reader) (int64, error)
	Open(key string) (*os.File, error)
	Delete(key string) error
}

// ListingServiceConfig tunes the listing lifecycle.
type ListingServiceConfig struct {
	RequireReview bool
	TTL           time.Duration
	CacheTTL      time.Duration
	MaxImageBytes int64
	AllowedMIMEs  []string
}

// ListingService implements publishing, editing, moderation and expiry of listings.
type ListingService struct {
	repo      listingRepository
	cache     *CacheService
	notify    notifier
	media     mediaStore
	linker    *MediaLinker
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ListingServiceConfig
	now       func() time.Time
}

// NewListingService constructs a ListingService.
func NewListingService(repo listingRepository, cache *CacheService, notify notifier, media mediaStore, linker *MediaLinker, validate *validator.Validate, logger *zap.Logger, cfg ListingServiceConfig) *ListingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 5 << 20
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"image/jpeg", "image/png", "image/webp"}
	}
	return &ListingService{
		repo:      repo,
		cache:     cache,
		notify:    notify,
		media:     media,
		linker:    linker,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func listingCacheKey(id string) string { return "listing:" + id }

// Create publishes a new listing owned by ownerID. Listings wait for moderation
// when review is required, otherwise they go live immediately.
func (s *ListingService) Create(ctx context.Context, ownerID string, req dto.CreateListingRequest) (*models.Listing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid listing payload")
	}
	now := s.now()
	status := models.StatusUnderReview
	doc := &models.ListingDocument{
		OwnerID:     &ownerID,
		Title:       optional(strings.TrimSpace(req.Title)),
		Description: optional(strings.TrimSpace(req.Description)),
		Category:    optional(req.Category),
		Location:    optional(strings.TrimSpace(req.Location)),
		Region:      optional(strings.TrimSpace(req.Region)),
		Price:       req.Price,
		Currency:    optional(req.Currency),
		CreatedAt:   now,
	}
	if !s.cfg.RequireReview {
		status = models.StatusActive
		doc.PublicationDate = models.TimestampFromTime(now)
		doc.ActivatedAt = &now
	}
	statusValue := string(status)
	doc.Status = &statusValue

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create listing")
	}
	s.logger.Info("listing created", zap.String("listing_id", doc.ID), zap.String("owner_id", ownerID), zap.String("status", statusValue))
	listing := doc.ToListing()
	return &listing, nil
}

// Get returns a listing. Listings that are not live are visible only to their
// owner and to administrators.
func (s *ListingService) Get(ctx context.Context, id string, viewer *models.JWTClaims) (*models.Listing, error) {
	var listing models.Listing
	hit, _ := s.cache.Get(ctx, listingCacheKey(id), &listing)
	if !hit {
		doc, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		listing = doc.ToListing()
		_ = s.cache.Set(ctx, listingCacheKey(id), listing, s.cfg.CacheTTL)
	}
	if listing.Status != "" && listing.Status != models.StatusActive && !canManage(listing.OwnerID, viewer) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
	}
	s.linker.Link(&listing)
	return &listing, nil
}

// Update edits the descriptive fields of a listing.
func (s *ListingService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateListingRequest) (*models.Listing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid listing payload")
	}
	doc, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		doc.Title = optional(strings.TrimSpace(*req.Title))
	}
	if req.Description != nil {
		doc.Description = optional(strings.TrimSpace(*req.Description))
	}
	if req.Category != nil {
		doc.Category = optional(*req.Category)
	}
	if req.Location != nil {
		doc.Location = optional(strings.TrimSpace(*req.Location))
	}
	if req.Region != nil {
		doc.Region = optional(strings.TrimSpace(*req.Region))
	}
	if req.Price != nil {
		doc.Price = req.Price
	}
	if req.Currency != nil {
		doc.Currency = optional(*req.Currency)
	}
	if err := s.repo.Update(ctx, doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update listing")
	}
	s.invalidate(ctx, id)
	listing := doc.ToListing()
	s.linker.Link(&listing)
	return &listing, nil
}

// ChangeStatus applies an owner action such as pausing or marking as sold.
func (s *ListingService) ChangeStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.ChangeStatusRequest) (*models.Listing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status action")
	}
	doc, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	target := map[dto.ListingStatusAction]models.ListingStatus{
		dto.ActionPause:    models.StatusPaused,
		dto.ActionResume:   models.StatusActive,
		dto.ActionSold:     models.StatusSold,
		dto.ActionResubmit: models.StatusUnderReview,
	}[req.Action]

	current := doc.StatusValue()
	if err := s.transition(ctx, id, current, target, models.ActorOwner); err != nil {
		return nil, err
	}
	if target == models.StatusUnderReview && !s.cfg.RequireReview {
		if err := s.transition(ctx, id, models.StatusUnderReview, models.StatusActive, models.ActorModerator); err != nil {
			return nil, err
		}
	}
	return s.reload(ctx, id)
}

// Approve publishes a listing waiting for moderation.
func (s *ListingService) Approve(ctx context.Context, id string) (*models.Listing, error) {
	if err := s.transition(ctx, id, models.StatusUnderReview, models.StatusActive, models.ActorModerator); err != nil {
		return nil, err
	}
	listing, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, listing, "Anunțul tău a fost aprobat", fmt.Sprintf("„%s” este acum public.", listing.Title))
	return listing, nil
}

// Reject declines a listing waiting for moderation.
func (s *ListingService) Reject(ctx context.Context, id string, req dto.RejectListingRequest) (*models.Listing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rejection payload")
	}
	if err := s.transition(ctx, id, models.StatusUnderReview, models.StatusRejected, models.ActorModerator); err != nil {
		return nil, err
	}
	listing, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	body := fmt.Sprintf("„%s” nu a fost aprobat.", listing.Title)
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		body += " Motiv: " + reason
	}
	s.notifyOwner(ctx, listing, "Anunțul tău a fost respins", body)
	return listing, nil
}

// ListMine returns the listings of the caller in every status.
func (s *ListingService) ListMine(ctx context.Context, ownerID string, page, pageSize int) (*dto.ListingPage, error) {
	docs, total, err := s.repo.ListByOwner(ctx, models.ListingFilter{OwnerID: ownerID, Page: page, PageSize: pageSize})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list listings")
	}
	return s.page(docs, total, page, pageSize), nil
}

// ListPending returns the moderation queue, oldest first.
func (s *ListingService) ListPending(ctx context.Context, page, pageSize int) (*dto.ListingPage, error) {
	docs, total, err := s.repo.ListByStatus(ctx, models.ListingFilter{Status: models.StatusUnderReview, Page: page, PageSize: pageSize})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending listings")
	}
	return s.page(docs, total, page, pageSize), nil
}

// ExpireStale expires listings that have been active longer than the TTL and
// notifies their owners. The TTL counts from the last activation, so a
// resubmitted and approved listing gets a fresh period.
func (s *ListingService) ExpireStale(ctx context.Context) (dto.ExpirySummary, error) {
	now := s.now()
	docs, err := s.repo.ExpireActiveBefore(ctx, now.Add(-s.cfg.TTL), now)
	if err != nil {
		return dto.ExpirySummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire listings")
	}
	summary := dto.ExpirySummary{Expired: make([]string, 0, len(docs))}
	for _, doc := range docs {
		summary.Expired = append(summary.Expired, doc.ID)
		s.invalidate(ctx, doc.ID)
		listing := doc.ToListing()
		s.notifyOwner(ctx, &listing, "Anunțul tău a expirat", fmt.Sprintf("„%s” a expirat. Îl poți retrimite oricând.", listing.Title))
	}
	if len(docs) > 0 {
		s.logger.Info("listings expired", zap.Int("count", len(docs)))
	}
	return summary, nil
}

// UploadImage stores an image for a listing owned by actor.
func (s *ListingService) UploadImage(ctx context.Context, actor *models.JWTClaims, id, contentType string, size int64, r io.Reader) (*dto.ImageUploadResponse, error) {
	if _, err := s.loadOwned(ctx, id, actor); err != nil {
		return nil, err
	}
	ext, ok := s.imageExtension(contentType)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported image type")
	}
	if size > s.cfg.MaxImageBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "image too large")
	}
	key := fmt.Sprintf("listings/%s/%s%s", id, uuid.NewString(), ext)
	written, err := s.media.SaveStream(key, io.LimitReader(r, s.cfg.MaxImageBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store image")
	}
	if written > s.cfg.MaxImageBytes {
		_ = s.media.Delete(key)
		return nil, appErrors.Clone(appErrors.ErrValidation, "image too large")
	}
	if err := s.repo.AppendImage(ctx, id, key); err != nil {
		_ = s.media.Delete(key)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach image")
	}
	s.invalidate(ctx, id)

	resp := &dto.ImageUploadResponse{Key: key}
	if s.linker != nil {
		url, expiresAt, err := s.linker.URL(id, key)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign image url")
		}
		resp.URL, resp.ExpiresAt = url, expiresAt.UnixMilli()
	}
	return resp, nil
}

// OpenMedia resolves a signed media token to the stored file.
func (s *ListingService) OpenMedia(token string) (*os.File, string, error) {
	if s.linker == nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "media not found")
	}
	_, key, err := s.linker.Resolve(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid media token")
	}
	file, err := s.media.Open(key)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "media not found")
	}
	return file, key, nil
}

func (s *ListingService) imageExtension(contentType string) (string, bool) {
	mime := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	allowed := false
	for _, m := range s.cfg.AllowedMIMEs {
		if strings.EqualFold(m, mime) {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", false
	}
	switch mime {
	case "image/jpeg":
		return ".jpg", true
	case "image/png":
		return ".png", true
	case "image/webp":
		return ".webp", true
	default:
		return "", true
	}
}

func (s *ListingService) transition(ctx context.Context, id string, from, to models.ListingStatus, actor models.TransitionActor) error {
	if !models.CanTransition(from, to, actor) {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move listing from %q to %q", displayStatus(from), to))
	}
	if err := s.repo.UpdateStatus(ctx, id, normalizedStatus(from), to, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "listing changed or does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update listing status")
	}
	s.invalidate(ctx, id)
	s.logger.Info("listing status changed", zap.String("listing_id", id), zap.String("from", string(from)), zap.String("to", string(to)), zap.String("actor", string(actor)))
	return nil
}

func (s *ListingService) load(ctx context.Context, id string) (*models.ListingDocument, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}
	return doc, nil
}

func (s *ListingService) loadOwned(ctx context.Context, id string, actor *models.JWTClaims) (*models.ListingDocument, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	owner := ""
	if doc.OwnerID != nil {
		owner = *doc.OwnerID
	}
	if actor == nil || owner != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can change this listing")
	}
	return doc, nil
}

func (s *ListingService) reload(ctx context.Context, id string) (*models.Listing, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	listing := doc.ToListing()
	s.linker.Link(&listing)
	return &listing, nil
}

func (s *ListingService) invalidate(ctx context.Context, id string) {
	_ = s.cache.Invalidate(ctx, listingCacheKey(id))
}

func (s *ListingService) notifyOwner(ctx context.Context, listing *models.Listing, title, body string) {
	if s.notify == nil || listing.OwnerID == "" {
		return
	}
	listingID := listing.ID
	if err := s.notify.Notify(ctx, &models.Notification{
		UserID:    listing.OwnerID,
		Kind:      models.NotificationListingStatus,
		Title:     title,
		Body:      body,
		ListingID: &listingID,
	}); err != nil {
		s.logger.Warn("notify listing owner failed", zap.String("listing_id", listing.ID), zap.Error(err))
	}
}

func (s *ListingService) page(docs []models.ListingDocument, total, page, pageSize int) *dto.ListingPage {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	items := make([]models.Listing, 0, len(docs))
	for _, doc := range docs {
		listing := doc.ToListing()
		s.linker.Link(&listing)
		items = append(items, listing)
	}
	return &dto.ListingPage{Items: items, Pagination: models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}}
}

func canManage(ownerID string, viewer *models.JWTClaims) bool {
	if viewer == nil {
		return false
	}
	return viewer.Role == models.RoleAdmin || (ownerID != "" && viewer.UserID == ownerID)
}

// normalizedStatus maps the legacy missing status to active for storage checks.
func normalizedStatus(s models.ListingStatus) models.ListingStatus {
	if s == "" {
		return models.StatusActive
	}
	return s
}

func displayStatus(s models.ListingStatus) string {
	return string(normalizedStatus(s))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
