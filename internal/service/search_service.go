package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/models"
	"github.com/vindel10/vindel-api/pkg/config"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
)

type listingBatchReader interface {
	FetchRecent(ctx context.Context, limit int) ([]models.ListingDocument, error)
}

// SearchService runs the listing search pipeline: an over-fetched batch ordered
// by publication date is filtered in memory and paginated with a timestamp
// cursor. Every call is independent; nothing is cached between requests.
type SearchService struct {
	store   listingBatchReader
	cfg     config.SearchConfig
	metrics *MetricsService
	media   *MediaLinker
	logger  *zap.Logger
}

// NewSearchService constructs a SearchService.
func NewSearchService(store listingBatchReader, cfg config.SearchConfig, metrics *MetricsService, logger *zap.Logger) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	return &SearchService{store: store, cfg: cfg, metrics: metrics, logger: logger}
}

// WithMediaLinker makes results carry signed image URLs instead of storage keys.
func (s *SearchService) WithMediaLinker(m *MediaLinker) *SearchService {
	s.media = m
	return s
}

// PageSize resolves the effective page size for a request.
func (s *SearchService) PageSize(requested int) int {
	switch {
	case requested <= 0:
		return s.cfg.DefaultPageSize
	case requested > s.cfg.MaxPageSize:
		return s.cfg.MaxPageSize
	default:
		return requested
	}
}

// Search returns one page of matching listings. The response is always well
// formed; when the store cannot be read it is the empty page and the returned
// error carries ErrStoreUnavailable.
func (s *SearchService) Search(ctx context.Context, req dto.SearchRequest) (dto.SearchResponse, error) {
	pageSize := s.PageSize(req.PageSize)
	fetchLimit := s.cfg.FetchLimit(pageSize)

	start := time.Now()
	batch, err := s.store.FetchRecent(ctx, fetchLimit)
	s.metrics.ObserveDBQuery("listing_search_fetch", time.Since(start))
	if err != nil {
		s.logger.Error("listing search fetch failed", zap.Int("fetch_limit", fetchLimit), zap.Error(err))
		s.metrics.ObserveSearch(SearchOutcomeDegraded, 0, 0, false)
		return dto.EmptySearchResponse(), appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "listing store unavailable")
	}

	filtered := compileFilter(ListingQuery{
		FreeText: req.Query,
		Category: req.Category,
		Location: req.Location,
	}).apply(batch)

	var cursor *int64
	malformed := false
	if req.Cursor != "" {
		if v, ok := parseCursor(req.Cursor); ok {
			cursor = &v
		} else {
			malformed = true
			s.logger.Warn("malformed search cursor", zap.String("cursor", req.Cursor))
		}
	}

	var (
		page []models.ListingDocument
		next *int64
	)
	if !malformed {
		page, next = paginate(filtered, pageSize, cursor)
	}

	capped := len(batch) >= fetchLimit
	s.metrics.ObserveSearch(SearchOutcomeOK, len(batch), len(filtered), capped)

	results := make([]models.Listing, 0, len(page))
	for _, doc := range page {
		listing := doc.ToListing()
		s.media.Link(&listing)
		results = append(results, listing)
	}
	return dto.SearchResponse{
		Results:     results,
		NextCursor:  next,
		Total:       len(filtered),
		TotalCapped: capped,
	}, nil
}
