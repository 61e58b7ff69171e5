package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vindel10/vindel-api/internal/models"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
	"github.com/vindel10/vindel-api/pkg/export"
	"github.com/vindel10/vindel-api/pkg/jobs"
)

type visitRepository interface {
	Record(ctx context.Context, visit *models.Visit) error
	DailyCounts(ctx context.Context, listingID string, since time.Time) ([]models.DailyVisits, error)
}

type datasetRenderer interface {
	ContentType() string
	Render(data export.Dataset, title string) ([]byte, error)
}

const (
	defaultStatsDays = 30
	maxStatsDays     = 365
)

// ExportFile is a rendered visit report.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// VisitService records listing views in the background and reports on them.
type VisitService struct {
	repo      visitRepository
	listings  listingLookup
	queue     *jobs.Queue[models.Visit]
	renderers map[string]datasetRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewVisitService constructs a VisitService whose writes run on a worker queue.
func NewVisitService(repo visitRepository, listings listingLookup, queueCfg jobs.QueueConfig, logger *zap.Logger) *VisitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &VisitService{
		repo:     repo,
		listings: listings,
		renderers: map[string]datasetRenderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	if queueCfg.Logger == nil {
		queueCfg.Logger = logger
	}
	svc.queue = jobs.NewQueue("listing_visits", svc.record, queueCfg)
	return svc
}

// Start launches the visit writers.
func (s *VisitService) Start(ctx context.Context) { s.queue.Start(ctx) }

// Stop halts the visit writers.
func (s *VisitService) Stop() { s.queue.Stop() }

// QueueStats exposes the writer queue counters.
func (s *VisitService) QueueStats() jobs.Stats { return s.queue.Stats() }

// Track schedules a visit for recording without blocking the caller. Visits are
// dropped when the queue is saturated.
func (s *VisitService) Track(visit models.Visit) {
	if visit.ListingID == "" {
		return
	}
	if visit.VisitedAt.IsZero() {
		visit.VisitedAt = s.now()
	}
	if len(visit.UserAgent) > 256 {
		visit.UserAgent = visit.UserAgent[:256]
	}
	if len(visit.Referrer) > 512 {
		visit.Referrer = visit.Referrer[:512]
	}
	job := jobs.Job[models.Visit]{ID: uuid.NewString(), Payload: visit}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.logger.Debug("visit dropped", zap.String("listing_id", visit.ListingID), zap.Error(err))
	}
}

func (s *VisitService) record(ctx context.Context, job jobs.Job[models.Visit]) error {
	visit := job.Payload
	return s.repo.Record(ctx, &visit)
}

// Stats returns daily visit counts for the last days days, zero-filled.
func (s *VisitService) Stats(ctx context.Context, actor *models.JWTClaims, listingID string, days int) (*models.VisitStats, error) {
	doc, err := s.ownedListing(ctx, actor, listingID)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = defaultStatsDays
	}
	if days > maxStatsDays {
		days = maxStatsDays
	}
	today := s.now().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))
	rows, err := s.repo.DailyCounts(ctx, listingID, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load visit stats")
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Day.UTC().Format(time.DateOnly)] += row.Visits
	}
	daily := make([]models.DailyVisits, 0, days)
	for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
		daily = append(daily, models.DailyVisits{Day: d, Visits: counts[d.Format(time.DateOnly)]})
	}
	return &models.VisitStats{ListingID: listingID, ViewCount: doc.ViewCount, Days: days, Daily: daily}, nil
}

// Export renders the visit stats as csv or pdf.
func (s *VisitService) Export(ctx context.Context, actor *models.JWTClaims, listingID string, days int, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	stats, err := s.Stats(ctx, actor, listingID, days)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{Headers: []string{"day", "visits"}}
	for _, d := range stats.Daily {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"day":    d.Day.Format(time.DateOnly),
			"visits": strconv.Itoa(d.Visits),
		})
	}
	data, err := renderer.Render(dataset, fmt.Sprintf("Vizite anunț %s (%d zile)", listingID, stats.Days))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("visits-%s-%s.%s", listingID, s.now().Format("20060102"), format),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

func (s *VisitService) ownedListing(ctx context.Context, actor *models.JWTClaims, listingID string) (*models.ListingDocument, error) {
	doc, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}
	owner := ""
	if doc.OwnerID != nil {
		owner = *doc.OwnerID
	}
	if !canManage(owner, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can view listing stats")
	}
	return doc, nil
}
