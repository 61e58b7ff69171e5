package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vindel10/vindel-api/internal/models"
)

// VisitRepository stores listing visits.
type VisitRepository struct {
	db *sqlx.DB
}

// NewVisitRepository constructs a VisitRepository.
func NewVisitRepository(db *sqlx.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

// Record stores a visit and increments the listing view counter.
func (r *VisitRepository) Record(ctx context.Context, visit *models.Visit) error {
	if visit.ID == "" {
		visit.ID = uuid.NewString()
	}
	if visit.VisitedAt.IsZero() {
		visit.VisitedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin visit tx: %w", err)
	}
	const insert = `INSERT INTO listing_visits (id, listing_id, visitor_id, user_agent, referrer, visited_at) VALUES (:id, :listing_id, :visitor_id, :user_agent, :referrer, :visited_at)`
	if _, err := tx.NamedExecContext(ctx, insert, visit); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert visit: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE listings SET view_count = view_count + 1 WHERE id = $1`, visit.ListingID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("increment view count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit visit tx: %w", err)
	}
	return nil
}

// DailyCounts aggregates visits per UTC day since the given instant.
func (r *VisitRepository) DailyCounts(ctx context.Context, listingID string, since time.Time) ([]models.DailyVisits, error) {
	const query = `SELECT date_trunc('day', visited_at AT TIME ZONE 'UTC') AS day, COUNT(*) AS visits
FROM listing_visits WHERE listing_id = $1 AND visited_at >= $2
GROUP BY day ORDER BY day`
	rows := []models.DailyVisits{}
	if err := r.db.SelectContext(ctx, &rows, query, listingID, since); err != nil {
		return nil, fmt.Errorf("daily visit counts: %w", err)
	}
	return rows, nil
}
