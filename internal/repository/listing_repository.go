package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vindel10/vindel-api/internal/models"
)

const listingColumns = `id, owner_id, title, description, category, location, region, status, price, currency, images, promoted_until, view_count, publication_date, activated_at, created_at, updated_at`

// ListingRepository provides database access for listings.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository creates a new ListingRepository.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// FetchRecent returns up to limit listings ordered by publication date, newest
// first. Listings that were never published have no position in that order and
// are skipped.
func (r *ListingRepository) FetchRecent(ctx context.Context, limit int) ([]models.ListingDocument, error) {
	if limit < 1 {
		limit = 1
	}
	query := `SELECT ` + listingColumns + ` FROM listings WHERE publication_date IS NOT NULL ORDER BY publication_date DESC LIMIT $1`
	var docs []models.ListingDocument
	if err := r.db.SelectContext(ctx, &docs, query, limit); err != nil {
		return nil, fmt.Errorf("fetch recent listings: %w", err)
	}
	return docs, nil
}

// FindByID returns a listing by identifier.
func (r *ListingRepository) FindByID(ctx context.Context, id string) (*models.ListingDocument, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	var doc models.ListingDocument
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find listing: %w", err)
	}
	return &doc, nil
}

// Create inserts a new listing.
func (r *ListingRepository) Create(ctx context.Context, doc *models.ListingDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if doc.Images == nil {
		doc.Images = []string{}
	}

	const query = `INSERT INTO listings (id, owner_id, title, description, category, location, region, status, price, currency, images, publication_date, activated_at, created_at, updated_at)
VALUES (:id, :owner_id, :title, :description, :category, :location, :region, :status, :price, :currency, :images, :publication_date, :activated_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

// Update stores the editable fields of a listing.
func (r *ListingRepository) Update(ctx context.Context, doc *models.ListingDocument) error {
	doc.UpdatedAt = time.Now().UTC()
	const query = `UPDATE listings SET title = :title, description = :description, category = :category, location = :location, region = :region, price = :price, currency = :currency, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, doc)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	return expectAffected(res, "update listing")
}

// UpdateStatus moves a listing from one status to another. The publication date
// is stamped the first time a listing becomes active and never rewritten;
// activated_at is stamped on every activation. It returns sql.ErrNoRows when the
// listing is missing or no longer in from.
func (r *ListingRepository) UpdateStatus(ctx context.Context, id string, from, to models.ListingStatus, at time.Time) error {
	const query = `UPDATE listings SET status = $2,
publication_date = CASE WHEN $2 = 'Activo' THEN COALESCE(publication_date, $3) ELSE publication_date END,
activated_at = CASE WHEN $2 = 'Activo' THEN $3 ELSE activated_at END,
updated_at = $3
WHERE id = $1 AND COALESCE(status, 'Activo') = $4`
	res, err := r.db.ExecContext(ctx, query, id, string(to), at, string(from))
	if err != nil {
		return fmt.Errorf("update listing status: %w", err)
	}
	return expectAffected(res, "update listing status")
}

// ListByOwner returns an owner's listings in every status, newest first.
func (r *ListingRepository) ListByOwner(ctx context.Context, filter models.ListingFilter) ([]models.ListingDocument, int, error) {
	page, size := normalizePage(filter.Page, filter.PageSize)
	query := `SELECT ` + listingColumns + ` FROM listings WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	var docs []models.ListingDocument
	if err := r.db.SelectContext(ctx, &docs, query, filter.OwnerID, size, (page-1)*size); err != nil {
		return nil, 0, fmt.Errorf("list owner listings: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM listings WHERE owner_id = $1`, filter.OwnerID); err != nil {
		return nil, 0, fmt.Errorf("count owner listings: %w", err)
	}
	return docs, total, nil
}

// ListByStatus returns listings in a status, oldest first, for moderation queues.
func (r *ListingRepository) ListByStatus(ctx context.Context, filter models.ListingFilter) ([]models.ListingDocument, int, error) {
	page, size := normalizePage(filter.Page, filter.PageSize)
	query := `SELECT ` + listingColumns + ` FROM listings WHERE status = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	var docs []models.ListingDocument
	if err := r.db.SelectContext(ctx, &docs, query, string(filter.Status), size, (page-1)*size); err != nil {
		return nil, 0, fmt.Errorf("list listings by status: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM listings WHERE status = $1`, string(filter.Status)); err != nil {
		return nil, 0, fmt.Errorf("count listings by status: %w", err)
	}
	return docs, total, nil
}

// ExpireActiveBefore marks listings active since before cutoff as expired and
// returns them. Rows activated before activated_at existed fall back to their
// publication date.
func (r *ListingRepository) ExpireActiveBefore(ctx context.Context, cutoff, now time.Time) ([]models.ListingDocument, error) {
	query := `UPDATE listings SET status = 'Expirado', updated_at = $2
WHERE COALESCE(status, 'Activo') = 'Activo' AND COALESCE(activated_at, publication_date) < $1
RETURNING ` + listingColumns
	var docs []models.ListingDocument
	if err := r.db.SelectContext(ctx, &docs, query, cutoff, now); err != nil {
		return nil, fmt.Errorf("expire listings: %w", err)
	}
	return docs, nil
}

// AppendImage adds an image reference to a listing.
func (r *ListingRepository) AppendImage(ctx context.Context, id, ref string) error {
	const query = `UPDATE listings SET images = array_append(images, $2), updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, ref, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append listing image: %w", err)
	}
	return expectAffected(res, "append listing image")
}

func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
