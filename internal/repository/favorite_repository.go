package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// FavoriteRepository stores the favorites attached to a user account.
type FavoriteRepository struct {
	db *sqlx.DB
}

// NewFavoriteRepository constructs a FavoriteRepository.
func NewFavoriteRepository(db *sqlx.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// ListIDs returns the listing ids a user marked as favorite.
func (r *FavoriteRepository) ListIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT listing_id FROM user_favorites WHERE user_id = $1 ORDER BY listing_id`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return ids, nil
}

// Add marks a listing as favorite. Adding twice is a no-op.
func (r *FavoriteRepository) Add(ctx context.Context, userID, listingID string) error {
	const query = `INSERT INTO user_favorites (user_id, listing_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, listingID); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// Remove unmarks a listing.
func (r *FavoriteRepository) Remove(ctx context.Context, userID, listingID string) error {
	const query = `DELETE FROM user_favorites WHERE user_id = $1 AND listing_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, listingID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// Replace overwrites the user's favorites with ids in one transaction.
func (r *FavoriteRepository) Replace(ctx context.Context, userID string, ids []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin favorites tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_favorites WHERE user_id = $1`, userID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear favorites: %w", err)
	}
	const insert = `INSERT INTO user_favorites (user_id, listing_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, insert, userID, id); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert favorite: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit favorites tx: %w", err)
	}
	return nil
}
