package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vindel10/vindel-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var listingColumnNames = []string{"id", "owner_id", "title", "description", "category", "location", "region", "status", "price", "currency", "images", "promoted_until", "view_count", "publication_date", "activated_at", "created_at", "updated_at"}

func TestListingFetchRecent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	published := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := time.Now()
	rows := sqlmock.NewRows(listingColumnNames).
		AddRow("l1", "u1", "Laptop Dell", "i7", "Electronice", "Cluj-Napoca", "Cluj", "Activo", "1500.00", "RON", "{}", nil, 3, published, published, now, now).
		AddRow("l2", nil, "Mașină Dacia", nil, nil, nil, nil, nil, nil, nil, "{}", nil, 0, published.Add(-time.Hour), nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM listings WHERE publication_date IS NOT NULL ORDER BY publication_date DESC LIMIT $1")).
		WithArgs(200).
		WillReturnRows(rows)

	docs, err := repo.FetchRecent(context.Background(), 200)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Electronice", *docs[0].Category)
	ms, ok := docs[0].PublicationMillis()
	require.True(t, ok)
	assert.Equal(t, published.UnixMilli(), ms)
	assert.Nil(t, docs[1].Status)
	assert.Nil(t, docs[1].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingFetchRecentError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	mock.ExpectQuery("FROM listings").WillReturnError(errors.New("connection refused"))
	_, err := repo.FetchRecent(context.Background(), 0)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	mock.ExpectQuery("FROM listings WHERE id = \\$1").WithArgs("missing").WillReturnRows(sqlmock.NewRows(listingColumnNames))
	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	mock.ExpectExec("INSERT INTO listings").WillReturnResult(sqlmock.NewResult(1, 1))
	title := "Bicicletă"
	doc := &models.ListingDocument{Title: &title}
	require.NoError(t, repo.Create(context.Background(), doc))
	assert.NotEmpty(t, doc.ID)
	assert.NotNil(t, doc.Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec("activated_at = CASE WHEN \\$2 = 'Activo' THEN \\$3 ELSE activated_at END").
		WithArgs("l1", "Activo", at, "En revisión").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), "l1", models.StatusUnderReview, models.StatusActive, at))

	mock.ExpectExec("UPDATE listings SET status = \\$2").
		WithArgs("l1", "Vendido", at, "Pausado").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateStatus(context.Background(), "l1", models.StatusPaused, models.StatusSold, at)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingListByOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM listings WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3")).
		WithArgs("u1", 20, 0).
		WillReturnRows(sqlmock.NewRows(listingColumnNames).
			AddRow("l1", "u1", "A", "", "Diverse", "", "", "Pausado", nil, nil, "{}", nil, 0, nil, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM listings WHERE owner_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	docs, total, err := repo.ListByOwner(context.Background(), models.ListingFilter{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, 1, total)
	assert.Nil(t, docs[0].PublicationDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingExpireActiveBefore(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	now := time.Now().UTC()
	cutoff := now.Add(-30 * 24 * time.Hour)
	mock.ExpectQuery("COALESCE\\(activated_at, publication_date\\) < \\$1").
		WithArgs(cutoff, now).
		WillReturnRows(sqlmock.NewRows(listingColumnNames).
			AddRow("l1", "u1", "A", "", "Diverse", "", "", "Expirado", nil, nil, "{}", nil, 0, cutoff.Add(-time.Hour), nil, now, now))

	docs, err := repo.ExpireActiveBefore(context.Background(), cutoff, now)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.StatusExpired, docs[0].StatusValue())
	assert.NoError(t, mock.ExpectationsWereMet())
}
