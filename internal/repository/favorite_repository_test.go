package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteListIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFavoriteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT listing_id FROM user_favorites WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"listing_id"}).AddRow("a").AddRow("b"))

	ids, err := repo.ListIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteReplace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFavoriteRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_favorites").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_favorites").WithArgs("u1", "a").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO user_favorites").WithArgs("u1", "b").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Replace(context.Background(), "u1", []string{"a", "b"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteReplaceRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFavoriteRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_favorites").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_favorites").WithArgs("u1", "a").WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	require.Error(t, repo.Replace(context.Background(), "u1", []string{"a"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryFavoriteStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryFavoriteStore()

	require.NoError(t, store.Add(ctx, "dev", "b"))
	require.NoError(t, store.Add(ctx, "dev", "a"))
	require.NoError(t, store.Add(ctx, "dev", "a"))
	ids, err := store.Members(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, store.Remove(ctx, "dev", "a"))
	require.NoError(t, store.Replace(ctx, "other", []string{"z"}))
	ids, _ = store.Members(ctx, "dev")
	assert.Equal(t, []string{"b"}, ids)
	ids, _ = store.Members(ctx, "other")
	assert.Equal(t, []string{"z"}, ids)
	ids, _ = store.Members(ctx, "unknown")
	assert.Empty(t, ids)
}
