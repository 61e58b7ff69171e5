package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vindel10/vindel-api/internal/models"
)

func TestAuditCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Action: models.AuditActionListingReject, Resource: models.AuditResourceListing}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListByListing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	now := time.Now().UTC()
	columns := []string{"id", "user_id", "action", "resource", "resource_id", "details", "ip_address", "user_agent", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE resource = $1 AND resource_id = $2 ORDER BY created_at DESC LIMIT $3")).
		WithArgs(models.AuditResourceListing, "l1", 50).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("a1", "admin-1", models.AuditActionListingApprove, models.AuditResourceListing, "l1", []byte(`{"status":200}`), "127.0.0.1", "curl", now))

	logs, err := repo.List(context.Background(), models.AuditFilter{Resource: models.AuditResourceListing, ResourceID: "l1"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionListingApprove, logs[0].Action)
	require.NotNil(t, logs[0].ResourceID)
	assert.Equal(t, "l1", *logs[0].ResourceID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs ORDER BY created_at DESC LIMIT $1")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(columns))
	logs, err = repo.List(context.Background(), models.AuditFilter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
