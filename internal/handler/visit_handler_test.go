package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vindel10/vindel-api/internal/models"
	"github.com/vindel10/vindel-api/internal/service"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
)

type visitStatsMock struct {
	days   int
	format string
}

func (m *visitStatsMock) Stats(_ context.Context, _ *models.JWTClaims, listingID string, days int) (*models.VisitStats, error) {
	m.days = days
	return &models.VisitStats{ListingID: listingID, ViewCount: 7, Days: 30, Daily: []models.DailyVisits{}}, nil
}

func (m *visitStatsMock) Export(_ context.Context, _ *models.JWTClaims, listingID string, _ int, format string) (*service.ExportFile, error) {
	m.format = format
	if format != "csv" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	return &service.ExportFile{Filename: "visits-" + listingID + "-20260101.csv", ContentType: "text/csv", Data: []byte("day,visits\n")}, nil
}

func TestVisitHandlerStats(t *testing.T) {
	svc := &visitStatsMock{}
	h := NewVisitHandler(svc)

	c, w := testContext(http.MethodGet, "/listings/l1/stats?days=7", nil, &models.JWTClaims{UserID: "owner"})
	c.Params = gin.Params{{Key: "id", Value: "l1"}}
	h.Stats(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, svc.days)
	assert.Contains(t, w.Body.String(), `"viewCount":7`)
}

func TestVisitHandlerExport(t *testing.T) {
	svc := &visitStatsMock{}
	h := NewVisitHandler(svc)
	owner := &models.JWTClaims{UserID: "owner"}

	c, w := testContext(http.MethodGet, "/listings/l1/stats/export", nil, owner)
	c.Params = gin.Params{{Key: "id", Value: "l1"}}
	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.format)
	assert.Equal(t, `attachment; filename="visits-l1-20260101.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "day,visits\n", w.Body.String())

	c, w = testContext(http.MethodGet, "/listings/l1/stats/export?format=xls", nil, owner)
	c.Params = gin.Params{{Key: "id", Value: "l1"}}
	h.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
