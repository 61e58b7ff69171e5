package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vindel10/vindel-api/internal/models"
	"github.com/vindel10/vindel-api/internal/service"
	"github.com/vindel10/vindel-api/pkg/response"
)

type visitStatsService interface {
	Stats(ctx context.Context, actor *models.JWTClaims, listingID string, days int) (*models.VisitStats, error)
	Export(ctx context.Context, actor *models.JWTClaims, listingID string, days int, format string) (*service.ExportFile, error)
}

// VisitHandler exposes listing traffic statistics to owners.
type VisitHandler struct {
	service visitStatsService
}

// NewVisitHandler constructs a VisitHandler.
func NewVisitHandler(svc visitStatsService) *VisitHandler {
	return &VisitHandler{service: svc}
}

// Stats godoc
// @Summary Daily visits of a listing
// @Tags Listings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param days query int false "Window in days"
// @Success 200 {object} response.Envelope
// @Router /listings/{id}/stats [get]
func (h *VisitHandler) Stats(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), claims, c.Param("id"), intQuery(c, "days", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Download daily visits as CSV or PDF
// @Tags Listings
// @Produce text/csv,application/pdf
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param days query int false "Window in days"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /listings/{id}/stats/export [get]
func (h *VisitHandler) Export(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	file, err := h.service.Export(c.Request.Context(), claims, c.Param("id"), intQuery(c, "days", 0), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
