package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vindel10/vindel-api/internal/models"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
	"github.com/vindel10/vindel-api/pkg/response"
)

type auditLogReader interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

// AuditHandler exposes the moderation audit trail.
type AuditHandler struct {
	logs auditLogReader
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(logs auditLogReader) *AuditHandler {
	return &AuditHandler{logs: logs}
}

// List godoc
// @Summary Moderation audit trail
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param listingId query string false "Listing identifier"
// @Param limit query int false "Maximum entries"
// @Success 200 {object} response.Envelope
// @Router /admin/audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	logs, err := h.logs.List(c.Request.Context(), models.AuditFilter{
		Resource:   models.AuditResourceListing,
		ResourceID: strings.TrimSpace(c.Query("listingId")),
		Limit:      intQuery(c, "limit", 50),
	})
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail"))
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
