package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/models"
	"github.com/vindel10/vindel-api/pkg/response"
)

type moderationService interface {
	ListPending(ctx context.Context, page, pageSize int) (*dto.ListingPage, error)
	Approve(ctx context.Context, id string) (*models.Listing, error)
	Reject(ctx context.Context, id string, req dto.RejectListingRequest) (*models.Listing, error)
	ExpireStale(ctx context.Context) (dto.ExpirySummary, error)
}

// AdminHandler exposes moderation endpoints.
type AdminHandler struct {
	service moderationService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(svc moderationService) *AdminHandler {
	return &AdminHandler{service: svc}
}

// Pending godoc
// @Summary Listings waiting for moderation
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/listings/pending [get]
func (h *AdminHandler) Pending(c *gin.Context) {
	page, size := pageParams(c)
	result, err := h.service.ListPending(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Items, &result.Pagination)
}

// Approve godoc
// @Summary Approve a listing
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/listings/{id}/approve [post]
func (h *AdminHandler) Approve(c *gin.Context) {
	listing, err := h.service.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// Reject godoc
// @Summary Reject a listing
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param payload body dto.RejectListingRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/listings/{id}/reject [post]
func (h *AdminHandler) Reject(c *gin.Context) {
	var req dto.RejectListingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, bindError(err, "invalid rejection payload"))
			return
		}
	}
	listing, err := h.service.Reject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// Expire godoc
// @Summary Run the listing expiry sweep now
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/listings/expire [post]
func (h *AdminHandler) Expire(c *gin.Context) {
	summary, err := h.service.ExpireStale(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
