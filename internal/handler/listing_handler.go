package handler

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/models"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
	"github.com/vindel10/vindel-api/pkg/response"
)

type listingService interface {
	Create(ctx context.Context, ownerID string, req dto.CreateListingRequest) (*models.Listing, error)
	Get(ctx context.Context, id string, viewer *models.JWTClaims) (*models.Listing, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateListingRequest) (*models.Listing, error)
	ChangeStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.ChangeStatusRequest) (*models.Listing, error)
	ListMine(ctx context.Context, ownerID string, page, pageSize int) (*dto.ListingPage, error)
	UploadImage(ctx context.Context, actor *models.JWTClaims, id, contentType string, size int64, r io.Reader) (*dto.ImageUploadResponse, error)
	OpenMedia(token string) (*os.File, string, error)
}

type visitTracker interface {
	Track(visit models.Visit)
}

// ListingHandler exposes listing CRUD and lifecycle endpoints.
type ListingHandler struct {
	service listingService
	visits  visitTracker
}

// NewListingHandler constructs a ListingHandler. visits may be nil.
func NewListingHandler(svc listingService, visits visitTracker) *ListingHandler {
	return &ListingHandler{service: svc, visits: visits}
}

// Create godoc
// @Summary Publish a listing
// @Tags Listings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateListingRequest true "Listing"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /listings [post]
func (h *ListingHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid listing payload"))
		return
	}
	listing, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, listing)
}

// Get godoc
// @Summary Listing detail
// @Tags Listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /listings/{id} [get]
func (h *ListingHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	listing, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.visits != nil && (claims == nil || claims.UserID != listing.OwnerID) {
		visit := models.Visit{ListingID: listing.ID, UserAgent: c.GetHeader("User-Agent"), Referrer: c.GetHeader("Referer")}
		if claims != nil {
			visitor := claims.UserID
			visit.VisitorID = &visitor
		}
		h.visits.Track(visit)
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// Update godoc
// @Summary Edit a listing
// @Tags Listings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param payload body dto.UpdateListingRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /listings/{id} [put]
func (h *ListingHandler) Update(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid listing payload"))
		return
	}
	listing, err := h.service.Update(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// ChangeStatus godoc
// @Summary Pause, resume, sell or resubmit a listing
// @Tags Listings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param payload body dto.ChangeStatusRequest true "Action"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /listings/{id}/status [post]
func (h *ListingHandler) ChangeStatus(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid status payload"))
		return
	}
	listing, err := h.service.ChangeStatus(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// ListMine godoc
// @Summary Listings of the current user
// @Tags Listings
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /me/listings [get]
func (h *ListingHandler) ListMine(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	result, err := h.service.ListMine(c.Request.Context(), claims.UserID, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Items, &result.Pagination)
}

// UploadImage godoc
// @Summary Attach an image to a listing
// @Tags Listings
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param image formData file true "Image file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /listings/{id}/images [post]
func (h *ListingHandler) UploadImage(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	header, err := c.FormFile("image")
	if err != nil {
		response.Error(c, bindError(err, "image file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	result, err := h.service.UploadImage(c.Request.Context(), claims, c.Param("id"), header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Media godoc
// @Summary Serve a listing image through a signed link
// @Tags Listings
// @Produce octet-stream
// @Param token path string true "Signed media token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /media/{token} [get]
func (h *ListingHandler) Media(c *gin.Context) {
	file, key, err := h.service.OpenMedia(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat media"))
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	http.ServeContent(c.Writer, c.Request, key, info.ModTime(), file)
}
