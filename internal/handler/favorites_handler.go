package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/models"
	"github.com/vindel10/vindel-api/pkg/response"
)

type favoritesService interface {
	Sync(ctx context.Context, deviceID, userID string) (*dto.FavoritesSyncResponse, error)
	Get(ctx context.Context, deviceID, userID string) (*models.FavoritesState, error)
	Add(ctx context.Context, deviceID, userID, listingID string) error
	Remove(ctx context.Context, deviceID, userID, listingID string) error
}

// FavoritesHandler serves device and account favorites.
type FavoritesHandler struct {
	service favoritesService
}

// NewFavoritesHandler constructs a FavoritesHandler.
func NewFavoritesHandler(svc favoritesService) *FavoritesHandler {
	return &FavoritesHandler{service: svc}
}

// Get godoc
// @Summary Current favorites
// @Tags Favorites
// @Produce json
// @Param X-Device-ID header string false "Device identifier"
// @Success 200 {object} response.Envelope
// @Router /favorites [get]
func (h *FavoritesHandler) Get(c *gin.Context) {
	state, err := h.service.Get(c.Request.Context(), deviceID(c), userIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Sync godoc
// @Summary Merge device favorites into the account
// @Tags Favorites
// @Produce json
// @Security BearerAuth
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} response.Envelope
// @Router /favorites/sync [post]
func (h *FavoritesHandler) Sync(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	result, err := h.service.Sync(c.Request.Context(), deviceID(c), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Add godoc
// @Summary Add a favorite
// @Tags Favorites
// @Param X-Device-ID header string false "Device identifier"
// @Param listingId path string true "Listing ID"
// @Success 204
// @Router /favorites/{listingId} [put]
func (h *FavoritesHandler) Add(c *gin.Context) {
	if err := h.service.Add(c.Request.Context(), deviceID(c), userIDFromContext(c), c.Param("listingId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Remove godoc
// @Summary Remove a favorite
// @Tags Favorites
// @Param X-Device-ID header string false "Device identifier"
// @Param listingId path string true "Listing ID"
// @Success 204
// @Router /favorites/{listingId} [delete]
func (h *FavoritesHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), deviceID(c), userIDFromContext(c), c.Param("listingId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
