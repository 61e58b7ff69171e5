package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vindel10/vindel-api/internal/dto"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
	"github.com/vindel10/vindel-api/pkg/response"
)

type searchService interface {
	Search(ctx context.Context, req dto.SearchRequest) (dto.SearchResponse, error)
}

// SearchHandler exposes the public listing search.
type SearchHandler struct {
	service searchService
}

// NewSearchHandler constructs a SearchHandler.
func NewSearchHandler(svc searchService) *SearchHandler {
	return &SearchHandler{service: svc}
}

// Search godoc
// @Summary Search listings
// @Description Filters active listings by free text, category and location with cursor pagination. The body is not wrapped in the response envelope.
// @Tags Listings
// @Produce json
// @Param q query string false "Free text matched against title and description"
// @Param categoria query string false "Exact category name"
// @Param ubicacion query string false "City, optionally followed by a comma and a region"
// @Param pageSize query int false "Page size (default 20)"
// @Param cursor query string false "Publication timestamp in epoch milliseconds of the last item of the previous page"
// @Success 200 {object} dto.SearchResponse
// @Failure 500 {object} dto.SearchResponse
// @Router /listings/search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	req := dto.SearchRequest{
		Query:    c.Query("q"),
		Category: c.Query("categoria"),
		Location: c.Query("ubicacion"),
		PageSize: intQuery(c, "pageSize", 0),
		Cursor:   c.Query("cursor"),
	}

	res, err := h.service.Search(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		status := http.StatusInternalServerError
		if appErr := appErrors.FromError(err); appErr != nil && appErr.Status >= http.StatusInternalServerError {
			status = appErr.Status
		}
		response.Raw(c, status, res)
		return
	}
	response.Raw(c, http.StatusOK, res)
}
