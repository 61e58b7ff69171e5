package dto

import "github.com/vindel10/vindel-api/internal/models"

// SearchRequest captures GET /listings/search query parameters. Empty strings
// mean the filter was not supplied.
type SearchRequest struct {
	Query    string `form:"q"`
	Category string `form:"categoria"`
	Location string `form:"ubicacion"`
	PageSize int    `form:"pageSize"`
	Cursor   string `form:"cursor"`
}

// SearchResponse is the page returned by the search pipeline.
type SearchResponse struct {
	Results    []models.Listing `json:"results"`
	NextCursor *int64           `json:"nextCursor"`
	Total      int              `json:"total"`
	// TotalCapped is true when the fetched batch reached the fetch limit, in
	// which case Total may undercount and later pages may be missing.
	TotalCapped bool `json:"totalCapped"`
}

// EmptySearchResponse is the degraded page returned when the store fails.
func EmptySearchResponse() SearchResponse {
	return SearchResponse{Results: []models.Listing{}}
}
