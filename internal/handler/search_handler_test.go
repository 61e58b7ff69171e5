package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/models"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
)

type searchServiceMock struct {
	last dto.SearchRequest
	resp dto.SearchResponse
	err  error
}

func (m *searchServiceMock) Search(_ context.Context, req dto.SearchRequest) (dto.SearchResponse, error) {
	m.last = req
	return m.resp, m.err
}

func runSearch(t *testing.T, svc *searchServiceMock, target string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	NewSearchHandler(svc).Search(c)
	return w
}

func TestSearchHandlerPassesQuery(t *testing.T) {
	published := int64(1700000000000)
	svc := &searchServiceMock{resp: dto.SearchResponse{
		Results:    []models.Listing{{ID: "a", Images: []string{}, PublicationDate: &published}},
		NextCursor: &published,
		Total:      5,
	}}

	w := runSearch(t, svc, "/listings/search?q=bici&categoria=Electronice&ubicacion=Cluj%2C%20Cluj&pageSize=2&cursor=123")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.SearchRequest{Query: "bici", Category: "Electronice", Location: "Cluj, Cluj", PageSize: 2, Cursor: "123"}, svc.last)
	assert.Contains(t, w.Body.String(), `"nextCursor":1700000000000`)
	assert.Contains(t, w.Body.String(), `"total":5`)
	assert.NotContains(t, w.Body.String(), `"data"`)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestSearchHandlerIgnoresBadPageSize(t *testing.T) {
	svc := &searchServiceMock{resp: dto.EmptySearchResponse()}
	w := runSearch(t, svc, "/listings/search?pageSize=lots")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, svc.last.PageSize)
}

func TestSearchHandlerDegradedStore(t *testing.T) {
	svc := &searchServiceMock{
		resp: dto.EmptySearchResponse(),
		err:  appErrors.Wrap(errors.New("db down"), appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "listing store unavailable"),
	}
	w := runSearch(t, svc, "/listings/search?q=x")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"results":[],"nextCursor":null,"total":0,"totalCapped":false}`, w.Body.String())
}
