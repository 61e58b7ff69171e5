package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/middleware"
	"github.com/vindel10/vindel-api/internal/models"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
)

type listingServiceMock struct {
	created      dto.CreateListingRequest
	getResp      *models.Listing
	getErr       error
	statusReq    dto.ChangeStatusRequest
	uploadType   string
	uploadBody   []byte
	mediaPath    string
	pendingItems []models.Listing
	rejectReason string
}

func (m *listingServiceMock) Create(_ context.Context, ownerID string, req dto.CreateListingRequest) (*models.Listing, error) {
	m.created = req
	return &models.Listing{ID: "new", OwnerID: ownerID, Title: req.Title, Images: []string{}}, nil
}

func (m *listingServiceMock) Get(context.Context, string, *models.JWTClaims) (*models.Listing, error) {
	return m.getResp, m.getErr
}

func (m *listingServiceMock) Update(_ context.Context, _ *models.JWTClaims, id string, _ dto.UpdateListingRequest) (*models.Listing, error) {
	return &models.Listing{ID: id}, nil
}

func (m *listingServiceMock) ChangeStatus(_ context.Context, _ *models.JWTClaims, id string, req dto.ChangeStatusRequest) (*models.Listing, error) {
	m.statusReq = req
	return &models.Listing{ID: id, Status: models.StatusPaused}, nil
}

func (m *listingServiceMock) ListMine(context.Context, string, int, int) (*dto.ListingPage, error) {
	return &dto.ListingPage{Items: []models.Listing{{ID: "a"}}, Pagination: models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}}, nil
}

func (m *listingServiceMock) UploadImage(_ context.Context, _ *models.JWTClaims, id, contentType string, _ int64, r io.Reader) (*dto.ImageUploadResponse, error) {
	m.uploadType = contentType
	m.uploadBody, _ = io.ReadAll(r)
	return &dto.ImageUploadResponse{Key: "listings/" + id + "/x.png"}, nil
}

func (m *listingServiceMock) OpenMedia(token string) (*os.File, string, error) {
	if token != "ok" {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid media token")
	}
	f, err := os.Open(m.mediaPath)
	return f, "x.png", err
}

func (m *listingServiceMock) ListPending(context.Context, int, int) (*dto.ListingPage, error) {
	return &dto.ListingPage{Items: m.pendingItems, Pagination: models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.pendingItems)}}, nil
}

func (m *listingServiceMock) Approve(_ context.Context, id string) (*models.Listing, error) {
	return &models.Listing{ID: id, Status: models.StatusActive}, nil
}

func (m *listingServiceMock) Reject(_ context.Context, id string, req dto.RejectListingRequest) (*models.Listing, error) {
	m.rejectReason = req.Reason
	return &models.Listing{ID: id, Status: models.StatusRejected}, nil
}

func (m *listingServiceMock) ExpireStale(context.Context) (dto.ExpirySummary, error) {
	return dto.ExpirySummary{Expired: []string{"old"}}, nil
}

type visitRecorder struct {
	visits []models.Visit
}

func (v *visitRecorder) Track(visit models.Visit) { v.visits = append(v.visits, visit) }

func testContext(method, target string, body io.Reader, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, body)
	if body != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestListingHandlerCreate(t *testing.T) {
	svc := &listingServiceMock{}
	h := NewListingHandler(svc, nil)

	c, w := testContext(http.MethodPost, "/listings", bytes.NewBufferString(`{"title":"Bicicletă","category":"Electronice"}`), &models.JWTClaims{UserID: "u1"})
	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Bicicletă", svc.created.Title)

	c, w = testContext(http.MethodPost, "/listings", bytes.NewBufferString(`{}`), nil)
	h.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = testContext(http.MethodPost, "/listings", bytes.NewBufferString(`{"title":`), &models.JWTClaims{UserID: "u1"})
	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListingHandlerGetTracksVisits(t *testing.T) {
	visits := &visitRecorder{}
	svc := &listingServiceMock{getResp: &models.Listing{ID: "l1", OwnerID: "owner", Images: []string{}}}
	h := NewListingHandler(svc, visits)

	c, w := testContext(http.MethodGet, "/listings/l1", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "l1"}}
	c.Request.Header.Set("User-Agent", "tester")
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, _ = testContext(http.MethodGet, "/listings/l1", nil, &models.JWTClaims{UserID: "owner"})
	h.Get(c)

	require.Len(t, visits.visits, 1)
	assert.Equal(t, "tester", visits.visits[0].UserAgent)
	assert.Nil(t, visits.visits[0].VisitorID)
}

func TestListingHandlerGetNotFound(t *testing.T) {
	visits := &visitRecorder{}
	h := NewListingHandler(&listingServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "listing not found")}, visits)
	c, w := testContext(http.MethodGet, "/listings/x", nil, nil)
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, visits.visits)
}

func TestListingHandlerChangeStatusAndListMine(t *testing.T) {
	svc := &listingServiceMock{}
	h := NewListingHandler(svc, nil)

	c, w := testContext(http.MethodPost, "/listings/l1/status", bytes.NewBufferString(`{"action":"pause"}`), &models.JWTClaims{UserID: "u1"})
	c.Params = gin.Params{{Key: "id", Value: "l1"}}
	h.ChangeStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.ActionPause, svc.statusReq.Action)

	c, w = testContext(http.MethodGet, "/me/listings", nil, &models.JWTClaims{UserID: "u1"})
	h.ListMine(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_count":1`)
}

func TestListingHandlerUploadImage(t *testing.T) {
	svc := &listingServiceMock{}
	h := NewListingHandler(svc, nil)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="image"; filename="a.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	c, w := testContext(http.MethodPost, "/listings/l1/images", body, &models.JWTClaims{UserID: "u1"})
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())
	c.Params = gin.Params{{Key: "id", Value: "l1"}}
	h.UploadImage(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "image/png", svc.uploadType)
	assert.Equal(t, "png-bytes", string(svc.uploadBody))

	c, w = testContext(http.MethodPost, "/listings/l1/images", bytes.NewBufferString(`{}`), &models.JWTClaims{UserID: "u1"})
	h.UploadImage(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListingHandlerMedia(t *testing.T) {
	path := t.TempDir() + "/x.png"
	require.NoError(t, os.WriteFile(path, []byte("image"), 0o600))
	h := NewListingHandler(&listingServiceMock{mediaPath: path}, nil)

	c, w := testContext(http.MethodGet, "/media/ok", nil, nil)
	c.Params = gin.Params{{Key: "token", Value: "ok"}}
	h.Media(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image", w.Body.String())

	c, w = testContext(http.MethodGet, "/media/bad", nil, nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	h.Media(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminHandler(t *testing.T) {
	svc := &listingServiceMock{pendingItems: []models.Listing{{ID: "p1"}, {ID: "p2"}}}
	h := NewAdminHandler(svc)

	c, w := testContext(http.MethodGet, "/admin/listings/pending", nil, nil)
	h.Pending(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"p2"`)

	c, w = testContext(http.MethodPost, "/admin/listings/p1/approve", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "p1"}}
	h.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = testContext(http.MethodPost, "/admin/listings/p2/reject", bytes.NewBufferString(`{"reason":"duplicat"}`), nil)
	c.Params = gin.Params{{Key: "id", Value: "p2"}}
	h.Reject(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "duplicat", svc.rejectReason)

	c, w = testContext(http.MethodPost, "/admin/listings/p2/reject", nil, nil)
	h.Reject(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = testContext(http.MethodPost, "/admin/listings/expire", nil, nil)
	h.Expire(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"old"`)
}
