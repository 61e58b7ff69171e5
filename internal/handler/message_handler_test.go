package handler

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/models"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
)

type messageServiceMock struct {
	sent []string
}

func (m *messageServiceMock) ContactSeller(_ context.Context, buyerID, listingID string, req dto.SendMessageRequest) (*models.Message, error) {
	if listingID == "own" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot message your own listing")
	}
	m.sent = append(m.sent, req.Body)
	return &models.Message{ID: "m1", ConversationID: "c1", SenderID: buyerID, Body: req.Body}, nil
}

func (m *messageServiceMock) Reply(_ context.Context, senderID, conversationID string, req dto.SendMessageRequest) (*models.Message, error) {
	if conversationID != "c1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
	}
	m.sent = append(m.sent, req.Body)
	return &models.Message{ID: "m2", ConversationID: conversationID, SenderID: senderID, Body: req.Body}, nil
}

func (m *messageServiceMock) Conversations(context.Context, string) ([]models.Conversation, error) {
	return []models.Conversation{{ID: "c1", ListingID: "l1"}}, nil
}

func (m *messageServiceMock) Messages(context.Context, string, string, int) ([]models.Message, error) {
	return []models.Message{{ID: "m1", Body: "Mai e disponibil?"}}, nil
}

func TestMessageHandlerContactAndReply(t *testing.T) {
	svc := &messageServiceMock{}
	h := NewMessageHandler(svc)
	buyer := &models.JWTClaims{UserID: "buyer"}

	c, w := testContext(http.MethodPost, "/listings/l1/messages", bytes.NewBufferString(`{"body":"Mai e disponibil?"}`), buyer)
	c.Params = gin.Params{{Key: "id", Value: "l1"}}
	h.ContactSeller(c)
	require.Equal(t, http.StatusCreated, w.Code)

	c, w = testContext(http.MethodPost, "/listings/own/messages", bytes.NewBufferString(`{"body":"salut"}`), buyer)
	c.Params = gin.Params{{Key: "id", Value: "own"}}
	h.ContactSeller(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = testContext(http.MethodPost, "/conversations/c1/messages", bytes.NewBufferString(`{"body":"Da"}`), buyer)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	h.Reply(c)
	require.Equal(t, http.StatusCreated, w.Code)

	c, w = testContext(http.MethodPost, "/conversations/c9/messages", bytes.NewBufferString(`{"body":"Da"}`), buyer)
	c.Params = gin.Params{{Key: "id", Value: "c9"}}
	h.Reply(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, []string{"Mai e disponibil?", "Da"}, svc.sent)
}

func TestMessageHandlerListings(t *testing.T) {
	h := NewMessageHandler(&messageServiceMock{})
	user := &models.JWTClaims{UserID: "seller"}

	c, w := testContext(http.MethodGet, "/conversations", nil, user)
	h.Conversations(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"listingId":"l1"`)

	c, w = testContext(http.MethodGet, "/conversations/c1/messages", nil, user)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	h.Messages(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Mai e disponibil?")

	c, w = testContext(http.MethodGet, "/conversations", nil, nil)
	h.Conversations(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
