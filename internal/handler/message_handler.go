package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/models"
	"github.com/vindel10/vindel-api/pkg/response"
)

type messageService interface {
	ContactSeller(ctx context.Context, buyerID, listingID string, req dto.SendMessageRequest) (*models.Message, error)
	Reply(ctx context.Context, senderID, conversationID string, req dto.SendMessageRequest) (*models.Message, error)
	Conversations(ctx context.Context, userID string) ([]models.Conversation, error)
	Messages(ctx context.Context, userID, conversationID string, limit int) ([]models.Message, error)
}

// MessageHandler serves buyer/seller conversations.
type MessageHandler struct {
	service messageService
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(svc messageService) *MessageHandler {
	return &MessageHandler{service: svc}
}

// ContactSeller godoc
// @Summary Send a message about a listing
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param payload body dto.SendMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Router /listings/{id}/messages [post]
func (h *MessageHandler) ContactSeller(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid message payload"))
		return
	}
	msg, err := h.service.ContactSeller(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// Reply godoc
// @Summary Reply in a conversation
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param payload body dto.SendMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Router /conversations/{id}/messages [post]
func (h *MessageHandler) Reply(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid message payload"))
		return
	}
	msg, err := h.service.Reply(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// Conversations godoc
// @Summary Conversations of the current user
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /conversations [get]
func (h *MessageHandler) Conversations(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	items, err := h.service.Conversations(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Messages godoc
// @Summary Messages of a conversation
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param limit query int false "Maximum items"
// @Success 200 {object} response.Envelope
// @Router /conversations/{id}/messages [get]
func (h *MessageHandler) Messages(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	items, err := h.service.Messages(c.Request.Context(), claims.UserID, c.Param("id"), intQuery(c, "limit", 100))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
