package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/models"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
)

type messageRepository interface {
	GetOrCreateConversation(ctx context.Context, listingID, buyerID, sellerID string) (*models.Conversation, error)
	FindConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	AddMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
}

type listingLookup interface {
	FindByID(ctx context.Context, id string) (*models.ListingDocument, error)
}

// MessageService handles buyer to seller conversations.
type MessageService struct {
	repo      messageRepository
	listings  listingLookup
	notify    notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMessageService constructs a MessageService.
func NewMessageService(repo messageRepository, listings listingLookup, notify notifier, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &MessageService{repo: repo, listings: listings, notify: notify, validator: validate, logger: logger}
}

// ContactSeller sends the first (or a further) message from a buyer about a listing.
func (s *MessageService) ContactSeller(ctx context.Context, buyerID, listingID string, req dto.SendMessageRequest) (*models.Message, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	doc, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}
	listing := doc.ToListing()
	if listing.Status != "" && listing.Status != models.StatusActive && listing.Status != models.StatusPaused {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
	}
	if listing.OwnerID == "" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "listing has no seller to contact")
	}
	if listing.OwnerID == buyerID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "you cannot message your own listing")
	}

	conv, err := s.repo.GetOrCreateConversation(ctx, listing.ID, buyerID, listing.OwnerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open conversation")
	}
	if conv.ListingTitle == nil && listing.Title != "" {
		title := listing.Title
		conv.ListingTitle = &title
	}
	return s.post(ctx, conv, buyerID, req.Body)
}

// Reply appends a message to a conversation the sender takes part in.
func (s *MessageService) Reply(ctx context.Context, senderID, conversationID string, req dto.SendMessageRequest) (*models.Message, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	conv, err := s.participantConversation(ctx, senderID, conversationID)
	if err != nil {
		return nil, err
	}
	return s.post(ctx, conv, senderID, req.Body)
}

// Conversations lists the conversations of userID.
func (s *MessageService) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	convs, err := s.repo.ListConversations(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conversations")
	}
	return convs, nil
}

// Messages returns the latest messages of a conversation.
func (s *MessageService) Messages(ctx context.Context, userID, conversationID string, limit int) ([]models.Message, error) {
	if _, err := s.participantConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, conversationID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	return msgs, nil
}

func (s *MessageService) participantConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	conv, err := s.repo.FindConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversation")
	}
	if !conv.HasParticipant(userID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this conversation")
	}
	return conv, nil
}

func (s *MessageService) post(ctx context.Context, conv *models.Conversation, senderID, body string) (*models.Message, error) {
	msg := &models.Message{ConversationID: conv.ID, SenderID: senderID, Body: strings.TrimSpace(body)}
	if err := s.repo.AddMessage(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}
	if s.notify != nil {
		title := "Mesaj nou"
		if conv.ListingTitle != nil && *conv.ListingTitle != "" {
			title = "Mesaj nou despre „" + *conv.ListingTitle + "”"
		}
		listingID := conv.ListingID
		if err := s.notify.Notify(ctx, &models.Notification{
			UserID:    conv.Counterpart(senderID),
			Kind:      models.NotificationMessage,
			Title:     title,
			Body:      preview(msg.Body, 140),
			ListingID: &listingID,
		}); err != nil {
			s.logger.Warn("notify message recipient failed", zap.String("conversation_id", conv.ID), zap.Error(err))
		}
	}
	return msg, nil
}

func (s *MessageService) validate(req dto.SendMessageRequest) error {
	if strings.TrimSpace(req.Body) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "message body is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message")
	}
	return nil
}

func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
