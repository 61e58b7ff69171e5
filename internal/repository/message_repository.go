package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vindel10/vindel-api/internal/models"
)

// MessageRepository stores buyer/seller conversations.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs a MessageRepository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// GetOrCreateConversation returns the conversation between a buyer and the
// seller of a listing, creating it on first contact.
func (r *MessageRepository) GetOrCreateConversation(ctx context.Context, listingID, buyerID, sellerID string) (*models.Conversation, error) {
	const query = `INSERT INTO conversations (id, listing_id, buyer_id, seller_id, last_message_at, created_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (listing_id, buyer_id) DO UPDATE SET listing_id = EXCLUDED.listing_id
RETURNING id, listing_id, buyer_id, seller_id, last_message_at, created_at`
	var conv models.Conversation
	if err := r.db.GetContext(ctx, &conv, query, uuid.NewString(), listingID, buyerID, sellerID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("get or create conversation: %w", err)
	}
	return &conv, nil
}

// FindConversation returns a conversation by id.
func (r *MessageRepository) FindConversation(ctx context.Context, id string) (*models.Conversation, error) {
	const query = `SELECT c.id, c.listing_id, l.title AS listing_title, c.buyer_id, c.seller_id, c.last_message_at, c.created_at
FROM conversations c LEFT JOIN listings l ON l.id = c.listing_id WHERE c.id = $1`
	var conv models.Conversation
	if err := r.db.GetContext(ctx, &conv, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return &conv, nil
}

// ListConversations returns a user's conversations, most recent activity first.
func (r *MessageRepository) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	const query = `SELECT c.id, c.listing_id, l.title AS listing_title, c.buyer_id, c.seller_id, c.last_message_at, c.created_at
FROM conversations c LEFT JOIN listings l ON l.id = c.listing_id
WHERE c.buyer_id = $1 OR c.seller_id = $1
ORDER BY c.last_message_at DESC`
	convs := []models.Conversation{}
	if err := r.db.SelectContext(ctx, &convs, query, userID); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// AddMessage appends a message and bumps the conversation activity time.
func (r *MessageRepository) AddMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin message tx: %w", err)
	}
	const insert = `INSERT INTO messages (id, conversation_id, sender_id, body, created_at) VALUES (:id, :conversation_id, :sender_id, :body, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, msg); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET last_message_at = $2 WHERE id = $1`, msg.ConversationID, msg.CreatedAt); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("touch conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit message tx: %w", err)
	}
	return nil
}

// ListMessages returns the latest limit messages of a conversation in
// chronological order.
func (r *MessageRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const query = `SELECT id, conversation_id, sender_id, body, created_at FROM (
SELECT id, conversation_id, sender_id, body, created_at FROM messages WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT $2
) recent ORDER BY created_at ASC`
	msgs := []models.Message{}
	if err := r.db.SelectContext(ctx, &msgs, query, conversationID, limit); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}
