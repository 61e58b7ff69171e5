package models

import "time"

// Conversation links a buyer and the seller of a listing.
type Conversation struct {
	ID            string    `db:"id" json:"id"`
	ListingID     string    `db:"listing_id" json:"listingId"`
	ListingTitle  *string   `db:"listing_title" json:"listingTitle,omitempty"`
	BuyerID       string    `db:"buyer_id" json:"buyerId"`
	SellerID      string    `db:"seller_id" json:"sellerId"`
	LastMessageAt time.Time `db:"last_message_at" json:"lastMessageAt"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// HasParticipant reports whether userID is the buyer or the seller.
func (c Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.BuyerID == userID || c.SellerID == userID)
}

// Counterpart returns the other participant.
func (c Conversation) Counterpart(userID string) string {
	if c.BuyerID == userID {
		return c.SellerID
	}
	return c.BuyerID
}

// Message is a single entry in a conversation.
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversationId"`
	SenderID       string    `db:"sender_id" json:"senderId"`
	Body           string    `db:"body" json:"body"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
