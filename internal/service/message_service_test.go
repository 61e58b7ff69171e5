package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/models"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
)

type fakeMessageRepo struct {
	convs    map[string]*models.Conversation
	messages map[string][]models.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{convs: map[string]*models.Conversation{}, messages: map[string][]models.Message{}}
}

func (f *fakeMessageRepo) GetOrCreateConversation(_ context.Context, listingID, buyerID, sellerID string) (*models.Conversation, error) {
	for _, c := range f.convs {
		if c.ListingID == listingID && c.BuyerID == buyerID {
			clone := *c
			return &clone, nil
		}
	}
	conv := &models.Conversation{ID: fmt.Sprintf("c%d", len(f.convs)+1), ListingID: listingID, BuyerID: buyerID, SellerID: sellerID}
	f.convs[conv.ID] = conv
	clone := *conv
	return &clone, nil
}

func (f *fakeMessageRepo) FindConversation(_ context.Context, id string) (*models.Conversation, error) {
	conv, ok := f.convs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *conv
	return &clone, nil
}

func (f *fakeMessageRepo) ListConversations(_ context.Context, userID string) ([]models.Conversation, error) {
	out := []models.Conversation{}
	for _, c := range f.convs {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) AddMessage(_ context.Context, msg *models.Message) error {
	msg.ID = fmt.Sprintf("m%d", len(f.messages[msg.ConversationID])+1)
	msg.CreatedAt = time.Now()
	f.messages[msg.ConversationID] = append(f.messages[msg.ConversationID], *msg)
	return nil
}

func (f *fakeMessageRepo) ListMessages(_ context.Context, conversationID string, _ int) ([]models.Message, error) {
	return f.messages[conversationID], nil
}

func newTestMessageService() (*MessageService, *fakeMessageRepo, *fakeListingRepo, *recordingNotifier) {
	repo := newFakeMessageRepo()
	listings := newFakeListingRepo()
	listings.put(models.ListingDocument{ID: "l1", OwnerID: sp("seller"), Title: sp("Trotinetă")})
	listings.put(models.ListingDocument{ID: "sold", OwnerID: sp("seller"), Status: sp(string(models.StatusSold))})
	notes := &recordingNotifier{}
	return NewMessageService(repo, listings, notes, nil, nil), repo, listings, notes
}

func TestContactSellerCreatesConversationAndNotifies(t *testing.T) {
	svc, repo, _, notes := newTestMessageService()
	ctx := context.Background()

	msg, err := svc.ContactSeller(ctx, "buyer", "l1", dto.SendMessageRequest{Body: "  Mai este disponibilă?  "})
	require.NoError(t, err)
	assert.Equal(t, "Mai este disponibilă?", msg.Body)
	assert.Equal(t, "c1", msg.ConversationID)

	_, err = svc.ContactSeller(ctx, "buyer", "l1", dto.SendMessageRequest{Body: "Revin"})
	require.NoError(t, err)
	assert.Len(t, repo.convs, 1)

	require.Len(t, notes.items, 2)
	assert.Equal(t, "seller", notes.items[0].UserID)
	assert.Equal(t, models.NotificationMessage, notes.items[0].Kind)
	assert.Contains(t, notes.items[0].Title, "Trotinetă")
}

func TestContactSellerRejectsOwnAndHiddenListings(t *testing.T) {
	svc, _, _, _ := newTestMessageService()
	ctx := context.Background()

	_, err := svc.ContactSeller(ctx, "seller", "l1", dto.SendMessageRequest{Body: "salut"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.ContactSeller(ctx, "buyer", "sold", dto.SendMessageRequest{Body: "salut"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.ContactSeller(ctx, "buyer", "missing", dto.SendMessageRequest{Body: "salut"})
	require.Error(t, err)

	_, err = svc.ContactSeller(ctx, "buyer", "l1", dto.SendMessageRequest{Body: "   "})
	require.Error(t, err)
}

func TestReplyAndMessagesRequireParticipant(t *testing.T) {
	svc, _, _, notes := newTestMessageService()
	ctx := context.Background()
	first, err := svc.ContactSeller(ctx, "buyer", "l1", dto.SendMessageRequest{Body: "Bună"})
	require.NoError(t, err)

	_, err = svc.Reply(ctx, "seller", first.ConversationID, dto.SendMessageRequest{Body: "Da, este"})
	require.NoError(t, err)
	assert.Equal(t, "buyer", notes.items[len(notes.items)-1].UserID)

	_, err = svc.Reply(ctx, "intruder", first.ConversationID, dto.SendMessageRequest{Body: "hei"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	msgs, err := svc.Messages(ctx, "buyer", first.ConversationID, 50)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	_, err = svc.Messages(ctx, "intruder", first.ConversationID, 50)
	require.Error(t, err)

	_, err = svc.Messages(ctx, "buyer", "nope", 50)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	convs, err := svc.Conversations(ctx, "seller")
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestPreviewTruncatesOnRunes(t *testing.T) {
	assert.Equal(t, "ăîș…", preview("ăîșțâ", 3))
	assert.Equal(t, "scurt", preview("scurt", 10))
}
