package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vindel10/vindel-api/internal/models"
	"github.com/vindel10/vindel-api/internal/realtime"
)

type fakeNotificationRepo struct {
	mu        sync.Mutex
	items     []models.Notification
	createErr error
}

func (f *fakeNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if n.ID == "" {
		n.ID = fmt.Sprintf("n%d", len(f.items))
	}
	f.items = append(f.items, *n)
	return nil
}

func (f *fakeNotificationRepo) List(_ context.Context, userID string, _ int) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) CountUnread(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.items {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, userID, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].UserID == userID && !f.items[i].Read {
			f.items[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

func TestNotificationServiceNotifyPublishes(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, realtime.NewHub(4), nil)
	sub := svc.Subscribe("u1")
	defer svc.Unsubscribe(sub)

	require.NoError(t, svc.Notify(context.Background(), &models.Notification{UserID: "u1", Kind: models.NotificationMessage, Title: "Mesaj nou"}))
	ev := <-sub.Events
	assert.Equal(t, models.EventCreated, ev.Type)
	assert.Equal(t, 1, ev.Unread)
	require.NotNil(t, ev.Notification)
	assert.Equal(t, "Mesaj nou", ev.Notification.Title)

	unread, err := svc.MarkRead(context.Background(), "u1", ev.Notification.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)
	ev = <-sub.Events
	assert.Equal(t, models.EventRead, ev.Type)

	unread, err = svc.MarkRead(context.Background(), "u1", "missing")
	require.NoError(t, err)
	assert.Equal(t, 0, unread)
}

func TestNotificationServiceNotifyFailure(t *testing.T) {
	repo := &fakeNotificationRepo{createErr: errors.New("db down")}
	svc := NewNotificationService(repo, nil, nil)
	assert.Error(t, svc.Notify(context.Background(), &models.Notification{UserID: "u1"}))
}
