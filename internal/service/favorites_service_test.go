package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vindel10/vindel-api/internal/repository"
)

type memoryFavoriteRepo struct {
	byUser  map[string][]string
	listErr error
}

func (m *memoryFavoriteRepo) ListIDs(_ context.Context, userID string) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.byUser[userID]...), nil
}

func (m *memoryFavoriteRepo) Add(_ context.Context, userID, listingID string) error {
	m.byUser[userID] = MergeFavorites(m.byUser[userID], []string{listingID})
	return nil
}

func (m *memoryFavoriteRepo) Remove(_ context.Context, userID, listingID string) error {
	kept := m.byUser[userID][:0]
	for _, id := range m.byUser[userID] {
		if id != listingID {
			kept = append(kept, id)
		}
	}
	m.byUser[userID] = kept
	return nil
}

func (m *memoryFavoriteRepo) Replace(_ context.Context, userID string, ids []string) error {
	m.byUser[userID] = append([]string(nil), ids...)
	return nil
}

func TestMergeFavorites(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, MergeFavorites([]string{"c", "a"}, []string{"b", "a"}))
	assert.Equal(t, []string{}, MergeFavorites(nil, nil))
	assert.Equal(t, []string{"x"}, MergeFavorites([]string{" x ", ""}, nil))
}

func TestFavoritesSyncIsNeverDestructive(t *testing.T) {
	ctx := context.Background()
	local := repository.NewMemoryFavoriteStore()
	require.NoError(t, local.Replace(ctx, "dev1", []string{"l1", "l2"}))
	remote := &memoryFavoriteRepo{byUser: map[string][]string{"u1": {"l2", "l3"}}}
	svc := NewFavoritesService(local, remote, nil)

	resp, err := svc.Sync(ctx, "dev1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"l1", "l2", "l3"}, resp.ListingIDs)
	assert.Equal(t, 1, resp.AddedLocal)
	assert.Equal(t, 1, resp.AddedRemote)

	onDevice, err := local.Members(ctx, "dev1")
	require.NoError(t, err)
	assert.Equal(t, resp.ListingIDs, onDevice)
	assert.Equal(t, resp.ListingIDs, remote.byUser["u1"])

	again, err := svc.Sync(ctx, "dev1", "u1")
	require.NoError(t, err)
	assert.Equal(t, resp.ListingIDs, again.ListingIDs)
	assert.Zero(t, again.AddedLocal)
	assert.Zero(t, again.AddedRemote)
}

func TestFavoritesSyncRequiresDevice(t *testing.T) {
	svc := NewFavoritesService(repository.NewMemoryFavoriteStore(), &memoryFavoriteRepo{byUser: map[string][]string{}}, nil)
	_, err := svc.Sync(context.Background(), "", "u1")
	require.Error(t, err)
}

func TestFavoritesSyncLeavesDeviceUntouchedOnRemoteFailure(t *testing.T) {
	ctx := context.Background()
	local := repository.NewMemoryFavoriteStore()
	require.NoError(t, local.Add(ctx, "dev1", "l1"))
	svc := NewFavoritesService(local, &memoryFavoriteRepo{listErr: errors.New("db down")}, nil)

	_, err := svc.Sync(ctx, "dev1", "u1")
	require.Error(t, err)
	ids, err := local.Members(ctx, "dev1")
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, ids)
}

func TestFavoritesAddRemoveAndGet(t *testing.T) {
	ctx := context.Background()
	local := repository.NewMemoryFavoriteStore()
	remote := &memoryFavoriteRepo{byUser: map[string][]string{}}
	svc := NewFavoritesService(local, remote, nil)

	require.NoError(t, svc.Add(ctx, "dev1", "", "l1"))
	require.NoError(t, svc.Add(ctx, "dev1", "u1", "l2"))
	assert.Equal(t, []string{"l2"}, remote.byUser["u1"])

	state, err := svc.Get(ctx, "dev1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"l1", "l2"}, state.ListingIDs)

	require.NoError(t, svc.Remove(ctx, "dev1", "u1", "l2"))
	state, err = svc.Get(ctx, "dev1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, state.ListingIDs)

	state, err = svc.Get(ctx, "", "u1")
	require.NoError(t, err)
	assert.Empty(t, state.ListingIDs)

	_, err = svc.Get(ctx, "", "")
	require.Error(t, err)
	require.Error(t, svc.Add(ctx, "dev1", "", " "))
}
