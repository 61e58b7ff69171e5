package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/vindel10/vindel-api/internal/dto"
	"github.com/vindel10/vindel-api/internal/models"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
)

// FavoritesKV is the device-local favorites store.
type FavoritesKV interface {
	Members(ctx context.Context, deviceID string) ([]string, error)
	Add(ctx context.Context, deviceID, listingID string) error
	Remove(ctx context.Context, deviceID, listingID string) error
	Replace(ctx context.Context, deviceID string, ids []string) error
}

type favoriteRepository interface {
	ListIDs(ctx context.Context, userID string) ([]string, error)
	Add(ctx context.Context, userID, listingID string) error
	Remove(ctx context.Context, userID, listingID string) error
	Replace(ctx context.Context, userID string, ids []string) error
}

// MergeFavorites returns the sorted union of local and remote without duplicates.
func MergeFavorites(local, remote []string) []string {
	seen := make(map[string]struct{}, len(local)+len(remote))
	merged := make([]string, 0, len(local)+len(remote))
	for _, list := range [][]string{local, remote} {
		for _, id := range list {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	sort.Strings(merged)
	return merged
}

// FavoritesService reconciles device-local and account favorites.
type FavoritesService struct {
	local  FavoritesKV
	remote favoriteRepository
	logger *zap.Logger
}

// NewFavoritesService constructs a FavoritesService.
func NewFavoritesService(local FavoritesKV, remote favoriteRepository, logger *zap.Logger) *FavoritesService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FavoritesService{local: local, remote: remote, logger: logger}
}

// Sync merges the device and account sets and writes the union back to both.
// Neither side ever loses an entry.
func (s *FavoritesService) Sync(ctx context.Context, deviceID, userID string) (*dto.FavoritesSyncResponse, error) {
	if err := requireDevice(deviceID); err != nil {
		return nil, err
	}
	local, err := s.local.Members(ctx, deviceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read device favorites")
	}
	remote, err := s.remote.ListIDs(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read account favorites")
	}
	merged := MergeFavorites(local, remote)

	if err := s.local.Replace(ctx, deviceID, merged); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store device favorites")
	}
	if err := s.remote.Replace(ctx, userID, merged); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store account favorites")
	}

	resp := &dto.FavoritesSyncResponse{
		ListingIDs:  merged,
		AddedLocal:  len(merged) - len(MergeFavorites(local, nil)),
		AddedRemote: len(merged) - len(MergeFavorites(nil, remote)),
	}
	s.logger.Debug("favorites synced", zap.String("user_id", userID), zap.Int("count", len(merged)))
	return resp, nil
}

// Get returns the device favorites, merged with the account when userID is set.
func (s *FavoritesService) Get(ctx context.Context, deviceID, userID string) (*models.FavoritesState, error) {
	var local []string
	if deviceID != "" {
		ids, err := s.local.Members(ctx, deviceID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read device favorites")
		}
		local = ids
	} else if userID == "" {
		return nil, requireDevice(deviceID)
	}
	var remote []string
	if userID != "" {
		ids, err := s.remote.ListIDs(ctx, userID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read account favorites")
		}
		remote = ids
	}
	return &models.FavoritesState{DeviceID: deviceID, ListingIDs: MergeFavorites(local, remote)}, nil
}

// Add marks listingID as favorite on the device and, when signed in, the account.
func (s *FavoritesService) Add(ctx context.Context, deviceID, userID, listingID string) error {
	return s.apply(ctx, deviceID, userID, listingID, s.local.Add, s.remote.Add)
}

// Remove drops listingID from the device and, when signed in, the account.
func (s *FavoritesService) Remove(ctx context.Context, deviceID, userID, listingID string) error {
	return s.apply(ctx, deviceID, userID, listingID, s.local.Remove, s.remote.Remove)
}

func (s *FavoritesService) apply(ctx context.Context, deviceID, userID, listingID string, local, remote func(context.Context, string, string) error) error {
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "listing id is required")
	}
	if deviceID == "" && userID == "" {
		return requireDevice(deviceID)
	}
	if deviceID != "" {
		if err := local(ctx, deviceID, listingID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update device favorites")
		}
	}
	if userID != "" {
		if err := remote(ctx, userID, listingID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update account favorites")
		}
	}
	return nil
}

func requireDevice(deviceID string) error {
	if strings.TrimSpace(deviceID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "X-Device-ID header is required")
	}
	return nil
}
