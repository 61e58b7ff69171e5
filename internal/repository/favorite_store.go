package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

const favoritesKeyPrefix = "favorites:device:"

// RedisFavoriteStore keeps per-device favorites as Redis sets.
type RedisFavoriteStore struct {
	client *redis.Client
}

// NewRedisFavoriteStore constructs a Redis-backed device favorites store.
func NewRedisFavoriteStore(client *redis.Client) *RedisFavoriteStore {
	return &RedisFavoriteStore{client: client}
}

func favoritesKey(deviceID string) string { return favoritesKeyPrefix + deviceID }

// Members returns the sorted favorites of a device.
func (s *RedisFavoriteStore) Members(ctx context.Context, deviceID string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, favoritesKey(deviceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers favorites: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Add inserts a listing id into the device set.
func (s *RedisFavoriteStore) Add(ctx context.Context, deviceID, listingID string) error {
	if err := s.client.SAdd(ctx, favoritesKey(deviceID), listingID).Err(); err != nil {
		return fmt.Errorf("redis sadd favorites: %w", err)
	}
	return nil
}

// Remove deletes a listing id from the device set.
func (s *RedisFavoriteStore) Remove(ctx context.Context, deviceID, listingID string) error {
	if err := s.client.SRem(ctx, favoritesKey(deviceID), listingID).Err(); err != nil {
		return fmt.Errorf("redis srem favorites: %w", err)
	}
	return nil
}

// Replace atomically overwrites the device set.
func (s *RedisFavoriteStore) Replace(ctx context.Context, deviceID string, ids []string) error {
	key := favoritesKey(deviceID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(ids) > 0 {
			members := make([]interface{}, len(ids))
			for i, id := range ids {
				members[i] = id
			}
			pipe.SAdd(ctx, key, members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis replace favorites: %w", err)
	}
	return nil
}

// MemoryFavoriteStore is an in-process device favorites store for development
// and tests.
type MemoryFavoriteStore struct {
	mu   sync.RWMutex
	sets map[string]map[string]struct{}
}

// NewMemoryFavoriteStore constructs an empty in-memory store.
func NewMemoryFavoriteStore() *MemoryFavoriteStore {
	return &MemoryFavoriteStore{sets: make(map[string]map[string]struct{})}
}

// Members returns the sorted favorites of a device.
func (s *MemoryFavoriteStore) Members(_ context.Context, deviceID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sets[deviceID]))
	for id := range s.sets[deviceID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Add inserts a listing id into the device set.
func (s *MemoryFavoriteStore) Add(_ context.Context, deviceID, listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[deviceID]
	if !ok {
		set = make(map[string]struct{})
		s.sets[deviceID] = set
	}
	set[listingID] = struct{}{}
	return nil
}

// Remove deletes a listing id from the device set.
func (s *MemoryFavoriteStore) Remove(_ context.Context, deviceID, listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets[deviceID], listingID)
	return nil
}

// Replace overwrites the device set.
func (s *MemoryFavoriteStore) Replace(_ context.Context, deviceID string, ids []string) error {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	s.mu.Lock()
	s.sets[deviceID] = set
	s.mu.Unlock()
	return nil
}
