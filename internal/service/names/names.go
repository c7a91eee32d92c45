package service_names

import (
	"context"
	"log/slog"
	"sync"

	"github.com/naryasomayaj/group-activity-planner/internal/model"
)

type Cache interface {
	GetMany(ctx context.Context, userIDs []string) (map[string]string, error)
	SetMany(ctx context.Context, names map[string]string) error
	Delete(ctx context.Context, userIDs ...string) error
}

type UserSource interface {
	Users(ctx context.Context, userIDs []string) ([]model.User, error)
}

// Names is a resolved batch of display names.
type Names map[string]string

// DisplayName falls back to the id for users that could not be resolved.
func (n Names) DisplayName(userID string) string {
	if name, ok := n[userID]; ok && name != "" {
		return name
	}
	return userID
}

// Resolver is a read-through display name cache. Misses are loaded from the
// user source in one batch.
type Resolver struct {
	cache  Cache
	users  UserSource
	logger *slog.Logger
}

func New(cache Cache, users UserSource) *Resolver {
	return &Resolver{
		cache:  cache,
		users:  users,
		logger: slog.Default(),
	}
}

func (r *Resolver) Resolve(ctx context.Context, userIDs []string) (Names, error) {
	names := make(Names, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	cached, err := r.cache.GetMany(ctx, userIDs)
	if err != nil {
		r.logger.Warn("name cache read failed", slog.String("error", err.Error()))
		cached = nil
	}

	var missing []string
	for _, id := range userIDs {
		if name, ok := cached[id]; ok {
			names[id] = name
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return names, nil
	}

	users, err := r.users.Users(ctx, missing)
	if err != nil {
		return nil, err
	}

	loaded := make(map[string]string, len(users))
	for _, u := range users {
		loaded[u.ID] = u.DisplayName()
		names[u.ID] = loaded[u.ID]
	}
	if len(loaded) > 0 {
		if err := r.cache.SetMany(ctx, loaded); err != nil {
			r.logger.Warn("name cache write failed", slog.String("error", err.Error()))
		}
	}
	return names, nil
}

// Forget drops cached names, e.g. after a profile edit.
func (r *Resolver) Forget(ctx context.Context, userIDs ...string) {
	if err := r.cache.Delete(ctx, userIDs...); err != nil {
		r.logger.Warn("name cache delete failed", slog.String("error", err.Error()))
	}
}

// MemoryCache is an in-process Cache without expiry.
type MemoryCache struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{names: make(map[string]string)}
}

func (c *MemoryCache) GetMany(_ context.Context, userIDs []string) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		if name, ok := c.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func (c *MemoryCache) SetMany(_ context.Context, names map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, name := range names {
		c.names[id] = name
	}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, userIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range userIDs {
		delete(c.names, id)
	}
	return nil
}
