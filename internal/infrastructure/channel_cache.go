package infrastructure

import (
	"context"
	"sync"
	"time"

	"supportdesk/internal/entities"
	"supportdesk/internal/interfaces"
)

// channelCacheTTL bounds staleness: a deactivated channel may keep
// resolving for at most this long.
const channelCacheTTL = 5 * time.Minute

type cachedChannel struct {
	ctx       entities.ChannelContext
	expiresAt time.Time
}

// ChannelCache wraps a ChannelResolver with a short-TTL in-memory cache
// keyed by token. Resolution happens on every inbound request, so misses
// are the exception.
type ChannelCache struct {
	resolver interfaces.ChannelResolver
	ttl      time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]cachedChannel
}

func NewChannelCache(resolver interfaces.ChannelResolver) *ChannelCache {
	return &ChannelCache{
		resolver: resolver,
		ttl:      channelCacheTTL,
		now:      time.Now,
		entries:  make(map[string]cachedChannel),
	}
}

func (c *ChannelCache) ResolveToken(ctx context.Context, token string) (entities.ChannelContext, error) {
	c.mu.RLock()
	entry, ok := c.entries[token]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.ctx, nil
	}

	resolved, err := c.resolver.ResolveToken(ctx, token)
	if err != nil {
		// Negative results are not cached: an unknown token stays a
		// cheap indexed lookup and activation takes effect immediately.
		return entities.ChannelContext{}, err
	}

	c.mu.Lock()
	c.entries[token] = cachedChannel{ctx: resolved, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return resolved, nil
}

// Invalidate drops one token, used by admin channel updates.
func (c *ChannelCache) Invalidate(token string) {
	c.mu.Lock()
	delete(c.entries, token)
	c.mu.Unlock()
}
