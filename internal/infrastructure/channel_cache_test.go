package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"supportdesk/internal/entities"
)

type fakeResolver struct {
	calls  int
	result entities.ChannelContext
	err    error
}

func (r *fakeResolver) ResolveToken(_ context.Context, _ string) (entities.ChannelContext, error) {
	r.calls++
	return r.result, r.err
}

func TestChannelCacheServesFromCache(t *testing.T) {
	resolver := &fakeResolver{result: entities.ChannelContext{ChannelID: 1, TenantID: 2, Schema: "t_2"}}
	cache := NewChannelCache(resolver)

	for i := 0; i < 3; i++ {
		cc, err := cache.ResolveToken(context.Background(), "tok")
		require.NoError(t, err)
		require.Equal(t, 1, cc.ChannelID)
	}
	require.Equal(t, 1, resolver.calls)
}

func TestChannelCacheExpires(t *testing.T) {
	resolver := &fakeResolver{result: entities.ChannelContext{ChannelID: 1}}
	cache := NewChannelCache(resolver)

	now := time.Now()
	cache.now = func() time.Time { return now }

	_, err := cache.ResolveToken(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, 1, resolver.calls)

	now = now.Add(channelCacheTTL + time.Second)
	_, err = cache.ResolveToken(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, 2, resolver.calls)
}

func TestChannelCacheDoesNotCacheErrors(t *testing.T) {
	resolver := &fakeResolver{err: context.DeadlineExceeded}
	cache := NewChannelCache(resolver)

	_, err := cache.ResolveToken(context.Background(), "tok")
	require.Error(t, err)
	_, err = cache.ResolveToken(context.Background(), "tok")
	require.Error(t, err)
	require.Equal(t, 2, resolver.calls)

	// Once the token resolves it is cached.
	resolver.err = nil
	_, err = cache.ResolveToken(context.Background(), "tok")
	require.NoError(t, err)
	_, err = cache.ResolveToken(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, 3, resolver.calls)
}

func TestChannelCacheInvalidate(t *testing.T) {
	resolver := &fakeResolver{result: entities.ChannelContext{ChannelID: 1}}
	cache := NewChannelCache(resolver)

	_, err := cache.ResolveToken(context.Background(), "tok")
	require.NoError(t, err)

	cache.Invalidate("tok")
	_, err = cache.ResolveToken(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, 2, resolver.calls)
}
