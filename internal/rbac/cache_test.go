package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*AccessCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAccessCache(client, time.Minute), mr
}

func TestAccessCacheComputesOnceThenServesCached(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	compute := func() ([]FeatureAccess, error) {
		calls++
		return []FeatureAccess{{Feature: Feature{ID: 1, Name: "Dashboard"}, Permissions: []string{"View"}}}, nil
	}

	first, err := cache.Access(ctx, 4, compute)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1, calls)

	second, err := cache.Access(ctx, 4, compute)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, calls, "second read must come from the cache")
}

func TestAccessCacheKeysPerRole(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, err := cache.Access(ctx, 1, func() ([]FeatureAccess, error) {
		return []FeatureAccess{{Feature: Feature{ID: 1, Name: "Dashboard"}}}, nil
	})
	require.NoError(t, err)

	other, err := cache.Access(ctx, 2, func() ([]FeatureAccess, error) {
		return nil, nil
	})
	require.NoError(t, err)
	require.Empty(t, other, "role 2 must not read role 1's entry")
}

func TestAccessCacheInvalidateForcesRecompute(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	compute := func() ([]FeatureAccess, error) {
		calls++
		return nil, nil
	}

	_, err := cache.Access(ctx, 4, compute)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx))

	_, err = cache.Access(ctx, 4, compute)
	require.NoError(t, err)
	require.Equal(t, 2, calls, "version bump must orphan the old entry")
}

func TestAccessCacheDegradesWhenRedisDown(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	mr.Close()

	got, err := cache.Access(ctx, 4, func() ([]FeatureAccess, error) {
		return []FeatureAccess{{Feature: Feature{ID: 9, Name: "Pengaturan"}, Permissions: []string{"Edit"}}}, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Pengaturan", got[0].Feature.Name)
}
