package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/todomvc/internal/model"
	"github.com/idilsaglam/todomvc/internal/store/redisstore"
)

func newStore(t *testing.T, opts ...redisstore.Option) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	s := redisstore.NewFromClient(client, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s, mr := newStore(t, redisstore.WithKey("list:test"))
	ctx := context.Background()

	items, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	want := []model.Item{{ID: "a", Title: "Buy milk"}, {ID: "b", Title: "Walk dog", Completed: true}}
	require.NoError(t, s.Save(ctx, want))
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, mr.Exists("list:test"))

	rev, err := s.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	s, mr := newStore(t, redisstore.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, []model.Item{{ID: "a", Title: "soon gone"}}))
	mr.FastForward(2 * time.Second)

	items, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	s, mr := newStore(t)
	require.NoError(t, mr.Set("todo:items", "{nope"))

	_, err := s.Load(context.Background())
	assert.ErrorContains(t, err, "unmarshal")
}
