package redis

import (
	"context"
	"testing"
	"time"

	"intelligencehub-console/pkg/session"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func setupRepo(t *testing.T) (*TokenRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewTokenRepository(rdb, time.Hour), mr
}

func authedSession(expiry time.Time) session.Session {
	return session.Session{
		User:  &session.User{ID: "u-1", Email: "admin@x.com", Role: "admin"},
		Token: &oauth2.Token{AccessToken: "tok", TokenType: "Bearer", Expiry: expiry},
	}
}

func TestSaveLoadClear(t *testing.T) {
	repo, mr := setupRepo(t)
	ctx := context.Background()
	p := repo.For("c-1")

	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	expiry := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	require.NoError(t, p.Save(ctx, authedSession(expiry)))
	assert.True(t, mr.Exists(Key("c-1")))

	ttl := mr.TTL(Key("c-1"))
	assert.InDelta(t, (30 * time.Minute).Seconds(), ttl.Seconds(), 5)

	loaded, err = p.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "admin@x.com", loaded.User.Email)
	assert.Equal(t, "tok", loaded.AccessToken())
	assert.True(t, expiry.Equal(loaded.ExpiresAt()))

	require.NoError(t, p.Clear(ctx))
	assert.False(t, mr.Exists(Key("c-1")))
}

func TestConsolesAreIsolated(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.For("c-1").Save(ctx, authedSession(time.Time{})))

	other, err := repo.For("c-2").Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, other)

	ttl, err := repo.TTL(ctx, "c-1")
	require.NoError(t, err)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)

	ttl, err = repo.TTL(ctx, "c-2")
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestSaveExpiredClears(t *testing.T) {
	repo, mr := setupRepo(t)
	ctx := context.Background()
	p := repo.For("c-1")

	require.NoError(t, p.Save(ctx, authedSession(time.Time{})))
	require.NoError(t, p.Save(ctx, authedSession(time.Now().Add(-time.Minute))))
	assert.False(t, mr.Exists(Key("c-1")))

	require.NoError(t, p.Save(ctx, authedSession(time.Time{})))
	require.NoError(t, p.Save(ctx, session.Session{}))
	assert.False(t, mr.Exists(Key("c-1")))
}

func TestCorruptEntryIsDropped(t *testing.T) {
	repo, mr := setupRepo(t)
	require.NoError(t, mr.Set(Key("c-1"), "{not json"))

	_, err := repo.For("c-1").Load(context.Background())
	assert.Error(t, err)
	assert.False(t, mr.Exists(Key("c-1")))
}

func TestStoreRestoresFromRedis(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.For("c-1").Save(ctx, authedSession(time.Now().Add(time.Hour))))

	store := session.NewStore(nil, session.WithPersister(repo.For("c-1")))
	restored, err := store.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-1", restored.User.ID)
	assert.True(t, store.IsAuthenticated())

	store.Logout()
	loaded, err := repo.For("c-1").Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
