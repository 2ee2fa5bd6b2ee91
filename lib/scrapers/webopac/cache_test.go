package webopac

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) resultCache {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	return resultCache{db: db, baseUrl: testBase, ttl: ttl}
}

func TestCacheKeyIdentity(t *testing.T) {
	cache := newTestCache(t, time.Hour)

	// identity is (kind, normalized text); spacing and case do not
	// produce distinct keys, a different kind does
	a, err := cache.key(NewQuery("Harry  Potter", KindKeyword))
	require.NoError(t, err)
	b, err := cache.key(NewQuery("harry potter", KindKeyword))
	require.NoError(t, err)
	c, err := cache.key(NewQuery("harry potter", KindTitle))
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestCacheRoundtrip(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()
	query := NewQuery("Momo", KindTitle)

	_, err := cache.get(ctx, query)
	require.Equal(t, errCacheMiss, err)

	stored := ResultSet{
		Query:     query,
		TotalHits: 4,
		Books:     []Book{{Title: "Momo", Authors: []string{"Ende, Michael"}}},
	}
	require.NoError(t, cache.set(ctx, query, stored))

	got, err := cache.get(ctx, query)
	require.NoError(t, err)
	require.True(t, got.FromCache)
	require.Equal(t, 4, got.TotalHits)
	require.Equal(t, "Momo", got.Books[0].Title)
}

func TestCacheExpiry(t *testing.T) {
	cache := newTestCache(t, 50*time.Millisecond)
	ctx := context.Background()
	query := NewQuery("Momo", KindTitle)

	require.NoError(t, cache.set(ctx, query, ResultSet{Query: query, TotalHits: 1}))

	_, err := cache.get(ctx, query)
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)

	// expired entries read as absent even though never invalidated
	_, err = cache.get(ctx, query)
	require.Equal(t, errCacheMiss, err)
}

func TestCacheOverwrite(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()
	query := NewQuery("Momo", KindTitle)

	require.NoError(t, cache.set(ctx, query, ResultSet{Query: query, TotalHits: 1}))
	require.NoError(t, cache.set(ctx, query, ResultSet{Query: query, TotalHits: 2}))

	got, err := cache.get(ctx, query)
	require.NoError(t, err)
	require.Equal(t, 2, got.TotalHits)
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()
	query := NewQuery("Momo", KindTitle)

	key, err := cache.key(query)
	require.NoError(t, err)

	tx := cache.db.NewTransaction(true)
	require.NoError(t, tx.Set([]byte(key), []byte("not a gob payload")))
	require.NoError(t, tx.Commit())

	_, err = cache.get(ctx, query)
	require.Equal(t, errCacheMiss, err)
}

func TestCacheInvalidate(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()
	query := NewQuery("Momo", KindTitle)
	other := NewQuery("Tintenherz", KindTitle)

	require.NoError(t, cache.set(ctx, query, ResultSet{Query: query, TotalHits: 1}))
	require.NoError(t, cache.set(ctx, other, ResultSet{Query: other, TotalHits: 1}))

	require.NoError(t, cache.invalidate(ctx, query))
	_, err := cache.get(ctx, query)
	require.Equal(t, errCacheMiss, err)
	_, err = cache.get(ctx, other)
	require.NoError(t, err)

	require.NoError(t, cache.invalidateAll(ctx))
	_, err = cache.get(ctx, other)
	require.Equal(t, errCacheMiss, err)
}
