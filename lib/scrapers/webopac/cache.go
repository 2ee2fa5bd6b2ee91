package webopac

import (
	"bytes"
	"context"
	"encoding/gob"
	"net/url"
	"time"

	"github.com/PuerkitoBio/purell"
	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var errCacheMiss = badger.ErrKeyNotFound

type cacheEntry struct {
	Result    ResultSet
	CreatedAt int64
	ExpiresAt int64
}

// resultCache stores normalized result sets keyed by query identity.
// A corrupt or expired entry reads as a miss, never as an error.
type resultCache struct {
	db      *badger.DB
	baseUrl *url.URL
	ttl     time.Duration
}

// the key embeds the query identity in a normalized URL shape so the
// keyspace reads like the search endpoint it mirrors
func (c resultCache) key(q Query) (string, error) {
	full, err := c.baseUrl.Parse(searchPath)
	if err != nil {
		return "", err
	}
	values := url.Values{}
	values.Set(string(q.Kind), q.normalizedText())
	full.RawQuery = values.Encode()

	normalized := purell.NormalizeURL(
		full,
		purell.FlagsSafe|
			purell.FlagsUsuallySafeNonGreedy|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	)
	return normalized, nil
}

func (c resultCache) get(ctx context.Context, q Query) (ResultSet, error) {
	ctx, span := tracer.Start(ctx, "cache:get")
	defer span.End()

	key, err := c.key(q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create cache key")
		return ResultSet{}, errCacheMiss
	}
	span.SetAttributes(attribute.String("cache_key", key))

	tx := c.db.NewTransaction(false)
	defer tx.Discard()
	item, err := tx.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return ResultSet{}, errCacheMiss
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return ResultSet{}, errCacheMiss
	}
	serialized, err := item.ValueCopy(nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy cached item")
		return ResultSet{}, errCacheMiss
	}

	var entry cacheEntry
	err = gob.NewDecoder(bytes.NewBuffer(serialized)).Decode(&entry)
	if err != nil {
		// corrupt entries are evicted and treated as misses
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to deserialize cached item")
		c.delete(key)
		return ResultSet{}, errCacheMiss
	}

	if time.Now().UnixNano() >= entry.ExpiresAt {
		span.AddEvent("delete expired cache key", trace.WithAttributes(
			attribute.String("key", key),
		))
		c.delete(key)
		return ResultSet{}, errCacheMiss
	}

	entry.Result.FromCache = true
	return entry.Result, nil
}

func (c resultCache) set(ctx context.Context, q Query, result ResultSet) error {
	ctx, span := tracer.Start(ctx, "cache:set")
	defer span.End()

	key, err := c.key(q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create cache key")
		return err
	}
	span.SetAttributes(attribute.String("cache_key", key))

	now := time.Now()
	entry := cacheEntry{
		Result:    result,
		CreatedAt: now.UnixNano(),
		ExpiresAt: now.Add(c.ttl).UnixNano(),
	}

	serialized := bytes.NewBuffer(nil)
	err = gob.NewEncoder(serialized).Encode(entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize result set")
		return err
	}

	tx := c.db.NewTransaction(true)
	defer tx.Commit()
	return tx.Set([]byte(key), serialized.Bytes())
}

func (c resultCache) invalidate(ctx context.Context, q Query) error {
	key, err := c.key(q)
	if err != nil {
		return err
	}
	return c.delete(key)
}

func (c resultCache) invalidateAll(ctx context.Context) error {
	return c.db.DropAll()
}

func (c resultCache) delete(key string) error {
	tx := c.db.NewTransaction(true)
	defer tx.Commit()
	return tx.Delete([]byte(key))
}
