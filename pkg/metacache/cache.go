// Package metacache caches AS metadata lookups in memory and, optionally,
// in Redis.
package metacache

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hervehildenbrand/looking-glass/pkg/asinfo"
	"github.com/hervehildenbrand/looking-glass/pkg/database"
	"github.com/hervehildenbrand/looking-glass/pkg/models"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix  = "lg:asmeta:"
	defaultTTL = 10 * time.Minute
	redisTTL   = 24 * time.Hour

	fetchTimeout = 30 * time.Second
)

// Fetcher resolves AS numbers to AS metadata.
type Fetcher interface {
	FetchMetadata(ctx context.Context, asns []string) ([]models.ASMetadata, error)
}

type entry struct {
	meta models.ASMetadata
	at   time.Time
}

// Cache wraps a Fetcher. Entries live in a local TTL map and in Redis when a
// client is configured. Concurrent misses for the same AS set share one
// upstream request.
type Cache struct {
	upstream Fetcher
	redis    *redis.Client
	resolver database.CountryResolver
	ttl      time.Duration

	local sync.Map // asn string -> entry
	group singleflight.Group

	// Stats
	localHits      uint64
	redisHits      uint64
	misses         uint64
	upstreamCalls  uint64
	upstreamErrors uint64
}

// New creates a Cache. redisClient and resolver may be nil; ttl <= 0 uses
// the default of ten minutes.
func New(upstream Fetcher, redisClient *redis.Client, resolver database.CountryResolver, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if resolver == nil {
		resolver = database.NewNullResolver()
	}
	return &Cache{
		upstream: upstream,
		redis:    redisClient,
		resolver: resolver,
		ttl:      ttl,
	}
}

// FetchMetadata returns metadata for asns in input order. Duplicates are
// kept; AS numbers the backend has no entry for are skipped.
func (c *Cache) FetchMetadata(ctx context.Context, asns []string) ([]models.ASMetadata, error) {
	found := make(map[string]models.ASMetadata, len(asns))
	var missing []string

	for _, asn := range asns {
		if _, ok := found[asn]; ok {
			continue
		}
		if meta, ok := c.lookup(ctx, asn); ok {
			found[asn] = meta
			continue
		}
		if !contains(missing, asn) {
			missing = append(missing, asn)
		}
	}

	if len(missing) > 0 {
		atomic.AddUint64(&c.misses, uint64(len(missing)))
		fetched, err := c.fetch(ctx, missing)
		if err != nil {
			return nil, err
		}
		for asn, meta := range fetched {
			found[asn] = meta
		}
	}

	out := make([]models.ASMetadata, 0, len(asns))
	for _, asn := range asns {
		if meta, ok := found[asn]; ok {
			out = append(out, meta)
		}
	}
	return out, nil
}

func (c *Cache) lookup(ctx context.Context, asn string) (models.ASMetadata, bool) {
	if v, ok := c.local.Load(asn); ok {
		e := v.(entry)
		if time.Since(e.at) < c.ttl {
			atomic.AddUint64(&c.localHits, 1)
			return e.meta, true
		}
		c.local.Delete(asn)
	}

	if c.redis == nil {
		return models.ASMetadata{}, false
	}
	data, err := c.redis.Get(ctx, keyPrefix+asn).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[metacache] Redis get %s: %v", asn, err)
		}
		return models.ASMetadata{}, false
	}
	var meta models.ASMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return models.ASMetadata{}, false
	}
	atomic.AddUint64(&c.redisHits, 1)
	c.local.Store(asn, entry{meta: meta, at: time.Now()})
	return meta, true
}

func (c *Cache) fetch(ctx context.Context, missing []string) (map[string]models.ASMetadata, error) {
	sorted := append([]string(nil), missing...)
	sort.Strings(sorted)

	// The shared call outlives any single caller; each caller stops waiting
	// when its own context ends.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(strings.Join(sorted, ","), func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(shared, fetchTimeout)
		defer cancel()

		atomic.AddUint64(&c.upstreamCalls, 1)
		metas, err := c.upstream.FetchMetadata(fctx, sorted)
		if err != nil {
			atomic.AddUint64(&c.upstreamErrors, 1)
			return nil, err
		}
		fetched := make(map[string]models.ASMetadata, len(metas))
		for _, meta := range metas {
			meta = c.enrich(meta)
			asn := strconv.FormatUint(uint64(meta.ASNumber), 10)
			fetched[asn] = meta
			c.store(fctx, asn, meta)
		}
		return fetched, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]models.ASMetadata), nil
	}
}

// enrich fills fields the backend left empty.
func (c *Cache) enrich(meta models.ASMetadata) models.ASMetadata {
	if meta.CountryCode == "" {
		meta.CountryCode = c.resolver.Resolve(meta.ASNumber)
	}
	if meta.ASName == "" {
		meta.ASName = asinfo.Name(meta.ASNumber)
	}
	if meta.Role == "" {
		meta.Role = asinfo.Role(meta.ASNumber)
	}
	return meta
}

func (c *Cache) store(ctx context.Context, asn string, meta models.ASMetadata) {
	c.local.Store(asn, entry{meta: meta, at: time.Now()})

	if c.redis == nil {
		return
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, keyPrefix+asn, data, redisTTL).Err(); err != nil {
		log.Printf("[metacache] Redis set %s: %v", asn, err)
	}
}

// Stats returns cache statistics.
func (c *Cache) Stats() map[string]interface{} {
	size := 0
	c.local.Range(func(_, _ interface{}) bool {
		size++
		return true
	})
	return map[string]interface{}{
		"local_entries":   size,
		"local_hits":      atomic.LoadUint64(&c.localHits),
		"redis_hits":      atomic.LoadUint64(&c.redisHits),
		"misses":          atomic.LoadUint64(&c.misses),
		"upstream_calls":  atomic.LoadUint64(&c.upstreamCalls),
		"upstream_errors": atomic.LoadUint64(&c.upstreamErrors),
		"redis_enabled":   c.redis != nil,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
