package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "settings:version"

// Cache stores loaded setting chains in Redis under versioned keys.
// A nil Cache or a Cache without client always calls through to the loader.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// FetchChain loads a cached chain or populates it using the loader.
func (c *Cache) FetchChain(ctx context.Context, key string, loader func(context.Context) (Chain, error)) (Chain, error) {
	if loader == nil {
		return Chain{}, errors.New("settings cache: loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var chain Chain
		if err := json.Unmarshal(payload, &chain); err == nil {
			return chain, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return Chain{}, err
	}
	chain, err := loader(ctx)
	if err != nil {
		return Chain{}, err
	}
	raw, err := json.Marshal(chain)
	if err != nil {
		return Chain{}, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return Chain{}, err
	}
	return chain, nil
}

// Bump invalidates every cached chain by incrementing the shared version key.
// Instances read the version on every lookup, so no message fan-out is needed.
func (c *Cache) Bump(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Result()
}

func chainKeyParts(lookup Lookup) []string {
	return []string{
		"settings", "chain",
		strconv.FormatInt(lookup.BranchID, 10),
		strconv.FormatInt(lookup.CategoryID, 10),
		strconv.FormatInt(lookup.ParentID, 10),
		lookup.RootCode,
	}
}
