package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/catalog/internal/locale"
)

// ChainLoader abstracts the persistence of setting chains.
type ChainLoader interface {
	LoadChain(ctx context.Context, lookup Lookup) (Chain, error)
}

// Service resolves effective settings, caching loaded chains.
type Service struct {
	loader ChainLoader
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService wires a loader with an optional cache.
func NewService(loader ChainLoader, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{loader: loader, cache: cache, logger: logger}
}

// Chain returns the setting chain of a lookup, from cache when possible.
// Concurrent callers for the same key share a single load.
func (s *Service) Chain(ctx context.Context, lookup Lookup) (Chain, error) {
	key, err := s.cache.BuildKey(ctx, chainKeyParts(lookup)...)
	if err != nil {
		s.logger.Warn("settings cache version", slog.Any("error", err))
		key = strings.Join(chainKeyParts(lookup), ":")
		return s.load(ctx, key, lookup, false)
	}
	return s.load(ctx, key, lookup, true)
}

// load shares one fetch between concurrent callers of a key. The fetch is detached
// from the caller that started it; each caller only waits on its own context.
func (s *Service) load(ctx context.Context, key string, lookup Lookup, cached bool) (Chain, error) {
	ch := s.group.DoChan(key, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		if !cached {
			return s.loader.LoadChain(ctx, lookup)
		}
		chain, err := s.cache.FetchChain(ctx, key, func(ctx context.Context) (Chain, error) {
			return s.loader.LoadChain(ctx, lookup)
		})
		if err != nil {
			s.logger.Warn("settings cache fetch, loading directly", slog.String("key", key), slog.Any("error", err))
			return s.loader.LoadChain(ctx, lookup)
		}
		return chain, nil
	})
	select {
	case <-ctx.Done():
		return Chain{}, fmt.Errorf("settings: load chain: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Chain{}, fmt.Errorf("settings: load chain: %w", res.Err)
		}
		return res.Val.(Chain), nil
	}
}

// Resolve loads the chain of a lookup and resolves it for the request locales.
func (s *Service) Resolve(ctx context.Context, lookup Lookup, locales locale.Set) (Effective, error) {
	chain, err := s.Chain(ctx, lookup)
	if err != nil {
		return Effective{}, err
	}
	eff, err := Resolve(chain, locales)
	if err != nil {
		s.logger.Warn("branch setting unresolved",
			slog.Int64("category_id", lookup.CategoryID),
			slog.Int64("branch_id", lookup.BranchID),
			slog.Any("error", err))
		return Effective{}, err
	}
	return eff, nil
}

// Invalidate drops every cached chain.
func (s *Service) Invalidate(ctx context.Context) (int64, error) {
	return s.cache.Bump(ctx)
}
