package docstore

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"trialtab/internal"
	"trialtab/internal/errors"
)

const (
	// loadConcurrency bounds parallel fetches in one LoadAll call
	loadConcurrency = 4
	// maxFetches bounds source fetches in flight across all callers
	maxFetches = 8
)

// Cache holds decoded study documents keyed by id. Entries live until
// invalidated; the watcher and the refresh schedule drive invalidation.
type Cache struct {
	source  Source
	logger  *internal.Logger
	fetches *semaphore.Weighted

	mu   sync.RWMutex
	docs map[string]*Document
	// gens counts invalidations per id and epoch counts InvalidateAll calls;
	// a fetch that saw either change is not stored
	gens  map[string]uint64
	epoch uint64
}

// NewCache creates an empty cache over a source
func NewCache(source Source, logger *internal.Logger) *Cache {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Cache{
		source:  source,
		logger:  logger,
		fetches: semaphore.NewWeighted(maxFetches),
		docs:    make(map[string]*Document),
		gens:    make(map[string]uint64),
	}
}

// Source returns the backing source
func (c *Cache) Source() Source {
	return c.source
}

// Get returns the cached document, loading it on first use
func (c *Cache) Get(ctx context.Context, id string) (*Document, error) {
	c.mu.RLock()
	doc, ok := c.docs[id]
	gen, epoch := c.gens[id], c.epoch
	c.mu.RUnlock()
	if ok {
		return doc, nil
	}

	if err := c.fetches.Acquire(ctx, 1); err != nil {
		return nil, errors.DocumentUnavailable(id, err)
	}
	raw, err := c.source.Fetch(ctx, id)
	c.fetches.Release(1)
	if err != nil {
		if errors.HasCode(err, errors.CodeNotFound) || errors.HasCode(err, errors.CodeInvalidInput) {
			return nil, err
		}
		return nil, errors.DocumentUnavailable(id, err)
	}
	doc, err = Decode(id, raw)
	if err != nil {
		return nil, errors.DocumentUnavailable(id, err)
	}

	c.mu.Lock()
	switch existing, ok := c.docs[id]; {
	case c.gens[id] != gen || c.epoch != epoch:
		c.mu.Unlock()
		c.logger.Debug("study %s invalidated during fetch, not caching", id)
		return doc, nil
	case ok:
		// a concurrent loader won; keep the first entry
		doc = existing
	default:
		c.docs[id] = doc
	}
	c.mu.Unlock()

	c.logger.Debug("loaded study %s (%d bytes)", id, len(raw))
	return doc, nil
}

// LoadAll fetches several studies concurrently and fails on the first error
func (c *Cache) LoadAll(ctx context.Context, ids []string) (map[string]*Document, error) {
	docs := make([]*Document, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			doc, err := c.Get(gctx, id)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*Document, len(ids))
	for i, id := range ids {
		out[id] = docs[i]
	}
	return out, nil
}

// Invalidate drops one entry and reports whether it was cached
func (c *Cache) Invalidate(id string) bool {
	c.mu.Lock()
	_, ok := c.docs[id]
	delete(c.docs, id)
	c.gens[id]++
	c.mu.Unlock()
	if ok {
		c.logger.Info("invalidated cached study %s", id)
	}
	return ok
}

// InvalidateAll empties the cache and returns how many entries were dropped
func (c *Cache) InvalidateAll() int {
	c.mu.Lock()
	n := len(c.docs)
	c.docs = make(map[string]*Document)
	c.epoch++
	c.mu.Unlock()
	c.logger.Info("invalidated %d cached studies", n)
	return n
}

// IDs lists the cached study ids, sorted
func (c *Cache) IDs() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.docs))
	for id := range c.docs {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
