// Package pagecache implements an admission-controlled, frequency-aware,
// page-structured cache for 32-bit integer keys: a recency LRU window in
// front of a TinyLFU-admitted, disk-backed page store. Grounded on the
// original cache's core/include/cache.hpp, with the teacher's facade
// shape (dgraph-io-ristretto's top-level Cache/Config/NewCache) adapted
// to this engine's three-level index instead of the teacher's sampled
// TinyLFU + sharded-map store.
package pagecache

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/vkuzmenko/pagecache/lru"
	"github.com/vkuzmenko/pagecache/provider"
	"github.com/vkuzmenko/pagecache/tinylfu"
)

// Cache is the engine facade: it composes an optional LRU recency
// window with the TinyLFU-governed, disk-backed large-page provider
// (spec.md §4.8).
type Cache struct {
	cfg       Config
	estimator *tinylfu.Estimator
	provider  *provider.Provider
	window    *lru.LRU // nil if LRUSize == 0
}

// Open creates or resumes a Cache rooted at dataDir: it creates dataDir
// if missing and reads header.bin plus the initial resident page set if
// present (spec.md §6).
func Open(dataDir string, opts ...Option) (*Cache, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	var tlfuOpts []tinylfu.Option
	if cfg.UseDoorKeeper {
		tlfuOpts = append(tlfuOpts, tinylfu.WithDoorkeeper(cfg.TLFUSize, cfg.DoorKeeperFPR))
	}
	estimator := tinylfu.New(cfg.TLFUSize, cfg.SampleSize, tlfuOpts...)

	providerCfg := provider.Config{
		DirectorySize:      cfg.DirectorySize(),
		ResidentCount:      cfg.LoadedPageNumber,
		LargePageShift:     cfg.LargePageShift,
		SmallPageShift:     cfg.SmallPageShift,
		SmallPageSize:      cfg.SmallPageSize(),
		LargePagePeriod:    cfg.LargePagePeriod,
		FrequencyThreshold: cfg.FrequencyThreshold,
		AcceleratorFPR:     cfg.AcceleratorFPR,
	}
	prov, err := provider.Open(dataDir, providerCfg, estimator)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		cfg:       cfg,
		estimator: estimator,
		provider:  prov,
	}
	if cfg.LRUSize > 0 {
		c.window = lru.New(cfg.LRUSize, cfg.TTLEvictionProb, cfg.BernoulliSeed)
	}
	return c, nil
}

// Get reports whether key is cached and live as of now (spec.md §4.8). If
// the LRU window is enabled and reports a hit, that settles the query.
// Otherwise the query falls through to the large-page provider and, on a
// resident page, to that page's own lookup.
func (c *Cache) Get(key uint32, now uint32) bool {
	if c.window != nil && c.window.Get(key, now) {
		return true
	}

	page, err := c.provider.Get(key)
	if err != nil || page == nil {
		return false
	}
	return page.Get(key, now)
}

// Update records key as live until exp (spec.md §4.8). If the LRU window
// is enabled, the update is absorbed by the window unless it evicts an
// older key, in which case the evicted key (not the original key) is the
// one forwarded into the page store. If the provider reports the key's
// page as cold (not resident, not hot enough to swap in), the update is
// silently dropped.
func (c *Cache) Update(key uint32, exp uint32) error {
	if c.window != nil {
		evicted, ok := c.window.Update(key, exp)
		if !ok {
			return nil
		}
		key = evicted
	}

	page, err := c.provider.Get(key)
	if err != nil {
		return err
	}
	if page == nil {
		return nil
	}
	page.Update(key, exp)
	return nil
}

// Store persists the provider's directory and resident large pages to
// disk (spec.md §4.8).
func (c *Cache) Store() error {
	if err := c.provider.Store(); err != nil {
		return err
	}
	if c.cfg.Trace != nil {
		fmt.Fprintf(c.cfg.Trace, "pagecache: stored %s\n", humanize.Bytes(uint64(c.provider.StoreByteSize())))
	}
	return nil
}
