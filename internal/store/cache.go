package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/phishguard/phishguard/internal/model"
)

// verdictKeyPrefix namespaces cache keys within the shared KV.
const verdictKeyPrefix = "last_verdict:"

// VerdictCache remembers the most recent verdict per URL. The manual check
// path reads it to show the last known result for the current page without
// re-contacting the oracle, and every completed classification writes it.
type VerdictCache struct {
	mu  sync.Mutex
	mem map[string]model.RiskVerdict

	// kv is the optional persistence layer; nil keeps the cache in memory.
	kv KV

	logger *slog.Logger
}

// NewVerdictCache creates a cache. A nil kv disables persistence.
func NewVerdictCache(kv KV, logger *slog.Logger) *VerdictCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerdictCache{
		mem:    make(map[string]model.RiskVerdict),
		kv:     kv,
		logger: logger,
	}
}

// cacheKey derives the storage key for a URL.
//
// Design decision: Keys are blake2b digests of the URL rather than the URL
// itself. URLs are unbounded and may contain characters that make poor
// storage keys; a fixed-size digest bounds key length without a secondary
// index, and lookups are still exact per URL.
func cacheKey(pageURL string) string {
	sum := blake2b.Sum256([]byte(pageURL))
	return verdictKeyPrefix + hex.EncodeToString(sum[:16])
}

// Get returns the cached verdict for the URL, if any.
func (c *VerdictCache) Get(ctx context.Context, pageURL string) (model.RiskVerdict, bool) {
	c.mu.Lock()
	if v, ok := c.mem[pageURL]; ok {
		c.mu.Unlock()
		return v, true
	}
	c.mu.Unlock()

	if c.kv == nil {
		return model.RiskVerdict{}, false
	}

	data, ok, err := c.kv.Get(ctx, cacheKey(pageURL))
	if err != nil {
		c.logger.Warn("verdict cache read failed", "url", pageURL, "error", err)
		return model.RiskVerdict{}, false
	}
	if !ok {
		return model.RiskVerdict{}, false
	}

	var v model.RiskVerdict
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Warn("discarding corrupt cached verdict", "url", pageURL, "error", err)
		return model.RiskVerdict{}, false
	}

	// The cached blob is keyed by digest; confirm the URL actually matches
	// before serving it, since a digest collision would misattribute a
	// verdict to the wrong page.
	if v.PageURL != pageURL {
		return model.RiskVerdict{}, false
	}

	c.mu.Lock()
	c.mem[pageURL] = v
	c.mu.Unlock()
	return v, true
}

// Put stores the verdict as the latest for its URL. Persistence is
// best-effort.
func (c *VerdictCache) Put(ctx context.Context, v model.RiskVerdict) {
	c.mu.Lock()
	c.mem[v.PageURL] = v
	c.mu.Unlock()

	if c.kv == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("failed to encode verdict for cache", "url", v.PageURL, "error", err)
		return
	}
	if err := c.kv.Set(ctx, cacheKey(v.PageURL), data); err != nil {
		c.logger.Warn("failed to persist cached verdict", "url", v.PageURL, "error", err)
	}
}
