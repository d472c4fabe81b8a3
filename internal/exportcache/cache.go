// Package exportcache tracks which work items have already been exported
// through a given HTTP export config, behind a bounded TTL, to prevent
// duplicate exports to generic endpoints while still allowing an explicit
// re-export override.
package exportcache

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/benoctopus/worklog/internal/backend"
	"github.com/benoctopus/worklog/internal/models"
)

// DefaultTTL bounds how long fetched export history is trusted.
const DefaultTTL = 5 * time.Minute

// Status pairs a candidate item with its exported state. Already-exported
// items stay in the candidate list; callers de-emphasize them rather than
// dropping them.
type Status struct {
	Item       models.WorkItem
	Exported   bool
	ExportedAt string
}

type entry struct {
	exportedAt map[string]string // item id -> exported timestamp
	fetchedAt  time.Time
}

// Cache is an explicitly-scoped export-history cache for one page's
// lifetime. It is safe for concurrent readers.
type Cache struct {
	client backend.Export
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	configs map[string]entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the history TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache over the export boundary.
func New(client backend.Export, opts ...Option) *Cache {
	c := &Cache{
		client:  client,
		ttl:     DefaultTTL,
		now:     time.Now,
		configs: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Statuses returns the exported state for every candidate item, fetching
// history for the config when the cached copy is missing or expired.
func (c *Cache) Statuses(ctx context.Context, configID string, items []models.WorkItem) ([]Status, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	if err := c.populate(ctx, configID, ids); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.configs[configID]

	statuses := make([]Status, len(items))
	for i, item := range items {
		at, exported := e.exportedAt[item.ID]
		statuses[i] = Status{Item: item, Exported: exported, ExportedAt: at}
	}
	return statuses, nil
}

// Refresh discards any cached history for the config and fetches it anew.
func (c *Cache) Refresh(ctx context.Context, configID string, itemIDs []string) error {
	c.Invalidate(configID)
	return c.populate(ctx, configID, itemIDs)
}

// Invalidate drops the cached history for one config.
func (c *Cache) Invalidate(configID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.configs, configID)
}

func (c *Cache) populate(ctx context.Context, configID string, itemIDs []string) error {
	c.mu.Lock()
	e, ok := c.configs[configID]
	fresh := ok && c.now().Sub(e.fetchedAt) < c.ttl
	c.mu.Unlock()
	if fresh {
		return nil
	}

	records, err := c.client.GetExportHistory(ctx, configID, itemIDs)
	if err != nil {
		return eris.Wrap(err, "failed to fetch export history")
	}

	exportedAt := make(map[string]string, len(records))
	for _, rec := range records {
		exportedAt[rec.WorkItemID] = rec.ExportedAt
	}

	c.mu.Lock()
	c.configs[configID] = entry{exportedAt: exportedAt, fetchedAt: c.now()}
	c.mu.Unlock()
	return nil
}

// Export runs an HTTP export for the candidate items. By default only the
// not-yet-exported subset is submitted; force re-includes previously
// exported items. Dry runs execute the same request without persisting
// history. Zero items to submit is rejected before any call.
func (c *Cache) Export(ctx context.Context, configID string, items []models.WorkItem, force, dryRun bool) (models.ExportResult, error) {
	statuses, err := c.Statuses(ctx, configID, items)
	if err != nil {
		return models.ExportResult{}, err
	}

	var ids []string
	for _, s := range statuses {
		if force || !s.Exported {
			ids = append(ids, s.Item.ID)
		}
	}
	if len(ids) == 0 {
		return models.ExportResult{}, eris.New("nothing to export: all items were already exported")
	}

	result, err := c.client.ExecuteExport(ctx, backend.ExportRequest{
		ConfigID:    configID,
		WorkItemIDs: ids,
		DryRun:      dryRun,
	})
	if err != nil {
		return models.ExportResult{}, eris.Wrap(err, "export failed")
	}

	// A committed export changes history; the cached copy is now stale.
	if !dryRun {
		c.Invalidate(configID)
	}
	return result, nil
}
