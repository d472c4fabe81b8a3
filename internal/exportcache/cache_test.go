package exportcache

import (
	"context"
	"testing"
	"time"

	"github.com/benoctopus/worklog/internal/backend"
	"github.com/benoctopus/worklog/internal/models"
)

type fakeExport struct {
	history      []models.ExportHistoryRecord
	historyCalls int
	requests     []backend.ExportRequest
}

func (f *fakeExport) ListExportConfigs(ctx context.Context) ([]models.ExportConfig, error) {
	return nil, nil
}

func (f *fakeExport) GetExportHistory(ctx context.Context, configID string, itemIDs []string) ([]models.ExportHistoryRecord, error) {
	f.historyCalls++
	return f.history, nil
}

func (f *fakeExport) ExecuteExport(ctx context.Context, req backend.ExportRequest) (models.ExportResult, error) {
	f.requests = append(f.requests, req)
	result := models.ExportResult{Total: len(req.WorkItemIDs), Successful: len(req.WorkItemIDs), DryRun: req.DryRun}
	for _, id := range req.WorkItemIDs {
		result.Results = append(result.Results, models.ExportItemResult{WorkItemID: id, Status: "success"})
		if !req.DryRun {
			f.history = append(f.history, models.ExportHistoryRecord{WorkItemID: id, ExportedAt: "2026-01-30T10:00:00Z"})
		}
	}
	return result, nil
}

func candidates() []models.WorkItem {
	return []models.WorkItem{
		{ID: "w1", Title: "one"},
		{ID: "w2", Title: "two"},
		{ID: "w3", Title: "three"},
	}
}

func TestStatusesKeepExportedItemsListed(t *testing.T) {
	fake := &fakeExport{history: []models.ExportHistoryRecord{{WorkItemID: "w2", ExportedAt: "2026-01-29T09:00:00Z"}}}
	cache := New(fake)

	statuses, err := cache.Statuses(context.Background(), "cfg1", candidates())
	if err != nil {
		t.Fatalf("Statuses() failed: %v", err)
	}

	if len(statuses) != 3 {
		t.Fatalf("got %d statuses, want all 3 candidates listed", len(statuses))
	}
	if statuses[0].Exported || !statuses[1].Exported || statuses[2].Exported {
		t.Errorf("exported flags wrong: %+v", statuses)
	}
	if statuses[1].ExportedAt != "2026-01-29T09:00:00Z" {
		t.Errorf("ExportedAt = %q", statuses[1].ExportedAt)
	}
}

func TestStatusesUsesCacheWithinTTL(t *testing.T) {
	fake := &fakeExport{}
	cache := New(fake)

	for i := 0; i < 3; i++ {
		if _, err := cache.Statuses(context.Background(), "cfg1", candidates()); err != nil {
			t.Fatalf("Statuses() failed: %v", err)
		}
	}
	if fake.historyCalls != 1 {
		t.Errorf("historyCalls = %d, want 1 (cached within TTL)", fake.historyCalls)
	}
}

func TestStatusesRefetchesAfterTTL(t *testing.T) {
	fake := &fakeExport{}
	now := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	cache := New(fake, WithTTL(time.Minute), WithClock(func() time.Time { return now }))

	if _, err := cache.Statuses(context.Background(), "cfg1", candidates()); err != nil {
		t.Fatalf("Statuses() failed: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := cache.Statuses(context.Background(), "cfg1", candidates()); err != nil {
		t.Fatalf("Statuses() failed: %v", err)
	}
	if fake.historyCalls != 2 {
		t.Errorf("historyCalls = %d, want 2 (TTL expired)", fake.historyCalls)
	}
}

func TestExportDefaultsToPendingSubset(t *testing.T) {
	fake := &fakeExport{history: []models.ExportHistoryRecord{{WorkItemID: "w1", ExportedAt: "2026-01-29T09:00:00Z"}}}
	cache := New(fake)

	result, err := cache.Export(context.Background(), "cfg1", candidates(), false, false)
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	req := fake.requests[0]
	if len(req.WorkItemIDs) != 2 {
		t.Fatalf("submitted %d items, want 2 (w1 excluded)", len(req.WorkItemIDs))
	}
	for _, id := range req.WorkItemIDs {
		if id == "w1" {
			t.Error("already-exported w1 included without force")
		}
	}
	if result.Total != 2 {
		t.Errorf("result.Total = %d, want 2", result.Total)
	}
}

func TestExportForceIncludesExported(t *testing.T) {
	fake := &fakeExport{history: []models.ExportHistoryRecord{{WorkItemID: "w1", ExportedAt: "2026-01-29T09:00:00Z"}}}
	cache := New(fake)

	if _, err := cache.Export(context.Background(), "cfg1", candidates(), true, false); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	if got := len(fake.requests[0].WorkItemIDs); got != 3 {
		t.Errorf("force export submitted %d items, want all 3", got)
	}
}

func TestExportNothingPendingFailsLocally(t *testing.T) {
	fake := &fakeExport{history: []models.ExportHistoryRecord{
		{WorkItemID: "w1"}, {WorkItemID: "w2"}, {WorkItemID: "w3"},
	}}
	cache := New(fake)

	if _, err := cache.Export(context.Background(), "cfg1", candidates(), false, false); err == nil {
		t.Fatal("Export() should fail when every item was already exported")
	}
	if len(fake.requests) != 0 {
		t.Error("validation failure still dispatched an export call")
	}
}

func TestDryRunKeepsCache(t *testing.T) {
	fake := &fakeExport{}
	cache := New(fake)

	result, err := cache.Export(context.Background(), "cfg1", candidates(), false, true)
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	if !result.DryRun {
		t.Error("result.DryRun = false")
	}
	if !fake.requests[0].DryRun {
		t.Error("dry-run flag not forwarded to the backend")
	}

	// Dry run persists nothing, so the cached history stays valid.
	before := fake.historyCalls
	if _, err := cache.Statuses(context.Background(), "cfg1", candidates()); err != nil {
		t.Fatalf("Statuses() failed: %v", err)
	}
	if fake.historyCalls != before {
		t.Error("dry run invalidated the cache")
	}
}

func TestCommittedExportInvalidatesCache(t *testing.T) {
	fake := &fakeExport{}
	cache := New(fake)

	if _, err := cache.Export(context.Background(), "cfg1", candidates(), false, false); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	statuses, err := cache.Statuses(context.Background(), "cfg1", candidates())
	if err != nil {
		t.Fatalf("Statuses() failed: %v", err)
	}
	for _, s := range statuses {
		if !s.Exported {
			t.Errorf("item %s not marked exported after refetch", s.Item.ID)
		}
	}
}

func TestInvalidatePerConfig(t *testing.T) {
	fake := &fakeExport{}
	cache := New(fake)

	if _, err := cache.Statuses(context.Background(), "cfg1", candidates()); err != nil {
		t.Fatalf("Statuses() failed: %v", err)
	}
	if _, err := cache.Statuses(context.Background(), "cfg2", candidates()); err != nil {
		t.Fatalf("Statuses() failed: %v", err)
	}

	cache.Invalidate("cfg1")
	if _, err := cache.Statuses(context.Background(), "cfg2", candidates()); err != nil {
		t.Fatalf("Statuses() failed: %v", err)
	}
	if fake.historyCalls != 2 {
		t.Errorf("historyCalls = %d, invalidating cfg1 must not evict cfg2", fake.historyCalls)
	}
}
