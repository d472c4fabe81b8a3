package hourly

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/rotisserie/eris"

	"github.com/benoctopus/worklog/internal/backend"
	"github.com/benoctopus/worklog/internal/models"
)

type fakeBreakdown struct {
	mu          sync.Mutex
	fetched     []string
	byDate      map[string][]models.HourlyBreakdownItem
	failDates   map[string]bool
	manualItems []models.WorkItem
}

func (f *fakeBreakdown) FetchHourlyBreakdown(ctx context.Context, date, projectPath string) ([]models.HourlyBreakdownItem, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, date)
	f.mu.Unlock()
	if f.failDates[date] {
		return nil, eris.Errorf("fetch failed for %s", date)
	}
	return f.byDate[date], nil
}

func (f *fakeBreakdown) ListManualItems(ctx context.Context, filter backend.ItemFilter) ([]models.WorkItem, error) {
	return f.manualItems, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func item(commits int) models.HourlyBreakdownItem {
	it := models.HourlyBreakdownItem{HourStart: "09:00", HourEnd: "10:00", Source: "claude_code"}
	for i := 0; i < commits; i++ {
		it.GitCommits = append(it.GitCommits, models.CommitRef{Hash: "abc123"})
	}
	return it
}

func TestMaterializeOmitsEmptyDates(t *testing.T) {
	// Window 2024-01-01..2024-01-03; only day 2 has activity: two items,
	// one with 2 commits and one with none.
	fake := &fakeBreakdown{
		byDate: map[string][]models.HourlyBreakdownItem{
			"2024-01-02": {item(2), item(0)},
		},
	}
	m := New(fake, quietLogger())

	res, err := m.Materialize(context.Background(), "2024-01-01", "2024-01-03", "/home/dev/worklog")
	if err != nil {
		t.Fatalf("Materialize() failed: %v", err)
	}

	if len(res.Days) != 1 {
		t.Fatalf("got %d keys, want exactly 1", len(res.Days))
	}
	items, ok := res.Days["2024-01-02"]
	if !ok {
		t.Fatal("2024-01-02 missing from materialized map")
	}
	if len(items) != 2 {
		t.Errorf("got %d items for 2024-01-02, want 2", len(items))
	}
	if got := res.TotalHours(); got != 2 {
		t.Errorf("TotalHours() = %v, want 2", got)
	}
	if got := res.TotalCommits(); got != 2 {
		t.Errorf("TotalCommits() = %v, want 2", got)
	}
}

func TestMaterializeFetchesEveryDateInRange(t *testing.T) {
	fake := &fakeBreakdown{}
	m := New(fake, quietLogger())

	_, err := m.Materialize(context.Background(), "2024-01-01", "2024-01-05", "/home/dev/worklog")
	if err != nil {
		t.Fatalf("Materialize() failed: %v", err)
	}
	if len(fake.fetched) != 5 {
		t.Errorf("fetched %d dates, want 5", len(fake.fetched))
	}
}

func TestMaterializeFailedDateDoesNotAbortSiblings(t *testing.T) {
	fake := &fakeBreakdown{
		byDate: map[string][]models.HourlyBreakdownItem{
			"2024-01-01": {item(1)},
			"2024-01-03": {item(1)},
		},
		failDates: map[string]bool{"2024-01-02": true},
	}
	m := New(fake, quietLogger())

	res, err := m.Materialize(context.Background(), "2024-01-01", "2024-01-03", "/home/dev/worklog")
	if err != nil {
		t.Fatalf("Materialize() failed: %v", err)
	}

	if len(res.Days) != 2 {
		t.Errorf("got %d keys, want 2 (failed date omitted, siblings kept)", len(res.Days))
	}
	if _, ok := res.Days["2024-01-02"]; ok {
		t.Error("failed date present in map")
	}
}

func TestMaterializeReversedRangeFails(t *testing.T) {
	m := New(&fakeBreakdown{}, quietLogger())
	if _, err := m.Materialize(context.Background(), "2024-01-03", "2024-01-01", "/p"); err == nil {
		t.Error("Materialize() accepted a reversed range")
	}
}

func TestMaterializeManualProject(t *testing.T) {
	fake := &fakeBreakdown{
		manualItems: []models.WorkItem{
			{ID: "m1", ProjectPath: "/home/dev/worklog", Hours: 2, Source: models.SourceManual},
			{ID: "m2", ProjectPath: "/home/dev/other", Hours: 3, Source: models.SourceManual},
		},
	}
	m := New(fake, quietLogger())

	res, err := m.Materialize(context.Background(), "2024-01-01", "2024-01-03", "manual:worklog")
	if err != nil {
		t.Fatalf("Materialize() failed: %v", err)
	}

	// Manual projects never hit the breakdown path.
	if len(fake.fetched) != 0 {
		t.Errorf("manual project fetched %d breakdowns, want 0", len(fake.fetched))
	}
	if len(res.ManualItems) != 1 || res.ManualItems[0].ID != "m1" {
		t.Errorf("ManualItems = %+v, want only m1", res.ManualItems)
	}
	if got := res.TotalHours(); got != 2 {
		t.Errorf("TotalHours() = %v, want 2", got)
	}
}

func TestDatesSorted(t *testing.T) {
	res := Result{Days: map[string][]models.HourlyBreakdownItem{
		"2024-01-03": {item(0)},
		"2024-01-01": {item(0)},
	}}
	dates := res.Dates()
	if len(dates) != 2 || dates[0] != "2024-01-01" || dates[1] != "2024-01-03" {
		t.Errorf("Dates() = %v, want ascending order", dates)
	}
}
