// Package hourly materializes per-hour activity for a project across a date
// range. Per-date fetches run in parallel and are joined before any state
// is exposed, so partial or stale interleavings cannot be observed.
package hourly

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/benoctopus/worklog/internal/backend"
	"github.com/benoctopus/worklog/internal/models"
	"github.com/benoctopus/worklog/internal/period"
)

// maxConcurrentFetches bounds parallel per-date breakdown requests.
const maxConcurrentFetches = 8

// Result is the materialized view for one project and date range.
//
// Days maps date -> breakdown items. Dates with no activity are absent from
// the map entirely, never present with an empty slice. ManualItems is
// populated instead of Days for manual projects, which have no hour-level
// granularity.
type Result struct {
	Days        map[string][]models.HourlyBreakdownItem
	ManualItems []models.WorkItem
}

// Dates returns the dates present in the map in ascending order.
func (r Result) Dates() []string {
	dates := make([]string, 0, len(r.Days))
	for d := range r.Days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// TotalHours counts activity hours. Each hourly item represents one hour
// regardless of its interval; manual items contribute their recorded hours.
func (r Result) TotalHours() float64 {
	var hours float64
	for _, items := range r.Days {
		hours += float64(len(items))
	}
	for _, item := range r.ManualItems {
		hours += item.Hours
	}
	return hours
}

// TotalCommits sums commit references across all materialized items.
func (r Result) TotalCommits() int {
	var commits int
	for _, items := range r.Days {
		for _, item := range items {
			commits += len(item.GitCommits)
		}
	}
	return commits
}

// Materializer fetches and indexes hour-bucketed breakdowns by date.
type Materializer struct {
	client backend.Breakdown
	log    *slog.Logger
}

// New creates a materializer. A nil logger falls back to slog.Default.
func New(client backend.Breakdown, log *slog.Logger) *Materializer {
	if log == nil {
		log = slog.Default()
	}
	return &Materializer{client: client, log: log}
}

// Materialize builds the hour-by-hour view for projectPath between startDate
// and endDate inclusive.
//
// Manual projects skip the breakdown path: they are served by a manual work
// item listing filtered to items whose derived project name matches. For
// auto-tracked projects one breakdown fetch per date runs in parallel; a
// failed date is logged and omitted, the same as a date with no activity.
func (m *Materializer) Materialize(ctx context.Context, startDate, endDate, projectPath string) (Result, error) {
	dates, err := period.EnumerateDates(startDate, endDate)
	if err != nil {
		return Result{}, err
	}

	if models.IsManualKey(projectPath) {
		return m.materializeManual(ctx, startDate, endDate, projectPath)
	}

	var (
		mu   sync.Mutex
		days = make(map[string][]models.HourlyBreakdownItem)
	)

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentFetches)
	for _, date := range dates {
		date := date
		g.Go(func() error {
			items, err := m.client.FetchHourlyBreakdown(ctx, date, projectPath)
			if err != nil {
				// Degrades to "no data for that date"; siblings continue.
				m.log.Warn("hourly breakdown fetch failed",
					slog.String("date", date),
					slog.String("project", projectPath),
					slog.Any("error", err))
				return nil
			}
			if len(items) == 0 {
				return nil
			}
			mu.Lock()
			days[date] = items
			mu.Unlock()
			return nil
		})
	}
	// Fetch goroutines only ever return nil; Wait is the join point.
	_ = g.Wait()

	return Result{Days: days}, nil
}

func (m *Materializer) materializeManual(ctx context.Context, startDate, endDate, projectPath string) (Result, error) {
	target := models.ProjectNameFromPath(projectPath[len(models.ManualKeyPrefix):])

	items, err := m.client.ListManualItems(ctx, backend.ItemFilter{
		Source:    models.SourceManual,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		return Result{}, err
	}

	var matched []models.WorkItem
	for _, item := range items {
		if models.ProjectNameFromPath(item.ProjectPath) == target {
			matched = append(matched, item)
		}
	}
	return Result{Days: map[string][]models.HourlyBreakdownItem{}, ManualItems: matched}, nil
}
