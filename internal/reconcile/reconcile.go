// Package reconcile computes exportable worklog rows by diffing day-by-day
// activity against persisted sync records, and drives single, batch, and
// week-scale sync operations with at-most-once semantics per (target, date)
// pair.
package reconcile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/benoctopus/worklog/internal/backend"
	"github.com/benoctopus/worklog/internal/models"
)

// RecordSet indexes sync records by (target key, date) for constant-time
// reconciliation lookups.
type RecordSet struct {
	byKey map[string]models.WorklogSyncRecord
}

// NewRecordSet indexes records fetched for a date window.
func NewRecordSet(records []models.WorklogSyncRecord) RecordSet {
	byKey := make(map[string]models.WorklogSyncRecord, len(records))
	for _, rec := range records {
		byKey[rec.ProjectPath+"\x00"+rec.Date] = rec
	}
	return RecordSet{byKey: byKey}
}

// Get returns the sync record for a (target key, date) pair, if one exists.
func (s RecordSet) Get(targetKey, date string) (models.WorklogSyncRecord, bool) {
	rec, ok := s.byKey[targetKey+"\x00"+date]
	return rec, ok
}

// Result is the outcome of one sync operation.
type Result struct {
	Outcomes []models.SyncOutcome
	Synced   int
	Failed   int
}

// Reconciler owns the sync working set for one page's lifetime. It keeps a
// single in-flight flag and a single last result shared across single,
// batch, and week-scale operations.
type Reconciler struct {
	client backend.WorklogSync
	log    *slog.Logger

	mu      sync.Mutex
	syncing bool
	last    *Result
}

// New creates a reconciler. A nil logger falls back to slog.Default.
func New(client backend.WorklogSync, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{client: client, log: log}
}

// Syncing reports whether a sync operation is in flight.
func (r *Reconciler) Syncing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.syncing
}

// LastResult returns the result of the most recently finished operation, or
// nil when none has run (or a new one is in flight).
func (r *Reconciler) LastResult() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// RowsForDay builds the exportable rows for a single day. Activity and sync
// records are re-fetched on every call so that rows are always derived from
// fresh state, never from a stale working set.
func (r *Reconciler) RowsForDay(ctx context.Context, date string) ([]models.BatchSyncRow, error) {
	days, records, mappings, err := r.fetchState(ctx, date, date)
	if err != nil {
		return nil, err
	}
	var rows []models.BatchSyncRow
	for _, day := range days {
		rows = append(rows, buildRows(day, records, mappings, false)...)
	}
	return rows, nil
}

// RowsForWeek builds exportable rows across a multi-day window. Each row
// carries its originating date since one row list spans multiple days.
func (r *Reconciler) RowsForWeek(ctx context.Context, from, to string) ([]models.BatchSyncRow, error) {
	days, records, mappings, err := r.fetchState(ctx, from, to)
	if err != nil {
		return nil, err
	}
	var rows []models.BatchSyncRow
	for _, day := range days {
		rows = append(rows, buildRows(day, records, mappings, true)...)
	}
	return rows, nil
}

func (r *Reconciler) fetchState(ctx context.Context, from, to string) ([]models.WorklogDay, RecordSet, map[string]string, error) {
	days, err := r.client.WorklogOverview(ctx, from, to)
	if err != nil {
		return nil, RecordSet{}, nil, eris.Wrap(err, "failed to fetch worklog overview")
	}
	recs, err := r.client.GetSyncRecords(ctx, from, to)
	if err != nil {
		return nil, RecordSet{}, nil, eris.Wrap(err, "failed to fetch sync records")
	}
	maps, err := r.client.GetMappings(ctx)
	if err != nil {
		return nil, RecordSet{}, nil, eris.Wrap(err, "failed to fetch issue mappings")
	}

	mappings := make(map[string]string, len(maps))
	for _, m := range maps {
		mappings[m.ProjectPath] = m.JiraIssueKey
	}
	return days, NewRecordSet(recs), mappings, nil
}

// buildRows applies the reconciliation diff for one day: already-synced
// (key, date) pairs are skipped entirely, surviving entries become rows in
// encounter order, projects before manual items.
func buildRows(day models.WorklogDay, records RecordSet, mappings map[string]string, withDate bool) []models.BatchSyncRow {
	var rows []models.BatchSyncRow

	for _, project := range day.Projects {
		if _, synced := records.Get(project.ProjectPath, day.Date); synced {
			continue
		}
		row := models.BatchSyncRow{
			ProjectPath: project.ProjectPath,
			ProjectName: project.ProjectName,
			IssueKey:    mappings[project.ProjectPath],
			Hours:       project.TotalHours,
			Description: project.DailySummary,
		}
		if withDate {
			row.Date = day.Date
		}
		rows = append(rows, row)
	}

	for _, item := range day.ManualItems {
		key := models.ManualKey(item.ID)
		if _, synced := records.Get(key, day.Date); synced {
			continue
		}
		row := models.BatchSyncRow{
			ProjectPath: key,
			ProjectName: item.Title,
			IssueKey:    firstNonEmpty(item.JiraIssueKey, mappings[key]),
			Hours:       item.Hours,
			Description: item.Description,
			IsManual:    true,
		}
		if withDate {
			row.Date = day.Date
		}
		rows = append(rows, row)
	}

	return rows
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// ValidateRows rejects a submission before any network call: every row
// needs an issue key (Tempo has no unmapped worklog concept) and an empty
// row list has nothing to sync.
func ValidateRows(rows []models.BatchSyncRow) error {
	if len(rows) == 0 {
		return eris.New("nothing to sync: no rows selected")
	}
	for _, row := range rows {
		if row.IssueKey == "" {
			return eris.Errorf("row %q has no issue key", row.ProjectName)
		}
	}
	return nil
}

// SyncSingle submits one row for one date.
func (r *Reconciler) SyncSingle(ctx context.Context, row models.BatchSyncRow, date string) (*Result, error) {
	return r.run(ctx, func(ctx context.Context) ([]models.SyncOutcome, error) {
		if err := ValidateRows([]models.BatchSyncRow{row}); err != nil {
			return nil, err
		}
		outcome, err := r.client.SyncSingle(ctx, row, date)
		if err != nil {
			return nil, err
		}
		return []models.SyncOutcome{outcome}, nil
	})
}

// SyncBatch submits the full row list for one date in one call.
func (r *Reconciler) SyncBatch(ctx context.Context, rows []models.BatchSyncRow, date string) (*Result, error) {
	return r.run(ctx, func(ctx context.Context) ([]models.SyncOutcome, error) {
		if err := ValidateRows(rows); err != nil {
			return nil, err
		}
		return r.client.SyncBatch(ctx, rows, date)
	})
}

// SyncWeek submits rows spanning multiple days; each row's own Date is
// authoritative.
func (r *Reconciler) SyncWeek(ctx context.Context, rows []models.BatchSyncRow) (*Result, error) {
	return r.run(ctx, func(ctx context.Context) ([]models.SyncOutcome, error) {
		if err := ValidateRows(rows); err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row.Date == "" {
				return nil, eris.Errorf("week-scale row %q has no date", row.ProjectName)
			}
		}
		return r.client.SyncBatch(ctx, rows, "")
	})
}

// run wraps an operation with the shared in-flight flag and result slot.
// Starting a new operation clears the previous result.
func (r *Reconciler) run(ctx context.Context, op func(context.Context) ([]models.SyncOutcome, error)) (*Result, error) {
	r.mu.Lock()
	if r.syncing {
		r.mu.Unlock()
		return nil, eris.New("a sync operation is already in progress")
	}
	r.syncing = true
	r.last = nil
	r.mu.Unlock()

	outcomes, err := op(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncing = false
	if err != nil {
		return nil, err
	}

	result := &Result{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Success {
			result.Synced++
		} else {
			result.Failed++
			r.log.Warn("worklog row failed to sync",
				slog.String("target", o.ProjectPath),
				slog.String("date", o.Date),
				slog.String("error", o.Error))
		}
	}
	r.last = result
	return result, nil
}
