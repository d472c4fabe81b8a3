// Package timeline assembles per-source activity into period-bucketed groups
// with cursor-based incremental loading. Overlapping loads are resolved by
// sequence-gated commits: only the most recently issued request may touch
// the group list.
package timeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/benoctopus/worklog/internal/backend"
	"github.com/benoctopus/worklog/internal/fetch"
	"github.com/benoctopus/worklog/internal/models"
	"github.com/benoctopus/worklog/internal/period"
)

// DefaultPageSize bounds one timeline page when the caller does not choose.
const DefaultPageSize = 10

// State is the aggregator's pagination state.
type State int

const (
	// StateEmpty means no groups are loaded and nothing is in flight.
	StateEmpty State = iota
	// StateLoading means an initial load is in flight.
	StateLoading
	// StateLoaded means a base page is present.
	StateLoaded
	// StateLoadingMore means an append is in flight on top of a base page.
	StateLoadingMore
	// StateFailed means the current request failed; previously committed
	// groups are kept.
	StateFailed
)

// GroupDetail is the identity a drill-down view carries forward from a
// group. The drill-down re-derives its own date range from the bounds; the
// group's session list may be a paged subset and is not trusted.
type GroupDetail struct {
	PeriodStart string
	PeriodEnd   string
	PeriodLabel string
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithPageSize sets the page size requested from the backend.
func WithPageSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

// WithWindow pins the date window instead of deriving the default lookback
// window from the time unit.
func WithWindow(start, end string) Option {
	return func(a *Aggregator) {
		a.windowStart = start
		a.windowEnd = end
	}
}

// WithLogger sets the logger used for discarded-result diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(a *Aggregator) { a.log = log }
}

// WithClock overrides the time source for default-window computation.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// Aggregator drives paginated timeline loading for one project view.
type Aggregator struct {
	client   backend.Timeline
	log      *slog.Logger
	project  string
	pageSize int
	now      func() time.Time

	windowStart string
	windowEnd   string

	coord fetch.Coordinator

	mu      sync.Mutex
	unit    string
	sources []string
	groups  []models.TimelineGroup
	cursor  string
	hasMore bool
	state   State
	err     error
}

// New creates an aggregator for a project with day granularity and no
// source filter.
func New(client backend.Timeline, project string, opts ...Option) *Aggregator {
	a := &Aggregator{
		client:   client,
		log:      slog.Default(),
		project:  project,
		pageSize: DefaultPageSize,
		now:      time.Now,
		unit:     period.UnitDay,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LoadInitial resets the cursor and replaces the group list with the first
// page for the current window, unit, and sources.
func (a *Aggregator) LoadInitial(ctx context.Context) error {
	a.mu.Lock()
	a.cursor = ""
	a.hasMore = false
	a.state = StateLoading
	a.err = nil
	q := a.queryLocked("")
	a.mu.Unlock()

	ticket := a.coord.Begin(fetch.KindInitial)

	page, err := a.client.FetchTimelinePage(ctx, q)

	committed := a.coord.Commit(ticket, fetch.KindInitial, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if err != nil {
			a.state = StateFailed
			a.err = err
			return
		}
		a.groups = page.Groups
		a.cursor = page.NextCursor
		a.hasMore = page.HasMore
		a.state = StateLoaded
	})
	if !committed {
		// Superseded by a newer request; both result and error vanish.
		a.log.Debug("discarded stale timeline page", slog.String("project", a.project))
		return nil
	}
	if err != nil {
		return eris.Wrap(err, "failed to load timeline")
	}
	return nil
}

// LoadMore appends the next page using the stored cursor. It is a no-op
// when no base page exists, no more pages were reported, or an append is
// already in flight.
func (a *Aggregator) LoadMore(ctx context.Context) error {
	a.mu.Lock()
	if a.state != StateLoaded || !a.hasMore || a.cursor == "" {
		a.mu.Unlock()
		return nil
	}
	a.state = StateLoadingMore
	q := a.queryLocked(a.cursor)
	a.mu.Unlock()

	ticket := a.coord.Begin(fetch.KindMore)

	page, err := a.client.FetchTimelinePage(ctx, q)

	committed := a.coord.Commit(ticket, fetch.KindMore, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if err != nil {
			a.state = StateFailed
			a.err = err
			return
		}
		a.groups = append(a.groups, page.Groups...)
		a.cursor = page.NextCursor
		a.hasMore = page.HasMore
		a.state = StateLoaded
	})
	if !committed {
		a.log.Debug("discarded stale timeline append", slog.String("project", a.project))
		return nil
	}
	if err != nil {
		return eris.Wrap(err, "failed to load more timeline groups")
	}
	return nil
}

// SetUnit switches the time unit. A changed unit clears the group list and
// cursor and triggers a fresh initial load; stale groups from the previous
// unit never remain visible.
func (a *Aggregator) SetUnit(ctx context.Context, unit string) error {
	if !period.ValidUnit(unit) {
		return eris.Errorf("invalid time unit: %s", unit)
	}

	a.mu.Lock()
	if unit == a.unit {
		a.mu.Unlock()
		return nil
	}
	a.unit = unit
	a.resetLocked()
	a.mu.Unlock()

	return a.LoadInitial(ctx)
}

// SetSources replaces the source filter (nil or empty = unfiltered), clears
// current groups, and triggers a fresh initial load.
func (a *Aggregator) SetSources(ctx context.Context, sources []string) error {
	a.mu.Lock()
	a.sources = append([]string(nil), sources...)
	a.resetLocked()
	a.mu.Unlock()

	return a.LoadInitial(ctx)
}

// Groups returns the committed group list.
func (a *Aggregator) Groups() []models.TimelineGroup {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.TimelineGroup(nil), a.groups...)
}

// State returns the aggregator's pagination state.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Err returns the error from the most recent failed current request.
func (a *Aggregator) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// HasMore reports whether the backend announced further pages.
func (a *Aggregator) HasMore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasMore
}

// Unit returns the active time unit.
func (a *Aggregator) Unit() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unit
}

// Detail returns the drill-down identity for the group at index i. Groups
// without sessions have no detail affordance.
func (a *Aggregator) Detail(i int) (GroupDetail, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || i >= len(a.groups) {
		return GroupDetail{}, false
	}
	g := a.groups[i]
	if len(g.Sessions) == 0 {
		return GroupDetail{}, false
	}
	return GroupDetail{
		PeriodStart: g.PeriodStart,
		PeriodEnd:   g.PeriodEnd,
		PeriodLabel: g.PeriodLabel,
	}, true
}

func (a *Aggregator) resetLocked() {
	a.groups = nil
	a.cursor = ""
	a.hasMore = false
	a.state = StateEmpty
	a.err = nil
}

func (a *Aggregator) queryLocked(cursor string) backend.TimelineQuery {
	start, end := a.windowStart, a.windowEnd
	if start == "" || end == "" {
		from, to := period.DefaultWindow(a.now(), a.unit)
		start = from.Format(period.DateLayout)
		end = to.Format(period.DateLayout)
	}
	return backend.TimelineQuery{
		ProjectName: a.project,
		TimeUnit:    a.unit,
		RangeStart:  start,
		RangeEnd:    end,
		Sources:     append([]string(nil), a.sources...),
		Cursor:      cursor,
		Limit:       a.pageSize,
	}
}
