// Package dashboard assembles site statistics for the currently
// selected partner and serves them over HTTP.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Ducpm1301/ga-webcs/internal/broadcast"
	"github.com/Ducpm1301/ga-webcs/internal/stats"
	"github.com/Ducpm1301/ga-webcs/pkg/bsapi"
)

// ErrNoPartner is returned when statistics are requested before any
// partner is selected.
var ErrNoPartner = eris.New("dashboard: no partner selected")

// ErrStale marks a fetch whose result was superseded by a newer fetch
// before it finished. The caller should drop it silently.
var ErrStale = eris.New("dashboard: fetch superseded")

// Query scopes one statistics fetch.
type Query struct {
	Site      string `json:"site"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Shift     int    `json:"shift"` // zero means all shifts
}

// Result is a fully assembled dashboard payload.
type Result struct {
	Site      string            `json:"site"`
	SiteName  string            `json:"site_name"`
	PartnerID string            `json:"partner_id"`
	Query     Query             `json:"query"`
	Summary   stats.Summary     `json:"summary"`
	Groups    stats.GroupResult `json:"groups"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// View holds the latest assembled result. A generation counter guards
// against out-of-order completion: when a newer fetch starts, any fetch
// still in flight is discarded on arrival instead of overwriting fresh
// data with old.
type View struct {
	api bsapi.Client
	hub *broadcast.Hub

	mu         sync.Mutex
	generation uint64
	result     *Result
	errMsg     string
	loading    bool
}

// NewView creates a view bound to the selection hub. A partner change
// invalidates whatever is in flight.
func NewView(api bsapi.Client, hub *broadcast.Hub) *View {
	v := &View{api: api, hub: hub}
	hub.Subscribe(func(string) { v.Invalidate() })
	return v
}

// Invalidate bumps the generation so in-flight fetches are discarded
// and clears the cached result.
func (v *View) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	v.result = nil
	v.errMsg = ""
}

// Fetch pulls summary rows (and the technology feed where the site
// merges one) for the selected partner, concurrently and fail-fast,
// then assembles the summarized, day-grouped result.
func (v *View) Fetch(ctx context.Context, q Query) (*Result, error) {
	partnerID := v.hub.Selected()
	if partnerID == "" {
		return nil, ErrNoPartner
	}
	desc, err := stats.SiteByTag(q.Site)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.generation++
	gen := v.generation
	v.loading = true
	v.mu.Unlock()

	fetchID := uuid.New().String()
	zap.L().Debug("stats fetch started",
		zap.String("fetch_id", fetchID),
		zap.String("partner_id", partnerID),
		zap.String("site", q.Site),
		zap.String("start", q.StartDate),
		zap.String("end", q.EndDate))

	apiQuery := bsapi.SummaryQuery{
		PartnerID: partnerID,
		Site:      q.Site,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
	}

	var rows []bsapi.ShiftRow
	var snaps []bsapi.TechSnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = v.api.SiteSummary(gctx, apiQuery)
		return err
	})
	if desc.MergeSnapshot {
		g.Go(func() error {
			var err error
			snaps, err = v.api.TechSnapshots(gctx, apiQuery)
			return err
		})
	}
	fetchErr := g.Wait()

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		zap.L().Debug("stats fetch discarded", zap.String("fetch_id", fetchID))
		return nil, ErrStale
	}
	v.loading = false

	if fetchErr != nil {
		v.errMsg = eris.ToString(fetchErr, false)
		zap.L().Error("stats fetch failed",
			zap.String("fetch_id", fetchID),
			zap.Error(fetchErr))
		return nil, eris.Wrap(fetchErr, "dashboard: fetch stats")
	}

	summary := stats.Summarize(desc, rows, snaps)
	groups := stats.GroupByDay(summary.Rows, q.Shift, stats.ExpectedShiftCount(q.StartDate, q.EndDate))

	res := &Result{
		Site:      q.Site,
		SiteName:  desc.Name,
		PartnerID: partnerID,
		Query:     q,
		Summary:   summary,
		Groups:    groups,
		FetchedAt: time.Now().UTC(),
	}
	v.result = res
	v.errMsg = ""

	zap.L().Info("stats fetch complete",
		zap.String("fetch_id", fetchID),
		zap.Int("rows", len(summary.Rows)),
		zap.Int("missing_shifts", groups.MissingShifts))
	return res, nil
}

// Snapshot returns the last assembled result, the last fetch error
// message, and whether a fetch is in flight.
func (v *View) Snapshot() (*Result, string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.result, v.errMsg, v.loading
}
