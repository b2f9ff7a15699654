// Package spotsync keeps the spot store in step with the upstream API. Region
// and report requests are queued, deduplicated against what is already
// stored or pending, and drained one at a time per queue.
package spotsync

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/swellmap/swellmap/internal/spot"
)

// Source fetches spot data upstream.
type Source interface {
	SpotsInRegion(ctx context.Context, region spot.Region) ([]spot.Update, error)
	Report(ctx context.Context, spotID string) (spot.Update, error)
	SurfForecast(ctx context.Context, spotID string) ([]spot.SurfPeriod, error)
}

// Config holds configuration for the engine.
type Config struct {
	// Source is the upstream spot API. Required.
	Source Source

	// Store is shared with readers. A new one is created when nil.
	Store *Store

	// DemoMode starts the engine on the offline dataset.
	DemoMode bool

	// Padding is added around each needed box before fetching
	// (default: spot.RegionPadding).
	Padding float64

	// Metrics is optional.
	Metrics *Metrics

	Logger zerolog.Logger
}

// Engine owns the region and report queues and is the only writer of the
// store.
type Engine struct {
	source  Source
	store   *Store
	padding float64
	metrics *Metrics
	logger  zerolog.Logger

	mu            sync.Mutex
	regions       regionQueue
	reports       *reportQueue
	demo          bool
	epoch         uint64
	regionFetches int
	stateChanged  chan struct{}

	regionWake chan struct{}
	reportWake chan struct{}
}

// NewEngine creates an engine. Nothing is fetched until Run is called.
func NewEngine(cfg Config) *Engine {
	store := cfg.Store
	if store == nil {
		store = NewStore()
	}

	padding := cfg.Padding
	if padding == 0 {
		padding = spot.RegionPadding
	}

	e := &Engine{
		source:       cfg.Source,
		store:        store,
		padding:      padding,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger.With().Str("component", "spotsync").Logger(),
		reports:      newReportQueue(),
		stateChanged: make(chan struct{}),
		regionWake:   make(chan struct{}, 1),
		reportWake:   make(chan struct{}, 1),
	}

	if cfg.DemoMode {
		e.demo = true
		e.store.Replace(spot.DemoSpots())
	}

	return e
}

// Run drains both queues until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.drainRegions(ctx)
	}()
	go func() {
		defer wg.Done()
		e.drainReports(ctx)
	}()

	e.wake(e.regionWake)
	e.wake(e.reportWake)

	e.logger.Info().Bool("demo_mode", e.DemoMode()).Msg("spot sync engine started")
	wg.Wait()
	e.logger.Info().Msg("spot sync engine stopped")

	return ctx.Err()
}

// GetSpotsForRegion queues the padded viewport for fetching unless a stored
// or queued region already covers what the viewport shows.
func (e *Engine) GetSpotsForRegion(v spot.Viewport) {
	needed := v.Needed()

	e.mu.Lock()
	if e.regions.covered(needed) {
		e.mu.Unlock()
		e.metrics.recordRequest(kindRegion, false)
		return
	}
	e.regions.push(needed.Pad(e.padding))
	e.notifyLocked()
	e.mu.Unlock()

	e.metrics.recordRequest(kindRegion, true)
	e.wake(e.regionWake)
}

// GetReportsForSpots queues each ID, in order, that is not already queued,
// in flight or stored.
func (e *Engine) GetReportsForSpots(ids []string) {
	queued := 0

	e.mu.Lock()
	for _, id := range ids {
		if id == "" {
			continue
		}
		if e.reports.enqueue(id) {
			queued++
		}
	}
	if queued > 0 {
		e.notifyLocked()
	}
	e.mu.Unlock()

	for range queued {
		e.metrics.recordRequest(kindReport, true)
	}
	for range len(ids) - queued {
		e.metrics.recordRequest(kindReport, false)
	}

	if queued > 0 {
		e.wake(e.reportWake)
	}
}

// GetSpot returns the stored spot or an identity-only placeholder. It never
// triggers a fetch.
func (e *Engine) GetSpot(id string) spot.Spot {
	if s, ok := e.store.Get(id); ok {
		return s
	}
	return spot.NewPlaceholder(id)
}

// Spots returns a read-only snapshot of the store.
func (e *Engine) Spots() map[string]spot.Spot {
	return e.store.Snapshot()
}

// StoredReports returns the IDs whose report and forecast were both merged.
func (e *Engine) StoredReports() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reports.storedIDs()
}

// InFlightReports returns the IDs currently being fetched.
func (e *Engine) InFlightReports() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reports.inFlightIDs()
}

// QueuedReports returns the pending report IDs, oldest first.
func (e *Engine) QueuedReports() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reports.pendingIDs()
}

// StoredRegions returns the regions already served.
func (e *Engine) StoredRegions() []spot.Region {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.regions.storedRegions()
}

// QueuedRegions returns the pending regions, oldest first. The region being
// fetched stays listed until it completes.
func (e *Engine) QueuedRegions() []spot.Region {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.regions.pendingRegions()
}

// DemoMode reports whether the offline dataset is being served.
func (e *Engine) DemoMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.demo
}

// SetDemoMode switches between the offline dataset and live fetching.
// Entering demo mode replaces the store with the demo spots; leaving it
// empties the store. Either way stored regions and reports are forgotten so
// live data is fetched again from scratch. Queued requests are kept.
func (e *Engine) SetDemoMode(enabled bool) {
	e.mu.Lock()
	if e.demo == enabled {
		e.mu.Unlock()
		return
	}

	e.demo = enabled
	e.epoch++
	e.regions.clearStored()
	e.reports.clearStored()
	if enabled {
		e.store.Replace(spot.DemoSpots())
	} else {
		e.store.Replace(nil)
	}
	e.notifyLocked()
	e.mu.Unlock()

	e.logger.Info().Bool("demo_mode", enabled).Msg("demo mode changed")

	if !enabled {
		e.wake(e.regionWake)
		e.wake(e.reportWake)
	}
}

// Subscribe registers for store change events. See Store.Subscribe.
func (e *Engine) Subscribe(buffer int) (<-chan Change, func()) {
	return e.store.Subscribe(buffer)
}

// WaitIdle blocks until no region or report is queued or in flight, or ctx
// is done. In demo mode queued requests are parked, so only in-flight work
// is waited for.
func (e *Engine) WaitIdle(ctx context.Context) error {
	for {
		e.mu.Lock()
		if e.idleLocked() {
			e.mu.Unlock()
			return nil
		}
		changed := e.stateChanged
		e.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func (e *Engine) idleLocked() bool {
	if e.reports.busy() || e.regionFetches > 0 {
		return false
	}
	if e.demo {
		return true
	}
	return len(e.regions.pending) == 0 && !e.reports.waiting()
}

// notifyLocked wakes every WaitIdle caller. e.mu must be held.
func (e *Engine) notifyLocked() {
	close(e.stateChanged)
	e.stateChanged = make(chan struct{})
}

func (e *Engine) wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (e *Engine) drainRegions(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.regionWake:
		}

		for ctx.Err() == nil {
			entry, epoch, ok := e.nextRegion()
			if !ok {
				break
			}
			e.fetchRegion(ctx, entry, epoch)
		}
	}
}

// nextRegion peeks the newest pending region. It stays pending until the
// fetch completes so that covering requests keep being absorbed.
func (e *Engine) nextRegion() (regionEntry, uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.demo {
		return regionEntry{}, 0, false
	}
	entry, ok := e.regions.peek()
	if !ok {
		return regionEntry{}, 0, false
	}
	e.regionFetches++
	return entry, e.epoch, true
}

func (e *Engine) fetchRegion(ctx context.Context, entry regionEntry, epoch uint64) {
	r := entry.region
	fetchCtx, done := e.metrics.startFetch(ctx, kindRegion,
		attribute.Float64("region.top", r.Top),
		attribute.Float64("region.bottom", r.Bottom),
		attribute.Float64("region.left", r.Left),
		attribute.Float64("region.right", r.Right),
	)
	updates, err := e.source.SpotsInRegion(fetchCtx, r)
	done(err)

	e.mu.Lock()
	defer func() {
		e.regionFetches--
		e.notifyLocked()
		e.mu.Unlock()
	}()

	if epoch != e.epoch {
		// Demo mode flipped mid-fetch; the entry stays queued for the next live drain.
		e.logger.Debug().Msg("discarding region fetched before demo mode change")
		return
	}
	if err != nil && ctx.Err() != nil {
		return
	}

	e.regions.remove(entry.seq)

	if err != nil {
		e.logger.Error().Err(err).
			Float64("north", r.Top).
			Float64("south", r.Bottom).
			Float64("west", r.Left).
			Float64("east", r.Right).
			Msg("failed to fetch spots for region")
		return
	}

	e.store.Merge(updates)
	e.regions.markStored(r)
	e.metrics.recordMerged(kindRegion, updates)

	e.logger.Debug().Int("spots", len(updates)).Msg("region stored")
}

func (e *Engine) drainReports(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.reportWake:
		}

		for ctx.Err() == nil {
			id, epoch, ok := e.nextReport()
			if !ok {
				break
			}
			e.fetchReport(ctx, id, epoch)
		}
	}
}

func (e *Engine) nextReport() (string, uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.demo {
		return "", 0, false
	}
	id, ok := e.reports.take()
	if !ok {
		return "", 0, false
	}
	e.notifyLocked()
	return id, e.epoch, true
}

// fetchReport runs the report then forecast sequence for one spot. The ID
// leaves the in-flight set on every path.
func (e *Engine) fetchReport(ctx context.Context, id string, epoch uint64) {
	log := e.logger.With().Str("spot_id", id).Logger()
	stored := false
	requeue := false

	defer func() {
		e.mu.Lock()
		e.reports.finish(id, stored)
		if requeue {
			e.reports.enqueue(id)
		}
		e.notifyLocked()
		e.mu.Unlock()
	}()

	reportCtx, done := e.metrics.startFetch(ctx, kindReport, attribute.String("spot.id", id))
	u, err := e.source.Report(reportCtx, id)
	done(err)
	if err != nil {
		requeue = ctx.Err() != nil
		if !requeue {
			log.Error().Err(err).Msg("failed to fetch spot report")
		}
		return
	}

	// The existence check shares the merge's lock so a demo switch cannot
	// empty the store in between.
	exists := false
	committed := e.commit(epoch, func() {
		e.store.Merge([]spot.Update{u})
		_, exists = e.store.Get(id)
	})
	if !committed {
		requeue = true
		return
	}
	e.metrics.recordMerged(kindReport, []spot.Update{u})
	log = log.With().Str("shape", string(u.Shape)).Logger()

	if !exists {
		log.Warn().Msg("spot missing after report merge, skipping forecast")
		return
	}

	forecastCtx, done := e.metrics.startFetch(ctx, kindForecast, attribute.String("spot.id", id))
	periods, err := e.source.SurfForecast(forecastCtx, id)
	done(err)
	if err != nil {
		requeue = ctx.Err() != nil
		if !requeue {
			log.Error().Err(err).Msg("failed to fetch surf forecast")
		}
		return
	}

	committed = e.commit(epoch, func() {
		e.store.Modify(id, func(s spot.Spot) spot.Spot { return s.WithSurf(periods) })
	})
	if !committed {
		requeue = true
		return
	}

	stored = true
	log.Debug().Msg("report stored")
}

// commit runs write under the engine lock unless demo mode changed since
// epoch was read.
func (e *Engine) commit(epoch uint64, write func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch != e.epoch {
		return false
	}
	write()
	return true
}
