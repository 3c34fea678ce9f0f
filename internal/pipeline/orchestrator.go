package pipeline

import (
	"context"
	"io"
	"log"
	"log/slog"
	"path/filepath"

	"github.com/tphakala/birdmap-go/internal/cluster"
	"github.com/tphakala/birdmap-go/internal/ebird"
	"github.com/tphakala/birdmap-go/internal/geo"
	"github.com/tphakala/birdmap-go/internal/logging"
)

// Package-level logger specific to pipeline service
var (
	pkgLogger       *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "pipeline.log")
	serviceLevelVar.Set(slog.LevelDebug)

	pkgLogger, closeLogger, err = logging.NewFileLogger(logFilePath, "pipeline", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize pipeline file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		pkgLogger = slog.New(fbHandler).With("service", "pipeline")
		closeLogger = func() error { return nil }
	}
}

// ObservationSource is the primary query dependency, satisfied by
// *ebird.Client.
type ObservationSource interface {
	GetObservations(ctx context.Context, q *ebird.ObservationQuery) ([]ebird.Observation, error)
}

// Listener receives the orchestrator's outbound signals. Callbacks are
// invoked from the orchestrator's run loop goroutine, never concurrently.
type Listener interface {
	OnClustersUpdated(clusters []*cluster.LocationCluster)
	OnFetchStateChanged(isFetching bool)
	OnError(message string)
}

// Config holds orchestrator construction options.
type Config struct {
	MinMoveKm     float64     // movement threshold for the fetch gate
	DefaultParams QueryParams // params in effect before the first ParamsChanged
	EventBuffer   int         // capacity of the inbound event channel
}

// Orchestrator sequences fetch cycles: gate evaluation, radius
// computation, the primary observation query, normalization,
// best-effort enrichment and publication. All state is owned by the
// Run loop goroutine; at most one cycle is in flight at a time, and
// events arriving mid-cycle are coalesced and re-evaluated when the
// cycle resolves.
type Orchestrator struct {
	source   ObservationSource
	photos   PhotoProvider
	listener Listener
	gate     Gate
	defaults QueryParams
	logger   *slog.Logger

	events chan any
	done   chan struct{}
}

type viewportEvent struct {
	center geo.Point
	bounds *geo.Bounds
}

type paramsEvent struct {
	params QueryParams
}

type fetchResult struct {
	center   geo.Point
	params   QueryParams
	clusters []*cluster.LocationCluster
	err      error
}

// New creates an orchestrator. The photo provider may be nil, in which
// case enrichment is skipped entirely.
func New(source ObservationSource, photos PhotoProvider, listener Listener, cfg Config) *Orchestrator {
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = 16
	}
	defaults := cfg.DefaultParams
	if defaults.Back == 0 {
		defaults.Back = ebird.Back7
	}
	if defaults.Class == "" {
		defaults.Class = ebird.ClassRecent
	}

	return &Orchestrator{
		source:   source,
		photos:   photos,
		listener: listener,
		gate:     NewGate(cfg.MinMoveKm),
		defaults: defaults,
		logger:   pkgLogger,
		events:   make(chan any, buffer),
		done:     make(chan struct{}),
	}
}

// ViewportSettled reports that the map viewport came to rest at the
// given center with optional visible bounds. Safe to call from any
// goroutine; dropped if the orchestrator has stopped.
func (o *Orchestrator) ViewportSettled(center geo.Point, bounds *geo.Bounds) {
	select {
	case o.events <- viewportEvent{center: center, bounds: bounds}:
	case <-o.done:
	}
}

// ParamsChanged reports a change of query parameters. A parameter
// change always warrants a fetch once a viewport is known, regardless
// of movement.
func (o *Orchestrator) ParamsChanged(params QueryParams) {
	select {
	case o.events <- paramsEvent{params: params}:
	case <-o.done:
	}
}

// Done is closed once Run has returned.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Run drives the orchestrator until ctx is cancelled. An in-flight
// cycle is allowed to resolve before Run returns; its result is
// discarded.
func (o *Orchestrator) Run(ctx context.Context) {
	defer close(o.done)

	var prev *FetchState
	center := geo.Point{}
	var bounds *geo.Bounds
	params := o.defaults
	haveViewport := false
	forceFetch := false
	fetching := false
	pending := false

	results := make(chan fetchResult, 1)

	startCycle := func() {
		fetching = true
		forceFetch = false
		o.listener.OnFetchStateChanged(true)

		c, b, p := center, bounds, params
		go func() {
			clusters, err := o.FetchCycle(ctx, c, b, p)
			results <- fetchResult{center: c, params: p, clusters: clusters, err: err}
		}()
	}

	evaluate := func() {
		if !haveViewport {
			return
		}
		if forceFetch || o.gate.ShouldFetch(center, params, prev) {
			startCycle()
		}
	}

	for {
		select {
		case <-ctx.Done():
			if fetching {
				<-results
				o.listener.OnFetchStateChanged(false)
			}
			o.logger.Info("pipeline stopped")
			return

		case ev := <-o.events:
			switch e := ev.(type) {
			case viewportEvent:
				center = e.center
				bounds = e.bounds
				haveViewport = true
			case paramsEvent:
				params = e.params
				forceFetch = true
			}
			if fetching {
				pending = true
				continue
			}
			evaluate()

		case res := <-results:
			fetching = false
			o.listener.OnFetchStateChanged(false)

			if res.err != nil {
				o.logger.Error("observation fetch failed",
					"lat", res.center.Lat,
					"lng", res.center.Lng,
					"error", res.err)
				o.listener.OnError("failed to fetch observations, will retry on next map move")
			} else {
				o.listener.OnClustersUpdated(res.clusters)
				prev = &FetchState{Center: res.center, Params: res.params}
				o.logger.Debug("published clusters",
					"clusters", len(res.clusters),
					"lat", res.center.Lat,
					"lng", res.center.Lng)
			}

			// Re-evaluate anything that arrived while the cycle was in flight
			if pending {
				pending = false
				evaluate()
			}
		}
	}
}

// FetchCycle performs one full cycle for the given viewport: radius
// estimation, primary query, normalization and best-effort enrichment.
// It does not consult the gate or touch orchestrator state, so it can
// also be used for one-shot queries.
func (o *Orchestrator) FetchCycle(ctx context.Context, center geo.Point, bounds *geo.Bounds, params QueryParams) ([]*cluster.LocationCluster, error) {
	radius := geo.ViewportRadius(bounds)

	query := &ebird.ObservationQuery{
		Lat:    center.Lat,
		Lng:    center.Lng,
		DistKm: radius,
		Back:   params.Back,
		Class:  params.Class,
	}

	observations, err := o.source.GetObservations(ctx, query)
	if err != nil {
		return nil, err
	}

	clusters := cluster.Normalize(observations)
	clusters = o.Enrich(ctx, clusters)

	o.logger.Debug("fetch cycle complete",
		"observations", len(observations),
		"clusters", len(clusters),
		"radius_km", radius)

	return clusters, nil
}
