package rainfall

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/i474232898/agrorain/internal/observability"
)

// Options tunes the derived views and the live-update loops.
type Options struct {
	Location     *time.Location
	WeekStartsOn time.Weekday
	Tiles        MapTiles
	Backoff      BackoffConfig

	// OfflineReason is shown when the session runs on the local backend.
	OfflineReason string
}

// Status is the connectivity banner exposed to clients.
type Status struct {
	Backend       BackendKind `json:"backend"`
	Offline       bool        `json:"offline"`
	OfflineReason string      `json:"offlineReason,omitempty"`
	ConnError     string      `json:"connectionError,omitempty"`
}

type statsMemo struct {
	version uint64
	day     string
	stats   DashboardStats
	valid   bool
}

// Service owns the application state. Store calls are side effects issued
// here; the state itself only changes through Reduce, driven by snapshots
// delivered on the store subscriptions.
type Service struct {
	store   Store
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    Options

	mu    sync.RWMutex
	state State
	memo  statsMemo

	wg sync.WaitGroup
}

// NewService creates a Service bound to store. The store kind decides the
// offline banner once; it never changes afterwards.
func NewService(store Store, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewMetrics(nil)
	}

	kind := store.Kind()
	st := State{Backend: kind}
	if kind == BackendLocal {
		st.Offline = true
		st.OfflineReason = opts.OfflineReason
	}

	return &Service{
		store:   store,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
		opts:    opts,
		state:   st,
	}
}

// Start loads the current collections and starts one watch loop per
// collection. The loops run until ctx is cancelled; Wait blocks until they
// have released their subscriptions.
func (s *Service) Start(ctx context.Context) {
	if gauges, err := s.store.ListGauges(ctx); err != nil {
		s.logger.Error("initial gauge load failed", "error", err)
		s.dispatch(ConnectionLost{Err: err})
	} else {
		s.dispatch(GaugesReplaced{Gauges: gauges})
	}

	if records, err := s.store.ListRecords(ctx); err != nil {
		s.logger.Error("initial record load failed", "error", err)
		s.dispatch(ConnectionLost{Err: err})
	} else {
		s.dispatch(RecordsReplaced{Records: records})
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		watch(ctx, s, "gauges", s.store.WatchGauges, func(g []Gauge) Event {
			return GaugesReplaced{Gauges: g}
		})
	}()
	go func() {
		defer s.wg.Done()
		watch(ctx, s, "records", s.store.WatchRecords, func(r []RainfallRecord) Event {
			return RecordsReplaced{Records: r}
		})
	}()
}

// Wait blocks until the watch loops started by Start have returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// watch consumes one subscription, reopening it with backoff when it fails.
func watch[T any](
	ctx context.Context,
	s *Service,
	collection string,
	open func(context.Context) (Subscription[T], error),
	toEvent func(T) Event,
) {
	attempt := 0
	for ctx.Err() == nil {
		sub, err := open(ctx)
		if err == nil {
			s.logger.Debug("subscription opened", "collection", collection)
			for {
				snap, nextErr := sub.Next(ctx)
				if nextErr != nil {
					err = nextErr
					break
				}
				attempt = 0
				s.metrics.LiveUpdates.WithLabelValues(collection).Inc()
				s.dispatch(toEvent(snap))
			}
			sub.Stop()
		}

		if ctx.Err() != nil {
			return
		}

		s.logger.Warn("subscription failed", "collection", collection, "error", err, "attempt", attempt)
		s.metrics.ConnectionErrors.WithLabelValues(collection).Inc()
		s.dispatch(ConnectionLost{Err: err})

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.opts.Backoff.Delay(attempt)):
		}
		attempt++
	}
}

func (s *Service) dispatch(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, ev)
}

func (s *Service) snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Probe pings the store and updates the connectivity banner.
func (s *Service) Probe(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		s.metrics.ConnectionErrors.WithLabelValues("probe").Inc()
		s.dispatch(ConnectionLost{Err: err})
		return err
	}
	if s.snapshot().ConnError != "" {
		s.logger.Info("remote backend reachable again")
		s.dispatch(ConnectionRestored{})
	}
	return nil
}

// Backend reports which store the session is running on.
func (s *Service) Backend() BackendKind {
	return s.store.Kind()
}

// CreateGauge validates the input and writes a new gauge. The in-memory
// state is updated by the next gauge snapshot, not here.
func (s *Service) CreateGauge(ctx context.Context, in GaugeInput) (Gauge, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return Gauge{}, err
	}

	g := Gauge{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Description: strings.TrimSpace(in.Description),
	}

	id, err := s.store.CreateGauge(ctx, g)
	if err != nil {
		s.metrics.Writes.WithLabelValues("gauge", "create", "error").Inc()
		return Gauge{}, fmt.Errorf("create gauge: %w", err)
	}
	g.ID = id
	s.metrics.Writes.WithLabelValues("gauge", "create", "ok").Inc()
	s.logger.Info("gauge created", "gauge_id", g.ID, "name", g.Name)
	return g, nil
}

// DeleteGauge removes a gauge. Without confirmation nothing is issued.
func (s *Service) DeleteGauge(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: gauge id is required", ErrValidation)
	}

	if err := s.store.DeleteGauge(ctx, id); err != nil {
		s.metrics.Writes.WithLabelValues("gauge", "delete", "error").Inc()
		return fmt.Errorf("delete gauge %s: %w", id, err)
	}
	s.metrics.Writes.WithLabelValues("gauge", "delete", "ok").Inc()
	s.logger.Info("gauge deleted", "gauge_id", id)
	return nil
}

// CreateRecord validates the input and writes a new record. An empty date
// defaults to today.
func (s *Service) CreateRecord(ctx context.Context, in RecordInput) (RainfallRecord, error) {
	if strings.TrimSpace(in.Date) == "" {
		in.Date = s.now().Format(DateLayout)
	}
	in.Date = strings.TrimSpace(in.Date)
	if err := validateInput(in); err != nil {
		return RainfallRecord{}, err
	}

	r := RainfallRecord{
		ID:      uuid.NewString(),
		GaugeID: in.GaugeID,
		Amount:  *in.Amount,
		Date:    in.Date,
	}

	id, err := s.store.CreateRecord(ctx, r)
	if err != nil {
		s.metrics.Writes.WithLabelValues("record", "create", "error").Inc()
		return RainfallRecord{}, fmt.Errorf("create record: %w", err)
	}
	r.ID = id
	s.metrics.Writes.WithLabelValues("record", "create", "ok").Inc()
	s.logger.Info("record created", "record_id", r.ID, "gauge_id", r.GaugeID, "amount_mm", r.Amount, "date", r.Date)
	return r, nil
}

// Gauges returns the plain gauge listing, including gauges without a valid
// location.
func (s *Service) Gauges() []Gauge {
	return cloneGauges(s.snapshot().Gauges)
}

// Records returns all records newest first.
func (s *Service) Records() []RainfallRecord {
	records := cloneRecords(s.snapshot().Records)
	SortByDateDesc(records)
	return records
}

// Stats returns the dashboard figures, recomputed only when the record set
// or the current day changes.
func (s *Service) Stats() DashboardStats {
	now := s.now()
	day := now.Format(DateLayout)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.memo.valid && s.memo.version == s.state.RecordsVersion && s.memo.day == day {
		return s.memo.stats
	}

	stats := ComputeStats(s.state.Records, now, s.opts.WeekStartsOn)
	s.memo = statsMemo{version: s.state.RecordsVersion, day: day, stats: stats, valid: true}
	return stats
}

// Series returns the 30-day chart data.
func (s *Service) Series() []DailyPoint {
	return DailySeries(s.snapshot().Records, s.now(), SeriesDays)
}

// Summaries returns one summary per gauge with a valid location.
func (s *Service) Summaries() []GaugeSummary {
	st := s.snapshot()
	return BuildSummaries(st.Gauges, st.Records)
}

// MapView returns the map center, tiles and proportional markers.
func (s *Service) MapView() MapView {
	return BuildMapView(s.Summaries(), s.opts.Tiles)
}

// Status returns the connectivity banner.
func (s *Service) Status() Status {
	st := s.snapshot()
	return Status{
		Backend:       st.Backend,
		Offline:       st.Offline,
		OfflineReason: st.OfflineReason,
		ConnError:     st.ConnError,
	}
}

// Now is the service clock in the configured location.
func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) now() time.Time {
	return s.clock.Now().In(s.opts.Location)
}
