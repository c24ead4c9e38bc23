package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/i474232898/agrorain/internal/rainfall"
)

// Keys under which the local backend keeps its two collections.
const (
	GaugesKey  = "agrorain_gauges"
	RecordsKey = "agrorain_records"
)

// ErrConflict is returned when an entity with the same id already exists.
var ErrConflict = errors.New("already exists")

// LocalStore keeps gauges and records as two JSON arrays in a KV, each
// rewritten in full on every mutation. Subscribers receive the initial
// collection and a fresh snapshot after each mutation.
type LocalStore struct {
	kv     KV
	logger *slog.Logger

	mu      sync.Mutex
	gauges  []rainfall.Gauge
	records []rainfall.RainfallRecord

	gaugeHub  *hub[[]rainfall.Gauge]
	recordHub *hub[[]rainfall.RainfallRecord]
}

var _ rainfall.Store = (*LocalStore)(nil)

// NewLocalStore loads both collections from kv. Missing keys mean empty
// collections.
func NewLocalStore(ctx context.Context, kv KV, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &LocalStore{
		kv:        kv,
		logger:    logger,
		gaugeHub:  newHub[[]rainfall.Gauge](),
		recordHub: newHub[[]rainfall.RainfallRecord](),
	}

	if err := s.load(ctx, GaugesKey, &s.gauges); err != nil {
		return nil, err
	}
	if err := s.load(ctx, RecordsKey, &s.records); err != nil {
		return nil, err
	}
	rainfall.SortByDateDesc(s.records)

	logger.Info("local store loaded", "gauges", len(s.gauges), "records", len(s.records))
	return s, nil
}

func (s *LocalStore) load(ctx context.Context, key string, dst any) error {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.kv.Put(ctx, key, raw)
}

// Kind reports the local backend.
func (s *LocalStore) Kind() rainfall.BackendKind {
	return rainfall.BackendLocal
}

// Ping checks that the KV still answers.
func (s *LocalStore) Ping(ctx context.Context) error {
	if _, err := s.kv.Get(ctx, GaugesKey); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// ListGauges returns the gauges in insertion order.
func (s *LocalStore) ListGauges(_ context.Context) ([]rainfall.Gauge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rainfall.Gauge(nil), s.gauges...), nil
}

// ListRecords returns the records newest first.
func (s *LocalStore) ListRecords(_ context.Context) ([]rainfall.RainfallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rainfall.RainfallRecord(nil), s.records...), nil
}

// CreateGauge appends g and rewrites the gauge collection.
func (s *LocalStore) CreateGauge(ctx context.Context, g rainfall.Gauge) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.gauges {
		if existing.ID == g.ID {
			return "", fmt.Errorf("gauge %s: %w", g.ID, ErrConflict)
		}
	}

	next := make([]rainfall.Gauge, 0, len(s.gauges)+1)
	next = append(next, s.gauges...)
	next = append(next, g)

	if err := s.save(ctx, GaugesKey, next); err != nil {
		return "", err
	}
	s.gauges = next
	s.gaugeHub.publish(append([]rainfall.Gauge(nil), next...))
	return g.ID, nil
}

// DeleteGauge removes the gauge with id and rewrites the gauge collection.
// Records of the gauge are kept.
func (s *LocalStore) DeleteGauge(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]rainfall.Gauge, 0, len(s.gauges))
	for _, g := range s.gauges {
		if g.ID != id {
			next = append(next, g)
		}
	}
	if len(next) == len(s.gauges) {
		return fmt.Errorf("gauge %s: %w", id, ErrNotFound)
	}

	if err := s.save(ctx, GaugesKey, next); err != nil {
		return err
	}
	s.gauges = next
	s.gaugeHub.publish(append([]rainfall.Gauge(nil), next...))
	return nil
}

// CreateRecord adds r, keeps the collection newest first, and rewrites it.
func (s *LocalStore) CreateRecord(ctx context.Context, r rainfall.RainfallRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.ID == r.ID {
			return "", fmt.Errorf("record %s: %w", r.ID, ErrConflict)
		}
	}

	next := make([]rainfall.RainfallRecord, 0, len(s.records)+1)
	next = append(next, r)
	next = append(next, s.records...)
	rainfall.SortByDateDesc(next)

	if err := s.save(ctx, RecordsKey, next); err != nil {
		return "", err
	}
	s.records = next
	s.recordHub.publish(append([]rainfall.RainfallRecord(nil), next...))
	return r.ID, nil
}

// WatchGauges subscribes to gauge snapshots, starting with the current one.
func (s *LocalStore) WatchGauges(_ context.Context) (rainfall.Subscription[[]rainfall.Gauge], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, err := s.gaugeHub.subscribe(append([]rainfall.Gauge(nil), s.gauges...))
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// WatchRecords subscribes to record snapshots, starting with the current one.
func (s *LocalStore) WatchRecords(_ context.Context) (rainfall.Subscription[[]rainfall.RainfallRecord], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, err := s.recordHub.subscribe(append([]rainfall.RainfallRecord(nil), s.records...))
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Close ends all subscriptions and closes the KV.
func (s *LocalStore) Close() error {
	s.gaugeHub.close()
	s.recordHub.close()
	return s.kv.Close()
}
