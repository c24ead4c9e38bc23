package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/sony/gobreaker"
	"google.golang.org/api/option"

	"github.com/i474232898/agrorain/internal/rainfall"
)

// Firestore collection names.
const (
	gaugesCollection  = "gauges"
	recordsCollection = "records"
)

// RemoteConfig holds the Firestore connection settings.
type RemoteConfig struct {
	ProjectID       string
	CredentialsFile string
	Breaker         BreakerConfig
}

// RemoteStore keeps gauges and records as Firestore documents. Document
// fields mirror the domain shapes without the id, which Firestore assigns.
type RemoteStore struct {
	client  *firestore.Client
	circuit *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

var _ rainfall.Store = (*RemoteStore)(nil)

// NewRemoteStore creates the Firestore client. It does not contact the
// backend; call Ping for that.
func NewRemoteStore(ctx context.Context, cfg RemoteConfig, logger *slog.Logger) (*RemoteStore, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	return &RemoteStore{
		client:  client,
		circuit: newBreaker("firestore", cfg.Breaker),
		logger:  logger.With("backend", "firestore", "project", cfg.ProjectID),
	}, nil
}

// Kind reports the remote backend.
func (s *RemoteStore) Kind() rainfall.BackendKind {
	return rainfall.BackendRemote
}

// Ping reads at most one gauge document.
func (s *RemoteStore) Ping(ctx context.Context) error {
	_, err := guarded(s.circuit, func() ([]*firestore.DocumentSnapshot, error) {
		return s.client.Collection(gaugesCollection).Limit(1).Documents(ctx).GetAll()
	})
	return err
}

// ListGauges reads the whole gauge collection.
func (s *RemoteStore) ListGauges(ctx context.Context) ([]rainfall.Gauge, error) {
	docs, err := guarded(s.circuit, func() ([]*firestore.DocumentSnapshot, error) {
		return s.client.Collection(gaugesCollection).Documents(ctx).GetAll()
	})
	if err != nil {
		return nil, fmt.Errorf("list gauges: %w", err)
	}
	return gaugesFromDocs(docs), nil
}

// ListRecords reads the record collection ordered by date, newest first.
func (s *RemoteStore) ListRecords(ctx context.Context) ([]rainfall.RainfallRecord, error) {
	docs, err := guarded(s.circuit, func() ([]*firestore.DocumentSnapshot, error) {
		return s.recordsQuery().Documents(ctx).GetAll()
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recordsFromDocs(docs), nil
}

// CreateGauge adds a gauge document and returns the id Firestore assigned.
func (s *RemoteStore) CreateGauge(ctx context.Context, g rainfall.Gauge) (string, error) {
	ref, err := guarded(s.circuit, func() (*firestore.DocumentRef, error) {
		ref, _, err := s.client.Collection(gaugesCollection).Add(ctx, gaugeData(g))
		return ref, err
	})
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

// DeleteGauge deletes the gauge document. Deleting a missing document is
// not an error in Firestore.
func (s *RemoteStore) DeleteGauge(ctx context.Context, id string) error {
	_, err := guarded(s.circuit, func() (*firestore.WriteResult, error) {
		return s.client.Collection(gaugesCollection).Doc(id).Delete(ctx)
	})
	return err
}

// CreateRecord adds a record document and returns the id Firestore assigned.
func (s *RemoteStore) CreateRecord(ctx context.Context, r rainfall.RainfallRecord) (string, error) {
	ref, err := guarded(s.circuit, func() (*firestore.DocumentRef, error) {
		ref, _, err := s.client.Collection(recordsCollection).Add(ctx, recordData(r))
		return ref, err
	})
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

// WatchGauges streams full gauge snapshots.
func (s *RemoteStore) WatchGauges(ctx context.Context) (rainfall.Subscription[[]rainfall.Gauge], error) {
	s.logger.Debug("opening snapshot listener", "collection", gaugesCollection)
	it := s.client.Collection(gaugesCollection).Snapshots(ctx)
	return &snapshotSub[[]rainfall.Gauge]{it: it, decode: gaugesFromDocs}, nil
}

// WatchRecords streams full record snapshots, newest first.
func (s *RemoteStore) WatchRecords(ctx context.Context) (rainfall.Subscription[[]rainfall.RainfallRecord], error) {
	s.logger.Debug("opening snapshot listener", "collection", recordsCollection)
	it := s.recordsQuery().Snapshots(ctx)
	return &snapshotSub[[]rainfall.RainfallRecord]{it: it, decode: recordsFromDocs}, nil
}

// Close closes the Firestore client.
func (s *RemoteStore) Close() error {
	return s.client.Close()
}

func (s *RemoteStore) recordsQuery() firestore.Query {
	return s.client.Collection(recordsCollection).OrderBy("date", firestore.Desc)
}

// snapshotSub adapts a Firestore snapshot iterator. The iterator is bound
// to the context it was opened with.
type snapshotSub[T any] struct {
	it     *firestore.QuerySnapshotIterator
	decode func([]*firestore.DocumentSnapshot) T
}

func (s *snapshotSub[T]) Next(_ context.Context) (T, error) {
	var zero T
	qs, err := s.it.Next()
	if err != nil {
		return zero, err
	}
	docs, err := qs.Documents.GetAll()
	if err != nil {
		return zero, err
	}
	return s.decode(docs), nil
}

func (s *snapshotSub[T]) Stop() {
	s.it.Stop()
}

func gaugeData(g rainfall.Gauge) map[string]interface{} {
	data := map[string]interface{}{
		"name":        g.Name,
		"latitude":    nil,
		"longitude":   nil,
		"description": g.Description,
	}
	if g.Latitude != nil {
		data["latitude"] = *g.Latitude
	}
	if g.Longitude != nil {
		data["longitude"] = *g.Longitude
	}
	return data
}

func recordData(r rainfall.RainfallRecord) map[string]interface{} {
	return map[string]interface{}{
		"gaugeId": r.GaugeID,
		"amount":  r.Amount,
		"date":    r.Date,
	}
}

func gaugesFromDocs(docs []*firestore.DocumentSnapshot) []rainfall.Gauge {
	out := make([]rainfall.Gauge, 0, len(docs))
	for _, d := range docs {
		out = append(out, gaugeFromData(d.Ref.ID, d.Data()))
	}
	return out
}

func recordsFromDocs(docs []*firestore.DocumentSnapshot) []rainfall.RainfallRecord {
	out := make([]rainfall.RainfallRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, recordFromData(d.Ref.ID, d.Data()))
	}
	return out
}

// gaugeFromData decodes a gauge document leniently; malformed coordinates
// become nil so the gauge drops out of the map but stays listed.
func gaugeFromData(id string, data map[string]interface{}) rainfall.Gauge {
	return rainfall.Gauge{
		ID:          id,
		Name:        stringField(data, "name"),
		Latitude:    rainfall.CoerceFloat(data["latitude"]),
		Longitude:   rainfall.CoerceFloat(data["longitude"]),
		Description: stringField(data, "description"),
	}
}

func recordFromData(id string, data map[string]interface{}) rainfall.RainfallRecord {
	r := rainfall.RainfallRecord{
		ID:      id,
		GaugeID: stringField(data, "gaugeId"),
	}
	if amount := rainfall.CoerceFloat(data["amount"]); amount != nil {
		r.Amount = *amount
	}
	switch d := data["date"].(type) {
	case string:
		r.Date = strings.TrimSpace(d)
	case time.Time:
		r.Date = d.UTC().Format(rainfall.DateLayout)
	}
	return r
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
