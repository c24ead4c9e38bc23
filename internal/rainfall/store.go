package rainfall

import "context"

// Subscription is a cancelable sequence of full-collection snapshots.
// Next blocks until the next snapshot is available. Once Next returns an
// error the subscription is finished and a new one has to be opened.
type Subscription[T any] interface {
	Next(ctx context.Context) (T, error)
	Stop()
}

// GaugeStore persists gauges. Create methods return the identifier the
// stored entity ended up with; a store may assign its own.
type GaugeStore interface {
	ListGauges(ctx context.Context) ([]Gauge, error)
	CreateGauge(ctx context.Context, g Gauge) (string, error)
	DeleteGauge(ctx context.Context, id string) error
	WatchGauges(ctx context.Context) (Subscription[[]Gauge], error)
}

// RecordStore persists rainfall records. ListRecords and WatchRecords yield
// records newest first.
type RecordStore interface {
	ListRecords(ctx context.Context) ([]RainfallRecord, error)
	CreateRecord(ctx context.Context, r RainfallRecord) (string, error)
	WatchRecords(ctx context.Context) (Subscription[[]RainfallRecord], error)
}

// Store is the persistence capability selected once at startup.
type Store interface {
	GaugeStore
	RecordStore
	Kind() BackendKind
	Ping(ctx context.Context) error
	Close() error
}
