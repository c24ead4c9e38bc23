package rainfall

// BackendKind names the persistence backend selected at startup.
type BackendKind string

const (
	BackendRemote BackendKind = "remote"
	BackendLocal  BackendKind = "local"
)

// State is the in-memory view of the collections plus connectivity status.
// It is only changed through Reduce.
type State struct {
	Gauges  []Gauge
	Records []RainfallRecord

	// RecordsVersion increases every time the record set is replaced.
	RecordsVersion uint64

	Backend BackendKind
	// Offline is set when the session runs on local storage; OfflineReason
	// explains why (not configured, or the remote failed at startup).
	Offline       bool
	OfflineReason string
	// ConnError holds the last live-connection failure, cleared on recovery.
	ConnError string
}

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// GaugesReplaced carries a full gauge snapshot.
type GaugesReplaced struct{ Gauges []Gauge }

// RecordsReplaced carries a full record snapshot.
type RecordsReplaced struct{ Records []RainfallRecord }

// ConnectionLost reports a live-update or probe failure.
type ConnectionLost struct{ Err error }

// ConnectionRestored clears a previous ConnectionLost.
type ConnectionRestored struct{}

func (GaugesReplaced) isEvent()     {}
func (RecordsReplaced) isEvent()    {}
func (ConnectionLost) isEvent()     {}
func (ConnectionRestored) isEvent() {}

// Reduce returns the state that results from applying ev to s. Snapshots
// replace the previous collection wholesale. s is not modified.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case GaugesReplaced:
		s.Gauges = cloneGauges(e.Gauges)
		s.ConnError = ""
	case RecordsReplaced:
		s.Records = cloneRecords(e.Records)
		s.RecordsVersion++
	case ConnectionLost:
		if e.Err != nil {
			s.ConnError = e.Err.Error()
		} else {
			s.ConnError = "connection lost"
		}
	case ConnectionRestored:
		s.ConnError = ""
	}
	return s
}

func cloneGauges(in []Gauge) []Gauge {
	out := make([]Gauge, len(in))
	copy(out, in)
	return out
}

func cloneRecords(in []RainfallRecord) []RainfallRecord {
	out := make([]RainfallRecord, len(in))
	copy(out, in)
	return out
}
