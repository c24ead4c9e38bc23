package rainfall

import (
	"sort"
	"time"
)

// BuildSummaries joins gauges with their records. Only gauges with a valid
// location get a summary; records pointing at unknown gauges are ignored.
func BuildSummaries(gauges []Gauge, records []RainfallRecord) []GaugeSummary {
	byGauge := make(map[string][]RainfallRecord)
	for _, r := range records {
		byGauge[r.GaugeID] = append(byGauge[r.GaugeID], r)
	}

	summaries := make([]GaugeSummary, 0, len(gauges))
	for _, g := range gauges {
		if !g.HasValidLocation() {
			continue
		}
		summaries = append(summaries, summarize(g, byGauge[g.ID]))
	}
	return summaries
}

func summarize(g Gauge, records []RainfallRecord) GaugeSummary {
	s := GaugeSummary{Gauge: g}
	if len(records) == 0 {
		return s
	}

	for _, r := range records {
		s.Total += r.Amount
	}

	latest := latestRecord(records)
	s.LastAmount = latest.Amount
	s.LastDate = latest.Date
	return s
}

// latestRecord picks the record with the greatest date. The sort is stable,
// so ties keep their input order. Unparseable dates sort last.
func latestRecord(records []RainfallRecord) RainfallRecord {
	sorted := make([]RainfallRecord, len(records))
	copy(sorted, records)
	SortByDateDesc(sorted)
	return sorted[0]
}

// SortByDateDesc orders records newest first in place.
func SortByDateDesc(records []RainfallRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		di, okI := records[i].Day(time.UTC)
		dj, okJ := records[j].Day(time.UTC)
		switch {
		case okI && !okJ:
			return true
		case !okI:
			return false
		default:
			return di.After(dj)
		}
	})
}
