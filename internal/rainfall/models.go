package rainfall

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for RainfallRecord.Date.
const DateLayout = "2006-01-02"

// Gauge is a fixed rainfall collection point on the property.
// Latitude/Longitude are nil when the stored value was missing or not numeric.
type Gauge struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Description string   `json:"description,omitempty"`
}

// HasValidLocation reports whether both coordinates are present and finite.
func (g Gauge) HasValidLocation() bool {
	return finite(g.Latitude) && finite(g.Longitude)
}

// UnmarshalJSON decodes a gauge tolerating coordinates stored as strings,
// nulls or garbage. Anything that is not a finite number becomes nil.
func (g *Gauge) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Latitude    any    `json:"latitude"`
		Longitude   any    `json:"longitude"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*g = Gauge{
		ID:          raw.ID,
		Name:        raw.Name,
		Latitude:    CoerceFloat(raw.Latitude),
		Longitude:   CoerceFloat(raw.Longitude),
		Description: raw.Description,
	}
	return nil
}

// RainfallRecord is a single dated measurement at one gauge.
type RainfallRecord struct {
	ID      string  `json:"id"`
	GaugeID string  `json:"gaugeId"`
	Amount  float64 `json:"amount"` // mm
	Date    string  `json:"date"`   // YYYY-MM-DD
}

// Day parses the record date as midnight in loc.
func (r RainfallRecord) Day(loc *time.Location) (time.Time, bool) {
	return ParseDate(r.Date, loc)
}

// DashboardStats is the aggregate snapshot shown on the overview.
type DashboardStats struct {
	DailyAverage float64 `json:"dailyAverage"`
	MaxRainfall  float64 `json:"maxRainfall"`
	WeeklyTotal  float64 `json:"weeklyTotal"`
	MonthlyTotal float64 `json:"monthlyTotal"`
	SeasonTotal  float64 `json:"seasonTotal"`
}

// DailyPoint is one bar of the 30-day chart.
type DailyPoint struct {
	Date   string  `json:"date"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// GaugeSummary is a gauge enriched with its accumulated total and latest reading.
type GaugeSummary struct {
	Gauge
	Total      float64 `json:"total"`
	LastAmount float64 `json:"lastAmount"`
	LastDate   string  `json:"lastDate,omitempty"`
}

// UnmarshalJSON decodes the summary fields alongside the embedded gauge,
// whose own UnmarshalJSON would otherwise be promoted and drop them.
func (s *GaugeSummary) UnmarshalJSON(data []byte) error {
	var g Gauge
	if err := json.Unmarshal(data, &g); err != nil {
		return err
	}
	var extra struct {
		Total      float64 `json:"total"`
		LastAmount float64 `json:"lastAmount"`
		LastDate   string  `json:"lastDate"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	*s = GaugeSummary{Gauge: g, Total: extra.Total, LastAmount: extra.LastAmount, LastDate: extra.LastDate}
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CoerceFloat converts a loosely typed stored value into a finite float.
// It returns nil for nil, non-numeric strings, NaN and infinities.
func CoerceFloat(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func finite(p *float64) bool {
	return p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0)
}
