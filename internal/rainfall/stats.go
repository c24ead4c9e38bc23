package rainfall

import "time"

// SeriesDays is the length of the dashboard time series.
const SeriesDays = 30

// Boundaries are the inclusive lower bounds of the aggregation windows.
type Boundaries struct {
	WeekStart   time.Time
	MonthStart  time.Time
	SeasonStart time.Time
}

// BoundariesAt computes the window starts for now, in now's location.
// The season is the current calendar year.
func BoundariesAt(now time.Time, weekStartsOn time.Weekday) Boundaries {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	diff := (int(today.Weekday()) - int(weekStartsOn) + 7) % 7

	return Boundaries{
		WeekStart:   today.AddDate(0, 0, -diff),
		MonthStart:  time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc),
		SeasonStart: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc),
	}
}

// ComputeStats aggregates records into the dashboard snapshot.
//
// Range totals have no upper bound, so future-dated records are included.
// Records with an unparseable date are left out of the range totals but
// still count toward MaxRainfall and the DailyAverage denominator.
//
// DailyAverage is SeasonTotal divided by the number of all records, not the
// number of season records.
func ComputeStats(records []RainfallRecord, now time.Time, weekStartsOn time.Weekday) DashboardStats {
	if len(records) == 0 {
		return DashboardStats{}
	}

	b := BoundariesAt(now, weekStartsOn)
	loc := now.Location()

	var weekly, monthly, season float64
	maxAmount := records[0].Amount

	for _, r := range records {
		if r.Amount > maxAmount {
			maxAmount = r.Amount
		}

		day, ok := r.Day(loc)
		if !ok {
			continue
		}
		if !day.Before(b.WeekStart) {
			weekly += r.Amount
		}
		if !day.Before(b.MonthStart) {
			monthly += r.Amount
		}
		if !day.Before(b.SeasonStart) {
			season += r.Amount
		}
	}

	return DashboardStats{
		DailyAverage: season / float64(len(records)),
		MaxRainfall:  maxAmount,
		WeeklyTotal:  weekly,
		MonthlyTotal: monthly,
		SeasonTotal:  season,
	}
}

// DailySeries returns one point per calendar day for the last `days` days
// including today, oldest first. A day's amount is the sum of records whose
// date string equals that day exactly; days without records are zero.
func DailySeries(records []RainfallRecord, now time.Time, days int) []DailyPoint {
	if days <= 0 {
		return nil
	}

	byDay := make(map[string]float64, len(records))
	for _, r := range records {
		byDay[r.Date] += r.Amount
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	points := make([]DailyPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		key := d.Format(DateLayout)
		points = append(points, DailyPoint{
			Date:   key,
			Label:  d.Format("02/01"),
			Amount: byDay[key],
		})
	}
	return points
}
