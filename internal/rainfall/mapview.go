package rainfall

// Default map center used when no gauge has a valid location (Brasília).
const (
	DefaultCenterLat = -15.7801
	DefaultCenterLon = -47.9292
)

// MapTiles describes the background tile provider.
type MapTiles struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// Marker is a gauge summary placed on the map. Intensity is the gauge total
// relative to the largest total, in [0, 1].
type Marker struct {
	GaugeSummary
	Intensity float64 `json:"intensity"`
}

// MapView is everything a map client needs to render the gauges.
type MapView struct {
	Center  [2]float64 `json:"center"` // lat, lon
	Zoom    int        `json:"zoom"`
	Tiles   MapTiles   `json:"tiles"`
	Markers []Marker   `json:"markers"`
}

// BuildMapView centers on the first placeable summary and scales marker
// intensity by the largest total.
func BuildMapView(summaries []GaugeSummary, tiles MapTiles) MapView {
	view := MapView{
		Center:  [2]float64{DefaultCenterLat, DefaultCenterLon},
		Zoom:    13,
		Tiles:   tiles,
		Markers: make([]Marker, 0, len(summaries)),
	}
	var (
		maxTotal float64
		centered bool
	)
	for _, s := range summaries {
		if !s.HasValidLocation() {
			continue
		}
		if !centered {
			view.Center = [2]float64{*s.Latitude, *s.Longitude}
			view.Zoom = 12
			centered = true
		}
		if s.Total > maxTotal {
			maxTotal = s.Total
		}
	}

	for _, s := range summaries {
		if !s.HasValidLocation() {
			continue
		}
		m := Marker{GaugeSummary: s}
		if maxTotal > 0 {
			m.Intensity = s.Total / maxTotal
		}
		view.Markers = append(view.Markers, m)
	}
	return view
}
