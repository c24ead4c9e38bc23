package export

import (
	"bytes"
	"encoding/xml"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/agrorain/internal/rainfall"
)

func ptr(v float64) *float64 { return &v }

func TestWriteKML_Placemark(t *testing.T) {
	summaries := []rainfall.GaugeSummary{{
		Gauge:      rainfall.Gauge{ID: "g1", Name: "A", Latitude: ptr(-10), Longitude: ptr(-50)},
		Total:      12.34,
		LastAmount: 3,
		LastDate:   "2024-02-01",
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, summaries))
	out := buf.String()

	assert.Contains(t, out, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, out, `<kml xmlns="http://www.opengis.net/kml/2.2">`)
	assert.Contains(t, out, "<name>AgroRain - Mapa de Chuva</name>")
	assert.Contains(t, out, "<name>A: 12.3mm</name>")
	assert.Contains(t, out, "<coordinates>-50,-10,0</coordinates>")
	assert.Contains(t, out, "Total safra: 12.3mm. Última chuva: 3mm em 2024-02-01")
}

func TestWriteKML_IsWellFormed(t *testing.T) {
	summaries := []rainfall.GaugeSummary{
		{Gauge: rainfall.Gauge{Name: "Norte <1> & Sul", Latitude: ptr(1), Longitude: ptr(2)}, Total: 5},
		{Gauge: rainfall.Gauge{Name: "B", Latitude: ptr(3), Longitude: ptr(4)}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, summaries))

	var doc kmlRoot
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Document.Placemarks, 2)
	assert.Equal(t, "Norte <1> & Sul: 5.0mm", doc.Document.Placemarks[0].Name)
	assert.Equal(t, "2,1,0", doc.Document.Placemarks[0].Point.Coordinates)
}

func TestWriteKML_MissingValues(t *testing.T) {
	summaries := []rainfall.GaugeSummary{
		{Gauge: rainfall.Gauge{Name: "Seco", Latitude: ptr(1), Longitude: ptr(2)}, Total: math.NaN()},
		{Gauge: rainfall.Gauge{Name: "Sem local"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, summaries))

	var doc kmlRoot
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Document.Placemarks, 1)

	pm := doc.Document.Placemarks[0]
	assert.Equal(t, "Seco: 0.0mm", pm.Name)
	assert.Equal(t, "Total safra: 0.0mm. Última chuva: 0mm em -", pm.Description)
}

func TestWriteKML_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, nil))

	var doc kmlRoot
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "AgroRain - Mapa de Chuva", doc.Document.Name)
	assert.Empty(t, doc.Document.Placemarks)
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, time.March, 5, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, "agrorain_mapa_2024-03-05.kml", Filename(now))
}
