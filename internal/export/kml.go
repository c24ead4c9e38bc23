// Package export renders gauge summaries as a KML 2.2 document.
package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/i474232898/agrorain/internal/common"
	"github.com/i474232898/agrorain/internal/rainfall"
)

const (
	// ContentType is the MIME type of the KML download.
	ContentType = "application/vnd.google-earth.kml+xml"

	kmlNamespace = "http://www.opengis.net/kml/2.2"

	documentName        = "AgroRain - Mapa de Chuva"
	documentDescription = "Dados de pluviometria gerados em AgroRain"
)

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	Xmlns    string      `xml:"xmlns,attr"`
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name        string         `xml:"name"`
	Description string         `xml:"description"`
	Placemarks  []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name        string   `xml:"name"`
	Description string   `xml:"description"`
	Point       kmlPoint `xml:"Point"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

// Filename returns the download name for an export produced at now.
func Filename(now time.Time) string {
	return fmt.Sprintf("agrorain_mapa_%s.kml", now.Format(rainfall.DateLayout))
}

// WriteKML writes one Placemark per summary. Summaries without a valid
// location are skipped.
func WriteKML(w io.Writer, summaries []rainfall.GaugeSummary) error {
	doc := kmlRoot{
		Xmlns: kmlNamespace,
		Document: kmlDocument{
			Name:        documentName,
			Description: documentDescription,
			Placemarks:  make([]kmlPlacemark, 0, len(summaries)),
		},
	}

	for _, s := range summaries {
		if !s.HasValidLocation() {
			continue
		}
		doc.Document.Placemarks = append(doc.Document.Placemarks, placemark(s))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode kml: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func placemark(s rainfall.GaugeSummary) kmlPlacemark {
	total := common.OneDecimal(s.Total)

	lastDate := s.LastDate
	if lastDate == "" {
		lastDate = "-"
	}

	return kmlPlacemark{
		Name: fmt.Sprintf("%s: %smm", s.Name, total),
		Description: fmt.Sprintf("Total safra: %smm. Última chuva: %smm em %s",
			total, common.Plain(s.LastAmount), lastDate),
		Point: kmlPoint{
			Coordinates: fmt.Sprintf("%s,%s,0", coord(*s.Longitude), coord(*s.Latitude)),
		},
	}
}

func coord(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return common.Plain(v)
}
