// Package mapview turns session results into map markers, GeoJSON and the
// HTML page.
package mapview

import (
	"fmt"
	"html"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/crime-map/internal/codes"
	"github.com/sells-group/crime-map/internal/config"
	"github.com/sells-group/crime-map/internal/geo"
	"github.com/sells-group/crime-map/internal/session"
)

// DefaultZoom is the initial zoom level of a non-empty map.
const DefaultZoom = 12

// Marker is one result placed on the map.
type Marker struct {
	Area    int     `json:"area"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Popup   string  `json:"popup"`
	Tooltip string  `json:"tooltip"`
}

// View is the map state for a session.
type View struct {
	Empty   bool      `json:"empty"`
	Center  geo.Point `json:"center"`
	Zoom    int       `json:"zoom"`
	Markers []Marker  `json:"markers"`
}

// Build places one marker per result, in result order, and centres the map
// on the first result. An empty result list yields an empty view.
func Build(results []session.Result, book *codes.Book, variant string) View {
	if len(results) == 0 {
		return View{Empty: true, Markers: []Marker{}}
	}

	v := View{
		Center:  geo.Point{Lat: results[0].Lat, Lon: results[0].Lon},
		Zoom:    DefaultZoom,
		Markers: make([]Marker, 0, len(results)),
	}
	for _, r := range results {
		m := Marker{Area: r.Area, Lat: r.Lat, Lon: r.Lon}
		if variant == config.VariantLabeled && r.Codes != nil {
			m.Popup = labeledPopup(r, book)
			m.Tooltip = fmt.Sprintf("Area: %d, Crime Code: %d", r.Area, r.Codes.Crime)
		} else {
			m.Popup = fmt.Sprintf("Predicted Area: %d", r.Area)
			m.Tooltip = m.Popup
		}
		v.Markers = append(v.Markers, m)
	}
	return v
}

func labeledPopup(r session.Result, book *codes.Book) string {
	if book == nil {
		book = &codes.Book{}
	}
	return fmt.Sprintf("Predicted Area: %d<br>Crime Code: %d - %s<br>Weapon Used: %d - %s<br>Premises: %d - %s",
		r.Area,
		r.Codes.Crime, describe(book.Crime, r.Codes.Crime),
		r.Codes.Weapon, weaponLabel(book, r.Codes.Weapon),
		r.Codes.Premises, describe(book.Premises, r.Codes.Premises),
	)
}

// describe returns the escaped label of code, or "" when unknown.
func describe(t *codes.Table, code int) string {
	if t == nil {
		return ""
	}
	label, _ := t.Label(code)
	return html.EscapeString(label)
}

func weaponLabel(b *codes.Book, code int) string {
	label, _ := b.WeaponLabel(code)
	return html.EscapeString(label)
}

// WithZoom returns v with its initial zoom set to zoom. Empty views and
// non-positive levels keep the current value.
func (v View) WithZoom(zoom int) View {
	if !v.Empty && zoom > 0 {
		v.Zoom = zoom
	}
	return v
}

// GeoJSON encodes the markers as a FeatureCollection of points.
func (v View) GeoJSON() ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(v.Markers))}
	for i, m := range v.Markers {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       fmt.Sprintf("%d", i+1),
			Geometry: geo.Point{Lat: m.Lat, Lon: m.Lon}.Geom(),
			Properties: map[string]interface{}{
				"area":    m.Area,
				"popup":   m.Popup,
				"tooltip": m.Tooltip,
			},
		})
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "mapview: encode geojson")
	}
	return b, nil
}
