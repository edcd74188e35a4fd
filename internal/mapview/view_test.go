package mapview

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crime-map/internal/codes"
	"github.com/sells-group/crime-map/internal/config"
	"github.com/sells-group/crime-map/internal/geo"
	"github.com/sells-group/crime-map/internal/incident"
	"github.com/sells-group/crime-map/internal/session"
)

func intPtr(v int) *int { return &v }

func testBook() *codes.Book {
	return codes.Build([]incident.Record{
		{
			Area: intPtr(7), CrimeCode: intPtr(510), CrimeDesc: "VEHICLE - STOLEN",
			WeaponCode: intPtr(400), WeaponDesc: "STRONG-ARM",
			PremisesCode: intPtr(101), PremisesDesc: "STREET",
		},
	})
}

func TestBuild_Empty(t *testing.T) {
	v := Build(nil, testBook(), config.VariantLabeled)
	assert.True(t, v.Empty)
	assert.Empty(t, v.Markers)
}

func TestBuild_CentreOnFirstResult(t *testing.T) {
	results := []session.Result{
		{Area: 7, Lat: 34.1, Lon: -118.3},
		{Area: 3, Lat: 34.0, Lon: -118.2},
	}
	v := Build(results, testBook(), config.VariantNumeric)

	assert.False(t, v.Empty)
	assert.Equal(t, geo.Point{Lat: 34.1, Lon: -118.3}, v.Center)
	assert.Equal(t, 12, v.Zoom)
	require.Len(t, v.Markers, 2)
	assert.Equal(t, 7, v.Markers[0].Area)
	assert.Equal(t, 3, v.Markers[1].Area)
}

func TestBuild_NumericText(t *testing.T) {
	v := Build([]session.Result{{Area: 3, Lat: 1, Lon: 2}}, nil, config.VariantNumeric)
	require.Len(t, v.Markers, 1)
	assert.Equal(t, "Predicted Area: 3", v.Markers[0].Popup)
	assert.Equal(t, "Predicted Area: 3", v.Markers[0].Tooltip)
}

func TestWithZoom(t *testing.T) {
	v := Build([]session.Result{{Area: 7, Lat: 34.1, Lon: -118.3}}, nil, config.VariantNumeric)

	assert.Equal(t, 5, v.WithZoom(5).Zoom)
	assert.Equal(t, DefaultZoom, v.WithZoom(0).Zoom)
	assert.Equal(t, DefaultZoom, v.Zoom)

	empty := Build(nil, nil, config.VariantNumeric).WithZoom(5)
	assert.True(t, empty.Empty)
	assert.Equal(t, 0, empty.Zoom)
}

func TestBuild_PopupMatchesOptionLabel(t *testing.T) {
	book := testBook()
	v := Build([]session.Result{{
		Area: 7, Codes: &session.Codes{Crime: 510, Weapon: 400, Premises: 101},
	}}, book, config.VariantLabeled)

	label, ok := book.Crime.Label(510)
	require.True(t, ok)
	assert.Contains(t, v.Markers[0].Popup, "510 - "+label)
	assert.Contains(t, book.Crime.Options()[0].Label, label)
}

func TestBuild_LabeledText(t *testing.T) {
	results := []session.Result{{
		Area: 7, Lat: 34.1, Lon: -118.3,
		Codes: &session.Codes{Crime: 510, Weapon: 400, Premises: 101},
	}}
	v := Build(results, testBook(), config.VariantLabeled)
	require.Len(t, v.Markers, 1)
	assert.Equal(t,
		"Predicted Area: 7<br>Crime Code: 510 - Vehicle - Stolen<br>Weapon Used: 400 - Strong-Arm<br>Premises: 101 - Street",
		v.Markers[0].Popup)
	assert.Equal(t, "Area: 7, Crime Code: 510", v.Markers[0].Tooltip)
}

func TestBuild_LabeledUnknownDescription(t *testing.T) {
	results := []session.Result{{
		Area: 7, Codes: &session.Codes{Crime: 999, Weapon: 0, Premises: 101},
	}}
	v := Build(results, testBook(), config.VariantLabeled)
	assert.Equal(t,
		"Predicted Area: 7<br>Crime Code: 999 - <br>Weapon Used: 0 - None<br>Premises: 101 - Street",
		v.Markers[0].Popup)
}

func TestGeoJSON(t *testing.T) {
	v := Build([]session.Result{{Area: 7, Lat: 34.1, Lon: -118.3}}, nil, config.VariantNumeric)

	b, err := v.GeoJSON()
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(b, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Point", fc.Features[0].Geometry.Type)
	assert.Equal(t, []float64{-118.3, 34.1}, fc.Features[0].Geometry.Coordinates)
	assert.InDelta(t, 7, fc.Features[0].Properties["area"], 0)
	assert.Equal(t, "Predicted Area: 7", fc.Features[0].Properties["tooltip"])
}

func TestGeoJSON_Empty(t *testing.T) {
	b, err := Build(nil, nil, config.VariantNumeric).GeoJSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"FeatureCollection"`)
}

func TestRender_EmptyMap(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Page{
		Variant: config.VariantNumeric,
		Form:    Form{Date: "2024-03-01", VictAge: 30, VictSex: 1, Status: "A"},
		View:    Build(nil, nil, config.VariantNumeric),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "No predictions made yet.")
	assert.Contains(t, out, `name="crime_code" min="0" max="1000"`)
	assert.NotContains(t, out, `id="map"`)
	assert.NotContains(t, out, "Predicted AREA")
}

func TestRender_LabeledWithOutcome(t *testing.T) {
	book := testBook()
	results := []session.Result{{
		Area: 7, Lat: 34.1, Lon: -118.3,
		Codes: &session.Codes{Crime: 510, Weapon: 400, Premises: 101},
	}}

	var buf bytes.Buffer
	err := Render(&buf, Page{
		Variant:  config.VariantLabeled,
		Form:     Form{Date: "2024-03-01", CrimeCode: 510, VictAge: 30, VictSex: 1, Status: "A"},
		Crime:    book.Crime.Options(),
		Weapon:   book.WeaponOptions(),
		Premises: book.Premises.Options(),
		Outcome:  &Outcome{Area: 7, Resolved: true, Lat: 34.1, Lon: -118.3},
		View:     Build(results, book, config.VariantLabeled),
		TileURL:  "https://tiles.example/{z}/{x}/{y}.png",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Predicted AREA: 7")
	assert.Contains(t, out, "Coordinates: Latitude 34.1, Longitude -118.3")
	assert.Contains(t, out, `<option value="510" selected>510: Vehicle - Stolen</option>`)
	assert.Contains(t, out, `id="map"`)
	assert.NotContains(t, out, "No predictions made yet.")
}

func TestRender_UnresolvedOutcome(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Page{
		Variant: config.VariantNumeric,
		Outcome: &Outcome{Area: 42},
		View:    Build(nil, nil, config.VariantNumeric),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Predicted AREA: 42")
	assert.Contains(t, out, "Coordinates: Latitude None, Longitude None")
	assert.Contains(t, out, "No predictions made yet.")
}

func TestRender_Error(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Page{
		Variant: config.VariantNumeric,
		Error:   "prediction failed",
		Errors:  []string{"hour must be at most 23"},
		View:    Build(nil, nil, config.VariantNumeric),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "prediction failed")
	assert.Contains(t, buf.String(), "hour must be at most 23")
}
