package mapview

import (
	"embed"
	"html/template"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crime-map/internal/codes"
	"github.com/sells-group/crime-map/internal/config"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTmpl = template.Must(template.New("page.html.tmpl").Funcs(template.FuncMap{
	"coord": func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
}).ParseFS(templateFS, "templates/*.tmpl"))

// Form holds the values shown in the input form.
type Form struct {
	Date         string `json:"date"`
	Hour         int    `json:"hour"`
	CrimeCode    int    `json:"crime_code"`
	VictAge      int    `json:"vict_age"`
	VictSex      int    `json:"vict_sex"`
	PremisesCode int    `json:"premises_code"`
	WeaponCode   int    `json:"weapon_code"`
	Status       string `json:"status"`
}

// Outcome is the result of the last submission.
type Outcome struct {
	Area     int
	Resolved bool
	Lat      float64
	Lon      float64
}

// Page is everything the HTML page renders.
type Page struct {
	Variant  string
	Form     Form
	Crime    []codes.Option
	Weapon   []codes.Option
	Premises []codes.Option
	Outcome  *Outcome
	Error    string
	Errors   []string
	View     View
	TileURL  string
}

// Labeled reports whether the page shows code selectors.
func (p Page) Labeled() bool { return p.Variant == config.VariantLabeled }

// Render writes the page as HTML.
func Render(w io.Writer, p Page) error {
	if p.View.Markers == nil {
		p.View.Markers = []Marker{}
	}
	if err := pageTmpl.Execute(w, p); err != nil {
		return eris.Wrap(err, "mapview: render page")
	}
	return nil
}
