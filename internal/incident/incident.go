// Package incident loads historical crime incidents from the CSV dataset.
package incident

// Required CSV columns.
const (
	ColArea         = "AREA"
	ColLat          = "LAT"
	ColLon          = "LON"
	ColCrimeCode    = "Crm Cd"
	ColCrimeDesc    = "Crm Cd Desc"
	ColWeaponCode   = "Weapon Used Cd"
	ColWeaponDesc   = "Weapon Desc"
	ColPremisesCode = "Premis Cd"
	ColPremisesDesc = "Premis Desc"
)

// RequiredColumns lists the columns every dataset must carry.
var RequiredColumns = []string{
	ColArea, ColLat, ColLon,
	ColCrimeCode, ColCrimeDesc,
	ColWeaponCode, ColWeaponDesc,
	ColPremisesCode, ColPremisesDesc,
}

// Record is one historical incident row. Nil pointers mark empty cells.
type Record struct {
	Area         *int
	Lat          *float64
	Lon          *float64
	CrimeCode    *int
	CrimeDesc    string
	WeaponCode   *int
	WeaponDesc   string
	PremisesCode *int
	PremisesDesc string
}

// HasCoordinates reports whether both latitude and longitude are present.
func (r Record) HasCoordinates() bool {
	return r.Lat != nil && r.Lon != nil
}
