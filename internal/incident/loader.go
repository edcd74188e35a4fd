package incident

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Opener resolves a dataset source to a reader.
type Opener interface {
	Open(ctx context.Context, source string) (io.ReadCloser, error)
}

// row mirrors the CSV columns before type conversion.
type row struct {
	Area         string `csv:"AREA"`
	Lat          string `csv:"LAT"`
	Lon          string `csv:"LON"`
	CrimeCode    string `csv:"Crm Cd"`
	CrimeDesc    string `csv:"Crm Cd Desc"`
	WeaponCode   string `csv:"Weapon Used Cd"`
	WeaponDesc   string `csv:"Weapon Desc"`
	PremisesCode string `csv:"Premis Cd"`
	PremisesDesc string `csv:"Premis Desc"`
}

// Load opens source and decodes every record.
func Load(ctx context.Context, opener Opener, source string) ([]Record, error) {
	rc, err := opener.Open(ctx, source)
	if err != nil {
		return nil, eris.Wrap(err, "incident: open dataset")
	}
	defer rc.Close() //nolint:errcheck

	records, err := Decode(ctx, rc)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("incident: dataset loaded",
		zap.String("source", source),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// Decode parses CSV incident rows from r. Extra columns are ignored; a
// missing required column is an error. Empty AREA or Crm Cd cells decode to
// nil and are reported in a single warning.
func Decode(ctx context.Context, r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true

	dec, err := csvutil.NewDecoder(cr)
	if err == io.EOF {
		return nil, eris.New("incident: dataset has no header")
	}
	if err != nil {
		return nil, eris.Wrap(err, "incident: read header")
	}

	if err := checkHeader(dec.Header()); err != nil {
		return nil, err
	}

	var (
		records   []Record
		noArea    int
		noCrimeCd int
	)
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "incident: decode cancelled")
		}

		var raw row
		if err := dec.Decode(&raw); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "incident: line %d", line)
		}

		rec, err := raw.record()
		if err != nil {
			return nil, eris.Wrapf(err, "incident: line %d", line)
		}
		if rec.Area == nil {
			noArea++
		}
		if rec.CrimeCode == nil {
			noCrimeCd++
		}
		records = append(records, rec)
	}

	if noArea > 0 || noCrimeCd > 0 {
		zap.L().Warn("incident: rows with empty codes are skipped where the code is needed",
			zap.Int("records", len(records)),
			zap.Int("empty_area", noArea),
			zap.Int("empty_crime_code", noCrimeCd),
		)
	}
	return records, nil
}

func checkHeader(header []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = true
	}
	for _, col := range RequiredColumns {
		if !present[col] {
			return eris.Errorf("incident: missing column %q", col)
		}
	}
	return nil
}

func (r row) record() (Record, error) {
	area, err := parseInt(r.Area)
	if err != nil {
		return Record{}, eris.Wrap(err, ColArea)
	}
	crime, err := parseInt(r.CrimeCode)
	if err != nil {
		return Record{}, eris.Wrap(err, ColCrimeCode)
	}

	rec := Record{
		Area:         area,
		CrimeCode:    crime,
		CrimeDesc:    strings.TrimSpace(r.CrimeDesc),
		WeaponDesc:   strings.TrimSpace(r.WeaponDesc),
		PremisesDesc: strings.TrimSpace(r.PremisesDesc),
	}
	if rec.Lat, err = parseFloat(r.Lat); err != nil {
		return Record{}, eris.Wrap(err, ColLat)
	}
	if rec.Lon, err = parseFloat(r.Lon); err != nil {
		return Record{}, eris.Wrap(err, ColLon)
	}
	if rec.WeaponCode, err = parseInt(r.WeaponCode); err != nil {
		return Record{}, eris.Wrap(err, ColWeaponCode)
	}
	if rec.PremisesCode, err = parseInt(r.PremisesCode); err != nil {
		return Record{}, eris.Wrap(err, ColPremisesCode)
	}
	return rec, nil
}

func isNull(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return true
	}
	return false
}

// parseFloat returns nil for empty or NaN cells.
func parseFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if isNull(s) {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "parse float %q", s)
	}
	if math.IsNaN(f) {
		return nil, nil
	}
	return &f, nil
}

// parseInt accepts "400" and float-formatted "400.0" codes.
func parseInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if isNull(s) {
		return nil, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, eris.Errorf("parse integer %q", s)
	}
	n := int(f)
	return &n, nil
}
