// Package predict adapts incident attributes to the external area
// classifier and calls it.
package predict

import (
	"context"
	"time"
)

// Victim sex codes.
const (
	SexMale   = 1
	SexFemale = 2
)

// Case status codes.
const (
	StatusActive   = "A"
	StatusInactive = "I"
)

// Query is the 13-column record the model was trained on. The reported date
// always equals the occurrence date.
type Query struct {
	YearOcc      int    `json:"YEAR_occ"`
	MonthOcc     int    `json:"MONTH_occ"`
	DayOcc       int    `json:"DAY_occ"`
	HourOfDayOcc int    `json:"HOUR_OF_DAY_occ"`
	CrimeCode    int    `json:"Crm Cd"`
	VictAge      int    `json:"Vict Age"`
	VictSex      int    `json:"Vict Sex"`
	PremisesCode int    `json:"Premis Cd"`
	WeaponCode   int    `json:"Weapon Used Cd"`
	Status       string `json:"Status"`
	YearRptd     int    `json:"YEAR_rptd"`
	MonthRptd    int    `json:"MONTH_rptd"`
	DayRptd      int    `json:"DAY_rptd"`
}

// Input holds the form fields other than the date.
type Input struct {
	Hour         int
	CrimeCode    int
	VictAge      int
	VictSex      int
	PremisesCode int
	WeaponCode   int
	Status       string
}

// NewQuery spreads date into the occurrence and reported fields.
func NewQuery(date time.Time, in Input) Query {
	y, m, d := date.Date()
	return Query{
		YearOcc:      y,
		MonthOcc:     int(m),
		DayOcc:       d,
		HourOfDayOcc: in.Hour,
		CrimeCode:    in.CrimeCode,
		VictAge:      in.VictAge,
		VictSex:      in.VictSex,
		PremisesCode: in.PremisesCode,
		WeaponCode:   in.WeaponCode,
		Status:       in.Status,
		YearRptd:     y,
		MonthRptd:    int(m),
		DayRptd:      d,
	}
}

// Prediction is the model output. Only Label is used downstream.
type Prediction struct {
	Label int     `json:"prediction_label"`
	Score float64 `json:"prediction_score"`
}

// Predictor returns the predicted area for a query. Implementations do not
// validate field ranges.
type Predictor interface {
	Predict(ctx context.Context, q Query) (*Prediction, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(ctx context.Context, q Query) (*Prediction, error)

// Predict calls f.
func (f PredictorFunc) Predict(ctx context.Context, q Query) (*Prediction, error) {
	return f(ctx, q)
}
