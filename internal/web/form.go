package web

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"

	"github.com/sells-group/crime-map/internal/codes"
	"github.com/sells-group/crime-map/internal/config"
	"github.com/sells-group/crime-map/internal/mapview"
	"github.com/sells-group/crime-map/internal/predict"
)

const dateLayout = "2006-01-02"

// PredictRequest is the prediction form, submitted either as an HTML form
// or as JSON.
type PredictRequest struct {
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Hour         int    `json:"hour" validate:"gte=0,lte=23"`
	CrimeCode    int    `json:"crime_code" validate:"gte=0,lte=1000"`
	VictAge      int    `json:"vict_age" validate:"gte=0,lte=120"`
	VictSex      int    `json:"vict_sex" validate:"oneof=1 2"`
	PremisesCode int    `json:"premises_code" validate:"gte=0,lte=1000"`
	WeaponCode   int    `json:"weapon_code" validate:"gte=0,lte=1000"`
	Status       string `json:"status" validate:"oneof=A I"`
}

// FieldError is one rejected form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string { return e.Field + ": " + e.Message }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

var fieldMessages = map[string]string{
	"required": "is required",
	"datetime": "must be a date in YYYY-MM-DD format",
	"gte":      "must be at least %s",
	"lte":      "must be at most %s",
	"oneof":    "must be one of %s",
}

// Validate checks field ranges and, for the labeled variant, that every code
// is present in its lookup table. codes.NoWeapon is always accepted.
func (r *PredictRequest) Validate(variant string, book *codes.Book) []FieldError {
	var out []FieldError

	err := getValidator().Struct(r)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			msg, ok := fieldMessages[fe.Tag()]
			if !ok {
				msg = "is invalid"
			}
			if strings.Contains(msg, "%s") {
				msg = fmt.Sprintf(msg, fe.Param())
			}
			out = append(out, FieldError{Field: fe.Field(), Message: msg})
		}
	} else if err != nil {
		out = append(out, FieldError{Field: "form", Message: err.Error()})
	}

	if variant == config.VariantLabeled && book != nil {
		for _, c := range []struct {
			field string
			table *codes.Table
			code  int
		}{
			{"crime_code", book.Crime, r.CrimeCode},
			{"premises_code", book.Premises, r.PremisesCode},
			{"weapon_code", book.Weapon, r.WeaponCode},
		} {
			if c.table == nil || (c.field == "weapon_code" && c.code == codes.NoWeapon) {
				continue
			}
			if _, ok := c.table.Describe(c.code); !ok {
				out = append(out, FieldError{Field: c.field, Message: "is not a known code"})
			}
		}
	}
	return out
}

// Query converts a validated request into the model query.
func (r *PredictRequest) Query() (predict.Query, error) {
	date, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return predict.Query{}, eris.Wrap(err, "web: parse date")
	}
	return predict.NewQuery(date, predict.Input{
		Hour:         r.Hour,
		CrimeCode:    r.CrimeCode,
		VictAge:      r.VictAge,
		VictSex:      r.VictSex,
		PremisesCode: r.PremisesCode,
		WeaponCode:   r.WeaponCode,
		Status:       r.Status,
	}), nil
}

// Form returns the request as page form values.
func (r *PredictRequest) Form() mapview.Form {
	return mapview.Form{
		Date:         r.Date,
		Hour:         r.Hour,
		CrimeCode:    r.CrimeCode,
		VictAge:      r.VictAge,
		VictSex:      r.VictSex,
		PremisesCode: r.PremisesCode,
		WeaponCode:   r.WeaponCode,
		Status:       r.Status,
	}
}

// parseForm reads a PredictRequest from url-encoded form values. Integer
// fields that do not parse are reported as field errors.
func parseForm(req *http.Request) (*PredictRequest, []FieldError) {
	if err := req.ParseForm(); err != nil {
		return nil, []FieldError{{Field: "form", Message: err.Error()}}
	}

	var errs []FieldError
	atoi := func(name string) int {
		raw := strings.TrimSpace(req.PostForm.Get(name))
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, FieldError{Field: name, Message: "must be a whole number"})
		}
		return v
	}

	r := &PredictRequest{
		Date:         strings.TrimSpace(req.PostForm.Get("date")),
		Hour:         atoi("hour"),
		CrimeCode:    atoi("crime_code"),
		VictAge:      atoi("vict_age"),
		VictSex:      atoi("vict_sex"),
		PremisesCode: atoi("premises_code"),
		WeaponCode:   atoi("weapon_code"),
		Status:       strings.TrimSpace(req.PostForm.Get("status")),
	}
	return r, errs
}

// defaultForm is the form shown before the first submission.
func defaultForm(now time.Time, variant string, book *codes.Book) mapview.Form {
	f := mapview.Form{
		Date:    now.Format(dateLayout),
		VictAge: 30,
		VictSex: predict.SexMale,
		Status:  predict.StatusActive,
	}
	if variant == config.VariantLabeled && book != nil {
		f.CrimeCode = firstCode(book.Crime)
		f.PremisesCode = firstCode(book.Premises)
		f.WeaponCode = firstCode(book.Weapon)
	}
	return f
}

func firstCode(t *codes.Table) int {
	if t == nil || t.Len() == 0 {
		return 0
	}
	return t.Codes()[0]
}
