// Package codes builds the code → description lookups used to label the
// crime, weapon and premises inputs.
package codes

import (
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/crime-map/internal/incident"
)

// Conflict records a code seen with two different descriptions.
type Conflict struct {
	Code     int    `json:"code" yaml:"code"`
	Previous string `json:"previous" yaml:"previous"`
	Current  string `json:"current" yaml:"current"`
}

// Option is one selectable code with its display label.
type Option struct {
	Code  int    `json:"code" yaml:"code"`
	Label string `json:"label" yaml:"label"`
}

// Table maps codes to descriptions. Codes keep first-seen order; when a code
// repeats with a different description the later one wins and the pair is
// kept in Conflicts.
type Table struct {
	Name      string
	order     []int
	desc      map[int]string
	Conflicts []Conflict
}

func newTable(name string) *Table {
	return &Table{Name: name, desc: make(map[int]string)}
}

func (t *Table) add(code int, desc string) {
	prev, seen := t.desc[code]
	if !seen {
		t.order = append(t.order, code)
	} else if prev != desc {
		t.Conflicts = append(t.Conflicts, Conflict{Code: code, Previous: prev, Current: desc})
	}
	t.desc[code] = desc
}

// Describe returns the description for code.
func (t *Table) Describe(code int) (string, bool) {
	d, ok := t.desc[code]
	return d, ok
}

// Codes returns codes in first-seen order.
func (t *Table) Codes() []int {
	out := make([]int, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of distinct codes.
func (t *Table) Len() int { return len(t.order) }

// Entries returns the table as a plain map.
func (t *Table) Entries() map[int]string {
	out := make(map[int]string, len(t.desc))
	for k, v := range t.desc {
		out[k] = v
	}
	return out
}

// Label returns the title-cased description shown for code in selectors and
// map popups.
func (t *Table) Label(code int) (string, bool) {
	d, ok := t.desc[code]
	if !ok {
		return "", false
	}
	return cases.Title(language.English).String(d), true
}

// Options returns "code: Description" select options in first-seen order.
func (t *Table) Options() []Option {
	opts := make([]Option, 0, len(t.order))
	for _, code := range t.order {
		label, _ := t.Label(code)
		opts = append(opts, Option{
			Code:  code,
			Label: strconv.Itoa(code) + ": " + label,
		})
	}
	return opts
}

// NoWeapon is the weapon code submitted when no weapon was used. The dataset
// leaves the weapon cell empty for those incidents.
const NoWeapon = 0

// Book holds the three lookups.
type Book struct {
	Crime    *Table
	Weapon   *Table
	Premises *Table
}

// Build derives the lookups from the dataset. Rows with an empty code are
// skipped for that table.
func Build(records []incident.Record) *Book {
	b := &Book{
		Crime:    newTable("crime"),
		Weapon:   newTable("weapon"),
		Premises: newTable("premises"),
	}
	for _, r := range records {
		if r.CrimeCode != nil {
			b.Crime.add(*r.CrimeCode, r.CrimeDesc)
		}
		if r.WeaponCode != nil {
			b.Weapon.add(*r.WeaponCode, r.WeaponDesc)
		}
		if r.PremisesCode != nil {
			b.Premises.add(*r.PremisesCode, r.PremisesDesc)
		}
	}
	b.reportConflicts()
	return b
}

// WeaponOptions returns the weapon selector options led by a "None" entry
// for NoWeapon.
func (b *Book) WeaponOptions() []Option {
	if b.Weapon == nil {
		return []Option{{Code: NoWeapon, Label: "None"}}
	}
	opts := b.Weapon.Options()
	if _, ok := b.Weapon.Describe(NoWeapon); ok {
		return opts
	}
	return append([]Option{{Code: NoWeapon, Label: "None"}}, opts...)
}

// WeaponLabel is Table.Label for the weapon table with NoWeapon read as
// "None".
func (b *Book) WeaponLabel(code int) (string, bool) {
	if b.Weapon != nil {
		if label, ok := b.Weapon.Label(code); ok {
			return label, true
		}
	}
	if code == NoWeapon {
		return "None", true
	}
	return "", false
}

func (b *Book) reportConflicts() {
	for _, t := range []*Table{b.Crime, b.Weapon, b.Premises} {
		if len(t.Conflicts) == 0 {
			continue
		}
		first := t.Conflicts[0]
		zap.L().Warn("codes: inconsistent descriptions, last seen wins",
			zap.String("table", t.Name),
			zap.Int("conflicts", len(t.Conflicts)),
			zap.Int("example_code", first.Code),
			zap.String("previous", first.Previous),
			zap.String("current", first.Current),
		)
	}
}
