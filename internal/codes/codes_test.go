package codes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/crime-map/internal/incident"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func intPtr(n int) *int { return &n }

func TestBuild(t *testing.T) {
	records := []incident.Record{
		{Area: intPtr(1), CrimeCode: intPtr(510), CrimeDesc: "VEHICLE - STOLEN", PremisesCode: intPtr(101), PremisesDesc: "STREET"},
		{Area: intPtr(1), CrimeCode: intPtr(624), CrimeDesc: "BATTERY - SIMPLE ASSAULT", WeaponCode: intPtr(400), WeaponDesc: "STRONG-ARM", PremisesCode: intPtr(501), PremisesDesc: "SINGLE FAMILY DWELLING"},
		{Area: intPtr(2), CrimeCode: intPtr(510), CrimeDesc: "VEHICLE - STOLEN"},
	}

	b := Build(records)

	assert.Equal(t, []int{510, 624}, b.Crime.Codes())
	assert.Equal(t, []int{400}, b.Weapon.Codes())
	assert.Equal(t, []int{101, 501}, b.Premises.Codes())
	assert.Empty(t, b.Crime.Conflicts)

	d, ok := b.Crime.Describe(624)
	assert.True(t, ok)
	assert.Equal(t, "BATTERY - SIMPLE ASSAULT", d)

	_, ok = b.Weapon.Describe(999)
	assert.False(t, ok)
}

func TestBuild_ConflictLastSeenWins(t *testing.T) {
	records := []incident.Record{
		{CrimeCode: intPtr(510), CrimeDesc: "VEHICLE - STOLEN"},
		{CrimeCode: intPtr(330), CrimeDesc: "BURGLARY FROM VEHICLE"},
		{CrimeCode: intPtr(510), CrimeDesc: "AUTO THEFT"},
	}

	b := Build(records)

	d, _ := b.Crime.Describe(510)
	assert.Equal(t, "AUTO THEFT", d)
	assert.Equal(t, []int{510, 330}, b.Crime.Codes())
	require.Len(t, b.Crime.Conflicts, 1)
	assert.Equal(t, Conflict{Code: 510, Previous: "VEHICLE - STOLEN", Current: "AUTO THEFT"}, b.Crime.Conflicts[0])
}

func TestBuild_SkipsEmptyCrimeCode(t *testing.T) {
	records := []incident.Record{
		{Area: intPtr(1), CrimeCode: intPtr(510), CrimeDesc: "VEHICLE - STOLEN"},
		{Area: intPtr(1), CrimeDesc: "UNKNOWN", WeaponCode: intPtr(400), WeaponDesc: "STRONG-ARM"},
	}

	b := Build(records)

	assert.Equal(t, []int{510}, b.Crime.Codes())
	assert.Equal(t, []int{400}, b.Weapon.Codes())
	_, ok := b.Crime.Describe(0)
	assert.False(t, ok)
}

func TestBuild_Empty(t *testing.T) {
	b := Build(nil)
	assert.Equal(t, 0, b.Crime.Len())
	assert.Empty(t, b.Weapon.Codes())
	assert.Empty(t, b.Premises.Entries())
}

func TestOptions(t *testing.T) {
	b := Build([]incident.Record{
		{CrimeCode: intPtr(510), CrimeDesc: "VEHICLE - STOLEN"},
		{CrimeCode: intPtr(624), CrimeDesc: "BATTERY - SIMPLE ASSAULT"},
	})

	opts := b.Crime.Options()
	require.Len(t, opts, 2)
	assert.Equal(t, Option{Code: 510, Label: "510: Vehicle - Stolen"}, opts[0])
	assert.Equal(t, Option{Code: 624, Label: "624: Battery - Simple Assault"}, opts[1])
}

func TestLabel(t *testing.T) {
	b := Build([]incident.Record{{CrimeCode: intPtr(510), CrimeDesc: "VEHICLE - STOLEN"}})

	l, ok := b.Crime.Label(510)
	assert.True(t, ok)
	assert.Equal(t, "Vehicle - Stolen", l)

	_, ok = b.Crime.Label(1)
	assert.False(t, ok)
}

func TestWeaponOptions(t *testing.T) {
	b := Build([]incident.Record{
		{CrimeCode: intPtr(624), WeaponCode: intPtr(400), WeaponDesc: "STRONG-ARM"},
	})

	opts := b.WeaponOptions()
	require.Len(t, opts, 2)
	assert.Equal(t, Option{Code: NoWeapon, Label: "None"}, opts[0])
	assert.Equal(t, Option{Code: 400, Label: "400: Strong-Arm"}, opts[1])

	l, ok := b.WeaponLabel(NoWeapon)
	assert.True(t, ok)
	assert.Equal(t, "None", l)
	l, ok = b.WeaponLabel(400)
	assert.True(t, ok)
	assert.Equal(t, "Strong-Arm", l)
	_, ok = b.WeaponLabel(999)
	assert.False(t, ok)

	empty := &Book{}
	assert.Equal(t, []Option{{Code: NoWeapon, Label: "None"}}, empty.WeaponOptions())
}

func TestEntriesIsCopy(t *testing.T) {
	b := Build([]incident.Record{{CrimeCode: intPtr(510), CrimeDesc: "VEHICLE - STOLEN"}})
	e := b.Crime.Entries()
	e[510] = "changed"
	d, _ := b.Crime.Describe(510)
	assert.Equal(t, "VEHICLE - STOLEN", d)
}
