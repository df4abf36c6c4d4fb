// Package model defines the request, score and report types shared by the
// feasibility engine, plus its error taxonomy.
package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BusinessType is the closed set of business formats the engine scores.
type BusinessType string

const (
	BusinessCafe        BusinessType = "cafe"
	BusinessGym         BusinessType = "gym"
	BusinessRestaurant  BusinessType = "restaurant"
	BusinessHostelMess  BusinessType = "hostel-mess"
	BusinessStationery  BusinessType = "stationery"
	BusinessRetail      BusinessType = "retail"
	BusinessPharmacy    BusinessType = "pharmacy"
	BusinessBeautySalon BusinessType = "beauty-salon"
	BusinessOther       BusinessType = "other"
)

var businessLabels = map[BusinessType]string{
	BusinessCafe:        "Cafe",
	BusinessGym:         "Gym / Fitness",
	BusinessRestaurant:  "Restaurant",
	BusinessHostelMess:  "Hostel Mess",
	BusinessStationery:  "Stationery / Print",
	BusinessRetail:      "Retail Store",
	BusinessPharmacy:    "Pharmacy",
	BusinessBeautySalon: "Beauty Salon",
	BusinessOther:       "Business",
}

// businessAliases maps common spellings onto canonical types.
var businessAliases = map[string]BusinessType{
	"coffee-shop":  BusinessCafe,
	"fitness":      BusinessGym,
	"mess":         BusinessHostelMess,
	"retail-store": BusinessRetail,
	"salon":        BusinessBeautySalon,
	"chemist":      BusinessPharmacy,
}

// AllBusinessTypes returns every business type in a stable order.
func AllBusinessTypes() []BusinessType {
	return []BusinessType{
		BusinessCafe, BusinessGym, BusinessRestaurant, BusinessHostelMess,
		BusinessStationery, BusinessRetail, BusinessPharmacy, BusinessBeautySalon,
		BusinessOther,
	}
}

// ParseBusinessType normalizes a free-form name ("Hostel Mess", "hostel_mess")
// onto the closed set. Unknown names map to BusinessOther.
func ParseBusinessType(name string) BusinessType {
	n := cases.Lower(language.Und).String(strings.TrimSpace(name))
	n = strings.NewReplacer("_", "-", " ", "-", "/", "-").Replace(n)
	for strings.Contains(n, "--") {
		n = strings.ReplaceAll(n, "--", "-")
	}
	bt := BusinessType(n)
	if _, ok := businessLabels[bt]; ok {
		return bt
	}
	if alias, ok := businessAliases[n]; ok {
		return alias
	}
	return BusinessOther
}

// UnmarshalText parses through ParseBusinessType so JSON bodies accept the
// same spellings as the CLI and site lists. A blank value stays blank and
// fails validation.
func (b *BusinessType) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*b = ""
		return nil
	}
	*b = ParseBusinessType(string(text))
	return nil
}

// Valid reports whether b is one of the canonical business types.
func (b BusinessType) Valid() bool {
	_, ok := businessLabels[b]
	return ok
}

// Label returns the display label for the business type.
func (b BusinessType) Label() string {
	if l, ok := businessLabels[b]; ok {
		return l
	}
	return businessLabels[BusinessOther]
}
