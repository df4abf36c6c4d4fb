// Package scoring turns competitor lists, density samples and business
// parameters into demand, risk and competition scores with a narrative.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/site-feasibility/internal/config"
	"github.com/sells-group/site-feasibility/internal/model"
)

// Config holds every constant the engine scores with.
type Config struct {
	MaxDensity         float64
	CompetitionPerKm2  float64
	EmptyMarketScore   int
	NeutralCompetition int
	DefaultOpenHours   string
	CityDemandAdjust   map[string]int
	Profiles           map[model.BusinessType]Profile
}

// DefaultConfig returns the built-in scoring constants.
func DefaultConfig() Config {
	return Config{
		MaxDensity:         5000,
		CompetitionPerKm2:  15,
		EmptyMarketScore:   10,
		NeutralCompetition: 0,
		DefaultOpenHours:   "08:00-22:00",
		CityDemandAdjust:   config.DefaultCityDemandAdjust(),
		Profiles:           DefaultProfiles(),
	}
}

// FromConfig overlays the configured values onto DefaultConfig and validates
// the result. Profile keys are parsed as business types.
func FromConfig(sc config.ScoringConfig) (Config, error) {
	c := DefaultConfig()
	if sc.MaxDensity > 0 {
		c.MaxDensity = sc.MaxDensity
	}
	if sc.CompetitionPerKm2 > 0 {
		c.CompetitionPerKm2 = sc.CompetitionPerKm2
	}
	c.EmptyMarketScore = sc.EmptyMarketScore
	c.NeutralCompetition = sc.NeutralCompetition
	if strings.TrimSpace(sc.DefaultOpenHours) != "" {
		c.DefaultOpenHours = sc.DefaultOpenHours
	}
	if sc.CityDemandAdjust != nil {
		c.CityDemandAdjust = make(map[string]int, len(sc.CityDemandAdjust))
		for city, adj := range sc.CityDemandAdjust {
			c.CityDemandAdjust[NormalizeCity(city)] = adj
		}
	}

	var unknown []string
	for name, pc := range sc.Profiles {
		bt := model.ParseBusinessType(name)
		if bt == model.BusinessOther && NormalizeCity(name) != string(model.BusinessOther) {
			unknown = append(unknown, name)
			continue
		}
		c.Profiles[bt] = c.Profiles[bt].merge(pc)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Config{}, eris.Errorf("scoring: unknown business types in profiles: %s", strings.Join(unknown, ", "))
	}

	if err := ValidateConfig(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ValidateConfig checks that a Config is internally consistent.
func ValidateConfig(c Config) error {
	var errs []string

	if c.MaxDensity <= 0 {
		errs = append(errs, "max_density must be > 0")
	}
	if c.CompetitionPerKm2 <= 0 {
		errs = append(errs, "competition_per_km2 must be > 0")
	}
	if c.EmptyMarketScore < 0 || c.EmptyMarketScore > 100 {
		errs = append(errs, "empty_market_score must be between 0 and 100")
	}
	if c.NeutralCompetition < 0 || c.NeutralCompetition > 100 {
		errs = append(errs, "neutral_competition must be between 0 and 100")
	}
	if _, ok := ParseHours(c.DefaultOpenHours); !ok {
		errs = append(errs, fmt.Sprintf("default_open_hours %q is not HH:MM-HH:MM", c.DefaultOpenHours))
	}

	for _, bt := range model.AllBusinessTypes() {
		p, ok := c.Profiles[bt]
		if !ok {
			errs = append(errs, fmt.Sprintf("profile %s is missing", bt))
			continue
		}
		if p.BudgetMin < 0 || p.BudgetMax < p.BudgetMin {
			errs = append(errs, fmt.Sprintf("profile %s: budget range must satisfy 0 <= min <= max", bt))
		}
		if p.CapacityMin < 0 || p.CapacityMax < p.CapacityMin {
			errs = append(errs, fmt.Sprintf("profile %s: capacity range must satisfy 0 <= min <= max", bt))
		}
		if p.FallbackDemand < 0 || p.FallbackDemand > 100 {
			errs = append(errs, fmt.Sprintf("profile %s: fallback_demand must be between 0 and 100", bt))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// NormalizeCity lowercases a city name and collapses its whitespace so table
// lookups ignore formatting.
func NormalizeCity(city string) string {
	return strings.Join(strings.Fields(cases.Lower(language.Und).String(city)), " ")
}
