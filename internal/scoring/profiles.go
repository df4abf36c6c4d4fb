package scoring

import (
	"github.com/sells-group/site-feasibility/internal/config"
	"github.com/sells-group/site-feasibility/internal/model"
)

// Profile is the typical shape of a business type: the budget and capacity a
// viable operator usually brings, and the demand assumed when no density
// sample is used.
type Profile struct {
	Label          string
	BudgetMin      float64 // lakh
	BudgetMax      float64 // lakh
	CapacityMin    int
	CapacityMax    int
	FallbackDemand int
}

// SeatsCustomers reports whether capacity is meaningful for the type.
func (p Profile) SeatsCustomers() bool {
	return p.CapacityMax > 0
}

// DefaultProfiles returns the built-in profile table.
func DefaultProfiles() map[model.BusinessType]Profile {
	return map[model.BusinessType]Profile{
		model.BusinessCafe: {
			Label: "Cafe", BudgetMin: 8, BudgetMax: 25,
			CapacityMin: 15, CapacityMax: 60, FallbackDemand: 60,
		},
		model.BusinessGym: {
			Label: "Gym / Fitness", BudgetMin: 30, BudgetMax: 120,
			FallbackDemand: 55,
		},
		model.BusinessRestaurant: {
			Label: "Restaurant", BudgetMin: 15, BudgetMax: 80,
			CapacityMin: 20, CapacityMax: 100, FallbackDemand: 62,
		},
		model.BusinessHostelMess: {
			Label: "Hostel Mess", BudgetMin: 10, BudgetMax: 40,
			CapacityMin: 40, CapacityMax: 200, FallbackDemand: 58,
		},
		model.BusinessStationery: {
			Label: "Stationery / Print", BudgetMin: 3, BudgetMax: 12,
			FallbackDemand: 50,
		},
		model.BusinessRetail: {
			Label: "Retail Store", BudgetMin: 5, BudgetMax: 30,
			FallbackDemand: 55,
		},
		model.BusinessPharmacy: {
			Label: "Pharmacy", BudgetMin: 10, BudgetMax: 40,
			FallbackDemand: 65,
		},
		model.BusinessBeautySalon: {
			Label: "Beauty Salon", BudgetMin: 5, BudgetMax: 25,
			FallbackDemand: 52,
		},
		model.BusinessOther: {
			Label: "Business", BudgetMin: 5, BudgetMax: 50,
			FallbackDemand: 50,
		},
	}
}

// merge overlays the keys set in o onto p. An explicit zero is applied, so a
// config can drop a capacity range or a budget floor.
func (p Profile) merge(o config.ProfileConfig) Profile {
	if o.Label != "" {
		p.Label = o.Label
	}
	if o.BudgetMin != nil {
		p.BudgetMin = *o.BudgetMin
	}
	if o.BudgetMax != nil {
		p.BudgetMax = *o.BudgetMax
	}
	if o.CapacityMin != nil {
		p.CapacityMin = *o.CapacityMin
	}
	if o.CapacityMax != nil {
		p.CapacityMax = *o.CapacityMax
	}
	if o.FallbackDemand != nil {
		p.FallbackDemand = *o.FallbackDemand
	}
	return p
}
