package scoring

import (
	"fmt"
	"strings"

	"github.com/sells-group/site-feasibility/internal/model"
)

// facts is what narrative rules are evaluated against.
type facts struct {
	scores     model.Scores
	req        model.AnalysisRequest
	count      int
	status     model.CompetitorStatus
	considered bool
	avgRating  float64
	rated      bool
}

// rule emits text when its predicate holds. Pro rules add to pros, the rest
// to cons. A matching rule with no text ends its group silently.
type rule struct {
	when func(f facts) bool
	pro  bool
	text func(f facts) string
}

// group is an ordered list of rules; the first match wins.
type group []rule

func always(facts) bool { return true }

func says(s string) func(facts) string {
	return func(facts) string { return s }
}

func pro(when func(facts) bool, text string) rule {
	return rule{when: when, pro: true, text: says(text)}
}

func con(when func(facts) bool, text string) rule {
	return rule{when: when, text: says(text)}
}

func demandAbove(n int) func(facts) bool {
	return func(f facts) bool { return f.scores.Demand > n }
}

func demandAtLeast(n int) func(facts) bool {
	return func(f facts) bool { return f.scores.Demand >= n }
}

func competitionAbove(n int) func(facts) bool {
	return func(f facts) bool { return f.scores.Competition > n }
}

func competitionAtMost(n int) func(facts) bool {
	return func(f facts) bool { return f.scores.Competition <= n }
}

var demandGroup = group{
	pro(demandAbove(70), "Strong local demand near the chosen location."),
	pro(demandAbove(45), "Moderate demand levels in the area."),
	con(always, "Weak customer base; consider moving closer to high-footfall areas."),
}

var competitionGroup = group{
	{when: func(f facts) bool { return !f.considered }},
	con(competitionAbove(70), "Saturated market: heavy competition within the catchment area."),
	pro(competitionAbove(35), "Moderate competition level allows for market entry."),
	pro(always, "Low market saturation with clear headroom for growth."),
}

var presenceGroup = group{
	con(func(f facts) bool { return !f.considered }, "Competition was not assessed for this analysis."),
	con(func(f facts) bool { return f.status.Degraded() },
		"Competitor data was unavailable; the competition score may understate saturation."),
	{
		when: func(f facts) bool { return f.count > 0 },
		text: func(f facts) string {
			noun := "businesses"
			if f.count == 1 {
				noun = "business"
			}
			return fmt.Sprintf("Competition present: %d similar %s within %dm.", f.count, noun, f.req.RadiusM)
		},
	},
	{
		when: always,
		pro:  true,
		text: func(f facts) string {
			return fmt.Sprintf("No similar businesses found within %dm.", f.req.RadiusM)
		},
	},
}

// ratingGroup speaks only when competitors were assessed and some carried a
// rating.
var ratingGroup = group{
	{when: func(f facts) bool { return !f.considered || !f.rated }},
	{
		when: func(f facts) bool { return f.avgRating >= 4.2 },
		text: func(f facts) string {
			return fmt.Sprintf("Nearby competitors are well rated (average %.1f); expect a high bar on quality.", f.avgRating)
		},
	},
	{
		when: func(f facts) bool { return f.avgRating < 3.5 },
		pro:  true,
		text: func(f facts) string {
			return fmt.Sprintf("Nearby competitors rate poorly (average %.1f); better service can win customers.", f.avgRating)
		},
	},
}

var riskGroup = group{
	pro(func(f facts) bool { return f.scores.Risk < 40 }, "Operational risk appears manageable."),
	pro(func(f facts) bool { return f.scores.Risk <= 60 }, "Moderate operational risk with careful planning needed."),
	con(always, "High operational risk due to budget, hours, or market conditions."),
}

// businessGroups holds the type-specific groups. Each group contributes at
// most one line.
var businessGroups = map[model.BusinessType][]group{
	model.BusinessCafe: {
		{
			con(competitionAbove(60), "Many cafes nearby; consider focusing on a niche (breakfast/late-night)."),
			pro(always, "Cafe format fits well with student/office crowd in this area."),
		},
		{pro(demandAtLeast(70), "High foot traffic area ideal for coffee shops.")},
	},
	model.BusinessGym: {
		{pro(demandAtLeast(60), "Good fitness interest in the area; group classes could work well.")},
		{
			pro(competitionAtMost(40), "Low gym density creates opportunity for fitness services."),
			con(always, "Saturated fitness market; differentiate with unique offerings."),
		},
	},
	model.BusinessStationery: {
		{pro(always, "Proximity to campus/offices favors stationery and print demand.")},
		{pro(demandAtLeast(50), "Good potential for office supply and printing services.")},
	},
	model.BusinessHostelMess: {
		{pro(demandAtLeast(55), "Student density favors mess and meal plan services.")},
		{
			pro(competitionAtMost(30), "Low competition in student dining sector."),
			con(always, "High competition in student dining; focus on quality and pricing."),
		},
	},
	model.BusinessRestaurant: {
		{pro(demandAtLeast(60), "Strong dining demand in the area.")},
		{
			pro(competitionAtMost(50), "Moderate restaurant competition allows for market entry."),
			con(always, "High restaurant density; focus on unique cuisine or service."),
		},
	},
	model.BusinessRetail: {
		{pro(demandAtLeast(55), "Good retail potential in the area.")},
		{
			pro(competitionAtMost(40), "Low retail competition creates opportunity."),
			con(always, "Saturated retail market; focus on specific product categories."),
		},
	},
	model.BusinessPharmacy: {
		{pro(demandAtLeast(60), "Residential density supports steady pharmacy footfall.")},
		{
			pro(competitionAtMost(40), "Few chemists nearby; room for a well-stocked pharmacy."),
			con(always, "Several chemists nearby; consider extended hours or home delivery."),
		},
	},
	model.BusinessBeautySalon: {
		{pro(demandAtLeast(55), "Local population supports repeat salon visits.")},
		{
			pro(competitionAtMost(40), "Limited salon competition in the catchment."),
			con(always, "Crowded salon market; build loyalty with packages and bookings."),
		},
	},
}

var contextRule = rule{
	when: always,
	pro:  true,
	text: func(f facts) string {
		if city := strings.TrimSpace(f.req.City); city != "" {
			return fmt.Sprintf("Analysis covers %dm radius in %s.", f.req.RadiusM, city)
		}
		return fmt.Sprintf("Analysis covers %dm radius.", f.req.RadiusM)
	},
}

// narrate evaluates the rule groups in order and splits the output into pros
// and cons. Both slices are non-nil.
func narrate(f facts) (pros, cons []string) {
	groups := []group{demandGroup, competitionGroup, presenceGroup, ratingGroup, riskGroup}
	groups = append(groups, businessGroups[f.req.BusinessType]...)
	groups = append(groups, group{contextRule})

	pros, cons = []string{}, []string{}
	for _, g := range groups {
		for _, r := range g {
			if !r.when(f) {
				continue
			}
			if r.text == nil {
				break
			}
			if r.pro {
				pros = append(pros, r.text(f))
			} else {
				cons = append(cons, r.text(f))
			}
			break
		}
	}
	return pros, cons
}
