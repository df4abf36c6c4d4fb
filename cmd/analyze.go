package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/site-feasibility/internal/model"
)

type analyzeFlags struct {
	businessType  string
	city          string
	address       string
	lat           float64
	lon           float64
	radius        int
	budget        float64
	capacity      int
	openHours     string
	noDensity     bool
	noCompetition bool
}

var analyzeOpts analyzeFlags

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score one candidate location and print the report as JSON",
	Example: `  feasibility analyze --type cafe --lat 12.9165 --lon 79.1325 --budget 10 --capacity 30
  feasibility analyze --type gym --city Vellore --lat 12.97 --lon 79.16 --radius 1500 --budget 30 --no-competition`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Service.Analyze(ctx, analyzeOpts.request())
		if err != nil {
			return err
		}
		return writeIndentedJSON(cmd.OutOrStdout(), report)
	},
}

func (f analyzeFlags) request() model.AnalysisRequest {
	return model.AnalysisRequest{
		BusinessType:         model.ParseBusinessType(f.businessType),
		City:                 f.city,
		Address:              f.address,
		Location:             model.Location{Lat: f.lat, Lon: f.lon},
		RadiusM:              f.radius,
		BudgetLakh:           f.budget,
		Capacity:             f.capacity,
		OpenHours:            f.openHours,
		UsePopulationDensity: !f.noDensity,
		ConsiderCompetition:  !f.noCompetition,
	}
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeOpts.businessType, "type", "cafe", "business type (cafe, gym, restaurant, hostel-mess, stationery, retail, pharmacy, beauty-salon, other)")
	f.StringVar(&analyzeOpts.city, "city", "", "city name (resolved from boundaries when empty)")
	f.StringVar(&analyzeOpts.address, "address", "", "free-form address, carried into the report")
	f.Float64Var(&analyzeOpts.lat, "lat", 0, "latitude (WGS84)")
	f.Float64Var(&analyzeOpts.lon, "lon", 0, "longitude (WGS84)")
	f.IntVar(&analyzeOpts.radius, "radius", 1000, "catchment radius in meters (50-5000)")
	f.Float64Var(&analyzeOpts.budget, "budget", 0, "budget in lakh INR")
	f.IntVar(&analyzeOpts.capacity, "capacity", 0, "seating or customer capacity")
	f.StringVar(&analyzeOpts.openHours, "hours", "", "opening hours as HH:MM-HH:MM")
	f.BoolVar(&analyzeOpts.noDensity, "no-density", false, "skip population density sampling")
	f.BoolVar(&analyzeOpts.noCompetition, "no-competition", false, "skip competitor lookup")
	_ = analyzeCmd.MarkFlagRequired("lat")
	_ = analyzeCmd.MarkFlagRequired("lon")
	_ = analyzeCmd.MarkFlagRequired("budget")
	rootCmd.AddCommand(analyzeCmd)
}
