package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/site-feasibility/internal/model"
)

type predictFlags struct {
	businessType string
	city         string
	budget       float64
	capacity     int
	radius       int
	demand       float64
	lat          float64
	lon          float64
}

var predictOpts predictFlags

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Classify the viability of a business configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx, "predict")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.Predict(ctx, predictOpts.features(cmd))
		if err != nil {
			return err
		}
		return writeIndentedJSON(cmd.OutOrStdout(), res)
	},
}

// features builds the feature set; optional inputs are set only when their
// flags were passed.
func (f predictFlags) features(cmd *cobra.Command) model.PredictionFeatures {
	out := model.PredictionFeatures{
		BusinessType: model.ParseBusinessType(f.businessType),
		City:         f.city,
		BudgetLakh:   f.budget,
		Capacity:     f.capacity,
		RadiusM:      f.radius,
	}
	if cmd.Flags().Changed("demand") {
		d := f.demand
		out.DemandScore = &d
	}
	if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
		out.Location = &model.Location{Lat: f.lat, Lon: f.lon}
	}
	return out
}

func init() {
	f := predictCmd.Flags()
	f.StringVar(&predictOpts.businessType, "type", "cafe", "business type")
	f.StringVar(&predictOpts.city, "city", "", "city name")
	f.Float64Var(&predictOpts.budget, "budget", 0, "budget in lakh INR")
	f.IntVar(&predictOpts.capacity, "capacity", 0, "seating or customer capacity")
	f.IntVar(&predictOpts.radius, "radius", 1000, "catchment radius in meters")
	f.Float64Var(&predictOpts.demand, "demand", 0, "demand score 0-100, when the model uses it")
	f.Float64Var(&predictOpts.lat, "lat", 0, "latitude, used to resolve a missing city")
	f.Float64Var(&predictOpts.lon, "lon", 0, "longitude, used to resolve a missing city")
	_ = predictCmd.MarkFlagRequired("budget")
	rootCmd.AddCommand(predictCmd)
}
