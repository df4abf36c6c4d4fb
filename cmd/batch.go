package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/site-feasibility/internal/analysis"
	"github.com/sells-group/site-feasibility/internal/fetcher"
	"github.com/sells-group/site-feasibility/internal/model"
	"github.com/sells-group/site-feasibility/internal/resilience"
)

var (
	batchInput       string
	batchOutput      string
	batchLimit       int
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Score a CSV or XLSX list of candidate sites",
	Long: `Reads a site list (local path or http(s) URL, .csv or .xlsx) and writes one
scored CSV row per site. Rows that fail validation are reported with their
error instead of being dropped.

Required columns: business_type, lat, lon, budget_lakh. Optional: id, city,
address, notes, radius_m, capacity, open_hours, use_population_density,
consider_competition.`,
	Example: `  feasibility batch --input sites.csv --output scored.csv
  feasibility batch --input https://example.com/sites.xlsx --concurrency 8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchConcurrency > 0 {
			cfg.Batch.MaxConcurrentSites = batchConcurrency
		}

		env, err := initEngine(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		dl := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent: cfg.Competitors.UserAgent,
			Timeout:   time.Duration(cfg.Competitors.TimeoutSecs) * time.Second,
			Retry:     resilience.PolicyFromConfig(cfg.Resilience),
		})
		path, cleanup, err := fetcher.Localize(ctx, dl, batchInput)
		if err != nil {
			return eris.Wrap(err, "batch: fetch site list")
		}
		defer cleanup()

		sites, err := fetcher.ReadSites(ctx, path)
		if err != nil {
			return eris.Wrap(err, "batch: read site list")
		}
		if batchLimit > 0 && len(sites) > batchLimit {
			sites = sites[:batchLimit]
		}

		out := cmd.OutOrStdout()
		if batchOutput != "" && batchOutput != "-" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrap(err, "batch: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		rows := scoreSites(ctx, env.Service, sites, cfg.Batch.MaxConcurrentSites)
		return writeBatchCSV(out, rows)
	},
}

// batchAnalyzer is the slice of the analysis service the batch command uses.
type batchAnalyzer interface {
	AnalyzeMany(ctx context.Context, reqs []model.AnalysisRequest, concurrency int) []analysis.Outcome
}

// batchRow is one site with its outcome.
type batchRow struct {
	Site   fetcher.Site
	Report *model.AnalysisReport
	Err    error
}

// scoreSites analyzes every parseable site and returns one row per site in
// input order.
func scoreSites(ctx context.Context, svc batchAnalyzer, sites []fetcher.Site, concurrency int) []batchRow {
	rows := make([]batchRow, len(sites))
	var reqs []model.AnalysisRequest
	var idx []int
	for i, s := range sites {
		rows[i] = batchRow{Site: s, Err: s.Err}
		if s.Err == nil {
			reqs = append(reqs, s.Request)
			idx = append(idx, i)
		}
	}

	start := time.Now()
	outcomes := svc.AnalyzeMany(ctx, reqs, concurrency)
	var failed int
	for j, o := range outcomes {
		rows[idx[j]].Report = o.Report
		rows[idx[j]].Err = o.Err
	}
	for _, r := range rows {
		if r.Err != nil {
			failed++
		}
	}

	zap.L().Info("batch complete",
		zap.Int("sites", len(sites)),
		zap.Int("scored", len(sites)-failed),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rows
}

var batchHeader = []string{
	"row", "id", "business_type", "city", "lat", "lon", "radius_m",
	"demand", "risk", "competition", "bfs", "feasible",
	"top_recommendation", "competitor_status", "poi_count", "summary", "error",
}

func writeBatchCSV(w io.Writer, rows []batchRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(batchHeader); err != nil {
		return eris.Wrap(err, "batch: write header")
	}
	for _, r := range rows {
		if err := cw.Write(batchRecord(r)); err != nil {
			return eris.Wrap(err, "batch: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "batch: flush output")
}

func batchRecord(r batchRow) []string {
	req := r.Site.Request
	rec := []string{
		strconv.Itoa(r.Site.Row),
		r.Site.ID,
		string(req.BusinessType),
		req.City,
		formatCoord(req.Location.Lat),
		formatCoord(req.Location.Lon),
		strconv.Itoa(req.RadiusM),
	}
	if r.Err != nil || r.Report == nil {
		msg := ""
		if r.Err != nil {
			msg = r.Err.Error()
		}
		return append(rec, "", "", "", "", "", "", "", "", "", msg)
	}

	rep := r.Report
	top := ""
	if len(rep.Recommendations) > 0 {
		top = rep.Recommendations[0].Name
	}
	rec[3] = rep.Request.City
	return append(rec,
		strconv.Itoa(rep.Scores.Demand),
		strconv.Itoa(rep.Scores.Risk),
		strconv.Itoa(rep.Scores.Competition),
		strconv.Itoa(rep.Feasibility.Score),
		strconv.FormatBool(rep.Feasibility.Feasible),
		top,
		string(rep.Debug.CompetitorStatus),
		strconv.Itoa(rep.Debug.POICount),
		rep.Summary,
		"",
	)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "site list path or URL (.csv or .xlsx)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "output CSV path (default stdout)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of sites to score (0 = all)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "sites scored in parallel (default from config)")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}
