package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/site-feasibility/internal/model"
)

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "Inspect stored analysis history",
	Long:  "Commands for listing, viewing, and summarizing persisted feasibility reports.",
}

// -- analyses list --

var analysesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored analyses, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter, err := analysisFilterFromFlags(cmd)
		if err != nil {
			return err
		}

		reports, err := st.ListAnalyses(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "analyses list")
		}

		if len(reports) == 0 {
			fmt.Fprintln(os.Stderr, "No analyses found.")
			return nil
		}

		formatAnalysesList(cmd.OutOrStdout(), reports)
		return nil
	},
}

// -- analyses show --

var analysesShowCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "Show the full stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		report, err := st.GetAnalysis(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "analyses show")
		}
		return writeIndentedJSON(cmd.OutOrStdout(), report)
	},
}

// -- analyses stats --

var analysesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate feasibility statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter, err := analysisFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		filter.Limit = 10000 // high limit for stats

		reports, err := st.ListAnalyses(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "analyses stats")
		}

		formatAnalysisStats(cmd.OutOrStdout(), computeAnalysisStats(reports))
		return nil
	},
}

func analysisFilterFromFlags(cmd *cobra.Command) (model.AnalysisFilter, error) {
	bt, _ := cmd.Flags().GetString("type")
	city, _ := cmd.Flags().GetString("city")
	limit, _ := cmd.Flags().GetInt("limit")

	f := model.AnalysisFilter{City: city, Limit: limit}
	if bt != "" {
		f.BusinessType = model.ParseBusinessType(bt)
		if f.BusinessType == model.BusinessOther && bt != string(model.BusinessOther) {
			return f, eris.Errorf("unknown business type %q", bt)
		}
	}
	return f, nil
}

func init() {
	for _, c := range []*cobra.Command{analysesListCmd, analysesStatsCmd} {
		c.Flags().String("type", "", "filter by business type")
		c.Flags().String("city", "", "filter by city (case-insensitive)")
	}
	analysesListCmd.Flags().Int("limit", 50, "max number of analyses to display")

	analysesCmd.AddCommand(analysesListCmd)
	analysesCmd.AddCommand(analysesShowCmd)
	analysesCmd.AddCommand(analysesStatsCmd)
	rootCmd.AddCommand(analysesCmd)
}

// analysisStats holds aggregate statistics computed from a set of reports.
type analysisStats struct {
	Total      int
	Feasible   int
	Infeasible int
	Degraded   int
	AvgBFS     float64
	ByType     map[model.BusinessType]int
}

// computeAnalysisStats computes aggregate statistics from a list of reports.
func computeAnalysisStats(reports []model.AnalysisReport) analysisStats {
	s := analysisStats{Total: len(reports), ByType: make(map[model.BusinessType]int)}

	var sum int
	for _, r := range reports {
		if r.Feasibility.Feasible {
			s.Feasible++
		} else {
			s.Infeasible++
		}
		if r.Debug.CompetitorStatus.Degraded() {
			s.Degraded++
		}
		sum += r.Feasibility.Score
		s.ByType[r.Request.BusinessType]++
	}
	if s.Total > 0 {
		s.AvgBFS = float64(sum) / float64(s.Total)
	}
	return s
}

// formatAnalysesList writes a tabular list of reports to w.
func formatAnalysesList(out io.Writer, reports []model.AnalysisReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTYPE\tCITY\tD/R/C\tBFS\tFEASIBLE\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t-----\t---\t--------\t-------")

	for _, r := range reports {
		city := r.Request.City
		if len(city) > 24 {
			city = city[:21] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d/%d\t%d\t%t\t%s\n",
			truncateID(r.ID),
			r.Request.BusinessType,
			city,
			r.Scores.Demand, r.Scores.Risk, r.Scores.Competition,
			r.Feasibility.Score,
			r.Feasibility.Feasible,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatAnalysisStats writes aggregate stats to w.
func formatAnalysisStats(out io.Writer, s analysisStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total analyses:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Feasible:\t%d\n", s.Feasible)
	_, _ = fmt.Fprintf(w, "Not feasible:\t%d\n", s.Infeasible)
	_, _ = fmt.Fprintf(w, "Degraded competitor data:\t%d\n", s.Degraded)
	if s.Total > 0 {
		_, _ = fmt.Fprintf(w, "Avg BFS:\t%.1f\n", s.AvgBFS)
	}

	types := make([]string, 0, len(s.ByType))
	for bt := range s.ByType {
		types = append(types, string(bt))
	}
	sort.Strings(types)
	for _, bt := range types {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", bt, s.ByType[model.BusinessType(bt)])
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
