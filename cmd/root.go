package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/site-feasibility/internal/config"
)

var cfg *config.Config

// globalFlags override the loaded configuration for one invocation.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	store      string
}

var global globalFlags

var rootCmd = &cobra.Command{
	Use:   "feasibility",
	Short: "Score candidate business locations",
	Long: `feasibility rates a proposed small business site on demand, risk and
competition. Demand comes from sampled population density, competition and
risk from nearby businesses of the same type. The three scores combine into
a feasibility verdict with recommendations, and a trained classifier can
predict viability from the same inputs.

Configuration is read from config.yaml in the working directory (or --config)
and FEASIBILITY_* environment variables.`,
	Example: `  feasibility analyze --type cafe --city Vellore --lat 12.9165 --lon 79.1325
  feasibility batch --input sites.xlsx --limit 50
  feasibility serve --port 8000`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFile(global.configPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		global.apply(cmd, c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		zap.L().Debug("config loaded",
			zap.String("file", global.configPath),
			zap.String("store", cfg.Store.Driver),
			zap.String("provider", cfg.Competitors.Provider),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// apply copies only the flags the user set, so file and env values survive
// otherwise.
func (g globalFlags) apply(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.Log.Level = g.logLevel
	}
	if flags.Changed("log-format") {
		c.Log.Format = g.logFormat
	}
	if flags.Changed("store") {
		c.Store.Driver = g.store
	}
}

func (g *globalFlags) bind(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&g.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.StringVar(&g.logFormat, "log-format", "json", "log format: json or console")
	pf.StringVar(&g.store, "store", "none", "analysis history store: none, sqlite or postgres")
}

func init() {
	global.bind(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
