package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Competitors CompetitorsConfig `yaml:"competitors" mapstructure:"competitors"`
	Overpass    OverpassConfig    `yaml:"overpass" mapstructure:"overpass"`
	Places      PlacesConfig      `yaml:"places" mapstructure:"places"`
	POICache    POICacheConfig    `yaml:"poi_cache" mapstructure:"poi_cache"`
	Density     DensityConfig     `yaml:"density" mapstructure:"density"`
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Feasibility FeasibilityConfig `yaml:"feasibility" mapstructure:"feasibility"`
	Model       ModelConfig       `yaml:"model" mapstructure:"model"`
	Locality    LocalityConfig    `yaml:"locality" mapstructure:"locality"`
	Resilience  ResilienceConfig  `yaml:"resilience" mapstructure:"resilience"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the persistence backend. Driver is "postgres",
// "sqlite" or "none".
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// Enabled reports whether a persistence driver is configured.
func (s StoreConfig) Enabled() bool {
	return s.Driver != "" && s.Driver != "none"
}

// CompetitorsConfig configures the competitor data source.
type CompetitorsConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxResults  int     `yaml:"max_results" mapstructure:"max_results"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// OverpassConfig holds OpenStreetMap Overpass API settings.
type OverpassConfig struct {
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"`
	MaxParallel int    `yaml:"max_parallel" mapstructure:"max_parallel"`
}

// PlacesConfig holds Google Places API (New) settings.
type PlacesConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// POICacheConfig configures competitor lookup memoization.
type POICacheConfig struct {
	TTLSecs   int  `yaml:"ttl_secs" mapstructure:"ttl_secs"`
	Precision int  `yaml:"precision" mapstructure:"precision"`
	Durable   bool `yaml:"durable" mapstructure:"durable"`
}

// DensityConfig configures population raster sampling.
type DensityConfig struct {
	RasterPath    string `yaml:"raster_path" mapstructure:"raster_path"`
	Rings         int    `yaml:"rings" mapstructure:"rings"`
	PointsPerRing int    `yaml:"points_per_ring" mapstructure:"points_per_ring"`
}

// ProfileConfig overrides the built-in profile of one business type. Unset
// keys keep the built-in value; an explicit 0 is kept.
type ProfileConfig struct {
	Label          string   `yaml:"label" mapstructure:"label"`
	BudgetMin      *float64 `yaml:"budget_min" mapstructure:"budget_min"`
	BudgetMax      *float64 `yaml:"budget_max" mapstructure:"budget_max"`
	CapacityMin    *int     `yaml:"capacity_min" mapstructure:"capacity_min"`
	CapacityMax    *int     `yaml:"capacity_max" mapstructure:"capacity_max"`
	FallbackDemand *int     `yaml:"fallback_demand" mapstructure:"fallback_demand"`
}

// ScoringConfig tunes the demand/competition/risk engine.
type ScoringConfig struct {
	MaxDensity         float64                  `yaml:"max_density" mapstructure:"max_density"`
	CompetitionPerKm2  float64                  `yaml:"competition_per_km2" mapstructure:"competition_per_km2"`
	EmptyMarketScore   int                      `yaml:"empty_market_score" mapstructure:"empty_market_score"`
	NeutralCompetition int                      `yaml:"neutral_competition" mapstructure:"neutral_competition"`
	DefaultOpenHours   string                   `yaml:"default_open_hours" mapstructure:"default_open_hours"`
	CityDemandAdjust   map[string]int           `yaml:"city_demand_adjust" mapstructure:"city_demand_adjust"`
	Profiles           map[string]ProfileConfig `yaml:"profiles" mapstructure:"profiles"`
}

// FeasibilityConfig holds the BFS weights and cutoff.
type FeasibilityConfig struct {
	DemandWeight      float64 `yaml:"demand_weight" mapstructure:"demand_weight"`
	RiskWeight        float64 `yaml:"risk_weight" mapstructure:"risk_weight"`
	CompetitionWeight float64 `yaml:"competition_weight" mapstructure:"competition_weight"`
	Cutoff            int     `yaml:"cutoff" mapstructure:"cutoff"`
}

// ModelConfig locates the viability model artifact.
type ModelConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LocalityConfig locates the optional city boundary shapefile.
type LocalityConfig struct {
	Shapefile string `yaml:"shapefile" mapstructure:"shapefile"`
	NameField string `yaml:"name_field" mapstructure:"name_field"`
}

// ResilienceConfig controls retries and circuit breaking for upstream calls.
type ResilienceConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// BatchConfig configures batch site scoring.
type BatchConfig struct {
	MaxConcurrentSites int `yaml:"max_concurrent_sites" mapstructure:"max_concurrent_sites"`
}

// DefaultCityDemandAdjust is the built-in metro uplift applied to the
// fallback demand table.
func DefaultCityDemandAdjust() map[string]int {
	return map[string]int{
		"mumbai":    10,
		"delhi":     10,
		"new delhi": 10,
		"bengaluru": 10,
		"bangalore": 10,
		"chennai":   10,
		"hyderabad": 10,
		"kolkata":   10,
		"pune":      10,
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path falls back to
// an optional config.yaml in the working directory; a named file must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("FEASIBILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://localhost:3001"})
	v.SetDefault("server.request_timeout_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("competitors.provider", "overpass")
	v.SetDefault("competitors.timeout_secs", 25)
	v.SetDefault("competitors.max_results", 200)
	v.SetDefault("competitors.rate_per_sec", 1.0)
	v.SetDefault("competitors.burst", 2)
	v.SetDefault("competitors.user_agent", "site-feasibility/1.0")
	v.SetDefault("overpass.endpoint", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.max_parallel", 2)
	v.SetDefault("places.key", "")
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("poi_cache.ttl_secs", 3600)
	v.SetDefault("poi_cache.precision", 4)
	v.SetDefault("poi_cache.durable", true)
	v.SetDefault("density.raster_path", "")
	v.SetDefault("density.rings", 3)
	v.SetDefault("density.points_per_ring", 8)
	v.SetDefault("scoring.max_density", 5000.0)
	v.SetDefault("scoring.competition_per_km2", 15.0)
	v.SetDefault("scoring.empty_market_score", 10)
	v.SetDefault("scoring.neutral_competition", 0)
	v.SetDefault("scoring.default_open_hours", "08:00-22:00")
	v.SetDefault("scoring.city_demand_adjust", DefaultCityDemandAdjust())
	v.SetDefault("feasibility.demand_weight", 0.4)
	v.SetDefault("feasibility.risk_weight", 0.3)
	v.SetDefault("feasibility.competition_weight", 0.3)
	v.SetDefault("feasibility.cutoff", 60)
	v.SetDefault("model.path", "")
	v.SetDefault("locality.shapefile", "")
	v.SetDefault("locality.name_field", "NAME")
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 500)
	v.SetDefault("resilience.max_backoff_ms", 5000)
	v.SetDefault("resilience.multiplier", 2.0)
	v.SetDefault("resilience.jitter_fraction", 0.25)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 60)
	v.SetDefault("batch.max_concurrent_sites", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
