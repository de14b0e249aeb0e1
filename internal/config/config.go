package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	InputPath   string
	OutputDir   string `validate:"required"`
	HeatmapFile string `validate:"required"`
	SummaryFile string
	MetricsFile string

	ChartWidth  int `validate:"gte=200,lte=8000"`
	ChartHeight int `validate:"gte=200,lte=8000"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json text"`

	HotspotCount       int     `validate:"gte=0,lte=100"`
	HotspotCellDegrees float64 `validate:"gt=0,lte=10"`

	// Mapbox reverse geocoding of hotspots.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration `validate:"gt=0"`
	MapboxCacheSize int           `validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from environment variables, applying defaults
// where unset, and validates it.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read parses environment variables without range validation, so callers
// can apply overrides before calling Validate.
func Read() (*Config, error) {
	width, err := envInt("CHART_WIDTH", 1200)
	if err != nil {
		return nil, err
	}
	height, err := envInt("CHART_HEIGHT", 600)
	if err != nil {
		return nil, err
	}
	hotspots, err := envInt("HOTSPOT_COUNT", 10)
	if err != nil {
		return nil, err
	}
	cacheSize, err := envInt("MAPBOX_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	cellStr := sharedcfg.EnvOrDefault("HOTSPOT_CELL_DEGREES", "0.5")
	cell, err := strconv.ParseFloat(cellStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid HOTSPOT_CELL_DEGREES %q: %w", cellStr, err)
	}

	timeoutStr := sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid MAPBOX_TIMEOUT %q: %w", timeoutStr, err)
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		InputPath:   os.Getenv("ACCIDENTS_CSV"),
		OutputDir:   sharedcfg.EnvOrDefault("OUTPUT_DIR", "."),
		HeatmapFile: sharedcfg.EnvOrDefault("HEATMAP_FILE", "Accident_Hotspots.html"),
		SummaryFile: envOrDefaultAllowEmpty("SUMMARY_FILE", "summary.xlsx"),
		MetricsFile: os.Getenv("METRICS_FILE"),

		ChartWidth:  width,
		ChartHeight: height,

		LogLevel:  strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "text")),

		HotspotCount:       hotspots,
		HotspotCellDegrees: cell,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   timeout,
		MapboxCacheSize: cacheSize,
	}
	return cfg, nil
}

// Validate checks field ranges and cross-field rules. Call it again after
// applying command-line overrides.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}

func envInt(key string, def int) (int, error) {
	s := sharedcfg.EnvOrDefault(key, strconv.Itoa(def))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

// envOrDefaultAllowEmpty distinguishes an unset variable from one set to "".
func envOrDefaultAllowEmpty(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}
