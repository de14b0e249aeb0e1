// Command accident-eda renders descriptive reports for a US traffic accident
// dataset: nine PNG charts, a geographic heat map page and a summary
// workbook.
//
// Usage:
//
//	accident-eda run US_Accidents_March23_sampled_500k.csv -o reports
//	accident-eda inspect accidents.csv.gz
//	accident-eda genmock --rows 5000 --out accidents_mock.csv
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/accident-eda/internal/adapter/csvfile"
	"github.com/couchcryptid/accident-eda/internal/adapter/geomap"
	"github.com/couchcryptid/accident-eda/internal/adapter/mapbox"
	"github.com/couchcryptid/accident-eda/internal/adapter/render"
	"github.com/couchcryptid/accident-eda/internal/adapter/xlsx"
	"github.com/couchcryptid/accident-eda/internal/analysis"
	"github.com/couchcryptid/accident-eda/internal/config"
	"github.com/couchcryptid/accident-eda/internal/domain"
	"github.com/couchcryptid/accident-eda/internal/observability"
	"github.com/couchcryptid/accident-eda/internal/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// overrides holds persistent flags. Only flags set on the command line
// replace environment configuration.
type overrides struct {
	outputDir   string
	summaryFile string
	metricsFile string
	logLevel    string
	logFormat   string
	width       int
	height      int
	hotspots    int
	noGeocode   bool
}

func newRootCmd() *cobra.Command {
	var o overrides
	root := &cobra.Command{
		Use:   "accident-eda",
		Short: "Exploratory reports for US traffic accident records",
		Long: `Loads a US accidents CSV (plain, gzip or zip), cleans it and renders
descriptive charts, a geographic heat map and a summary workbook.
Settings come from environment variables; flags override them.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&o.outputDir, "output", "o", "", "output directory (env OUTPUT_DIR)")
	pf.StringVar(&o.summaryFile, "summary", "", "summary workbook file name, \"none\" to disable (env SUMMARY_FILE)")
	pf.StringVar(&o.metricsFile, "metrics-file", "", "Prometheus textfile path (env METRICS_FILE)")
	pf.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	pf.StringVar(&o.logFormat, "log-format", "", "json or text (env LOG_FORMAT)")
	pf.IntVar(&o.width, "width", 0, "chart width in pixels (env CHART_WIDTH)")
	pf.IntVar(&o.height, "height", 0, "chart height in pixels (env CHART_HEIGHT)")
	pf.IntVar(&o.hotspots, "hotspots", 0, "number of hotspots marked on the map (env HOTSPOT_COUNT)")
	pf.BoolVar(&o.noGeocode, "no-geocode", false, "disable Mapbox reverse geocoding of hotspots")

	root.AddCommand(runCmd(&o), inspectCmd(&o), genmockCmd())
	return root
}

// loadConfig reads the environment, applies changed flags and the optional
// positional input path, then validates the result once.
func loadConfig(cmd *cobra.Command, o *overrides, args []string) (*config.Config, error) {
	cfg, err := config.Read()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.OutputDir = o.outputDir
	}
	if flags.Changed("summary") {
		cfg.SummaryFile = o.summaryFile
		if o.summaryFile == "none" {
			cfg.SummaryFile = ""
		}
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = o.metricsFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if flags.Changed("width") {
		cfg.ChartWidth = o.width
	}
	if flags.Changed("height") {
		cfg.ChartHeight = o.height
	}
	if flags.Changed("hotspots") {
		cfg.HotspotCount = o.hotspots
	}
	if o.noGeocode {
		cfg.MapboxEnabled = false
	}
	if len(args) > 0 {
		cfg.InputPath = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.InputPath == "" {
		return nil, fmt.Errorf("no input: pass a CSV path or set ACCIDENTS_CSV")
	}
	return cfg, nil
}

func runCmd(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "run [csv-path]",
		Short: "Render every report for a dataset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, o, args)
			if err != nil {
				return err
			}

			logger := observability.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			reg := observability.NewRegistry()
			metrics := observability.NewMetrics(reg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
				return fmt.Errorf("%w: create output dir: %w", domain.ErrWrite, err)
			}

			runID := uuid.NewString()
			p := pipeline.New(pipeline.Stages{
				Loader:   csvfile.NewLoader(logger, metrics),
				Charts:   render.NewRenderer(cfg.OutputDir, cfg.ChartWidth, cfg.ChartHeight, logger, metrics),
				Map:      geomap.NewWriter(logger, metrics),
				Summary:  xlsx.NewWriter(logger, metrics),
				Geocoder: newGeocoder(cfg, logger, metrics),
			}, pipeline.Options{
				RunID:              runID,
				OutputDir:          cfg.OutputDir,
				HeatmapFile:        cfg.HeatmapFile,
				SummaryFile:        cfg.SummaryFile,
				HotspotCount:       cfg.HotspotCount,
				HotspotCellDegrees: cfg.HotspotCellDegrees,
				Out:                cmd.OutOrStdout(),
			}, logger, metrics)

			summary, runErr := p.Run(ctx, cfg.InputPath)
			if err := observability.WriteTextfile(cfg.MetricsFile, reg); err != nil {
				logger.Warn("metrics textfile not written", "path", cfg.MetricsFile, "error", err)
			}
			if runErr != nil {
				return runErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Done: %d reports written to %s\n", len(summary.Steps), cfg.OutputDir)
			return nil
		},
	}
}

// newGeocoder returns the cached Mapbox geocoder, or a nil interface when
// geocoding is disabled.
func newGeocoder(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) domain.Geocoder {
	if !cfg.MapboxEnabled {
		logger.Info("mapbox geocoding disabled")
		return nil
	}
	client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
	logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	return mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
}

func inspectCmd(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [csv-path]",
		Short: "Load and clean a dataset and print its statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, o, args)
			if err != nil {
				return err
			}
			logger := observability.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			metrics := observability.NewMetrics(observability.NewRegistry())

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p := pipeline.New(pipeline.Stages{Loader: csvfile.NewLoader(logger, metrics)},
				pipeline.Options{Out: cmd.OutOrStdout()}, logger, metrics)
			table, _, err := p.Prepare(ctx, cfg.InputPath)
			if err != nil {
				return err
			}
			return describe(cmd.OutOrStdout(), table)
		},
	}
}

// describe prints the cleaned table's shape, severity levels and the most
// frequent weather conditions.
func describe(w io.Writer, t *domain.Table) error {
	severities, err := analysis.Severities(t)
	if err != nil {
		return err
	}
	top, err := analysis.TopWeather(t, 5)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Cleaned table: %d rows x %d columns\n", t.Len(), len(t.Columns()))
	fmt.Fprint(w, "Severity levels:")
	for _, s := range severities {
		fmt.Fprintf(w, " %d (%s)", s, domain.SeverityName(s))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Most frequent weather:")
	for _, c := range top {
		fmt.Fprintf(w, "  %-30s %d\n", c.Category, c.Count)
	}
	_, err = fmt.Fprintln(w, t.Head(5))
	return err
}
