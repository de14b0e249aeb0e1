// Package pipeline runs the accident report: load, clean, then a fixed list
// of named report steps, each inside its own error boundary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/couchcryptid/accident-eda/internal/analysis"
	"github.com/couchcryptid/accident-eda/internal/domain"
	"github.com/couchcryptid/accident-eda/internal/observability"
)

// previewRows is the number of raw rows printed after loading.
const previewRows = 5

// Loader reads the input dataset.
type Loader interface {
	Load(ctx context.Context, path string) (*domain.RawTable, error)
}

// ChartRenderer draws chart descriptions to image files named file inside
// its output directory and returns the written path.
type ChartRenderer interface {
	RenderBars(ctx context.Context, file string, c domain.BarChart) (string, error)
	RenderHistogram(ctx context.Context, file string, c domain.HistogramChart) (string, error)
	RenderBoxPlot(ctx context.Context, file string, c domain.BoxPlotChart) (string, error)
	RenderMatrix(ctx context.Context, file string, c domain.MatrixChart) (string, error)
}

// MapWriter writes the geographic heat map page.
type MapWriter interface {
	WriteHeatmap(ctx context.Context, m domain.HeatMap, path string) error
}

// SummaryWriter exports the run summary.
type SummaryWriter interface {
	WriteSummary(ctx context.Context, s *domain.Summary, path string) error
}

// Stages are the collaborators a Pipeline drives. Geocoder and Summary may
// be nil to disable hotspot geocoding and the workbook export.
type Stages struct {
	Loader   Loader
	Charts   ChartRenderer
	Map      MapWriter
	Summary  SummaryWriter
	Geocoder domain.Geocoder
}

// Options configure output locations and hotspot detection.
type Options struct {
	RunID              string
	OutputDir          string
	HeatmapFile        string
	SummaryFile        string
	HotspotCount       int
	HotspotCellDegrees float64
	// Out receives the human-readable progress report.
	Out io.Writer
}

// Pipeline orchestrates one report run.
type Pipeline struct {
	stages  Stages
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Pipeline with the given stages and observability. Every log
// line carries opts.RunID when set.
func New(s Stages, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.RunID != "" {
		logger = logger.With("run_id", opts.RunID)
	}
	return &Pipeline{stages: s, opts: opts, logger: logger, metrics: metrics}
}

// Prepare loads and cleans the dataset at path, printing the preview and the
// cleaning summary. Any error is fatal for the run and wraps
// domain.ErrDataLoad.
func (p *Pipeline) Prepare(ctx context.Context, path string) (*domain.Table, domain.CleanStats, error) {
	raw, err := p.stages.Loader.Load(ctx, path)
	if err != nil {
		return nil, domain.CleanStats{}, err
	}
	p.printf("Dataset Loaded. First %d Rows:\n%s\n", previewRows, raw.Head(previewRows))

	table, stats, err := domain.Clean(raw)
	if err != nil {
		return nil, domain.CleanStats{}, err
	}

	p.metrics.RowsDropped.WithLabelValues("missing_required").Add(float64(stats.MissingRequired))
	p.metrics.RowsDropped.WithLabelValues("invalid_start_time").Add(float64(stats.InvalidStartTime))
	p.metrics.RowsRetained.Set(float64(stats.Retained))
	p.logger.Info("dataset cleaned",
		"loaded", stats.Loaded,
		"missing_required", stats.MissingRequired,
		"invalid_start_time", stats.InvalidStartTime,
		"retained", stats.Retained,
	)
	p.printf("Cleaned: %d rows loaded, %d dropped (%d missing required values, %d invalid Start_Time), %d retained.\n",
		stats.Loaded, stats.Dropped(), stats.MissingRequired, stats.InvalidStartTime, stats.Retained)
	return table, stats, nil
}

// Run executes every report step against the dataset at path. A load
// failure aborts the run. Step failures are logged, counted and collected;
// after all steps ran, Run returns them joined. The summary is returned in
// both cases.
func (p *Pipeline) Run(ctx context.Context, path string) (*domain.Summary, error) {
	summary := &domain.Summary{
		RunID:       p.opts.RunID,
		Source:      filepath.Base(path),
		GeneratedAt: domain.Now(),
	}
	p.logger.Info("pipeline started", "input", path, "output_dir", p.opts.OutputDir)

	table, stats, err := p.Prepare(ctx, path)
	if err != nil {
		return summary, err
	}
	summary.Clean = stats

	if months, err := analysis.CountByMonth(table); err != nil {
		p.logger.Warn("monthly counts unavailable", "error", err)
	} else {
		summary.ByMonth = months
	}

	var errs []error
	for _, s := range p.steps() {
		if err := ctx.Err(); err != nil {
			p.logger.Info("pipeline stopping", "reason", err)
			errs = append(errs, err)
			break
		}
		res := p.runStep(ctx, s, table, summary)
		summary.Steps = append(summary.Steps, res)
		if !res.OK() {
			errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}

	if err := p.writeSummary(ctx, summary); err != nil {
		errs = append(errs, err)
	}

	p.logger.Info("pipeline finished",
		"steps", len(summary.Steps),
		"failed", len(summary.Failed()),
	)
	return summary, errors.Join(errs...)
}

// step is one named report. run stores its aggregates in the summary and
// writes the artifact.
type step struct {
	name     string
	artifact string
	run      func(ctx context.Context, t *domain.Table, s *domain.Summary) error
}

// runStep runs st inside an error boundary: returned errors and panics are
// recorded on the result, never propagated.
func (p *Pipeline) runStep(ctx context.Context, st step, t *domain.Table, s *domain.Summary) (res domain.StepResult) {
	start := time.Now()
	res = domain.StepResult{Name: st.name, Artifact: st.artifact}

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%w: panic: %v", domain.ErrRender, r)
		}
		res.Duration = time.Since(start)
		p.metrics.StepDuration.WithLabelValues(st.name).Observe(res.Duration.Seconds())

		if res.Err != nil {
			p.metrics.StepFailures.WithLabelValues(st.name).Inc()
			p.logger.Warn("report step failed, continuing", "step", st.name, "error", res.Err)
			p.printf("Step %s failed: %v\n", st.name, res.Err)
			return
		}
		p.logger.Info("report step done", "step", st.name, "artifact", st.artifact, "duration", res.Duration)
	}()

	res.Err = st.run(ctx, t, s)
	return res
}

func (p *Pipeline) writeSummary(ctx context.Context, s *domain.Summary) error {
	if p.stages.Summary == nil || p.opts.SummaryFile == "" {
		return nil
	}
	path := filepath.Join(p.opts.OutputDir, p.opts.SummaryFile)
	if err := p.stages.Summary.WriteSummary(ctx, s, path); err != nil {
		p.logger.Warn("summary workbook failed", "path", path, "error", err)
		return fmt.Errorf("summary: %w", err)
	}
	p.printf("Summary saved as '%s'.\n", p.opts.SummaryFile)
	return nil
}

func (p *Pipeline) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(p.opts.Out, format, args...); err != nil {
		p.logger.Debug("progress output failed", "error", err)
	}
}
