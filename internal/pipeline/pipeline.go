package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/jvasco323/TRM/internal/config"
)

// Artifact file names under the study output directory. Stages talk to
// each other through these files so every stage can also be run on its
// own, the way the original survey workflows were chained.
const (
	FrameFile       = "frame.csv"
	SummaryFile     = "summary.csv"
	CalibrationFile = "calibration.csv"
	ValidationFile  = "validation.csv"
	GridSearchFile  = "grid_search.csv"
	BestParamsFile  = "best_params.csv"
	OOFFile         = "oof.csv"
	CoefficientFile = "coefficients.csv"
	MetricsFile     = "metrics.csv"
	PredictionsFile = "predictions.csv"
	ImportanceFile  = "importance.csv"
	WeightsFile     = "stacking.csv"
	ThresholdsFile  = "thresholds.csv"
	ZoneTableFile   = "zones.csv"
	PlotDir         = "plots"

	EnsembleName = "ensemble"
)

const fetchRetries = 5

// Runner executes the modelling stages of one study.
type Runner struct {
	Study *config.Study

	// RasterFormat is the extension probability and zone rasters are
	// written with, tif by default.
	RasterFormat string
}

func New(study *config.Study) *Runner {
	return &Runner{Study: study, RasterFormat: "tif"}
}

func (r *Runner) format() string {
	if r.RasterFormat == "" {
		return "tif"
	}
	return r.RasterFormat
}

// path resolves an artifact inside the study output directory,
// creating the directory on first use.
func (r *Runner) path(name string) (string, error) {
	dir := r.Study.OutputDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating output directory %s: %w", dir, err)
	}
	return filepath.Join(dir, name), nil
}

func (r *Runner) plotPath(name string) (string, error) {
	dir := filepath.Join(r.Study.OutputDir(), PlotDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating plot directory %s: %w", dir, err)
	}
	return filepath.Join(dir, name), nil
}

// ProbabilityRaster is the on-disk name of one model's probability
// surface.
func (r *Runner) ProbabilityRaster(model string) string {
	return fmt.Sprintf("prob_%s.%s", model, r.format())
}

// ZoneRaster is the on-disk name of the binary management-zone mask.
func (r *Runner) ZoneRaster() string {
	return fmt.Sprintf("zones.%s", r.format())
}

func writeTable(path string, rows interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}

func readTable(path string, rows interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()
	if err := gocsv.UnmarshalFile(f, rows); err != nil {
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	return nil
}

// stage runs one named step with a banner and its wall time, the way
// long runs are easiest to follow in a terminal log.
func stage(name string, fn func() error) error {
	fmt.Printf("==> %s\n", name)
	start := time.Now()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	fmt.Printf("==> %s done in %s\n", name, time.Since(start).Round(time.Millisecond))
	return nil
}

// Run executes the whole pipeline in order.
func (r *Runner) Run() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"extract", r.Extract},
		{"split", r.Split},
		{"train", r.Train},
		{"predict", r.Predict},
		{"stack", r.Stack},
		{"threshold", r.Threshold},
		{"report", r.Report},
	}
	for _, s := range steps {
		if err := stage(s.name, s.fn); err != nil {
			return err
		}
	}
	return nil
}

// Summary condenses the recorded metrics into a few lines for the
// completion notification. Stages that did not run leave no lines.
func (r *Runner) Summary() string {
	var lines []string

	if p, err := r.path(MetricsFile); err == nil && fileExists(p) {
		var metrics []*metricRow
		if readTable(p, &metrics) == nil {
			for _, m := range metrics {
				lines = append(lines, fmt.Sprintf("%s: CV AUC %.3f, validation AUC %.3f", m.Model, m.CVAUC, m.ValAUC))
			}
		}
	}
	if p, err := r.path(ThresholdsFile); err == nil && fileExists(p) {
		var rows []*thresholdRow
		if readTable(p, &rows) == nil {
			for _, row := range rows {
				if row.Selected {
					lines = append(lines, fmt.Sprintf("cutoff %.3f by %s, kappa %.3f", row.Cutoff, row.Method, row.Kappa))
				}
			}
		}
	}
	return strings.Join(lines, "\n")
}
