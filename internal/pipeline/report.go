package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/jvasco323/TRM/internal/frame"
	"github.com/jvasco323/TRM/internal/learner"
	"github.com/jvasco323/TRM/internal/raster"
	"github.com/jvasco323/TRM/internal/report"
	"github.com/jvasco323/TRM/internal/roc"
	"github.com/jvasco323/TRM/internal/zone"
)

// Report renders the diagnostic plots and maps from the recorded
// artifacts. Artifacts of stages that have not run yet are skipped, so
// a partial run still yields its plots. Renders are independent and run
// concurrently.
func (r *Runner) Report() error {
	var renders []func() error

	render, err := r.rocRender()
	if err != nil {
		return err
	}
	renders = appendRender(renders, render)

	render, err = r.calibrationRender()
	if err != nil {
		return err
	}
	renders = appendRender(renders, render)

	render, err = r.gridSearchRender()
	if err != nil {
		return err
	}
	renders = appendRender(renders, render)

	render, err = r.importanceRender()
	if err != nil {
		return err
	}
	renders = appendRender(renders, render)

	if r.hasRasters() {
		render, err = r.probabilityMapRender()
		if err != nil {
			return err
		}
		renders = appendRender(renders, render)

		render, err = r.zoneMapRender()
		if err != nil {
			return err
		}
		renders = appendRender(renders, render)
	} else {
		fmt.Println("No raster covariates configured, skipping the maps")
	}

	if len(renders) == 0 {
		return fmt.Errorf("no artifacts to plot yet, run the earlier stages first")
	}

	var g errgroup.Group
	for _, render := range renders {
		g.Go(render)
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("%d plots written to %s\n", len(renders), filepath.Join(r.Study.OutputDir(), PlotDir))
	return nil
}

func appendRender(renders []func() error, render func() error) []func() error {
	if render == nil {
		return renders
	}
	return append(renders, render)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// rocRender plots the validation ROC curve of every model, ensemble
// included.
func (r *Runner) rocRender() (func() error, error) {
	predPath, err := r.path(PredictionsFile)
	if err != nil {
		return nil, err
	}
	if !fileExists(predPath) {
		return nil, nil
	}
	var preds []*predRow
	if err := readTable(predPath, &preds); err != nil {
		return nil, err
	}

	probs := map[string][]float64{}
	classes := map[string][]int{}
	for _, p := range preds {
		probs[p.Model] = append(probs[p.Model], p.Prob)
		classes[p.Model] = append(classes[p.Model], p.Class)
	}
	curves := map[string]*roc.Curve{}
	for model := range probs {
		curve, err := roc.New(probs[model], classes[model])
		if err != nil {
			return nil, fmt.Errorf("ROC of %s: %w", model, err)
		}
		curves[model] = curve
	}

	rocPath, err := r.plotPath("roc.png")
	if err != nil {
		return nil, err
	}
	return func() error { return report.ROCPlot(curves, rocPath) }, nil
}

// calibrationRender plots the reliability curve of the blended
// validation probabilities.
func (r *Runner) calibrationRender() (func() error, error) {
	predPath, err := r.path(PredictionsFile)
	if err != nil {
		return nil, err
	}
	if !fileExists(predPath) {
		return nil, nil
	}
	var preds []*predRow
	if err := readTable(predPath, &preds); err != nil {
		return nil, err
	}

	var probs []float64
	var classes []int
	for _, p := range preds {
		if p.Model == EnsembleName {
			probs = append(probs, p.Prob)
			classes = append(classes, p.Class)
		}
	}
	if len(probs) == 0 {
		return nil, nil
	}

	calPath, err := r.plotPath("calibration.png")
	if err != nil {
		return nil, err
	}
	return func() error { return report.CalibrationPlot(probs, classes, calPath) }, nil
}

func (r *Runner) gridSearchRender() (func() error, error) {
	gridPath, err := r.path(GridSearchFile)
	if err != nil {
		return nil, err
	}
	if !fileExists(gridPath) {
		return nil, nil
	}
	var grid []*gridRow
	if err := readTable(gridPath, &grid); err != nil {
		return nil, err
	}

	best := map[string]float64{}
	for _, g := range grid {
		if g.Best {
			best[g.Model] = g.MeanAUC
		}
	}
	var results []*learner.CVResult
	for _, kind := range r.Study.Training.Models {
		if auc, ok := best[kind]; ok {
			results = append(results, &learner.CVResult{Kind: kind, BestAUC: auc})
		}
	}

	searchPath, err := r.plotPath("grid_search.png")
	if err != nil {
		return nil, err
	}
	return func() error { return report.GridSearchPlot(results, searchPath) }, nil
}

func (r *Runner) importanceRender() (func() error, error) {
	impPath, err := r.path(ImportanceFile)
	if err != nil {
		return nil, err
	}
	if !fileExists(impPath) {
		return nil, nil
	}
	var impRows []*importanceRow
	if err := readTable(impPath, &impRows); err != nil {
		return nil, err
	}

	imps := make([]learner.Importance, 0, len(impRows))
	for _, row := range impRows {
		imps = append(imps, learner.Importance{Feature: row.Feature, AUCDrop: row.AUCDrop, SD: row.SD})
	}

	impPlotPath, err := r.plotPath("importance.png")
	if err != nil {
		return nil, err
	}
	return func() error { return report.ImportancePlot(imps, impPlotPath) }, nil
}

func (r *Runner) probabilityMapRender() (func() error, error) {
	surfacePath, err := r.path(r.ProbabilityRaster(EnsembleName))
	if err != nil {
		return nil, err
	}
	if !fileExists(surfacePath) {
		return nil, nil
	}
	surface, err := raster.Read(surfacePath, 1)
	if err != nil {
		return nil, err
	}

	mapPath, err := r.plotPath("prob_ensemble.png")
	if err != nil {
		return nil, err
	}
	label := r.Study.Label
	return func() error { return report.ProbabilityMap(surface, label, mapPath) }, nil
}

func (r *Runner) zoneMapRender() (func() error, error) {
	maskPath, err := r.path(r.ZoneRaster())
	if err != nil {
		return nil, err
	}
	if !fileExists(maskPath) {
		return nil, nil
	}
	mask, err := raster.Read(maskPath, 1)
	if err != nil {
		return nil, err
	}

	var marks []report.SurveyMark
	framePath, err := r.path(FrameFile)
	if err != nil {
		return nil, err
	}
	if fileExists(framePath) {
		f, err := frame.ReadCSV(framePath)
		if err != nil {
			return nil, err
		}
		for _, row := range f.Rows {
			marks = append(marks, report.SurveyMark{Lon: row.Lon, Lat: row.Lat, Class: row.Class})
		}
	}

	zonePlotPath, err := r.plotPath("zones.png")
	if err != nil {
		return nil, err
	}
	return func() error { return report.ZoneMap(mask, zone.Summarise(mask), marks, zonePlotPath) }, nil
}
