package pipeline

import (
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/schollz/progressbar/v3"

	"github.com/jvasco323/TRM/internal/climate"
	"github.com/jvasco323/TRM/internal/frame"
	"github.com/jvasco323/TRM/internal/learner"
	"github.com/jvasco323/TRM/internal/raster"
	"github.com/jvasco323/TRM/internal/roc"
	"github.com/jvasco323/TRM/internal/survey"
)

type predRow struct {
	Model string  `csv:"model"`
	ID    int     `csv:"id"`
	Group string  `csv:"group"`
	Class int     `csv:"class"`
	Prob  float64 `csv:"prob"`
}

type metricRow struct {
	Model  string  `csv:"model"`
	CVAUC  float64 `csv:"cv_auc"`
	ValAUC float64 `csv:"val_auc"`
}

type importanceRow struct {
	Feature string  `csv:"feature"`
	AUCDrop float64 `csv:"auc_drop"`
	SD      float64 `csv:"sd"`
}

func (r *Runner) hasRasters() bool {
	return len(r.Study.Covariates) > 0
}

// predictionStack loads the covariate rasters and, when climate is
// enabled, rasterises the seasonal metrics on top so the layer order
// matches the training frame.
func (r *Runner) predictionStack() (*raster.Stack, error) {
	stack, err := raster.LoadStack(r.covariateSources())
	if err != nil {
		return nil, err
	}
	if r.Study.Climate.Enabled && len(r.Study.Climate.Metrics) > 0 {
		start, end, err := r.climateWindow()
		if err != nil {
			return nil, err
		}
		grids, err := climate.Grids(stack.Ref(), r.Study.Climate.Metrics, r.Study.Climate.Step, start, end, fetchRetries)
		if err != nil {
			return nil, err
		}
		for _, m := range r.Study.Climate.Metrics {
			if err := stack.Append(climate.FeatureName(m), grids[m]); err != nil {
				return nil, err
			}
		}
	}
	return stack, nil
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// boundaryMask flags the cells whose center falls inside the study
// boundary. Nil means no boundary, every cell counts.
func (r *Runner) boundaryMask(ref *raster.Grid) ([]bool, error) {
	if r.Study.Boundary == "" {
		return nil, nil
	}
	b, err := survey.LoadBoundary(r.Study.DataPath(r.Study.Boundary))
	if err != nil {
		return nil, err
	}
	inside := make([]bool, ref.Width*ref.Height)
	masked := 0
	for row := 0; row < ref.Height; row++ {
		for col := 0; col < ref.Width; col++ {
			lon, lat := ref.CellCenter(col, row)
			if b.Contains(lon, lat) {
				inside[row*ref.Width+col] = true
			} else {
				masked++
			}
		}
	}
	fmt.Printf("Boundary %s masks %d of %d cells\n", r.Study.Boundary, masked, len(inside))
	return inside, nil
}

// Predict refits every tuned learner on the full calibration table,
// scores the validation rows and sweeps each model over the covariate
// grid into a probability raster.
func (r *Runner) Predict() error {
	calPath, err := r.path(CalibrationFile)
	if err != nil {
		return err
	}
	cal, err := frame.ReadCSV(calPath)
	if err != nil {
		return err
	}
	valPath, err := r.path(ValidationFile)
	if err != nil {
		return err
	}
	val, err := frame.ReadCSV(valPath)
	if err != nil {
		return err
	}

	best, err := r.bestParams()
	if err != nil {
		return err
	}

	kinds := r.Study.Training.Models
	seed := r.Study.Training.Seed
	models := make(map[string]learner.Model, len(kinds))
	for _, kind := range kinds {
		m, err := learner.New(kind, cal.FeatureNames, best[kind], seed)
		if err != nil {
			return err
		}
		if err := m.Fit(cal.Matrix(), cal.Labels()); err != nil {
			return fmt.Errorf("refit %s on the calibration table: %w", kind, err)
		}
		models[kind] = m
	}

	// Validation scores and per-model AUC.
	valX := val.Matrix()
	valY := val.Labels()
	var preds []*predRow
	valAUC := map[string]float64{}
	for _, kind := range kinds {
		probs := make([]float64, len(valX))
		for i, x := range valX {
			probs[i] = models[kind].Prob(x)
			preds = append(preds, &predRow{
				Model: kind,
				ID:    val.Rows[i].ID,
				Group: val.Rows[i].Group,
				Class: valY[i],
				Prob:  probs[i],
			})
		}
		auc, err := roc.AUC(probs, valY)
		if err != nil {
			return fmt.Errorf("validation AUC of %s: %w", kind, err)
		}
		valAUC[kind] = auc
		fmt.Printf("%s: validation AUC %.4f\n", kind, auc)
	}
	predPath, err := r.path(PredictionsFile)
	if err != nil {
		return err
	}
	if err := writeTable(predPath, &preds); err != nil {
		return err
	}

	// Cross-validated AUC comes from the recorded grid search.
	gridPath, err := r.path(GridSearchFile)
	if err != nil {
		return err
	}
	var grid []*gridRow
	if err := readTable(gridPath, &grid); err != nil {
		return err
	}
	cvAUC := map[string]float64{}
	for _, g := range grid {
		if g.Best {
			cvAUC[g.Model] = g.MeanAUC
		}
	}
	var metrics []*metricRow
	for _, kind := range kinds {
		metrics = append(metrics, &metricRow{Model: kind, CVAUC: cvAUC[kind], ValAUC: valAUC[kind]})
	}
	metricsPath, err := r.path(MetricsFile)
	if err != nil {
		return err
	}
	if err := writeTable(metricsPath, &metrics); err != nil {
		return err
	}

	// Permutation importance of the strongest validation model.
	topKind := kinds[0]
	for _, kind := range kinds[1:] {
		if valAUC[kind] > valAUC[topKind] {
			topKind = kind
		}
	}
	imps, err := learner.PermutationImportance(models[topKind], val, seed)
	if err != nil {
		return err
	}
	var impRows []*importanceRow
	for _, im := range imps {
		impRows = append(impRows, &importanceRow{Feature: im.Feature, AUCDrop: im.AUCDrop, SD: im.SD})
	}
	impPath, err := r.path(ImportanceFile)
	if err != nil {
		return err
	}
	if err := writeTable(impPath, &impRows); err != nil {
		return err
	}
	fmt.Printf("Permutation importance computed on %s\n", topKind)

	if !r.hasRasters() {
		fmt.Println("No raster covariates configured, skipping spatial prediction")
		return nil
	}

	stack, err := r.predictionStack()
	if err != nil {
		return err
	}
	if !sameNames(stack.Names, cal.FeatureNames) {
		return fmt.Errorf("covariate stack %v does not match the trained frame %v", stack.Names, cal.FeatureNames)
	}

	ref := stack.Ref()
	inside, err := r.boundaryMask(ref)
	if err != nil {
		return err
	}
	outGrids := make(map[string]*raster.Grid, len(kinds))
	for _, kind := range kinds {
		outGrids[kind] = ref.Blank()
	}

	var (
		mu          sync.Mutex
		progressBar = progressbar.Default(int64(len(kinds)*ref.Height), "Predicting grids")
	)

	// One job per model: a fitted model is only safe on a single
	// goroutine, the grids are independent.
	wp := workerpool.New(len(kinds))
	for _, kind := range kinds {
		kind := kind
		wp.Submit(func() {
			m := models[kind]
			out := outGrids[kind]
			for row := 0; row < ref.Height; row++ {
				for col := 0; col < ref.Width; col++ {
					if inside != nil && !inside[row*ref.Width+col] {
						continue
					}
					vec, ok := stack.CellVector(col, row)
					if !ok {
						continue
					}
					out.Set(col, row, m.Prob(vec))
				}
				mu.Lock()
				progressBar.Add(1)
				mu.Unlock()
			}
		})
	}
	wp.StopWait()

	for _, kind := range kinds {
		rasterPath, err := r.path(r.ProbabilityRaster(kind))
		if err != nil {
			return err
		}
		if err := raster.Write(rasterPath, outGrids[kind]); err != nil {
			return err
		}
	}
	fmt.Printf("Probability rasters written for %d models\n", len(kinds))
	return nil
}
