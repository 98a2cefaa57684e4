package pipeline

import (
	"fmt"

	"github.com/jvasco323/TRM/internal/raster"
	"github.com/jvasco323/TRM/internal/stacking"
)

type weightRow struct {
	Term    string  `csv:"term"`
	Weight  float64 `csv:"weight"`
	Dropped bool    `csv:"dropped"`
}

// Stack trains the logistic meta-model on the out-of-fold
// probabilities, scores the validation rows with the blend and
// combines the per-model rasters into the ensemble surface.
func (r *Runner) Stack() error {
	oofPath, err := r.path(OOFFile)
	if err != nil {
		return err
	}
	var oofs []*oofRow
	if err := readTable(oofPath, &oofs); err != nil {
		return err
	}
	if len(oofs) == 0 {
		return fmt.Errorf("no out-of-fold predictions recorded, run the train stage first")
	}

	rows := 0
	for _, o := range oofs {
		if o.Row+1 > rows {
			rows = o.Row + 1
		}
	}
	probs := map[string][]float64{}
	y := make([]int, rows)
	for _, o := range oofs {
		if probs[o.Model] == nil {
			probs[o.Model] = make([]float64, rows)
		}
		probs[o.Model][o.Row] = o.Prob
		y[o.Row] = o.Class
	}

	var names []string
	for _, kind := range r.Study.Training.Models {
		if probs[kind] != nil {
			names = append(names, kind)
		}
	}

	ensemble, err := stacking.Train(names, probs, y, r.Study.Training.Seed)
	if err != nil {
		return err
	}
	if len(ensemble.Dropped) > 0 {
		fmt.Printf("Dropped from the blend (flat out-of-fold column): %v\n", ensemble.Dropped)
	}

	coef := ensemble.Coefficients()
	var weights []*weightRow
	for _, name := range ensemble.Models {
		weights = append(weights, &weightRow{Term: name, Weight: coef[name]})
	}
	weights = append(weights, &weightRow{Term: "(intercept)", Weight: coef["(intercept)"]})
	for _, name := range ensemble.Dropped {
		weights = append(weights, &weightRow{Term: name, Dropped: true})
	}
	weightsPath, err := r.path(WeightsFile)
	if err != nil {
		return err
	}
	if err := writeTable(weightsPath, &weights); err != nil {
		return err
	}

	// Blend the validation scores and append them to the prediction
	// table under the ensemble name.
	predPath, err := r.path(PredictionsFile)
	if err != nil {
		return err
	}
	var preds []*predRow
	if err := readTable(predPath, &preds); err != nil {
		return err
	}
	perModel := map[string][]*predRow{}
	for _, p := range preds {
		if p.Model == EnsembleName {
			continue
		}
		perModel[p.Model] = append(perModel[p.Model], p)
	}
	first := perModel[ensemble.Models[0]]
	if len(first) == 0 {
		return fmt.Errorf("no validation predictions recorded, run the predict stage first")
	}
	kept := preds[:0]
	for _, p := range preds {
		if p.Model != EnsembleName {
			kept = append(kept, p)
		}
	}
	preds = kept
	for i, base := range first {
		byModel := map[string]float64{}
		for _, name := range ensemble.Models {
			col := perModel[name]
			if len(col) != len(first) {
				return fmt.Errorf("validation predictions of %s are misaligned", name)
			}
			byModel[name] = col[i].Prob
		}
		blend, err := ensemble.Prob(byModel)
		if err != nil {
			return err
		}
		preds = append(preds, &predRow{
			Model: EnsembleName,
			ID:    base.ID,
			Group: base.Group,
			Class: base.Class,
			Prob:  blend,
		})
	}
	if err := writeTable(predPath, &preds); err != nil {
		return err
	}

	if !r.hasRasters() {
		fmt.Println("No raster covariates configured, skipping the ensemble surface")
		return nil
	}

	grids := map[string]*raster.Grid{}
	for _, name := range ensemble.Models {
		p, err := r.path(r.ProbabilityRaster(name))
		if err != nil {
			return err
		}
		g, err := raster.Read(p, 1)
		if err != nil {
			return err
		}
		grids[name] = g
	}
	combined, err := ensemble.Combine(grids)
	if err != nil {
		return err
	}
	outPath, err := r.path(r.ProbabilityRaster(EnsembleName))
	if err != nil {
		return err
	}
	if err := raster.Write(outPath, combined); err != nil {
		return err
	}
	fmt.Printf("Ensemble surface written to %s\n", outPath)
	return nil
}
