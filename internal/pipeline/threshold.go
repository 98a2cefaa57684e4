package pipeline

import (
	"fmt"

	"github.com/jvasco323/TRM/internal/raster"
	"github.com/jvasco323/TRM/internal/roc"
	"github.com/jvasco323/TRM/internal/zone"
)

type thresholdRow struct {
	Method      string  `csv:"method"`
	Cutoff      float64 `csv:"cutoff"`
	Sensitivity float64 `csv:"sensitivity"`
	Specificity float64 `csv:"specificity"`
	Accuracy    float64 `csv:"accuracy"`
	Kappa       float64 `csv:"kappa"`
	Youden      float64 `csv:"youden"`
	Selected    bool    `csv:"selected"`
}

var thresholdMethods = []string{"youden", "closest.topleft", "prevalence"}

// Threshold derives the operating cutoff from the ensemble's
// validation ROC curve and cuts the ensemble surface into the binary
// management-zone mask.
func (r *Runner) Threshold() error {
	predPath, err := r.path(PredictionsFile)
	if err != nil {
		return err
	}
	var preds []*predRow
	if err := readTable(predPath, &preds); err != nil {
		return err
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
		return fmt.Errorf("no ensemble predictions recorded, run the stack stage first")
	}

	curve, err := roc.New(probs, classes)
	if err != nil {
		return err
	}
	fmt.Printf("Ensemble validation AUC %.4f over %d rows\n", curve.AUC, len(probs))

	var rows []*thresholdRow
	var chosen roc.Point
	for _, method := range thresholdMethods {
		point, err := curve.Select(method)
		if err != nil {
			return err
		}
		selected := method == r.Study.Threshold.Method
		if selected {
			chosen = point
		}
		rows = append(rows, &thresholdRow{
			Method:      method,
			Cutoff:      point.Cutoff,
			Sensitivity: point.Sensitivity,
			Specificity: point.Specificity,
			Accuracy:    point.Accuracy,
			Kappa:       point.Kappa,
			Youden:      point.Youden,
			Selected:    selected,
		})
	}
	thrPath, err := r.path(ThresholdsFile)
	if err != nil {
		return err
	}
	if err := writeTable(thrPath, &rows); err != nil {
		return err
	}
	fmt.Printf("Cutoff %.3f by %s: sensitivity %.3f, specificity %.3f\n",
		chosen.Cutoff, r.Study.Threshold.Method, chosen.Sensitivity, chosen.Specificity)

	if !r.hasRasters() {
		fmt.Println("No raster covariates configured, skipping the zone mask")
		return nil
	}

	probPath, err := r.path(r.ProbabilityRaster(EnsembleName))
	if err != nil {
		return err
	}
	surface, err := raster.Read(probPath, 1)
	if err != nil {
		return err
	}
	mask := zone.Delineate(surface, chosen.Cutoff)
	maskPath, err := r.path(r.ZoneRaster())
	if err != nil {
		return err
	}
	if err := raster.Write(maskPath, mask); err != nil {
		return err
	}

	summaries := zone.Summarise(mask)
	zonePath, err := r.path(ZoneTableFile)
	if err != nil {
		return err
	}
	if err := writeTable(zonePath, &summaries); err != nil {
		return err
	}
	for _, s := range summaries {
		fmt.Printf("Zone %d (%s): %d cells, %.1f%%, %.1f ha in %d patches\n",
			s.Zone, s.Label, s.Cells, s.Share*100, s.AreaHa, s.Patches)
	}
	return nil
}
