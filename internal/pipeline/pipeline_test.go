package pipeline

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvasco323/TRM/internal/config"
	"github.com/jvasco323/TRM/internal/frame"
	"github.com/jvasco323/TRM/internal/raster"
)

const (
	testWidth  = 12
	testHeight = 10
)

func testTransform() [6]float64 {
	return [6]float64{36.0, 0.01, 0, 1.10, 0, -0.01}
}

// writeStudyData lays out a small synthetic study: a west-east gradient
// covariate that carries the signal, a second covariate of pure noise,
// and a survey whose response follows the gradient plus noise.
func writeStudyData(t *testing.T, dataDir string) int {
	t.Helper()
	rng := rand.New(rand.NewSource(99))

	grad := raster.NewGrid(testWidth, testHeight, testTransform(), raster.DefaultNoData)
	noise := raster.NewGrid(testWidth, testHeight, testTransform(), raster.DefaultNoData)
	for row := 0; row < testHeight; row++ {
		for col := 0; col < testWidth; col++ {
			grad.Set(col, row, float64(col))
			noise.Set(col, row, rng.NormFloat64())
		}
	}
	require.NoError(t, raster.WriteASC(filepath.Join(dataDir, "xgrad.asc"), grad))
	require.NoError(t, raster.WriteASC(filepath.Join(dataDir, "noise.asc"), noise))

	var sb strings.Builder
	sb.WriteString("response,lat,lon,site\n")
	points := 60
	for k := 0; k < points; k++ {
		col := k % testWidth
		row := (k * 7) % testHeight
		lon, lat := grad.CellCenter(col, row)
		response := float64(col) + rng.NormFloat64()*2.5
		fmt.Fprintf(&sb, "%.4f,%.6f,%.6f,g%02d\n", response, lat, lon, k/3)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "survey.csv"), []byte(sb.String()), 0644))
	return points
}

func testStudy() *config.Study {
	return &config.Study{
		Name:  "unit",
		Label: "Unit study",
		Survey: config.SurveySpec{
			Path:      "survey.csv",
			Response:  "response",
			Latitude:  "lat",
			Longitude: "lon",
			Group:     "site",
			Quantile:  0.5,
		},
		Covariates: []config.Covariate{
			{Name: "xgrad", Path: "xgrad.asc"},
			{Name: "noise", Path: "noise.asc"},
		},
		Split:     config.SplitSpec{Ratio: 0.7, Seed: 7},
		Training:  config.TrainingSpec{Folds: 3, Seed: 7, Models: []string{"glm", "step", "gam", "rf", "bayes", "nnet"}},
		Threshold: config.ThresholdSpec{Method: "youden"},
	}
}

func newTestRunner(t *testing.T) (*Runner, int) {
	t.Helper()
	dataDir := t.TempDir()
	outDir := t.TempDir()
	t.Setenv("TRM_DATA_PATH", dataDir)
	t.Setenv("TRM_OUTPUT_PATH", outDir)
	points := writeStudyData(t, dataDir)

	r := New(testStudy())
	r.RasterFormat = "asc"
	return r, points
}

func TestRunnerEndToEnd(t *testing.T) {
	r, points := newTestRunner(t)
	require.NoError(t, r.Run())
	outDir := r.Study.OutputDir()

	f, err := frame.ReadCSV(filepath.Join(outDir, FrameFile))
	require.NoError(t, err)
	assert.Equal(t, points, f.Len())
	assert.Equal(t, []string{"xgrad", "noise"}, f.FeatureNames)

	cal, err := frame.ReadCSV(filepath.Join(outDir, CalibrationFile))
	require.NoError(t, err)
	val, err := frame.ReadCSV(filepath.Join(outDir, ValidationFile))
	require.NoError(t, err)
	assert.Equal(t, points, cal.Len()+val.Len())

	var grid []*gridRow
	require.NoError(t, readTable(filepath.Join(outDir, GridSearchFile), &grid))
	bestPerModel := map[string]int{}
	for _, g := range grid {
		if g.Best {
			bestPerModel[g.Model]++
		}
		assert.GreaterOrEqual(t, g.MeanAUC, 0.0)
		assert.LessOrEqual(t, g.MeanAUC, 1.0)
	}
	for _, kind := range r.Study.Training.Models {
		assert.Equal(t, 1, bestPerModel[kind], "model %s needs exactly one winning grid point", kind)
	}

	var oofs []*oofRow
	require.NoError(t, readTable(filepath.Join(outDir, OOFFile), &oofs))
	assert.Len(t, oofs, len(r.Study.Training.Models)*cal.Len())

	var metrics []*metricRow
	require.NoError(t, readTable(filepath.Join(outDir, MetricsFile), &metrics))
	require.Len(t, metrics, len(r.Study.Training.Models))
	for _, m := range metrics {
		assert.GreaterOrEqual(t, m.ValAUC, 0.0)
		assert.LessOrEqual(t, m.ValAUC, 1.0)
	}

	var preds []*predRow
	require.NoError(t, readTable(filepath.Join(outDir, PredictionsFile), &preds))
	ensembleRows := 0
	for _, p := range preds {
		if p.Model == EnsembleName {
			ensembleRows++
			assert.GreaterOrEqual(t, p.Prob, 0.0)
			assert.LessOrEqual(t, p.Prob, 1.0)
		}
	}
	assert.Equal(t, val.Len(), ensembleRows)

	var weights []*weightRow
	require.NoError(t, readTable(filepath.Join(outDir, WeightsFile), &weights))
	terms := map[string]bool{}
	for _, w := range weights {
		terms[w.Term] = true
	}
	assert.True(t, terms["(intercept)"])

	var thresholds []*thresholdRow
	require.NoError(t, readTable(filepath.Join(outDir, ThresholdsFile), &thresholds))
	require.Len(t, thresholds, 3)
	selected := 0
	for _, row := range thresholds {
		if row.Selected {
			selected++
			assert.Equal(t, "youden", row.Method)
		}
		assert.GreaterOrEqual(t, row.Cutoff, 0.0)
		assert.LessOrEqual(t, row.Cutoff, 1.0)
	}
	assert.Equal(t, 1, selected)

	surface, err := raster.ReadASC(filepath.Join(outDir, "prob_ensemble.asc"))
	require.NoError(t, err)
	assert.Equal(t, testWidth, surface.Width)
	assert.Equal(t, testHeight, surface.Height)
	for _, v := range surface.Cells {
		if !surface.IsNoData(v) {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}

	mask, err := raster.ReadASC(filepath.Join(outDir, "zones.asc"))
	require.NoError(t, err)
	for _, v := range mask.Cells {
		if !mask.IsNoData(v) {
			assert.Contains(t, []float64{0, 1}, v)
		}
	}

	for _, plotFile := range []string{"roc.png", "calibration.png", "grid_search.png", "importance.png", "prob_ensemble.png", "zones.png"} {
		info, err := os.Stat(filepath.Join(outDir, PlotDir, plotFile))
		require.NoError(t, err, plotFile)
		assert.Greater(t, info.Size(), int64(0), plotFile)
	}

	var summary []*summaryRow
	require.NoError(t, readTable(filepath.Join(outDir, SummaryFile), &summary))
	byKey := map[string]string{}
	for _, row := range summary {
		byKey[row.Key] = row.Value
	}
	assert.Equal(t, "unit", byKey["study"])
	assert.Equal(t, "60", byKey["frame_rows"])

	digest := r.Summary()
	for _, kind := range r.Study.Training.Models {
		assert.Contains(t, digest, kind+":")
	}
	assert.Contains(t, digest, "cutoff")
	assert.Contains(t, digest, "youden")
}

func TestEnsembleBeatsNoise(t *testing.T) {
	r, _ := newTestRunner(t)
	require.NoError(t, r.Run())

	var preds []*predRow
	require.NoError(t, readTable(filepath.Join(r.Study.OutputDir(), PredictionsFile), &preds))

	// The gradient carries real signal, so the blend has to separate
	// the classes far better than chance.
	var probs []float64
	var classes []int
	for _, p := range preds {
		if p.Model == EnsembleName {
			probs = append(probs, p.Prob)
			classes = append(classes, p.Class)
		}
	}
	require.NotEmpty(t, probs)

	var sumPos, sumNeg float64
	var nPos, nNeg int
	for i, c := range classes {
		if c == 1 {
			sumPos += probs[i]
			nPos++
		} else {
			sumNeg += probs[i]
			nNeg++
		}
	}
	require.Greater(t, nPos, 0)
	require.Greater(t, nNeg, 0)
	assert.Greater(t, sumPos/float64(nPos), sumNeg/float64(nNeg))
}

func TestStackNeedsTrainArtifacts(t *testing.T) {
	r, _ := newTestRunner(t)

	err := r.Stack()
	assert.ErrorContains(t, err, "oof.csv")
}

func TestThresholdNeedsStackArtifacts(t *testing.T) {
	r, _ := newTestRunner(t)
	require.NoError(t, r.Extract())
	require.NoError(t, r.Split())

	err := r.Threshold()
	assert.ErrorContains(t, err, "predictions.csv")
}

func TestExtractRejectsClimateWindow(t *testing.T) {
	r, _ := newTestRunner(t)
	r.Study.Climate = config.ClimateSpec{
		Enabled: true,
		Start:   "2020-06-01",
		End:     "2020-03-01",
		Step:    0.5,
		Metrics: []string{"gdd"},
	}

	err := r.Extract()
	assert.ErrorContains(t, err, "ends before it starts")
}

func TestBoundaryMaskLimitsPrediction(t *testing.T) {
	r, _ := newTestRunner(t)

	// West half of the test grid only.
	west := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},
"geometry":{"type":"Polygon","coordinates":[[[36.0,1.0],[36.06,1.0],[36.06,1.1],[36.0,1.1],[36.0,1.0]]]}}]}`
	require.NoError(t, os.WriteFile(r.Study.DataPath("west.geojson"), []byte(west), 0644))
	r.Study.Boundary = "west.geojson"

	ref := raster.NewGrid(testWidth, testHeight, testTransform(), raster.DefaultNoData)
	inside, err := r.boundaryMask(ref)
	require.NoError(t, err)
	require.Len(t, inside, testWidth*testHeight)

	assert.True(t, inside[2], "west cells stay inside")
	assert.False(t, inside[10], "east cells are masked")

	noMask, err := New(testStudy()).boundaryMask(ref)
	require.NoError(t, err)
	assert.Nil(t, noMask)
}
