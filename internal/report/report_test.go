package report

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvasco323/TRM/internal/learner"
	"github.com/jvasco323/TRM/internal/raster"
	"github.com/jvasco323/TRM/internal/roc"
	"github.com/jvasco323/TRM/internal/zone"
)

func decodePNG(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestROCPlotWritesPNG(t *testing.T) {
	curve, err := roc.New([]float64{0.1, 0.4, 0.35, 0.8}, []int{0, 0, 1, 1})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "roc.png")
	require.NoError(t, ROCPlot(map[string]*roc.Curve{"ensemble": curve, "glm": curve}, path))

	w, h := decodePNG(t, path)
	assert.Greater(t, w, 0)
	assert.Greater(t, h, 0)
}

func TestCalibrationPlotWritesPNG(t *testing.T) {
	probs := []float64{0.05, 0.15, 0.2, 0.45, 0.55, 0.7, 0.85, 0.95}
	classes := []int{0, 0, 0, 1, 0, 1, 1, 1}

	path := filepath.Join(t.TempDir(), "calibration.png")
	require.NoError(t, CalibrationPlot(probs, classes, path))

	w, _ := decodePNG(t, path)
	assert.Greater(t, w, 0)
}

func TestCalibrationPlotRejectsMismatch(t *testing.T) {
	err := CalibrationPlot([]float64{0.5}, []int{1, 0}, filepath.Join(t.TempDir(), "c.png"))
	assert.Error(t, err)
}

func TestGridSearchPlotWritesPNG(t *testing.T) {
	results := []*learner.CVResult{
		{Kind: "glm", BestAUC: 0.81},
		{Kind: "rf", BestAUC: 0.9},
		{Kind: "nnet", BestAUC: 0.74},
	}

	path := filepath.Join(t.TempDir(), "grid.png")
	require.NoError(t, GridSearchPlot(results, path))

	w, _ := decodePNG(t, path)
	assert.Greater(t, w, 0)
}

func TestImportancePlotWritesPNG(t *testing.T) {
	imp := []learner.Importance{
		{Feature: "ph", AUCDrop: 0.02},
		{Feature: "rain", AUCDrop: 0.11},
	}

	path := filepath.Join(t.TempDir(), "importance.png")
	require.NoError(t, ImportancePlot(imp, path))

	w, _ := decodePNG(t, path)
	assert.Greater(t, w, 0)
}

func TestProbabilityMapDimensions(t *testing.T) {
	g := raster.NewGrid(4, 3, [6]float64{36, 0.01, 0, 1, 0, -0.01}, raster.DefaultNoData)
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			g.Set(col, row, float64(col)/4)
		}
	}

	path := filepath.Join(t.TempDir(), "prob.png")
	require.NoError(t, ProbabilityMap(g, "ensemble", path))

	w, h := decodePNG(t, path)
	// 4x3 cells scale to the 800 pixel edge, plus the legend band.
	assert.Equal(t, 800, w)
	assert.Equal(t, 660, h)
}

func TestZoneMapColorsAndLegend(t *testing.T) {
	mask := raster.NewGrid(2, 1, [6]float64{36, 0.01, 0, 0.01, 0, -0.01}, raster.DefaultNoData)
	mask.Set(0, 0, 0)
	mask.Set(1, 0, 1)

	path := filepath.Join(t.TempDir(), "zones.png")
	require.NoError(t, ZoneMap(mask, zone.Summarise(mask), nil, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, 800, img.Bounds().Dx())

	r, g, b, _ := img.At(10, 10).RGBA()
	assert.Equal(t, uint32(191), r>>8)
	assert.Equal(t, uint32(129), g>>8)
	assert.Equal(t, uint32(45), b>>8)

	r, g, b, _ = img.At(410, 10).RGBA()
	assert.Equal(t, uint32(90), r>>8)
	assert.Equal(t, uint32(174), g>>8)
	assert.Equal(t, uint32(97), b>>8)
}

func TestZoneMapDrawsSurveyMarks(t *testing.T) {
	mask := raster.NewGrid(2, 1, [6]float64{36, 0.01, 0, 0.01, 0, -0.01}, raster.DefaultNoData)
	mask.Set(0, 0, 0)
	mask.Set(1, 0, 1)

	marks := []SurveyMark{
		{Lon: 36.005, Lat: 0.005, Class: 0},
		{Lon: 36.015, Lat: 0.005, Class: 1},
		{Lon: 37.5, Lat: 0.005, Class: 1},
	}
	path := filepath.Join(t.TempDir(), "zones.png")
	require.NoError(t, ZoneMap(mask, zone.Summarise(mask), marks, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	// An open mark sits on the first cell center, a filled one on the
	// second. The point off the grid is simply not drawn.
	r, g, b, _ := img.At(200, 200).RGBA()
	assert.Equal(t, uint32(255), r>>8)
	assert.Equal(t, uint32(255), g>>8)
	assert.Equal(t, uint32(255), b>>8)

	r, g, b, _ = img.At(600, 200).RGBA()
	assert.Equal(t, uint32(0), r>>8)
	assert.Equal(t, uint32(0), g>>8)
	assert.Equal(t, uint32(0), b>>8)
}
