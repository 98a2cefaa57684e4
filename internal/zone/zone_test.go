package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvasco323/TRM/internal/raster"
)

func equatorGrid(width, height int) *raster.Grid {
	cs := 0.01
	transform := [6]float64{36.0, cs, 0, float64(height) * cs, 0, -cs}
	return raster.NewGrid(width, height, transform, raster.DefaultNoData)
}

func TestDelineateSplitsAtThreshold(t *testing.T) {
	prob := equatorGrid(2, 2)
	prob.Set(0, 0, 0.2)
	prob.Set(1, 0, 0.5)
	prob.Set(0, 1, 0.8)

	mask := Delineate(prob, 0.5)

	assert.Equal(t, 0.0, mask.At(0, 0))
	assert.Equal(t, 1.0, mask.At(1, 0))
	assert.Equal(t, 1.0, mask.At(0, 1))
	assert.True(t, mask.IsNoData(mask.At(1, 1)))
}

func TestSummariseCountsAndShares(t *testing.T) {
	mask := equatorGrid(3, 3)
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			mask.Set(col, row, 0)
		}
	}
	mask.Set(0, 0, 1)
	mask.Set(1, 0, 1)
	mask.Set(2, 2, raster.DefaultNoData)

	out := Summarise(mask)
	require.Len(t, out, 2)

	require.Equal(t, 0, out[0].Zone)
	require.Equal(t, 1, out[1].Zone)
	assert.Equal(t, "unfavourable", out[0].Label)
	assert.Equal(t, "favourable", out[1].Label)

	assert.Equal(t, 6, out[0].Cells)
	assert.Equal(t, 2, out[1].Cells)
	assert.InDelta(t, 0.75, out[0].Share, 1e-12)
	assert.InDelta(t, 0.25, out[1].Share, 1e-12)
}

func TestSummarisePatchesUseFourConnectivity(t *testing.T) {
	// Checkerboard corners touch only diagonally, so every favourable
	// cell is its own patch.
	mask := equatorGrid(3, 3)
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			if (col+row)%2 == 0 {
				mask.Set(col, row, 1)
			} else {
				mask.Set(col, row, 0)
			}
		}
	}

	out := Summarise(mask)
	assert.Equal(t, 5, out[1].Patches)
	assert.Equal(t, 4, out[0].Patches)
}

func TestSummariseJoinsContiguousCells(t *testing.T) {
	mask := equatorGrid(3, 3)
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			mask.Set(col, row, 0)
		}
	}
	// L shaped block down the left edge and along the bottom.
	mask.Set(0, 0, 1)
	mask.Set(0, 1, 1)
	mask.Set(0, 2, 1)
	mask.Set(1, 2, 1)

	out := Summarise(mask)
	assert.Equal(t, 4, out[1].Cells)
	assert.Equal(t, 1, out[1].Patches)
	assert.Equal(t, 1, out[0].Patches)
}

func TestSummariseAreaNearEquator(t *testing.T) {
	mask := equatorGrid(2, 1)
	mask.Set(0, 0, 1)
	mask.Set(1, 0, 0)

	out := Summarise(mask)

	// 0.01 degree cells at the equator are about 1.1132 km on each
	// side, so a little under 124 hectares.
	want := 0.01 * 111.32 * 0.01 * 111.32 * 100
	assert.InDelta(t, want, out[1].AreaHa, want*1e-4)
	assert.InDelta(t, want, out[0].AreaHa, want*1e-4)
}

func TestSummariseAreaShrinksWithLatitude(t *testing.T) {
	cs := 0.01
	north := raster.NewGrid(1, 1, [6]float64{36.0, cs, 0, 60.0 + cs, 0, -cs}, raster.DefaultNoData)
	north.Set(0, 0, 1)
	south := equatorGrid(1, 1)
	south.Set(0, 0, 1)

	a60 := Summarise(north)[1].AreaHa
	a0 := Summarise(south)[1].AreaHa

	// cos(60) halves the east-west extent.
	assert.InDelta(t, 0.5, a60/a0, 0.01)
}

func TestSummariseEmptyMask(t *testing.T) {
	mask := equatorGrid(2, 2)

	out := Summarise(mask)
	require.Len(t, out, 2)
	for _, s := range out {
		assert.Zero(t, s.Cells)
		assert.Zero(t, s.Share)
		assert.Zero(t, s.Patches)
		assert.Zero(t, s.AreaHa)
	}
}
