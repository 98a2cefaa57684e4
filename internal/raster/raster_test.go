package raster_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jvasco323/TRM/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func degreeTransform() [6]float64 {
	return [6]float64{34.0, 0.25, 0, 1.0, 0, -0.25}
}

func TestGridCoordinateRoundTrip(t *testing.T) {
	g := raster.NewGrid(8, 6, degreeTransform(), raster.DefaultNoData)

	lon, lat := g.CellCenter(0, 0)
	assert.InDelta(t, 34.125, lon, 1e-9)
	assert.InDelta(t, 0.875, lat, 1e-9)

	for _, cell := range [][2]int{{0, 0}, {7, 5}, {3, 2}} {
		lon, lat := g.CellCenter(cell[0], cell[1])
		col, row, ok := g.Locate(lon, lat)
		require.True(t, ok)
		assert.Equal(t, cell[0], col)
		assert.Equal(t, cell[1], row)
	}

	_, _, ok := g.Locate(33.9, 0.5)
	assert.False(t, ok)
	_, _, ok = g.Locate(34.5, 1.5)
	assert.False(t, ok)
}

func TestGridReclassify(t *testing.T) {
	g := raster.NewGrid(2, 2, degreeTransform(), raster.DefaultNoData)
	g.Set(0, 0, 0.2)
	g.Set(1, 0, 0.71)
	g.Set(0, 1, 0.7)

	mask := g.Reclassify(0.7)
	assert.Equal(t, 0.0, mask.At(0, 0))
	assert.Equal(t, 1.0, mask.At(1, 0))
	assert.Equal(t, 1.0, mask.At(0, 1))
	assert.True(t, mask.IsNoData(mask.At(1, 1)))
	assert.Equal(t, 3, mask.ValidCount())
}

func TestGridIsNoDataHandlesNaN(t *testing.T) {
	g := raster.NewGrid(1, 1, degreeTransform(), raster.DefaultNoData)
	assert.True(t, g.IsNoData(math.NaN()))
	assert.True(t, g.IsNoData(raster.DefaultNoData))
	assert.False(t, g.IsNoData(0))
}

func TestGridAlignWith(t *testing.T) {
	a := raster.NewGrid(4, 4, degreeTransform(), raster.DefaultNoData)
	b := raster.NewGrid(4, 4, degreeTransform(), raster.DefaultNoData)
	require.NoError(t, a.AlignWith(b))

	c := raster.NewGrid(4, 5, degreeTransform(), raster.DefaultNoData)
	assert.Error(t, a.AlignWith(c))

	shifted := degreeTransform()
	shifted[0] += 0.1
	d := raster.NewGrid(4, 4, shifted, raster.DefaultNoData)
	assert.Error(t, a.AlignWith(d))
}

func TestGridStats(t *testing.T) {
	g := raster.NewGrid(2, 2, degreeTransform(), raster.DefaultNoData)
	g.Set(0, 0, 1)
	g.Set(1, 0, 3)
	min, max, mean, n := g.Stats()
	assert.Equal(t, 1.0, min)
	assert.Equal(t, 3.0, max)
	assert.Equal(t, 2.0, mean)
	assert.Equal(t, 2, n)
}

func TestASCRoundTrip(t *testing.T) {
	g := raster.NewGrid(3, 2, degreeTransform(), raster.DefaultNoData)
	g.Set(0, 0, 1.5)
	g.Set(1, 0, -2.25)
	g.Set(2, 0, 0)
	g.Set(0, 1, 10)
	g.Set(2, 1, 0.125)

	path := filepath.Join(t.TempDir(), "grid.asc")
	require.NoError(t, raster.WriteASC(path, g))

	got, err := raster.ReadASC(path)
	require.NoError(t, err)
	require.NoError(t, g.AlignWith(got))
	assert.Equal(t, g.Cells, got.Cells)
	assert.Equal(t, g.NoData, got.NoData)
}

func TestReadASCCornerAndCenterAgree(t *testing.T) {
	corner := strings.Join([]string{
		"ncols 2",
		"nrows 2",
		"xllcorner 10",
		"yllcorner 40",
		"cellsize 0.5",
		"NODATA_value -1",
		"1 2",
		"3 4",
	}, "\n")
	center := strings.Join([]string{
		"ncols 2",
		"nrows 2",
		"xllcenter 10.25",
		"yllcenter 40.25",
		"cellsize 0.5",
		"NODATA_value -1",
		"1 2",
		"3 4",
	}, "\n")

	dir := t.TempDir()
	cornerPath := filepath.Join(dir, "corner.asc")
	centerPath := filepath.Join(dir, "center.asc")
	require.NoError(t, os.WriteFile(cornerPath, []byte(corner), 0o644))
	require.NoError(t, os.WriteFile(centerPath, []byte(center), 0o644))

	a, err := raster.ReadASC(cornerPath)
	require.NoError(t, err)
	b, err := raster.ReadASC(centerPath)
	require.NoError(t, err)

	require.NoError(t, a.AlignWith(b))
	assert.Equal(t, []float64{1, 2, 3, 4}, a.Cells)
	assert.Equal(t, -1.0, a.NoData)

	lon, lat := a.CellCenter(0, 0)
	assert.InDelta(t, 10.25, lon, 1e-9)
	assert.InDelta(t, 40.75, lat, 1e-9)
}

func TestReadASCRejectsTruncated(t *testing.T) {
	body := strings.Join([]string{
		"ncols 3",
		"nrows 2",
		"xllcorner 0",
		"yllcorner 0",
		"cellsize 1",
		"1 2 3 4",
	}, "\n")
	path := filepath.Join(t.TempDir(), "bad.asc")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := raster.ReadASC(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 6 cells")
}

func TestStackAlignmentAndVectors(t *testing.T) {
	a := raster.NewGrid(3, 3, degreeTransform(), raster.DefaultNoData)
	b := raster.NewGrid(3, 3, degreeTransform(), raster.DefaultNoData)
	for i := range a.Cells {
		a.Cells[i] = float64(i)
		b.Cells[i] = float64(i) * 10
	}
	b.Set(1, 1, raster.DefaultNoData)

	s := raster.NewStack()
	require.NoError(t, s.Append("alpha", a))
	require.NoError(t, s.Append("beta", b))

	vec, ok := s.CellVector(0, 0)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0}, vec)

	vec, ok = s.CellVector(2, 0)
	require.True(t, ok)
	assert.Equal(t, []float64{2, 20}, vec)

	_, ok = s.CellVector(1, 1)
	assert.False(t, ok, "nodata in any layer makes the cell unusable")

	lon, lat := a.CellCenter(2, 0)
	vec, ok = s.ValuesAt(lon, lat)
	require.True(t, ok)
	assert.Equal(t, []float64{2, 20}, vec)

	misaligned := raster.NewGrid(2, 3, degreeTransform(), raster.DefaultNoData)
	assert.Error(t, s.Append("gamma", misaligned))

	g, ok := s.Layer("beta")
	require.True(t, ok)
	assert.Same(t, b, g)
	_, ok = s.Layer("missing")
	assert.False(t, ok)
}

func TestLoadStackFromASCFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, scale float64) string {
		g := raster.NewGrid(2, 2, degreeTransform(), raster.DefaultNoData)
		for i := range g.Cells {
			g.Cells[i] = float64(i) * scale
		}
		path := filepath.Join(dir, name)
		require.NoError(t, raster.WriteASC(path, g))
		return path
	}

	s, err := raster.LoadStack([]raster.Source{
		{Name: "bio1", Path: write("bio1.asc", 1)},
		{Name: "bio12", Path: write("bio12.asc", 100)},
	})
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	vec, ok := s.CellVector(1, 1)
	require.True(t, ok)
	assert.Equal(t, []float64{3, 300}, vec)
}
