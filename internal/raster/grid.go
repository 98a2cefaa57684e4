package raster

import (
	"fmt"
	"math"
)

// DefaultNoData marks cells outside the study area or dropped during
// masking. Kept at the Esri convention so .asc round trips cleanly.
const DefaultNoData = -9999

const alignTol = 1e-6

// Grid is one raster band in memory. Cells are row major from the
// north-west corner. Transform follows the GDAL six element affine:
// originX, pixel width, row rotation, originY, column rotation, pixel
// height (negative for north-up grids).
type Grid struct {
	Width     int
	Height    int
	Transform [6]float64
	NoData    float64
	Cells     []float64
}

func NewGrid(width, height int, transform [6]float64, noData float64) *Grid {
	g := &Grid{
		Width:     width,
		Height:    height,
		Transform: transform,
		NoData:    noData,
		Cells:     make([]float64, width*height),
	}
	for i := range g.Cells {
		g.Cells[i] = noData
	}
	return g
}

func (g *Grid) Index(col, row int) int {
	return row*g.Width + col
}

func (g *Grid) At(col, row int) float64 {
	return g.Cells[g.Index(col, row)]
}

func (g *Grid) Set(col, row int, v float64) {
	g.Cells[g.Index(col, row)] = v
}

func (g *Grid) IsNoData(v float64) bool {
	return math.IsNaN(v) || v == g.NoData
}

// CellCenter returns the geographic coordinate of a cell midpoint.
func (g *Grid) CellCenter(col, row int) (lon, lat float64) {
	fc, fr := float64(col)+0.5, float64(row)+0.5
	lon = g.Transform[0] + g.Transform[1]*fc + g.Transform[2]*fr
	lat = g.Transform[3] + g.Transform[4]*fc + g.Transform[5]*fr
	return lon, lat
}

// Locate maps a geographic coordinate to the cell containing it. The
// second return is false when the point falls outside the grid.
func (g *Grid) Locate(lon, lat float64) (col, row int, ok bool) {
	if g.Transform[1] == 0 || g.Transform[5] == 0 {
		return 0, 0, false
	}
	col = int(math.Floor((lon - g.Transform[0]) / g.Transform[1]))
	row = int(math.Floor((lat - g.Transform[3]) / g.Transform[5]))
	if col < 0 || col >= g.Width || row < 0 || row >= g.Height {
		return 0, 0, false
	}
	return col, row, true
}

// Blank returns a grid with the same georeferencing filled with nodata.
func (g *Grid) Blank() *Grid {
	return NewGrid(g.Width, g.Height, g.Transform, g.NoData)
}

func (g *Grid) Clone() *Grid {
	out := g.Blank()
	copy(out.Cells, g.Cells)
	return out
}

// AlignWith reports whether two grids share shape and georeferencing.
// Overlaying rasters that merely cover the same area is not enough, the
// cell lattices have to match exactly.
func (g *Grid) AlignWith(o *Grid) error {
	if g.Width != o.Width || g.Height != o.Height {
		return fmt.Errorf("grid size %dx%d does not match %dx%d", g.Width, g.Height, o.Width, o.Height)
	}
	for i := range g.Transform {
		if math.Abs(g.Transform[i]-o.Transform[i]) > alignTol {
			return fmt.Errorf("geotransform element %d differs: %v vs %v", i, g.Transform[i], o.Transform[i])
		}
	}
	return nil
}

// Reclassify cuts a continuous grid into a binary mask: cells at or
// above the threshold become 1, cells below become 0, nodata is kept.
func (g *Grid) Reclassify(threshold float64) *Grid {
	out := g.Blank()
	for i, v := range g.Cells {
		if g.IsNoData(v) {
			continue
		}
		if v >= threshold {
			out.Cells[i] = 1
		} else {
			out.Cells[i] = 0
		}
	}
	return out
}

// ValidCount is the number of cells carrying a value.
func (g *Grid) ValidCount() int {
	n := 0
	for _, v := range g.Cells {
		if !g.IsNoData(v) {
			n++
		}
	}
	return n
}

// Stats summarises the valid cells of a grid.
func (g *Grid) Stats() (min, max, mean float64, n int) {
	min, max = math.Inf(1), math.Inf(-1)
	sum := 0.0
	for _, v := range g.Cells {
		if g.IsNoData(v) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0, 0, 0
	}
	return min, max, sum / float64(n), n
}

// CellSize returns the absolute pixel width and height.
func (g *Grid) CellSize() (dx, dy float64) {
	return math.Abs(g.Transform[1]), math.Abs(g.Transform[5])
}

// Bounds returns the geographic envelope of the grid.
func (g *Grid) Bounds() (minLon, minLat, maxLon, maxLat float64) {
	x0 := g.Transform[0]
	y0 := g.Transform[3]
	x1 := x0 + g.Transform[1]*float64(g.Width)
	y1 := y0 + g.Transform[5]*float64(g.Height)
	return math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)
}
