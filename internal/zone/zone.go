package zone

import (
	"math"

	"github.com/jvasco323/TRM/internal/raster"
)

// Summary describes one management zone of the final mask.
type Summary struct {
	Zone    int     `csv:"zone"`
	Label   string  `csv:"label"`
	Cells   int     `csv:"cells"`
	Share   float64 `csv:"share"`
	Patches int     `csv:"patches"`
	AreaHa  float64 `csv:"area_ha"`
}

// Delineate cuts the ensemble probability surface into the binary
// management-zone mask at the selected threshold.
func Delineate(prob *raster.Grid, threshold float64) *raster.Grid {
	return prob.Reclassify(threshold)
}

const kmPerDegree = 111.32

// cellAreaHa approximates the area of one cell at a given row. Cells
// are in geographic degrees, so their east-west extent shrinks with
// latitude.
func cellAreaHa(g *raster.Grid, row int) float64 {
	dx, dy := g.CellSize()
	_, lat := g.CellCenter(0, row)
	w := dx * kmPerDegree * math.Cos(lat*math.Pi/180)
	h := dy * kmPerDegree
	return math.Abs(w*h) * 100
}

// Summarise reports cell counts, surface shares, contiguous patch
// counts and approximate areas for both zones of a mask.
func Summarise(mask *raster.Grid) []Summary {
	cells := [2]int{}
	area := [2]float64{}
	for row := 0; row < mask.Height; row++ {
		ha := cellAreaHa(mask, row)
		for col := 0; col < mask.Width; col++ {
			v := mask.At(col, row)
			if mask.IsNoData(v) {
				continue
			}
			z := 0
			if v == 1 {
				z = 1
			}
			cells[z]++
			area[z] += ha
		}
	}
	valid := cells[0] + cells[1]

	labels := [2]string{"unfavourable", "favourable"}
	out := make([]Summary, 0, 2)
	for z := 0; z < 2; z++ {
		share := 0.0
		if valid > 0 {
			share = float64(cells[z]) / float64(valid)
		}
		out = append(out, Summary{
			Zone:    z,
			Label:   labels[z],
			Cells:   cells[z],
			Share:   share,
			Patches: patches(mask, float64(z)),
			AreaHa:  area[z],
		})
	}
	return out
}

// patches counts 4-connected components of cells holding one value.
func patches(mask *raster.Grid, value float64) int {
	visited := make([]bool, len(mask.Cells))
	var stack [][2]int
	count := 0

	for row := 0; row < mask.Height; row++ {
		for col := 0; col < mask.Width; col++ {
			i := mask.Index(col, row)
			if visited[i] || mask.IsNoData(mask.Cells[i]) || mask.Cells[i] != value {
				continue
			}
			count++
			visited[i] = true
			stack = append(stack[:0], [2]int{col, row})
			for len(stack) > 0 {
				c := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					nc, nr := c[0]+d[0], c[1]+d[1]
					if nc < 0 || nc >= mask.Width || nr < 0 || nr >= mask.Height {
						continue
					}
					ni := mask.Index(nc, nr)
					if visited[ni] || mask.IsNoData(mask.Cells[ni]) || mask.Cells[ni] != value {
						continue
					}
					visited[ni] = true
					stack = append(stack, [2]int{nc, nr})
				}
			}
		}
	}
	return count
}
