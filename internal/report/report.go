package report

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/fogleman/gg"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/jvasco323/TRM/internal/learner"
	"github.com/jvasco323/TRM/internal/raster"
	"github.com/jvasco323/TRM/internal/roc"
	"github.com/jvasco323/TRM/internal/zone"
)

// ROCPlot draws every model's validation curve on one panel with the
// chance diagonal for reference.
func ROCPlot(curves map[string]*roc.Curve, path string) error {
	p := plot.New()
	p.Title.Text = "Validation ROC"
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	diag, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return err
	}
	diag.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	diag.Color = color.Gray{Y: 150}
	p.Add(diag)

	names := make([]string, 0, len(curves))
	for name := range curves {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		c := curves[name]
		pts := make(plotter.XYs, 0, len(c.Points))
		for _, pt := range c.Points {
			pts = append(pts, plotter.XY{X: pt.FPR, Y: pt.TPR})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s (AUC %.3f)", name, c.AUC), line)
	}
	p.Legend.Top = false
	p.Legend.Left = false

	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

const calibrationBins = 10

// CalibrationPlot draws the reliability curve of scored probabilities:
// mean prediction per bin against the favourable share actually
// observed there. A well calibrated blend hugs the diagonal.
func CalibrationPlot(probs []float64, classes []int, path string) error {
	if len(probs) == 0 || len(probs) != len(classes) {
		return fmt.Errorf("calibration needs matching scores and classes, got %d and %d", len(probs), len(classes))
	}

	sumProb := make([]float64, calibrationBins)
	sumPos := make([]float64, calibrationBins)
	count := make([]int, calibrationBins)
	for i, v := range probs {
		b := int(v * calibrationBins)
		if b < 0 {
			b = 0
		}
		if b >= calibrationBins {
			b = calibrationBins - 1
		}
		sumProb[b] += v
		sumPos[b] += float64(classes[i])
		count[b]++
	}

	pts := make(plotter.XYs, 0, calibrationBins)
	for b := range count {
		if count[b] == 0 {
			continue
		}
		n := float64(count[b])
		pts = append(pts, plotter.XY{X: sumProb[b] / n, Y: sumPos[b] / n})
	}

	p := plot.New()
	p.Title.Text = "Ensemble calibration"
	p.X.Label.Text = "Mean predicted probability"
	p.Y.Label.Text = "Observed favourable share"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	diag, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return err
	}
	diag.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	diag.Color = color.Gray{Y: 150}
	p.Add(diag)

	line, dots, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(1)
	line.Width = vg.Points(1.5)
	dots.GlyphStyle.Color = plotutil.Color(1)
	p.Add(line, dots)

	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

// GridSearchPlot charts the best cross-validated AUC each learner
// reached during tuning.
func GridSearchPlot(results []*learner.CVResult, path string) error {
	p := plot.New()
	p.Title.Text = "Cross-validated AUC by model"
	p.Y.Label.Text = "Mean out-of-fold AUC"
	p.Y.Min, p.Y.Max = 0, 1

	values := make(plotter.Values, 0, len(results))
	names := make([]string, 0, len(results))
	for _, r := range results {
		values = append(values, r.BestAUC)
		names = append(names, r.Kind)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return err
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = plotutil.Color(2)
	p.Add(bars)
	p.NominalX(names...)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// ImportancePlot charts permutation importances, largest drop first.
func ImportancePlot(imp []learner.Importance, path string) error {
	ordered := append([]learner.Importance{}, imp...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].AUCDrop > ordered[j].AUCDrop
	})

	p := plot.New()
	p.Title.Text = "Permutation importance"
	p.Y.Label.Text = "AUC drop when shuffled"

	values := make(plotter.Values, 0, len(ordered))
	names := make([]string, 0, len(ordered))
	for _, im := range ordered {
		values = append(values, im.AUCDrop)
		names = append(names, im.Feature)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return err
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalX(names...)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

const (
	maxMapEdge   = 800
	legendHeight = 60
)

func mapScale(g *raster.Grid) int {
	edge := g.Width
	if g.Height > edge {
		edge = g.Height
	}
	s := maxMapEdge / edge
	if s < 1 {
		s = 1
	}
	return s
}

var noDataColor = color.RGBA{R: 230, G: 230, B: 230, A: 255}

// rampColor maps a probability onto a blue-yellow-red ramp.
func rampColor(v float64) color.RGBA {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	low := [3]float64{44, 123, 182}
	mid := [3]float64{255, 255, 191}
	high := [3]float64{215, 25, 28}

	var a, b [3]float64
	var t float64
	if v < 0.5 {
		a, b, t = low, mid, v*2
	} else {
		a, b, t = mid, high, (v-0.5)*2
	}
	return color.RGBA{
		R: uint8(a[0] + (b[0]-a[0])*t),
		G: uint8(a[1] + (b[1]-a[1])*t),
		B: uint8(a[2] + (b[2]-a[2])*t),
		A: 255,
	}
}

func paintCells(g *raster.Grid, scale int, pick func(v float64) color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.Width*scale, g.Height*scale))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			v := g.At(col, row)
			c := noDataColor
			if !g.IsNoData(v) {
				c = pick(v)
			}
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					img.Set(col*scale+dx, row*scale+dy, c)
				}
			}
		}
	}
	return img
}

// ProbabilityMap renders a probability surface as a PNG with a ramp
// legend underneath.
func ProbabilityMap(g *raster.Grid, title, path string) error {
	scale := mapScale(g)
	img := paintCells(g, scale, rampColor)

	width := g.Width * scale
	height := g.Height * scale
	dc := gg.NewContext(width, height+legendHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(img, 0, 0)

	// Ramp strip with its end labels.
	rampY := float64(height + 18)
	rampW := float64(width) - 20
	for i := 0; i < int(rampW); i++ {
		c := rampColor(float64(i) / rampW)
		dc.SetRGB255(int(c.R), int(c.G), int(c.B))
		dc.DrawRectangle(10+float64(i), rampY, 1, 12)
		dc.Fill()
	}
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored("0", 10, rampY+24, 0, 0.5)
	dc.DrawStringAnchored("1", 10+rampW, rampY+24, 1, 0.5)
	dc.DrawStringAnchored(title, float64(width)/2, rampY-12, 0.5, 0.5)

	return dc.SavePNG(path)
}

var zoneColors = [2]color.RGBA{
	{R: 191, G: 129, B: 45, A: 255},
	{R: 90, G: 174, B: 97, A: 255},
}

// SurveyMark is one surveyed point drawn on top of a map, filled when
// the site was favourable and open otherwise.
type SurveyMark struct {
	Lon   float64
	Lat   float64
	Class int
}

// ZoneMap renders the binary mask with a legend row per zone. The
// summaries, when given, annotate each zone with its share and area,
// and the marks overlay the survey points the zones were fitted on.
func ZoneMap(mask *raster.Grid, summaries []zone.Summary, marks []SurveyMark, path string) error {
	scale := mapScale(mask)
	img := paintCells(mask, scale, func(v float64) color.RGBA {
		if v == 1 {
			return zoneColors[1]
		}
		return zoneColors[0]
	})

	width := mask.Width * scale
	height := mask.Height * scale
	dc := gg.NewContext(width, height+legendHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(img, 0, 0)

	for _, m := range marks {
		fx := (m.Lon - mask.Transform[0]) / mask.Transform[1]
		fy := (m.Lat - mask.Transform[3]) / mask.Transform[5]
		if fx < 0 || fx > float64(mask.Width) || fy < 0 || fy > float64(mask.Height) {
			continue
		}
		dc.DrawCircle(fx*float64(scale), fy*float64(scale), 3)
		if m.Class == 1 {
			dc.SetRGB(0, 0, 0)
			dc.FillPreserve()
			dc.SetRGB(1, 1, 1)
		} else {
			dc.SetRGB(1, 1, 1)
			dc.FillPreserve()
			dc.SetRGB(0, 0, 0)
		}
		dc.SetLineWidth(1)
		dc.Stroke()
	}

	labels := [2]string{"unfavourable", "favourable"}
	for _, s := range summaries {
		if s.Zone >= 0 && s.Zone < 2 {
			labels[s.Zone] = fmt.Sprintf("%s  %.1f%% (%.1f ha)", s.Label, s.Share*100, s.AreaHa)
		}
	}

	for z := 0; z < 2; z++ {
		y := float64(height + 12 + z*22)
		c := zoneColors[z]
		dc.SetRGB255(int(c.R), int(c.G), int(c.B))
		dc.DrawRectangle(10, y, 15, 15)
		dc.Fill()

		dc.SetRGB(0, 0, 0)
		dc.DrawRectangle(10, y, 15, 15)
		dc.SetLineWidth(1)
		dc.Stroke()
		dc.DrawStringAnchored(labels[z], 33, y+7, 0, 0.5)
	}

	return dc.SavePNG(path)
}
