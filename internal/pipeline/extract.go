package pipeline

import (
	"fmt"
	"time"

	"github.com/jvasco323/TRM/internal/climate"
	"github.com/jvasco323/TRM/internal/frame"
	"github.com/jvasco323/TRM/internal/raster"
	"github.com/jvasco323/TRM/internal/survey"
)

type summaryRow struct {
	Key   string `csv:"key"`
	Value string `csv:"value"`
}

func (r *Runner) covariateSources() []raster.Source {
	sources := make([]raster.Source, 0, len(r.Study.Covariates))
	for _, c := range r.Study.Covariates {
		sources = append(sources, raster.Source{
			Name: c.Name,
			Path: r.Study.DataPath(c.Path),
			Band: c.Band,
		})
	}
	return sources
}

func (r *Runner) climateWindow() (start, end time.Time, err error) {
	spec := r.Study.Climate
	start, err = time.Parse("2006-01-02", spec.Start)
	if err != nil {
		return start, end, fmt.Errorf("error parsing climate.start %q: %w", spec.Start, err)
	}
	end, err = time.Parse("2006-01-02", spec.End)
	if err != nil {
		return start, end, fmt.Errorf("error parsing climate.end %q: %w", spec.End, err)
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("climate window ends before it starts: %s to %s", spec.Start, spec.End)
	}
	return start, end, nil
}

// Extract assembles the model frame: survey responses become binary
// site classes and every surviving point is annotated with the raster
// covariates and seasonal climate under it.
func (r *Runner) Extract() error {
	s := r.Study
	table, err := survey.Read(s.DataPath(s.Survey.Path), survey.Columns{
		Response:  s.Survey.Response,
		Latitude:  s.Survey.Latitude,
		Longitude: s.Survey.Longitude,
		ID:        s.Survey.ID,
		Group:     s.Survey.Group,
		Class:     s.Survey.Class,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Survey %s: %d usable points\n", s.Survey.Path, len(table.Points))

	outsideBoundary := 0
	if s.Boundary != "" {
		b, err := survey.LoadBoundary(s.DataPath(s.Boundary))
		if err != nil {
			return err
		}
		table, outsideBoundary = table.Filter(b)
		fmt.Printf("Boundary %s: %d points dropped, %d kept\n", s.Boundary, outsideBoundary, len(table.Points))
	}
	if len(table.Points) == 0 {
		return fmt.Errorf("no survey points left inside the study area")
	}

	var classes []int
	classRule := ""
	if s.Survey.Class != "" {
		classes = table.ExplicitClasses()
		classRule = fmt.Sprintf("column %s", s.Survey.Class)
		fmt.Printf("Classes taken from survey column %q\n", s.Survey.Class)
	} else {
		cutoff := survey.Cutoff(table.Responses(), s.Survey.Quantile)
		classes = table.Classes(cutoff)
		classRule = fmt.Sprintf("quantile %.2f cutoff %.6f", s.Survey.Quantile, cutoff)
		fmt.Printf("Response cutoff at quantile %.2f: %.4f\n", s.Survey.Quantile, cutoff)
	}

	var stack *raster.Stack
	if len(s.Covariates) > 0 {
		stack, err = raster.LoadStack(r.covariateSources())
		if err != nil {
			return err
		}
	}

	featureNames := []string{}
	for _, c := range s.Covariates {
		featureNames = append(featureNames, c.Name)
	}
	for _, m := range s.Climate.Metrics {
		if s.Climate.Enabled {
			featureNames = append(featureNames, climate.FeatureName(m))
		}
	}
	if len(featureNames) == 0 {
		return fmt.Errorf("study defines no covariates")
	}

	// Sample the raster stack first so climate is only fetched for
	// points that made it onto the grid.
	type kept struct {
		point  survey.Point
		class  int
		raster []float64
	}
	var rows []kept
	outsideGrid := 0
	for i, p := range table.Points {
		var vals []float64
		if stack != nil {
			v, ok := stack.ValuesAt(p.Lon, p.Lat)
			if !ok {
				outsideGrid++
				continue
			}
			vals = v
		}
		rows = append(rows, kept{point: p, class: classes[i], raster: vals})
	}
	if outsideGrid > 0 {
		fmt.Printf("Covariate grid: %d points without usable cells dropped\n", outsideGrid)
	}
	if len(rows) == 0 {
		return fmt.Errorf("no survey points overlap the covariate grid")
	}

	var seasons []climate.Season
	if s.Climate.Enabled && len(s.Climate.Metrics) > 0 {
		start, end, err := r.climateWindow()
		if err != nil {
			return err
		}
		points := make([]climate.Point, len(rows))
		for i, row := range rows {
			points[i] = climate.Point{Lat: row.point.Lat, Lon: row.point.Lon}
		}
		seasons, err = climate.Seasons(points, start, end, fetchRetries)
		if err != nil {
			return err
		}
	}

	f := frame.New(featureNames)
	for i, row := range rows {
		features := append([]float64{}, row.raster...)
		if seasons != nil {
			for _, m := range s.Climate.Metrics {
				v, err := seasons[i].Value(m)
				if err != nil {
					return err
				}
				features = append(features, v)
			}
		}
		err := f.Append(frame.Row{
			ID:       row.point.ID,
			Group:    row.point.Group,
			Lon:      row.point.Lon,
			Lat:      row.point.Lat,
			Response: row.point.Response,
			Class:    row.class,
			Features: features,
		})
		if err != nil {
			return err
		}
	}

	pos, neg := f.ClassBalance()
	if pos == 0 || neg == 0 {
		hint := "lower or raise survey.positive_quantile"
		if s.Survey.Class != "" {
			hint = "check the survey class column"
		}
		return fmt.Errorf("extracted frame carries a single class (%d favourable, %d unfavourable), %s", pos, neg, hint)
	}

	framePath, err := r.path(FrameFile)
	if err != nil {
		return err
	}
	if err := f.WriteCSV(framePath); err != nil {
		return err
	}

	summaryPath, err := r.path(SummaryFile)
	if err != nil {
		return err
	}
	summary := []*summaryRow{
		{"study", s.Name},
		{"survey_points", fmt.Sprintf("%d", len(table.Points)+outsideBoundary)},
		{"outside_boundary", fmt.Sprintf("%d", outsideBoundary)},
		{"outside_grid", fmt.Sprintf("%d", outsideGrid)},
		{"frame_rows", fmt.Sprintf("%d", f.Len())},
		{"class_rule", classRule},
		{"favourable", fmt.Sprintf("%d", pos)},
		{"unfavourable", fmt.Sprintf("%d", neg)},
	}
	if err := writeTable(summaryPath, &summary); err != nil {
		return err
	}

	fmt.Printf("Frame written to %s: %d rows, %d favourable, %d unfavourable\n", framePath, f.Len(), pos, neg)
	return nil
}
