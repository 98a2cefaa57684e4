package stacking

import (
	"fmt"

	"github.com/jvasco323/TRM/internal/learner"
	"github.com/jvasco323/TRM/internal/raster"
)

// Ensemble blends the base learners through a logistic meta-model
// trained on their out-of-fold probabilities. Training on anything the
// base models saw in-fold would reward overfitting, so only the
// held-out predictions reach the meta fit.
type Ensemble struct {
	Models  []string
	Dropped []string
	meta    learner.Model
}

// Train fits the meta-model. names fixes the column order, probs maps
// every model to its out-of-fold probabilities aligned with y.
// Models whose probabilities never move are dropped before the fit,
// a flat column cannot carry a slope.
func Train(names []string, probs map[string][]float64, y []int, seed int64) (*Ensemble, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("stacking needs at least one base model")
	}
	e := &Ensemble{}
	for _, name := range names {
		col, ok := probs[name]
		if !ok {
			return nil, fmt.Errorf("model %s has no out-of-fold probabilities", name)
		}
		if len(col) != len(y) {
			return nil, fmt.Errorf("model %s has %d probabilities for %d labels", name, len(col), len(y))
		}
		if constant(col) {
			e.Dropped = append(e.Dropped, name)
			continue
		}
		e.Models = append(e.Models, name)
	}
	if len(e.Models) == 0 {
		return nil, fmt.Errorf("every base model produced constant probabilities, nothing to stack")
	}

	x := make([][]float64, len(y))
	for i := range x {
		row := make([]float64, len(e.Models))
		for j, name := range e.Models {
			row[j] = probs[name][i]
		}
		x[i] = row
	}

	meta, err := learner.New("glm", e.Models, nil, seed)
	if err != nil {
		return nil, err
	}
	if err := meta.Fit(x, y); err != nil {
		return nil, fmt.Errorf("meta-model fit: %w", err)
	}
	e.meta = meta
	return e, nil
}

func constant(col []float64) bool {
	for _, v := range col[1:] {
		if v != col[0] {
			return false
		}
	}
	return true
}

// Prob blends one set of base probabilities.
func (e *Ensemble) Prob(byModel map[string]float64) (float64, error) {
	row := make([]float64, len(e.Models))
	for j, name := range e.Models {
		p, ok := byModel[name]
		if !ok {
			return 0, fmt.Errorf("model %s missing from the prediction", name)
		}
		row[j] = p
	}
	return e.meta.Prob(row), nil
}

// Coefficients exposes the meta-model weights per base model.
func (e *Ensemble) Coefficients() map[string]float64 {
	if c, ok := e.meta.(learner.Coefficienter); ok {
		return c.Coefficients()
	}
	return nil
}

// Combine blends per-model probability grids into the ensemble grid.
// A cell is blended only where every kept model carries a value,
// otherwise it stays nodata.
func (e *Ensemble) Combine(grids map[string]*raster.Grid) (*raster.Grid, error) {
	var ref *raster.Grid
	for _, name := range e.Models {
		g, ok := grids[name]
		if !ok {
			return nil, fmt.Errorf("model %s has no probability grid", name)
		}
		if ref == nil {
			ref = g
			continue
		}
		if err := ref.AlignWith(g); err != nil {
			return nil, fmt.Errorf("probability grid of %s: %w", name, err)
		}
	}

	out := ref.Blank()
	row := make([]float64, len(e.Models))
	for i := range out.Cells {
		ok := true
		for j, name := range e.Models {
			v := grids[name].Cells[i]
			if grids[name].IsNoData(v) {
				ok = false
				break
			}
			row[j] = v
		}
		if ok {
			out.Cells[i] = e.meta.Prob(row)
		}
	}
	return out, nil
}
