package learner

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// gamModel is an additive logistic model: every covariate is expanded
// into a natural cubic spline basis before the fit, so each term can
// bend instead of being a straight line.
type gamModel struct {
	names  []string
	df     int
	scale  *scaler
	knots  [][]float64
	coefs  []float64
	fitted bool
}

func newGAM(names []string, p Params) *gamModel {
	df := int(p.Get("df", 4))
	if df < 2 {
		df = 2
	}
	return &gamModel{names: append([]string{}, names...), df: df}
}

func (m *gamModel) Name() string { return "gam" }

// knotsFor places df+1 knots at evenly spaced quantiles of a column.
// Duplicate knots from ties are collapsed, which lowers the effective
// degrees of freedom for near constant covariates.
func knotsFor(col []float64, df int) []float64 {
	sorted := append([]float64{}, col...)
	sort.Float64s(sorted)
	k := df + 1
	knots := make([]float64, 0, k)
	for i := 0; i < k; i++ {
		p := float64(i) / float64(k-1)
		if p == 0 {
			p = 0.001
		}
		if p == 1 {
			p = 0.999
		}
		knots = append(knots, stat.Quantile(p, stat.Empirical, sorted, nil))
	}
	uniq := knots[:1]
	for _, v := range knots[1:] {
		if v > uniq[len(uniq)-1] {
			uniq = append(uniq, v)
		}
	}
	return uniq
}

// naturalBasis evaluates the natural cubic spline basis of x for the
// given knots: the identity term plus K-2 truncated cubic terms that
// stay linear beyond the boundary knots.
func naturalBasis(x float64, knots []float64) []float64 {
	k := len(knots)
	if k < 3 {
		return []float64{x}
	}
	last := knots[k-1]
	d := func(i int) float64 {
		num := cubePlus(x-knots[i]) - cubePlus(x-last)
		return num / (last - knots[i])
	}
	out := make([]float64, 0, k-1)
	out = append(out, x)
	dLast := d(k - 2)
	for i := 0; i < k-2; i++ {
		out = append(out, d(i)-dLast)
	}
	return out
}

func cubePlus(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return v * v * v
}

func (m *gamModel) expand(row []float64) []float64 {
	var out []float64
	for j, v := range row {
		out = append(out, naturalBasis(v, m.knots[j])...)
	}
	return out
}

func (m *gamModel) basisNames() []string {
	var out []string
	for j, name := range m.names {
		width := len(m.knots[j]) - 1
		if len(m.knots[j]) < 3 {
			width = 1
		}
		for b := 0; b < width; b++ {
			out = append(out, fmt.Sprintf("s(%s).%d", name, b+1))
		}
	}
	return out
}

func (m *gamModel) Fit(x [][]float64, y []int) error {
	if err := checkTrainingData(x, y); err != nil {
		return fmt.Errorf("gam: %w", err)
	}
	m.scale = fitScaler(x)
	scaled := m.scale.applyAll(x)

	m.knots = make([][]float64, len(m.names))
	col := make([]float64, len(scaled))
	for j := range m.names {
		for i := range scaled {
			col[i] = scaled[i][j]
		}
		m.knots[j] = knotsFor(col, m.df)
	}

	expanded := make([][]float64, len(scaled))
	for i, row := range scaled {
		expanded[i] = m.expand(row)
	}
	coefs, _, err := fitLogit(expanded, y, m.basisNames())
	if err != nil {
		return fmt.Errorf("gam: %w", err)
	}
	m.coefs = coefs
	m.fitted = true
	return nil
}

func (m *gamModel) Prob(x []float64) float64 {
	if !m.fitted {
		return 0
	}
	basis := m.expand(m.scale.apply(x))
	z := m.coefs[0]
	for j, v := range basis {
		z += m.coefs[j+1] * v
	}
	return sigmoid(z)
}

func (m *gamModel) Coefficients() map[string]float64 {
	if !m.fitted {
		return nil
	}
	out := map[string]float64{"(intercept)": m.coefs[0]}
	for j, name := range m.basisNames() {
		out[name] = m.coefs[j+1]
	}
	return out
}
