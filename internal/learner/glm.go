package learner

import (
	"fmt"

	"github.com/kshedden/statmodel/glm"
	"github.com/kshedden/statmodel/statmodel"
)

// fitLogit fits a binomial GLM with an explicit intercept column and
// returns the coefficients in icept-first order plus the reached log
// likelihood.
func fitLogit(x [][]float64, y []int, names []string) ([]float64, float64, error) {
	n := len(x)
	d := len(names)
	cols := make([][]float64, 0, d+2)
	varnames := make([]string, 0, d+2)

	icept := make([]float64, n)
	for i := range icept {
		icept[i] = 1
	}
	cols = append(cols, icept)
	varnames = append(varnames, "icept")

	for j := 0; j < d; j++ {
		col := make([]float64, n)
		for i := range x {
			col[i] = x[i][j]
		}
		cols = append(cols, col)
		varnames = append(varnames, names[j])
	}

	resp := make([]float64, n)
	for i, v := range y {
		resp[i] = float64(v)
	}
	cols = append(cols, resp)
	varnames = append(varnames, "y")

	ds := statmodel.NewDataset(cols, varnames)
	cfg := glm.DefaultConfig()
	cfg.Family = glm.NewFamily(glm.BinomialFamily)

	model, err := glm.NewGLM(ds, "y", append([]string{"icept"}, names...), cfg)
	if err != nil {
		return nil, 0, fmt.Errorf("error building logistic model: %w", err)
	}
	result := model.Fit()
	coefs := append([]float64{}, result.Params()...)
	return coefs, result.LogLike(), nil
}

// glmModel is a plain logistic regression over every covariate.
type glmModel struct {
	names  []string
	scale  *scaler
	coefs  []float64
	fitted bool
}

func newGLM(names []string, _ Params) *glmModel {
	return &glmModel{names: append([]string{}, names...)}
}

func (m *glmModel) Name() string { return "glm" }

func (m *glmModel) Fit(x [][]float64, y []int) error {
	if err := checkTrainingData(x, y); err != nil {
		return fmt.Errorf("glm: %w", err)
	}
	m.scale = fitScaler(x)
	coefs, _, err := fitLogit(m.scale.applyAll(x), y, m.names)
	if err != nil {
		return fmt.Errorf("glm: %w", err)
	}
	m.coefs = coefs
	m.fitted = true
	return nil
}

func (m *glmModel) Prob(x []float64) float64 {
	if !m.fitted {
		return 0
	}
	z := m.coefs[0]
	scaled := m.scale.apply(x)
	for j, v := range scaled {
		z += m.coefs[j+1] * v
	}
	return sigmoid(z)
}

// Coefficients reports the fitted terms on the original covariate
// scale, not the standardised one the optimiser saw.
func (m *glmModel) Coefficients() map[string]float64 {
	if !m.fitted {
		return nil
	}
	out := map[string]float64{}
	icept := m.coefs[0]
	for j, name := range m.names {
		raw := m.coefs[j+1] / m.scale.sd[j]
		out[name] = raw
		icept -= m.coefs[j+1] * m.scale.mean[j] / m.scale.sd[j]
	}
	out["(intercept)"] = icept
	return out
}
