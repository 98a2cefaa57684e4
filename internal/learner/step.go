package learner

import "fmt"

// stepwiseModel builds a logistic regression by forward selection,
// adding the covariate that lowers the AIC most until no candidate
// improves it.
type stepwiseModel struct {
	names    []string
	maxTerms int
	scale    *scaler
	selected []int
	coefs    []float64
	fitted   bool
}

func newStepwise(names []string, p Params) *stepwiseModel {
	maxTerms := int(p.Get("max_terms", float64(len(names))))
	if maxTerms < 1 || maxTerms > len(names) {
		maxTerms = len(names)
	}
	return &stepwiseModel{names: append([]string{}, names...), maxTerms: maxTerms}
}

func (m *stepwiseModel) Name() string { return "step" }

func aic(terms int, logLike float64) float64 {
	return 2*float64(terms+1) - 2*logLike
}

func (m *stepwiseModel) Fit(x [][]float64, y []int) error {
	if err := checkTrainingData(x, y); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	m.scale = fitScaler(x)
	scaled := m.scale.applyAll(x)

	// Intercept-only baseline.
	nullCoefs, nullLL, err := fitLogit(scaled, y, nil)
	if err != nil {
		return fmt.Errorf("step: %w", err)
	}
	bestAIC := aic(0, nullLL)

	var selected []int
	var coefs []float64
	for len(selected) < m.maxTerms {
		bestCand := -1
		var bestCandAIC float64
		var bestCandCoefs []float64
		for j := range m.names {
			if containsInt(selected, j) {
				continue
			}
			trial := append(append([]int{}, selected...), j)
			tx := pickColumns(scaled, trial)
			tn := pickNames(m.names, trial)
			cf, ll, err := fitLogit(tx, y, tn)
			if err != nil {
				continue
			}
			a := aic(len(trial), ll)
			if bestCand == -1 || a < bestCandAIC {
				bestCand = j
				bestCandAIC = a
				bestCandCoefs = cf
			}
		}
		if bestCand == -1 || bestCandAIC >= bestAIC {
			break
		}
		selected = append(selected, bestCand)
		coefs = bestCandCoefs
		bestAIC = bestCandAIC
	}

	if len(selected) == 0 {
		// Nothing beat the intercept, keep the flat model.
		coefs = nullCoefs
	}
	m.selected = selected
	m.coefs = coefs
	m.fitted = true
	return nil
}

func (m *stepwiseModel) Prob(x []float64) float64 {
	if !m.fitted {
		return 0
	}
	scaled := m.scale.apply(x)
	z := m.coefs[0]
	for k, j := range m.selected {
		z += m.coefs[k+1] * scaled[j]
	}
	return sigmoid(z)
}

func (m *stepwiseModel) Coefficients() map[string]float64 {
	if !m.fitted {
		return nil
	}
	out := map[string]float64{}
	icept := m.coefs[0]
	for k, j := range m.selected {
		raw := m.coefs[k+1] / m.scale.sd[j]
		out[m.names[j]] = raw
		icept -= m.coefs[k+1] * m.scale.mean[j] / m.scale.sd[j]
	}
	out["(intercept)"] = icept
	return out
}

// SelectedTerms lists the covariates the search kept, in the order
// they entered the model.
func (m *stepwiseModel) SelectedTerms() []string {
	out := make([]string, 0, len(m.selected))
	for _, j := range m.selected {
		out = append(out, m.names[j])
	}
	return out
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func pickColumns(x [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		sub := make([]float64, len(idx))
		for k, j := range idx {
			sub[k] = row[j]
		}
		out[i] = sub
	}
	return out
}

func pickNames(names []string, idx []int) []string {
	out := make([]string, len(idx))
	for k, j := range idx {
		out[k] = names[j]
	}
	return out
}
