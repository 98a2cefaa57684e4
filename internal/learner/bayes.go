package learner

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// bayesModel is a Gaussian naive Bayes classifier: covariates are
// treated as independent normals within each class and combined
// through Bayes' rule.
type bayesModel struct {
	names     []string
	smoothing float64
	prior     [2]float64
	mean      [2][]float64
	sd        [2][]float64
	fitted    bool
}

func newBayes(names []string, p Params) *bayesModel {
	return &bayesModel{
		names:     append([]string{}, names...),
		smoothing: p.Get("smoothing", 1e-9),
	}
}

func (m *bayesModel) Name() string { return "bayes" }

func (m *bayesModel) Fit(x [][]float64, y []int) error {
	if err := checkTrainingData(x, y); err != nil {
		return fmt.Errorf("bayes: %w", err)
	}
	d := len(x[0])

	// Variance floor scaled by the widest feature, so degenerate
	// columns cannot produce infinite densities.
	maxVar := 0.0
	col := make([]float64, len(x))
	for j := 0; j < d; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		if v := stat.Variance(col, nil); v > maxVar {
			maxVar = v
		}
	}
	floor := math.Sqrt(m.smoothing * math.Max(maxVar, 1))

	for cls := 0; cls < 2; cls++ {
		var rows [][]float64
		for i, label := range y {
			if label == cls {
				rows = append(rows, x[i])
			}
		}
		m.prior[cls] = float64(len(rows)) / float64(len(x))
		m.mean[cls] = make([]float64, d)
		m.sd[cls] = make([]float64, d)
		sub := make([]float64, len(rows))
		for j := 0; j < d; j++ {
			for i, row := range rows {
				sub[i] = row[j]
			}
			mean, sd := stat.MeanStdDev(sub, nil)
			if math.IsNaN(sd) || sd < floor {
				sd = floor
			}
			if sd == 0 {
				sd = 1e-9
			}
			m.mean[cls][j] = mean
			m.sd[cls][j] = sd
		}
	}
	m.fitted = true
	return nil
}

func (m *bayesModel) Prob(x []float64) float64 {
	if !m.fitted {
		return 0
	}
	var logp [2]float64
	for cls := 0; cls < 2; cls++ {
		lp := math.Log(m.prior[cls])
		for j, v := range x {
			n := distuv.Normal{Mu: m.mean[cls][j], Sigma: m.sd[cls][j]}
			lp += n.LogProb(v)
		}
		logp[cls] = lp
	}
	// Normalise in log space to dodge underflow on many covariates.
	max := math.Max(logp[0], logp[1])
	p0 := math.Exp(logp[0] - max)
	p1 := math.Exp(logp[1] - max)
	return p1 / (p0 + p1)
}
