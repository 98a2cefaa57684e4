package learner

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Model is one binary classifier of the ensemble. Fit consumes a row
// major feature matrix with 0/1 labels, Prob scores a single feature
// vector with the probability of the favourable class.
type Model interface {
	Name() string
	Fit(x [][]float64, y []int) error
	Prob(x []float64) float64
}

// Coefficienter is implemented by the regression style learners whose
// fitted terms are worth reporting.
type Coefficienter interface {
	Coefficients() map[string]float64
}

// TermSelector is implemented by learners that keep only a subset of
// the covariates.
type TermSelector interface {
	SelectedTerms() []string
}

// Params holds one hyperparameter combination.
type Params map[string]float64

func (p Params) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// String renders parameters in a stable key order, for logs and the
// tuning report.
func (p Params) String() string {
	if len(p) == 0 {
		return "default"
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, p[k]))
	}
	return strings.Join(parts, ",")
}

func (p Params) clone() Params {
	out := Params{}
	for k, v := range p {
		out[k] = v
	}
	return out
}

// New builds an untrained model. Kind is one of glm, step, gam, rf,
// bayes, nnet.
func New(kind string, names []string, p Params, seed int64) (Model, error) {
	switch kind {
	case "glm":
		return newGLM(names, p), nil
	case "step":
		return newStepwise(names, p), nil
	case "gam":
		return newGAM(names, p), nil
	case "rf":
		return newForest(names, p, seed), nil
	case "bayes":
		return newBayes(names, p), nil
	case "nnet":
		return newNeural(names, p, seed), nil
	default:
		return nil, fmt.Errorf("unknown learner %q", kind)
	}
}

func sigmoid(z float64) float64 {
	if z > 35 {
		return 1
	}
	if z < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func checkTrainingData(x [][]float64, y []int) error {
	if len(x) == 0 {
		return fmt.Errorf("no training rows")
	}
	if len(x) != len(y) {
		return fmt.Errorf("feature matrix has %d rows, labels have %d", len(x), len(y))
	}
	pos := 0
	for _, v := range y {
		if v == 1 {
			pos++
		}
	}
	if pos == 0 || pos == len(y) {
		return fmt.Errorf("training labels carry a single class, a binary model needs both")
	}
	return nil
}

// scaler standardises features so the gradient and likelihood based
// learners see comparable magnitudes. Constant columns are left as is.
type scaler struct {
	mean []float64
	sd   []float64
}

func fitScaler(x [][]float64) *scaler {
	if len(x) == 0 {
		return &scaler{}
	}
	d := len(x[0])
	s := &scaler{mean: make([]float64, d), sd: make([]float64, d)}
	col := make([]float64, len(x))
	for j := 0; j < d; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		m, sd := stat.MeanStdDev(col, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		s.mean[j] = m
		s.sd[j] = sd
	}
	return s
}

func (s *scaler) apply(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.mean[j]) / s.sd[j]
	}
	return out
}

func (s *scaler) applyAll(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = s.apply(row)
	}
	return out
}
