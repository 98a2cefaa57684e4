package learner

import (
	"fmt"
	"math/rand"

	deep "github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"
)

// neuralModel is a single hidden layer feed-forward network with a
// sigmoid output, the smallest net that can bend a decision boundary.
type neuralModel struct {
	names    []string
	hidden   int
	rate     float64
	momentum float64
	epochs   int
	seed     int64
	scale    *scaler
	net      *deep.Neural
}

func newNeural(names []string, p Params, seed int64) *neuralModel {
	hidden := int(p.Get("hidden", 5))
	if hidden < 1 {
		hidden = 1
	}
	epochs := int(p.Get("epochs", 500))
	if epochs < 1 {
		epochs = 1
	}
	return &neuralModel{
		names:    append([]string{}, names...),
		hidden:   hidden,
		rate:     p.Get("rate", 0.05),
		momentum: p.Get("momentum", 0.9),
		epochs:   epochs,
		seed:     seed,
	}
}

func (m *neuralModel) Name() string { return "nnet" }

func (m *neuralModel) Fit(x [][]float64, y []int) error {
	if err := checkTrainingData(x, y); err != nil {
		return fmt.Errorf("nnet: %w", err)
	}
	rand.Seed(m.seed)
	m.scale = fitScaler(x)
	scaled := m.scale.applyAll(x)

	rng := rand.New(rand.NewSource(m.seed))
	m.net = deep.NewNeural(&deep.Config{
		Inputs:     len(m.names),
		Layout:     []int{m.hidden, 1},
		Activation: deep.ActivationSigmoid,
		Mode:       deep.ModeBinary,
		Weight: func() float64 {
			return rng.NormFloat64() * 0.5
		},
		Bias: true,
	})

	examples := make(training.Examples, 0, len(scaled))
	for i, row := range scaled {
		examples = append(examples, training.Example{
			Input:    row,
			Response: []float64{float64(y[i])},
		})
	}

	trainer := training.NewTrainer(training.NewSGD(m.rate, m.momentum, 0, true), 0)
	trainer.Train(m.net, examples, examples, m.epochs)
	return nil
}

func (m *neuralModel) Prob(x []float64) float64 {
	if m.net == nil {
		return 0
	}
	out := m.net.Predict(m.scale.apply(x))
	if len(out) == 0 {
		return 0
	}
	p := out[0]
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
