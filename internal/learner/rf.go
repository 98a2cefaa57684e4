package learner

import (
	"fmt"
	"math/rand"

	randomforest "github.com/malaschitz/randomForest"
)

// forestModel wraps a random forest classifier. The library votes over
// decision trees grown on bootstrap samples, the probability is the
// share of trees voting for the favourable class.
type forestModel struct {
	names  []string
	trees  int
	seed   int64
	forest randomforest.Forest
	fitted bool
}

func newForest(names []string, p Params, seed int64) *forestModel {
	trees := int(p.Get("trees", 300))
	if trees < 1 {
		trees = 1
	}
	return &forestModel{names: append([]string{}, names...), trees: trees, seed: seed}
}

func (m *forestModel) Name() string { return "rf" }

func (m *forestModel) Fit(x [][]float64, y []int) error {
	if err := checkTrainingData(x, y); err != nil {
		return fmt.Errorf("rf: %w", err)
	}
	rand.Seed(m.seed)
	m.forest = randomforest.Forest{}
	m.forest.Data = randomforest.ForestData{
		X:     x,
		Class: append([]int{}, y...),
	}
	m.forest.Train(m.trees)
	m.fitted = true
	return nil
}

func (m *forestModel) Prob(x []float64) float64 {
	if !m.fitted {
		return 0
	}
	votes := m.forest.Vote(x)
	if len(votes) < 2 {
		return 0
	}
	return votes[1]
}
