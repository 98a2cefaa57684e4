package learner

import (
	"fmt"
	"math/rand"

	"github.com/jvasco323/TRM/internal/frame"
	"github.com/jvasco323/TRM/internal/roc"
	"gonum.org/v1/gonum/stat"
)

const permutationRepeats = 5

// Importance is the AUC a model loses when one covariate is shuffled,
// averaged over repeats. Works for any of the learners since it only
// needs predictions.
type Importance struct {
	Feature string
	AUCDrop float64
	SD      float64
}

// PermutationImportance scores every covariate of the frame against a
// fitted model. Larger drops mean the model leans harder on that
// covariate.
func PermutationImportance(m Model, f *frame.Frame, seed int64) ([]Importance, error) {
	if f.Len() == 0 {
		return nil, fmt.Errorf("importance needs a populated frame")
	}
	x := f.Matrix()
	y := f.Labels()

	base := make([]float64, len(x))
	for i, row := range x {
		base[i] = m.Prob(row)
	}
	baseAUC, err := roc.AUC(base, y)
	if err != nil {
		return nil, fmt.Errorf("baseline for importance: %w", err)
	}

	rng := rand.New(rand.NewSource(seed))
	perm := make([]int, len(x))
	probs := make([]float64, len(x))
	out := make([]Importance, 0, len(f.FeatureNames))

	for j, name := range f.FeatureNames {
		drops := make([]float64, 0, permutationRepeats)
		for r := 0; r < permutationRepeats; r++ {
			for i := range perm {
				perm[i] = i
			}
			rng.Shuffle(len(perm), func(a, b int) {
				perm[a], perm[b] = perm[b], perm[a]
			})
			for i, row := range x {
				shuffled := append([]float64{}, row...)
				shuffled[j] = x[perm[i]][j]
				probs[i] = m.Prob(shuffled)
			}
			auc, err := roc.AUC(probs, y)
			if err != nil {
				return nil, fmt.Errorf("importance of %s: %w", name, err)
			}
			drops = append(drops, baseAUC-auc)
		}
		out = append(out, Importance{
			Feature: name,
			AUCDrop: stat.Mean(drops, nil),
			SD:      stat.StdDev(drops, nil),
		})
	}
	return out, nil
}
