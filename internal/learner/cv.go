package learner

import (
	"fmt"
	"math/rand"

	"github.com/jvasco323/TRM/internal/frame"
	"github.com/jvasco323/TRM/internal/roc"
	"gonum.org/v1/gonum/stat"
)

// GridPoint is the cross-validated score of one hyperparameter
// combination.
type GridPoint struct {
	Params  Params
	MeanAUC float64
	SDAUC   float64
}

// OOF is one out-of-fold prediction: the probability a row received
// from the model whose training folds excluded it.
type OOF struct {
	Row   int
	Fold  int
	Prob  float64
	Class int
}

// CVResult is the outcome of tuning one learner on the calibration
// set: the searched grid, the winning parameters, the out-of-fold
// probabilities under them, and a final model refit on all rows.
type CVResult struct {
	Kind    string
	Folds   int
	Best    Params
	BestAUC float64
	BestSD  float64
	Grid    []GridPoint
	OOF     []OOF
	Model   Model
}

// assignFolds deals rows of each class round robin over k folds after
// a seeded shuffle, so every fold keeps both classes.
func assignFolds(y []int, k int, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))
	foldOf := make([]int, len(y))
	for _, cls := range []int{1, 0} {
		var idx []int
		for i, v := range y {
			if v == cls {
				idx = append(idx, i)
			}
		}
		rng.Shuffle(len(idx), func(a, b int) {
			idx[a], idx[b] = idx[b], idx[a]
		})
		for j, i := range idx {
			foldOf[i] = j % k
		}
	}
	return foldOf
}

// CrossValidate tunes one learner with stratified k-fold search over
// its default grid, ranking combinations by mean out-of-fold AUC.
func CrossValidate(kind string, f *frame.Frame, folds int, seed int64) (*CVResult, error) {
	grid := DefaultGrid(kind)
	if grid == nil {
		return nil, fmt.Errorf("unknown learner %q", kind)
	}
	x := f.Matrix()
	y := f.Labels()
	pos, neg := f.ClassBalance()
	if pos == 0 || neg == 0 {
		return nil, fmt.Errorf("%s: calibration set carries a single class (%d favourable, %d unfavourable)", kind, pos, neg)
	}
	if pos < folds {
		folds = pos
	}
	if neg < folds {
		folds = neg
	}
	if folds < 2 {
		return nil, fmt.Errorf("%s: not enough rows per class for cross-validation", kind)
	}

	foldOf := assignFolds(y, folds, seed)
	res := &CVResult{Kind: kind, Folds: folds}
	var bestProbs []float64

	for gi, params := range grid {
		aucs := make([]float64, 0, folds)
		probs := make([]float64, len(y))
		for fold := 0; fold < folds; fold++ {
			var trainX [][]float64
			var trainY []int
			var testIdx []int
			for i := range y {
				if foldOf[i] == fold {
					testIdx = append(testIdx, i)
				} else {
					trainX = append(trainX, x[i])
					trainY = append(trainY, y[i])
				}
			}

			m, err := New(kind, f.FeatureNames, params, seed+int64(fold))
			if err != nil {
				return nil, err
			}
			if err := m.Fit(trainX, trainY); err != nil {
				return nil, fmt.Errorf("%s (%s) fold %d: %w", kind, params, fold+1, err)
			}

			testProbs := make([]float64, len(testIdx))
			testY := make([]int, len(testIdx))
			for k, i := range testIdx {
				testProbs[k] = m.Prob(x[i])
				testY[k] = y[i]
				probs[i] = testProbs[k]
			}
			auc, err := roc.AUC(testProbs, testY)
			if err != nil {
				return nil, fmt.Errorf("%s (%s) fold %d: %w", kind, params, fold+1, err)
			}
			aucs = append(aucs, auc)
		}

		point := GridPoint{
			Params:  params.clone(),
			MeanAUC: stat.Mean(aucs, nil),
			SDAUC:   stat.StdDev(aucs, nil),
		}
		res.Grid = append(res.Grid, point)
		if gi == 0 || point.MeanAUC > res.BestAUC {
			res.Best = point.Params
			res.BestAUC = point.MeanAUC
			res.BestSD = point.SDAUC
			bestProbs = probs
		}
	}

	for i := range y {
		res.OOF = append(res.OOF, OOF{Row: i, Fold: foldOf[i], Prob: bestProbs[i], Class: y[i]})
	}

	final, err := New(kind, f.FeatureNames, res.Best, seed)
	if err != nil {
		return nil, err
	}
	if err := final.Fit(x, y); err != nil {
		return nil, fmt.Errorf("%s: refit on the full calibration set: %w", kind, err)
	}
	res.Model = final
	return res, nil
}
