package roc

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Point is one operating point of a ROC curve together with the
// classification metrics reached at its cutoff.
type Point struct {
	Cutoff      float64
	TPR         float64
	FPR         float64
	Sensitivity float64
	Specificity float64
	Accuracy    float64
	Kappa       float64
	Youden      float64
	Distance    float64
}

// Curve is a ROC curve evaluated over a fixed cutoff lattice, the
// area under it computed from the exact curve.
type Curve struct {
	Points     []Point
	AUC        float64
	Positives  int
	Negatives  int
	Prevalence float64
}

const latticeSteps = 200

// sortScores arranges scores ascending with their class indicators,
// the layout gonum's ROC expects.
func sortScores(probs []float64, classes []int) ([]float64, []bool, int, int, error) {
	if len(probs) != len(classes) {
		return nil, nil, 0, 0, fmt.Errorf("scores and classes differ in length: %d vs %d", len(probs), len(classes))
	}
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, nil, 0, 0, fmt.Errorf("non-finite score %v at row %d", p, i)
		}
	}
	pos, neg := 0, 0
	for _, c := range classes {
		if c == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return nil, nil, 0, 0, fmt.Errorf("a ROC curve needs both classes, got %d positive and %d negative", pos, neg)
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return probs[order[a]] < probs[order[b]]
	})
	y := make([]float64, len(probs))
	cls := make([]bool, len(probs))
	for k, i := range order {
		y[k] = probs[i]
		cls[k] = classes[i] == 1
	}
	return y, cls, pos, neg, nil
}

// AUC is the exact area under the ROC curve of the scores.
func AUC(probs []float64, classes []int) (float64, error) {
	y, cls, _, _, err := sortScores(probs, classes)
	if err != nil {
		return 0, err
	}
	tpr, fpr := stat.ROC(nil, y, cls, nil)
	if len(fpr) < 2 {
		return 0.5, nil
	}
	return trapezoid(fpr, tpr), nil
}

// New evaluates the curve over an even cutoff lattice on [0,1] so the
// threshold table lines up across models.
func New(probs []float64, classes []int) (*Curve, error) {
	y, cls, pos, neg, err := sortScores(probs, classes)
	if err != nil {
		return nil, err
	}

	cutoffs := make([]float64, latticeSteps+1)
	for i := range cutoffs {
		cutoffs[i] = float64(i) / latticeSteps
	}
	tpr, fpr := stat.ROC(cutoffs, y, cls, nil)

	c := &Curve{
		Positives:  pos,
		Negatives:  neg,
		Prevalence: float64(pos) / float64(pos+neg),
	}
	for i := range cutoffs {
		c.Points = append(c.Points, newPoint(cutoffs[i], tpr[i], fpr[i], pos, neg))
	}

	exactTPR, exactFPR := stat.ROC(nil, y, cls, nil)
	if len(exactFPR) < 2 {
		c.AUC = 0.5
	} else {
		c.AUC = trapezoid(exactFPR, exactTPR)
	}
	return c, nil
}

func newPoint(cutoff, tpr, fpr float64, pos, neg int) Point {
	p := float64(pos)
	n := float64(neg)
	total := p + n
	tp := tpr * p
	fp := fpr * n
	fn := p - tp
	tn := n - fp

	acc := (tp + tn) / total
	pe := ((tp+fp)*(tp+fn) + (fn+tn)*(fp+tn)) / (total * total)
	kappa := 0.0
	if 1-pe != 0 {
		kappa = (acc - pe) / (1 - pe)
	}
	return Point{
		Cutoff:      cutoff,
		TPR:         tpr,
		FPR:         fpr,
		Sensitivity: tpr,
		Specificity: 1 - fpr,
		Accuracy:    acc,
		Kappa:       kappa,
		Youden:      tpr + (1 - fpr) - 1,
		Distance:    math.Hypot(1-tpr, fpr),
	}
}

// Select picks the operating point for a thresholding method: youden
// maximises sensitivity+specificity, closest.topleft minimises the
// distance to the perfect corner, prevalence matches the predicted
// positive share to the observed one.
func (c *Curve) Select(method string) (Point, error) {
	if len(c.Points) == 0 {
		return Point{}, fmt.Errorf("empty curve")
	}
	best := c.Points[0]
	switch method {
	case "youden":
		for _, p := range c.Points[1:] {
			if p.Youden > best.Youden {
				best = p
			}
		}
	case "closest.topleft":
		for _, p := range c.Points[1:] {
			if p.Distance < best.Distance {
				best = p
			}
		}
	case "prevalence":
		total := float64(c.Positives + c.Negatives)
		gap := func(p Point) float64 {
			predicted := (p.TPR*float64(c.Positives) + p.FPR*float64(c.Negatives)) / total
			return math.Abs(predicted - c.Prevalence)
		}
		for _, p := range c.Points[1:] {
			if gap(p) < gap(best) {
				best = p
			}
		}
	default:
		return Point{}, fmt.Errorf("unknown threshold method %q", method)
	}
	return best, nil
}

// trapezoid integrates tpr over fpr. gonum returns both descending in
// the cutoff, so they are reversed into ascending order first.
func trapezoid(fpr, tpr []float64) float64 {
	x := make([]float64, len(fpr))
	y := make([]float64, len(tpr))
	for i := range fpr {
		x[len(fpr)-1-i] = fpr[i]
		y[len(tpr)-1-i] = tpr[i]
	}
	return integrate.Trapezoidal(x, y)
}
