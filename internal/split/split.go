package split

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/jvasco323/TRM/internal/frame"
)

// Result carries the row indices of one calibration/validation
// partition. The two sides never share a group.
type Result struct {
	Calibration []int
	Validation  []int
}

// Partition splits a frame into calibration and validation rows. Whole
// groups move together so repeated measurements of one site cannot leak
// across the boundary, and groups are stratified by their majority
// class so both sides keep a comparable share of favourable sites. The
// same seed always yields the same partition.
func Partition(f *frame.Frame, ratio float64, seed int64) (*Result, error) {
	if f.Len() == 0 {
		return nil, fmt.Errorf("cannot partition an empty frame")
	}
	if ratio <= 0 || ratio >= 1 {
		return nil, fmt.Errorf("ratio %v outside (0,1)", ratio)
	}

	groupRows := map[string][]int{}
	for i, r := range f.Rows {
		groupRows[r.Group] = append(groupRows[r.Group], i)
	}

	strata := [2][]string{}
	for g, rows := range groupRows {
		pos := 0
		for _, i := range rows {
			if f.Rows[i].Class == 1 {
				pos++
			}
		}
		cls := 0
		if pos*2 >= len(rows) {
			cls = 1
		}
		strata[cls] = append(strata[cls], g)
	}

	rng := rand.New(rand.NewSource(seed))
	res := &Result{}
	for cls := range strata {
		assignGroups(rng, strata[cls], ratio, groupRows, res)
	}

	if len(res.Calibration) == 0 || len(res.Validation) == 0 {
		if len(groupRows) < 2 {
			return nil, fmt.Errorf("partition needs at least two groups, got %d", len(groupRows))
		}
		// Strata too small to stratify, fall back to a plain group
		// split so both sides stay populated.
		all := make([]string, 0, len(groupRows))
		for g := range groupRows {
			all = append(all, g)
		}
		res = &Result{}
		assignGroups(rand.New(rand.NewSource(seed)), all, ratio, groupRows, res)
	}

	sort.Ints(res.Calibration)
	sort.Ints(res.Validation)
	return res, nil
}

func assignGroups(rng *rand.Rand, keys []string, ratio float64, groupRows map[string][]int, res *Result) {
	sort.Strings(keys)
	rng.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})

	nCal := int(math.Round(ratio * float64(len(keys))))
	if len(keys) >= 2 {
		if nCal == 0 {
			nCal = 1
		}
		if nCal == len(keys) {
			nCal = len(keys) - 1
		}
	}
	for i, g := range keys {
		if i < nCal {
			res.Calibration = append(res.Calibration, groupRows[g]...)
		} else {
			res.Validation = append(res.Validation, groupRows[g]...)
		}
	}
}

// Frames materialises the two sides of the partition.
func (r *Result) Frames(f *frame.Frame) (cal, val *frame.Frame) {
	return f.Subset(r.Calibration), f.Subset(r.Validation)
}
