package learner

// DefaultGrid is the hyperparameter search space per learner. The
// grids stay deliberately small, every extra combination costs a full
// round of cross-validation fits.
func DefaultGrid(kind string) []Params {
	switch kind {
	case "glm":
		return []Params{{}}
	case "step":
		return []Params{
			{"max_terms": 2},
			{"max_terms": 4},
			{"max_terms": 6},
		}
	case "gam":
		return []Params{
			{"df": 3},
			{"df": 4},
			{"df": 5},
		}
	case "rf":
		return []Params{
			{"trees": 100},
			{"trees": 300},
			{"trees": 500},
		}
	case "bayes":
		return []Params{
			{"smoothing": 1e-9},
			{"smoothing": 1e-6},
			{"smoothing": 1e-3},
		}
	case "nnet":
		return []Params{
			{"hidden": 3, "rate": 0.05},
			{"hidden": 5, "rate": 0.05},
			{"hidden": 3, "rate": 0.1},
			{"hidden": 5, "rate": 0.1},
		}
	default:
		return nil
	}
}
