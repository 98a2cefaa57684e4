package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jvasco323/TRM/internal/frame"
	"github.com/jvasco323/TRM/internal/learner"
)

type gridRow struct {
	Model   string  `csv:"model"`
	Params  string  `csv:"params"`
	Folds   int     `csv:"folds"`
	MeanAUC float64 `csv:"mean_auc"`
	SDAUC   float64 `csv:"sd_auc"`
	Best    bool    `csv:"best"`
}

type paramRow struct {
	Model string  `csv:"model"`
	Param string  `csv:"param"`
	Value float64 `csv:"value"`
}

type oofRow struct {
	Model string  `csv:"model"`
	Row   int     `csv:"row"`
	Fold  int     `csv:"fold"`
	Class int     `csv:"class"`
	Prob  float64 `csv:"prob"`
}

type coefRow struct {
	Model    string  `csv:"model"`
	Term     string  `csv:"term"`
	Estimate float64 `csv:"estimate"`
}

// Train tunes every configured learner on the calibration table with
// stratified cross-validation and records the searched grids, the
// winning parameters, the out-of-fold probabilities and the fitted
// terms of the regression style learners.
func (r *Runner) Train() error {
	calPath, err := r.path(CalibrationFile)
	if err != nil {
		return err
	}
	cal, err := frame.ReadCSV(calPath)
	if err != nil {
		return err
	}

	var grids []*gridRow
	var params []*paramRow
	var oofs []*oofRow
	var coefs []*coefRow

	for _, kind := range r.Study.Training.Models {
		fmt.Printf("Tuning %s over %d folds\n", kind, r.Study.Training.Folds)
		res, err := learner.CrossValidate(kind, cal, r.Study.Training.Folds, r.Study.Training.Seed)
		if err != nil {
			return err
		}

		bestKey := res.Best.String()
		for _, gp := range res.Grid {
			grids = append(grids, &gridRow{
				Model:   kind,
				Params:  gp.Params.String(),
				Folds:   res.Folds,
				MeanAUC: gp.MeanAUC,
				SDAUC:   gp.SDAUC,
				Best:    gp.Params.String() == bestKey,
			})
		}

		names := make([]string, 0, len(res.Best))
		for name := range res.Best {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			params = append(params, &paramRow{Model: kind, Param: name, Value: res.Best[name]})
		}

		for _, o := range res.OOF {
			oofs = append(oofs, &oofRow{Model: kind, Row: o.Row, Fold: o.Fold, Class: o.Class, Prob: o.Prob})
		}

		if sel, ok := res.Model.(learner.TermSelector); ok {
			fmt.Printf("%s kept %s\n", kind, strings.Join(sel.SelectedTerms(), ", "))
		}
		if c, ok := res.Model.(learner.Coefficienter); ok {
			terms := c.Coefficients()
			termNames := make([]string, 0, len(terms))
			for t := range terms {
				termNames = append(termNames, t)
			}
			sort.Strings(termNames)
			for _, t := range termNames {
				coefs = append(coefs, &coefRow{Model: kind, Term: t, Estimate: terms[t]})
			}
		}

		fmt.Printf("%s: best %s with mean AUC %.4f (sd %.4f)\n", kind, res.Best, res.BestAUC, res.BestSD)
	}

	outputs := []struct {
		file string
		rows interface{}
	}{
		{GridSearchFile, &grids},
		{BestParamsFile, &params},
		{OOFFile, &oofs},
		{CoefficientFile, &coefs},
	}
	for _, out := range outputs {
		p, err := r.path(out.file)
		if err != nil {
			return err
		}
		if err := writeTable(p, out.rows); err != nil {
			return err
		}
	}
	return nil
}

// bestParams reloads the winning hyperparameters recorded by Train.
func (r *Runner) bestParams() (map[string]learner.Params, error) {
	p, err := r.path(BestParamsFile)
	if err != nil {
		return nil, err
	}
	var rows []*paramRow
	if err := readTable(p, &rows); err != nil {
		return nil, err
	}
	out := map[string]learner.Params{}
	for _, row := range rows {
		if out[row.Model] == nil {
			out[row.Model] = learner.Params{}
		}
		out[row.Model][row.Param] = row.Value
	}
	// Models tuned on an empty grid still need an entry.
	for _, kind := range r.Study.Training.Models {
		if out[kind] == nil {
			out[kind] = learner.Params{}
		}
	}
	return out, nil
}
