package cli

import (
	"github.com/spf13/cobra"

	"github.com/jvasco323/TRM/internal/pipeline"
)

// newStageCommand builds a command running a single pipeline stage of
// the selected study. Stages read the previous stage's artifacts from
// the study output directory, so they compose with earlier runs.
func newStageCommand(opts *RootOptions, use, short, long string, stage func(*pipeline.Runner) error) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.runner()
			if err != nil {
				return err
			}
			return stage(r)
		},
	}
}

// NewExtractCommand creates the extract command.
func NewExtractCommand(opts *RootOptions) *cobra.Command {
	return newStageCommand(opts, "extract",
		"Build the modelling frame from the survey and covariates",
		`Read the survey table, clip it to the study boundary, sample every
covariate raster (and the climate archive when enabled) at the survey
locations and label each point, either from the survey class column or
by binarising the response at the configured quantile.

Writes frame.csv and summary.csv.`,
		(*pipeline.Runner).Extract)
}

// NewSplitCommand creates the split command.
func NewSplitCommand(opts *RootOptions) *cobra.Command {
	return newStageCommand(opts, "split",
		"Partition the frame into calibration and validation sets",
		`Split frame.csv into calibration and validation sets, keeping
observations of one group on the same side and the class balance of
both sides close to the full frame.

Writes calibration.csv and validation.csv.`,
		(*pipeline.Runner).Split)
}

// NewTrainCommand creates the train command.
func NewTrainCommand(opts *RootOptions) *cobra.Command {
	return newStageCommand(opts, "train",
		"Grid search every configured model under cross validation",
		`Tune each configured model over its hyperparameter grid with
stratified k-fold cross validation on the calibration set and keep the
out-of-fold predictions of the winning grid point.

Writes grid_search.csv, best_params.csv, oof.csv and coefficients.csv.`,
		(*pipeline.Runner).Train)
}

// NewPredictCommand creates the predict command.
func NewPredictCommand(opts *RootOptions) *cobra.Command {
	return newStageCommand(opts, "predict",
		"Refit the tuned models and predict validation rows and rasters",
		`Refit every model on the full calibration set with its best
hyperparameters, score the validation rows, rank feature importance by
permutation and sweep each model across the covariate rasters.

Writes predictions.csv, metrics.csv, importance.csv and one
probability raster per model.`,
		(*pipeline.Runner).Predict)
}

// NewStackCommand creates the stack command.
func NewStackCommand(opts *RootOptions) *cobra.Command {
	return newStageCommand(opts, "stack",
		"Blend the models into a stacked ensemble",
		`Fit the logistic meta-model on the out-of-fold predictions, blend
the validation predictions and the per-model probability rasters.

Writes stacking.csv, the ensemble rows of predictions.csv and the
ensemble probability raster.`,
		(*pipeline.Runner).Stack)
}

// NewThresholdCommand creates the threshold command.
func NewThresholdCommand(opts *RootOptions) *cobra.Command {
	return newStageCommand(opts, "threshold",
		"Pick the probability cutoff and delineate zones",
		`Derive the ROC curve of the ensemble on the validation set, select
the cutoff with the configured method and reclassify the ensemble
probability raster into a binary management-zone mask.

Writes thresholds.csv, zones.csv and the zone raster.`,
		(*pipeline.Runner).Threshold)
}

// NewReportCommand creates the report command.
func NewReportCommand(opts *RootOptions) *cobra.Command {
	return newStageCommand(opts, "report",
		"Render the diagnostic plots and maps",
		`Draw the ROC curves, calibration curve, grid search summary,
permutation importance, ensemble probability map and zone map into the
plots directory.`,
		(*pipeline.Runner).Report)
}
