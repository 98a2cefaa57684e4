package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jvasco323/TRM/internal/config"
	"github.com/jvasco323/TRM/internal/remote"
	"github.com/jvasco323/TRM/internal/survey"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	Layer      string
	Bounds     []float64
	Resolution float64
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the covariate rasters of a study",
		Long: `Download the covariate layers marked remote: true from the covariate
service into their configured paths under $TRM_DATA_PATH. Passing
--layer downloads that single layer whether or not it is marked.

The bounding box defaults to the envelope of the study boundary and can
be overridden with --bounds.

Example:
  trm fetch --study maize-oaf --resolution 30
  trm fetch --study maize-oaf --layer bio1 --bounds 34.0,-1.5,35.0,-0.5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Layer, "layer", "", "download one layer instead of every configured covariate")
	cmd.Flags().Float64SliceVar(&opts.Bounds, "bounds", nil, "bounding box as minLon,minLat,maxLon,maxLat")
	cmd.Flags().Float64Var(&opts.Resolution, "resolution", 10, "target resolution in meters")

	return cmd
}

func runFetch(opts *FetchOptions, cmd *cobra.Command) error {
	study, err := opts.study()
	if err != nil {
		return err
	}

	if len(study.Covariates) == 0 {
		return fmt.Errorf("study %s configures no covariates", study.Name)
	}

	var covariates []config.Covariate
	if opts.Layer != "" {
		for _, c := range study.Covariates {
			if c.Name == opts.Layer {
				covariates = append(covariates, c)
			}
		}
		if len(covariates) == 0 {
			return fmt.Errorf("layer %q is not a covariate of study %s", opts.Layer, study.Name)
		}
	} else {
		for _, c := range study.Covariates {
			if c.Remote {
				covariates = append(covariates, c)
			}
		}
		if len(covariates) == 0 {
			return fmt.Errorf("study %s marks no covariate as remote, set remote: true or pass --layer", study.Name)
		}
	}

	minLon, minLat, maxLon, maxLat, err := fetchBounds(opts, study)
	if err != nil {
		return err
	}

	for _, c := range covariates {
		dest := study.DataPath(c.Path)
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("error creating %s: %w", filepath.Dir(dest), err)
		}
		if err := remote.DownloadCovariate(cmd.Context(), c.Name, minLon, minLat, maxLon, maxLat, opts.Resolution, dest); err != nil {
			return err
		}
	}
	return nil
}

func fetchBounds(opts *FetchOptions, study *config.Study) (minLon, minLat, maxLon, maxLat float64, err error) {
	if len(opts.Bounds) > 0 {
		if len(opts.Bounds) != 4 {
			return 0, 0, 0, 0, fmt.Errorf("--bounds needs four values, got %d", len(opts.Bounds))
		}
		b := opts.Bounds
		if b[0] >= b[2] || b[1] >= b[3] {
			return 0, 0, 0, 0, fmt.Errorf("--bounds must be minLon,minLat,maxLon,maxLat")
		}
		return b[0], b[1], b[2], b[3], nil
	}

	if study.Boundary == "" {
		return 0, 0, 0, 0, fmt.Errorf("study %s has no boundary, pass --bounds", study.Name)
	}
	boundary, err := survey.LoadBoundary(study.DataPath(study.Boundary))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	minLon, minLat, maxLon, maxLat = boundary.Bound()
	return minLon, minLat, maxLon, maxLat, nil
}
