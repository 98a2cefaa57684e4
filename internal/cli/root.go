package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvasco323/TRM/internal/config"
	"github.com/jvasco323/TRM/internal/pipeline"
)

// RootOptions holds global flags shared by every subcommand.
type RootOptions struct {
	Config string
	Study  string
	Format string
}

// ValidFormats are the formats rasters can be written in.
var ValidFormats = []string{"tif", "asc"}

// NewRootCommand creates the root trm command with all subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "trm",
		Short: "Ensemble modelling of management zones from survey data",
		Long: `trm trains an ensemble of classifiers on a geo-referenced survey,
predicts every model across the covariate rasters and delineates binary
management zones from the stacked probability surface.

Studies are described in a YAML config. Every stage writes its artifacts
under $TRM_OUTPUT_PATH/<study>/ and reads the previous stage's files from
there, so each stage can also be rerun on its own.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid raster format %q (valid formats: %s)", opts.Format, strings.Join(ValidFormats, ", "))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "configs/studies.yaml", "path to the studies config")
	cmd.PersistentFlags().StringVarP(&opts.Study, "study", "s", "", "study name from the config (optional when the config holds one study)")
	cmd.PersistentFlags().StringVar(&opts.Format, "raster-format", "tif", "format written rasters use")

	cmd.AddCommand(NewStudiesCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewExtractCommand(opts))
	cmd.AddCommand(NewSplitCommand(opts))
	cmd.AddCommand(NewTrainCommand(opts))
	cmd.AddCommand(NewPredictCommand(opts))
	cmd.AddCommand(NewStackCommand(opts))
	cmd.AddCommand(NewThresholdCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewFetchCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// study resolves the study named by the global flags. When the config
// holds a single study the --study flag may be left out.
func (o *RootOptions) study() (*config.Study, error) {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return nil, err
	}
	if o.Study == "" {
		if len(cfg.Studies) == 1 {
			return &cfg.Studies[0], nil
		}
		return nil, fmt.Errorf("--study is required, available: %s", strings.Join(cfg.Names(), ", "))
	}
	return cfg.Study(o.Study)
}

func (o *RootOptions) runner() (*pipeline.Runner, error) {
	study, err := o.study()
	if err != nil {
		return nil, err
	}
	r := pipeline.New(study)
	r.RasterFormat = o.Format
	return r, nil
}
