package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvasco323/TRM/internal/config"
)

// NewStudiesCommand creates the studies command.
func NewStudiesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "studies",
		Short:         "List the studies of the config",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.Config)
			if err != nil {
				return err
			}
			for i := range cfg.Studies {
				printStudy(cmd, &cfg.Studies[i])
			}
			return nil
		},
	}
}

func printStudy(cmd *cobra.Command, s *config.Study) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", s.Name)
	if s.Label != s.Name {
		fmt.Fprintf(out, "  label:      %s\n", s.Label)
	}
	if s.Survey.Class != "" {
		fmt.Fprintf(out, "  survey:     %s (classes from column %s)\n", s.Survey.Path, s.Survey.Class)
	} else {
		fmt.Fprintf(out, "  survey:     %s (response %s, positive above quantile %.2f)\n",
			s.Survey.Path, s.Survey.Response, s.Survey.Quantile)
	}
	if len(s.Covariates) > 0 {
		names := make([]string, 0, len(s.Covariates))
		for _, c := range s.Covariates {
			names = append(names, c.Name)
		}
		fmt.Fprintf(out, "  covariates: %s\n", strings.Join(names, ", "))
	}
	if s.Climate.Enabled {
		fmt.Fprintf(out, "  climate:    %s to %s (%s)\n",
			s.Climate.Start, s.Climate.End, strings.Join(s.Climate.Metrics, ", "))
	}
	fmt.Fprintf(out, "  models:     %s\n", strings.Join(s.Training.Models, ", "))
	fmt.Fprintf(out, "  threshold:  %s\n", s.Threshold.Method)
}
