package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jvasco323/TRM/internal/notification"
)

// NewRunCommand creates the run command.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every stage of one study",
		Long: `Run the full pipeline of the selected study, in order: extract,
split, train, predict, stack, threshold and report.

Example:
  trm run --config configs/studies.yaml --study maize-oaf`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.runner()
			if err != nil {
				return err
			}

			start := time.Now()
			if err := r.Run(); err != nil {
				notification.SendDiscordErrorNotification(fmt.Sprintf("Study **%s** failed: %v", r.Study.Name, err))
				return err
			}
			msg := fmt.Sprintf("Study **%s** finished in %s.", r.Study.Name, time.Since(start).Round(time.Second))
			if s := r.Summary(); s != "" {
				msg += "\n\n" + s
			}
			notification.SendDiscordSuccessNotification(msg)
			return nil
		},
	}
}
