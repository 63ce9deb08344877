package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor <job-url> <site>",
		Short: "Wait for a launched job and stage out its results",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			jobURL, site := args[0], args[1]
			resultsDir, _ := cmd.Flags().GetString("results-dir")
			submitter, ok := a.submitter(site, "", resultsDir)
			if !ok {
				return nil
			}
			outcome, err := submitter.Attach(context.Background(), site, jobURL)
			a.logger.Info("monitoring finished", "job", jobURL, "outcome", outcome)
			return err
		},
	}
	cmd.Flags().String("results-dir", ".", "Directory receiving staged-out results")
	return cmd
}
