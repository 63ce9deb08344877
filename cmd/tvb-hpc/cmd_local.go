package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tvbhpc/internal/local"
	"tvbhpc/internal/local/executor"
	"tvbhpc/internal/workflow"
)

func newRunLocalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run-local <workflow-file>",
		Short: "Run a compiled workflow in a local Docker container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path := workflow.Locate(args[0])
			if path == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Cannot find the executable file: %s, stopping execution.\n", args[0])
				return nil
			}

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			image, _ := cmd.Flags().GetString("image")
			if image == "" {
				image = a.cfg.Local.Image
			}

			exec, err := executor.NewDockerExecutor(a.logger)
			if err != nil {
				return err
			}
			defer exec.Close()

			job, err := local.NewRunner(exec, a.ledger, image, a.out, a.logger).Run(context.Background(), path)
			if err != nil {
				return err
			}
			a.logger.Info("local run finished", "id", job.ID, "state", job.State)
			return nil
		},
	}
	cmd.Flags().String("image", "", "Container image (default from config local.image)")
	return cmd
}
