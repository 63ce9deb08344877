package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tvbhpc/internal/hpc"
	"tvbhpc/internal/workflow"
)

var (
	version = "1.0.0"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tvb-hpc <workflow-file> <site> <project>",
		Short: "Run compiled TVB workflows on EBRAINS HPC sites",
		Long: `tvb-hpc launches a compiled TVB workflow on a UNICORE site.

It prepares a Python environment in the HOME storage of the site when
needed, uploads the workflow together with the files it references and
submits it under the given project. With --monitor it waits for the job
and downloads the results into the current directory.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runLaunch,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.tvb-hpc/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Diagnostic log level: warn, info, debug, trace")
	rootCmd.PersistentFlags().String("token-file", "", "Read the access token from this file instead of $CLB_AUTH")

	rootCmd.Flags().Bool("monitor", false, "Wait for the job and stage out its results")
	rootCmd.Flags().String("results-dir", ".", "Directory receiving staged-out results")
	rootCmd.Flags().String("package-version", "", "Package version required in the remote environment")

	rootCmd.AddCommand(
		newMonitorCmd(),
		newRunLocalCmd(),
		newJobsCmd(),
		newSitesCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func runLaunch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) < 3 {
		fmt.Fprintln(out, "Please provide the HPC project to run this job within, stopping execution.")
		return nil
	}

	name, path := workflow.Locate(args[0])
	fmt.Fprintf(out, "Identified the executable file: %s\n", args[0])
	if path == "" {
		fmt.Fprintf(out, "Cannot find the executable file: %s, stopping execution.\n", args[0])
		return nil
	}

	fmt.Fprintln(out, "Preparing job...")
	extra, err := workflow.FilesToUpload(path)
	if err != nil {
		return err
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	site, project := args[1], args[2]
	monitor, _ := cmd.Flags().GetBool("monitor")
	resultsDir, _ := cmd.Flags().GetString("results-dir")
	pkgVersion, _ := cmd.Flags().GetString("package-version")

	submitter, ok := a.submitter(site, pkgVersion, resultsDir)
	if !ok {
		return nil
	}

	ctx := context.Background()
	outcome, err := submitter.Submit(ctx, hpc.Request{
		Site:       site,
		Project:    project,
		Executable: name,
		Inputs:     append([]string{path}, extra...),
		Monitor:    monitor,
	})
	a.logger.Info("submission finished", "site", site, "outcome", outcome)
	return err
}
