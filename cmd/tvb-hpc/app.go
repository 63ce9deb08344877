package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tvbhpc/internal/config"
	"tvbhpc/internal/hpc"
	"tvbhpc/internal/logging"
	"tvbhpc/pkg/store"
	"tvbhpc/pkg/unicore"
)

// app holds what every command needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	ledger store.Store
	out    io.Writer
}

func loadApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if tf, _ := cmd.Flags().GetString("token-file"); tf != "" {
		cfg.Auth.TokenFile = tf
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
	ledger, err := store.Open(cfg.LedgerOptions(), logger)
	if err != nil {
		logger.Warn("job ledger unavailable", "backend", cfg.Ledger.Backend, "error", err)
		ledger = nil
	}

	return &app{cfg: cfg, logger: logger, ledger: ledger, out: cmd.OutOrStdout()}, nil
}

func (a *app) Close() {
	if a.ledger != nil {
		a.ledger.Close()
	}
}

func (a *app) tokens() hpc.TokenProvider {
	if a.cfg.Auth.TokenFile != "" {
		return hpc.FileToken(a.cfg.Auth.TokenFile)
	}
	return hpc.EnvToken(a.cfg.Auth.TokenEnv)
}

func (a *app) settings(pkgVersion string) hpc.Settings {
	if pkgVersion == "" {
		pkgVersion = version
	}
	return hpc.Settings{
		Sites:  a.cfg.SiteTable(),
		Layout: a.cfg.Layout(pkgVersion),
		Out:    a.out,
		Logger: a.logger,
		Ledger: hpc.NewLedger(a.ledger, a.logger),
	}
}

// submitter wires the UNICORE flow. When no token is available the failure
// is reported and ok is false.
func (a *app) submitter(site, pkgVersion, resultsDir string) (*hpc.Submitter, bool) {
	conn, err := hpc.NewUnicoreConnector(a.tokens(), a.cfg.RegistryURL, a.cfg.PollInterval, a.out, a.logger,
		unicore.WithUserAgent(userAgent()))
	if err != nil {
		fmt.Fprintf(a.out, "Authentication to %s failed: %v\n", site, err)
		fmt.Fprintf(a.out, "Could not connect to %s, stopping execution.\n", site)
		return nil, false
	}
	s := a.settings(pkgVersion)
	stager := hpc.NewStager(s, resultsDir)
	return hpc.NewSubmitter(s, conn, hpc.NewProvisioner(s), hpc.NewMonitor(s, stager)), true
}

func userAgent() string {
	return "tvb-hpc/" + version
}

// requireLedger fails commands that read the ledger when it is disabled.
func (a *app) requireLedger() error {
	if a.ledger == nil {
		return fmt.Errorf("job ledger is disabled (ledger.backend: %q)", a.cfg.Ledger.Backend)
	}
	return nil
}
