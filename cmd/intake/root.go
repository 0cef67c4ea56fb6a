package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"medinauts/internal/intake/clients"
	"medinauts/internal/intake/service"
	"medinauts/internal/intake/store"
	"medinauts/internal/platform/config"
	"medinauts/internal/platform/logger"
	"medinauts/internal/platform/tracing"
	"medinauts/internal/tokenstore"
)

type rootOptions struct {
	backendURL string
	tokenDB    string
	logLevel   string
	jsonOutput bool
}

// app holds what every subcommand needs once flags are parsed.
type app struct {
	cfg    config.Server
	logger *slog.Logger
	tokens *tokenstore.SQLiteStore
	json   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Medinauts clinical intake from the terminal",
		Long: `Scan clinical reports, complete the intake form and submit it for a
heart disease risk analysis.

Configuration is read from MEDINAUTS_CONFIG (YAML) and the environment;
flags override both.

Examples:
  intake register --username ada --password s3cret
  intake login --username ada --password s3cret
  intake analyze --accept-disclaimer labs.pdf ecg.png --set thal=2
  intake logout`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, opts)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.close()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.backendURL, "backend", "", "Backend base URL (default: MEDINAUTS_API_URL)")
	cmd.PersistentFlags().StringVar(&opts.tokenDB, "token-db", "", "Path of the token database (default: MEDINAUTS_TOKEN_DB)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(
		newRegisterCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newFieldsCmd(a),
		newAnalyzeCmd(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if opts.backendURL != "" {
		cfg.BackendURL = opts.backendURL
		cfg.ScanURL = opts.backendURL
		cfg.PredictURL = opts.backendURL
	}
	if opts.tokenDB != "" {
		cfg.TokenDBPath = opts.tokenDB
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	} else {
		cfg.LogLevel = "warn"
	}

	if err := os.MkdirAll(filepath.Dir(cfg.TokenDBPath), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	tokens, err := tokenstore.NewSQLite(cfg.TokenDBPath)
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}

	a.cfg = cfg
	a.logger = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel)
	a.tokens = tokens
	a.json = opts.jsonOutput
	return nil
}

func (a *app) close() error {
	if a.tokens == nil {
		return nil
	}
	err := a.tokens.Close()
	a.tokens = nil
	return err
}

func (a *app) authClient() *clients.AuthClient {
	return clients.NewAuthClient(a.cfg.BackendURL, clients.WithTracer(tracing.NewOTel()))
}

// newService builds an intake controller whose sessions live for the
// duration of one command.
func (a *app) newService() *service.Service {
	tracer := tracing.NewOTel()
	return service.New(
		store.NewInMemory(),
		clients.NewScanClient(a.cfg.ScanURL, clients.WithTimeout(a.cfg.ScanTimeout), clients.WithTracer(tracer)),
		clients.NewPredictClient(a.cfg.PredictURL, clients.WithTimeout(a.cfg.PredictTimeout), clients.WithTracer(tracer)),
		clients.NewFeedbackClient(a.cfg.BackendURL, clients.WithTracer(tracer)),
		service.WithLogger(a.logger),
		service.WithScanConcurrency(a.cfg.ScanConcurrency),
	)
}
