package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/awmpietro/golang-decision-engine/internal/app"
	"github.com/awmpietro/golang-decision-engine/internal/config"
	"github.com/awmpietro/golang-decision-engine/internal/decision"
	"github.com/awmpietro/golang-decision-engine/internal/logging"
	"github.com/awmpietro/golang-decision-engine/internal/metrics"
	"github.com/awmpietro/golang-decision-engine/internal/transport/httptransport"
)

var serveFlags struct {
	addr   string
	fsRoot string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the evaluation HTTP API",
	Long: `Start the HTTP API. Settings come from --config, then DECISION_*
environment variables, then flags.

Examples:
  zen serve --addr :9090 --fs-root decisions/
  DECISION_LOADER=redis zen serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.fsRoot, "fs-root", "", "serve decisions from this directory with the fs loader")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return err
	}
	if serveFlags.addr != "" {
		cfg.HTTPAddr = serveFlags.addr
	}
	if serveFlags.fsRoot != "" {
		cfg.Loader.Backend = config.BackendFS
		cfg.Loader.FSRoot = serveFlags.fsRoot
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	latencyObserver := decision.NewAsyncNodeLatencyObserver(m, cfg.ObsBuffer)
	defer latencyObserver.Close()

	engine, closeEngine, err := app.NewEngineFromConfig(ctx, cfg, logger,
		app.WithNodeLatencyObserver(latencyObserver),
		app.WithEvaluationObserver(m),
	)
	if err != nil {
		return err
	}
	defer closeEngine()

	return httptransport.Serve(ctx, cfg.HTTPAddr, httptransport.NewHandler(engine).Routes(m.Handler()), logger)
}
