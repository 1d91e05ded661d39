package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/awmpietro/golang-decision-engine/internal/app"
	"github.com/awmpietro/golang-decision-engine/internal/config"
	"github.com/awmpietro/golang-decision-engine/internal/decision"
	"github.com/awmpietro/golang-decision-engine/internal/logging"
	"github.com/awmpietro/golang-decision-engine/internal/metrics"
	"github.com/awmpietro/golang-decision-engine/internal/transport/httptransport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	latencyObserver := decision.NewAsyncNodeLatencyObserver(
		decision.MultiObserver{m, decision.NewNodeLatencyLogger(logger)},
		cfg.ObsBuffer,
	)
	defer latencyObserver.Close()

	engine, closeEngine, err := app.NewEngineFromConfig(ctx, cfg, logger,
		app.WithNodeLatencyObserver(latencyObserver),
		app.WithEvaluationObserver(m),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeEngine(); err != nil {
			logger.Warn("close loader", "err", err)
		}
	}()

	h := httptransport.NewHandler(engine)
	return httptransport.Serve(ctx, cfg.HTTPAddr, h.Routes(m.Handler()), logger)
}
