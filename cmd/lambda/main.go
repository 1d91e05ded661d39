package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/awmpietro/golang-decision-engine/internal/app"
	"github.com/awmpietro/golang-decision-engine/internal/config"
	"github.com/awmpietro/golang-decision-engine/internal/decision"
	"github.com/awmpietro/golang-decision-engine/internal/logging"
	"github.com/awmpietro/golang-decision-engine/internal/transport/lambdatransport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}

	latencyObserver := decision.NewAsyncNodeLatencyObserver(decision.NewNodeLatencyLogger(logger), cfg.ObsBuffer)
	defer latencyObserver.Close()

	engine, closeEngine, err := app.NewEngineFromConfig(context.Background(), cfg, logger,
		app.WithNodeLatencyObserver(latencyObserver),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer closeEngine()

	h := lambdatransport.NewHandler(engine)
	lambda.Start(h.Handle)
}
