package main

import (
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/app"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/config"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/logging"
	lambdatransport "github.com/awmpietro/golang-llm-orchestration-case/internal/transport/lambdatransport"
)

func main() {
	cfg := config.Load()
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	rt, err := app.Bootstrap(cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	h := lambdatransport.NewHandler(rt.Service)
	lambda.Start(h.Run)
}
