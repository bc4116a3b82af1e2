package main

import (
	"context"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/forecast"
	"github.com/trezcool/eduadmin/core/tablesync"
	"github.com/trezcool/eduadmin/services/gemini"
	logsvc "github.com/trezcool/eduadmin/services/logger"
	"github.com/trezcool/eduadmin/storage"
)

func main() {
	conf := core.NewConfig()

	logger, err := logsvc.New(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}

	ctx := context.Background()

	// set up store
	st, closeStore, err := storage.Open(ctx, conf, logger)
	if err != nil {
		logger.Fatal("setting up store", "error", err)
	}

	engine := tablesync.NewEngine(st, logger, conf.Store.FetchTimeout)

	var gen forecast.Generator
	gen, err = gemini.NewGenerator(ctx, conf.Gemini)
	if errors.Is(err, gemini.ErrMissingAPIKey) {
		gen = gemini.Disabled{}
	} else if err != nil {
		logger.Fatal("setting up prediction service", "error", err)
	}

	// start CLI
	cli := commandLine{
		engine:    engine,
		forecasts: forecast.NewService(engine, forecast.NewClient(gen), forecast.NewPersistence(engine), logger),
		out:       os.Stdout,
	}
	err = cli.run(ctx, os.Args)

	logger.Sync()
	if cErr := closeStore(); cErr != nil {
		logger.Error("closing store", "error", cErr)
	}
	if err != nil {
		_, _ = errColor.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
