package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/eduadmin/apps/api/echo"
	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/forecast"
	"github.com/trezcool/eduadmin/core/tablesync"
	"github.com/trezcool/eduadmin/services/gemini"
	logsvc "github.com/trezcool/eduadmin/services/logger"
	"github.com/trezcool/eduadmin/storage"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger, err := logsvc.New(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// set up store
	st, closeStore, err := storage.Open(ctx, conf, logger.With("component", "store"))
	if err != nil {
		logger.Fatal("setting up store", "error", err)
	}
	defer func() {
		if err = closeStore(); err != nil {
			logger.Error("closing store", "error", err)
		}
	}()

	// set up services
	engine := tablesync.NewEngine(st, logger.With("component", "sync"), conf.Store.FetchTimeout)

	var gen forecast.Generator
	gen, err = gemini.NewGenerator(ctx, conf.Gemini)
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		logger.Warn("no Gemini API key configured, forecasts are disabled")
		gen = gemini.Disabled{}
	case err != nil:
		logger.Fatal("setting up prediction service", "error", err)
	}
	forecasts := forecast.NewService(
		engine,
		forecast.NewClient(gen),
		forecast.NewPersistence(engine),
		logger.With("component", "forecast"),
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build), "env", conf.Env, "store", conf.Store.Backend)
	defer logger.Info("Application stopped")

	// a failed first sync is not fatal: the API reports it and POST /v1/refresh retries
	if _, err = engine.RefreshAll(ctx); err != nil {
		logger.Error("initial sync failed", "error", err)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("store").Set(conf.Store.Backend)
	expvar.Publish("sync", expvar.Func(func() interface{} { return engine.State() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error("debug server closed", "error", err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:      conf,
			Logger:    logger.With("component", "api"),
			Engine:    engine,
			Forecasts: forecasts,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal("server error", "error", err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error("could not stop server gracefully", "error", err)

			if err = server.Close(); err != nil {
				logger.Fatal("could not force stop server", "error", err)
			}
		}
	}
}
