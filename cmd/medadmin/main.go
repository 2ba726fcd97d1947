package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/medadmin/internal/buildinfo"
	"github.com/dmitrijs2005/medadmin/internal/client/cli"
	"github.com/dmitrijs2005/medadmin/internal/client/config"
	"github.com/dmitrijs2005/medadmin/internal/client/debugapi"
	"github.com/dmitrijs2005/medadmin/internal/logging"
	"github.com/joho/godotenv"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	// A missing .env is fine, the environment may carry everything.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, os.Stderr)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error(ctx, "shutdown", "error", err)
		}
	}()

	go app.StartOnlineStatusWatcher(ctx)

	if cfg.DebugAddr != "" {
		router := debugapi.NewRouter(app.Gateway(), app.Registry())
		go func() {
			if err := debugapi.Serve(ctx, cfg.DebugAddr, router, logger); err != nil {
				logger.Error(ctx, "debug endpoint stopped", "error", err)
			}
		}()
	}

	app.Run(ctx)
}
