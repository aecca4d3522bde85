package main

import (
	"context"
	"fmt"

	"github.com/sam-im/sam-server/internal/config"
	"github.com/sam-im/sam-server/internal/handler"
	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/metrics"
	"github.com/sam-im/sam-server/internal/relay"
	"github.com/sam-im/sam-server/internal/server"
	"github.com/sam-im/sam-server/internal/service"
	"github.com/sam-im/sam-server/internal/store"
	"github.com/sam-im/sam-server/internal/workers"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("sam-server")

	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}
	if cfg.App.Version == "" {
		cfg.App.Version = buildVersion
	}

	log.Debug().Any("config", cfg).Msg("received configs")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storages, err := store.NewStorages(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating storages")
	}

	services := service.NewServices(storages, cfg.App, log)

	m := metrics.New()
	router := relay.NewRouter(storages.DeviceStore, storages.MessageStore, m, log)

	handlers, err := handler.NewHandlers(services, router, m, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating handlers")
	}

	srv, err := server.NewServer(handlers, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	workers.NewWorkers(storages, cfg.Workers, m, log).Run(ctx)

	srv.RunServer()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
