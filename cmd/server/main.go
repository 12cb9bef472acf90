package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"rentezy-chat/auth"
	"rentezy-chat/internal"
	"rentezy-chat/moderation"
	"rentezy-chat/observability"
	"rentezy-chat/repositories"
	"rentezy-chat/runtime/workers"
	"rentezy-chat/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanups always execute.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	censoredChar, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Components
	moderator, err := moderation.NewModerator(config.CensoredWordList(), censoredChar)
	if err != nil {
		return fmt.Errorf("moderator setup failed: %w", err)
	}
	monitor := observability.NewMonitor(log)
	registry := server.NewRegistry()
	hub := server.NewHub(log, registry, monitor)

	api := server.NewAPI(
		log,
		repositories.NewMessageRepository(db, log),
		repositories.NewUserRepository(db),
		auth.NewTokens(config.AuthSecret, config.AuthTokenDuration),
		&moderator,
		monitor,
	)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervision
	sup := workers.NewSupervisor(log)
	sup.Add(
		workers.NewHTTPServerWorker(log, config.Addr(), api.Routes(hub)),
		workers.NewHeartbeatWorker(log, monitor, config.HeartbeatInterval),
		workers.NewMonitoringWorker(monitor, config.MetricInterval),
	)

	log.Info("Starting chat server", "addr", config.Addr())
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}
