package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"

	"quantumchat/auth"
	"quantumchat/crypto"
	"quantumchat/hub"
	"quantumchat/repositories"
	"quantumchat/runtime"
	"quantumchat/runtime/workers"
	"quantumchat/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the process lifecycle, and
// centralizes error reporting. This pattern is preferred over calling
// os.Exit or panic directly because:
//  1. It ensures all 'defer' statements (like database cleanup) are executed
//     before the program exits.
//  2. It improves testability by decoupling the initialization logic from
//     the main entry point.
//  3. It provides a structured way to handle graceful shutdowns for the hub
//     and background workers.
func run() error {
	// 1. Configuration & Logger
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := newLogger(config.LogLevel)

	// 2. KEM capability check. A missing or broken primitive aborts startup;
	// there is no weaker fallback to degrade into.
	if err := crypto.Selfcheck(); err != nil {
		return fmt.Errorf("KEM self-check failed: %w", err)
	}
	log.Info("ML-KEM-768 self-check passed")

	// 3. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 4. Hub, supervision & engine
	connectionHub := hub.NewHub(log)
	defer connectionHub.Close()

	sup := workers.NewSupervisor(log, config.RestartInterval)
	engine := runtime.NewEngine(log, sup, connectionHub,
		config.NumberOfVaultWorkers, config.BufferSize)

	// 5. Repositories & services. The returned Core is the collaborator
	// surface a transport layer mounts onto; this binary hosts it without
	// choosing one.
	core := services.NewCore(services.CoreDeps{
		Identities: repositories.NewIdentityRepository(db),
		Rooms:      repositories.NewRoomRepository(db),
		Messages:   repositories.NewMessageRepository(db, log, config.LimitMessages),
		Tokens:     auth.NewTokenIssuer(config.AuthTokenSecret, config.AuthTokenDuration),
		Hub:        connectionHub,
		Engine:     engine,
	})

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Start the engine and wait for a stop signal
	engine.Start(ctx)
	log.Info("quantumchat core running",
		"services", core.Names())

	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	engine.Stop()
	log.Info("Program stopped cleanly")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
