// Package main provides the CLI entrypoint for the file scan service.
// It wires subcommands (serve, scan, migrate, history), loads configuration,
// and initializes logging.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"

	root "filescan"
	"filescan/internal/config"
	"filescan/pkg/logger"
	"filescan/pkg/scanservice/vtgateway"
	"filescan/pkg/storage/sqlite"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// getStorage opens the history database, applies pending migrations, and
// returns the store along with a cleanup function.
func getStorage(ctx context.Context, cfg *config.Config) (*sqlite.SQLite, func()) {
	strg, err := sqlite.New(sqlite.Options{
		Path: cfg.History.DBPath,
		Cap:  cfg.History.Cap,
	})
	if err != nil {
		logger.Fatal(ctx, "could not open history database", zap.Error(err))
	}

	goose.SetBaseFS(root.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		logger.Fatal(ctx, "could not set goose dialect to sqlite3", zap.Error(err))
	}
	if err := goose.Up(strg.DB.(*sql.DB), "migrations"); err != nil {
		logger.Fatal(ctx, "could not migrate history database", zap.Error(err))
	}

	return strg, func() {
		logger.Info(ctx, "closing history database...")
		if err := strg.Close(); err != nil {
			logger.Warn(ctx, "could not close history database", zap.Error(err))
		}
	}
}

// getGateway constructs the scan gateway client from configuration.
func getGateway(cfg *config.Config) *vtgateway.Client {
	return vtgateway.New(&http.Client{Timeout: cfg.Gateway.UploadTimeout}, cfg.Gateway.BaseURL)
}

// main sets up the root Cobra command, loads configuration and logging, and
// registers subcommands before executing the CLI.
func main() {
	rootCmd := &cobra.Command{
		Use: "filescan",
	}

	// there is no way to access flags before command execution in cobra.
	// configPath here is parsed using the standard flags package.
	// following line is just added to prevent errors when Cobra is parsing the flags.
	rootCmd.PersistentFlags().StringP("config", "c", "config.yml", "Config File Path")

	configPath := flag.String("c", "config.yml", "The config file path")
	flag.Parse()

	log.Println("loading config ...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("could not load config file", err)
	}

	logger.Setup(cfg.Environment)

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			_ = logger.Get(ctx).Sync()

			panic(p)
		}
	}()

	rootCmd.AddCommand(
		serveCommand(cfg),
		scanCommand(cfg),
		migrateCommand(cfg),
		historyCommand(cfg),
	)

	err = rootCmd.Execute()
	_ = logger.Get(ctx).Sync()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}
