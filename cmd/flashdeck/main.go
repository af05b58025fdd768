package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flashdeck/flashdeck-cli/internal/api"
	"github.com/flashdeck/flashdeck-cli/internal/auth"
	"github.com/flashdeck/flashdeck-cli/internal/cli"
	"github.com/flashdeck/flashdeck-cli/internal/config"
	"github.com/flashdeck/flashdeck-cli/internal/storage"
	"github.com/flashdeck/flashdeck-cli/internal/utils"
	"github.com/flashdeck/flashdeck-cli/pkg"
)

func main() {
	apiURL := flag.String("api", "", "backend base URL (overrides FLASHDECK_API_URL)")
	dataDir := flag.String("data", "", "state directory (overrides FLASHDECK_DATA_DIR)")
	memory := flag.Bool("memory", false, "keep tokens in memory only, no disk state")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *apiURL != "" {
		cfg.APIBaseURL = *apiURL
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	logger := utils.NewDefaultLogger()
	if cfg.IsDevelopment() {
		logger = utils.NewDevelopmentLogger()
	}
	slogger := utils.ToSlogLogger(logger)

	var store storage.Store
	if *memory {
		store = storage.NewMemoryStore()
	} else {
		db, err := pkg.OpenSQLite(cfg)
		if err != nil {
			logger.Warn("state db unavailable, tokens will not persist", "error", err)
			store = storage.NewMemoryStore()
		} else {
			sqliteStore, err := storage.NewSQLiteStore(db)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			store = sqliteStore
		}
	}
	defer store.Close()

	bus := auth.NewExpiryBus(slogger)
	defer bus.Close()
	manager := auth.NewManager(store, bus, slogger)
	client := api.NewClient(cfg.APIBaseURL, time.Duration(cfg.HTTPTimeoutSeconds)*time.Second, manager, slogger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go watchExpiry(ctx, bus)

	app := cli.NewApp(cfg, slogger, store, manager, client, os.Stdin, os.Stdout)
	if err := app.Run(ctx, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// watchExpiry surfaces forced sign-outs from the auth guard. The bus closes
// with the context, ending the range.
func watchExpiry(ctx context.Context, bus auth.ExpiryBus) {
	messages, err := bus.Subscribe(ctx)
	if err != nil {
		return
	}
	for msg := range messages {
		if event, err := auth.DecodeExpiredEvent(msg); err == nil {
			fmt.Fprintf(os.Stderr, "\nSession expired (%s). Run `flashdeck login` to sign in again.\n", event.Reason)
		}
		msg.Ack()
	}
}
