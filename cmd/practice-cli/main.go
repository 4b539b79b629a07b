package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/gokatarajesh/permit-prep/internal/cli"
	"github.com/gokatarajesh/permit-prep/internal/config"
	"github.com/gokatarajesh/permit-prep/internal/explain"
	"github.com/gokatarajesh/permit-prep/internal/logging"
	"github.com/gokatarajesh/permit-prep/internal/storage/sqlitestore"
)

func main() {
	var (
		dbPath  = flag.String("db", "permit-prep.db", "SQLite file holding saved progress")
		state   = flag.String("state", "GA", "Jurisdiction code")
		profile = flag.String("profile", "local", "Progress slot name")
		pass    = flag.Int("pass", 80, "Pass mark in percent")
		level   = flag.String("log-level", "warn", "Log level")
		envFile = flag.String("env", "configs/.env", "dotenv file to load if present")
	)
	flag.Parse()

	logger := logging.NewWithWriter(os.Stderr, "practice-cli", "development", *level)

	_ = godotenv.Load(*envFile)

	explainCfg, err := config.LoadExplain()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: invalid explanation configuration:", err)
		os.Exit(1)
	}

	store, err := sqlitestore.Open(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer store.Close()

	var explainer explain.Explainer = explain.Unavailable
	if explainCfg.APIKey != "" {
		explainer = explain.NewClient(explain.Config{
			APIKey:  explainCfg.APIKey,
			Model:   explainCfg.Model,
			BaseURL: explainCfg.BaseURL,
			Timeout: explainCfg.Timeout,
		}, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = cli.Run(ctx, os.Stdin, os.Stdout, cli.Config{
		Store:          store,
		Profile:        *profile,
		Jurisdiction:   *state,
		Explainer:      explainer,
		ExplainTimeout: explainCfg.Timeout,
		PassPercent:    *pass,
		Logger:         logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		store.Close()
		os.Exit(1)
	}
}
