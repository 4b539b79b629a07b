package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/gokatarajesh/permit-prep/internal/app"
	"github.com/gokatarajesh/permit-prep/internal/config"
	"github.com/gokatarajesh/permit-prep/internal/logging"
)

func main() {
	envFile := flag.String("env", "configs/.env", "dotenv file loaded outside production")
	flag.Parse()

	boot := logging.New("permit-prep", os.Getenv("APP_ENV"), "info")

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			boot.Warn().Err(err).Str("file", *envFile).Msg("could not load env file")
		}
	}

	loadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	cfg, err := config.Load(loadCtx)
	cancel()
	if err != nil {
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	instance, err := app.New(ctx, cfg)
	if err != nil {
		boot.Fatal().Err(err).Msg("failed to build app")
	}
	if err := instance.Run(ctx); err != nil {
		boot.Fatal().Err(err).Msg("runtime error")
	}
}
