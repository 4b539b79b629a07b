package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/permit-prep/db"
	"github.com/gokatarajesh/permit-prep/internal/config"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status or version")
		dir     = flag.String("dir", "", "Read migrations from this directory instead of the embedded set")
		envFile = flag.String("env", "configs/.env", "dotenv file to load if present")
	)
	flag.Parse()

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("app", "migrator").Logger()

	_ = godotenv.Load(*envFile)

	var pg config.Postgres
	if err := env.ParseWithOptions(&pg, env.Options{RequiredIfNoDef: true}); err != nil {
		log.Fatal().Err(err).Msg("invalid database configuration")
	}

	conn, err := sql.Open("pgx", pg.DSN())
	if err != nil {
		log.Fatal().Err(err).Str("host", pg.Host).Int("port", pg.Port).Msg("failed to open database connection")
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	migrationDir := "migrations"
	if *dir != "" {
		migrationDir = *dir
		goose.SetBaseFS(nil)
	} else {
		goose.SetBaseFS(db.Migrations)
	}
	goose.SetTableName("goose_db_version")
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal().Err(err).Msg("set goose dialect")
	}

	log.Info().
		Str("host", pg.Host).
		Str("database", pg.Database).
		Str("migration_dir", migrationDir).
		Str("command", *command).
		Msg("connected to database")

	switch *command {
	case "up":
		err = goose.UpContext(ctx, conn, migrationDir)
	case "down":
		err = goose.DownContext(ctx, conn, migrationDir)
	case "status":
		err = goose.StatusContext(ctx, conn, migrationDir)
	case "version":
		err = goose.VersionContext(ctx, conn, migrationDir)
	default:
		log.Fatal().Str("command", *command).Msg("unknown command. Use: up, down, status or version")
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", *command).Msg("migration failed")
	}
	log.Info().Str("command", *command).Msg("migration command finished")
}
