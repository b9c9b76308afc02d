package main

import (
	"context"
	"flag"
	"fleet-route-planner/internal/adapters/repositories"
	"fleet-route-planner/internal/config"
	"fleet-route-planner/internal/platform/db"
	"fleet-route-planner/internal/platform/obs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// dbtool prepares a Postgres database for the planner: schema, then
// optional seed data.
func main() {
	if err := godotenv.Load(); err != nil {
		obs.Logger().Info().Msg("no .env file found (using environment variables)")
	}

	schema := flag.Bool("schema", true, "create tables and indexes")
	seedPath := flag.String("seed", config.Get("SEED_PATH", ""), "JSON seed file to upsert (empty to skip)")
	flag.Parse()

	obs.Init(obs.LogConfig{Level: config.Get("LOG_LEVEL", "info"), Format: config.Get("LOG_FORMAT", "console")})
	log := obs.Logger()

	databaseURL := config.Get("DATABASE_URL", "")
	if databaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	conn, err := db.Open(ctx, databaseURL, db.PoolConfig{MaxOpenConns: 2})
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}
	defer conn.Close()

	if *schema {
		log.Info().Msg("initializing database schema")
		if err := repositories.InitSchema(ctx, conn); err != nil {
			log.Error().Err(err).Msg("schema initialization failed")
			os.Exit(1)
		}
		log.Info().Msg("schema ready")
	}

	if *seedPath != "" {
		log.Info().Str("path", *seedPath).Msg("seeding database")
		if err := repositories.SeedFromJSON(ctx, conn, *seedPath); err != nil {
			log.Error().Err(err).Msg("seeding failed")
			os.Exit(1)
		}
		log.Info().Msg("seeding complete")
	}
}
