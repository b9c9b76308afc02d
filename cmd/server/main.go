package main

import (
	"context"
	"database/sql"
	"errors"
	"fleet-route-planner/internal/adapters/cache"
	"fleet-route-planner/internal/adapters/distance"
	"fleet-route-planner/internal/adapters/repositories"
	"fleet-route-planner/internal/api"
	"fleet-route-planner/internal/api/handlers"
	"fleet-route-planner/internal/config"
	"fleet-route-planner/internal/matrix"
	"fleet-route-planner/internal/platform/db"
	"fleet-route-planner/internal/platform/obs"
	"fleet-route-planner/internal/ports"
	"fleet-route-planner/internal/services"
	"fleet-route-planner/internal/solver"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

// main is the application composition root.
// It wires concrete adapters (Postgres or in-memory data, Redis or SQL matrix
// cache, ORS) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		obs.Logger().Info().Msg("no .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		obs.Logger().Fatal().Err(err).Msg("configuration")
	}
	obs.Init(obs.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := obs.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := obs.Logger()

	engineCfg := services.DefaultEngineConfig()
	if cfg.EngineConfigPath != "" {
		if err := config.LoadYAML(cfg.EngineConfigPath, &engineCfg); err != nil {
			return fmt.Errorf("run: %w", err)
		}
		log.Info().Str("path", cfg.EngineConfigPath).Msg("engine config loaded")
	}

	var (
		conn *sql.DB
		repo ports.PlanningRepository
	)
	if cfg.DatabaseURL != "" {
		var err error
		conn, err = db.Open(ctx, cfg.DatabaseURL, db.PoolConfig{})
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		defer conn.Close()
		repo = repositories.NewPostgresPlanningRepository(conn)
	} else {
		mem, err := memoryRepository(config.Get("SEED_PATH", ""))
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		repo = mem
	}

	shared, closeShared, err := sharedCache(ctx, cfg, conn)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer closeShared()

	var source ports.MatrixSource
	if cfg.ORSAPIKey != "" {
		ors, err := distance.NewORSMatrixSource(cfg.ORSAPIKey, distance.ORSOptions{
			BaseURL:       cfg.ORSBaseURL,
			Profile:       cfg.ORSProfile,
			RatePerSecond: cfg.ORSRatePerSecond,
		})
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		source = ors
	} else {
		log.Warn().Msg("ORS_API_KEY not set; travel matrices are great-circle estimates")
	}

	provider := matrix.NewProvider(source, matrix.Options{
		TTL:          cfg.MatrixCacheTTL,
		Size:         cfg.MatrixCacheSize,
		FetchTimeout: cfg.MatrixTimeout,
		SpeedKmh:     engineCfg.SpeedKmh,
		Shared:       shared,
	})
	planner := services.NewPlanner(repo, provider, solver.New, engineCfg)

	deps := api.RouterDeps{Planner: planner, SolveTimeout: cfg.SolveTimeout}
	if conn != nil {
		// A nil *sql.DB must not become a non-nil Pinger.
		deps.DB = handlers.Pinger(conn)
	}

	// Write timeout leaves room for a full solve plus a cold matrix fetch.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.SolveTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("run: listen: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("run: shutdown: %w", err)
	}
	return nil
}

func memoryRepository(seedPath string) (*repositories.MemoryPlanningRepository, error) {
	repo := repositories.NewMemoryPlanningRepository()
	if seedPath == "" {
		obs.Logger().Warn().Msg("no DATABASE_URL or SEED_PATH; planning data store is empty")
		return repo, nil
	}

	seed, err := repositories.LoadSeed(seedPath)
	if err != nil {
		return nil, fmt.Errorf("memory repository: %w", err)
	}
	if err := repo.Load(seed); err != nil {
		return nil, fmt.Errorf("memory repository: %w", err)
	}
	obs.Logger().Info().Str("path", seedPath).Msg("seed data loaded")
	return repo, nil
}

// sharedCache prefers Redis, then the Postgres table, then no second level.
func sharedCache(ctx context.Context, cfg *config.Config, conn *sql.DB) (ports.MatrixCache, func(), error) {
	switch {
	case cfg.RedisURL != "":
		rc, err := cache.NewRedisMatrixCacheFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("shared cache: %w", err)
		}
		return rc, func() { _ = rc.Close() }, nil
	case conn != nil:
		return cache.NewSQLMatrixCache(conn), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}
