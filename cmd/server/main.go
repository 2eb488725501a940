// Command server runs the ideas batch API.
//
// Configuration comes from the environment (see internal/config); a .env file
// in the working directory is loaded first when present.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/tbourn/go-ideas-backend/internal/config"
	"github.com/tbourn/go-ideas-backend/internal/generation"
	httpapi "github.com/tbourn/go-ideas-backend/internal/http"
	"github.com/tbourn/go-ideas-backend/internal/observability"
	"github.com/tbourn/go-ideas-backend/internal/repo"
	"github.com/tbourn/go-ideas-backend/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// errMockProvider makes every slot take the fallback path in mock mode.
var errMockProvider = errors.New("mock provider: generation disabled")

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DBDriver, cfg.DBPath, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("automigrate")
	}

	gen, err := newGenerator(cfg.Generation)
	if err != nil {
		log.Fatal().Err(err).Msg("generation client")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, gen, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go purgeIdempotency(ctx, db, cfg.IdempotencyTTL)

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Str("provider", cfg.Generation.Provider).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	// In-flight batches get the write timeout to finish.
	sctx, cancel := context.WithTimeout(context.Background(), cfg.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newGenerator builds the generation client for the configured provider.
func newGenerator(g config.GenerationConfig) (*generation.Client, error) {
	opts := generation.Options{
		PrimaryModel:    g.PrimaryModel,
		SecondaryModel:  g.SecondaryModel,
		MaxRetries:      g.MaxRetries,
		BackoffBase:     g.BackoffBase,
		CallTimeout:     g.CallTimeout,
		Temperature:     g.Temperature,
		MaxOutputTokens: g.MaxOutputTokens,
	}
	if g.RPS > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(g.RPS), g.Burst)
	}

	if g.Provider == "mock" {
		opts.MaxRetries = 0
		opts.BackoffBase = 0
		return generation.NewClient(generation.ProviderFunc(func(context.Context, generation.Request) (string, error) {
			return "", errMockProvider
		}), opts), nil
	}

	p, err := generation.NewOpenAIProvider(g.APIKey, g.BaseURL)
	if err != nil {
		return nil, err
	}
	return generation.NewClient(p, opts), nil
}

// purgeIdempotency drops expired idempotency records until ctx is done.
func purgeIdempotency(ctx context.Context, db *gorm.DB, ttl time.Duration) {
	every := ttl / 2
	if every < time.Minute {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("purge idempotency")
				continue
			}
			if n > 0 {
				log.Debug().Int64("rows", n).Msg("purged idempotency records")
			}
		}
	}
}
