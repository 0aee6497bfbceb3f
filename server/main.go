package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/builder"
	"github.com/meikuraledutech/builder/auth"
	"github.com/meikuraledutech/builder/config"
	"github.com/meikuraledutech/builder/logger"
	"github.com/meikuraledutech/builder/memory"
	"github.com/meikuraledutech/builder/postgres"
	"github.com/meikuraledutech/builder/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.AppName, cfg.AppLogLevel)

	ctx := context.Background()

	var store builder.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect")
		}
		defer pool.Close()
		store = postgres.New(pool)
		if err := store.CreateSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("schema")
		}
	} else {
		log.Warn().Msg("DATABASE_URL is not set, workflows are kept in memory")
		store = memory.New()
	}

	var verifier *auth.Verifier
	if cfg.AuthJWTSecret != "" {
		var revocations auth.Revocations = memory.NewRevocations()
		if cfg.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			defer rdb.Close()
			if err := rdb.Ping(ctx).Err(); err != nil {
				log.Fatal().Err(err).Msg("redis")
			}
			revocations = redisstore.New(rdb)
		}
		verifier = auth.NewVerifier([]byte(cfg.AuthJWTSecret), revocations)
	} else {
		log.Warn().Msg("AUTH_JWT_SECRET is not set, routes are unauthenticated")
	}

	app := newApp(&api{
		store:        store,
		catalog:      builder.DefaultCatalog(),
		verifier:     verifier,
		rejectCycles: cfg.WorkflowRejectCycles,
		log:          log.Logger,
	})

	log.Info().Msgf("Starting workflow backend on port :%d", cfg.AppPort)
	if err := app.Listen(fmt.Sprintf(":%d", cfg.AppPort)); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
