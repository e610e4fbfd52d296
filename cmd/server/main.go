package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/MangoByte1987/MatchingEngine/internal/adapter/cache"
	"github.com/MangoByte1987/MatchingEngine/internal/adapter/memory"
	"github.com/MangoByte1987/MatchingEngine/internal/adapter/pg"
	"github.com/MangoByte1987/MatchingEngine/internal/adapter/ws"
	httpapi "github.com/MangoByte1987/MatchingEngine/internal/api/http"
	"github.com/MangoByte1987/MatchingEngine/internal/config"
	"github.com/MangoByte1987/MatchingEngine/internal/core"
	"github.com/MangoByte1987/MatchingEngine/internal/port"
)

func main() {
	cfg := config.Load()
	log := newLogger(cfg)
	ctx := context.Background()

	var repo port.Repository
	if cfg.PostgresDSN != "" {
		pgRepo, err := pg.NewRepo(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer pgRepo.Close()
		repo = pgRepo
	} else {
		log.Info().Msg("no POSTGRES_DSN set, using in-memory journal")
		repo = memory.NewRepo()
	}

	var bookCache port.Cache
	if cfg.RedisAddr != "" {
		bookCache = cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
	} else {
		bookCache = memory.NewCache()
	}

	eng := core.NewEngine(repo, bookCache, log)
	if len(cfg.Symbols) > 0 {
		if err := eng.WarmStart(ctx, cfg.Symbols); err != nil {
			log.Fatal().Err(err).Msg("warm start failed")
		}
	}

	hub := ws.NewHub(log)
	srv := httpapi.NewServer(eng, hub, log)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("matching engine listening")
	if err := srv.Run(cfg.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}
