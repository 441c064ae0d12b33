package main

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"review_engine/internal/adapters/fallback"
	"review_engine/internal/adapters/hostaway"
	server "review_engine/internal/adapters/http_server"
	"review_engine/internal/adapters/observability"
	redisad "review_engine/internal/adapters/redis"
	"review_engine/internal/app"
	"review_engine/internal/domain"
	"review_engine/internal/shared"
	mysqlrepo "review_engine/internal/storage/mysql"
	"review_engine/internal/storage/sqlite"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "review-api")

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// upstream + fallback; a nil source means fallback only
	var src domain.ReviewSource
	if cfg.HostawayConfigured() {
		client, err := hostaway.New(cfg.HostawayBase, cfg.HostawayAccountID, cfg.HostawayKey, cfg.HostawayRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Hostaway client")
		}
		src = client
	}
	repo := app.NewReviewRepository(src, fallback.New(cfg.FallbackDataset),
		app.WithCacheDuration(cfg.CacheDuration),
		app.WithFetchTimeout(cfg.FetchTimeout),
	)

	// redis is optional: reports are recomputed when it is down
	var cache domain.Cache
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := rc.Ping(pctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, trend cache disabled")
		_ = rc.Close()
	} else {
		cache = rc
		defer rc.Close()
	}
	cancel()

	store, closer := openApprovalStore(cfg)
	defer closer.Close()

	q := app.NewQueryService(repo, cache, store, cfg.CacheTTL)
	m := app.NewModerationService(repo, store)

	// http
	srv := server.New(cfg.FetchTimeout + 5*time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, M: m})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Bool("live", src != nil).Str("fallback", cfg.FallbackDataset).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}

func openApprovalStore(cfg shared.Config) (domain.ApprovalStore, io.Closer) {
	switch cfg.ApprovalStore {
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("mysql approval store ok")
		return mysqlrepo.New(db), db
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			log.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("create sqlite directory failed")
		}
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("open sqlite approval store failed")
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite approval store ok")
		return s, s
	default:
		log.Fatal().Str("store", cfg.ApprovalStore).Msg("APPROVAL_STORE must be mysql or sqlite")
		return nil, nil
	}
}
