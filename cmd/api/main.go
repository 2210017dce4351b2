package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "imperium_gate/internal/adapters/http_server"
	"imperium_gate/internal/adapters/observability"
	redisad "imperium_gate/internal/adapters/redis"
	"imperium_gate/internal/app"
	"imperium_gate/internal/domain"
	"imperium_gate/internal/shared"
	"imperium_gate/internal/storage/fsstore"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// cache is optional; without Redis every view is resolved from the snapshot
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rc.Ping(pctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, serving uncached")
			_ = rc.Close()
		} else {
			log.Info().Str("addr", cfg.RedisAddr).Msg("redis connection ok")
			cache = rc
			defer rc.Close()
		}
	}

	loader := app.NewLoader(fsstore.New(cfg.DataRoot))
	q := app.NewQueryService(loader, cache, cfg.CacheTTL)
	// warm the snapshot so the first request does not pay for the scan
	n := len(loader.Load(ctx))
	log.Info().Str("root", cfg.DataRoot).Str("origin", loader.Origin()).Int("projects", n).Msg("data loaded")

	srv := server.New(15*time.Second, cfg.CORSOrigins...)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(sctx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
