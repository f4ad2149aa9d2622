package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"screepsres/internal/aggregate"
	"screepsres/internal/config"
	persistlog "screepsres/internal/persistence/log"
	"screepsres/internal/render"
	"screepsres/internal/report"
	"screepsres/internal/screeps"
	"screepsres/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", "", "http listen address (overrides server.listen and PORT)")
		configPath = flag.String("config", config.DefaultPath, "server config path")
		dataDir    = flag.String("data", "", "runtime data directory (overrides server.data_dir and DATA_DIR)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if v := strings.TrimSpace(*addr); v != "" {
		cfg.Server.Listen = v
	}
	if v := strings.TrimSpace(*dataDir); v != "" {
		cfg.Server.DataDir = v
	}
	if err := os.MkdirAll(cfg.Server.DataDir, 0o755); err != nil {
		logger.Fatalf("create data dir: %v", err)
	}

	client, err := screeps.New(screeps.Config{
		BaseURL:     cfg.Screeps.BaseURL,
		Token:       cfg.Screeps.Token,
		HTTPTimeout: cfg.HTTPTimeout(),
	})
	if err != nil {
		logger.Fatalf("screeps client: %v", err)
	}
	if cfg.Screeps.Token == "" {
		logger.Printf("SCREEPS_TOKEN not set; using unauthenticated API access")
	}

	renderOpts := render.DefaultOptions(cfg.Server.DataDir)
	renderOpts.Gap = cfg.Render.Gap
	renderOpts.Background = cfg.Render.Background
	renderOpts.HeaderColor = cfg.Render.HeaderColor
	renderOpts.FooterColor = cfg.Render.FooterColor
	renderer, err := render.NewRenderer(renderOpts)
	if err != nil {
		logger.Fatalf("renderer: %v", err)
	}

	idx, err := openRenderIndex(cfg)
	if err != nil {
		logger.Fatalf("open render index: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	r2Mirror, err := buildR2MirrorRuntime(cfg.Mirror, cfg.Server.DataDir, logger)
	if err != nil {
		logger.Fatalf("init r2 mirror: %v", err)
	}
	defer r2Mirror.Close()

	svcOpts := report.Options{
		Logger: log.New(os.Stdout, "[report] ", log.LstdFlags|log.Lmicroseconds),
	}
	if idx != nil {
		svcOpts.Index = idx
	}
	if r2Mirror.enabled {
		svcOpts.Mirror = r2Mirror
	}
	if cfg.Audit.Enabled {
		logOpts := persistlog.LoggerOptions{RotateLayout: cfg.Audit.RotateLayout}
		if r2Mirror.enabled {
			logOpts.RotateLayout = r2Mirror.rotateLayout
			logOpts.OnClose = r2Mirror.Enqueue
		}
		auditLog := persistlog.NewRequestLogger(cfg.Server.DataDir, logOpts)
		defer auditLog.Close()
		svcOpts.Audit = auditLog
	}

	agg := aggregate.New(client, aggregate.Options{
		RequestTimeout: cfg.RequestTimeout(),
		Logger:         log.New(os.Stdout, "[aggregate] ", log.LstdFlags|log.Lmicroseconds),
	})
	svc := report.New(agg, renderer, svcOpts)

	wsSrv := ws.NewServer(svc, ws.Options{
		Logger: log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds),
	})

	enableAdminHTTP := envBool("RES_ENABLE_ADMIN_HTTP", true)
	enablePprofHTTP := envBool("RES_ENABLE_PPROF_HTTP", false)
	if !enablePprofHTTP {
		logger.Printf("pprof endpoints disabled (RES_ENABLE_PPROF_HTTP=false)")
	}
	mux := buildMux(muxDeps{
		svc:         svc,
		ws:          wsSrv.Handler(),
		index:       idx,
		mirror:      r2Mirror,
		logger:      logger,
		enableAdmin: enableAdminHTTP,
		enablePprof: enablePprofHTTP,
	})

	ctx, cancel := signalContext()
	defer cancel()

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s data=%s upstream=%s index=%s audit=%v mirror=%v", cfg.Server.Listen, cfg.Server.DataDir, cfg.Screeps.BaseURL, cfg.Index.Backend, cfg.Audit.Enabled, r2Mirror.enabled)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
