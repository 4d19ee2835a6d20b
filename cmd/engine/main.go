package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"regime-engine/internal/decisionlog"
	"regime-engine/internal/logger"
	"regime-engine/internal/realtime"
	"regime-engine/internal/trace"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the engine config")
	serve := flag.Bool("serve", false, "keep serving metrics after stdin closes")
	flag.Parse()

	must(initializeSystem())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(ctx, *configPath)
	must(err)

	st, err := initializeState(ctx, cfg)
	must(err)
	defer func() {
		if err := st.closer(); err != nil {
			logger.Warn(ctx, "Failed to close state backend", "error", err)
		}
	}()

	rec, srv := initializeMetrics(ctx, cfg.Metrics.Addr)
	ns, regions := initializeNews(ctx, cfg)
	eng := initializeEngine(cfg, st, ns, rec)

	dl := decisionlog.New(cfg.DecisionLog.Dir)
	enforceRetention(ctx, dl, cfg)

	p := &processor{
		engine:  eng,
		configs: st.configs,
		tapes:   realtime.NewWindow(realtime.WindowSize),
		log:     dl,
		owner:   cfg.Owner,
		now:     time.Now,
	}

	logger.Info(ctx, "Engine started", "owner", cfg.Owner, "backend", cfg.State.Backend, "decision_log", dl.Dir())
	if err := p.run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		logger.ErrorWithErr(ctx, "Request stream failed", err)
	}
	if regions != nil {
		logger.Info(ctx, "Region classification stats", "counts", regions.Stats())
	}

	if *serve && srv != nil {
		logger.Info(ctx, "Input closed; serving metrics until interrupted")
		<-ctx.Done()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if srv != nil {
		_ = srv.Shutdown(shutdownCtx)
	}
	_ = trace.Shutdown(shutdownCtx)
}
