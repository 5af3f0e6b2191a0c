// Command formcheck runs the registration form validator against input from
// stdin, with health and metrics served over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"formcheck/internal/address"
	addressmetrics "formcheck/internal/address/metrics"
	"formcheck/internal/engine"
	"formcheck/internal/platform/config"
	"formcheck/internal/platform/httpserver"
	"formcheck/internal/platform/logger"
	"formcheck/internal/platform/metrics"
	"formcheck/internal/presentation"
	httptransport "formcheck/internal/transport/http"
	"formcheck/internal/validation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "formcheck:", err)
		os.Exit(1)
	}
}

// run wires high-level dependencies and keeps the process lifecycle small.
func run() error {
	configPath := flag.String("config", "", "path to a config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log, logCloser := logger.New(cfg.Log)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(reg)
	lookupMetrics := addressmetrics.New(reg)

	cache, err := buildCache(ctx, cfg, lookupMetrics)
	if err != nil {
		return err
	}
	defer cache.close()

	catalog, err := buildCatalog(cfg)
	if err != nil {
		return err
	}

	loop := engine.NewLoop(appMetrics)
	session, err := engine.NewSession(engine.SessionConfig{
		Loop:    loop,
		Lookup:  address.NewCachedLookup(buildLookup(cfg, log), cache.cache, log),
		Catalog: catalog,
		Sink: presentation.Multi{
			presentation.NewWriterSink(os.Stdout),
			presentation.NewLogSink(log),
		},
		BirthDate:      &validation.BirthDateValidator{MinYears: cfg.Form.MinAge},
		Metrics:        appMetrics,
		AddressMetrics: lookupMetrics,
		AddressOptions: []address.Option{address.WithTimeout(cfg.Lookup.Timeout)},
		Logger:         log,
	})
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "formcheck started",
		"session_id", session.ID(),
		"cache", cfg.Cache.Backend,
		"input", cfg.Form.Input,
		"metrics_addr", cfg.Server.Addr,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := loop.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if cfg.Server.Addr != "" {
		router := httptransport.NewRouter(httptransport.NewHandler(reg, cache.checks, log))
		srv := httpserver.New(cfg.Server.Addr, router)
		g.Go(func() error {
			return httpserver.Run(gctx, srv)
		})
	}
	g.Go(func() error {
		// End of input ends the process.
		defer stop()
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = session.Close(closeCtx)
		}()
		if cfg.Form.Input == "prompt" {
			return runPrompt(gctx, session, os.Stdout)
		}
		return runLines(gctx, session, os.Stdin, os.Stdout)
	})

	if err := g.Wait(); err != nil {
		log.Error("formcheck stopped", "error", err)
		return err
	}
	log.Info("formcheck stopped")
	return nil
}
