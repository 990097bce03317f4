package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/vehiclevault-lookup/api/routes"
	"github.com/angelmondragon/vehiclevault-lookup/internal/lookup"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/config"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/dvla"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/dvsa"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/logger"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/metrics"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	lookupMetrics := metrics.NewLookupMetrics(registry)

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured, lookup rate limiting disabled")
	}

	httpClient := &http.Client{Timeout: cfg.Lookup.UpstreamTimeout}

	var enquiry lookup.Enquirer
	if cfg.DVLA.Enabled {
		enquiry = dvla.NewClient(cfg.DVLA.APIKey, dvla.WithURL(cfg.DVLA.URL), dvla.WithHTTPClient(httpClient))
		if cfg.Lookup.FixturesEnabled {
			enquiry = lookup.WithFixtureFallback(enquiry, logg)
			logg.Info(ctx, "lookup fixture fallback enabled")
		}
	}

	history := dvsa.NewClient(dvsa.Config{
		APIKey:       cfg.DVSA.APIKey,
		BaseURL:      cfg.DVSA.BaseURL,
		TokenURL:     cfg.DVSA.TokenURL,
		ClientID:     cfg.DVSA.ClientID,
		ClientSecret: cfg.DVSA.ClientSecret,
		Scope:        cfg.DVSA.Scope,
		SafetyMargin: cfg.DVSA.TokenMargin,
		TokenTimeout: cfg.Lookup.UpstreamTimeout,
	}, dvsa.WithHTTPClient(httpClient), dvsa.WithMetrics(lookupMetrics))

	lookupService := lookup.NewService(lookup.ServiceParams{
		Enquiry:         enquiry,
		History:         history,
		EnquiryEnabled:  cfg.DVLA.Enabled,
		UpstreamTimeout: cfg.Lookup.UpstreamTimeout,
		Resolvers:       lookup.DefaultResolvers(cfg.Lookup.ExpiryEstimation),
		Logger:          logg,
		Metrics:         lookupMetrics,
	})

	server := &http.Server{
		Addr: ":" + cfg.App.Port,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			Lookup:      lookupService,
			RedisClient: redisClient,
			Gatherer:    registry,
			Metrics:     lookupMetrics,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}()

	logg.Info(logg.WithField(ctx, "addr", server.Addr), "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "api server stopped")
}
