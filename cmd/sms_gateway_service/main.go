package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nellessen/nexmo-download-link/internal/gateway_service/adapters/geoip"
	"github.com/nellessen/nexmo-download-link/internal/gateway_service/app"
	"github.com/nellessen/nexmo-download-link/internal/gateway_service/domain"
	"github.com/nellessen/nexmo-download-link/internal/gateway_service/provider"
	httptransport "github.com/nellessen/nexmo-download-link/internal/gateway_service/transport/http"
	"github.com/nellessen/nexmo-download-link/internal/platform/config"
	"github.com/nellessen/nexmo-download-link/internal/platform/counterstore"
	"github.com/nellessen/nexmo-download-link/internal/platform/logger"
)

const serviceName = "sms_gateway_service"

func main() {
	cfg, err := config.Load(serviceName, os.Args[1:])
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	appLogger.Info("SMS gateway starting...", "config", cfg)

	if cfg.NexmoDLRURL != "" {
		appLogger.Warn("Delivery receipts are requested from Nexmo but not consumed by this service", "dlr_url", cfg.NexmoDLRURL)
	}
	if cfg.DevelopmentMode {
		appLogger.Warn("Development mode is on, no SMS will be sent")
	}

	ctx := context.Background()

	store, err := counterstore.NewRedisStore(ctx, counterstore.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to Redis", "addr", cfg.RedisAddr(), "error", err)
		os.Exit(1)
	}
	defer store.Close()
	appLogger.Info("Connected to Redis", "addr", cfg.RedisAddr(), "db", cfg.RedisDB)

	// A nil GeoLocator disables the GeoIP step of country guessing.
	var geo app.GeoLocator
	if cfg.GeoIPv4Path != "" || cfg.GeoIPv6Path != "" {
		locator, err := geoip.Open(cfg.GeoIPv4Path, cfg.GeoIPv6Path, appLogger)
		if err != nil {
			appLogger.Error("Failed to open GeoIP databases", "error", err)
			os.Exit(1)
		}
		defer locator.Close()
		geo = locator
	} else {
		appLogger.Info("No GeoIP database configured, country guessing skips IP lookup")
	}

	sender := provider.NewNexmoSMSProvider(appLogger, provider.NexmoConfig{
		APIKey:            cfg.NexmoAPIKey,
		APISecret:         cfg.NexmoAPISecret,
		Domain:            cfg.NexmoDomain,
		Endpoint:          cfg.NexmoEndpoint,
		SSL:               cfg.NexmoSSL,
		LongVirtualNumber: cfg.NexmoLongVirtualNumber,
		DLRURL:            cfg.NexmoDLRURL,
		DevelopmentMode:   cfg.DevelopmentMode,
	}, &http.Client{Timeout: cfg.ProviderTimeout})

	guesser := app.NewCountryGuesser(geo, cfg.DefaultCountry, appLogger)
	resolver := app.NewPhoneResolver(guesser, cfg.GuessCountry, cfg.DefaultCountry, appLogger)
	limiter := app.NewRateLimiter(store, appLogger)
	gateway := app.NewGatewayService(limiter, resolver, sender, domain.LimitPolicy{
		Amount: cfg.LimitAmount,
		Window: cfg.LimitWindow(),
	}, appLogger)

	var routes []domain.MessageRoute
	for _, rc := range cfg.MessageRoutes() {
		routes = append(routes, domain.MessageRoute{Path: rc.Path, Message: rc.Message, Sender: rc.Sender})
		appLogger.Info("Registered message route", "path", rc.Path, "sender", rc.Sender)
	}

	handler := httptransport.NewGatewayHandler(gateway, routes, appLogger)
	router := httptransport.NewRouter(handler, appLogger)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info("SMS gateway listening", "addr", cfg.ListenAddr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to serve", "error", err)
			os.Exit(1)
		}
	}()

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	<-quitChan
	appLogger.Info("Shutdown signal received, shutting down HTTP server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("HTTP server shutdown failed", "error", err)
	} else {
		appLogger.Info("HTTP server shut down gracefully.")
	}
	appLogger.Info("SMS gateway shut down.")
}
