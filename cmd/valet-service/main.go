package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"valet/internal/automation"
	"valet/internal/config"
	"valet/internal/httpapi"
	"valet/internal/provider"
	"valet/internal/store/postgres"
	"valet/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("valet-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	st := postgres.NewStore(pool)

	twilioCfg := provider.TwilioConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioFromNumber,
	}
	stripeCfg := provider.StripeConfig{
		SecretKey:  cfg.StripeSecretKey,
		SuccessURL: cfg.StripeSuccessURL,
		Currency:   cfg.StripeCurrency,
	}
	caps := provider.Capabilities{
		SMSConfigured:      twilioCfg.Configured(),
		SMSDisabled:        cfg.SMSDisabled,
		PaymentsConfigured: stripeCfg.Configured(),
	}
	smsSender := provider.NewSMSSender(twilioCfg)
	links := provider.NewPaymentLinks(stripeCfg)

	orch := automation.New(st, smsSender, links, caps)
	handler := httpapi.NewHandler(st, links, caps, orch)
	webhooks := httpapi.NewWebhooks(st, orch, httpapi.WebhookConfig{
		TwilioAuthToken:     cfg.TwilioAuthToken,
		StripeWebhookSecret: cfg.StripeWebhookSecret,
	})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:    cfg.RateLimitPerMinute,
		IPBurst:        cfg.RateLimitBurst,
		PhonePerMinute: cfg.PhoneRateLimitPerMinute,
		PhoneBurst:     cfg.PhoneRateLimitBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/webhooks/", webhooks.Routes())
	mux.Handle("/", handler.Routes())

	otelHandler := otelhttp.NewHandler(
		httpapi.LoggingMiddleware(limiter.Middleware(httpapi.AuthMiddleware(st, mux))),
		"valet-service",
	)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("valet-service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
