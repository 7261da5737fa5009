package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	_ "github.com/bizdocs/backend/docs"
	billingapp "github.com/bizdocs/backend/internal/application/billing"
	financeapp "github.com/bizdocs/backend/internal/application/finance"
	fulfillmentapp "github.com/bizdocs/backend/internal/application/fulfillment"
	inventoryapp "github.com/bizdocs/backend/internal/application/inventory"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
	"github.com/bizdocs/backend/internal/infrastructure/cache"
	"github.com/bizdocs/backend/internal/infrastructure/config"
	"github.com/bizdocs/backend/internal/infrastructure/event"
	"github.com/bizdocs/backend/internal/infrastructure/logger"
	"github.com/bizdocs/backend/internal/infrastructure/payment"
	"github.com/bizdocs/backend/internal/infrastructure/persistence"
	"github.com/bizdocs/backend/internal/infrastructure/telemetry"
	"github.com/bizdocs/backend/internal/interfaces/http/handler"
	"github.com/bizdocs/backend/internal/interfaces/http/router"
)

//	@title			Bizdocs API
//	@version		1.0
//	@description	Invoices, payments, customer orders and stock takes for small retailers.

//	@contact.name	API Support
//	@contact.url	https://github.com/bizdocs/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx := context.Background()

	// Telemetry comes up first so the bridged logger and the DB spans
	// export from the start.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))
	zap.ReplaceGlobals(log)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Warn("Profiler unavailable", zap.Error(err))
	}
	if cfg.Telemetry.ProfilingEnabled {
		tracerProvider.EnableSpanProfiles()
	}

	log.Info("Starting bizdocs",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(ctx, &cfg.Database,
		persistence.WithLogger(gormLog),
		persistence.WithTracing(telemetry.DBTracingConfig{
			Enabled:            cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			DBName:             cfg.Database.DBName,
			IncludeVariables:   cfg.Telemetry.DBLogFullSQL,
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		}, log),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	store, err := cache.NewIdempotencyStore(ctx, cfg.Idempotency, cfg.Redis, cfg.App.IsProduction(), log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)
	metrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{Meter: meter, Logger: log})
	if err != nil {
		log.Warn("Business metrics disabled", zap.Error(err))
	}

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewAuditLogHandler(log))
	bus.Subscribe(event.NewIdempotentHandler(event.NewMetricsHandler(metrics), store, shared.IdempotencyConfig{
		TTL:     cfg.Idempotency.TTL,
		Enabled: true,
	}, log))

	locale, err := language.Parse(cfg.Billing.Locale)
	if err != nil {
		log.Warn("Unknown billing locale, using en-ZA", zap.String("locale", cfg.Billing.Locale))
		locale = language.MustParse("en-ZA")
	}
	billingCfg := billingapp.ServiceConfig{
		DefaultCurrency:  valueobject.Currency(strings.ToUpper(cfg.Billing.DefaultCurrency)),
		PaymentTermsDays: cfg.Billing.PaymentTermsDays,
		RetryAttempts:    cfg.Billing.PaymentRetryAttempts,
		Locale:           locale,
	}

	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	stockTakeRepo := persistence.NewGormStockTakeRepository(db.DB)

	invoiceService := billingapp.NewInvoiceService(invoiceRepo, bus, metrics, billingCfg, log)
	orderService := fulfillmentapp.NewOrderService(orderRepo, bus, billingCfg, log)
	stockTakingService := inventoryapp.NewStockTakingService(stockTakeRepo, bus, cfg.Billing.PaymentRetryAttempts, log)

	handlers := router.Handlers{
		Invoice:     handler.NewInvoiceHandler(invoiceService),
		Order:       handler.NewOrderHandler(orderService),
		StockTaking: handler.NewStockTakingHandler(stockTakingService),
	}

	if cfg.Gateway.Enabled() {
		schedule, err := cfg.Gateway.FeeSchedule()
		if err != nil {
			log.Fatal("Invalid gateway fee schedule", zap.Error(err))
		}
		gateway, err := payment.NewPaystackAdapter(payment.PaystackConfigFromGateway(cfg.Gateway),
			payment.WithMetrics(metrics),
			payment.WithLogger(log),
		)
		if err != nil {
			log.Fatal("Failed to initialize payment gateway", zap.Error(err))
		}
		gatewayService := financeapp.NewGatewayPaymentService(invoiceRepo, invoiceService, gateway, schedule, store, bus, metrics,
			financeapp.GatewayServiceConfig{
				CallbackURL:    cfg.Gateway.CallbackURL,
				IdempotencyTTL: cfg.Idempotency.TTL,
				Locale:         locale,
			}, log)
		handlers.GatewayPayment = handler.NewGatewayPaymentHandler(gatewayService)
		log.Info("Payment gateway enabled", zap.String("provider", gateway.Name()))
	} else {
		log.Warn("Payment gateway disabled: no secret key configured")
	}

	checks := map[string]handler.Pinger{"database": db}
	if pinger, ok := store.(handler.Pinger); ok {
		checks["cache"] = pinger
	}

	engine := router.NewEngine(router.EngineConfig{
		App:       cfg.App,
		HTTP:      cfg.HTTP,
		Telemetry: cfg.Telemetry,
		Logger:    log,
		Meter:     meter,
	}, handler.NewSystemHandler(cfg.App.Name, checks), handlers)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if profiler != nil {
		if err := profiler.Stop(); err != nil {
			log.Warn("Profiler stop failed", zap.Error(err))
		}
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"tracer": tracerProvider.Shutdown,
		"meter":  meterProvider.Shutdown,
		"logs":   loggerProvider.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited")
}
