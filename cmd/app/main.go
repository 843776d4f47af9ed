// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"telegram-pix-commerce/internal/application"
	"telegram-pix-commerce/internal/config"
	"telegram-pix-commerce/internal/domain"
	"telegram-pix-commerce/internal/domain/model"
	"telegram-pix-commerce/internal/domain/ports/adapter"
	"telegram-pix-commerce/internal/domain/ports/repository"
	payAdapters "telegram-pix-commerce/internal/infra/adapters/payment"
	qrAdapters "telegram-pix-commerce/internal/infra/adapters/qr"
	tele "telegram-pix-commerce/internal/infra/adapters/telegram"
	pg "telegram-pix-commerce/internal/infra/db/postgres"
	"telegram-pix-commerce/internal/infra/i18n"
	"telegram-pix-commerce/internal/infra/logging"
	"telegram-pix-commerce/internal/infra/memory"
	"telegram-pix-commerce/internal/infra/metrics"
	red "telegram-pix-commerce/internal/infra/redis"
	"telegram-pix-commerce/internal/infra/sched"
	"telegram-pix-commerce/internal/infra/security"
	"telegram-pix-commerce/internal/infra/web"
	"telegram-pix-commerce/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed redaction)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Encryption ----
	encKey := cfg.Security.EncryptionKey
	if len(encKey) != 32 {
		logger.Warn().Msg("security.encryption_key not set or not 32 bytes, using dev key (INSECURE)")
		encKey = "0123456789abcdef0123456789abcdef"
	}
	encSvc, err := security.NewEncryptionService(encKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption init failed")
	}

	// ---- Repositories / use cases ----
	productRepo := pg.NewProductRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool, encSvc)
	botRepo := pg.NewBotRepo(pool)
	catalogUC := usecase.NewCatalogUseCase(productRepo, logger)

	// ---- Translations ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "pt-BR")
	if err != nil {
		logger.Fatal().Err(err).Msg("translator init failed")
	}

	// ---- Metrics ----
	metrics.Register(prometheus.DefaultRegisterer)

	// ---- Tenant registry (bots table, config fallback) ----
	tenants, err := botRepo.ListActive(ctx)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && len(tenants) == 0) {
		logger.Warn().Msg("no active bots in registry, falling back to config tenants")
		tenants = tenantsFromConfig(cfg)
	} else if err != nil {
		logger.Fatal().Err(err).Msg("load tenant registry failed")
	}
	if len(tenants) == 0 {
		logger.Fatal().Msg("no tenants configured: seed the bots table or set tenants in config")
	}

	// ---- Per-tenant factories ----
	transports := func(t *model.TenantConfig) (application.TransportRunner, error) {
		return tele.NewBot(t.Token, t.ID, rateLimiter, cfg.Bot.RateLimit, cfg.Bot.RateWindow, tr, logger)
	}
	gateways := func(t *model.TenantConfig) (adapter.PaymentGateway, error) {
		return payAdapters.NewPixGateway(t.GatewayToken, cfg.Payment.BaseURL)
	}
	sessions := func() repository.SessionStore {
		return memory.NewSessionStore()
	}
	workers := func(t *model.TenantConfig, orch usecase.PaymentOrchestrator, notifier application.ApprovalNotifier) application.Worker {
		return sched.NewPaymentReconciler(t.ID, orch, paymentRepo, notifier, cfg.Bot.ReconcileEvery, cfg.Bot.StaleAfter, logger)
	}

	runtime := application.NewRuntime(
		catalogUC,
		paymentRepo,
		qrAdapters.NewRenderer(),
		tr,
		transports,
		gateways,
		sessions,
		workers,
		logger,
	)
	runtime.Start(ctx, tenants)

	// ---- HTTP: health, metrics, admin ----
	auth := web.NewAuthManager(cfg.HTTP.JWTSecret, !cfg.Runtime.Dev, cfg.HTTP.SessionTTL)
	server := web.NewServer(cfg.HTTP.Port, runtime, auth, cfg.HTTP.AdminPassword, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}

func tenantsFromConfig(cfg *config.Config) []*model.TenantConfig {
	out := make([]*model.TenantConfig, 0, len(cfg.Tenants))
	for _, t := range cfg.Tenants {
		out = append(out, &model.TenantConfig{
			ID:             t.ID,
			Token:          t.Token,
			GroupTarget:    t.GroupTarget,
			WelcomeMessage: t.WelcomeMessage,
			GatewayToken:   t.GatewayToken,
		})
	}
	return out
}
