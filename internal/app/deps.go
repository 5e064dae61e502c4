package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/reelcraft/backend/internal/auth"
	"github.com/reelcraft/backend/internal/config"
	"github.com/reelcraft/backend/internal/db"
	"github.com/reelcraft/backend/internal/gateway"
	"github.com/reelcraft/backend/internal/handlers"
	"github.com/reelcraft/backend/internal/middleware"
	"github.com/reelcraft/backend/internal/payment"
	"github.com/reelcraft/backend/internal/repositories"
	"github.com/reelcraft/backend/internal/storage"
	"github.com/reelcraft/backend/internal/videogen"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers, plus the background reconcile worker owned by serve.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, *payment.ReconcileWorker, error) {
	sessionStore := repositories.NewPostgresSessionStore(pool)
	userRepo := repositories.NewPostgresUserRepository(pool)
	paymentRepo := repositories.NewPostgresPaymentRepository(pool)
	purchaseRepo := repositories.NewPostgresPurchaseRepository(pool)
	reconcileQueue := repositories.NewPostgresReconcileQueue(pool)

	tokens := gateway.NewTokenSource(cfg.Gateway.BaseURL, cfg.Gateway.ClientID, cfg.Gateway.PrivateKey, cfg.Gateway.TokenTTL)
	gatewayClient := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.MerchantID, tokens)
	provider := payment.NewProvider(tokens, cfg.Gateway.MaxRetries, cfg.Gateway.RetryDelay, logger)

	confirmService := payment.NewConfirmService(purchaseRepo, payment.DefaultGrants(), logger)
	orchestrator := payment.NewOrchestrator(gatewayClient, confirmService, reconcileQueue, paymentRepo, payment.OrchestratorConfig{
		Currency:       cfg.Gateway.Currency,
		StatusAttempts: cfg.Gateway.StatusAttempts,
		StatusInterval: cfg.Gateway.StatusInterval,
	}, logger)
	reconcileWorker := payment.NewReconcileWorker(reconcileQueue, confirmService, payment.ReconcileWorkerConfig{}, logger)

	engine := videogen.NewClient(cfg.VideoEngine.BaseURL, cfg.VideoEngine.APIKey, cfg.VideoEngine.Timeout)
	generator := videogen.NewGenerationService(engine, userRepo, logger)
	history := videogen.NewHistoryService(engine, cfg.VideoEngine.PageSize)

	templateSource, err := storage.NewS3TemplateLibrary(ctx, cfg.ObjectStore)
	if err != nil {
		reconcileWorker.Shutdown(ctx)
		return handlers.Dependencies{}, nil, err
	}
	templates := videogen.NewCachingTemplateLibrary(templateSource, cfg.ObjectStore.CacheTTL)

	deps := handlers.Dependencies{
		Users:          userRepo,
		Sessions:       auth.NewManager(15*time.Minute, 24*time.Hour, sessionStore),
		GatewaySession: provider,
		PaymentFlow:    orchestrator,
		PaymentReader:  gatewayClient,
		Confirmer:      confirmService,
		Generator:      generator,
		VideoEngine:    engine,
		VideoHistory:   history,
		Templates:      templates,
		AuthLimiter:    middleware.NewIPRateLimiter(20, time.Minute, 5, 10*time.Minute),
		PaymentLimiter: middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
		VideoLimiter:   middleware.NewIPRateLimiter(30, time.Minute, 10, 10*time.Minute),
	}

	return deps, reconcileWorker, nil
}
