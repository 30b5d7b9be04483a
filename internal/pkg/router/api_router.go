package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	apiv1 "github.com/onchainpaykit/paykit/internal/api/v1"
	"github.com/onchainpaykit/paykit/app/repository"
	"github.com/onchainpaykit/paykit/internal/pkg/cache"
	"github.com/onchainpaykit/paykit/internal/pkg/chain"
	"github.com/onchainpaykit/paykit/internal/pkg/config"
	"github.com/onchainpaykit/paykit/internal/pkg/deliveryqueue"
	"github.com/onchainpaykit/paykit/internal/pkg/env"
	"github.com/onchainpaykit/paykit/internal/pkg/middleware"
	"github.com/onchainpaykit/paykit/internal/pkg/payout"
	"github.com/onchainpaykit/paykit/internal/pkg/ratelimit"
	"github.com/onchainpaykit/paykit/internal/pkg/webhook"
)

type ApiRouter struct {
	queue *deliveryqueue.Queue
}

func NewApiRouter(queue *deliveryqueue.Queue) *ApiRouter {
	return &ApiRouter{queue: queue}
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	cfg := config.Get()
	store := newRateLimitStore()

	general := ratelimit.New(ratelimit.Class{
		Name:   "general",
		Window: cfg.GeneralRateWindow,
		Max:    cfg.GeneralRateMax,
	}, store)
	strict := ratelimit.New(ratelimit.Class{
		Name:   "strict",
		Window: cfg.StrictRateWindow,
		Max:    cfg.StrictRateMax,
	}, store)

	repos := repository.GetGlobalFactory().GetRepositories()
	ledger := payout.NewLedger(repos.Payout, newPayoutExecutor(cfg))
	deliverer := webhook.NewDeliverer(cfg.WebhookSecret, repos.Webhook)
	server := apiv1.NewAPIServer(repos, ledger, deliverer, h.queue)

	api := app.Group("/api", middleware.RateLimit(general, middleware.IPKey))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiv1.RegisterHandlers(v1, server,
		middleware.RateLimit(strict, middleware.IPRouteKey),
		middleware.APIKeyAuthMiddleware(repos.Merchant),
	)
}

// newPayoutExecutor submits payouts through the configured bundler, or
// simulates execution when no bundler is configured.
func newPayoutExecutor(cfg *config.Config) payout.Executor {
	if cfg.BundlerURL == "" {
		return payout.SimulatedExecutor{}
	}
	return chain.NewPayoutExecutor(cfg.BundlerURL, cfg.EntryPoint, cfg.VerifyingContract, cfg.RPCURL)
}

// newRateLimitStore picks the window store. Redis shares admission state
// across instances; the in-memory store is single-process with a sweeper
// reclaiming expired windows.
func newRateLimitStore() ratelimit.Store {
	if env.GetEnv("RATE_LIMIT_STORE", "memory") == "redis" {
		return ratelimit.NewRedisStore(cache.GetClient())
	}
	mem := ratelimit.NewMemoryStore()
	mem.StartSweeper(time.Minute, make(chan struct{}))
	return mem
}
