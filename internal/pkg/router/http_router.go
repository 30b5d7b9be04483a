package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/onchainpaykit/paykit/internal/pkg/config"
	"github.com/onchainpaykit/paykit/internal/pkg/env"
)

var startTime = time.Now()

type HttpRouter struct {
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

// InstallRouter registers the service-level probe routes.
func (h *HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"name":    "PayKit API",
			"version": env.GetEnv("API_VERSION", "1.0.0"),
			"status":  "running",
			"endpoints": []string{
				"/health", "/readiness", "/version",
				"/api/v1/intents", "/api/v1/merchants", "/api/v1/webhooks", "/api/v1/payouts",
			},
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		cfg := config.Get()
		return c.JSON(fiber.Map{
			"ok":        true,
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(startTime).Seconds(),
			"env": fiber.Map{
				"chainId":          cfg.ChainID,
				"hasSignerKey":     cfg.SignerKey != nil,
				"hasPaymentRouter": cfg.VerifyingContract != [20]byte{},
			},
		})
	})

	app.Get("/readiness", func(c *fiber.Ctx) error {
		cfg := config.Get()
		checks := fiber.Map{
			"environment":   true,
			"signerKey":     cfg.SignerKey != nil,
			"paymentRouter": cfg.VerifyingContract != [20]byte{},
			"chainId":       cfg.ChainID != 0,
		}
		for _, ok := range checks {
			if ok != true {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Service not ready", "checks": checks})
			}
		}
		return c.JSON(fiber.Map{
			"ready":     true,
			"checks":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version":     env.GetEnv("API_VERSION", "1.0.0"),
			"buildTime":   env.GetEnv("BUILD_TIME", ""),
			"commitSha":   env.GetEnv("COMMIT_SHA", "development"),
			"environment": env.GetEnv("APP_ENV", "prod"),
		})
	})
}
