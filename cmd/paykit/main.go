package main

import (
	"fmt"
	"log"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/onchainpaykit/paykit/app/repository"
	"github.com/onchainpaykit/paykit/internal/pkg/cache"
	"github.com/onchainpaykit/paykit/internal/pkg/config"
	"github.com/onchainpaykit/paykit/internal/pkg/database"
	"github.com/onchainpaykit/paykit/internal/pkg/deliveryqueue"
	"github.com/onchainpaykit/paykit/internal/pkg/env"
	"github.com/onchainpaykit/paykit/internal/pkg/middleware"
	"github.com/onchainpaykit/paykit/internal/pkg/router"
	"github.com/onchainpaykit/paykit/internal/pkg/webhook"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	config.Setup()
	database.SetupDatabase()
	cache.SetupCache()

	app := fiber.New(fiber.Config{
		BodyLimit: 1048576, // 1 MiB
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())
	app.Use(middleware.SecurityHeaders())

	// fiber metrics
	app.Get("/metrics", monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// Async webhook delivery workers
	cfg := config.Get()
	repos := repository.GetGlobalFactory().GetRepositories()
	deliverer := webhook.NewDeliverer(cfg.WebhookSecret, repos.Webhook)
	queue := deliveryqueue.NewQueue(cache.GetClient(), deliverer, repos.Webhook, 3)
	queue.Start()
	app.Hooks().OnShutdown(func() error {
		queue.Stop()
		return nil
	})

	// ROUTER
	router.InstallRouter(app, queue)

	return app
}
