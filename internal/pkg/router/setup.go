package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/onchainpaykit/paykit/internal/pkg/deliveryqueue"
)

// Router installs one group of routes onto the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter registers all route groups. queue may be nil when async
// webhook delivery is disabled.
func InstallRouter(app *fiber.App, queue *deliveryqueue.Queue) {
	setup(app, NewHttpRouter(), NewApiRouter(queue))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
