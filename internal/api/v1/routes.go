package apiv1

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterHandlers attaches all v1 routes. strict is the tighter
// rate-limit class applied to sensitive routes; auth is the merchant
// API-key middleware.
func RegisterHandlers(r fiber.Router, s *APIServer, strict, auth fiber.Handler) {
	intents := r.Group("/intents", strict)
	intents.Post("/", s.PostIntent)
	intents.Get("/merchant/:merchantId", s.GetMerchantIntents)
	intents.Get("/:id", s.GetIntent)

	merchants := r.Group("/merchants")
	merchants.Post("/", s.PostMerchant)
	merchants.Get("/", s.GetMerchants)
	merchants.Get("/:id", s.GetMerchant)
	merchants.Put("/:id", s.PutMerchant)

	webhooks := r.Group("/webhooks")
	webhooks.Post("/merchant", s.PostWebhookConfig)
	webhooks.Get("/merchant/:merchantId", s.GetWebhookConfig)
	webhooks.Post("/test", s.PostWebhookTest)
	webhooks.Post("/notify", s.PostWebhookNotify)
	webhooks.Get("/events/:merchantId", s.GetWebhookEvents)

	payouts := r.Group("/payouts", strict, auth)
	payouts.Post("/", s.PostPayout)
	payouts.Get("/merchant/:merchantId", s.GetMerchantPayouts)
	payouts.Get("/:id", s.GetPayout)
	payouts.Post("/:id/retry", s.PostPayoutRetry)
}
