package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/onchainpaykit/paykit/app/models"
	"github.com/onchainpaykit/paykit/app/repository"
)

// MerchantContextKey is the fiber locals key the authenticated merchant
// is stored under.
const MerchantContextKey = "MERCHANT"

// APIKeyAuthMiddleware authenticates requests carrying a merchant API key
// header. The response stays deliberately vague about which part of the
// credential was wrong.
func APIKeyAuthMiddleware(repo repository.MerchantRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}

		merchant, err := repo.GetByAPIKeyHash(models.HashAPIKey(apiKey))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
			}
			log.Errorf("api key lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "API key verification failed"})
		}

		c.Locals(MerchantContextKey, merchant)
		return c.Next()
	}
}

// MerchantFromContext returns the merchant set by APIKeyAuthMiddleware,
// or nil on unprotected routes.
func MerchantFromContext(c *fiber.Ctx) *models.Merchant {
	m, _ := c.Locals(MerchantContextKey).(*models.Merchant)
	return m
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
