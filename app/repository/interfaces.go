package repository

import (
	"github.com/onchainpaykit/paykit/app/models"
)

// MerchantRepository defines the interface for merchant-related database operations
type MerchantRepository interface {
	Create(merchant *models.Merchant) error
	GetByID(id string) (*models.Merchant, error)
	GetByAPIKeyHash(hash string) (*models.Merchant, error)
	Update(merchant *models.Merchant) error
	List(offset, limit int) ([]models.Merchant, error)
	Count() (int64, error)
}

// IntentRepository defines the interface for payment-intent persistence.
// Intents are immutable, so there is no update or delete.
type IntentRepository interface {
	Create(intent *models.PaymentIntent) error
	GetByID(id string) (*models.PaymentIntent, error)
	GetByMerchantID(merchantID string, offset, limit int) ([]models.PaymentIntent, error)
}

// WebhookRepository defines the interface for webhook configs and
// delivery-attempt records.
type WebhookRepository interface {
	SaveConfig(config *models.WebhookConfig) error
	GetConfig(merchantID string) (*models.WebhookConfig, error)
	RecordEvent(event *models.WebhookEvent) error
	GetEventsByMerchantID(merchantID string, limit int) ([]models.WebhookEvent, error)
}

// PayoutRepository defines the interface for payout persistence.
// UpdateIfStatus is the compare-and-swap primitive the ledger builds its
// state machine on.
type PayoutRepository interface {
	Create(payout *models.Payout) error
	GetByID(id string) (*models.Payout, error)
	GetByMerchantID(merchantID string, offset, limit int) ([]models.Payout, error)
	Update(payout *models.Payout) error
	UpdateIfStatus(payout *models.Payout, expectedStatus string) (bool, error)
}
