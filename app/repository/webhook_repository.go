package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/onchainpaykit/paykit/app/models"
)

// webhookRepository implements the WebhookRepository interface
type webhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository creates a new webhook repository instance
func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

// SaveConfig upserts the per-merchant webhook config. Re-registration is a
// full replace, last write wins.
func (r *webhookRepository) SaveConfig(config *models.WebhookConfig) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "merchant_id"}},
		UpdateAll: true,
	}).Create(config).Error
}

// GetConfig retrieves the webhook config for a merchant
func (r *webhookRepository) GetConfig(merchantID string) (*models.WebhookConfig, error) {
	var config models.WebhookConfig
	err := r.db.Where("merchant_id = ?", merchantID).First(&config).Error
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// RecordEvent stores one delivery attempt
func (r *webhookRepository) RecordEvent(event *models.WebhookEvent) error {
	return r.db.Create(event).Error
}

// GetEventsByMerchantID retrieves the most recent delivery attempts for a merchant
func (r *webhookRepository) GetEventsByMerchantID(merchantID string, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.Where("merchant_id = ?", merchantID).
		Order("delivered_at DESC").Limit(limit).Find(&events).Error
	return events, err
}
